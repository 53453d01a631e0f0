// Package embed maps text to dense vectors through a local hashing model or
// a remote embedding API, with optional rate limiting, retries and a
// persistent cache.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"
)

// ErrModelLoad marks an embedding backend that could not be initialised.
var ErrModelLoad = errors.New("load embedding model")

// Embedder maps a string to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Provider names.
const (
	ProviderHash   = "hash"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Options select and tune an embedding backend.
type Options struct {
	Provider          string
	Model             string
	URL               string
	APIKey            string
	Dimension         int
	Timeout           time.Duration
	RequestsPerSecond float64
	CachePath         string
}

// Service is the fully wrapped embedder handed to the ranker.
type Service struct {
	Embedder
	Stats *Stats

	closers []func() error
}

// Open builds the backend named by opts.Provider and wraps it. Remote
// providers are rate limited and retried; every provider records latency
// and, when CachePath is set, is fronted by a badger cache.
func Open(ctx context.Context, opts Options, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	stats := NewStats(time.Hour)
	svc := &Service{Stats: stats}

	var base Embedder
	remote := true
	switch opts.Provider {
	case ProviderHash, "":
		base = NewHash(opts.Dimension)
		remote = false
	case ProviderOllama:
		base = NewOllama(opts.URL, opts.Model, opts.Timeout)
	case ProviderOpenAI:
		key := firstNonEmpty(opts.APIKey, os.Getenv("OPENAI_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("%w: openai api key is not set", ErrModelLoad)
		}
		base = NewOpenAI(key, opts.Model, opts.Dimension)
	case ProviderGemini:
		key := firstNonEmpty(opts.APIKey, os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("%w: gemini api key is not set", ErrModelLoad)
		}
		g, err := NewGemini(ctx, key, opts.Model, opts.Dimension)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
		}
		base = g
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrModelLoad, opts.Provider)
	}

	e := base
	if remote {
		e = &Retrying{Next: e, Log: log}
		e = NewRateLimited(e, opts.RequestsPerSecond)
	}
	e = &Instrumented{Next: e, Stats: stats}

	if opts.CachePath != "" {
		c, err := OpenCache(opts.CachePath, opts.Provider+"/"+opts.Model, e, stats)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
		}
		svc.closers = append(svc.closers, c.Close)
		e = c
	}

	svc.Embedder = e
	log.Info("embedding model ready", "provider", firstNonEmpty(opts.Provider, ProviderHash), "model", opts.Model, "cache", opts.CachePath != "")
	return svc, nil
}

// Close releases the cache, if any.
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Cosine returns the cosine similarity of a and b, or 0 when either has
// zero length or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Instrumented records the latency of every call to Next.
type Instrumented struct {
	Next  Embedder
	Stats *Stats
}

func (i *Instrumented) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	v, err := i.Next.Embed(ctx, text)
	i.Stats.Record(time.Since(start).Milliseconds())
	if err != nil {
		i.Stats.RecordError()
	}
	return v, err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
