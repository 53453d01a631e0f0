// Package rank scores harvested sections against a persona and task and
// keeps the best K.
package rank

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dgallion1/docsift/internal/embed"
	"github.com/dgallion1/docsift/internal/sections"
	"github.com/dgallion1/docsift/internal/textutil"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTopK is used when a non-positive K is requested.
	DefaultTopK = 5
	// TitleRunes caps the section title copied into results.
	TitleRunes = 60
)

// Scored is a section with its similarity to the query.
type Scored struct {
	Document     string  `json:"document"`
	SectionTitle string  `json:"section_title"`
	Score        float64 `json:"score"`
	PageNumber   int     `json:"page_number"`
	Rank         int     `json:"importance_rank"`
}

// Query builds the persona/task query string.
func Query(role, task string) string {
	return role + ": " + task
}

// Ranker embeds sections concurrently and orders them by cosine similarity.
type Ranker struct {
	emb         embed.Embedder
	log         *slog.Logger
	concurrency int
}

func New(emb embed.Embedder, log *slog.Logger, concurrency int) *Ranker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Ranker{emb: emb, log: log, concurrency: concurrency}
}

// Rank returns the top k sections by similarity to query, ranked 1..n.
// Sections with empty text are skipped. Equal scores keep input order.
func (r *Ranker) Rank(ctx context.Context, query string, secs []sections.Section, k int) ([]Scored, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	qv, err := r.emb.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var todo []sections.Section
	for _, s := range secs {
		if strings.TrimSpace(s.Text) != "" {
			todo = append(todo, s)
		}
	}

	scores := make([]float64, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, s := range todo {
		g.Go(func() error {
			v, err := r.emb.Embed(gctx, s.Text)
			if err != nil {
				return fmt.Errorf("embed section %q (%s p%d): %w", textutil.Truncate(s.Text, 40), s.Document, s.PageNumber, err)
			}
			scores[i] = embed.Cosine(qv, v)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scored := make([]Scored, len(todo))
	for i, s := range todo {
		scored[i] = Scored{
			Document:     s.Document,
			SectionTitle: textutil.Truncate(s.Text, TitleRunes),
			Score:        scores[i],
			PageNumber:   s.PageNumber,
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if len(scored) > k {
		scored = scored[:k]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}
	r.log.Debug("ranked sections", "candidates", len(todo), "kept", len(scored))
	return scored, nil
}
