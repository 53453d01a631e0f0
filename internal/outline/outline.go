// Package outline turns positioned PDF text into a document title and a
// flat list of leveled headings.
package outline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgallion1/docsift/internal/classifier"
	"github.com/dgallion1/docsift/internal/parser"
)

const boldBonus = 2.0

// LayoutReader yields positioned spans for every page of a PDF.
type LayoutReader interface {
	Layout(ctx context.Context, path string) ([]parser.PageLayout, error)
}

// Extractor runs layout grouping, classification and consolidation.
type Extractor struct {
	layout      LayoutReader
	clf         classifier.Classifier
	log         *slog.Logger
	concurrency int
}

// NewExtractor wires the layout source and classifier. Pages are classified
// concurrently with up to concurrency workers; results do not depend on it.
func NewExtractor(layout LayoutReader, clf classifier.Classifier, log *slog.Logger, concurrency int) *Extractor {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{layout: layout, clf: clf, log: log, concurrency: concurrency}
}

// Extract returns the title and outline of the PDF at path.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	headings, err := e.Headings(ctx, path)
	if err != nil {
		return Result{}, err
	}
	return Split(headings), nil
}

// Headings returns the merged headings, including titles, with their
// positions and scores.
func (e *Extractor) Headings(ctx context.Context, path string) ([]Heading, error) {
	pages, err := e.layout.Layout(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	cands, err := e.classifyPages(ctx, pages)
	if err != nil {
		return nil, err
	}
	headings := Consolidate(cands)
	e.log.Debug("outline extracted", "path", path, "pages", len(pages), "candidates", len(cands), "headings", len(headings))
	return headings, nil
}

// classifyPages classifies every line of every page. Page results are stored
// by index so output order matches a sequential scan.
func (e *Extractor) classifyPages(ctx context.Context, pages []parser.PageLayout) ([]Candidate, error) {
	perPage := make([][]Candidate, len(pages))
	errs := make([]error, len(pages))

	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup
	for i := range pages {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			perPage[i], errs[i] = e.classifyPage(pages[i])
		}(i)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cands []Candidate
	for i := range pages {
		if errs[i] != nil {
			return nil, fmt.Errorf("classify page %d: %w", pages[i].Number, errs[i])
		}
		cands = append(cands, perPage[i]...)
	}
	return cands, nil
}

func (e *Extractor) classifyPage(page parser.PageLayout) ([]Candidate, error) {
	lines := GroupLines(page)
	cands := make([]Candidate, 0, len(lines))
	for _, l := range lines {
		label, err := e.clf.Predict(ExtractFeatures(l))
		if err != nil {
			return nil, err
		}
		score := l.FontSize
		if l.IsBold {
			score += boldBonus
		}
		cands = append(cands, Candidate{
			Level: label,
			Text:  l.Text,
			Page:  l.Page,
			Y:     l.Y,
			Score: score,
		})
	}
	return cands, nil
}
