// Package collection runs persona-driven retrieval over one collection
// directory: harvest sections, rank them against the persona and task, and
// excerpt the winning pages.
package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/embed"
	"github.com/dgallion1/docsift/internal/excerpt"
	"github.com/dgallion1/docsift/internal/rank"
	"github.com/dgallion1/docsift/internal/sections"
	"golang.org/x/sync/errgroup"
)

// File and directory names inside a collection.
const (
	InputFile  = "challenge1b_input.json"
	OutputFile = "challenge1b_output.json"
	DocsDir    = "PDFs"
	DirPrefix  = "Collection_"
)

// TimestampLayout is the processing timestamp format: local time with
// microseconds and no zone.
const TimestampLayout = "2006-01-02T15:04:05.000000"

type Metadata struct {
	InputDocuments      []string `json:"input_documents"`
	Persona             string   `json:"persona"`
	JobToBeDone         string   `json:"job_to_be_done"`
	ProcessingTimestamp string   `json:"processing_timestamp"`
}

type ExtractedSection struct {
	Document       string `json:"document"`
	SectionTitle   string `json:"section_title"`
	ImportanceRank int    `json:"importance_rank"`
	PageNumber     int    `json:"page_number"`
}

// Result is the document written to a collection's output file.
type Result struct {
	Metadata           Metadata           `json:"metadata"`
	ExtractedSections  []ExtractedSection `json:"extracted_sections"`
	SubsectionAnalysis []excerpt.Excerpt  `json:"subsection_analysis"`
}

// PageSource reads a document into pages.
type PageSource interface {
	Pages(path string) ([]doctree.Page, int, error)
}

// Stage names reported through Runner.OnStage.
const (
	StageHarvesting = "harvesting"
	StageRanking    = "ranking"
	StageExtracting = "extracting"
)

// Runner processes collections. The zero value is not usable; set Source
// and Embedder.
type Runner struct {
	Source      PageSource
	Embedder    embed.Embedder
	Log         *slog.Logger
	TopK        int
	MaxChars    int
	Concurrency int

	// OnStage, if set, is called as the run moves between stages.
	OnStage func(stage string)

	now func() time.Time
}

func (r *Runner) logger() *slog.Logger {
	if r.Log == nil {
		return slog.Default()
	}
	return r.Log
}

func (r *Runner) stage(s string) {
	if r.OnStage != nil {
		r.OnStage(s)
	}
}

// Run processes the collection rooted at dir and returns its result. It
// does not write the output file.
func (r *Runner) Run(ctx context.Context, dir string) (*Result, error) {
	in, err := LoadInput(filepath.Join(dir, InputFile))
	if err != nil {
		return nil, err
	}
	return r.RunInput(ctx, dir, in)
}

// RunInput is Run with an already loaded input.
func (r *Runner) RunInput(ctx context.Context, dir string, in *Input) (*Result, error) {
	log := r.logger().With("collection", filepath.Base(dir))
	docsDir := filepath.Join(dir, DocsDir)
	conc := max(r.Concurrency, 1)

	r.stage(StageHarvesting)
	names := uniqueNames(in.Filenames())
	harvested := make([][]sections.Section, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conc)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path, err := DocumentPath(docsDir, name)
			if err != nil {
				log.Warn("skipping document", "document", name, "error", err)
				return nil
			}
			pages, _, err := r.Source.Pages(path)
			if err != nil {
				log.Warn("skipping document", "document", name, "error", err)
				return nil
			}
			harvested[i] = sections.Harvest(pages, name, filepath.Base(dir))
			log.Debug("harvested", "document", name, "sections", len(harvested[i]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var all []sections.Section
	for _, h := range harvested {
		all = append(all, h...)
	}

	r.stage(StageRanking)
	ranked, err := rank.New(r.Embedder, log, conc).Rank(ctx, rank.Query(in.Persona.Role, in.JobToBeDone.Task), all, r.TopK)
	if err != nil {
		return nil, fmt.Errorf("rank sections: %w", err)
	}

	r.stage(StageExtracting)
	resolve := func(name string) string {
		// Ranked sections only name documents that passed DocumentPath.
		path, _ := DocumentPath(docsDir, name)
		return path
	}
	ex := excerpt.New(r.Source, resolve, r.MaxChars, log)
	excerpts := ex.Extract(ranked)

	now := time.Now
	if r.now != nil {
		now = r.now
	}
	res := &Result{
		Metadata: Metadata{
			InputDocuments:      in.Filenames(),
			Persona:             in.Persona.Role,
			JobToBeDone:         in.JobToBeDone.Task,
			ProcessingTimestamp: now().Format(TimestampLayout),
		},
		ExtractedSections:  make([]ExtractedSection, 0, len(ranked)),
		SubsectionAnalysis: excerpts,
	}
	for _, s := range ranked {
		res.ExtractedSections = append(res.ExtractedSections, ExtractedSection{
			Document:       s.Document,
			SectionTitle:   s.SectionTitle,
			ImportanceRank: s.Rank,
			PageNumber:     s.PageNumber,
		})
	}
	log.Info("collection processed", "documents", len(names), "sections", len(all), "selected", len(ranked), "excerpts", len(excerpts))
	return res, nil
}

// WriteResult writes res as indented JSON without HTML escaping.
func WriteResult(path string, res *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(res); err != nil {
		f.Close()
		return fmt.Errorf("encode output: %w", err)
	}
	return f.Close()
}

// Discover lists the collection directories directly under root, sorted
// by name.
func Discover(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), DirPrefix) {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// uniqueNames drops repeated filenames, keeping the first occurrence.
func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
