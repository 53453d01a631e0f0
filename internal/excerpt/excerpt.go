// Package excerpt re-reads the pages behind ranked sections and returns
// bounded page text.
package excerpt

import (
	"log/slog"
	"strings"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/rank"
	"github.com/dgallion1/docsift/internal/textutil"
)

// DefaultMaxChars bounds an excerpt's length in characters.
const DefaultMaxChars = 2000

// Excerpt is the trimmed text of one page.
type Excerpt struct {
	Document    string `json:"document"`
	RefinedText string `json:"refined_text"`
	PageNumber  int    `json:"page_number"`
}

// PageSource returns a document's page texts and its physical page count.
type PageSource interface {
	Pages(path string) ([]doctree.Page, int, error)
}

type document struct {
	pages map[int]string
	count int
	err   error
}

// Extractor reads each document at most once per instance.
type Extractor struct {
	src      PageSource
	resolve  func(document string) string
	maxChars int
	log      *slog.Logger
	docs     map[string]*document
}

// New returns an extractor that maps document names to file paths with
// resolve. Instances are not safe for concurrent use.
func New(src PageSource, resolve func(string) string, maxChars int, log *slog.Logger) *Extractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		src:      src,
		resolve:  resolve,
		maxChars: maxChars,
		log:      log,
		docs:     map[string]*document{},
	}
}

// Extract returns one excerpt per selected section, in selection order.
// Sections whose page is out of range, whose document cannot be read, or
// whose page has no text are skipped.
func (e *Extractor) Extract(selected []rank.Scored) []Excerpt {
	out := []Excerpt{}
	for _, s := range selected {
		doc := e.load(s.Document)
		if doc.err != nil {
			e.log.Warn("skipping excerpt: document unreadable", "document", s.Document, "error", doc.err)
			continue
		}
		if s.PageNumber < 1 || s.PageNumber > doc.count {
			e.log.Debug("skipping excerpt: page out of range", "document", s.Document, "page", s.PageNumber, "pages", doc.count)
			continue
		}
		text := strings.TrimSpace(doc.pages[s.PageNumber])
		if text == "" {
			continue
		}
		out = append(out, Excerpt{
			Document:    s.Document,
			RefinedText: textutil.Truncate(text, e.maxChars),
			PageNumber:  s.PageNumber,
		})
	}
	return out
}

func (e *Extractor) load(name string) *document {
	if d, ok := e.docs[name]; ok {
		return d
	}
	d := &document{pages: map[int]string{}}
	pages, count, err := e.src.Pages(e.resolve(name))
	if err != nil {
		d.err = err
	} else {
		d.count = count
		for _, p := range pages {
			d.pages[p.Number] = p.Text
		}
	}
	e.docs[name] = d
	return d
}
