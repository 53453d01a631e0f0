package outline

import (
	"sort"
	"strings"

	"github.com/dgallion1/docsift/internal/classifier"
)

// mergeDistance is the vertical gap below which same-level fragments on a
// page are treated as one wrapped heading.
const mergeDistance = 3.0

// Candidate is a classified line.
type Candidate struct {
	Level string
	Text  string
	Page  int
	Y     float64
	Score float64
}

// Heading is one or more merged candidates.
type Heading struct {
	Level string  `json:"level"`
	Text  string  `json:"text"`
	Page  int     `json:"page"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// Entry is a heading as it appears in the published outline.
type Entry struct {
	Level string `json:"level" yaml:"level"`
	Text  string `json:"text" yaml:"text"`
	Page  int    `json:"page" yaml:"page"`
}

// Result is a document's title and outline.
type Result struct {
	Title   string  `json:"title" yaml:"title"`
	Outline []Entry `json:"outline" yaml:"outline"`
}

// Consolidate drops body lines, orders the rest by (page, level, y) and
// merges runs of same-page, same-level candidates whose consecutive y
// values are less than mergeDistance apart.
func Consolidate(cands []Candidate) []Heading {
	kept := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Level != classifier.NotHeading {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		return a.Y < b.Y
	})

	var out []Heading
	var parts []string
	var first, prev Candidate
	flush := func() {
		if len(parts) == 0 {
			return
		}
		out = append(out, Heading{
			Level: first.Level,
			Text:  strings.Join(parts, " "),
			Page:  first.Page,
			Y:     first.Y,
			Score: first.Score,
		})
		parts = parts[:0]
	}

	for _, c := range kept {
		if len(parts) > 0 && (c.Page != first.Page || c.Level != first.Level || c.Y-prev.Y >= mergeDistance) {
			flush()
		}
		if len(parts) == 0 {
			first = c
		}
		parts = append(parts, c.Text)
		prev = c
	}
	flush()
	return out
}

// Split separates title headings from the outline. Title parts are joined
// top to bottom; outline entries keep merge order.
func Split(headings []Heading) Result {
	var titles []Heading
	res := Result{Outline: []Entry{}}
	for _, h := range headings {
		if strings.EqualFold(h.Level, "title") {
			titles = append(titles, h)
			continue
		}
		res.Outline = append(res.Outline, Entry{Level: h.Level, Text: h.Text, Page: h.Page})
	}

	sort.SliceStable(titles, func(i, j int) bool { return titles[i].Y < titles[j].Y })
	parts := make([]string, len(titles))
	for i, t := range titles {
		parts[i] = t.Text
	}
	res.Title = strings.TrimSpace(strings.Join(parts, ", "))
	return res
}
