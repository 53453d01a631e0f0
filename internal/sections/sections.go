// Package sections finds heading-like lines in plain page text. It works
// without font metadata, so it also covers documents whose layout cannot be
// decoded.
package sections

import (
	"strings"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/textutil"
)

const (
	// ContextLines is how many following non-empty lines are captured.
	ContextLines = 5
	// maxTitleWords bounds title-cased lines; uppercase lines are unbounded.
	maxTitleWords = 10
)

// Section is a heading line plus the text that follows it.
type Section struct {
	Text             string `json:"text"`
	PageNumber       int    `json:"page_number"`
	Context          string `json:"context"`
	Document         string `json:"document"`
	CollectionFolder string `json:"collection_folder,omitempty"`
}

// IsHeadingLine reports whether a trimmed line looks like a heading.
func IsHeadingLine(line string) bool {
	if textutil.IsUpper(line) {
		return true
	}
	return textutil.IsTitle(line) && len(strings.Fields(line)) < maxTitleWords
}

// Harvest scans every page for heading lines in reading order.
func Harvest(pages []doctree.Page, document, folder string) []Section {
	var out []Section
	for _, p := range pages {
		lines := nonEmptyLines(p.Text)
		for i, line := range lines {
			if !IsHeadingLine(line) {
				continue
			}
			end := min(i+1+ContextLines, len(lines))
			out = append(out, Section{
				Text:             line,
				PageNumber:       p.Number,
				Context:          strings.Join(lines[i+1:end], " "),
				Document:         document,
				CollectionFolder: folder,
			})
		}
	}
	return out
}

func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
