package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docsift/internal/doctree"
)

// TextParser handles plain text files. Form feeds separate pages, blank
// lines separate paragraphs.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(filename, ".txt"),
	}

	page := 1
	var current strings.Builder
	flush := func() {
		if current.Len() == 0 {
			return
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Text: current.String(),
			Page: page,
		})
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		for {
			before, after, found := strings.Cut(line, "\f")
			if !found {
				break
			}
			p.appendLine(&current, before, flush)
			flush()
			page++
			line = after
		}
		p.appendLine(&current, line, flush)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if page > 1 {
		tree.PageCount = page
	}
	return tree, nil
}

func (p *TextParser) appendLine(current *strings.Builder, line string, flush func()) {
	if strings.TrimSpace(line) == "" {
		flush()
		return
	}
	if current.Len() > 0 {
		current.WriteString("\n")
	}
	current.WriteString(line)
}
