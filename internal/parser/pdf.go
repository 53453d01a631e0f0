package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/docsift/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFParser handles PDF files. It tries the Go library first,
// then falls back to pdftotext if available.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmpPath, err := SpoolTemp(r, "docsift-pdf-*.pdf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	pages, err := extractPDFPages(tmpPath)
	if err != nil && p.FallbackPdftotext {
		var text string
		text, err = extractPdftotext(tmpPath)
		pages = splitPages(text)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	tree := &doctree.DocTree{
		Title:     strings.TrimSuffix(filename, ".pdf"),
		PageCount: PageCount(tmpPath, len(pages)),
	}

	// Empty pages keep their slot so later pages retain their numbers.
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Text: page,
			Page: i + 1,
		})
	}

	return tree, nil
}

// PageCount reports the number of pages in the PDF at path, preferring
// pdfcpu's cross-reference table and falling back to known when pdfcpu
// rejects the file.
func PageCount(path string, known int) int {
	ctx, err := api.ReadContextFile(path)
	if err != nil || ctx.PageCount <= 0 {
		return known
	}
	return ctx.PageCount
}

// SpoolTemp copies r into a new temp file and returns its path. The
// caller removes it.
func SpoolTemp(r io.Reader, pattern string) (string, error) {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), nil
}

// extractPDFPages returns one entry per physical page. Pages that cannot be
// decoded yield an empty string.
func extractPDFPages(path string) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		pages[i-1] = pageText(reader.Page(i))
	}
	return pages, nil
}

// pageText rebuilds the page's lines from positioned glyphs, so text placed
// with Td/TD/Tm still breaks where it does on the rendered page.
func pageText(page pdflib.Page) string {
	if page.V.IsNull() {
		return ""
	}
	glyphs, err := pageGlyphs(page)
	if err != nil {
		return ""
	}
	return strings.Join(PageLines(AssembleSpans(glyphs, pageHeight(page.V))), "\n")
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

func splitPages(text string) []string {
	pages := strings.Split(text, "\f")
	// pdftotext terminates every page with a form feed.
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}
