package parser

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/dgallion1/docsift/internal/textutil"
	pdflib "github.com/ledongthuc/pdf"
)

// Span is a run of text set in one font at one size on one baseline.
// Y is measured from the top of the page, so smaller values sit higher.
type Span struct {
	Text     string
	FontName string
	FontSize float64
	X        float64
	Y        float64
	Width    float64
}

// PageLayout holds the positioned text spans of one page.
type PageLayout struct {
	Number int // 1-based
	Height float64
	Spans  []Span
}

// Glyph is a single positioned character as reported by the PDF content
// stream. Y is the PDF baseline, measured from the bottom of the page.
type Glyph struct {
	Text     string
	FontName string
	FontSize float64
	X        float64
	Y        float64
	Width    float64
}

const (
	defaultPageHeight = 792.0 // US Letter
	wordGapRatio      = 0.3
	baselineTolerance = 0.5
)

// PDFLayoutReader extracts positioned spans from PDF files.
type PDFLayoutReader struct {
	Log *slog.Logger
}

// Layout returns the spans of every decodable page. Pages whose content
// stream cannot be decoded are logged and skipped.
func (lr *PDFLayoutReader) Layout(ctx context.Context, path string) ([]PageLayout, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	log := lr.Log
	if log == nil {
		log = slog.Default()
	}

	numPages := reader.NumPage()
	pages := make([]PageLayout, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		glyphs, err := pageGlyphs(page)
		if err != nil {
			log.Warn("skipping undecodable page", "path", path, "page", i, "error", err)
			continue
		}
		height := pageHeight(page.V)
		pages = append(pages, PageLayout{
			Number: i,
			Height: height,
			Spans:  AssembleSpans(glyphs, height),
		})
	}
	return pages, nil
}

func pageGlyphs(page pdflib.Page) (glyphs []Glyph, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()
	content := page.Content()
	glyphs = make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, Glyph{
			Text:     t.S,
			FontName: t.Font,
			FontSize: t.FontSize,
			X:        t.X,
			Y:        t.Y,
			Width:    t.W,
		})
	}
	return glyphs, nil
}

// pageHeight reads the MediaBox, which may be inherited from the page tree.
func pageHeight(v pdflib.Value) float64 {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if h > 0 {
				return h
			}
		}
		v = v.Key("Parent")
	}
	return defaultPageHeight
}

// AssembleSpans merges glyphs in content-stream order into spans. A new span
// starts whenever the font, size or baseline changes, or the pen moves back
// to the left. A space is inserted where the horizontal gap between glyphs
// exceeds a fraction of the font size.
func AssembleSpans(glyphs []Glyph, pageHeight float64) []Span {
	var spans []Span
	var cur *Span
	var sb strings.Builder
	var baseline, penX float64

	closeSpan := func() {
		if cur == nil {
			return
		}
		cur.Text = sb.String()
		if strings.TrimSpace(cur.Text) != "" {
			spans = append(spans, *cur)
		}
		cur = nil
		sb.Reset()
	}

	for _, g := range glyphs {
		if g.Text == "" {
			continue
		}
		sameRun := cur != nil &&
			g.FontName == cur.FontName &&
			g.FontSize == cur.FontSize &&
			math.Abs(g.Y-baseline) <= baselineTolerance &&
			g.X >= penX-g.FontSize
		if !sameRun {
			closeSpan()
			cur = &Span{
				FontName: g.FontName,
				FontSize: g.FontSize,
				X:        g.X,
				Y:        pageHeight - g.Y,
			}
			baseline = g.Y
		} else if g.X-penX > wordGapRatio*g.FontSize && !endsWithSpace(&sb) && g.Text != " " {
			sb.WriteByte(' ')
		}
		sb.WriteString(g.Text)
		penX = g.X + g.Width
		cur.Width = penX - cur.X
	}
	closeSpan()
	return spans
}

// PageLines groups spans that share a baseline (rounded to 0.1) into text
// lines, ordered top to bottom. Spans on one line are ordered left to right.
func PageLines(spans []Span) []string {
	type line struct {
		y     float64
		spans []Span
	}
	var lines []*line
	byKey := map[int64]*line{}
	for _, s := range spans {
		key := int64(math.Round(s.Y * 10))
		l, ok := byKey[key]
		if !ok {
			l = &line{y: float64(key) / 10}
			byKey[key] = l
			lines = append(lines, l)
		}
		l.spans = append(l.spans, s)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].y < lines[j].y })

	out := make([]string, 0, len(lines))
	for _, l := range lines {
		sort.SliceStable(l.spans, func(i, j int) bool { return l.spans[i].X < l.spans[j].X })
		parts := make([]string, len(l.spans))
		for i, s := range l.spans {
			parts[i] = s.Text
		}
		if text := textutil.CollapseSpace(strings.Join(parts, " ")); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func endsWithSpace(sb *strings.Builder) bool {
	s := sb.String()
	return s == "" || strings.HasSuffix(s, " ")
}
