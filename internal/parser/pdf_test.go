package parser_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/docsift/internal/outline"
	"github.com/dgallion1/docsift/internal/parser"
	"github.com/dgallion1/docsift/internal/sections"
)

// Headings and body lines in one BT block, moved with Td the way pdflatex
// and most report generators lay out text.
const tdPage = `BT
/F1 16 Tf 72 720 Td (INTRODUCTION) Tj
/F2 11 Tf 0 -20 Td (Body text line one here.) Tj
0 -14 Td (Another body line follows.) Tj
/F1 14 Tf 0 -24 Td (Methods And Results) Tj
/F2 11 Tf 0 -18 Td (More body text.) Tj
ET`

const bodyOnlyPage = `BT
/F2 11 Tf 72 720 Td (Body text only on this page.) Tj
ET`

// writePDF builds a minimal PDF with one page per content stream and a
// computed cross-reference table.
func writePDF(t *testing.T, contents ...string) string {
	t.Helper()
	var objs []string
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(contents))
	for i := range contents {
		kids[i] = fmt.Sprintf("%d 0 R", 5+2*i)
	}
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(contents)))
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold /Encoding /WinAnsiEncoding >>")
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, c := range contents {
		objs = append(objs, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R /F2 4 0 R >> >> /Contents %d 0 R >>", 6+2*i))
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(c), c))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)

	path := filepath.Join(t.TempDir(), "fixture.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFilePages_PDFKeepsLineBreaks(t *testing.T) {
	path := writePDF(t, tdPage, bodyOnlyPage)

	pages, count, err := parser.FilePages{}.Pages(path)
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 pages, got %d", count)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 page entries, got %d", len(pages))
	}

	want := "INTRODUCTION\nBody text line one here.\nAnother body line follows.\nMethods And Results\nMore body text."
	if pages[0].Number != 1 || pages[0].Text != want {
		t.Errorf("unexpected first page:\nexpected %q\ngot      %q", want, pages[0].Text)
	}
	if pages[1].Number != 2 || pages[1].Text != "Body text only on this page." {
		t.Errorf("unexpected second page: %+v", pages[1])
	}
}

func TestPDFParser_NoSyntheticPageTitles(t *testing.T) {
	f, err := os.Open(writePDF(t, bodyOnlyPage))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tree, err := (&parser.PDFParser{}).Parse(f, "fixture.pdf")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tree.Title != "fixture" {
		t.Errorf("expected tree title %q, got %q", "fixture", tree.Title)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 page node, got %d", len(tree.Children))
	}
	if n := tree.Children[0]; n.Title != "" || n.Page != 1 {
		t.Errorf("expected untitled node on page 1, got title=%q page=%d", n.Title, n.Page)
	}
}

func TestHarvest_FromPDF(t *testing.T) {
	pages, _, err := parser.FilePages{}.Pages(writePDF(t, tdPage, bodyOnlyPage))
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	secs := sections.Harvest(pages, "fixture.pdf", "")
	if len(secs) != 2 {
		t.Fatalf("expected 2 sections, got %d: %+v", len(secs), secs)
	}
	if secs[0].Text != "INTRODUCTION" || secs[0].PageNumber != 1 {
		t.Errorf("unexpected first section: %+v", secs[0])
	}
	if secs[0].Context != "Body text line one here. Another body line follows. Methods And Results More body text." {
		t.Errorf("unexpected first context: %q", secs[0].Context)
	}
	if secs[1].Text != "Methods And Results" {
		t.Errorf("unexpected second section: %+v", secs[1])
	}
}

func TestHarvest_BodyOnlyPDFPage(t *testing.T) {
	pages, _, err := parser.FilePages{}.Pages(writePDF(t, bodyOnlyPage))
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	if secs := sections.Harvest(pages, "fixture.pdf", ""); len(secs) != 0 {
		t.Errorf("expected no sections, got %+v", secs)
	}
}

func TestPDFLayoutReader_GroupsLines(t *testing.T) {
	layout, err := (&parser.PDFLayoutReader{}).Layout(context.Background(), writePDF(t, tdPage))
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(layout) != 1 {
		t.Fatalf("expected 1 page, got %d", len(layout))
	}
	if layout[0].Number != 1 || layout[0].Height != 792 {
		t.Errorf("unexpected page: number=%d height=%f", layout[0].Number, layout[0].Height)
	}

	lines := outline.GroupLines(layout[0])
	wantText := []string{"INTRODUCTION", "Body text line one here.", "Another body line follows.", "Methods And Results", "More body text."}
	wantY := []float64{72, 92, 106, 130, 148}
	if len(lines) != len(wantText) {
		t.Fatalf("expected %d lines, got %d: %+v", len(wantText), len(lines), lines)
	}
	for i, l := range lines {
		if l.Text != wantText[i] {
			t.Errorf("line %d: expected %q, got %q", i, wantText[i], l.Text)
		}
		if l.Y != wantY[i] {
			t.Errorf("line %d: expected y %v, got %v", i, wantY[i], l.Y)
		}
	}
	if lines[0].FontSize != 16 || !lines[0].IsBold {
		t.Errorf("expected bold 16pt heading, got %+v", lines[0])
	}
	if lines[1].IsBold {
		t.Errorf("expected regular body line, got %+v", lines[1])
	}
}
