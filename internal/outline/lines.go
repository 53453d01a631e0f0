package outline

import (
	"math"
	"strings"

	"github.com/dgallion1/docsift/internal/parser"
	"github.com/dgallion1/docsift/internal/textutil"
)

// minLineRunes is the shortest merged line text kept for classification.
const minLineRunes = 5

// LayoutLine is every span on one page that shares a rounded baseline.
type LayoutLine struct {
	Text     string
	FontSize float64
	IsBold   bool
	Y        float64 // rounded to 0.1
	Page     int
}

// RoundY rounds a vertical position to one decimal place.
func RoundY(y float64) float64 {
	return math.Round(y*10) / 10
}

// GroupLines merges the spans of a page into logical lines keyed by rounded
// y. Lines keep the order in which their first span was encountered.
func GroupLines(page parser.PageLayout) []LayoutLine {
	type group struct {
		parts []string
		line  LayoutLine
	}
	var groups []*group
	byKey := map[int64]*group{}

	for _, s := range page.Spans {
		y := RoundY(s.Y)
		key := int64(math.Round(y * 10))
		g, ok := byKey[key]
		if !ok {
			g = &group{line: LayoutLine{Y: y, Page: page.Number, FontSize: s.FontSize}}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.parts = append(g.parts, s.Text)
		g.line.FontSize = max(g.line.FontSize, s.FontSize)
		if strings.Contains(strings.ToLower(s.FontName), "bold") {
			g.line.IsBold = true
		}
	}

	lines := make([]LayoutLine, 0, len(groups))
	for _, g := range groups {
		g.line.Text = textutil.CollapseSpace(strings.Join(g.parts, " "))
		if textutil.RuneCount(g.line.Text) < minLineRunes {
			continue
		}
		lines = append(lines, g.line)
	}
	return lines
}
