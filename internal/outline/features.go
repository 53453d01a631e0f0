package outline

import (
	"strings"

	"github.com/dgallion1/docsift/internal/classifier"
	"github.com/dgallion1/docsift/internal/textutil"
)

// FeatureRecord is the fixed-schema view of a line handed to the classifier.
type FeatureRecord struct {
	Text           string
	FontSize       float64
	IsBold         bool
	YPosition      float64
	WordCount      int
	CharCount      int
	EndsWithColon  bool
	IsAllUppercase bool
}

// ExtractFeatures derives the classifier inputs from a line.
func ExtractFeatures(l LayoutLine) FeatureRecord {
	return FeatureRecord{
		Text:           l.Text,
		FontSize:       l.FontSize,
		IsBold:         l.IsBold,
		YPosition:      l.Y,
		WordCount:      len(strings.Fields(l.Text)),
		CharCount:      textutil.RuneCount(l.Text),
		EndsWithColon:  strings.HasSuffix(strings.TrimSpace(l.Text), ":"),
		IsAllUppercase: textutil.IsUpper(l.Text),
	}
}

// Fields lists the record under the column names the trained artifacts use.
func (f FeatureRecord) Fields() []classifier.Field {
	return []classifier.Field{
		{Name: "text", Value: f.Text},
		{Name: "font_size", Value: f.FontSize},
		{Name: "is_bold", Value: f.IsBold},
		{Name: "y_position", Value: f.YPosition},
		{Name: "word_count", Value: f.WordCount},
		{Name: "char_count", Value: f.CharCount},
		{Name: "ends_colon", Value: f.EndsWithColon},
		{Name: "all_upper", Value: f.IsAllUppercase},
	}
}
