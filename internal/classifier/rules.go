package classifier

import (
	"strings"

	"github.com/dgallion1/docsift/internal/textutil"
)

const defaultBodyFontSize = 12.0

// Rules labels lines by how much larger than body text they are set.
// It needs no artifact and serves as a fallback when none was trained.
type Rules struct {
	BodyFontSize float64
}

func NewRules(bodyFontSize float64) *Rules {
	if bodyFontSize <= 0 {
		bodyFontSize = defaultBodyFontSize
	}
	return &Rules{BodyFontSize: bodyFontSize}
}

func (c *Rules) Predict(rec Record) (string, error) {
	var (
		text     string
		fontSize float64
	)
	for _, f := range rec.Fields() {
		switch f.Name {
		case "text":
			text, _ = f.Value.(string)
		case "font_size":
			switch v := f.Value.(type) {
			case float64:
				fontSize = v
			case int:
				fontSize = float64(v)
			}
		}
	}

	text = strings.TrimSpace(text)
	if text == "" || fontSize < c.BodyFontSize+2 {
		return NotHeading, nil
	}
	if !textutil.IsTitle(text) && !textutil.IsUpper(text) {
		return NotHeading, nil
	}
	if len(strings.Fields(text)) > 12 {
		return NotHeading, nil
	}

	switch {
	case fontSize > c.BodyFontSize+5:
		return "H1", nil
	case fontSize > c.BodyFontSize+3:
		return "H2", nil
	default:
		return "H3", nil
	}
}
