// Package classifier assigns heading levels to layout lines using either a
// trained model artifact or font-size rules.
package classifier

import (
	"errors"
	"fmt"
)

// NotHeading is the label a classifier returns for body text.
const NotHeading = "O"

// ErrArtifactLoad marks a model artifact that cannot be read or is
// internally inconsistent.
var ErrArtifactLoad = errors.New("load classifier artifact")

// Field is one named feature value. Values are string, bool, int or float64.
type Field struct {
	Name  string
	Value any
}

// Record is anything that can present itself as ordered feature fields.
type Record interface {
	Fields() []Field
}

// Classifier labels a single feature record.
type Classifier interface {
	Predict(rec Record) (string, error)
}

// Kind selects a classifier implementation.
type Kind string

const (
	KindArtifact Kind = "artifact"
	KindRules    Kind = "rules"
)

// Open builds the classifier selected by kind.
func Open(kind Kind, artifactPath string, bodyFontSize float64) (Classifier, error) {
	switch kind {
	case KindArtifact, "":
		return Load(artifactPath)
	case KindRules:
		return NewRules(bodyFontSize), nil
	default:
		return nil, fmt.Errorf("unknown classifier type %q", kind)
	}
}
