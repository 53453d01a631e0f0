package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
)

// Model types understood by Artifact.
const (
	ModelDecisionTree       = "decision_tree"
	ModelRandomForest       = "random_forest"
	ModelLogisticRegression = "logistic_regression"
)

// Artifact is the serialized form of a trained heading classifier: the
// training-time column order, the label vocabulary and the fitted model.
type Artifact struct {
	FeatureColumns  []string  `json:"feature_columns" validate:"required,min=1,dive,required"`
	Labels          []string  `json:"labels" validate:"required,min=1"`
	NotHeadingLabel string    `json:"not_heading_label,omitempty"`
	Model           ModelSpec `json:"model"`
}

// ModelSpec holds the fitted parameters. Trees use scikit-learn's flattened
// node arrays; a leaf has children_left == -1.
type ModelSpec struct {
	Type         string      `json:"type" validate:"required,oneof=decision_tree random_forest logistic_regression"`
	Trees        []Tree      `json:"trees,omitempty" validate:"required_unless=Type logistic_regression,dive"`
	Coefficients [][]float64 `json:"coefficients,omitempty" validate:"required_if=Type logistic_regression"`
	Intercepts   []float64   `json:"intercepts,omitempty"`
}

// Tree is one fitted decision tree.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left" validate:"required,min=1"`
	ChildrenRight []int       `json:"children_right" validate:"required,min=1"`
	Feature       []int       `json:"feature" validate:"required,min=1"`
	Threshold     []float64   `json:"threshold" validate:"required,min=1"`
	Value         [][]float64 `json:"value" validate:"required,min=1"`
}

// Model is a loaded artifact ready for prediction.
type Model struct {
	art Artifact
}

var artifactValidator = validator.New()

// Load reads a JSON artifact from path. Any failure wraps ErrArtifactLoad.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactLoad, err)
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrArtifactLoad, path, err)
	}
	return NewModel(art)
}

// NewModel checks an in-memory artifact for consistency.
func NewModel(art Artifact) (*Model, error) {
	if err := artifactValidator.Struct(art); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactLoad, err)
	}
	if art.NotHeadingLabel == "" {
		art.NotHeadingLabel = NotHeading
	}
	nFeat, nClass := len(art.FeatureColumns), len(art.Labels)

	for ti, t := range art.Model.Trees {
		n := len(t.ChildrenLeft)
		if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
			return nil, fmt.Errorf("%w: tree %d has ragged node arrays", ErrArtifactLoad, ti)
		}
		for i := range n {
			l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
			if l == -1 {
				if len(t.Value[i]) != nClass {
					return nil, fmt.Errorf("%w: tree %d leaf %d has %d class values, want %d", ErrArtifactLoad, ti, i, len(t.Value[i]), nClass)
				}
				continue
			}
			// scikit-learn numbers children after their parent.
			if l <= i || r <= i || l >= n || r >= n {
				return nil, fmt.Errorf("%w: tree %d node %d has invalid children", ErrArtifactLoad, ti, i)
			}
			if t.Feature[i] < 0 || t.Feature[i] >= nFeat {
				return nil, fmt.Errorf("%w: tree %d node %d splits on unknown feature %d", ErrArtifactLoad, ti, i, t.Feature[i])
			}
		}
	}
	if art.Model.Type == ModelDecisionTree && len(art.Model.Trees) != 1 {
		return nil, fmt.Errorf("%w: decision_tree needs exactly one tree, got %d", ErrArtifactLoad, len(art.Model.Trees))
	}

	if art.Model.Type == ModelLogisticRegression {
		coef := art.Model.Coefficients
		binary := len(coef) == 1 && nClass == 2
		if !binary && len(coef) != nClass {
			return nil, fmt.Errorf("%w: %d coefficient rows for %d labels", ErrArtifactLoad, len(coef), nClass)
		}
		for i, row := range coef {
			if len(row) != nFeat {
				return nil, fmt.Errorf("%w: coefficient row %d has %d weights, want %d", ErrArtifactLoad, i, len(row), nFeat)
			}
		}
		if len(art.Model.Intercepts) != len(coef) {
			return nil, fmt.Errorf("%w: %d intercepts for %d coefficient rows", ErrArtifactLoad, len(art.Model.Intercepts), len(coef))
		}
	}

	return &Model{art: art}, nil
}

// Columns returns the training-time column order.
func (m *Model) Columns() []string { return m.art.FeatureColumns }

// NotHeadingLabel is the label this model uses for body text.
func (m *Model) NotHeadingLabel() string { return m.art.NotHeadingLabel }

// Predict encodes rec, aligns it to the training columns and decodes the
// winning class back into its label.
func (m *Model) Predict(rec Record) (string, error) {
	row, err := Encode(rec.Fields())
	if err != nil {
		return "", err
	}
	x := Align(row, m.art.FeatureColumns)

	idx := m.classIndex(x)
	if idx < 0 || idx >= len(m.art.Labels) {
		return "", fmt.Errorf("predicted class %d outside label range", idx)
	}
	label := m.art.Labels[idx]
	if label == m.art.NotHeadingLabel {
		return NotHeading, nil
	}
	return label, nil
}

func (m *Model) classIndex(x []float64) int {
	switch m.art.Model.Type {
	case ModelLogisticRegression:
		return m.logistic(x)
	default:
		probs := make([]float64, len(m.art.Labels))
		for _, t := range m.art.Model.Trees {
			leaf := t.Value[t.leaf(x)]
			var sum float64
			for _, v := range leaf {
				sum += v
			}
			if sum == 0 {
				continue
			}
			for i, v := range leaf {
				probs[i] += v / sum
			}
		}
		return argmax(probs)
	}
}

func (t Tree) leaf(x []float64) int {
	node := 0
	for t.ChildrenLeft[node] != -1 {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return node
}

func (m *Model) logistic(x []float64) int {
	coef := m.art.Model.Coefficients
	scores := make([]float64, len(coef))
	for i, row := range coef {
		s := m.art.Model.Intercepts[i]
		for j, w := range row {
			s += w * x[j]
		}
		scores[i] = s
	}
	if len(coef) == 1 {
		if scores[0] > 0 {
			return 1
		}
		return 0
	}
	return argmax(scores)
}

// argmax returns the first index of the largest value.
func argmax(v []float64) int {
	best, bestVal := 0, math.Inf(-1)
	for i, x := range v {
		if x > bestVal {
			best, bestVal = i, x
		}
	}
	return best
}
