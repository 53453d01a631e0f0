package collection

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidInput marks a collection input file that does not match the
// expected shape.
var ErrInvalidInput = errors.New("invalid collection input")

// Input is the per-collection request: which documents to read and who is
// asking for what.
type Input struct {
	Documents   []InputDocument `json:"documents"`
	Persona     Persona         `json:"persona"`
	JobToBeDone Job             `json:"job_to_be_done"`
}

type InputDocument struct {
	Filename string `json:"filename"`
	Title    string `json:"title,omitempty"`
}

type Persona struct {
	Role string `json:"role"`
}

type Job struct {
	Task string `json:"task"`
}

var inputSchema = map[string]any{
	"type":     "object",
	"required": []any{"documents", "persona", "job_to_be_done"},
	"properties": map[string]any{
		"documents": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"filename"},
				"properties": map[string]any{
					"filename": map[string]any{"type": "string", "minLength": 1},
					"title":    map[string]any{"type": "string"},
				},
			},
		},
		"persona": map[string]any{
			"type":       "object",
			"required":   []any{"role"},
			"properties": map[string]any{"role": map[string]any{"type": "string"}},
		},
		"job_to_be_done": map[string]any{
			"type":       "object",
			"required":   []any{"task"},
			"properties": map[string]any{"task": map[string]any{"type": "string"}},
		},
	},
}

// ParseInput validates raw JSON against the input schema and decodes it.
func ParseInput(data []byte) (*Input, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(inputSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
	}

	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	for _, d := range in.Documents {
		if !localName(d.Filename) {
			return nil, fmt.Errorf("%w: document %q is outside %s", ErrInvalidInput, d.Filename, DocsDir)
		}
	}
	return &in, nil
}

// DocumentPath joins name onto docsDir. Names that are absolute or climb out
// of docsDir are rejected.
func DocumentPath(docsDir, name string) (string, error) {
	if !localName(name) {
		return "", fmt.Errorf("%w: document %q is outside %s", ErrInvalidInput, name, DocsDir)
	}
	return filepath.Join(docsDir, name), nil
}

func localName(name string) bool {
	return filepath.IsLocal(name)
}

// LoadInput reads and validates the input file at path.
func LoadInput(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read collection input: %w", err)
	}
	return ParseInput(data)
}

// Filenames lists the documents in input order.
func (in *Input) Filenames() []string {
	names := make([]string, len(in.Documents))
	for i, d := range in.Documents {
		names[i] = d.Filename
	}
	return names
}
