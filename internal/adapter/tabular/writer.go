package tabular

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/couchcryptid/travel-score/internal/domain"
)

// JSONWriter writes resolved results as a pretty-printed JSON array.
type JSONWriter struct {
	path string
}

// NewJSONWriter creates a writer for the output artifact at path.
func NewJSONWriter(path string) *JSONWriter {
	return &JSONWriter{path: path}
}

// Path returns the output artifact path.
func (w *JSONWriter) Path() string {
	return w.path
}

// LoadBatch replaces the output file with results. An empty batch still
// produces a file holding an empty array.
func (w *JSONWriter) LoadBatch(_ context.Context, results []domain.Result) error {
	if results == nil {
		results = []domain.Result{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(w.path, data, 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}
