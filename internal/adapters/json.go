package adapters

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/contentbridge/cms-migration-service/internal/models"
)

// JSONAdapter passes a generic JSON dump through verbatim. It only checks
// that the file is well-formed JSON; shape validation (legacy vs schema.org)
// belongs to the processor.
type JSONAdapter struct{}

// NewJSONAdapter creates the JSON passthrough adapter.
func NewJSONAdapter() *JSONAdapter {
	return &JSONAdapter{}
}

// Name returns the adapter identity.
func (a *JSONAdapter) Name() string { return "json" }

// Convert reads the file as the intermediate document when sourceTag is
// "json"; any other tag is a no-op.
func (a *JSONAdapter) Convert(sourceTag, filePath string) (*models.IntermediateDocument, error) {
	if sourceTag != "json" {
		return nil, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	var doc models.IntermediateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("upload is not valid JSON: %w", err)
	}

	return &doc, nil
}
