// Package checklist loads the static verification-item catalog from a JSON
// file and seeds it into persistence.
package checklist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
	"github.com/xeipuuv/gojsonschema"
)

// catalogSchema validates catalog files before any item reaches the store.
// Item codes must be unique, but uniqueness is checked in Go since JSON
// Schema cannot express it across array elements.
const catalogSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "code", "requirement", "question", "component_type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "code": {"type": "string", "minLength": 1},
          "requirement": {"type": "string", "minLength": 1},
          "question": {"type": "string", "minLength": 1},
          "component_type": {
            "type": "string",
            "enum": [
              "ambiente_control",
              "evaluacion_riesgos",
              "actividades_control",
              "informacion_comunicacion",
              "supervision"
            ]
          }
        }
      }
    }
  }
}`

type catalogFile struct {
	Items []*models.ChecklistItem `json:"items"`
}

// Load parses and validates a catalog file, returning its items.
func Load(path string) ([]*models.ChecklistItem, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(catalogSchema),
		gojsonschema.NewBytesLoader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate catalog %s: %w", path, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			details = append(details, resultError.String())
		}

		return nil, fmt.Errorf("catalog %s is invalid: %s", path, strings.Join(details, "; "))
	}

	var catalog catalogFile

	err = json.Unmarshal(body, &catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	seen := make(map[string]bool, len(catalog.Items))

	for _, item := range catalog.Items {
		if seen[item.Code] {
			return nil, fmt.Errorf("catalog %s has duplicate item code %s", path, item.Code)
		}

		seen[item.Code] = true
	}

	return catalog.Items, nil
}

// Seed stores every catalog item. Existing items with the same id are
// overwritten, so reseeding an updated catalog is safe.
func Seed(ctx context.Context, p persistence.Persistence, items []*models.ChecklistItem) error {
	for _, item := range items {
		err := p.Checklist().SaveItem(ctx, item)
		if err != nil {
			return fmt.Errorf("failed to seed checklist item %s: %w", item.Code, err)
		}
	}

	return nil
}
