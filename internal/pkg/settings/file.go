// Package settings loads the attendance-settings document that defines the
// working-hours window.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/workhours"
	"github.com/tidwall/jsonc"
)

// FileSource reads the settings document from a JSON file. Comments and
// trailing commas are allowed.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch implements workhours.SettingsSource.
func (s *FileSource) Fetch(ctx context.Context) (workhours.SettingsDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return workhours.SettingsDocument{}, fmt.Errorf("failed to read settings file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a settings document from JSON or JSONC.
func Parse(data []byte) (workhours.SettingsDocument, error) {
	var doc workhours.SettingsDocument
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return workhours.SettingsDocument{}, fmt.Errorf("failed to parse settings document: %w", err)
	}
	return doc, nil
}
