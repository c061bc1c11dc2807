package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/workhours"
)

// HTTPSource fetches the settings document from the collector. The body may
// be the bare document or wrapped in the collector's response envelope.
type HTTPSource struct {
	client *http.Client
	url    string
}

func NewHTTPSource(client *http.Client, url string) *HTTPSource {
	return &HTTPSource{client: client, url: url}
}

// Fetch implements workhours.SettingsSource.
func (s *HTTPSource) Fetch(ctx context.Context) (workhours.SettingsDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return workhours.SettingsDocument{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return workhours.SettingsDocument{}, fmt.Errorf("failed to fetch settings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return workhours.SettingsDocument{}, fmt.Errorf("settings endpoint returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return workhours.SettingsDocument{}, fmt.Errorf("failed to read settings: %w", err)
	}

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err == nil && env.Success && len(env.Data) > 0 {
		data = env.Data
	}
	return Parse(data)
}
