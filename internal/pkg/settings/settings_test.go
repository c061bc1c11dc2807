package settings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `{
	// Campus schedule
	"workingHours": {
		"monday": {"isWorking": true, "startTime": "9:00", "endTime": "17:00", "relaxationMinutes": 15},
		"sunday": {"isWorking": false},
	},
	"holidays": [
		{"date": "2026-12-25", "description": "Christmas"},
	],
}`

func TestFileSource_ReadsJSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(sampleDocument), 0o644))

	doc, err := NewFileSource(path).Fetch(context.Background())
	require.NoError(t, err)

	assert.True(t, doc.WorkingHours["monday"].IsWorking)
	assert.Equal(t, 15, doc.WorkingHours["monday"].RelaxationMinutes)
	require.Len(t, doc.Holidays, 1)
	assert.Equal(t, "Christmas", doc.Holidays[0].Description)

	window := doc.ToWindow(time.Now())
	assert.Equal(t, "09:00", window.Days[time.Monday].StartTime)
}

func TestFileSource_Missing(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.json")).Fetch(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"bare document", http.StatusOK, `{"workingHours":{"monday":{"isWorking":true,"startTime":"09:00","endTime":"17:00"}}}`, false},
		{"enveloped", http.StatusOK, `{"success":true,"message":"ok","data":{"workingHours":{"monday":{"isWorking":true,"startTime":"09:00","endTime":"17:00"}}}}`, false},
		{"server error", http.StatusInternalServerError, `{}`, true},
		{"garbage", http.StatusOK, `not json`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			doc, err := NewHTTPSource(srv.Client(), srv.URL).Fetch(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, doc.WorkingHours["monday"].IsWorking)
		})
	}
}
