package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/workhours"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/handler/http/response"
)

type SettingsHandler interface {
	Get(w http.ResponseWriter, r *http.Request)
}

type settingsHandlerImpl struct {
	source workhours.SettingsSource
}

// NewSettingsHandler serves the attendance-settings document that agents
// poll for their working-hours window.
func NewSettingsHandler(source workhours.SettingsSource) SettingsHandler {
	return &settingsHandlerImpl{
		source: source,
	}
}

// Get implements SettingsHandler.
func (h *settingsHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.source.Fetch(r.Context())
	if err != nil {
		slog.Error("Settings fetch error", "error", err)
		response.HandleError(w, workhours.ErrSettingsFetch)
		return
	}

	if err := doc.Validate(); err != nil {
		slog.Error("Settings document invalid", "error", err)
		response.HandleError(w, workhours.ErrScheduleMissing)
		return
	}

	response.Success(w, doc)
}
