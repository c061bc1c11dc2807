package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

type LocationHandler interface {
	Upload(w http.ResponseWriter, r *http.Request)
	ListMine(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type locationHandlerImpl struct {
	collectorService tracking.CollectorService
}

func NewLocationHandler(collectorService tracking.CollectorService) LocationHandler {
	return &locationHandlerImpl{
		collectorService: collectorService,
	}
}

// getEmailFromContext extracts the device token's email claim
func getEmailFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if email, ok := claims["email"].(string); ok {
		return email
	}
	return ""
}

// Upload implements LocationHandler.
func (h *locationHandlerImpl) Upload(w http.ResponseWriter, r *http.Request) {
	var req tracking.UploadSampleRequest

	// 1. Decode JSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Upload decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	// Call service
	result, created, err := h.collectorService.Record(r.Context(), getEmailFromContext(r), req)
	if err != nil {
		slog.Error("Upload service error", "error", err, "sample_id", req.ID)
		response.HandleError(w, err)
		return
	}

	if !created {
		response.SuccessWithMessage(w, "Location sample already recorded", result)
		return
	}
	response.Created(w, "Location sample recorded", result)
}

// ListMine implements LocationHandler.
func (h *locationHandlerImpl) ListMine(w http.ResponseWriter, r *http.Request) {
	var filter tracking.SampleFilter

	if date := r.URL.Query().Get("date"); date != "" {
		filter.Date = &date
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil {
			response.BadRequest(w, "limit must be a number", nil)
			return
		}
		filter.Limit = limit
	}

	samples, err := h.collectorService.ListMine(r.Context(), getEmailFromContext(r), filter)
	if err != nil {
		slog.Error("ListMine service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, samples)
}

// Stream handles the SSE feed of the operator's newly recorded samples.
// Browsers cannot set headers on an EventSource, so the router also accepts
// the token in the jwt query parameter.
func (h *locationHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	email := getEmailFromContext(r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.collectorService.Subscribe(r.Context(), email)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
