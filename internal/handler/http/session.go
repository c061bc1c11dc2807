package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/handler/http/response"
)

// SessionController is the part of the tracking session the control API
// drives.
type SessionController interface {
	Login(ctx context.Context, req tracking.LoginRequest) (tracking.SessionStatus, error)
	Logout(ctx context.Context) error
	Start(ctx context.Context) error
	Suspend(ctx context.Context, reason string) error
	Snapshot(ctx context.Context) tracking.SessionStatus
	RequestPermissions(ctx context.Context) (tracking.PermissionState, error)
}

// NavigationReadiness gates when permission screens may be shown.
type NavigationReadiness interface {
	MarkReady(ctx context.Context) int
	MarkNotReady()
}

type ForegroundSetter interface {
	SetForeground(foreground bool)
}

type SessionHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Start(w http.ResponseWriter, r *http.Request)
	Stop(w http.ResponseWriter, r *http.Request)
	Status(w http.ResponseWriter, r *http.Request)
	NavigationReady(w http.ResponseWriter, r *http.Request)
	NavigationNotReady(w http.ResponseWriter, r *http.Request)
	SetAppState(w http.ResponseWriter, r *http.Request)
	RequestPermissions(w http.ResponseWriter, r *http.Request)
}

type sessionHandlerImpl struct {
	session    SessionController
	navigation NavigationReadiness
	appState   ForegroundSetter
}

func NewSessionHandler(session SessionController, navigation NavigationReadiness, appState ForegroundSetter) SessionHandler {
	return &sessionHandlerImpl{
		session:    session,
		navigation: navigation,
		appState:   appState,
	}
}

// Login implements SessionHandler.
func (h *sessionHandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	var req tracking.LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Login decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	status, err := h.session.Login(r.Context(), req)
	if err != nil {
		slog.Error("Login service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Logged in", status)
}

// Logout implements SessionHandler.
func (h *sessionHandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(r.Context()); err != nil {
		slog.Error("Logout service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Logged out", h.session.Snapshot(r.Context()))
}

// Start implements SessionHandler.
func (h *sessionHandlerImpl) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Start(r.Context()); err != nil {
		slog.Info("Start refused", "reason", err)
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Tracking started", h.session.Snapshot(r.Context()))
}

// Stop implements SessionHandler. An explicit stop suspends the session so
// the supervisor does not restart it until the next start or login.
func (h *sessionHandlerImpl) Stop(w http.ResponseWriter, r *http.Request) {
	req := tracking.StopRequest{Reason: "user request"}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if req.Reason == "" {
		req.Reason = "user request"
	}

	if err := h.session.Suspend(r.Context(), req.Reason); err != nil {
		slog.Error("Stop service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Tracking stopped", h.session.Snapshot(r.Context()))
}

// Status implements SessionHandler.
func (h *sessionHandlerImpl) Status(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.session.Snapshot(r.Context()))
}

// NavigationReady implements SessionHandler.
func (h *sessionHandlerImpl) NavigationReady(w http.ResponseWriter, r *http.Request) {
	shown := h.navigation.MarkReady(r.Context())
	response.Success(w, map[string]int{"shown": shown})
}

// NavigationNotReady implements SessionHandler.
func (h *sessionHandlerImpl) NavigationNotReady(w http.ResponseWriter, r *http.Request) {
	h.navigation.MarkNotReady()
	response.SuccessWithMessage(w, "Navigation marked not ready", nil)
}

// SetAppState implements SessionHandler.
func (h *sessionHandlerImpl) SetAppState(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Foreground *bool `json:"foreground"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if req.Foreground == nil {
		response.ValidationError(w, map[string]string{"foreground": "foreground is required"})
		return
	}

	h.appState.SetForeground(*req.Foreground)
	response.Success(w, map[string]bool{"foreground": *req.Foreground})
}

// RequestPermissions implements SessionHandler.
func (h *sessionHandlerImpl) RequestPermissions(w http.ResponseWriter, r *http.Request) {
	state, err := h.session.RequestPermissions(r.Context())
	if err != nil {
		slog.Error("Permission request error", "error", err)
		response.HandleError(w, err)
		return
	}

	if !state.AllGranted() {
		response.SuccessWithMessage(w, "Location permission still missing", state)
		return
	}
	response.SuccessWithMessage(w, "Location permission granted", state)
}
