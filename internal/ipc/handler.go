// Package ipc provides the HTTP API the host collaborators call: the
// capture UI pushes frames, the settings surface edits schedules and
// limits, and the enforcement collaborator polls blocking decisions.
package ipc

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gymgate/engine/internal/access"
	"github.com/gymgate/engine/internal/domain"
	"github.com/gymgate/engine/internal/session"
	"github.com/gymgate/engine/internal/usagesync"
	"github.com/gymgate/engine/internal/wallet"
)

// Handler holds all dependencies for the HTTP handlers.
type Handler struct {
	Sessions    *session.Manager
	Wallet      *wallet.Wallet
	Access      *access.Engine
	Coordinator *usagesync.Coordinator
}

// StartSessionRequest is the body for POST /api/v1/session.
type StartSessionRequest struct {
	Exercise string `json:"exercise"`
}

// FrameRequest is the body for POST /api/v1/session/frame.
type FrameRequest struct {
	Frame   domain.LandmarkFrame `json:"frame"`
	DeltaMs float64              `json:"delta_ms"`
}

// OverrideRequest is the body for POST /api/v1/override.
type OverrideRequest struct {
	App             string  `json:"app"`
	Minutes         float64 `json:"minutes"`
	DurationMinutes float64 `json:"duration_minutes"`
}

// LimitRequest is the body for POST /api/v1/limits.
type LimitRequest struct {
	App          string  `json:"app"`
	LimitMinutes float64 `json:"limit_minutes"`
}

// SyncResponse reports whether a tick applied a batch.
type SyncResponse struct {
	Applied bool `json:"applied"`
}

// APIError is a structured error response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StartSession handles POST /api/v1/session.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	if req.Exercise == "" {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "exercise is required"})
		return
	}

	info, err := h.Sessions.Start(domain.ExerciseType(req.Exercise))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// Frame handles POST /api/v1/session/frame.
func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	var req FrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}

	state, err := h.Sessions.Frame(req.Frame, req.DeltaMs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// EndSession handles POST /api/v1/session/end.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	result, err := h.Sessions.End(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetWallet handles GET /api/v1/wallet.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Wallet.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// ListEntries handles GET /api/v1/wallet/entries.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Wallet.Entries(r.Context(), 100)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetBlocked handles GET /api/v1/blocked?app=X.
func (h *Handler) GetBlocked(w http.ResponseWriter, r *http.Request) {
	app := r.URL.Query().Get("app")
	if app == "" {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "app is required"})
		return
	}

	decision, err := h.Access.Decide(r.Context(), app, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// GrantOverride handles POST /api/v1/override. The wallet is debited
// first; an override that cannot be fully funded is refused without
// spending anything.
func (h *Handler) GrantOverride(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	if req.App == "" {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "app is required"})
		return
	}

	funded, err := h.Wallet.SpendExact(r.Context(), req.Minutes, "override:"+req.App)
	if err != nil {
		writeError(w, err)
		return
	}
	if !funded {
		writeError(w, domain.ErrInsufficientFunds)
		return
	}

	override, err := h.Access.GrantOverride(r.Context(), req.App, req.Minutes, req.DurationMinutes, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, override)
}

// SetLimit handles POST /api/v1/limits.
func (h *Handler) SetLimit(w http.ResponseWriter, r *http.Request) {
	var req LimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	if req.App == "" {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "app is required"})
		return
	}

	if err := h.Access.SetLimit(r.Context(), req.App, req.LimitMinutes); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLimits handles GET /api/v1/limits.
func (h *Handler) ListLimits(w http.ResponseWriter, r *http.Request) {
	limits, err := h.Access.Limits(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if limits == nil {
		limits = []domain.DailyLimit{}
	}
	writeJSON(w, http.StatusOK, limits)
}

// ListSchedules handles GET /api/v1/schedules.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.Access.Schedules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if schedules == nil {
		schedules = []domain.Schedule{}
	}
	writeJSON(w, http.StatusOK, schedules)
}

// PutSchedule handles POST /api/v1/schedules.
func (h *Handler) PutSchedule(w http.ResponseWriter, r *http.Request) {
	var s domain.Schedule
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}

	if err := h.Access.PutSchedule(r.Context(), s); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// DeleteSchedule handles DELETE /api/v1/schedules/{scheduleID}.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scheduleID")
	if err := h.Access.DeleteSchedule(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncTick handles POST /api/v1/sync/tick. With a body the report is
// applied directly (push model); without one the coordinator pulls
// from its configured source.
func (h *Handler) SyncTick(w http.ResponseWriter, r *http.Request) {
	var report domain.UsageReport
	if err := json.NewDecoder(r.Body).Decode(&report); err == nil && report.BatchID != "" {
		applied, err := h.Coordinator.Apply(r.Context(), report)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SyncResponse{Applied: applied})
		return
	}

	applied, err := h.Coordinator.Tick(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{Applied: applied})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if engErr, ok := err.(*domain.EngineError); ok {
		status := http.StatusInternalServerError
		switch engErr.Code {
		case domain.ErrUnknownExercise.Code, domain.ErrScheduleNotFound.Code,
			domain.ErrLimitNotFound.Code, domain.ErrOverrideNotFound.Code,
			domain.ErrNoActiveSession.Code:
			status = http.StatusNotFound
		case domain.ErrSessionActive.Code:
			status = http.StatusConflict
		case domain.ErrInsufficientFunds.Code:
			status = http.StatusPaymentRequired
		case domain.ErrNonPositiveAmount.Code, domain.ErrReportInvalid.Code,
			domain.ErrUsageSourceNotSet.Code:
			status = http.StatusBadRequest
		case domain.ErrScheduleInvalid.Code, domain.ErrScheduleWindowWrap.Code:
			status = http.StatusUnprocessableEntity
		case domain.ErrUsageSourceUnavailable.Code:
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, APIError{Code: engErr.Code, Message: engErr.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, APIError{Code: -1, Message: err.Error()})
}
