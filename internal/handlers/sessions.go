package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stitchpress/api/internal/platform/httpx"
	"github.com/stitchpress/api/internal/services"
)

const maxSessionRequestBody = 32 * 1024

// SessionHandlers exposes the shopper selection flow endpoints.
type SessionHandlers struct {
	engine services.SelectionEngine
}

// NewSessionHandlers constructs a new SessionHandlers instance.
func NewSessionHandlers(engine services.SelectionEngine) *SessionHandlers {
	return &SessionHandlers{engine: engine}
}

// Routes registers the /sessions endpoints.
func (h *SessionHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.startSession)
	r.Get("/{sessionID}", h.getSession)
	r.Delete("/{sessionID}", h.abandonSession)
	r.Put("/{sessionID}/design", h.selectAxis(axisDesign))
	r.Put("/{sessionID}/color", h.selectAxis(axisColor))
	r.Put("/{sessionID}/size", h.selectAxis(axisSize))
	r.Post("/{sessionID}/finalize", h.finalizeSession)
}

type selectionAxis int

const (
	axisDesign selectionAxis = iota
	axisColor
	axisSize
)

type startSessionRequest struct {
	GarmentID string `json:"garment_id"`
}

type selectRequest struct {
	ID string `json:"id"`
}

type finalizeRequest struct {
	VariantID string `json:"variant_id"`
}

type sessionPayload struct {
	SessionID string  `json:"session_id"`
	GarmentID string  `json:"garment_id"`
	DesignID  string  `json:"design_id,omitempty"`
	ColorID   string  `json:"color_id,omitempty"`
	SizeID    string  `json:"size_id,omitempty"`
	Total     *string `json:"total,omitempty"`
	Currency  string  `json:"currency,omitempty"`
	Complete  bool    `json:"complete"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

type finalizeResponse struct {
	Customization customizationPayload `json:"customization"`
	HandoffSent   bool                 `json:"handoff_sent"`
}

func (h *SessionHandlers) startSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.engine == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "selection engine unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxSessionRequestBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req startSessionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	state, err := h.engine.StartSession(ctx, req.GarmentID)
	if err != nil {
		h.writeSessionError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildSessionPayload(state))
}

func (h *SessionHandlers) getSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.engine == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "selection engine unavailable", http.StatusServiceUnavailable))
		return
	}

	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	state, err := h.engine.GetSession(ctx, sessionID)
	if err != nil {
		h.writeSessionError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildSessionPayload(state))
}

func (h *SessionHandlers) abandonSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.engine == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "selection engine unavailable", http.StatusServiceUnavailable))
		return
	}

	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if err := h.engine.Abandon(ctx, sessionID); err != nil {
		h.writeSessionError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandlers) selectAxis(axis selectionAxis) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if h.engine == nil {
			httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "selection engine unavailable", http.StatusServiceUnavailable))
			return
		}

		sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
		body, err := readLimitedBody(r, maxSessionRequestBody)
		if err != nil {
			writeBodyError(ctx, w, err)
			return
		}
		var req selectRequest
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
			return
		}

		cmd := services.SelectCommand{SessionID: sessionID}
		switch axis {
		case axisDesign:
			cmd.DesignID = req.ID
		case axisColor:
			cmd.ColorID = req.ID
		case axisSize:
			cmd.SizeID = req.ID
		}

		state, err := h.engine.Select(ctx, cmd)
		if err != nil {
			h.writeSessionError(ctx, w, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, buildSessionPayload(state))
	}
}

func (h *SessionHandlers) finalizeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.engine == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "selection engine unavailable", http.StatusServiceUnavailable))
		return
	}

	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	body, err := readLimitedBody(r, maxSessionRequestBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req finalizeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	result, err := h.engine.Finalize(ctx, services.FinalizeCommand{
		SessionID: sessionID,
		VariantID: req.VariantID,
	})
	if err != nil {
		h.writeSessionError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, finalizeResponse{
		Customization: buildCustomizationPayload(result.Customization),
		HandoffSent:   result.HandoffSent,
	})
}

func (h *SessionHandlers) writeSessionError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrSelectionSessionNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("session_not_found", "session not found or expired", http.StatusNotFound))
	case errors.Is(err, services.ErrSelectionIncomplete):
		httpx.WriteError(ctx, w, httpx.NewError("selection_incomplete", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrSelectionInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCustomizationInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		writeRepositoryError(ctx, w, err, "session")
	}
}

func buildSessionPayload(state services.SelectionState) sessionPayload {
	payload := sessionPayload{
		SessionID: state.SessionID,
		GarmentID: state.GarmentID,
		DesignID:  state.DesignID,
		ColorID:   state.ColorID,
		SizeID:    state.SizeID,
		Currency:  state.Currency,
		Complete:  state.Complete,
		UpdatedAt: formatTime(state.UpdatedAt),
	}
	if state.Total != nil {
		total := state.Total.String()
		payload.Total = &total
	}
	return payload
}
