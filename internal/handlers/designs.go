package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/stitchpress/api/internal/domain"
	"github.com/stitchpress/api/internal/platform/httpx"
	"github.com/stitchpress/api/internal/services"
)

const maxDesignRequestBody = 128 * 1024

// DesignHandlers exposes design catalog management endpoints.
type DesignHandlers struct {
	designs services.DesignService
}

// NewDesignHandlers constructs a new DesignHandlers instance.
func NewDesignHandlers(designs services.DesignService) *DesignHandlers {
	return &DesignHandlers{designs: designs}
}

// Routes registers the /designs endpoints.
func (h *DesignHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listDesigns)
	r.Post("/", h.createDesign)
	r.Get("/{designID}", h.getDesign)
	r.Put("/{designID}", h.updateDesign)
	r.Delete("/{designID}", h.deleteDesign)
}

type designRequest struct {
	Name          string `json:"name"`
	ImageURL      string `json:"image_url"`
	ThumbnailURL  string `json:"thumbnail_url"`
	PriceModifier string `json:"price_modifier"`
	IsActive      *bool  `json:"is_active"`
}

type designPayload struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ImageURL      string `json:"image_url"`
	ThumbnailURL  string `json:"thumbnail_url,omitempty"`
	PriceModifier string `json:"price_modifier"`
	IsActive      bool   `json:"is_active"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

type designListResponse struct {
	Items []designPayload `json:"items"`
}

func (h *DesignHandlers) listDesigns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.designs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "design service unavailable", http.StatusServiceUnavailable))
		return
	}

	includeInactive := strings.EqualFold(r.URL.Query().Get("include_inactive"), "true")
	designs, err := h.designs.ListDesigns(ctx, includeInactive)
	if err != nil {
		h.writeDesignError(ctx, w, err)
		return
	}

	items := make([]designPayload, 0, len(designs))
	for _, design := range designs {
		items = append(items, buildDesignPayload(design))
	}
	writeJSONResponse(w, http.StatusOK, designListResponse{Items: items})
}

func (h *DesignHandlers) getDesign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.designs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "design service unavailable", http.StatusServiceUnavailable))
		return
	}

	designID := strings.TrimSpace(chi.URLParam(r, "designID"))
	design, err := h.designs.GetDesign(ctx, designID)
	if err != nil {
		h.writeDesignError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildDesignPayload(design))
}

func (h *DesignHandlers) createDesign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.designs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "design service unavailable", http.StatusServiceUnavailable))
		return
	}

	req, modifier, ok := h.parseDesignRequest(ctx, w, r)
	if !ok {
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	design, err := h.designs.CreateDesign(ctx, services.CreateDesignCommand{
		Name:          req.Name,
		ImageURL:      req.ImageURL,
		ThumbnailURL:  req.ThumbnailURL,
		PriceModifier: modifier,
		IsActive:      active,
	})
	if err != nil {
		h.writeDesignError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildDesignPayload(design))
}

func (h *DesignHandlers) updateDesign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.designs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "design service unavailable", http.StatusServiceUnavailable))
		return
	}

	designID := strings.TrimSpace(chi.URLParam(r, "designID"))
	req, modifier, ok := h.parseDesignRequest(ctx, w, r)
	if !ok {
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	design, err := h.designs.UpdateDesign(ctx, services.UpdateDesignCommand{
		DesignID:      designID,
		Name:          req.Name,
		ImageURL:      req.ImageURL,
		ThumbnailURL:  req.ThumbnailURL,
		PriceModifier: modifier,
		IsActive:      active,
	})
	if err != nil {
		h.writeDesignError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildDesignPayload(design))
}

func (h *DesignHandlers) deleteDesign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.designs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "design service unavailable", http.StatusServiceUnavailable))
		return
	}

	designID := strings.TrimSpace(chi.URLParam(r, "designID"))
	if err := h.designs.DeleteDesign(ctx, designID); err != nil {
		h.writeDesignError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DesignHandlers) parseDesignRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) (designRequest, domain.Cents, bool) {
	body, err := readLimitedBody(r, maxDesignRequestBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return designRequest{}, 0, false
	}

	var req designRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return designRequest{}, 0, false
	}

	var modifier domain.Cents
	if strings.TrimSpace(req.PriceModifier) != "" {
		modifier, err = domain.ParseCents(req.PriceModifier)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "price_modifier must be a decimal amount like \"5.00\"", http.StatusBadRequest))
			return designRequest{}, 0, false
		}
	}
	return req, modifier, true
}

func (h *DesignHandlers) writeDesignError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, services.ErrDesignInvalidInput) {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	writeRepositoryError(ctx, w, err, "design")
}

func buildDesignPayload(design domain.Design) designPayload {
	return designPayload{
		ID:            design.ID,
		Name:          design.Name,
		ImageURL:      design.ImageURL,
		ThumbnailURL:  design.ThumbnailURL,
		PriceModifier: design.PriceModifier.String(),
		IsActive:      design.IsActive,
		CreatedAt:     formatTime(design.CreatedAt),
		UpdatedAt:     formatTime(design.UpdatedAt),
	}
}
