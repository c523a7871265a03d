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

const maxGarmentRequestBody = 256 * 1024

// GarmentHandlers exposes garment catalog management endpoints, including
// the garment side of design attachments.
type GarmentHandlers struct {
	catalog services.CatalogService
	designs services.DesignService
}

// NewGarmentHandlers constructs a new GarmentHandlers instance.
func NewGarmentHandlers(catalog services.CatalogService, designs services.DesignService) *GarmentHandlers {
	return &GarmentHandlers{catalog: catalog, designs: designs}
}

// Routes registers the /garments endpoints.
func (h *GarmentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listGarments)
	r.Post("/", h.createGarment)
	r.Get("/{garmentID}", h.getGarment)
	r.Put("/{garmentID}", h.updateGarment)
	r.Delete("/{garmentID}", h.deleteGarment)
	r.Post("/{garmentID}/colors", h.addColor)
	r.Delete("/{garmentID}/colors/{colorID}", h.removeColor)
	r.Post("/{garmentID}/sizes", h.addSize)
	r.Delete("/{garmentID}/sizes/{sizeID}", h.removeSize)
	r.Post("/{garmentID}/designs/{designID}", h.attachDesign)
	r.Delete("/{garmentID}/designs/{designID}", h.detachDesign)
}

type attachRequest struct {
	DisplayOrder *int `json:"display_order"`
}

type colorRequest struct {
	Name    string `json:"name"`
	HexCode string `json:"hex_code"`
}

type sizeRequest struct {
	Label string `json:"label"`
}

type garmentRequest struct {
	Name        string         `json:"name"`
	SKU         string         `json:"sku"`
	BasePrice   string         `json:"base_price"`
	Description string         `json:"description"`
	Colors      []colorRequest `json:"colors"`
	Sizes       []sizeRequest  `json:"sizes"`
}

type colorPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	HexCode string `json:"hex_code,omitempty"`
}

type sizePayload struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type garmentPayload struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	SKU         string         `json:"sku"`
	BasePrice   string         `json:"base_price"`
	Description string         `json:"description,omitempty"`
	Colors      []colorPayload `json:"colors"`
	Sizes       []sizePayload  `json:"sizes"`
	CreatedAt   string         `json:"created_at,omitempty"`
	UpdatedAt   string         `json:"updated_at,omitempty"`
}

type attachedDesignPayload struct {
	designPayload
	DisplayOrder *int `json:"display_order,omitempty"`
}

type garmentDetailPayload struct {
	garmentPayload
	Designs []attachedDesignPayload `json:"designs"`
}

type garmentListResponse struct {
	Items []garmentDetailPayload `json:"items"`
}

func (h *GarmentHandlers) listGarments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	garments, err := h.catalog.ListGarments(ctx)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	items := make([]garmentDetailPayload, 0, len(garments))
	for _, detail := range garments {
		items = append(items, buildGarmentDetailPayload(detail))
	}
	writeJSONResponse(w, http.StatusOK, garmentListResponse{Items: items})
}

func (h *GarmentHandlers) getGarment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	garmentID := strings.TrimSpace(chi.URLParam(r, "garmentID"))
	detail, err := h.catalog.GetGarment(ctx, garmentID)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildGarmentDetailPayload(detail))
}

func (h *GarmentHandlers) createGarment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	cmd, ok := h.parseGarmentCommand(ctx, w, r)
	if !ok {
		return
	}

	garment, err := h.catalog.CreateGarment(ctx, services.CreateGarmentCommand{
		Name:        cmd.name,
		SKU:         cmd.sku,
		BasePrice:   cmd.basePrice,
		Description: cmd.description,
		Colors:      cmd.colors,
		Sizes:       cmd.sizes,
	})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildGarmentPayload(garment))
}

func (h *GarmentHandlers) updateGarment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	garmentID := strings.TrimSpace(chi.URLParam(r, "garmentID"))
	cmd, ok := h.parseGarmentCommand(ctx, w, r)
	if !ok {
		return
	}

	garment, err := h.catalog.UpdateGarment(ctx, services.UpdateGarmentCommand{
		GarmentID:   garmentID,
		Name:        cmd.name,
		SKU:         cmd.sku,
		BasePrice:   cmd.basePrice,
		Description: cmd.description,
	})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildGarmentPayload(garment))
}

func (h *GarmentHandlers) deleteGarment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	garmentID := strings.TrimSpace(chi.URLParam(r, "garmentID"))
	if err := h.catalog.DeleteGarment(ctx, garmentID); err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GarmentHandlers) addColor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	garmentID := strings.TrimSpace(chi.URLParam(r, "garmentID"))
	body, err := readLimitedBody(r, maxGarmentRequestBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req colorRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	color, err := h.catalog.AddColor(ctx, services.AddColorCommand{
		GarmentID: garmentID,
		Name:      req.Name,
		HexCode:   req.HexCode,
	})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, colorPayload{ID: color.ID, Name: color.Name, HexCode: color.HexCode})
}

func (h *GarmentHandlers) removeColor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	garmentID := strings.TrimSpace(chi.URLParam(r, "garmentID"))
	colorID := strings.TrimSpace(chi.URLParam(r, "colorID"))
	if err := h.catalog.RemoveColor(ctx, garmentID, colorID); err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GarmentHandlers) addSize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	garmentID := strings.TrimSpace(chi.URLParam(r, "garmentID"))
	body, err := readLimitedBody(r, maxGarmentRequestBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req sizeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	size, err := h.catalog.AddSize(ctx, services.AddSizeCommand{GarmentID: garmentID, Label: req.Label})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, sizePayload{ID: size.ID, Label: size.Label})
}

func (h *GarmentHandlers) removeSize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	garmentID := strings.TrimSpace(chi.URLParam(r, "garmentID"))
	sizeID := strings.TrimSpace(chi.URLParam(r, "sizeID"))
	if err := h.catalog.RemoveSize(ctx, garmentID, sizeID); err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GarmentHandlers) attachDesign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.designs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "design service unavailable", http.StatusServiceUnavailable))
		return
	}

	garmentID := strings.TrimSpace(chi.URLParam(r, "garmentID"))
	designID := strings.TrimSpace(chi.URLParam(r, "designID"))

	// The attach body is optional and only carries ordering metadata.
	var req attachRequest
	body, err := readLimitedBody(r, maxGarmentRequestBody)
	switch {
	case err == nil:
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
			return
		}
	case errors.Is(err, errEmptyBody):
	default:
		writeBodyError(ctx, w, err)
		return
	}

	if err := h.designs.AttachDesign(ctx, services.AttachDesignCommand{
		GarmentID:    garmentID,
		DesignID:     designID,
		DisplayOrder: req.DisplayOrder,
	}); err != nil {
		h.writeAttachmentError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GarmentHandlers) detachDesign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.designs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "design service unavailable", http.StatusServiceUnavailable))
		return
	}

	garmentID := strings.TrimSpace(chi.URLParam(r, "garmentID"))
	designID := strings.TrimSpace(chi.URLParam(r, "designID"))
	if err := h.designs.DetachDesign(ctx, garmentID, designID); err != nil {
		h.writeAttachmentError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GarmentHandlers) writeAttachmentError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, services.ErrDesignInvalidInput) {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	writeRepositoryError(ctx, w, err, "attachment")
}

type parsedGarmentRequest struct {
	name        string
	sku         string
	basePrice   domain.Cents
	description string
	colors      []services.ColorInput
	sizes       []services.SizeInput
}

func (h *GarmentHandlers) parseGarmentCommand(ctx context.Context, w http.ResponseWriter, r *http.Request) (parsedGarmentRequest, bool) {
	body, err := readLimitedBody(r, maxGarmentRequestBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return parsedGarmentRequest{}, false
	}

	var req garmentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return parsedGarmentRequest{}, false
	}

	basePrice, err := domain.ParseCents(req.BasePrice)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "base_price must be a decimal amount like \"19.99\"", http.StatusBadRequest))
		return parsedGarmentRequest{}, false
	}

	parsed := parsedGarmentRequest{
		name:        req.Name,
		sku:         req.SKU,
		basePrice:   basePrice,
		description: req.Description,
	}
	for _, color := range req.Colors {
		parsed.colors = append(parsed.colors, services.ColorInput{Name: color.Name, HexCode: color.HexCode})
	}
	for _, size := range req.Sizes {
		parsed.sizes = append(parsed.sizes, services.SizeInput{Label: size.Label})
	}
	return parsed, true
}

func (h *GarmentHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, services.ErrCatalogInvalidInput) {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	writeRepositoryError(ctx, w, err, "garment")
}

func buildGarmentDetailPayload(detail domain.GarmentDetail) garmentDetailPayload {
	payload := garmentDetailPayload{
		garmentPayload: buildGarmentPayload(detail.Garment),
		Designs:        make([]attachedDesignPayload, 0, len(detail.Designs)),
	}
	for _, attached := range detail.Designs {
		payload.Designs = append(payload.Designs, attachedDesignPayload{
			designPayload: buildDesignPayload(attached.Design),
			DisplayOrder:  attached.DisplayOrder,
		})
	}
	return payload
}

func buildGarmentPayload(garment domain.Garment) garmentPayload {
	colors := make([]colorPayload, 0, len(garment.Colors))
	for _, color := range garment.Colors {
		colors = append(colors, colorPayload{ID: color.ID, Name: color.Name, HexCode: color.HexCode})
	}
	sizes := make([]sizePayload, 0, len(garment.Sizes))
	for _, size := range garment.Sizes {
		sizes = append(sizes, sizePayload{ID: size.ID, Label: size.Label})
	}
	return garmentPayload{
		ID:          garment.ID,
		Name:        garment.Name,
		SKU:         garment.SKU,
		BasePrice:   garment.BasePrice.String(),
		Description: garment.Description,
		Colors:      colors,
		Sizes:       sizes,
		CreatedAt:   formatTime(garment.CreatedAt),
		UpdatedAt:   formatTime(garment.UpdatedAt),
	}
}
