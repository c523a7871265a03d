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

const maxCustomizationRequestBody = 128 * 1024

// CustomizationHandlers exposes recorded customization endpoints.
type CustomizationHandlers struct {
	customizations services.CustomizationService
}

// NewCustomizationHandlers constructs a new CustomizationHandlers instance.
func NewCustomizationHandlers(customizations services.CustomizationService) *CustomizationHandlers {
	return &CustomizationHandlers{customizations: customizations}
}

// Routes registers the /customizations endpoints.
func (h *CustomizationHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createCustomization)
	r.Get("/{customizationID}", h.getCustomization)
}

type customizationRequest struct {
	GarmentID string         `json:"garment_id"`
	DesignID  string         `json:"design_id"`
	ColorID   string         `json:"color_id"`
	SizeID    string         `json:"size_id"`
	Payload   map[string]any `json:"payload"`
}

type customizationPayload struct {
	ID         string         `json:"id"`
	GarmentID  string         `json:"garment_id"`
	DesignID   string         `json:"design_id"`
	ColorID    string         `json:"color_id"`
	SizeID     string         `json:"size_id"`
	TotalPrice string         `json:"total_price"`
	Currency   string         `json:"currency"`
	Payload    map[string]any `json:"payload,omitempty"`
	CreatedAt  string         `json:"created_at,omitempty"`
}

type customizationDetailPayload struct {
	customizationPayload
	GarmentName string `json:"garment_name,omitempty"`
	GarmentSKU  string `json:"garment_sku,omitempty"`
	BasePrice   string `json:"base_price,omitempty"`
	DesignName  string `json:"design_name,omitempty"`
	ColorName   string `json:"color_name,omitempty"`
	SizeLabel   string `json:"size_label,omitempty"`
}

func (h *CustomizationHandlers) createCustomization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customizations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "customization service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCustomizationRequestBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req customizationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	customization, err := h.customizations.CreateCustomization(ctx, services.CreateCustomizationCommand{
		GarmentID: req.GarmentID,
		DesignID:  req.DesignID,
		ColorID:   req.ColorID,
		SizeID:    req.SizeID,
		Payload:   req.Payload,
	})
	if err != nil {
		h.writeCustomizationError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildCustomizationPayload(customization))
}

func (h *CustomizationHandlers) getCustomization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customizations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "customization service unavailable", http.StatusServiceUnavailable))
		return
	}

	customizationID := strings.TrimSpace(chi.URLParam(r, "customizationID"))
	detail, err := h.customizations.GetCustomization(ctx, customizationID)
	if err != nil {
		h.writeCustomizationError(ctx, w, err)
		return
	}

	payload := customizationDetailPayload{
		customizationPayload: buildCustomizationPayload(detail.Customization),
		GarmentName:          detail.GarmentName,
		GarmentSKU:           detail.GarmentSKU,
		DesignName:           detail.DesignName,
		ColorName:            detail.ColorName,
		SizeLabel:            detail.SizeLabel,
	}
	if detail.BasePrice != 0 {
		payload.BasePrice = detail.BasePrice.String()
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CustomizationHandlers) writeCustomizationError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, services.ErrCustomizationInvalidInput) {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	writeRepositoryError(ctx, w, err, "customization")
}

func buildCustomizationPayload(customization domain.Customization) customizationPayload {
	return customizationPayload{
		ID:         customization.ID,
		GarmentID:  customization.GarmentID,
		DesignID:   customization.DesignID,
		ColorID:    customization.ColorID,
		SizeID:     customization.SizeID,
		TotalPrice: customization.TotalPrice.String(),
		Currency:   customization.Currency,
		Payload:    customization.Payload,
		CreatedAt:  formatTime(customization.CreatedAt),
	}
}
