package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stitchpress/api/internal/services"
)

type stubCustomizationService struct {
	createFn func(context.Context, services.CreateCustomizationCommand) (services.Customization, error)
	getFn    func(context.Context, string) (services.CustomizationDetail, error)
}

func (s *stubCustomizationService) CreateCustomization(ctx context.Context, cmd services.CreateCustomizationCommand) (services.Customization, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Customization{}, nil
}

func (s *stubCustomizationService) GetCustomization(ctx context.Context, customizationID string) (services.CustomizationDetail, error) {
	if s.getFn != nil {
		return s.getFn(ctx, customizationID)
	}
	return services.CustomizationDetail{}, nil
}

func TestCustomizationHandlers_Create_Success(t *testing.T) {
	var captured services.CreateCustomizationCommand
	stub := &stubCustomizationService{
		createFn: func(_ context.Context, cmd services.CreateCustomizationCommand) (services.Customization, error) {
			captured = cmd
			return services.Customization{
				ID:         "01CUST",
				GarmentID:  cmd.GarmentID,
				DesignID:   cmd.DesignID,
				ColorID:    cmd.ColorID,
				SizeID:     cmd.SizeID,
				TotalPrice: 2499,
				Currency:   "USD",
				Payload:    map[string]any{"garment_name": "Classic Tee"},
				CreatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			}, nil
		},
	}

	handler := NewCustomizationHandlers(stub)
	body := `{
        "garment_id": "g1",
        "design_id": "d1",
        "color_id": "c1",
        "size_id": "s1",
        "payload": {"note": "gift wrap"}
    }`
	req := httptest.NewRequest(http.MethodPost, "/customizations", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.createCustomization(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", res.Code, res.Body.String())
	}
	if captured.GarmentID != "g1" || captured.SizeID != "s1" {
		t.Fatalf("unexpected command %+v", captured)
	}
	if captured.Payload["note"] != "gift wrap" {
		t.Fatalf("payload not propagated: %v", captured.Payload)
	}

	var payload customizationPayload
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response decode error: %v", err)
	}
	if payload.ID != "01CUST" {
		t.Fatalf("unexpected customization id %q", payload.ID)
	}
	if payload.TotalPrice != "24.99" {
		t.Fatalf("unexpected total price %q", payload.TotalPrice)
	}
}

func TestCustomizationHandlers_Create_InvalidInput(t *testing.T) {
	stub := &stubCustomizationService{
		createFn: func(context.Context, services.CreateCustomizationCommand) (services.Customization, error) {
			return services.Customization{}, services.ErrCustomizationInvalidInput
		},
	}

	handler := NewCustomizationHandlers(stub)
	req := httptest.NewRequest(http.MethodPost, "/customizations", strings.NewReader(`{"garment_id":"g1"}`))
	res := httptest.NewRecorder()
	handler.createCustomization(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}
}

func TestCustomizationHandlers_Create_EmptyBody(t *testing.T) {
	handler := NewCustomizationHandlers(&stubCustomizationService{})
	req := httptest.NewRequest(http.MethodPost, "/customizations", nil)
	res := httptest.NewRecorder()
	handler.createCustomization(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}
}

func TestCustomizationHandlers_Get_Detail(t *testing.T) {
	stub := &stubCustomizationService{
		getFn: func(_ context.Context, customizationID string) (services.CustomizationDetail, error) {
			if customizationID != "01CUST" {
				t.Fatalf("unexpected id %q", customizationID)
			}
			return services.CustomizationDetail{
				Customization: services.Customization{
					ID:         "01CUST",
					GarmentID:  "g1",
					TotalPrice: 2499,
					Currency:   "USD",
					Payload:    map[string]any{"design_thumbnail": "https://cdn.example.com/thumb.png"},
				},
				GarmentName: "Classic Tee",
				GarmentSKU:  "TEE-001",
				BasePrice:   1999,
				DesignName:  "Skull Print",
				ColorName:   "Black",
				SizeLabel:   "M",
			}, nil
		},
	}

	handler := NewCustomizationHandlers(stub)
	req := withURLParams(httptest.NewRequest(http.MethodGet, "/customizations/01CUST", nil), map[string]string{"customizationID": "01CUST"})
	res := httptest.NewRecorder()
	handler.getCustomization(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	var payload customizationDetailPayload
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response decode error: %v", err)
	}
	if payload.GarmentName != "Classic Tee" || payload.SizeLabel != "M" {
		t.Fatalf("unexpected detail %+v", payload)
	}
	if payload.BasePrice != "19.99" {
		t.Fatalf("unexpected base price %q", payload.BasePrice)
	}
}

func TestCustomizationHandlers_Get_NotFound(t *testing.T) {
	stub := &stubCustomizationService{
		getFn: func(context.Context, string) (services.CustomizationDetail, error) {
			return services.CustomizationDetail{}, stubRepoError{notFound: true}
		},
	}

	handler := NewCustomizationHandlers(stub)
	req := withURLParams(httptest.NewRequest(http.MethodGet, "/customizations/missing", nil), map[string]string{"customizationID": "missing"})
	res := httptest.NewRecorder()
	handler.getCustomization(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", res.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["error"] != "customization_not_found" {
		t.Fatalf("unexpected error code %v", body["error"])
	}
}
