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

type stubSelectionEngine struct {
	startFn    func(context.Context, string) (services.SelectionState, error)
	getFn      func(context.Context, string) (services.SelectionState, error)
	selectFn   func(context.Context, services.SelectCommand) (services.SelectionState, error)
	finalizeFn func(context.Context, services.FinalizeCommand) (services.FinalizeResult, error)
	abandonFn  func(context.Context, string) error
}

func (s *stubSelectionEngine) StartSession(ctx context.Context, garmentID string) (services.SelectionState, error) {
	if s.startFn != nil {
		return s.startFn(ctx, garmentID)
	}
	return services.SelectionState{}, nil
}

func (s *stubSelectionEngine) GetSession(ctx context.Context, sessionID string) (services.SelectionState, error) {
	if s.getFn != nil {
		return s.getFn(ctx, sessionID)
	}
	return services.SelectionState{}, nil
}

func (s *stubSelectionEngine) Select(ctx context.Context, cmd services.SelectCommand) (services.SelectionState, error) {
	if s.selectFn != nil {
		return s.selectFn(ctx, cmd)
	}
	return services.SelectionState{}, nil
}

func (s *stubSelectionEngine) Finalize(ctx context.Context, cmd services.FinalizeCommand) (services.FinalizeResult, error) {
	if s.finalizeFn != nil {
		return s.finalizeFn(ctx, cmd)
	}
	return services.FinalizeResult{}, nil
}

func (s *stubSelectionEngine) Abandon(ctx context.Context, sessionID string) error {
	if s.abandonFn != nil {
		return s.abandonFn(ctx, sessionID)
	}
	return nil
}

func (s *stubSelectionEngine) Close() {}

func TestSessionHandlers_StartSession(t *testing.T) {
	stub := &stubSelectionEngine{
		startFn: func(_ context.Context, garmentID string) (services.SelectionState, error) {
			if garmentID != "g1" {
				t.Fatalf("unexpected garment id %q", garmentID)
			}
			base := services.Cents(1999)
			return services.SelectionState{
				SessionID: "01SESSION",
				GarmentID: "g1",
				Total:     &base,
				Currency:  "USD",
				UpdatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			}, nil
		},
	}

	handler := NewSessionHandlers(stub)
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"garment_id":"g1"}`))
	res := httptest.NewRecorder()
	handler.startSession(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", res.Code, res.Body.String())
	}
	var payload sessionPayload
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response decode error: %v", err)
	}
	if payload.SessionID != "01SESSION" || payload.Complete {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Total == nil || *payload.Total != "19.99" {
		t.Fatalf("expected base price total on a fresh session, got %v", payload.Total)
	}
}

func TestSessionHandlers_StartSession_UnknownGarment(t *testing.T) {
	stub := &stubSelectionEngine{
		startFn: func(context.Context, string) (services.SelectionState, error) {
			return services.SelectionState{}, stubRepoError{notFound: true}
		},
	}

	handler := NewSessionHandlers(stub)
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"garment_id":"missing"}`))
	res := httptest.NewRecorder()
	handler.startSession(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", res.Code)
	}
}

func TestSessionHandlers_Select_AppliesAxis(t *testing.T) {
	var captured services.SelectCommand
	total := services.Cents(2499)
	stub := &stubSelectionEngine{
		selectFn: func(_ context.Context, cmd services.SelectCommand) (services.SelectionState, error) {
			captured = cmd
			return services.SelectionState{
				SessionID: cmd.SessionID,
				GarmentID: "g1",
				DesignID:  cmd.DesignID,
				Total:     &total,
				Currency:  "USD",
			}, nil
		},
	}

	handler := NewSessionHandlers(stub)
	req := withURLParams(
		httptest.NewRequest(http.MethodPut, "/sessions/01SESSION/design", strings.NewReader(`{"id":"d1"}`)),
		map[string]string{"sessionID": "01SESSION"},
	)
	res := httptest.NewRecorder()
	handler.selectAxis(axisDesign)(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body.String())
	}
	if captured.SessionID != "01SESSION" || captured.DesignID != "d1" {
		t.Fatalf("unexpected command %+v", captured)
	}
	if captured.ColorID != "" || captured.SizeID != "" {
		t.Fatalf("expected only the design axis set, got %+v", captured)
	}

	var payload sessionPayload
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response decode error: %v", err)
	}
	if payload.Total == nil || *payload.Total != "24.99" {
		t.Fatalf("unexpected total %v", payload.Total)
	}
}

func TestSessionHandlers_Select_InvalidChoice(t *testing.T) {
	stub := &stubSelectionEngine{
		selectFn: func(context.Context, services.SelectCommand) (services.SelectionState, error) {
			return services.SelectionState{}, services.ErrSelectionInvalidInput
		},
	}

	handler := NewSessionHandlers(stub)
	req := withURLParams(
		httptest.NewRequest(http.MethodPut, "/sessions/01SESSION/color", strings.NewReader(`{"id":"not-a-color"}`)),
		map[string]string{"sessionID": "01SESSION"},
	)
	res := httptest.NewRecorder()
	handler.selectAxis(axisColor)(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}
}

func TestSessionHandlers_Select_ExpiredSession(t *testing.T) {
	stub := &stubSelectionEngine{
		selectFn: func(context.Context, services.SelectCommand) (services.SelectionState, error) {
			return services.SelectionState{}, services.ErrSelectionSessionNotFound
		},
	}

	handler := NewSessionHandlers(stub)
	req := withURLParams(
		httptest.NewRequest(http.MethodPut, "/sessions/gone/size", strings.NewReader(`{"id":"s1"}`)),
		map[string]string{"sessionID": "gone"},
	)
	res := httptest.NewRecorder()
	handler.selectAxis(axisSize)(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", res.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["error"] != "session_not_found" {
		t.Fatalf("unexpected error code %v", body["error"])
	}
}

func TestSessionHandlers_Finalize_Success(t *testing.T) {
	var captured services.FinalizeCommand
	stub := &stubSelectionEngine{
		finalizeFn: func(_ context.Context, cmd services.FinalizeCommand) (services.FinalizeResult, error) {
			captured = cmd
			return services.FinalizeResult{
				Customization: services.Customization{
					ID:         "01CUST",
					GarmentID:  "g1",
					TotalPrice: 2499,
					Currency:   "USD",
				},
				HandoffSent: true,
			}, nil
		},
	}

	handler := NewSessionHandlers(stub)
	req := withURLParams(
		httptest.NewRequest(http.MethodPost, "/sessions/01SESSION/finalize", strings.NewReader(`{"variant_id":"987654"}`)),
		map[string]string{"sessionID": "01SESSION"},
	)
	res := httptest.NewRecorder()
	handler.finalizeSession(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", res.Code, res.Body.String())
	}
	if captured.SessionID != "01SESSION" || captured.VariantID != "987654" {
		t.Fatalf("unexpected command %+v", captured)
	}

	var payload finalizeResponse
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response decode error: %v", err)
	}
	if payload.Customization.ID != "01CUST" {
		t.Fatalf("unexpected customization id %q", payload.Customization.ID)
	}
	if !payload.HandoffSent {
		t.Fatal("expected handoff_sent true")
	}
}

func TestSessionHandlers_Finalize_Incomplete(t *testing.T) {
	stub := &stubSelectionEngine{
		finalizeFn: func(context.Context, services.FinalizeCommand) (services.FinalizeResult, error) {
			return services.FinalizeResult{}, services.ErrSelectionIncomplete
		},
	}

	handler := NewSessionHandlers(stub)
	req := withURLParams(
		httptest.NewRequest(http.MethodPost, "/sessions/01SESSION/finalize", strings.NewReader(`{"variant_id":"987654"}`)),
		map[string]string{"sessionID": "01SESSION"},
	)
	res := httptest.NewRecorder()
	handler.finalizeSession(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", res.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["error"] != "selection_incomplete" {
		t.Fatalf("unexpected error code %v", body["error"])
	}
}

func TestSessionHandlers_Abandon(t *testing.T) {
	var abandoned string
	stub := &stubSelectionEngine{
		abandonFn: func(_ context.Context, sessionID string) error {
			abandoned = sessionID
			return nil
		},
	}

	handler := NewSessionHandlers(stub)
	req := withURLParams(httptest.NewRequest(http.MethodDelete, "/sessions/01SESSION", nil), map[string]string{"sessionID": "01SESSION"})
	res := httptest.NewRecorder()
	handler.abandonSession(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", res.Code)
	}
	if abandoned != "01SESSION" {
		t.Fatalf("expected abandon of 01SESSION, got %q", abandoned)
	}
}

func TestSessionHandlers_Abandon_Unknown(t *testing.T) {
	stub := &stubSelectionEngine{
		abandonFn: func(context.Context, string) error {
			return services.ErrSelectionSessionNotFound
		},
	}

	handler := NewSessionHandlers(stub)
	req := withURLParams(httptest.NewRequest(http.MethodDelete, "/sessions/gone", nil), map[string]string{"sessionID": "gone"})
	res := httptest.NewRecorder()
	handler.abandonSession(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", res.Code)
	}
}

func TestSessionHandlers_GetSession(t *testing.T) {
	total := services.Cents(1999)
	stub := &stubSelectionEngine{
		getFn: func(_ context.Context, sessionID string) (services.SelectionState, error) {
			return services.SelectionState{
				SessionID: sessionID,
				GarmentID: "g1",
				DesignID:  "d1",
				ColorID:   "c1",
				SizeID:    "s1",
				Total:     &total,
				Currency:  "USD",
				Complete:  true,
			}, nil
		},
	}

	handler := NewSessionHandlers(stub)
	req := withURLParams(httptest.NewRequest(http.MethodGet, "/sessions/01SESSION", nil), map[string]string{"sessionID": "01SESSION"})
	res := httptest.NewRecorder()
	handler.getSession(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	var payload sessionPayload
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response decode error: %v", err)
	}
	if !payload.Complete {
		t.Fatal("expected complete session")
	}
	if payload.Total == nil || *payload.Total != "19.99" {
		t.Fatalf("unexpected total %v", payload.Total)
	}
}
