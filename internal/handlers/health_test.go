package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/stitchpress/api/internal/domain"
	"github.com/stitchpress/api/internal/services"
)

type stubSystemService struct {
	report services.SystemHealthReport
	err    error
}

func (s *stubSystemService) Health(context.Context) (services.SystemHealthReport, error) {
	return s.report, s.err
}

func TestHealthHandlers_Healthz(t *testing.T) {
	handler := NewHealthHandlers(nil)
	res := httptest.NewRecorder()
	handler.Healthz(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	var payload healthResponse
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response decode error: %v", err)
	}
	if payload.Status != domain.HealthStatusOK {
		t.Fatalf("unexpected status %q", payload.Status)
	}
}

func TestHealthHandlers_Readyz_Healthy(t *testing.T) {
	handler := NewHealthHandlers(&stubSystemService{
		report: services.SystemHealthReport{
			Status: domain.HealthStatusOK,
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK, Latency: 12 * time.Millisecond},
			},
			GeneratedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	})

	res := httptest.NewRecorder()
	handler.Readyz(res, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	var payload healthResponse
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response decode error: %v", err)
	}
	check, ok := payload.Checks["firestore"]
	if !ok {
		t.Fatalf("expected firestore check, got %v", payload.Checks)
	}
	if check.LatencyMS != 12 {
		t.Fatalf("unexpected latency %d", check.LatencyMS)
	}
}

func TestHealthHandlers_Readyz_Degraded(t *testing.T) {
	handler := NewHealthHandlers(&stubSystemService{
		report: services.SystemHealthReport{
			Status: domain.HealthStatusDegraded,
			Checks: map[string]domain.SystemHealthCheck{
				"cart": {Status: domain.HealthStatusDegraded, Detail: "slow response"},
			},
		},
	})

	res := httptest.NewRecorder()
	handler.Readyz(res, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	// Degraded dependencies keep the service in rotation.
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
}

func TestHealthHandlers_Readyz_Down(t *testing.T) {
	handler := NewHealthHandlers(&stubSystemService{
		report: services.SystemHealthReport{
			Status: domain.HealthStatusError,
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusError, Detail: "dial timeout"},
			},
		},
	})

	res := httptest.NewRecorder()
	handler.Readyz(res, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", res.Code)
	}
}

func TestHealthHandlers_Readyz_ProbeError(t *testing.T) {
	handler := NewHealthHandlers(&stubSystemService{err: errors.New("collect failed")})

	res := httptest.NewRecorder()
	handler.Readyz(res, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", res.Code)
	}
}
