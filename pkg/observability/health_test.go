package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker()

	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestHealthChecker_ReadinessHealthy(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("postgres", func(ctx context.Context) error { return nil })

	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var status HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Status != StatusHealthy {
		t.Errorf("status = %q", status.Status)
	}
	if status.Dependencies["postgres"].Status != StatusHealthy {
		t.Errorf("postgres = %+v", status.Dependencies["postgres"])
	}
}

func TestHealthChecker_ReadinessUnhealthy(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("postgres", func(ctx context.Context) error { return nil })
	h.AddCheck("redis", func(ctx context.Context) error { return errors.New("connection refused") })

	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var status HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Status != StatusUnhealthy {
		t.Errorf("status = %q", status.Status)
	}
	if status.Dependencies["redis"].Message != "connection refused" {
		t.Errorf("redis = %+v", status.Dependencies["redis"])
	}
}

func TestHealthChecker_NoChecks(t *testing.T) {
	h := NewHealthChecker()
	status := h.Check(context.Background())
	if status.Status != StatusHealthy {
		t.Errorf("empty checker status = %q, want healthy", status.Status)
	}
}
