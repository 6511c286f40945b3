package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func performHealth(t *testing.T, probes map[string]Probe) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	h := NewHealthHandler(zap.NewNop(), probes)
	r.GET("/health", h.Health)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return w.Code, body
}

func serviceStatus(t *testing.T, body map[string]any, name string) string {
	t.Helper()
	services, ok := body["services"].(map[string]any)
	if !ok {
		t.Fatalf("missing services block: %v", body)
	}
	entry, ok := services[name].(map[string]any)
	if !ok {
		t.Fatalf("missing service %s: %v", name, services)
	}
	status, _ := entry["status"].(string)
	return status
}

func TestHealth_AllHealthy(t *testing.T) {
	code, body := performHealth(t, map[string]Probe{
		"redis": func(context.Context) error { return nil },
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "healthy" {
		t.Fatalf("expected healthy, got %v", body["status"])
	}
	if got := serviceStatus(t, body, "redis"); got != "healthy" {
		t.Fatalf("expected redis healthy, got %s", got)
	}
	if got := serviceStatus(t, body, "api"); got != "healthy" {
		t.Fatalf("api should always report healthy, got %s", got)
	}
}

func TestHealth_DegradedAndNotConfigured(t *testing.T) {
	code, body := performHealth(t, map[string]Probe{
		"database": func(context.Context) error { return errors.New("connection refused") },
		"stt":      nil,
	})
	if code != http.StatusOK {
		t.Fatalf("probe failures still answer 200, got %d", code)
	}
	if body["status"] != "degraded" {
		t.Fatalf("expected degraded, got %v", body["status"])
	}
	if got := serviceStatus(t, body, "database"); got != "unhealthy" {
		t.Fatalf("expected database unhealthy, got %s", got)
	}
	if got := serviceStatus(t, body, "stt"); got != "not_configured" {
		t.Fatalf("expected stt not_configured, got %s", got)
	}
}
