package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func serveLogged(t *testing.T, status int) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Get("/v1/deployments/{id}/errors", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(status)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/deployments/dep-1/errors", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decoding log line %q: %v", buf.String(), err)
	}
	return line
}

func TestRequestLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"success at info", http.StatusOK, "INFO"},
		{"client error at warn", http.StatusNotFound, "WARN"},
		{"server error at error", http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := serveLogged(t, tt.status)
			if line["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", line["level"], tt.wantLevel)
			}
			if line["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", line["status"], tt.status)
			}
		})
	}
}

func TestRequestLoggerIncludesRoutePattern(t *testing.T) {
	line := serveLogged(t, http.StatusOK)

	if line["route"] != "/v1/deployments/{id}/errors" {
		t.Errorf("route = %v, want the matched pattern", line["route"])
	}
	if line["path"] != "/v1/deployments/dep-1/errors" {
		t.Errorf("path = %v, want the raw path", line["path"])
	}
	if line["method"] != http.MethodGet {
		t.Errorf("method = %v", line["method"])
	}
}
