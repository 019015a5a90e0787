package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	if !c.Available(context.Background()) {
		t.Error("Available = false against a healthy engine")
	}

	srv.Close()
	if c.Available(context.Background()) {
		t.Error("Available = true against a closed server")
	}
}

func TestTriggerExecution(t *testing.T) {
	var inputs map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/workflows/remediation/run" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "key" {
			t.Errorf("api key = %q", got)
		}
		var body struct {
			Inputs map[string]any `json:"inputs"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		inputs = body.Inputs

		json.NewEncoder(w).Encode(map[string]string{"executionId": "exec-42"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	id, err := c.TriggerExecution(context.Background(), "remediation", map[string]any{"deploymentId": "dep-1"})
	if err != nil {
		t.Fatalf("TriggerExecution: %v", err)
	}
	if id != "exec-42" {
		t.Errorf("execution id = %q", id)
	}
	if inputs["deploymentId"] != "dep-1" {
		t.Errorf("inputs = %v", inputs)
	}
}

func TestGetExecution(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/executions/exec-42" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "SUCCESS"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	state, err := c.GetExecution(context.Background(), "exec-42")
	if err != nil {
		t.Fatalf("GetExecution: %v", err)
	}
	if state != ExecutionSuccess {
		t.Errorf("state = %s, want SUCCESS", state)
	}
}
