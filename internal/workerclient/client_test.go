package workerclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHeartbeatOnce_UpdatesLocalPodSetFromResponse(t *testing.T) {
	var gotNodeID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req heartbeatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotNodeID = req.NodeID

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(heartbeatResponse{
			Message: "Heartbeat received",
			Pods:    []string{"pod-a", "pod-b"},
		})
	}))
	defer ts.Close()

	c := New(Config{NodeID: "node-1", APIServer: ts.URL, CPUCores: 2})
	if err := c.heartbeatOnce(context.Background()); err != nil {
		t.Fatalf("heartbeatOnce: %v", err)
	}

	if gotNodeID != "node-1" {
		t.Errorf("expected heartbeat to report node-1, got %s", gotNodeID)
	}

	pods := c.Pods()
	if len(pods) != 2 || pods[0] != "pod-a" || pods[1] != "pod-b" {
		t.Errorf("expected local pod set to converge to server response, got %v", pods)
	}
}

func TestHeartbeatOnce_RetriesThenFails(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := New(Config{NodeID: "node-1", APIServer: ts.URL, CPUCores: 2})
	if err := c.heartbeatOnce(context.Background()); err == nil {
		t.Fatalf("expected heartbeatOnce to fail after exhausting retries")
	}

	if attempts != MaxAttemptsPerHeartbeat {
		t.Errorf("expected %d attempts, got %d", MaxAttemptsPerHeartbeat, attempts)
	}
}
