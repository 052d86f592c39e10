package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func fakeAPI(t *testing.T, handler http.HandlerFunc) BaseURLFunc {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return func() string { return srv.URL }
}

func TestPostJSONDecodesBody(t *testing.T) {
	base := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/topics/create" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["memo"] != "demo" {
			t.Fatalf("memo = %q", req["memo"])
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"topic_id": "t.1"})
	})
	out, err := postJSON(base, "/v1/topics/create", map[string]string{"memo": "demo"})
	if err != nil {
		t.Fatalf("postJSON: %v", err)
	}
	if out["topic_id"] != "t.1" {
		t.Fatalf("out = %v", out)
	}
}

func TestErrorResponsesBecomeErrors(t *testing.T) {
	base := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Topic not found"})
	})
	_, err := getJSON(base, "/v1/topics/messages?topic=t.404")
	if err == nil || !strings.Contains(err.Error(), "Topic not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestTopicCreateCommand(t *testing.T) {
	base := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"topic_id": "t.7"})
	})
	cmd := NewTopicCommand(base)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"create", "--memo", "demo"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out.String()) != "t.7" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestAssemblyStateCommand(t *testing.T) {
	base := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("topic") != "t.3" {
			t.Fatalf("topic = %q", r.URL.Query().Get("topic"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"topic_id": "t.3", "state": map[string]any{"name": "app"}})
	})
	cmd := NewAssemblyCommand(base)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"state", "--topic", "t.3"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), `"name": "app"`) {
		t.Fatalf("output = %q", out.String())
	}
}
