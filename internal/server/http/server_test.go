package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	cfgpkg "github.com/rzbill/hashlink/internal/config"
	"github.com/rzbill/hashlink/internal/runtime"
	logpkg "github.com/rzbill/hashlink/pkg/log"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.DataDir = t.TempDir()
	rt, err := runtime.Open(runtime.Options{
		Config: cfg,
		Logger: logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{})),
	})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return New(rt)
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestHealthHandler(t *testing.T) {
	s := testServer(t)
	w, body := doJSON(t, s, http.MethodGet, "/v1/healthz", "")
	if w.Code != 200 {
		t.Fatalf("status: %d", w.Code)
	}
	if body["status"] != "ok" {
		t.Fatalf("body: %v", body)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing request id header")
	}
}

func TestTopicCreateAppendRead(t *testing.T) {
	s := testServer(t)

	w, body := doJSON(t, s, http.MethodPost, "/v1/topics/create", `{"memo":"test"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status: %d %s", w.Code, w.Body.String())
	}
	topic, _ := body["topic_id"].(string)
	if topic == "" {
		t.Fatalf("create body: %v", body)
	}

	payload := base64.StdEncoding.EncodeToString([]byte(`{"p":"other","op":"x"}`))
	w, _ = doJSON(t, s, http.MethodPost, "/v1/topics/append", fmt.Sprintf(`{"topic_id":%q,"payload":%q}`, topic, payload))
	if w.Code != 200 {
		t.Fatalf("append status: %d %s", w.Code, w.Body.String())
	}

	w, body = doJSON(t, s, http.MethodGet, "/v1/topics/messages?topic="+topic, "")
	if w.Code != 200 {
		t.Fatalf("messages status: %d", w.Code)
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages: %v", body)
	}

	w, _ = doJSON(t, s, http.MethodPost, "/v1/topics/append", `{"topic_id":"t.999","payload":"aGk="}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("append to missing topic status: %d", w.Code)
	}
}

func TestActionRegisterAndGet(t *testing.T) {
	s := testServer(t)

	wasm := base64.StdEncoding.EncodeToString([]byte("fake wasm module"))
	body := fmt.Sprintf(`{"wasm":%q,"info":{"name":"counter","version":"1.0.0"}}`, wasm)
	w, resp := doJSON(t, s, http.MethodPost, "/v1/actions/register", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status: %d %s", w.Code, w.Body.String())
	}
	reg, _ := resp["registration"].(map[string]any)
	hash, _ := reg["hash"].(string)
	if hash == "" {
		t.Fatalf("register body: %v", resp)
	}

	w, resp = doJSON(t, s, http.MethodGet, "/v1/actions/get?hash="+hash, "")
	if w.Code != 200 {
		t.Fatalf("get status: %d", w.Code)
	}
	if resp["id"] == "" {
		t.Fatalf("get body: %v", resp)
	}

	w, _ = doJSON(t, s, http.MethodGet, "/v1/actions/get?hash="+strings.Repeat("0", 64), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing action status: %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/actions/wasm?hash="+hash, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != 200 || rec.Body.String() != "fake wasm module" {
		t.Fatalf("wasm fetch: %d %q", rec.Code, rec.Body.String())
	}

	w, resp = doJSON(t, s, http.MethodGet, "/v1/actions/list", "")
	if w.Code != 200 {
		t.Fatalf("list status: %d", w.Code)
	}
	actions, _ := resp["actions"].([]any)
	if len(actions) != 1 {
		t.Fatalf("list body: %v", resp)
	}
}

func TestAssemblyLifecycleOverHTTP(t *testing.T) {
	s := testServer(t)

	// dedicated assembly topic
	w, body := doJSON(t, s, http.MethodPost, "/v1/topics/create", `{"memo":"assembly"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create topic: %d", w.Code)
	}
	asmTopic := body["topic_id"].(string)

	// block topic with a published block
	w, body = doJSON(t, s, http.MethodPost, "/v1/topics/create", `{"memo":"block"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create block topic: %d", w.Code)
	}
	blockTopic := body["topic_id"].(string)
	pub := fmt.Sprintf(`{"topic_id":%q,"definition":{"name":"display","actions":["increment"]},"template":"<div></div>"}`, blockTopic)
	w, _ = doJSON(t, s, http.MethodPost, "/v1/blocks/publish", pub)
	if w.Code != http.StatusCreated {
		t.Fatalf("publish block: %d %s", w.Code, w.Body.String())
	}

	ops := []string{
		fmt.Sprintf(`{"topic_id":%q,"register":{"name":"app","version":"1.0.0"}}`, asmTopic),
		fmt.Sprintf(`{"topic_id":%q,"add_action":{"t_id":"t.404","alias":"counter"}}`, asmTopic),
		fmt.Sprintf(`{"topic_id":%q,"add_block":{"t_id":%q,"actions":{"increment":"counter"}}}`, asmTopic, blockTopic),
	}
	for _, op := range ops {
		w, _ = doJSON(t, s, http.MethodPost, "/v1/assemblies/op", op)
		if w.Code != http.StatusCreated {
			t.Fatalf("op %s: %d %s", op, w.Code, w.Body.String())
		}
	}

	w, body = doJSON(t, s, http.MethodGet, "/v1/assemblies/state?topic="+asmTopic, "")
	if w.Code != 200 {
		t.Fatalf("state: %d", w.Code)
	}
	st, _ := body["state"].(map[string]any)
	if st["name"] != "app" {
		t.Fatalf("state body: %v", body)
	}

	w, body = doJSON(t, s, http.MethodGet, "/v1/assemblies/resolve?topic="+asmTopic, "")
	if w.Code != 200 {
		t.Fatalf("resolve: %d %s", w.Code, w.Body.String())
	}
	if body["complete"] != false {
		t.Fatalf("resolution should be partial: %v", body)
	}
	errs, _ := body["errors"].([]any)
	if len(errs) != 1 {
		t.Fatalf("errors: %v", body["errors"])
	}
	blocks, _ := body["blocks"].([]any)
	if len(blocks) != 1 {
		t.Fatalf("blocks: %v", body["blocks"])
	}

	w, body = doJSON(t, s, http.MethodGet, "/v1/assemblies/validate?topic="+asmTopic, "")
	if w.Code != 200 {
		t.Fatalf("validate: %d", w.Code)
	}
	if body["valid"] != true {
		t.Fatalf("validate body: %v", body)
	}

	w, _ = doJSON(t, s, http.MethodGet, "/v1/assemblies/resolve?topic=t.999", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("resolve missing topic: %d", w.Code)
	}
}

func TestValidationErrorsSurfaceAs400(t *testing.T) {
	s := testServer(t)
	w, body := doJSON(t, s, http.MethodPost, "/v1/actions/register", `{"wasm":"","info":{"name":""}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
	if body["error"] == "" {
		t.Fatalf("body: %v", body)
	}
}
