package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"fundline/internal/db"
	"fundline/internal/engine"
	"fundline/internal/migrate"
	"fundline/internal/server"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	Engine *engine.Engine
	client *http.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, nil)
	handler, err := server.New(server.Config{
		Engine: e,
		Auth:   server.AuthConfig{JWTSecret: testSecret},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ln.Close()
		conn.Close()
	})
	return &testServer{
		URL:    "http://" + ln.Addr().String() + "/v1",
		Engine: e,
		client: &http.Client{},
	}
}

func doJSON(t *testing.T, s *testServer, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	payload, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, payload
}

func login(t *testing.T, s *testServer, actorID, role string) string {
	t.Helper()
	resp, body := doJSON(t, s, http.MethodPost, "/auth/dev/login", "",
		map[string]string{"actor_id": actorID, "role": role})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dev login: %d %s", resp.StatusCode, body)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return out.Token
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	resp, _ := doJSON(t, s, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: %d", resp.StatusCode)
	}
}

func TestMissingCredentialsAreRejected(t *testing.T) {
	s := newTestServer(t)
	resp, body := doJSON(t, s, http.MethodGet, "/tasks", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", resp.StatusCode, body)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if envelope.Error.Code != "unauthorized" {
		t.Fatalf("error code: %q", envelope.Error.Code)
	}
}

func TestRoleGating(t *testing.T) {
	s := newTestServer(t)
	userTok := login(t, s, "alice", "user")
	adminTok := login(t, s, "bob", "admin")

	// reads are open to user
	resp, body := doJSON(t, s, http.MethodGet, "/tasks", userTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("user read: %d %s", resp.StatusCode, body)
	}

	// writes need admin
	create := map[string]any{"title": "call the bank"}
	resp, body = doJSON(t, s, http.MethodPost, "/tasks", userTok, create)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user write should be forbidden, got %d %s", resp.StatusCode, body)
	}
	resp, body = doJSON(t, s, http.MethodPost, "/tasks", adminTok, create)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin write: %d %s", resp.StatusCode, body)
	}
	var task struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}

	// deletes need super_admin
	resp, _ = doJSON(t, s, http.MethodDelete, "/tasks/"+task.ID, adminTok, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("admin delete should be forbidden, got %d", resp.StatusCode)
	}
	superTok := login(t, s, "root", "super_admin")
	resp, _ = doJSON(t, s, http.MethodDelete, "/tasks/"+task.ID, superTok, nil)
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		t.Fatalf("super_admin delete: %d", resp.StatusCode)
	}
}

func TestMoveTaskEndpoint(t *testing.T) {
	s := newTestServer(t)
	adminTok := login(t, s, "bob", "admin")

	mk := func(title string) string {
		resp, body := doJSON(t, s, http.MethodPost, "/tasks", adminTok,
			map[string]any{"title": title, "status": "todo"})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %s: %d %s", title, resp.StatusCode, body)
		}
		var task struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &task); err != nil {
			t.Fatal(err)
		}
		return task.ID
	}
	a := mk("a")
	mk("b")

	resp, body := doJSON(t, s, http.MethodPost, "/tasks/"+a+"/move", adminTok,
		map[string]string{"over_id": "done"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move: %d %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, s, http.MethodGet, "/tasks/"+a, adminTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get after move: %d", resp.StatusCode)
	}
	var moved struct {
		Status   string `json:"status"`
		Position int    `json:"position"`
	}
	if err := json.Unmarshal(body, &moved); err != nil {
		t.Fatal(err)
	}
	if moved.Status != "done" || moved.Position != 0 {
		t.Fatalf("moved task: %+v", moved)
	}

	// unknown active task is a 404
	resp, _ = doJSON(t, s, http.MethodPost, "/tasks/ghost/move", adminTok,
		map[string]string{"over_id": "done"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("ghost move: %d", resp.StatusCode)
	}
}

func TestPlacementAndActivityEndpoints(t *testing.T) {
	s := newTestServer(t)
	adminTok := login(t, s, "bob", "admin")

	resp, body := doJSON(t, s, http.MethodPost, "/tasks", adminTok,
		map[string]any{"title": "a", "status": "todo"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", resp.StatusCode, body)
	}
	var task struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &task); err != nil {
		t.Fatal(err)
	}

	resp, body = doJSON(t, s, http.MethodPut, "/tasks/"+task.ID+"/placement", adminTok,
		map[string]any{"status": "done", "position": 0})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("placement: %d %s", resp.StatusCode, body)
	}
	var placed struct {
		Status   string `json:"status"`
		Position int    `json:"position"`
	}
	if err := json.Unmarshal(body, &placed); err != nil {
		t.Fatal(err)
	}
	if placed.Status != "done" || placed.Position != 0 {
		t.Fatalf("placed: %+v", placed)
	}

	resp, body = doJSON(t, s, http.MethodPost, "/tasks/"+task.ID+"/activity", adminTok,
		map[string]any{"action": "status_change", "field_name": "status", "old_value": "To Do", "new_value": "Done"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("append activity: %d %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, s, http.MethodGet, "/tasks/"+task.ID+"/activity", adminTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list activity: %d", resp.StatusCode)
	}
	var entries []struct {
		ActorID string `json:"actor_id"`
		Action  string `json:"action"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ActorID != "bob" || entries[0].Action != "status_change" {
		t.Fatalf("entries: %+v", entries)
	}
}

func TestStageTransitionConflicts(t *testing.T) {
	s := newTestServer(t)
	adminTok := login(t, s, "bob", "admin")

	resp, body := doJSON(t, s, http.MethodPost, "/customers", adminTok,
		map[string]any{"business_name": "Acme Paving", "requested_amount": 80000})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create customer: %d %s", resp.StatusCode, body)
	}
	var customer struct {
		ID    string `json:"id"`
		Stage string `json:"stage"`
	}
	if err := json.Unmarshal(body, &customer); err != nil {
		t.Fatal(err)
	}
	if customer.Stage != "lead" {
		t.Fatalf("new customer stage: %s", customer.Stage)
	}

	// forward step is fine
	resp, body = doJSON(t, s, http.MethodPost, "/customers/"+customer.ID+"/stage", adminTok,
		map[string]any{"stage": "contacted"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("forward step: %d %s", resp.StatusCode, body)
	}

	// backward without force conflicts
	resp, body = doJSON(t, s, http.MethodPost, "/customers/"+customer.ID+"/stage", adminTok,
		map[string]any{"stage": "lead"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", resp.StatusCode, body)
	}

	// funded needs amount and lender even though the skip itself is allowed
	resp, body = doJSON(t, s, http.MethodPost, "/customers/"+customer.ID+"/stage", adminTok,
		map[string]any{"stage": "funded"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("funded without amount: %d %s", resp.StatusCode, body)
	}

	// force requires super_admin
	resp, _ = doJSON(t, s, http.MethodPost, "/customers/"+customer.ID+"/stage", adminTok,
		map[string]any{"stage": "lost", "force": true})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("forced change by admin: %d", resp.StatusCode)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	s := newTestServer(t)
	superTok := login(t, s, "root", "super_admin")

	resp, body := doJSON(t, s, http.MethodPost, "/apikeys", superTok,
		map[string]string{"actor_id": "svc-reporting", "name": "reporting", "role": "user"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("issue key: %d %s", resp.StatusCode, body)
	}
	var key struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(body, &key); err != nil {
		t.Fatal(err)
	}

	req, _ := http.NewRequest(http.MethodGet, s.URL+"/me", nil)
	req.Header.Set("X-Api-Key", key.Key)
	resp2, err := s.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	payload, _ := io.ReadAll(resp2.Body)
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("key auth: %d %s", resp2.StatusCode, payload)
	}
	var me struct {
		ActorID string `json:"actor_id"`
		Role    string `json:"role"`
		Source  string `json:"source"`
	}
	if err := json.Unmarshal(payload, &me); err != nil {
		t.Fatal(err)
	}
	if me.ActorID != "svc-reporting" || me.Role != "user" || me.Source != "api_key" {
		t.Fatalf("principal: %+v", me)
	}

	// a bogus key is rejected
	req, _ = http.NewRequest(http.MethodGet, s.URL+"/me", nil)
	req.Header.Set("X-Api-Key", "nope")
	resp3, err := s.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bogus key: %d", resp3.StatusCode)
	}
}

func TestValidationEnvelope(t *testing.T) {
	s := newTestServer(t)
	adminTok := login(t, s, "bob", "admin")

	resp, body := doJSON(t, s, http.MethodPost, "/tasks", adminTok,
		map[string]any{"title": "x", "status": "doing"})
	if resp.StatusCode != http.StatusBadRequest && resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("bad enum should fail validation, got %d %s", resp.StatusCode, body)
	}
}
