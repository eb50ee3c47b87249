package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"asyncops/internal/config"
	"asyncops/internal/db"
	"asyncops/internal/domain"
	"asyncops/internal/engine"
	"asyncops/internal/migrate"
	"asyncops/internal/server"
)

type testServer struct {
	*httptest.Server
	Engine engine.Engine
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	e := engine.New(conn, cfg)
	handler, err := server.New(server.Config{
		Engine:   e,
		BasePath: "/api",
		Auth:     server.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour},
	})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return testServer{Server: ts, Engine: e}
}

type errEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s testServer) doJSON(t *testing.T, method, path, token string, body, out any) (int, errEnvelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var raw bytes.Buffer
	raw.ReadFrom(resp.Body)
	var env errEnvelope
	if resp.StatusCode >= 400 {
		_ = json.Unmarshal(raw.Bytes(), &env)
	} else if out != nil {
		if err := json.Unmarshal(raw.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw.String())
		}
	}
	return resp.StatusCode, env
}

func (s testServer) registerAndLogin(t *testing.T, email, name string) (string, domain.User) {
	t.Helper()
	var u domain.User
	status, env := s.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": email, "full_name": name, "password": "password123",
	}, &u)
	if status != http.StatusCreated {
		t.Fatalf("register: status=%d %+v", status, env)
	}
	var tok struct {
		AccessToken string      `json:"access_token"`
		TokenType   string      `json:"token_type"`
		User        domain.User `json:"user"`
	}
	status, env = s.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": email, "password": "password123",
	}, &tok)
	if status != http.StatusOK {
		t.Fatalf("login: status=%d %+v", status, env)
	}
	if tok.TokenType != "bearer" || tok.AccessToken == "" {
		t.Fatalf("token response: %+v", tok)
	}
	return tok.AccessToken, u
}

// promote flips a user to admin directly; the registration endpoint only
// creates members.
func (s testServer) promote(t *testing.T, id int64) {
	t.Helper()
	if _, err := s.Engine.DB.Exec(`UPDATE users SET role='admin' WHERE id=?`, id); err != nil {
		t.Fatalf("promote: %v", err)
	}
}

func TestHealthIsOpen(t *testing.T) {
	s := newTestServer(t)
	var body map[string]string
	status, _ := s.doJSON(t, http.MethodGet, "/api/health", "", nil, &body)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health: status=%d body=%v", status, body)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	status, env := s.doJSON(t, http.MethodGet, "/api/status-updates", "", nil, nil)
	if status != http.StatusUnauthorized || env.Error.Code != "unauthorized" {
		t.Fatalf("no token: status=%d code=%q", status, env.Error.Code)
	}
	status, env = s.doJSON(t, http.MethodGet, "/api/status-updates", "not-a-jwt", nil, nil)
	if status != http.StatusUnauthorized || env.Error.Code != "invalid_credentials" {
		t.Fatalf("garbage token: status=%d code=%q", status, env.Error.Code)
	}
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(t, "alice@example.com", "Alice")
	status, env := s.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "alice@example.com", "password": "wrong-password",
	}, nil)
	if status != http.StatusUnauthorized || env.Error.Code != "invalid_credentials" {
		t.Fatalf("wrong password: status=%d code=%q", status, env.Error.Code)
	}
}

func TestDeactivatedAccountBlocked(t *testing.T) {
	s := newTestServer(t)
	adminToken, admin := s.registerAndLogin(t, "admin@example.com", "Admin")
	s.promote(t, admin.ID)
	memberToken, member := s.registerAndLogin(t, "bob@example.com", "Bob")

	status, _ := s.doJSON(t, http.MethodPatch, fmt.Sprintf("/api/users/%d/deactivate", member.ID), adminToken, nil, nil)
	if status != http.StatusOK {
		t.Fatalf("deactivate: status=%d", status)
	}
	status, env := s.doJSON(t, http.MethodGet, "/api/users/me", memberToken, nil, nil)
	if status != http.StatusForbidden || env.Error.Code != "forbidden" {
		t.Fatalf("deactivated request: status=%d code=%q", status, env.Error.Code)
	}
}

func TestStatusUpdateFlow(t *testing.T) {
	s := newTestServer(t)
	token, user := s.registerAndLogin(t, "carol@example.com", "Carol")
	otherToken, _ := s.registerAndLogin(t, "dave@example.com", "Dave")

	var created domain.StatusUpdate
	status, env := s.doJSON(t, http.MethodPost, "/api/status-updates", token, map[string]any{
		"title": "Monday update", "content": "Working on the importer.", "tags": []string{"import"},
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("create: status=%d %+v", status, env)
	}
	if created.UserID != user.ID || created.Author == nil {
		t.Fatalf("created: %+v", created)
	}

	var page struct {
		Items []domain.StatusUpdate `json:"items"`
		Total int                   `json:"total"`
	}
	status, _ = s.doJSON(t, http.MethodGet, "/api/status-updates?page=1&limit=10", token, nil, &page)
	if status != http.StatusOK || page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("list: status=%d %+v", status, page)
	}

	status, env = s.doJSON(t, http.MethodPatch, fmt.Sprintf("/api/status-updates/%d", created.ID), otherToken, map[string]any{
		"title": "hijacked",
	}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("foreign edit: status=%d %+v", status, env)
	}

	var updated domain.StatusUpdate
	status, _ = s.doJSON(t, http.MethodPatch, fmt.Sprintf("/api/status-updates/%d", created.ID), token, map[string]any{
		"content": "Importer shipped.",
	}, &updated)
	if status != http.StatusOK || updated.Content != "Importer shipped." || updated.Title != "Monday update" {
		t.Fatalf("patch: status=%d %+v", status, updated)
	}
}

func TestIncidentErrorTaxonomy(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.registerAndLogin(t, "erin@example.com", "Erin")

	status, env := s.doJSON(t, http.MethodPost, "/api/incidents", token, map[string]any{
		"title": "Bad severity", "severity": "catastrophic",
	}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("bad severity: status=%d %+v", status, env)
	}

	var in domain.Incident
	status, _ = s.doJSON(t, http.MethodPost, "/api/incidents", token, map[string]any{
		"title": "Queue backlog", "severity": "high",
	}, &in)
	if status != http.StatusCreated {
		t.Fatalf("create: status=%d", status)
	}

	status, env = s.doJSON(t, http.MethodPatch, fmt.Sprintf("/api/incidents/%d/unarchive", in.ID), token, nil, nil)
	if status != http.StatusBadRequest || env.Error.Code != "not_archived" {
		t.Fatalf("unarchive active: status=%d code=%q", status, env.Error.Code)
	}

	status, _ = s.doJSON(t, http.MethodPatch, fmt.Sprintf("/api/incidents/%d/archive", in.ID), token, nil, nil)
	if status != http.StatusOK {
		t.Fatalf("archive: status=%d", status)
	}
	status, env = s.doJSON(t, http.MethodPatch, fmt.Sprintf("/api/incidents/%d", in.ID), token, map[string]any{
		"title": "renamed",
	}, nil)
	if status != http.StatusConflict || env.Error.Code != "archived" {
		t.Fatalf("edit archived: status=%d code=%q", status, env.Error.Code)
	}

	// Hard delete is admin-only even when archived.
	status, env = s.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/incidents/%d", in.ID), token, nil, nil)
	if status != http.StatusForbidden || env.Error.Code != "forbidden" {
		t.Fatalf("member delete: status=%d code=%q", status, env.Error.Code)
	}

	status, env = s.doJSON(t, http.MethodGet, "/api/incidents/99999", token, nil, nil)
	if status != http.StatusNotFound || env.Error.Code != "not_found" {
		t.Fatalf("missing incident: status=%d code=%q", status, env.Error.Code)
	}
}

func TestBlockerInvalidState(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.registerAndLogin(t, "frank@example.com", "Frank")

	var b domain.Blocker
	status, _ := s.doJSON(t, http.MethodPost, "/api/blockers", token, map[string]any{
		"description": "Vendor outage", "impact": "Payments failing",
	}, &b)
	if status != http.StatusCreated {
		t.Fatalf("create: status=%d", status)
	}
	status, _ = s.doJSON(t, http.MethodPatch, fmt.Sprintf("/api/blockers/%d/resolve", b.ID), token, map[string]any{}, &b)
	if status != http.StatusOK || b.Status != domain.BlockerResolved {
		t.Fatalf("resolve: status=%d %+v", status, b)
	}
	status, env := s.doJSON(t, http.MethodPatch, fmt.Sprintf("/api/blockers/%d/resolve", b.ID), token, map[string]any{}, nil)
	if status != http.StatusConflict || env.Error.Code != "invalid_state" {
		t.Fatalf("double resolve: status=%d code=%q", status, env.Error.Code)
	}
}

func TestDecisionAuditOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.registerAndLogin(t, "grace@example.com", "Grace")

	var d domain.Decision
	status, env := s.doJSON(t, http.MethodPost, "/api/decisions", token, map[string]any{
		"title":         "Use Postgres for analytics",
		"outcome":       "Approved",
		"decision_date": "2026-03-01",
		"tags":          []string{"db"},
	}, &d)
	if status != http.StatusCreated {
		t.Fatalf("create: status=%d %+v", status, env)
	}

	status, _ = s.doJSON(t, http.MethodPatch, fmt.Sprintf("/api/decisions/%d", d.ID), token, map[string]any{
		"outcome": "Approved with budget cap",
	}, &d)
	if status != http.StatusOK {
		t.Fatalf("patch: status=%d", status)
	}

	var trail []domain.AuditLogEntry
	status, _ = s.doJSON(t, http.MethodGet, fmt.Sprintf("/api/decisions/%d/audit", d.ID), token, nil, &trail)
	if status != http.StatusOK || len(trail) != 2 {
		t.Fatalf("trail: status=%d len=%d", status, len(trail))
	}
	if trail[0].ChangeType != domain.ChangeCreated || trail[1].ChangeType != domain.ChangeUpdated {
		t.Fatalf("trail order: %+v", trail)
	}
}

func TestSummaryEndpoints(t *testing.T) {
	s := newTestServer(t)
	adminToken, admin := s.registerAndLogin(t, "admin@example.com", "Admin")
	s.promote(t, admin.ID)
	memberToken, _ := s.registerAndLogin(t, "mem@example.com", "Mem")

	status, env := s.doJSON(t, http.MethodPost, "/api/summaries/generate?summary_date=2026-03-02", memberToken, nil, nil)
	if status != http.StatusForbidden {
		t.Fatalf("member generate: status=%d %+v", status, env)
	}

	var sum domain.DailySummary
	status, env = s.doJSON(t, http.MethodPost, "/api/summaries/generate?summary_date=2026-03-02", adminToken, nil, &sum)
	if status != http.StatusCreated {
		t.Fatalf("generate: status=%d %+v", status, env)
	}
	if sum.SummaryDate != "2026-03-02" {
		t.Fatalf("summary: %+v", sum)
	}

	var got domain.DailySummary
	status, _ = s.doJSON(t, http.MethodGet, fmt.Sprintf("/api/summaries/%d", sum.ID), memberToken, nil, &got)
	if status != http.StatusOK || got.ID != sum.ID {
		t.Fatalf("get: status=%d %+v", status, got)
	}
}

func TestOpenAPIServed(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.Client().Get(s.URL + "/api/openapi.json")
	if err != nil {
		t.Fatalf("get openapi: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("openapi: status=%d", resp.StatusCode)
	}
	var doc struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, p := range []string{"/api/auth/login", "/api/incidents", "/api/summaries/generate"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Fatalf("missing path %s", p)
		}
	}
}

func TestProfileUpdateOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.registerAndLogin(t, "pat@example.com", "Pat")
	s.registerAndLogin(t, "taken@example.com", "Taken")

	var u domain.User
	status, env := s.doJSON(t, http.MethodPatch, "/api/users/me", token, map[string]any{
		"full_name": "Pat Lee",
	}, &u)
	if status != http.StatusOK || u.FullName != "Pat Lee" {
		t.Fatalf("rename: status=%d env=%+v user=%+v", status, env, u)
	}

	status, env = s.doJSON(t, http.MethodPatch, "/api/users/me", token, map[string]any{
		"email": "taken@example.com",
	}, nil)
	if status != http.StatusBadRequest || env.Error.Code != "validation_error" {
		t.Fatalf("duplicate email: status=%d env=%+v", status, env)
	}
}

func TestDecisionListFiltersOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.registerAndLogin(t, "dee@example.com", "Dee")

	for _, d := range []map[string]any{
		{"title": "Adopt sqlite", "outcome": "done", "decision_date": "2026-02-20", "tags": []string{"infra"}},
		{"title": "Retire staging", "outcome": "done", "decision_date": "2026-03-01"},
	} {
		if status, env := s.doJSON(t, http.MethodPost, "/api/decisions", token, d, nil); status != http.StatusCreated {
			t.Fatalf("create: status=%d env=%+v", status, env)
		}
	}

	var page struct {
		Items []domain.Decision `json:"items"`
		Total int               `json:"total"`
	}
	status, env := s.doJSON(t, http.MethodGet, "/api/decisions?search=staging", token, nil, &page)
	if status != http.StatusOK || page.Total != 1 || page.Items[0].Title != "Retire staging" {
		t.Fatalf("search: status=%d env=%+v page=%+v", status, env, page)
	}
	status, _ = s.doJSON(t, http.MethodGet, "/api/decisions?start_date=2026-03-01&end_date=2026-03-31", token, nil, &page)
	if status != http.StatusOK || page.Total != 1 {
		t.Fatalf("date range: status=%d page=%+v", status, page)
	}
}
