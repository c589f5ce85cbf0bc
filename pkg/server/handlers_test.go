package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/padsync/padsync/pkg/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(&Config{AllowedOrigins: []string{"*"}}, testLogger())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestCreateSessionDefaults(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", resp.StatusCode, body)
	}

	var sess sessionResponse
	if err := json.Unmarshal(body, &sess); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if sess.ID == "" {
		t.Error("response has empty id")
	}
	if sess.Language != registry.LangPython {
		t.Errorf("language = %q, want python", sess.Language)
	}
	if sess.Status != registry.StatusActive {
		t.Errorf("status = %q, want active", sess.Status)
	}
	if sess.ParticipantsCount != 0 {
		t.Errorf("participants_count = %d, want 0", sess.ParticipantsCount)
	}
	if !strings.HasSuffix(sess.URL, "/?session="+sess.ID) {
		t.Errorf("url = %q, want session link", sess.URL)
	}
	if !strings.HasSuffix(sess.WebSocketURL, "/ws/"+sess.ID) {
		t.Errorf("websocket_url = %q, want /ws/ link", sess.WebSocketURL)
	}
}

func TestCreateSessionWithBody(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", map[string]any{
		"language":     "go",
		"initial_code": "package main\n",
		"title":        "interview",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", resp.StatusCode, body)
	}

	var sess sessionResponse
	json.Unmarshal(body, &sess)
	if sess.Language != registry.LangGo {
		t.Errorf("language = %q, want go", sess.Language)
	}
	if sess.Title != "interview" {
		t.Errorf("title = %q, want interview", sess.Title)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"unsupported_language", map[string]any{"language": "cobol"}},
		{"title_too_long", map[string]any{"title": strings.Repeat("x", registry.MaxTitleLen+1)}},
		{"initial_code_too_long", map[string]any{"initial_code": strings.Repeat("x", registry.MaxInitialCodeLen+1)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", tc.body)
			if resp.StatusCode != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", resp.StatusCode)
			}
		})
	}
}

func TestGetSession(t *testing.T) {
	s, ts := newTestServer(t)
	sess := s.Relay().Sessions().Create(registry.CreateOptions{})

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/sessions/"+sess.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got sessionResponse
	json.Unmarshal(body, &got)
	if got.ID != sess.ID {
		t.Errorf("id = %q, want %q", got.ID, sess.ID)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/sessions/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	var e errorResponse
	json.Unmarshal(body, &e)
	if e.Detail == "" {
		t.Error("404 body should carry a detail message")
	}
}

func TestListSessions(t *testing.T) {
	s, ts := newTestServer(t)
	for i := 0; i < 3; i++ {
		s.Relay().Sessions().Create(registry.CreateOptions{})
	}

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/sessions", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var list sessionListResponse
	json.Unmarshal(body, &list)
	if list.Total != 3 || len(list.Sessions) != 3 {
		t.Errorf("total = %d len = %d, want 3/3", list.Total, len(list.Sessions))
	}
	if list.Limit != defaultListLimit || list.Offset != 0 {
		t.Errorf("limit/offset = %d/%d, want %d/0", list.Limit, list.Offset, defaultListLimit)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/sessions?limit=2&offset=2", nil)
	json.Unmarshal(body, &list)
	if list.Total != 3 || len(list.Sessions) != 1 {
		t.Errorf("paged total = %d len = %d, want 3/1", list.Total, len(list.Sessions))
	}

	for _, q := range []string{"limit=0", "limit=101", "limit=abc", "offset=-1"} {
		resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/sessions?"+q, nil)
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("%s: status = %d, want 422", q, resp.StatusCode)
		}
	}
}

func TestUpdateSession(t *testing.T) {
	s, ts := newTestServer(t)
	sess := s.Relay().Sessions().Create(registry.CreateOptions{Title: "before"})

	resp, body := doJSON(t, http.MethodPatch, ts.URL+"/api/sessions/"+sess.ID,
		map[string]any{"language": "rust"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", resp.StatusCode, body)
	}
	var got sessionResponse
	json.Unmarshal(body, &got)
	if got.Language != registry.LangRust {
		t.Errorf("language = %q, want rust", got.Language)
	}
	if got.Title != "before" {
		t.Errorf("title = %q, want untouched", got.Title)
	}

	resp, _ = doJSON(t, http.MethodPatch, ts.URL+"/api/sessions/nope",
		map[string]any{"title": "x"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPatch, ts.URL+"/api/sessions/"+sess.ID,
		map[string]any{"language": "brainfuck"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestDeleteSession(t *testing.T) {
	s, ts := newTestServer(t)
	sess := s.Relay().Sessions().Create(registry.CreateOptions{})

	resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/api/sessions/"+sess.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/sessions/"+sess.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/sessions/"+sess.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("double delete: status = %d, want 404", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	s, ts := newTestServer(t)
	s.Relay().Sessions().Create(registry.CreateOptions{})

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var h healthResponse
	json.Unmarshal(body, &h)
	if h.Status != "ok" {
		t.Errorf("status = %q, want ok", h.Status)
	}
	if h.ActiveSessions != 1 {
		t.Errorf("active_sessions = %d, want 1", h.ActiveSessions)
	}
	if h.Version == "" {
		t.Error("version missing")
	}
}

func TestRoomInfoEndpoint(t *testing.T) {
	s, ts := newTestServer(t)
	sess := s.Relay().Sessions().Create(registry.CreateOptions{})

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/sessions/"+sess.ID+"/room", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var info struct {
		Exists bool `json:"exists"`
	}
	json.Unmarshal(body, &info)
	if info.Exists {
		t.Error("room should not exist before the first join")
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/sessions/nope/room", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(body) == 0 {
		t.Error("metrics body is empty")
	}
}

func TestListOrdering(t *testing.T) {
	s, ts := newTestServer(t)

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, s.Relay().Sessions().Create(registry.CreateOptions{
			Title: fmt.Sprintf("s%d", i),
		}).ID)
	}

	_, body := doJSON(t, http.MethodGet, ts.URL+"/api/sessions", nil)
	var list sessionListResponse
	json.Unmarshal(body, &list)

	// Newest first.
	for i := range list.Sessions {
		want := ids[len(ids)-1-i]
		if list.Sessions[i].ID != want {
			t.Fatalf("sessions[%d].ID = %q, want %q", i, list.Sessions[i].ID, want)
		}
	}
}
