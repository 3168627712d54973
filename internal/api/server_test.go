package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/codetransmute/internal/blocks"
	"github.com/dgallion1/codetransmute/internal/config"
	"github.com/dgallion1/codetransmute/internal/metrics"
	"github.com/dgallion1/codetransmute/internal/pipeline"
	"github.com/dgallion1/codetransmute/internal/session"
	"github.com/dgallion1/codetransmute/internal/workspace"
)

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		APIKey:        apiKey,
		DefaultLevel:  3,
		DefaultLocale: "en",
		MaxFileBytes:  1 << 20,
		WorkerCount:   2,
		MaxQueueSize:  4,
		JobTTL:        time.Hour,
		SessionTTL:    time.Hour,
	}

	ws, err := workspace.Demo(workspace.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache, err := workspace.NewTreeCache(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	catalog, err := blocks.LoadCatalog()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	projections := metrics.NewProjectionStats(0)
	renderer := session.NewRenderer(projections)
	hub := session.NewHub(ws, cache, catalog, renderer, cfg.SessionTTL, log)

	orch := pipeline.NewOrchestrator(cfg, ws, cache, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	return NewServer(Deps{
		Orchestrator: orch,
		Hub:          hub,
		Renderer:     renderer,
		Workspace:    ws,
		Cache:        cache,
		Catalog:      catalog,
		Projections:  projections,
	}, log, cfg)
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, "secret")
	if rec := do(t, s, http.MethodGet, "/health", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("expected health ok, got %d %s", rec.Code, rec.Body.String())
	}
	rec := do(t, s, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "codetransmute_http_requests_total") {
		t.Errorf("expected metrics exposition, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, "secret")

	if rec := do(t, s, http.MethodGet, "/api/files", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with key, got %d", rec.Code)
	}

	if rec := do(t, s, http.MethodGet, "/api/files?access_token=secret", nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with query token, got %d", rec.Code)
	}
}

func TestExtract(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodPost, "/api/extract", map[string]string{
		"source":   "class Shape:\n    def area(self):\n        return 0\n",
		"filename": "shape.py",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Language string         `json:"language"`
		Counts   map[string]int `json:"counts"`
		Root     struct {
			Kind     string `json:"kind"`
			Children []struct {
				Kind  string `json:"kind"`
				Label string `json:"label"`
			} `json:"children"`
		} `json:"root"`
	}](t, rec)
	if resp.Language != "python" || resp.Root.Kind != "program" {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(resp.Root.Children) != 1 || resp.Root.Children[0].Label != "Shape" {
		t.Errorf("expected one class Shape, got %+v", resp.Root.Children)
	}
	if resp.Counts["function"] != 1 || resp.Counts["class"] != 1 || resp.Counts["raw_line"] != 1 {
		t.Errorf("unexpected counts %v", resp.Counts)
	}
}

func TestProjectAndPreview(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodPost, "/api/project", map[string]any{
		"source":   "def add(a, b):\n    return a + b\n",
		"language": "py",
		"level":    3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Markup  string `json:"markup"`
		Preview string `json:"preview"`
		Level   int    `json:"level"`
		Stats   struct {
			Blocks int `json:"blocks"`
		} `json:"stats"`
	}](t, rec)
	want := `<xml xmlns="https://developers.google.com/blockly/xml">` +
		`<block type="universal_function"><field name="NAME">add</field>` +
		`<statement name="BODY"><block type="raw_code"><field name="CODE">return a + b</field></block></statement>` +
		`</block></xml>`
	if resp.Markup != want {
		t.Errorf("unexpected markup:\n got: %s\nwant: %s", resp.Markup, want)
	}
	if resp.Level != 3 || resp.Stats.Blocks != 2 {
		t.Errorf("unexpected level/stats %d %+v", resp.Level, resp.Stats)
	}

	rec = do(t, s, http.MethodPost, "/api/preview", map[string]string{"markup": resp.Markup})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	code := decode[map[string]string](t, rec)["code"]
	if !strings.Contains(code, "function add() {") || !strings.Contains(code, "  return a + b") {
		t.Errorf("unexpected preview %q", code)
	}
	if !strings.Contains(resp.Preview, "function add() {") {
		t.Errorf("unexpected inline preview %q", resp.Preview)
	}
}

func TestProject_DefaultAndInvalidLevel(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodPost, "/api/project", map[string]any{"source": "x = 1"})
	if rec.Code != http.StatusOK || decode[map[string]any](t, rec)["level"].(float64) != 3 {
		t.Errorf("expected default level 3, got %d %s", rec.Code, rec.Body.String())
	}
	for _, lvl := range []int{0, 4, -1} {
		rec := do(t, s, http.MethodPost, "/api/project", map[string]any{"source": "x = 1", "level": lvl})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("level %d: expected 400, got %d", lvl, rec.Code)
		}
	}
}

func TestBadBodies(t *testing.T) {
	s := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/project", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed json, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/preview", map[string]string{"markup": "<xml><block"}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed markup, got %d", rec.Code)
	}
}

func TestFiles(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodGet, "/api/files", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`"workspace":"demo-project"`, `"math_utils.py"`, `"logic/"`, `"logic/core.ts"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in tree, got %s", want, body)
		}
	}

	rec = do(t, s, http.MethodGet, "/api/files/content?path=math_utils.py&level=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Level int            `json:"level"`
		Views []session.View `json:"views"`
	}](t, rec)
	if resp.Level != 1 || len(resp.Views) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Views[0].Stats.Placeholders != 4 {
		t.Errorf("expected 4 collapsed functions, got %d", resp.Views[0].Stats.Placeholders)
	}
	if strings.Contains(resp.Views[0].Markup, "raw_code") {
		t.Error("expected no raw code at level 1")
	}

	cases := map[string]int{
		"/api/files/content":                            http.StatusBadRequest,
		"/api/files/content?path=math_utils.py&level=x": http.StatusBadRequest,
		"/api/files/content?path=math_utils.py&level=7": http.StatusBadRequest,
		"/api/files/content?path=../etc/passwd":         http.StatusForbidden,
		"/api/files/content?path=missing.py":            http.StatusNotFound,
		"/api/files/content?path=logic":                 http.StatusBadRequest,
	}
	for target, want := range cases {
		if rec := do(t, s, http.MethodGet, target, nil); rec.Code != want {
			t.Errorf("%s: expected %d, got %d", target, want, rec.Code)
		}
	}
}

func TestCatalog(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodGet, "/api/catalog?locale=zh-TW", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[struct {
		Locale  string              `json:"locale"`
		Locales []string            `json:"locales"`
		Labels  blocks.Labels       `json:"labels"`
		Blocks  []blocks.Definition `json:"blocks"`
		Toolbox string              `json:"toolbox"`
	}](t, rec)
	if resp.Locale != "zh-TW" || resp.Labels.AppTitle != "程式轉譯機" {
		t.Errorf("unexpected labels %+v", resp.Labels)
	}
	if len(resp.Blocks) != 5 || !strings.Contains(resp.Toolbox, "universal_function") {
		t.Errorf("unexpected catalog %d blocks, toolbox %q", len(resp.Blocks), resp.Toolbox)
	}

	rec = do(t, s, http.MethodGet, "/api/catalog", nil)
	if decode[map[string]any](t, rec)["locale"] != "en" {
		t.Error("expected default locale en")
	}
	if rec := do(t, s, http.MethodGet, "/api/catalog?locale=fr", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown locale, got %d", rec.Code)
	}
}

func TestAnalyze(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodPost, "/api/analyze", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d %s", rec.Code, rec.Body.String())
	}
	jobID := decode[map[string]any](t, rec)["job_id"].(string)

	deadline := time.After(5 * time.Second)
	var snap pipeline.JobSnapshot
	for {
		rec = do(t, s, http.MethodGet, "/api/analyze/"+jobID+"/status", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		snap = decode[pipeline.JobSnapshot](t, rec)
		if snap.Status.Done() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for analysis")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if snap.Status != pipeline.StatusCompleted || snap.Progress.FilesTotal != 3 {
		t.Errorf("unexpected job %+v", snap)
	}

	if rec := do(t, s, http.MethodGet, "/api/analyze/nope/status", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestProjectionStats(t *testing.T) {
	s := newTestServer(t, "")
	do(t, s, http.MethodPost, "/api/project", map[string]any{"source": "x = 1", "level": 3})
	do(t, s, http.MethodPost, "/api/project", map[string]any{"source": "def f():\n    x = 1\n", "level": 1})
	rec := do(t, s, http.MethodGet, "/api/stats/projection", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[struct {
		Levels []metrics.LevelStats `json:"levels"`
	}](t, rec)
	if len(resp.Levels) != 2 || resp.Levels[0].Level != 1 || resp.Levels[1].Level != 3 {
		t.Fatalf("expected stats for levels 1 and 3, got %+v", resp.Levels)
	}
	if resp.Levels[0].Projections != 1 || resp.Levels[0].Placeholders != 1 {
		t.Errorf("expected one level 1 projection with a placeholder, got %+v", resp.Levels[0])
	}
	if resp.Levels[1].Projections != 1 || resp.Levels[1].Blocks != 1 {
		t.Errorf("expected one level 3 projection of one block, got %+v", resp.Levels[1])
	}
}

func TestSessions(t *testing.T) {
	s := newTestServer(t, "")

	if rec := do(t, s, http.MethodPost, "/api/sessions", map[string]any{"locale": "fr"}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown locale, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/sessions", map[string]any{"level": 9}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid level, got %d", rec.Code)
	}

	rec := do(t, s, http.MethodPost, "/api/sessions", map[string]any{"level": 2, "locale": "zh-TW"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	snap := decode[session.Snapshot](t, rec)
	if snap.Level != 2 || snap.LevelName != "邏輯" || snap.Path != "" {
		t.Errorf("unexpected new session %+v", snap)
	}
	base := "/api/sessions/" + snap.ID

	rec = do(t, s, http.MethodPut, base+"/file", map[string]string{"path": "app.js"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	snap = decode[session.Snapshot](t, rec)
	if snap.Path != "app.js" || len(snap.Views) != 1 || strings.Contains(snap.Views[0].Markup, "raw_code") {
		t.Errorf("unexpected selection %+v", snap)
	}

	rec = do(t, s, http.MethodPut, base+"/level", map[string]int{"level": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if snap = decode[session.Snapshot](t, rec); !strings.Contains(snap.Views[0].Markup, "raw_code") {
		t.Error("expected raw code after switching to level 3")
	}

	if rec := do(t, s, http.MethodPut, base+"/level", map[string]int{"level": 0}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPut, base+"/file", map[string]string{"path": "nope.py"}); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPut, base+"/file", map[string]string{"path": ""}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty path, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, base, nil)
	if rec.Code != http.StatusOK || decode[session.Snapshot](t, rec).Level != 3 {
		t.Errorf("unexpected session state %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, s, http.MethodGet, "/api/sessions/unknown", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
