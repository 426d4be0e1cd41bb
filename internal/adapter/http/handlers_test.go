package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Strob0t/TicketForge/internal/adapter/corpus"
	"github.com/Strob0t/TicketForge/internal/adapter/heuristic"
	cfhttp "github.com/Strob0t/TicketForge/internal/adapter/http"
	"github.com/Strob0t/TicketForge/internal/adapter/ristretto"
	"github.com/Strob0t/TicketForge/internal/config"
	"github.com/Strob0t/TicketForge/internal/domain"
	"github.com/Strob0t/TicketForge/internal/domain/feedback"
	"github.com/Strob0t/TicketForge/internal/domain/knowledge"
	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/service"
)

// memStore implements database.Store in memory.
type memStore struct {
	mu          sync.Mutex
	runs        map[string]*triage.Result
	corrections []feedback.Correction
	docs        []knowledge.Document
}

func (m *memStore) SaveRun(_ context.Context, res *triage.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[res.RunID] = res
	return nil
}

func (m *memStore) GetRun(_ context.Context, id string) (*triage.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("get run %s: %w", id, domain.ErrNotFound)
}

func (m *memStore) ListRuns(_ context.Context, limit int) ([]triage.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []triage.Summary
	for _, r := range m.runs {
		if len(out) == limit {
			break
		}
		out = append(out, r.Summarize())
	}
	return out, nil
}

func (m *memStore) CreateCorrection(_ context.Context, c *feedback.Correction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = fmt.Sprintf("c-%d", len(m.corrections)+1)
	c.CreatedAt = time.Now()
	m.corrections = append(m.corrections, *c)
	return nil
}

func (m *memStore) ListCorrections(_ context.Context, runID string) ([]feedback.Correction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []feedback.Correction
	for _, c := range m.corrections {
		if c.RunID == runID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) ListDocuments(_ context.Context) ([]knowledge.Document, error) {
	return m.docs, nil
}

func (m *memStore) UpsertDocument(_ context.Context, d *knowledge.Document) error {
	m.docs = append(m.docs, *d)
	return nil
}

var testDocs = []knowledge.Document{
	{ID: "POL-REF-001", Title: "Refund policy", Content: "You may return items within 30 days for a full refund.", Categories: []string{"Refund"}},
	{ID: "POL-SHIP-001", Title: "Shipping times", Content: "Orders ship within 2 business days.", Categories: []string{"Shipping"}},
}

type testEnv struct {
	handler http.Handler
	store   *memStore
}

func newTestEnv(t *testing.T, mutate func(*cfhttp.RouterOptions)) *testEnv {
	t.Helper()

	snap, err := knowledge.NewSnapshot(testDocs[:1])
	if err != nil {
		t.Fatal(err)
	}
	c := corpus.New(snap)
	store := &memStore{runs: map[string]*triage.Result{}, docs: testDocs}

	pipeline := config.Defaults().Pipeline
	coord, err := service.NewCoordinator(heuristic.NewSet(c), service.PipelineOptionsFromConfig(pipeline))
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}

	h := &cfhttp.Handlers{
		Triage:    service.NewTriageService(coord, store, nil, 4),
		Feedback:  service.NewFeedbackService(store, nil),
		Knowledge: service.NewKnowledgeService(c, corpus.StoreLoader{Store: store}, store),
		BodyLimit: 4 << 10,
	}
	opts := cfhttp.RouterOptions{
		Server:      config.Server{CORSOrigin: "*"},
		ServiceName: "ticketforge-test",
	}
	if mutate != nil {
		mutate(&opts)
	}
	return &testEnv{handler: cfhttp.NewRouter(h, opts), store: store}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func (e *testEnv) submit(t *testing.T, text string) triage.Result {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/triage", `{"text":`+strconvQuote(text)+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[triage.Result](t, rec)
}

func strconvQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestSubmitTriage(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.submit(t, "I want a refund for my broken order, please return my money")

	if res.RunID == "" {
		t.Fatal("expected run id")
	}
	if res.Trace.Len() != len(triage.Stages) {
		t.Fatalf("expected %d trace entries, got %d", len(triage.Stages), res.Trace.Len())
	}
	if res.SystemConfidence < 0 || res.SystemConfidence > 1 {
		t.Fatalf("confidence out of range: %v", res.SystemConfidence)
	}
	if _, err := env.store.GetRun(context.Background(), res.RunID); err != nil {
		t.Fatalf("run was not persisted: %v", err)
	}
}

func TestSubmitTriage_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty text", `{"text":"   "}`, http.StatusBadRequest},
		{"not json", `text=hello`, http.StatusBadRequest},
		{"unknown field", `{"text":"hi","priority":"High"}`, http.StatusBadRequest},
		{"too large", `{"text":"` + strings.Repeat("a", 8<<10) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/triage", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSubmitTriage_IdempotencyKey(t *testing.T) {
	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	env := newTestEnv(t, func(o *cfhttp.RouterOptions) {
		o.Idempotency = c
		o.IdempotencyTTL = time.Hour
	})

	body := `{"text":"my order never arrived"}`
	first := env.do(t, http.MethodPost, "/api/v1/triage", body, "Idempotency-Key", "retry-1")
	second := env.do(t, http.MethodPost, "/api/v1/triage", body, "Idempotency-Key", "retry-1")
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected 200/200, got %d/%d", first.Code, second.Code)
	}
	a, b := decode[triage.Result](t, first), decode[triage.Result](t, second)
	if a.RunID != b.RunID {
		t.Fatalf("replay returned a new run: %s vs %s", a.RunID, b.RunID)
	}
	if len(env.store.runs) != 1 {
		t.Fatalf("expected 1 stored run, got %d", len(env.store.runs))
	}
}

func TestRuns_ListAndGet(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.submit(t, "where is my package, shipping is late")

	rec := env.do(t, http.MethodGet, "/api/v1/triage/runs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	runs := decode[[]triage.Summary](t, rec)
	if len(runs) != 1 || runs[0].RunID != res.RunID {
		t.Fatalf("unexpected runs %+v", runs)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/triage/runs/"+res.RunID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}
	if got := decode[triage.Result](t, rec); got.RunID != res.RunID {
		t.Fatalf("got run %q", got.RunID)
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/triage/runs/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/triage/runs?limit=abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestFeedback(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.submit(t, "I was charged twice on my invoice")
	path := "/api/v1/triage/runs/" + res.RunID + "/feedback"

	rec := env.do(t, http.MethodPost, path, `{"corrected_category":"billing","rating":4}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	c := decode[feedback.Correction](t, rec)
	if c.CorrectedCategory != "Billing" || c.RunID != res.RunID || c.OriginalCategory != res.Category {
		t.Fatalf("unexpected correction %+v", c)
	}

	if rec := env.do(t, http.MethodPost, path, `{"rating":7}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad rating, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/triage/runs/missing/feedback", `{"rating":3}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown run, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, path, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list feedback: %d", rec.Code)
	}
	if list := decode[[]feedback.Correction](t, rec); len(list) != 1 {
		t.Fatalf("expected 1 correction, got %d", len(list))
	}
}

func TestKnowledge_ListAndReload(t *testing.T) {
	env := newTestEnv(t, nil)

	type listing struct {
		Documents int                  `json:"documents"`
		Items     []knowledge.Document `json:"items"`
	}
	rec := env.do(t, http.MethodGet, "/api/v1/knowledge", "")
	if got := decode[listing](t, rec); got.Documents != 1 || len(got.Items) != 1 {
		t.Fatalf("unexpected listing %+v", got)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/knowledge/reload", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reload: %d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, "/api/v1/knowledge", "")
	if got := decode[listing](t, rec); got.Documents != 2 {
		t.Fatalf("expected 2 documents after reload, got %d", got.Documents)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, func(o *cfhttp.RouterOptions) {
		o.Checks = map[string]cfhttp.HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"nats":     func(context.Context) error { return errors.New("disconnected") },
		}
	})

	if rec := env.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("liveness: %d", rec.Code)
	}
	rec := env.do(t, http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readiness: expected 503, got %d", rec.Code)
	}
	report := decode[struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}](t, rec)
	if report.Checks["postgres"] != "ok" || report.Checks["nats"] != "disconnected" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestAPIKeyEnforced(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("k3y"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	env := newTestEnv(t, func(o *cfhttp.RouterOptions) { o.Server.APIKeyHash = string(hash) })

	if rec := env.do(t, http.MethodGet, "/api/v1/triage/runs", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/triage/runs", "", "X-API-Key", "k3y"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", rec.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/v1/", "", "X-Request-ID", "req-42")
	if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("X-Request-ID = %q", got)
	}
}
