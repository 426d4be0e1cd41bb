package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/TicketForge/internal/middleware"
)

// memCache is an in-memory cache.Cache.
type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func makeTestHandler(counter *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*counter++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, *counter)
	})
}

func post(h http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_NoHeader(t *testing.T) {
	counter := 0
	store := newMemCache()
	handler := middleware.Idempotency(store, time.Hour)(makeTestHandler(&counter, http.StatusOK))

	post(handler, "/triage", "")
	post(handler, "/triage", "")

	if counter != 2 {
		t.Fatalf("expected 2 calls, got %d", counter)
	}
	if store.len() != 0 {
		t.Fatal("nothing should be stored without a key")
	}
}

func TestIdempotency_SecondRequestReplays(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(newMemCache(), time.Hour)(makeTestHandler(&counter, http.StatusOK))

	first := post(handler, "/triage", "key-2")
	second := post(handler, "/triage", "key-2")

	if counter != 1 {
		t.Fatalf("expected handler called once, got %d", counter)
	}
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body %q, want %q", second.Body.String(), first.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("expected Idempotent-Replayed header on replay")
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("content type not replayed: %q", second.Header().Get("Content-Type"))
	}
}

func TestIdempotency_ErrorsNotStored(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(newMemCache(), time.Hour)(makeTestHandler(&counter, http.StatusServiceUnavailable))

	post(handler, "/triage", "key-busy")
	post(handler, "/triage", "key-busy")

	if counter != 2 {
		t.Fatalf("failed responses must not be replayed, got %d calls", counter)
	}
}

func TestIdempotency_ScopedByPath(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(newMemCache(), time.Hour)(makeTestHandler(&counter, http.StatusCreated))

	post(handler, "/triage/runs/a/feedback", "same")
	post(handler, "/triage/runs/b/feedback", "same")

	if counter != 2 {
		t.Fatalf("expected 2 calls, got %d", counter)
	}
}

func TestIdempotency_GETIgnored(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(newMemCache(), time.Hour)(makeTestHandler(&counter, http.StatusOK))

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/triage/runs", http.NoBody)
		req.Header.Set("Idempotency-Key", "key-get")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if counter != 2 {
		t.Fatalf("expected 2 calls, got %d", counter)
	}
}

func TestIdempotency_KeyTooLong(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(newMemCache(), time.Hour)(makeTestHandler(&counter, http.StatusOK))

	rec := post(handler, "/triage", strings.Repeat("k", 256))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if counter != 0 {
		t.Fatal("handler must not run for a rejected key")
	}
}

func TestIdempotency_StoreErrorFallsThrough(t *testing.T) {
	counter := 0
	store := newMemCache()
	store.getErr = errors.New("kv down")
	handler := middleware.Idempotency(store, time.Hour)(makeTestHandler(&counter, http.StatusOK))

	if rec := post(handler, "/triage", "k"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if counter != 1 {
		t.Fatalf("expected 1 call, got %d", counter)
	}
}

func TestIdempotency_NilStoreDisabled(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(nil, time.Hour)(makeTestHandler(&counter, http.StatusOK))
	post(handler, "/triage", "k")
	post(handler, "/triage", "k")
	if counter != 2 {
		t.Fatalf("expected 2 calls, got %d", counter)
	}
}
