package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Strob0t/TicketForge/internal/domain"
	"github.com/Strob0t/TicketForge/internal/domain/feedback"
	"github.com/Strob0t/TicketForge/internal/domain/knowledge"
	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/port/messagequeue"
)

// fakeStore is an in-memory database.Store.
type fakeStore struct {
	mu          sync.Mutex
	runs        map[string]*triage.Result
	corrections []feedback.Correction
	docs        map[string]knowledge.Document
	saveErr     error
	upsertErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		runs: make(map[string]*triage.Result),
		docs: make(map[string]knowledge.Document),
	}
}

func (s *fakeStore) SaveRun(_ context.Context, res *triage.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.runs[res.RunID] = res
	return nil
}

func (s *fakeStore) GetRun(_ context.Context, id string) (*triage.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("get run %s: %w", id, domain.ErrNotFound)
	}
	return res, nil
}

func (s *fakeStore) ListRuns(_ context.Context, limit int) ([]triage.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]triage.Summary, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.Summarize())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) CreateCorrection(_ context.Context, c *feedback.Correction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = fmt.Sprintf("corr-%d", len(s.corrections)+1)
	c.CreatedAt = time.Now()
	s.corrections = append(s.corrections, *c)
	return nil
}

func (s *fakeStore) ListCorrections(_ context.Context, runID string) ([]feedback.Correction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []feedback.Correction
	for _, c := range s.corrections {
		if c.RunID == runID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) ListDocuments(_ context.Context) ([]knowledge.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]knowledge.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) UpsertDocument(_ context.Context, d *knowledge.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	d.UpdatedAt = time.Now()
	s.docs[d.ID] = *d
	return nil
}

type publishedMsg struct {
	subject string
	data    []byte
}

// fakeQueue implements messagequeue.Queue for testing.
type fakeQueue struct {
	mu         sync.Mutex
	published  []publishedMsg
	publishErr error
	handlers   map[string]messagequeue.Handler
}

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, publishedMsg{subject, data})
	return nil
}

func (q *fakeQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.handlers == nil {
		q.handlers = map[string]messagequeue.Handler{}
	}
	q.handlers[subject] = h
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.handlers, subject)
	}, nil
}

// deliver hands data to the handler subscribed on subject.
func (q *fakeQueue) deliver(ctx context.Context, subject string, data []byte) error {
	q.mu.Lock()
	h, ok := q.handlers[subject]
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("no subscriber for %s", subject)
	}
	return h(ctx, subject, data)
}

func (q *fakeQueue) Drain() error      { return nil }
func (q *fakeQueue) Close() error      { return nil }
func (q *fakeQueue) IsConnected() bool { return true }

// bySubject decodes every message published on subject into T.
func bySubject[T any](q *fakeQueue, subject string) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []T
	for _, m := range q.published {
		if m.subject != subject {
			continue
		}
		var v T
		if err := json.Unmarshal(m.data, &v); err == nil {
			out = append(out, v)
		}
	}
	return out
}

type broadcastEvent struct {
	eventType string
	payload   any
}

// fakeBroadcaster records broadcast events.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (b *fakeBroadcaster) BroadcastEvent(_ context.Context, eventType string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{eventType, payload})
}

func (b *fakeBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.eventType
	}
	return out
}

// memCache is an in-memory cache.Cache; failGet makes every Get error.
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
	sets    int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

var errCacheDown = errors.New("cache down")

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, false, errCacheDown
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
