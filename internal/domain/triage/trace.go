package triage

import (
	"fmt"
	"sync"
)

// Trace is the ordered, finalized record of all stage outcomes for one run.
type Trace struct {
	Entries []StageResult `json:"entries"`
}

// Len returns the number of recorded stages.
func (t Trace) Len() int { return len(t.Entries) }

// Get returns the entry for stage, if recorded.
func (t Trace) Get(stage Stage) (StageResult, bool) {
	for i := range t.Entries {
		if t.Entries[i].Stage == stage {
			return t.Entries[i], true
		}
	}
	return StageResult{}, false
}

// Recorder is the append-only trace log of one run. It is safe for concurrent
// use; entries keep append order. After Finalize no more entries are accepted.
type Recorder struct {
	mu        sync.Mutex
	entries   []StageResult
	seen      map[Stage]struct{}
	finalized bool
	onAppend  func(StageResult)
}

// NewRecorder creates an empty Recorder. onAppend, when non-nil, is called
// synchronously after every successful Append (outside the lock).
func NewRecorder(onAppend func(StageResult)) *Recorder {
	return &Recorder{
		entries:  make([]StageResult, 0, len(Stages)),
		seen:     make(map[Stage]struct{}, len(Stages)),
		onAppend: onAppend,
	}
}

// Append records one stage result. A stage may be recorded only once.
func (r *Recorder) Append(res StageResult) error {
	r.mu.Lock()
	if r.finalized {
		r.mu.Unlock()
		return fmt.Errorf("append %s: %w", res.Stage, ErrTraceFinalized)
	}
	if _, dup := r.seen[res.Stage]; dup {
		r.mu.Unlock()
		return fmt.Errorf("append %s: %w", res.Stage, ErrDuplicateStage)
	}
	r.seen[res.Stage] = struct{}{}
	r.entries = append(r.entries, res)
	r.mu.Unlock()

	if r.onAppend != nil {
		r.onAppend(res)
	}
	return nil
}

// Has reports whether stage has been recorded.
func (r *Recorder) Has(stage Stage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[stage]
	return ok
}

// Len returns the number of recorded entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Snapshot returns a copy of the entries recorded so far, for progress views.
func (r *Recorder) Snapshot() []StageResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StageResult, len(r.entries))
	copy(out, r.entries)
	return out
}

// Finalize seals the recorder and returns the immutable Trace. Calling it
// again returns the same entries.
func (r *Recorder) Finalize() Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalized = true
	out := make([]StageResult, len(r.entries))
	copy(out, r.entries)
	return Trace{Entries: out}
}
