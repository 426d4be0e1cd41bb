package triage

import "errors"

// ErrAdapter marks a capability call that failed or returned malformed output.
var ErrAdapter = errors.New("adapter error")

// ErrTimeout marks a stage or run deadline being exceeded.
var ErrTimeout = errors.New("timeout")

// ErrTraceFinalized is returned when appending to a finalized trace.
var ErrTraceFinalized = errors.New("trace is finalized")

// ErrDuplicateStage is returned when a stage is recorded twice in one trace.
var ErrDuplicateStage = errors.New("stage already recorded")
