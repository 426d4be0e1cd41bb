// Package broadcast defines the port for pushing live triage events to connected clients.
package broadcast

import "context"

// Broadcaster sends real-time events to all connected clients.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// Event types pushed to clients.
const (
	EventStageStarted  = "triage.stage_started"
	EventStageFinished = "triage.stage_finished"
	EventRunCompleted  = "triage.run_completed"
)

// StageStartedEvent is pushed when a stage begins executing.
type StageStartedEvent struct {
	RunID string `json:"run_id"`
	Stage string `json:"stage"`
}

// StageFinishedEvent is pushed once per recorded stage.
type StageFinishedEvent struct {
	RunID      string   `json:"run_id"`
	Stage      string   `json:"stage"`
	Status     string   `json:"status"`
	Confidence *float64 `json:"confidence,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// RunCompletedEvent is pushed when a run has produced its result.
type RunCompletedEvent struct {
	RunID            string  `json:"run_id"`
	Category         string  `json:"category"`
	Priority         string  `json:"priority"`
	Verdict          string  `json:"verdict"`
	SystemConfidence float64 `json:"system_confidence"`
}
