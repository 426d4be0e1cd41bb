package messagequeue

// RunCompletedPayload is the schema for triage.run.completed messages.
type RunCompletedPayload struct {
	RunID            string  `json:"run_id"`
	Category         string  `json:"category"`
	Priority         string  `json:"priority"`
	Sentiment        string  `json:"sentiment"`
	Verdict          string  `json:"verdict"`
	SystemConfidence float64 `json:"system_confidence"`
	DegradedStages   int     `json:"degraded_stages"`
	DurationMS       int64   `json:"duration_ms"`
}

// StageProgressPayload is the schema for triage.stage.progress messages.
type StageProgressPayload struct {
	RunID      string   `json:"run_id"`
	Stage      string   `json:"stage"`
	Status     string   `json:"status"`
	Confidence *float64 `json:"confidence,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// FeedbackRecordedPayload is the schema for triage.feedback.recorded messages.
type FeedbackRecordedPayload struct {
	CorrectionID      string `json:"correction_id"`
	RunID             string `json:"run_id"`
	Source            string `json:"source"`
	OriginalCategory  string `json:"original_category"`
	CorrectedCategory string `json:"corrected_category,omitempty"`
	Rating            int    `json:"rating,omitempty"`
}
