package http

import (
	"net/http"

	"github.com/Strob0t/TicketForge/internal/domain/feedback"
	"github.com/Strob0t/TicketForge/internal/domain/knowledge"
	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/service"
)

const defaultBodyLimit = 1 << 20 // 1 MB

// Handlers holds the services behind the HTTP API.
type Handlers struct {
	Triage    *service.TriageService
	Feedback  *service.FeedbackService
	Knowledge *service.KnowledgeService
	BodyLimit int64
}

func (h *Handlers) bodyLimit() int64 {
	if h.BodyLimit > 0 {
		return h.BodyLimit
	}
	return defaultBodyLimit
}

// SubmitTriage handles POST /api/v1/triage. The run executes synchronously;
// the response carries the full result including the stage trace.
func (h *Handlers) SubmitTriage(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[triage.Request](w, r, h.bodyLimit())
	if !ok {
		return
	}
	res, err := h.Triage.Submit(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "triage failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListRuns handles GET /api/v1/triage/runs?limit=N.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runs, err := h.Triage.List(r.Context(), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if runs == nil {
		runs = []triage.Summary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /api/v1/triage/runs/{id}.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	handleGet(h.Triage.Get, "run not found")(w, r)
}

// CreateFeedback handles POST /api/v1/triage/runs/{id}/feedback.
func (h *Handlers) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[feedback.CreateRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}
	c, err := h.Feedback.Record(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "run not found")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListFeedback handles GET /api/v1/triage/runs/{id}/feedback.
func (h *Handlers) ListFeedback(w http.ResponseWriter, r *http.Request) {
	handleListByParam("id", h.Feedback.List, "run not found")(w, r)
}

type knowledgeListing struct {
	service.KnowledgeStatus
	Items []knowledge.Document `json:"items"`
}

// ListKnowledge handles GET /api/v1/knowledge.
func (h *Handlers) ListKnowledge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, knowledgeListing{
		KnowledgeStatus: h.Knowledge.Status(),
		Items:           h.Knowledge.List(r.Context()),
	})
}

// ReloadKnowledge handles POST /api/v1/knowledge/reload.
func (h *Handlers) ReloadKnowledge(w http.ResponseWriter, r *http.Request) {
	st, err := h.Knowledge.Reload(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}
