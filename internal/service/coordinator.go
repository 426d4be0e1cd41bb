package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	cfotel "github.com/Strob0t/TicketForge/internal/adapter/otel"
	"github.com/Strob0t/TicketForge/internal/config"
	"github.com/Strob0t/TicketForge/internal/domain"
	"github.com/Strob0t/TicketForge/internal/domain/knowledge"
	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/logger"
	"github.com/Strob0t/TicketForge/internal/port/capability"
)

// PipelineOptions bounds one pipeline run.
type PipelineOptions struct {
	RunTimeout    time.Duration
	StageTimeouts map[triage.Stage]time.Duration
	TopK          int
}

// PipelineOptionsFromConfig converts the pipeline config section.
func PipelineOptionsFromConfig(p config.Pipeline) PipelineOptions {
	return PipelineOptions{
		RunTimeout: p.RunTimeout,
		StageTimeouts: map[triage.Stage]time.Duration{
			triage.StageClassifier:  p.ClassifierTimeout,
			triage.StagePriority:    p.PriorityTimeout,
			triage.StageSentiment:   p.SentimentTimeout,
			triage.StageRetriever:   p.RetrieverTimeout,
			triage.StageResponder:   p.ResponderTimeout,
			triage.StageAdversarial: p.ReviewerTimeout,
		},
		TopK: p.RetrievalTopK,
	}
}

func (o *PipelineOptions) validate() error {
	var errs []error
	if o.RunTimeout <= 0 {
		errs = append(errs, errors.New("run timeout must be > 0"))
	}
	for _, s := range triage.Stages {
		if o.StageTimeouts[s] <= 0 {
			errs = append(errs, fmt.Errorf("%s timeout must be > 0", s))
		}
	}
	if o.TopK < 1 {
		errs = append(errs, errors.New("retrieval top-k must be >= 1"))
	}
	return errors.Join(errs...)
}

// StageObserver receives live stage progress. Phase 1 stages run
// concurrently, so implementations must be safe for concurrent use.
type StageObserver interface {
	StageStarted(ctx context.Context, runID string, stage triage.Stage)
	StageFinished(ctx context.Context, runID string, res triage.StageResult)
}

// Coordinator executes the fixed triage graph: classifier, priority and
// sentiment concurrently, then retrieval, response generation and adversarial
// review, then confidence aggregation. A run never fails as a whole; degraded
// stages are visible in the trace.
type Coordinator struct {
	caps    capability.Set
	opts    PipelineOptions
	metrics *cfotel.Metrics

	mu        sync.RWMutex
	observers []StageObserver

	// beforePhase runs before each phase starts. Tests use it to stall a run.
	beforePhase func(ctx context.Context, next triage.State)
}

// NewCoordinator validates the wiring and returns a Coordinator.
func NewCoordinator(caps capability.Set, opts PipelineOptions) (*Coordinator, error) {
	if err := caps.Validate(); err != nil {
		return nil, err
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("%w: pipeline options: %w", domain.ErrConfiguration, err)
	}
	return &Coordinator{caps: caps, opts: opts}, nil
}

// SetMetrics attaches otel instruments. Nil disables metrics.
func (c *Coordinator) SetMetrics(m *cfotel.Metrics) { c.metrics = m }

// AddObserver registers a live progress observer.
func (c *Coordinator) AddObserver(o StageObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// RunPipeline triages free text with no prior context.
func (c *Coordinator) RunPipeline(ctx context.Context, text string) *triage.Result {
	return c.Run(ctx, triage.Request{Body: text})
}

// Run executes one pipeline run to completion. It always returns a Result.
func (c *Coordinator) Run(ctx context.Context, req triage.Request) *triage.Result {
	r := &pipelineRun{
		c:              c,
		id:             uuid.NewString(),
		req:            req,
		start:          time.Now(),
		rec:            triage.NewRecorder(nil),
		classification: capability.Classification{Category: triage.FallbackCategory},
		priority:       capability.Label{Label: triage.FallbackPriority},
		sentiment:      capability.Label{Label: triage.FallbackSentiment},
		matches:        []knowledge.Match{},
		response:       fallbackResponse(),
		verdict:        triage.UnverifiedVerdict(),
	}

	ctx = logger.WithRunID(ctx, r.id)
	ctx, span := cfotel.StartRunSpan(ctx, r.id)
	c.metrics.RecordRunStarted(ctx)

	runCtx, cancel := context.WithTimeout(ctx, c.opts.RunTimeout)
	defer cancel()

	phases := []struct {
		state triage.State
		exec  func(context.Context)
	}{
		{triage.StatePhase1Running, r.phase1},
		{triage.StatePhase15Running, r.phase15},
		{triage.StatePhase2Running, r.phase2},
		{triage.StatePhase3Running, r.phase3},
	}
	for _, p := range phases {
		if c.beforePhase != nil {
			c.beforePhase(runCtx, p.state)
		}
		if reason, stop := interrupted(runCtx); stop {
			r.skipRemaining(ctx, reason)
			break
		}
		r.advance(ctx, p.state)
		p.exec(runCtx)
	}

	r.advance(ctx, triage.StateAggregating)
	res := r.aggregate()
	r.advance(ctx, triage.StateDone)

	degraded := res.Summarize().Degraded
	cfotel.EndRunSpan(span, res.Category, res.SystemConfidence, degraded)
	c.metrics.RecordRunCompleted(ctx, res.SystemConfidence, res.Duration, string(res.Verdict.Label))
	logger.FromContext(ctx).Info("triage run completed",
		"category", res.Category,
		"priority", res.Priority,
		"verdict", res.Verdict.Label,
		"system_confidence", res.SystemConfidence,
		"degraded_stages", degraded,
		"duration", res.Duration,
	)
	return res
}

func (c *Coordinator) notifyStarted(ctx context.Context, runID string, stage triage.Stage) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, o := range c.observers {
		o.StageStarted(ctx, runID, stage)
	}
}

func (c *Coordinator) notifyFinished(ctx context.Context, runID string, res triage.StageResult) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, o := range c.observers {
		o.StageFinished(ctx, runID, res)
	}
}

// interrupted reports whether the run context ended, and why.
func interrupted(ctx context.Context) (string, bool) {
	switch err := ctx.Err(); {
	case errors.Is(err, context.DeadlineExceeded):
		return triage.ReasonRunDeadline, true
	case err != nil:
		return triage.ReasonRunCancelled, true
	}
	return "", false
}

// pipelineRun is the mutable state of one run. It is confined to the
// coordinating goroutine except for the Phase 1 outcomes, which are written
// by distinct goroutines before the join.
type pipelineRun struct {
	c     *Coordinator
	id    string
	req   triage.Request
	start time.Time
	rec   *triage.Recorder
	sm    triage.Machine

	classification capability.Classification
	priority       capability.Label
	sentiment      capability.Label
	matches        []knowledge.Match
	response       capability.Response
	verdict        triage.Verdict
}

func (r *pipelineRun) advance(ctx context.Context, next triage.State) {
	if err := r.sm.Advance(next); err != nil {
		logger.FromContext(ctx).Error("run state", "error", err)
	}
}

func (r *pipelineRun) record(ctx context.Context, res triage.StageResult) {
	if err := r.rec.Append(res); err != nil {
		logger.FromContext(ctx).Error("record stage", "stage", res.Stage, "error", err)
	}
}

// execStage runs one stage with span, progress notifications and metrics.
func execStage[T any](ctx context.Context, r *pipelineRun, spec stageSpec[T], invoke stageInvoke[T]) stageOutcome[T] {
	spec.timeout = r.c.opts.StageTimeouts[spec.stage]
	stageCtx, span := cfotel.StartStageSpan(ctx, r.id, string(spec.stage))
	r.c.notifyStarted(stageCtx, r.id, spec.stage)

	out := runStage(stageCtx, spec, invoke)

	cfotel.EndStageSpan(span, string(out.result.Status), out.result.ConfidenceOr(0), out.result.Error)
	r.c.metrics.RecordStage(ctx, string(spec.stage), string(out.result.Status), out.result.Duration)
	r.c.notifyFinished(ctx, r.id, out.result)
	return out
}

// phase1 runs classifier, priority and sentiment concurrently and joins.
// Trace entries are appended after the join in scheduled order.
func (r *pipelineRun) phase1(ctx context.Context) {
	caps := r.c.caps
	text := r.req.Body

	var (
		cls      stageOutcome[capability.Classification]
		pri, sen stageOutcome[capability.Label]
		g        errgroup.Group
	)
	g.Go(func() error {
		cls = execStage(ctx, r, stageSpec[capability.Classification]{
			stage:              triage.StageClassifier,
			defaultConfidence:  triage.DefaultConfidence,
			fallback:           capability.Classification{Category: triage.FallbackCategory},
			fallbackConfidence: triage.FallbackConfidence,
		}, func(ctx context.Context) (capability.Classification, *float64, error) {
			out, err := caps.Classifier.Classify(ctx, text)
			if err != nil {
				return out, nil, err
			}
			if err := out.Validate(); err != nil {
				return out, nil, fmt.Errorf("%w: %w", triage.ErrAdapter, err)
			}
			return out, out.Confidence, nil
		})
		return nil
	})
	g.Go(func() error {
		pri = execStage(ctx, r, labelSpec(triage.StagePriority, triage.FallbackPriority), detect(caps.Priority, text))
		return nil
	})
	g.Go(func() error {
		sen = execStage(ctx, r, labelSpec(triage.StageSentiment, triage.FallbackSentiment), detect(caps.Sentiment, text))
		return nil
	})
	_ = g.Wait()

	r.classification, r.priority, r.sentiment = cls.value, pri.value, sen.value
	r.record(ctx, cls.result)
	r.record(ctx, pri.result)
	r.record(ctx, sen.result)
}

func labelSpec(stage triage.Stage, fallback string) stageSpec[capability.Label] {
	return stageSpec[capability.Label]{
		stage:              stage,
		defaultConfidence:  triage.DefaultConfidence,
		fallback:           capability.Label{Label: fallback},
		fallbackConfidence: triage.FallbackConfidence,
	}
}

func detect(d capability.LabelDetector, text string) stageInvoke[capability.Label] {
	return func(ctx context.Context) (capability.Label, *float64, error) {
		out, err := d.Detect(ctx, text)
		if err != nil {
			return out, nil, err
		}
		if err := out.Validate(); err != nil {
			return out, nil, fmt.Errorf("%w: %w", triage.ErrAdapter, err)
		}
		return out, out.Confidence, nil
	}
}

// phase15 retrieves knowledge for the predicted (or fallback) category.
func (r *pipelineRun) phase15(ctx context.Context) {
	topK := r.c.opts.TopK
	out := execStage(ctx, r, stageSpec[[]knowledge.Match]{
		stage:              triage.StageRetriever,
		defaultConfidence:  triage.RetrieverDefaultConfidence,
		fallback:           []knowledge.Match{},
		fallbackConfidence: triage.FallbackConfidence,
	}, func(ctx context.Context) ([]knowledge.Match, *float64, error) {
		ms, err := r.c.caps.Retriever.Retrieve(ctx, r.req.Body, r.classification.Category, topK)
		if err != nil {
			return nil, nil, err
		}
		ms, err = normalizeMatches(ms, topK)
		if err != nil {
			return nil, nil, err
		}
		return ms, nil, nil
	})
	r.matches = out.value
	r.record(ctx, out.result)
}

// normalizeMatches enforces the retrieval ordering contract on adapter output.
func normalizeMatches(ms []knowledge.Match, topK int) ([]knowledge.Match, error) {
	seen := make(map[string]int, len(ms))
	out := make([]knowledge.Match, 0, len(ms))
	for _, m := range ms {
		if !knowledge.ValidScore(m.Score) {
			return nil, fmt.Errorf("%w: match %s has invalid score %v", triage.ErrAdapter, m.ID, m.Score)
		}
		// Duplicate ids keep their best-scoring entry.
		if i, dup := seen[m.ID]; dup {
			if m.Score > out[i].Score {
				out[i] = m
			}
			continue
		}
		seen[m.ID] = len(out)
		out = append(out, m)
	}
	knowledge.SortMatches(out)
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// phase2 generates the response and restricts citations to offered matches.
func (r *pipelineRun) phase2(ctx context.Context) {
	in := capability.ResponseInput{
		Category:     r.classification.Category,
		Text:         r.req.Body,
		PriorContext: r.req.PriorContext,
		Context:      r.matches,
	}
	out := execStage(ctx, r, stageSpec[capability.Response]{
		stage:              triage.StageResponder,
		defaultConfidence:  triage.DefaultConfidence,
		fallback:           fallbackResponse(),
		fallbackConfidence: triage.FallbackConfidence,
	}, func(ctx context.Context) (capability.Response, *float64, error) {
		resp, err := r.c.caps.Responder.Respond(ctx, in)
		if err != nil {
			return resp, nil, err
		}
		if err := resp.Validate(); err != nil {
			return resp, nil, fmt.Errorf("%w: %w", triage.ErrAdapter, err)
		}
		resp.CitedIDs = filterCited(resp.CitedIDs, r.matches)
		return resp, resp.Confidence, nil
	})
	r.response = out.value
	r.record(ctx, out.result)
}

func fallbackResponse() capability.Response {
	return capability.Response{Text: triage.FallbackResponseMsg, CitedIDs: []string{}}
}

// filterCited keeps cited ids that were offered, in citation order, once each.
func filterCited(cited []string, offered []knowledge.Match) []string {
	allowed := make(map[string]struct{}, len(offered))
	for _, m := range offered {
		allowed[m.ID] = struct{}{}
	}
	out := make([]string, 0, len(cited))
	for _, id := range cited {
		if _, ok := allowed[id]; !ok {
			continue
		}
		delete(allowed, id)
		out = append(out, id)
	}
	return out
}

// phase3 reviews the generated response. Without a generated response there
// is nothing to review and the stage is skipped.
func (r *pipelineRun) phase3(ctx context.Context) {
	if !r.responded() {
		res := skippedResult(triage.StageAdversarial, triage.ReasonNoResponse,
			triage.UnverifiedVerdict(), triage.AdversarialFallbackConfidence)
		r.c.notifyFinished(ctx, r.id, res)
		r.record(ctx, res)
		return
	}

	in := capability.ReviewInput{OriginalText: r.req.Body, ResponseText: r.response.Text}
	out := execStage(ctx, r, stageSpec[triage.Verdict]{
		stage:              triage.StageAdversarial,
		defaultConfidence:  triage.DefaultConfidence,
		fallback:           triage.UnverifiedVerdict(),
		fallbackConfidence: triage.AdversarialFallbackConfidence,
	}, func(ctx context.Context) (triage.Verdict, *float64, error) {
		rev, err := r.c.caps.Reviewer.Review(ctx, in)
		if err != nil {
			return triage.Verdict{}, nil, err
		}
		if err := rev.Validate(); err != nil {
			return triage.Verdict{}, nil, fmt.Errorf("%w: %w", triage.ErrAdapter, err)
		}
		return rev.ToVerdict(), rev.Confidence, nil
	})
	out.value.Confidence = out.result.Confidence
	r.verdict = out.value
	r.record(ctx, out.result)
}

func (r *pipelineRun) responded() bool {
	for _, e := range r.rec.Snapshot() {
		if e.Stage == triage.StageResponder {
			return e.Status == triage.StatusSuccess
		}
	}
	return false
}

// skipRemaining records every unexecuted stage as skipped, in scheduled order.
func (r *pipelineRun) skipRemaining(ctx context.Context, reason string) {
	for _, stage := range triage.Stages {
		if r.rec.Has(stage) {
			continue
		}
		res := skippedResult(stage, reason, skipFallback(stage), skipConfidence(stage))
		r.c.notifyFinished(ctx, r.id, res)
		r.record(ctx, res)
	}
	logger.FromContext(ctx).Warn("run interrupted", "reason", reason, "state", r.sm.State())
}

func skipFallback(stage triage.Stage) any {
	switch stage {
	case triage.StageClassifier:
		return capability.Classification{Category: triage.FallbackCategory}
	case triage.StagePriority:
		return capability.Label{Label: triage.FallbackPriority}
	case triage.StageSentiment:
		return capability.Label{Label: triage.FallbackSentiment}
	case triage.StageRetriever:
		return []knowledge.Match{}
	case triage.StageResponder:
		return fallbackResponse()
	default:
		return triage.UnverifiedVerdict()
	}
}

func skipConfidence(stage triage.Stage) float64 {
	if stage == triage.StageAdversarial {
		return triage.AdversarialFallbackConfidence
	}
	return triage.FallbackConfidence
}

// aggregate finalizes the trace and builds the Result.
func (r *pipelineRun) aggregate() *triage.Result {
	trace := r.rec.Finalize()
	conf := func(stage triage.Stage) float64 {
		e, _ := trace.Get(stage)
		return e.ConfidenceOr(0)
	}

	breakdown := triage.Aggregate(triage.ConfidenceInputs{
		Classifier:  conf(triage.StageClassifier),
		Responder:   conf(triage.StageResponder),
		Adversarial: conf(triage.StageAdversarial),
		Verdict:     r.verdict.Label,
	})

	sources := r.response.CitedIDs
	if sources == nil {
		sources = []string{}
	}
	return &triage.Result{
		RunID:            r.id,
		Category:         r.classification.Category,
		Priority:         r.priority.Label,
		Sentiment:        r.sentiment.Label,
		ResponseText:     r.response.Text,
		Sources:          sources,
		SystemConfidence: breakdown.System,
		Confidence:       breakdown,
		Verdict:          r.verdict,
		Trace:            trace,
		StartedAt:        r.start,
		Duration:         time.Since(r.start),
	}
}
