package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/TicketForge/internal/domain/triage"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Runs ---

// SaveRun stores a finished run. The full result, trace included, is kept as
// JSONB; the columns hold what listings and feedback need.
func (s *Store) SaveRun(ctx context.Context, res *triage.Result) error {
	body, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", res.RunID, err)
	}
	sum := res.Summarize()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO triage_runs (id, category, priority, sentiment, verdict, system_confidence, degraded_stages, result, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		res.RunID, res.Category, res.Priority, res.Sentiment, string(res.Verdict.Label),
		res.SystemConfidence, sum.Degraded, body, res.StartedAt)
	if err != nil {
		return fmt.Errorf("save run %s: %w", res.RunID, err)
	}
	return nil
}

// GetRun loads a stored run.
func (s *Store) GetRun(ctx context.Context, id string) (*triage.Result, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT result FROM triage_runs WHERE id = $1`, id).Scan(&body)
	if err != nil {
		return nil, notFoundWrap(err, "get run %s", id)
	}

	var res triage.Result
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", id, err)
	}
	return &res, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]triage.Summary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, category, priority, verdict, system_confidence, degraded_stages, started_at
		 FROM triage_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []triage.Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return orEmpty(out), rows.Err()
}

func scanSummary(row scannable) (triage.Summary, error) {
	var (
		sum     triage.Summary
		verdict string
	)
	if err := row.Scan(&sum.RunID, &sum.Category, &sum.Priority, &verdict,
		&sum.SystemConfidence, &sum.Degraded, &sum.StartedAt); err != nil {
		return sum, fmt.Errorf("scan run summary: %w", err)
	}
	sum.Verdict = triage.VerdictLabel(verdict)
	return sum, nil
}
