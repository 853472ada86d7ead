package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Fetch run kinds.
const (
	FetchKindVideos   = "videos"
	FetchKindFixtures = "fixtures"
)

// FetchRunStats are the counters written when a run finishes.
type FetchRunStats struct {
	ItemsFetched   int
	ItemsNew       int
	ItemsRechecked int
	ItemsFailed    int
}

// StartFetchRun records the start of a scheduler cycle for one source.
func (p *Pool) StartFetchRun(ctx context.Context, cycleID, kind, source string, startedAt time.Time) (int64, error) {
	if strings.TrimSpace(kind) == "" || strings.TrimSpace(source) == "" {
		return 0, fmt.Errorf("fetch run kind and source are required")
	}
	var id int64
	if err := p.QueryRow(ctx, `
INSERT INTO goals.fetch_runs (cycle_id, kind, source, status, started_at)
VALUES ($1::uuid, $2, $3, 'running', $4)
RETURNING fetch_run_id
`, cycleID, kind, source, startedAt.UTC()).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert fetch run: %w", err)
	}
	return id, nil
}

// FinishFetchRun closes a run. A non-nil runErr marks it failed.
func (p *Pool) FinishFetchRun(ctx context.Context, runID int64, stats FetchRunStats, cursor any, runErr error, finishedAt time.Time) error {
	status := "completed"
	var errText *string
	if runErr != nil {
		status = "failed"
		msg := runErr.Error()
		errText = &msg
	}

	var checkpoint datatypes.JSON
	if cursor != nil {
		raw, err := json.Marshal(cursor)
		if err != nil {
			return fmt.Errorf("marshal fetch run cursor: %w", err)
		}
		checkpoint = datatypes.JSON(raw)
	}

	if _, err := p.Exec(ctx, `
UPDATE goals.fetch_runs
SET
	status = $2,
	items_fetched = $3,
	items_new = $4,
	items_rechecked = $5,
	items_failed = $6,
	cursor_checkpoint = $7,
	error_message = $8,
	finished_at = $9
WHERE fetch_run_id = $1
`, runID, status, stats.ItemsFetched, stats.ItemsNew, stats.ItemsRechecked, stats.ItemsFailed, checkpoint, errText, finishedAt.UTC()); err != nil {
		return fmt.Errorf("finish fetch run: %w", err)
	}
	return nil
}

// CountCompletedCycles returns how many cycles of kind have finished, counting each cycle once
// regardless of how many sources it fetched.
func (p *Pool) CountCompletedCycles(ctx context.Context, kind string) (int64, error) {
	var n int64
	if err := p.QueryRow(ctx, `
SELECT COUNT(DISTINCT cycle_id)
FROM goals.fetch_runs
WHERE kind = $1 AND status = 'completed'
`, kind).Scan(&n); err != nil {
		return 0, fmt.Errorf("count completed cycles: %w", err)
	}
	return n, nil
}
