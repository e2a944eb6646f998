package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"vigil/internal/review"
)

type ResultsRepo struct {
	db *DB
}

func NewResultsRepo(db *DB) *ResultsRepo {
	return &ResultsRepo{db: db}
}

func (r *ResultsRepo) StartRun(ctx context.Context, runID, mode string, unitsTotal int) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO review_runs(run_id, mode, units_total)
VALUES ($1, $2, $3)
ON CONFLICT (run_id) DO UPDATE SET mode = EXCLUDED.mode, units_total = EXCLUDED.units_total`,
		runID, mode, unitsTotal)
	if err != nil {
		return fmt.Errorf("start run %s: %w", runID, err)
	}
	return nil
}

func (r *ResultsRepo) FinishRun(ctx context.Context, runID string, done, failed int, summary string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE review_runs
SET finished_at = now(), units_done = $2, units_failed = $3, summary = NULLIF($4,'')
WHERE run_id = $1`, runID, done, failed, summary)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

// UpsertUnitResult records a unit's terminal state. Re-running a unit in
// the same run replaces its previous row.
func (r *ResultsRepo) UpsertUnitResult(ctx context.Context, runID string, res review.Result) error {
	findings, err := json.Marshal(res.Findings)
	if err != nil {
		return fmt.Errorf("marshal findings for %s: %w", res.FilePath, err)
	}
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO unit_results(run_id, file_path, state, findings, summary, proposed_fix, fail_reason)
VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), NULLIF($7,''))
ON CONFLICT (run_id, file_path)
DO UPDATE SET state = EXCLUDED.state,
              findings = EXCLUDED.findings,
              summary = EXCLUDED.summary,
              proposed_fix = EXCLUDED.proposed_fix,
              fail_reason = EXCLUDED.fail_reason`,
		runID, res.FilePath, string(res.State), findings, res.Summary, res.ProposedFix, res.FailReason)
	if err != nil {
		return fmt.Errorf("upsert unit result %s: %w", res.FilePath, err)
	}
	return nil
}
