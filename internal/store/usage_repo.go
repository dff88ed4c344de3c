package store

import (
	"context"
	"database/sql"
	"fmt"
)

// UsageRepo tracks how much externally-reported usage has already been
// applied per app and day, so the sync coordinator can turn
// usage-so-far reports into deltas. Rows exist for every reported app,
// including apps outside the economy and without a daily limit.
type UsageRepo struct{}

// GetApplied returns the minutes already applied for an app on a day,
// or 0 when nothing has been applied.
func (r *UsageRepo) GetApplied(ctx context.Context, q Querier, appID, dayKey string) (float64, error) {
	const query = `SELECT applied_minutes FROM applied_usage WHERE app_id = ? AND day_key = ?`

	row := q.QueryRowContext(ctx, query, appID, dayKey)

	var applied float64
	err := row.Scan(&applied)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("get applied usage: %w", err)
	}
	return applied, nil
}

// Upsert records the total applied minutes for an app and day.
func (r *UsageRepo) Upsert(ctx context.Context, q Querier, appID, dayKey string, appliedMinutes float64) error {
	const query = `INSERT INTO applied_usage (app_id, day_key, applied_minutes)
VALUES (?, ?, ?)
ON CONFLICT(app_id, day_key) DO UPDATE SET applied_minutes = excluded.applied_minutes`
	if _, err := q.ExecContext(ctx, query, appID, dayKey, appliedMinutes); err != nil {
		return fmt.Errorf("upsert applied usage: %w", err)
	}
	return nil
}
