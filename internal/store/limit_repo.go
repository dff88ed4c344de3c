package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gymgate/engine/internal/domain"
)

// LimitRepo handles persistence for DailyLimit records.
type LimitRepo struct{}

// SetLimit creates or adjusts the cap for an app without touching the
// usage counter.
func (r *LimitRepo) SetLimit(ctx context.Context, q Querier, appID string, limitMinutes float64) error {
	const query = `INSERT INTO daily_limits (app_id, limit_minutes, used_minutes, day_key)
VALUES (?, ?, 0.0, '')
ON CONFLICT(app_id) DO UPDATE SET limit_minutes = excluded.limit_minutes`
	if _, err := q.ExecContext(ctx, query, appID, limitMinutes); err != nil {
		return fmt.Errorf("set daily limit: %w", err)
	}
	return nil
}

// Get retrieves the daily limit for an app.
func (r *LimitRepo) Get(ctx context.Context, q Querier, appID string) (*domain.DailyLimit, error) {
	const query = `SELECT app_id, limit_minutes, used_minutes, day_key
FROM daily_limits WHERE app_id = ?`

	row := q.QueryRowContext(ctx, query, appID)

	var l domain.DailyLimit
	err := row.Scan(&l.AppID, &l.LimitMinutes, &l.UsedMinutes, &l.DayKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrLimitNotFound
		}
		return nil, fmt.Errorf("get daily limit: %w", err)
	}
	return &l, nil
}

// SaveUsage stores the usage counter and its day key for an app.
func (r *LimitRepo) SaveUsage(ctx context.Context, q Querier, appID string, usedMinutes float64, dayKey string) error {
	const query = `UPDATE daily_limits SET used_minutes = ?, day_key = ? WHERE app_id = ?`
	res, err := q.ExecContext(ctx, query, usedMinutes, dayKey, appID)
	if err != nil {
		return fmt.Errorf("save limit usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrLimitNotFound
	}
	return nil
}

// List returns all daily limits.
func (r *LimitRepo) List(ctx context.Context, q Querier) ([]domain.DailyLimit, error) {
	const query = `SELECT app_id, limit_minutes, used_minutes, day_key
FROM daily_limits ORDER BY app_id`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list daily limits: %w", err)
	}
	defer rows.Close()

	var limits []domain.DailyLimit
	for rows.Next() {
		var l domain.DailyLimit
		if err := rows.Scan(&l.AppID, &l.LimitMinutes, &l.UsedMinutes, &l.DayKey); err != nil {
			return nil, fmt.Errorf("scan daily limit: %w", err)
		}
		limits = append(limits, l)
	}
	return limits, rows.Err()
}

// Delete removes the limit for an app.
func (r *LimitRepo) Delete(ctx context.Context, q Querier, appID string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM daily_limits WHERE app_id = ?`, appID)
	if err != nil {
		return fmt.Errorf("delete daily limit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrLimitNotFound
	}
	return nil
}
