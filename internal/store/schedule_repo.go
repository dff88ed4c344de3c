package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/gymgate/engine/internal/domain"
)

// ScheduleRepo handles persistence for Schedule records. Day sets and
// app lists are stored as JSON arrays, matching how the settings
// collaborator edits them.
type ScheduleRepo struct{}

// Put inserts or replaces a schedule.
func (r *ScheduleRepo) Put(ctx context.Context, q Querier, s domain.Schedule) error {
	days, err := json.Marshal(s.Days)
	if err != nil {
		return fmt.Errorf("encode schedule days: %w", err)
	}
	apps, err := json.Marshal(s.Apps)
	if err != nil {
		return fmt.Errorf("encode schedule apps: %w", err)
	}

	const query = `INSERT OR REPLACE INTO schedules (schedule_id, name, active, days, start_time, end_time, apps)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = q.ExecContext(ctx, query,
		s.ID,
		s.Name,
		boolToInt(s.Active),
		string(days),
		s.Start,
		s.End,
		string(apps),
	)
	if err != nil {
		return fmt.Errorf("put schedule: %w", err)
	}
	return nil
}

// ReplaceAll swaps the full schedule set inside one transaction. Used
// when the settings collaborator rewrites the schedule file.
func (r *ScheduleRepo) ReplaceAll(ctx context.Context, tx *sql.Tx, schedules []domain.Schedule) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedules`); err != nil {
		return fmt.Errorf("clear schedules: %w", err)
	}
	for _, s := range schedules {
		if err := r.Put(ctx, tx, s); err != nil {
			return err
		}
	}
	return nil
}

// List returns all schedules.
func (r *ScheduleRepo) List(ctx context.Context, q Querier) ([]domain.Schedule, error) {
	const query = `SELECT schedule_id, name, active, days, start_time, end_time, apps
FROM schedules ORDER BY schedule_id`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		var s domain.Schedule
		var active int
		var days, apps string
		if err := rows.Scan(&s.ID, &s.Name, &active, &days, &s.Start, &s.End, &apps); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		s.Active = active != 0
		if err := json.Unmarshal([]byte(days), &s.Days); err != nil {
			return nil, fmt.Errorf("decode schedule days: %w", err)
		}
		if err := json.Unmarshal([]byte(apps), &s.Apps); err != nil {
			return nil, fmt.Errorf("decode schedule apps: %w", err)
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// Delete removes a schedule by ID.
func (r *ScheduleRepo) Delete(ctx context.Context, q Querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM schedules WHERE schedule_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
