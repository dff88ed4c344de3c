package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gymgate/engine/internal/domain"
)

// OverrideRepo handles persistence for Override records. One override
// per app; granting again replaces the previous one.
type OverrideRepo struct{}

// Put inserts or replaces the override for an app.
func (r *OverrideRepo) Put(ctx context.Context, q Querier, o domain.Override) error {
	const query = `INSERT OR REPLACE INTO overrides (app_id, granted_minutes, expires_at)
VALUES (?, ?, ?)`
	if _, err := q.ExecContext(ctx, query, o.AppID, o.GrantedMinutes, o.ExpiresAtUnix); err != nil {
		return fmt.Errorf("put override: %w", err)
	}
	return nil
}

// Get retrieves the override for an app, expired or not.
func (r *OverrideRepo) Get(ctx context.Context, q Querier, appID string) (*domain.Override, error) {
	const query = `SELECT app_id, granted_minutes, expires_at FROM overrides WHERE app_id = ?`

	row := q.QueryRowContext(ctx, query, appID)

	var o domain.Override
	err := row.Scan(&o.AppID, &o.GrantedMinutes, &o.ExpiresAtUnix)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrOverrideNotFound
		}
		return nil, fmt.Errorf("get override: %w", err)
	}
	return &o, nil
}

// DeleteExpired prunes overrides whose expiry is at or before nowUnix.
func (r *OverrideRepo) DeleteExpired(ctx context.Context, q Querier, nowUnix int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM overrides WHERE expires_at <= ?`, nowUnix); err != nil {
		return fmt.Errorf("delete expired overrides: %w", err)
	}
	return nil
}
