package store

import (
	"context"
	"fmt"

	"github.com/gymgate/engine/internal/domain"
)

// LedgerRepo handles persistence for wallet LedgerEntry records.
// The table is append-only; DeleteAll exists solely for the explicit
// wallet reset operation.
type LedgerRepo struct{}

// Append inserts a ledger entry.
func (r *LedgerRepo) Append(ctx context.Context, q Querier, entry domain.LedgerEntry) error {
	const query = `INSERT INTO ledger_entries (id, kind, minutes, source, created_at)
VALUES (?, ?, ?, ?, ?)`
	_, err := q.ExecContext(ctx, query,
		entry.ID,
		string(entry.Kind),
		entry.Minutes,
		entry.Source,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

// Sums returns the total earned and spent minutes over all entries.
func (r *LedgerRepo) Sums(ctx context.Context, q Querier) (earned, spent float64, err error) {
	const query = `SELECT
	COALESCE(SUM(CASE WHEN kind = 'earn' THEN minutes ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN kind = 'spend' THEN minutes ELSE 0 END), 0)
FROM ledger_entries`

	row := q.QueryRowContext(ctx, query)
	if err := row.Scan(&earned, &spent); err != nil {
		return 0, 0, fmt.Errorf("sum ledger entries: %w", err)
	}
	return earned, spent, nil
}

// List returns the most recent entries, newest first, up to limit.
// A limit of 0 or less returns all entries.
func (r *LedgerRepo) List(ctx context.Context, q Querier, limit int) ([]domain.LedgerEntry, error) {
	query := `SELECT id, kind, minutes, source, created_at
FROM ledger_entries ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.Minutes, &e.Source, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Kind = domain.EntryKind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteAll removes every entry. Only the wallet reset operation may
// call this.
func (r *LedgerRepo) DeleteAll(ctx context.Context, q Querier) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM ledger_entries`); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	return nil
}
