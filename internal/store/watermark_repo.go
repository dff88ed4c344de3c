package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gymgate/engine/internal/domain"
)

// WatermarkRepo persists the single SyncWatermark row.
type WatermarkRepo struct{}

// Get returns the watermark, or a zero watermark when none has been
// saved yet.
func (r *WatermarkRepo) Get(ctx context.Context, q Querier) (domain.SyncWatermark, error) {
	const query = `SELECT last_batch_id, last_report_unix FROM sync_watermark WHERE id = 1`

	row := q.QueryRowContext(ctx, query)

	var wm domain.SyncWatermark
	err := row.Scan(&wm.LastBatchID, &wm.LastReportUnix)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.SyncWatermark{}, nil
		}
		return domain.SyncWatermark{}, fmt.Errorf("get watermark: %w", err)
	}
	return wm, nil
}

// Save upserts the watermark.
func (r *WatermarkRepo) Save(ctx context.Context, q Querier, wm domain.SyncWatermark) error {
	const query = `INSERT INTO sync_watermark (id, last_batch_id, last_report_unix)
VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET last_batch_id = excluded.last_batch_id, last_report_unix = excluded.last_report_unix`
	if _, err := q.ExecContext(ctx, query, wm.LastBatchID, wm.LastReportUnix); err != nil {
		return fmt.Errorf("save watermark: %w", err)
	}
	return nil
}
