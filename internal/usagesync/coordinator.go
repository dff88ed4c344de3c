// Package usagesync reconciles externally-measured app usage against
// the wallet and the daily limit counters, applying each reported
// batch exactly once.
package usagesync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/gymgate/engine/internal/access"
	"github.com/gymgate/engine/internal/domain"
	"github.com/gymgate/engine/internal/store"
	"github.com/gymgate/engine/internal/wallet"
)

// Source supplies the current usage batch from the host's OS-level
// counter. It must return an error when unreachable rather than a
// zero-usage report.
type Source interface {
	Fetch(ctx context.Context) (domain.UsageReport, error)
}

// Coordinator applies usage reports to the wallet and limit engine.
// Wallet spend, limit counters, applied-usage tracking, and the
// watermark all commit in one transaction, so a failed tick leaves
// every piece untouched and the next trigger retries in full.
type Coordinator struct {
	db        store.TxBeginner
	wallet    *wallet.Wallet
	access    *access.Engine
	watermark *store.WatermarkRepo
	usage     *store.UsageRepo
	tracked   map[string]bool
	source    Source

	group singleflight.Group
}

// NewCoordinator creates a sync coordinator. tracked lists the apps
// whose usage spends wallet minutes; source may be nil when the host
// only pushes reports.
func NewCoordinator(db store.TxBeginner, w *wallet.Wallet, a *access.Engine, tracked map[string]bool, source Source) *Coordinator {
	return &Coordinator{
		db:        db,
		wallet:    w,
		access:    a,
		watermark: &store.WatermarkRepo{},
		usage:     &store.UsageRepo{},
		tracked:   tracked,
		source:    source,
	}
}

// Tick pulls a report from the source and applies it. Ticks are
// debounced: a tick already in flight absorbs concurrent triggers
// instead of running two reconciliations at once. Returns whether the
// batch was applied; an unreachable source yields (false, error) with
// no state touched.
func (c *Coordinator) Tick(ctx context.Context) (bool, error) {
	v, err, _ := c.group.Do("tick", func() (any, error) {
		if c.source == nil {
			return false, domain.ErrUsageSourceNotSet
		}
		report, err := c.source.Fetch(ctx)
		if err != nil {
			return false, domain.WrapEngineError(domain.ErrUsageSourceUnavailable.Code, domain.ErrUsageSourceUnavailable.Message, err)
		}
		return c.apply(ctx, report)
	})
	applied, _ := v.(bool)
	return applied, err
}

// Apply applies a host-pushed report, with the same debounce and
// idempotence guarantees as Tick.
func (c *Coordinator) Apply(ctx context.Context, report domain.UsageReport) (bool, error) {
	v, err, _ := c.group.Do("tick", func() (any, error) {
		return c.apply(ctx, report)
	})
	applied, _ := v.(bool)
	return applied, err
}

func (c *Coordinator) apply(ctx context.Context, report domain.UsageReport) (bool, error) {
	if report.BatchID == "" || report.DayKey == "" {
		return false, domain.ErrReportInvalid
	}

	wm, err := c.watermark.Get(ctx, c.db)
	if err != nil {
		return false, err
	}
	if report.BatchID == wm.LastBatchID {
		log.Debug().Str("batch", report.BatchID).Msg("duplicate sync batch ignored")
		return false, nil
	}
	if report.ReportedAtUnix != 0 && report.ReportedAtUnix <= wm.LastReportUnix {
		log.Debug().Str("batch", report.BatchID).Msg("stale sync batch ignored")
		return false, nil
	}

	apps := make([]string, 0, len(report.UsedMinutes))
	for app := range report.UsedMinutes {
		apps = append(apps, app)
	}
	sort.Strings(apps)

	err = c.wallet.Locked(func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		for _, app := range apps {
			used := report.UsedMinutes[app]

			applied, err := c.usage.GetApplied(ctx, tx, app, report.DayKey)
			if err != nil {
				return err
			}
			delta := used - applied
			if delta <= 0 {
				continue
			}

			if c.tracked[app] {
				if _, err := c.wallet.SpendTx(ctx, tx, delta, "sync:"+report.BatchID); err != nil {
					return err
				}
			}

			hasLimit, err := c.access.HasLimit(ctx, tx, app)
			if err != nil {
				return err
			}
			if hasLimit {
				if err := c.access.RecordUsageTx(ctx, tx, app, delta, report.DayKey); err != nil {
					return err
				}
			}

			// Apps outside the economy and without a limit still get
			// their applied total recorded, keeping future deltas
			// correct and the history available for statistics.
			if err := c.usage.Upsert(ctx, tx, app, report.DayKey, used); err != nil {
				return err
			}
		}

		if err := c.watermark.Save(ctx, tx, domain.SyncWatermark{
			LastBatchID:    report.BatchID,
			LastReportUnix: report.ReportedAtUnix,
		}); err != nil {
			return err
		}

		return tx.Commit()
	})
	if err != nil {
		return false, err
	}

	log.Info().Str("batch", report.BatchID).Int("apps", len(apps)).Msg("usage batch applied")
	return true, nil
}

// Run applies ticks on a fixed interval until the context is
// canceled. Failed ticks are retried by the next interval; the
// interval itself rate-limits retries.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Tick(ctx); err != nil {
				log.Warn().Err(err).Msg("sync tick failed")
			}
		}
	}
}
