// Package access decides, for any app identifier at any instant,
// whether access is currently blocked. It combines recurring schedule
// windows, per-app daily limits, and wallet-funded overrides.
package access

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gymgate/engine/internal/domain"
	"github.com/gymgate/engine/internal/store"
)

// Engine evaluates blocking decisions and owns the daily usage
// counters. It performs no wallet interaction: override funding and
// override enforcement stay decoupled.
type Engine struct {
	db        *sql.DB
	schedules *store.ScheduleRepo
	limits    *store.LimitRepo
	overrides *store.OverrideRepo
}

// NewEngine creates an access engine over the given database.
func NewEngine(db *sql.DB) *Engine {
	return &Engine{
		db:        db,
		schedules: &store.ScheduleRepo{},
		limits:    &store.LimitRepo{},
		overrides: &store.OverrideRepo{},
	}
}

// IsBlocked reports whether the app is blocked at the given instant.
func (e *Engine) IsBlocked(ctx context.Context, appID string, now time.Time) (bool, error) {
	decision, err := e.Decide(ctx, appID, now)
	if err != nil {
		return false, err
	}
	return decision.Blocked, nil
}

// Decide evaluates blocking with reasons. Precedence: an unexpired
// override unblocks unconditionally; otherwise a matching schedule
// window or an exhausted daily limit each suffice to block.
func (e *Engine) Decide(ctx context.Context, appID string, now time.Time) (domain.BlockDecision, error) {
	override, err := e.overrides.Get(ctx, e.db, appID)
	if err != nil && err != domain.ErrOverrideNotFound {
		return domain.BlockDecision{}, err
	}
	if override != nil && now.Unix() < override.ExpiresAtUnix {
		return domain.BlockDecision{
			Blocked: false,
			Reasons: []string{fmt.Sprintf("override active until %s", time.Unix(override.ExpiresAtUnix, 0).Format(time.RFC3339))},
		}, nil
	}

	var decision domain.BlockDecision

	schedules, err := e.schedules.List(ctx, e.db)
	if err != nil {
		return domain.BlockDecision{}, err
	}
	for _, s := range schedules {
		if scheduleMatches(s, appID, now) {
			decision.Blocked = true
			decision.Reasons = append(decision.Reasons, fmt.Sprintf("schedule %q window %s-%s", s.Name, s.Start, s.End))
			break
		}
	}

	limit, err := e.limits.Get(ctx, e.db, appID)
	if err != nil && err != domain.ErrLimitNotFound {
		return domain.BlockDecision{}, err
	}
	if limit != nil && limit.DayKey == domain.DayKey(now) && limit.UsedMinutes >= limit.LimitMinutes {
		decision.Blocked = true
		decision.Reasons = append(decision.Reasons, fmt.Sprintf("daily limit reached (%.1f/%.1f min)", limit.UsedMinutes, limit.LimitMinutes))
	}

	return decision, nil
}

// RecordUsage adds measured usage minutes to an app's daily counter.
// It is the only writer of the counter. A dayKey differing from the
// stored one resets the counter to the delta instead of accumulating
// onto a stale day.
func (e *Engine) RecordUsage(ctx context.Context, appID string, deltaMinutes float64, dayKey string) error {
	return e.RecordUsageTx(ctx, e.db, appID, deltaMinutes, dayKey)
}

// RecordUsageTx is RecordUsage running against a caller-owned
// transaction, for the sync coordinator's atomic apply.
func (e *Engine) RecordUsageTx(ctx context.Context, q store.Querier, appID string, deltaMinutes float64, dayKey string) error {
	limit, err := e.limits.Get(ctx, q, appID)
	if err != nil {
		return err
	}

	used := limit.UsedMinutes + deltaMinutes
	if limit.DayKey != dayKey {
		used = deltaMinutes
	}
	return e.limits.SaveUsage(ctx, q, appID, used, dayKey)
}

// GrantOverride records a temporary unblock for an app. The caller
// must already have debited the wallet for the granted minutes.
func (e *Engine) GrantOverride(ctx context.Context, appID string, minutes, durationMinutes float64, now time.Time) (domain.Override, error) {
	if minutes <= 0 || durationMinutes <= 0 {
		return domain.Override{}, domain.ErrNonPositiveAmount
	}

	o := domain.Override{
		AppID:          appID,
		GrantedMinutes: minutes,
		ExpiresAtUnix:  now.Add(time.Duration(durationMinutes * float64(time.Minute))).Unix(),
	}
	if err := e.overrides.Put(ctx, e.db, o); err != nil {
		return domain.Override{}, err
	}

	log.Info().Str("app", appID).Float64("minutes", minutes).Int64("expires_at", o.ExpiresAtUnix).Msg("override granted")
	return o, nil
}

// PruneExpired removes overrides that have lapsed. Safe to call at
// any time; expiry is also honored lazily during Decide.
func (e *Engine) PruneExpired(ctx context.Context, now time.Time) error {
	return e.overrides.DeleteExpired(ctx, e.db, now.Unix())
}

// HasLimit reports whether a daily limit exists for an app.
func (e *Engine) HasLimit(ctx context.Context, q store.Querier, appID string) (bool, error) {
	_, err := e.limits.Get(ctx, q, appID)
	if err == domain.ErrLimitNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetLimit creates or adjusts the daily cap for an app.
func (e *Engine) SetLimit(ctx context.Context, appID string, limitMinutes float64) error {
	if limitMinutes <= 0 {
		return domain.ErrNonPositiveAmount
	}
	return e.limits.SetLimit(ctx, e.db, appID, limitMinutes)
}

// Limits lists all configured daily limits.
func (e *Engine) Limits(ctx context.Context) ([]domain.DailyLimit, error) {
	return e.limits.List(ctx, e.db)
}

func scheduleMatches(s domain.Schedule, appID string, now time.Time) bool {
	if !s.Active {
		return false
	}

	listed := false
	for _, app := range s.Apps {
		if app == appID {
			listed = true
			break
		}
	}
	if !listed {
		return false
	}

	weekday := int(now.Weekday())
	onDay := false
	for _, d := range s.Days {
		if d == weekday {
			onDay = true
			break
		}
	}
	if !onDay {
		return false
	}

	start, err1 := minuteOfDay(s.Start)
	end, err2 := minuteOfDay(s.End)
	if err1 != nil || err2 != nil {
		// Malformed windows never block; validation rejects them at
		// creation so this only guards hand-edited rows.
		return false
	}

	minute := now.Hour()*60 + now.Minute()
	return minute >= start && minute < end
}
