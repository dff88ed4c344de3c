package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gymgate/engine/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB(t *testing.T) {
	db := newTestDB(t)

	// Verify tables were created by querying sqlite_master.
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		t.Fatalf("query tables: %v", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan table name: %v", err)
		}
		tables = append(tables, name)
	}

	expected := map[string]bool{
		"ledger_entries": true,
		"schedules":      true,
		"daily_limits":   true,
		"overrides":      true,
		"sync_watermark": true,
		"applied_usage":  true,
	}

	for _, tbl := range tables {
		delete(expected, tbl)
	}
	for tbl := range expected {
		t.Errorf("expected table %q not found", tbl)
	}
}

func TestNewDB_IdempotentMigration(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	db1, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("first NewDB: %v", err)
	}
	db1.Close()

	db2, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("second NewDB: %v", err)
	}
	db2.Close()
}

func TestLedgerRepo_AppendAndSums(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &LedgerRepo{}

	entries := []domain.LedgerEntry{
		{ID: "e1", Kind: domain.EntryEarn, Minutes: 10, Source: "session:s1", CreatedAt: 100},
		{ID: "e2", Kind: domain.EntrySpend, Minutes: 4, Source: "sync:b1", CreatedAt: 200},
		{ID: "e3", Kind: domain.EntryEarn, Minutes: 2.5, Source: "session:s2", CreatedAt: 300},
	}
	for _, e := range entries {
		if err := repo.Append(ctx, db, e); err != nil {
			t.Fatalf("append %s: %v", e.ID, err)
		}
	}

	earned, spent, err := repo.Sums(ctx, db)
	if err != nil {
		t.Fatalf("sums: %v", err)
	}
	if earned != 12.5 || spent != 4 {
		t.Errorf("expected earned=12.5 spent=4, got earned=%v spent=%v", earned, spent)
	}
}

func TestLedgerRepo_ListNewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &LedgerRepo{}

	for _, e := range []domain.LedgerEntry{
		{ID: "old", Kind: domain.EntryEarn, Minutes: 1, CreatedAt: 100},
		{ID: "mid", Kind: domain.EntryEarn, Minutes: 1, CreatedAt: 200},
		{ID: "new", Kind: domain.EntryEarn, Minutes: 1, CreatedAt: 300},
	} {
		if err := repo.Append(ctx, db, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	list, err := repo.List(ctx, db, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
	if list[0].ID != "new" || list[1].ID != "mid" {
		t.Errorf("expected [new mid], got [%s %s]", list[0].ID, list[1].ID)
	}
}

func TestLedgerRepo_DeleteAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &LedgerRepo{}

	if err := repo.Append(ctx, db, domain.LedgerEntry{ID: "e1", Kind: domain.EntryEarn, Minutes: 5, CreatedAt: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.DeleteAll(ctx, db); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	list, err := repo.List(ctx, db, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty ledger, got %d entries", len(list))
	}
}

func TestLimitRepo_SetPreservesUsage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &LimitRepo{}

	if err := repo.SetLimit(ctx, db, "games", 30); err != nil {
		t.Fatalf("set limit: %v", err)
	}
	if err := repo.SaveUsage(ctx, db, "games", 12, "2026-08-30"); err != nil {
		t.Fatalf("save usage: %v", err)
	}

	// Adjusting the cap must not reset the counter.
	if err := repo.SetLimit(ctx, db, "games", 45); err != nil {
		t.Fatalf("adjust limit: %v", err)
	}

	l, err := repo.Get(ctx, db, "games")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if l.LimitMinutes != 45 || l.UsedMinutes != 12 || l.DayKey != "2026-08-30" {
		t.Errorf("unexpected limit after adjust: %+v", l)
	}
}

func TestLimitRepo_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &LimitRepo{}

	if _, err := repo.Get(ctx, db, "missing"); err != domain.ErrLimitNotFound {
		t.Errorf("expected ErrLimitNotFound, got %v", err)
	}
	if err := repo.SaveUsage(ctx, db, "missing", 5, "2026-08-30"); err != domain.ErrLimitNotFound {
		t.Errorf("expected ErrLimitNotFound on save, got %v", err)
	}
	if err := repo.Delete(ctx, db, "missing"); err != domain.ErrLimitNotFound {
		t.Errorf("expected ErrLimitNotFound on delete, got %v", err)
	}
}

func TestOverrideRepo_PutReplacesAndPrunes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &OverrideRepo{}

	if err := repo.Put(ctx, db, domain.Override{AppID: "games", GrantedMinutes: 5, ExpiresAtUnix: 1000}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := repo.Put(ctx, db, domain.Override{AppID: "games", GrantedMinutes: 10, ExpiresAtUnix: 2000}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	o, err := repo.Get(ctx, db, "games")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if o.GrantedMinutes != 10 || o.ExpiresAtUnix != 2000 {
		t.Errorf("expected replaced override, got %+v", o)
	}

	if err := repo.DeleteExpired(ctx, db, 2000); err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if _, err := repo.Get(ctx, db, "games"); err != domain.ErrOverrideNotFound {
		t.Errorf("expected ErrOverrideNotFound after prune, got %v", err)
	}
}

func TestWatermarkRepo_ZeroThenUpsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &WatermarkRepo{}

	wm, err := repo.Get(ctx, db)
	if err != nil {
		t.Fatalf("get empty: %v", err)
	}
	if wm.LastBatchID != "" || wm.LastReportUnix != 0 {
		t.Errorf("expected zero watermark, got %+v", wm)
	}

	if err := repo.Save(ctx, db, domain.SyncWatermark{LastBatchID: "b1", LastReportUnix: 100}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Save(ctx, db, domain.SyncWatermark{LastBatchID: "b2", LastReportUnix: 200}); err != nil {
		t.Fatalf("resave: %v", err)
	}

	wm, err = repo.Get(ctx, db)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if wm.LastBatchID != "b2" || wm.LastReportUnix != 200 {
		t.Errorf("expected b2/200, got %+v", wm)
	}
}

func TestUsageRepo_AppliedRoundtrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &UsageRepo{}

	applied, err := repo.GetApplied(ctx, db, "games", "2026-08-30")
	if err != nil {
		t.Fatalf("get empty: %v", err)
	}
	if applied != 0 {
		t.Errorf("expected 0 applied, got %v", applied)
	}

	if err := repo.Upsert(ctx, db, "games", "2026-08-30", 7.5); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Upsert(ctx, db, "games", "2026-08-30", 9); err != nil {
		t.Fatalf("update: %v", err)
	}

	applied, err = repo.GetApplied(ctx, db, "games", "2026-08-30")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if applied != 9 {
		t.Errorf("expected 9 applied, got %v", applied)
	}

	// A different day is tracked independently.
	applied, err = repo.GetApplied(ctx, db, "games", "2026-08-31")
	if err != nil {
		t.Fatalf("get other day: %v", err)
	}
	if applied != 0 {
		t.Errorf("expected 0 for other day, got %v", applied)
	}
}

func TestScheduleRepo_Roundtrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &ScheduleRepo{}

	s := domain.Schedule{
		ID:     "homework",
		Name:   "Homework hours",
		Active: true,
		Days:   []int{1, 2, 3, 4, 5},
		Start:  "15:00",
		End:    "18:00",
		Apps:   []string{"games", "video"},
	}
	if err := repo.Put(ctx, db, s); err != nil {
		t.Fatalf("put: %v", err)
	}

	list, err := repo.List(ctx, db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 schedule, got %d", len(list))
	}
	if !reflect.DeepEqual(list[0], s) {
		t.Errorf("roundtrip mismatch:\n got %+v\nwant %+v", list[0], s)
	}
}

func TestScheduleRepo_ReplaceAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &ScheduleRepo{}

	old := domain.Schedule{ID: "old", Active: true, Days: []int{0}, Start: "09:00", End: "10:00", Apps: []string{"a"}}
	if err := repo.Put(ctx, db, old); err != nil {
		t.Fatalf("put: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	next := []domain.Schedule{
		{ID: "s1", Active: true, Days: []int{1}, Start: "09:00", End: "10:00", Apps: []string{"a"}},
		{ID: "s2", Active: false, Days: []int{2}, Start: "11:00", End: "12:00", Apps: []string{"b"}},
	}
	if err := repo.ReplaceAll(ctx, tx, next); err != nil {
		t.Fatalf("replace all: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	list, err := repo.List(ctx, db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 schedules, got %d", len(list))
	}
	if list[0].ID != "s1" || list[1].ID != "s2" {
		t.Errorf("expected [s1 s2], got [%s %s]", list[0].ID, list[1].ID)
	}
}

func TestScheduleRepo_DeleteNotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &ScheduleRepo{}

	if err := repo.Delete(ctx, db, "missing"); err != domain.ErrScheduleNotFound {
		t.Errorf("expected ErrScheduleNotFound, got %v", err)
	}
}
