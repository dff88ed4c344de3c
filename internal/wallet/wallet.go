// Package wallet maintains the append-only ledger of earned and spent
// screen-time minutes and its derived balance.
package wallet

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gymgate/engine/internal/domain"
	"github.com/gymgate/engine/internal/store"
)

// Wallet serializes every balance-affecting operation behind one
// mutex so that interleaved commits can never read-modify-write the
// balance inconsistently. The running balance is cached and falls
// back to a full fold over the ledger whenever it may be stale;
// observable behavior is identical to folding every time.
type Wallet struct {
	db     *sql.DB
	ledger *store.LedgerRepo

	mu      sync.Mutex
	balance float64
	valid   bool
}

// New creates a wallet over the given database.
func New(db *sql.DB) *Wallet {
	return &Wallet{
		db:     db,
		ledger: &store.LedgerRepo{},
	}
}

// CommitEarn appends an earn entry. Amounts that are not strictly
// positive are rejected as a no-op.
func (w *Wallet) CommitEarn(ctx context.Context, minutes float64, source string) (domain.LedgerEntry, error) {
	if minutes <= 0 {
		return domain.LedgerEntry{}, domain.ErrNonPositiveAmount
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	entry := domain.LedgerEntry{
		ID:        uuid.NewString(),
		Kind:      domain.EntryEarn,
		Minutes:   minutes,
		Source:    source,
		CreatedAt: time.Now().Unix(),
	}
	if err := w.ledger.Append(ctx, w.db, entry); err != nil {
		w.valid = false
		return domain.LedgerEntry{}, err
	}
	if w.valid {
		w.balance += minutes
	}

	log.Debug().Str("source", source).Float64("minutes", minutes).Msg("wallet earn committed")
	return entry, nil
}

// CommitSpend appends a spend entry, clamped to the available balance.
// It returns the minutes actually applied, which may be less than
// requested; the caller is responsible for reacting to a partial
// application. The balance never goes negative.
func (w *Wallet) CommitSpend(ctx context.Context, minutes float64, source string) (float64, error) {
	if minutes <= 0 {
		return 0, domain.ErrNonPositiveAmount
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	return w.spendLocked(ctx, w.db, minutes, source, true)
}

// SpendExact spends the full amount or nothing. It returns false
// without appending an entry when the balance cannot fully fund the
// request.
func (w *Wallet) SpendExact(ctx context.Context, minutes float64, source string) (bool, error) {
	if minutes <= 0 {
		return false, domain.ErrNonPositiveAmount
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	available, err := w.availableLocked(ctx, w.db)
	if err != nil {
		return false, err
	}
	if minutes > available {
		return false, nil
	}

	if _, err := w.spendLocked(ctx, w.db, minutes, source, true); err != nil {
		return false, err
	}
	return true, nil
}

// Locked runs fn while holding the wallet's serialization mutex. The
// sync coordinator wraps its whole transaction in Locked so that
// SpendTx composes with limit and watermark writes without inverting
// lock order against user-action commits (which take the mutex first
// and the database connection second).
func (w *Wallet) Locked(fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn()
}

// SpendTx performs a clamped spend inside a caller-owned transaction.
// The caller must hold the wallet mutex via Locked. The cached
// balance is invalidated because the transaction may still roll back.
func (w *Wallet) SpendTx(ctx context.Context, tx *sql.Tx, minutes float64, source string) (float64, error) {
	if minutes <= 0 {
		return 0, domain.ErrNonPositiveAmount
	}

	applied, err := w.spendLocked(ctx, tx, minutes, source, false)
	w.valid = false
	return applied, err
}

// Snapshot returns the derived balance.
func (w *Wallet) Snapshot(ctx context.Context) (domain.WalletSnapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	available, err := w.availableLocked(ctx, w.db)
	if err != nil {
		return domain.WalletSnapshot{}, err
	}
	return domain.WalletSnapshot{AvailableMinutes: available}, nil
}

// Entries lists recent ledger entries, newest first.
func (w *Wallet) Entries(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	return w.ledger.List(ctx, w.db, limit)
}

// Reset deletes every ledger entry. This is the only permitted
// deletion and exists for tests and an explicit user-facing reset.
func (w *Wallet) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ledger.DeleteAll(ctx, w.db); err != nil {
		w.valid = false
		return err
	}
	w.balance = 0
	w.valid = true
	return nil
}

// spendLocked computes the available balance, clamps the request, and
// appends the spend entry. Must be called with the mutex held.
// trustCache controls whether the cached balance may be used and
// updated; transaction callers pass false.
func (w *Wallet) spendLocked(ctx context.Context, q store.Querier, minutes float64, source string, trustCache bool) (float64, error) {
	var available float64
	var err error
	if trustCache {
		available, err = w.availableLocked(ctx, q)
	} else {
		available, err = w.fold(ctx, q)
	}
	if err != nil {
		return 0, err
	}

	applied := minutes
	if applied > available {
		applied = available
	}
	if applied <= 0 {
		// Nothing to apply; the schema forbids zero-minute entries.
		return 0, nil
	}

	entry := domain.LedgerEntry{
		ID:        uuid.NewString(),
		Kind:      domain.EntrySpend,
		Minutes:   applied,
		Source:    source,
		CreatedAt: time.Now().Unix(),
	}
	if err := w.ledger.Append(ctx, q, entry); err != nil {
		w.valid = false
		return 0, err
	}
	if trustCache && w.valid {
		w.balance -= applied
	}

	log.Debug().Str("source", source).Float64("requested", minutes).Float64("applied", applied).Msg("wallet spend committed")
	return applied, nil
}

func (w *Wallet) availableLocked(ctx context.Context, q store.Querier) (float64, error) {
	if w.valid {
		return w.balance, nil
	}
	balance, err := w.fold(ctx, q)
	if err != nil {
		return 0, err
	}
	w.balance = balance
	w.valid = true
	return balance, nil
}

func (w *Wallet) fold(ctx context.Context, q store.Querier) (float64, error) {
	earned, spent, err := w.ledger.Sums(ctx, q)
	if err != nil {
		return 0, err
	}
	balance := earned - spent
	if balance < 0 {
		balance = 0
	}
	return balance, nil
}
