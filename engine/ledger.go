/*
ledger.go - Append-only points ledger

PURPOSE:
  The ledger is the source of truth for a user's balance. Every award
  appends one immutable entry carrying the post-transaction balance,
  and moves the user's cached balance in the same transaction.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: entries are never updated or deleted
  2. CACHE CONSISTENCY: User.Points == sum of the user's entry amounts,
     and equals CurrentBalance on the newest entry
  3. ATOMIC PAIR: the entry append and the cache update commit or roll
     back together

SIGN:
  Nothing in the award paths produces negative amounts (there is no
  spending flow), but Record does not assume sign; a redemption flow
  would reuse it unchanged.

SEE ALSO:
  - coordinator.go / challenge.go / badge.go: the three award paths
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ledger records point transactions and answers balance queries.
type Ledger struct {
	store TxStore
	clock func() time.Time
}

func NewLedger(store TxStore) *Ledger {
	return &Ledger{store: store, clock: time.Now}
}

// Record appends a transaction for userID and moves the cached balance,
// atomically. Amount may be any sign.
func (l *Ledger) Record(ctx context.Context, userID UserID, amount int, typ TransactionType, referenceID int64, description string) (LedgerEntry, error) {
	var entry LedgerEntry
	err := l.store.WithTx(ctx, func(s Store) error {
		var err error
		entry, err = appendEntry(ctx, s, l.clock(), userID, amount, typ, referenceID, description)
		return err
	})
	return entry, err
}

// appendEntry is the shared award primitive. It must run inside a store
// transaction: the entry and the balance cache move as one unit.
func appendEntry(ctx context.Context, s Store, now time.Time, userID UserID, amount int, typ TransactionType, referenceID int64, description string) (LedgerEntry, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return LedgerEntry{}, err
	}

	newBalance := user.Points + amount
	entry := LedgerEntry{
		ID:             uuid.NewString(),
		UserID:         userID,
		Amount:         amount,
		Type:           typ,
		ReferenceID:    referenceID,
		Description:    description,
		CurrentBalance: newBalance,
		CreatedAt:      now,
	}

	if err := s.AppendEntry(ctx, entry); err != nil {
		return LedgerEntry{}, fmt.Errorf("append ledger entry: %w", err)
	}
	if err := s.SetUserPoints(ctx, userID, newBalance); err != nil {
		return LedgerEntry{}, fmt.Errorf("update balance cache: %w", err)
	}
	return entry, nil
}

// TotalBalance returns the cached balance. O(1) via the user row.
func (l *Ledger) TotalBalance(ctx context.Context, userID UserID) (int, error) {
	user, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Points, nil
}

// PointsSince sums entries newer than cutoff.
func (l *Ledger) PointsSince(ctx context.Context, userID UserID, cutoff time.Time) (int, error) {
	return l.store.PointsSince(ctx, userID, cutoff)
}

// History returns all entries for a user, newest first.
func (l *Ledger) History(ctx context.Context, userID UserID) ([]LedgerEntry, error) {
	if _, err := l.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return l.store.Entries(ctx, userID)
}

// Summary returns the total plus day/week/month rollups.
func (l *Ledger) Summary(ctx context.Context, userID UserID) (PointsSummary, error) {
	user, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return PointsSummary{}, err
	}

	now := l.clock()
	sum := PointsSummary{Total: user.Points}
	for _, w := range []struct {
		days int
		dst  *int
	}{
		{1, &sum.Today},
		{7, &sum.Weekly},
		{30, &sum.Monthly},
	} {
		v, err := l.store.PointsSince(ctx, userID, now.AddDate(0, 0, -w.days))
		if err != nil {
			return PointsSummary{}, err
		}
		*w.dst = v
	}
	return sum, nil
}
