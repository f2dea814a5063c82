/*
store.go - Persistence interface for the accrual engine

PURPOSE:
  One interface between the engine and the database. A single SQLite
  implementation backs all of it (store/sqlite), but the engine only
  sees these methods.

APPEND-ONLY CONTRACT:
  The ledger surface has AppendEntry and reads. No update, no delete.
  SetUserPoints exists solely to move the cached balance inside the
  same transaction as an append.

CONDITIONAL UPDATES:
  MarkCompleted and CompleteChallenge are compare-and-swap operations:
  they flip state only if it wasn't already flipped and report whether
  THIS call did the flip. That return value is the single source of
  truth for "award now" decisions - application code never re-checks
  a previously read flag.

TRANSACTIONS:
  WithTx runs fn against a transactional view of the store. Everything
  the engine writes on an award path happens inside one WithTx so a
  failed write leaves no partial award visible.

SEE ALSO:
  - store/sqlite/sqlite.go: the implementation
*/
package engine

import (
	"context"
	"time"

	"github.com/kunal-9090/DocuStream/catalog"
)

// Store is the persistence surface the engine runs against.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id UserID) (User, error)
	SetUserPoints(ctx context.Context, id UserID, points int) error
	AddWatchTotals(ctx context.Context, id UserID, count, minutes int) error

	// Ledger (append-only)
	AppendEntry(ctx context.Context, e LedgerEntry) error
	Entries(ctx context.Context, userID UserID) ([]LedgerEntry, error)
	PointsSince(ctx context.Context, userID UserID, cutoff time.Time) (int, error)

	// Watch progress
	Progress(ctx context.Context, userID UserID, ref catalog.UnitRef) (ProgressRecord, error)
	UserProgress(ctx context.Context, userID UserID) ([]ProgressRecord, error)
	UpsertWatch(ctx context.Context, userID UserID, ref catalog.UnitRef, percentage int, at time.Time) (ProgressRecord, error)
	// MarkCompleted flips is_completed only if it was false. Returns
	// true when this call performed the flip.
	MarkCompleted(ctx context.Context, userID UserID, ref catalog.UnitRef) (bool, error)
	SetListMembership(ctx context.Context, userID UserID, ref catalog.UnitRef, inList bool, listType string, at time.Time) (ProgressRecord, error)
	SetRating(ctx context.Context, userID UserID, ref catalog.UnitRef, rating int, at time.Time) (ProgressRecord, error)

	// Challenges
	CreateChallenge(ctx context.Context, c Challenge) (Challenge, error)
	GetChallenge(ctx context.Context, id ChallengeID) (Challenge, error)
	ActiveChallenges(ctx context.Context, now time.Time) ([]Challenge, error)
	ChallengeProgressFor(ctx context.Context, userID UserID, id ChallengeID) (ChallengeProgress, error)
	InsertChallengeProgress(ctx context.Context, p ChallengeProgress) (ChallengeProgress, error)
	SetChallengeProgressValue(ctx context.Context, userID UserID, id ChallengeID, value int) error
	// CompleteChallenge flips active->completed only if still active.
	// Returns true when this call performed the flip.
	CompleteChallenge(ctx context.Context, userID UserID, id ChallengeID, at time.Time) (bool, error)
	// FailExpiredChallenges marks active progress on closed-window
	// challenges as failed. Returns the number of rows swept.
	FailExpiredChallenges(ctx context.Context, now time.Time) (int, error)
	UserChallenges(ctx context.Context, userID UserID) ([]UserChallenge, error)
	ActiveUserChallenges(ctx context.Context, userID UserID) ([]UserChallenge, error)

	// Badges
	CreateBadge(ctx context.Context, b Badge) (Badge, error)
	GetBadge(ctx context.Context, id BadgeID) (Badge, error)
	BadgeAwardFor(ctx context.Context, userID UserID, id BadgeID) (BadgeAward, error)
	// InsertBadgeAward inserts unless an award already exists. The bool
	// reports whether a new row was created; on false the existing
	// award is returned.
	InsertBadgeAward(ctx context.Context, a BadgeAward) (BadgeAward, bool, error)
	SetBadgeDisplayed(ctx context.Context, userID UserID, id BadgeID, displayed bool) (BadgeAward, error)
	UserBadges(ctx context.Context, userID UserID) ([]UserBadge, error)
}

// TxStore adds transactional execution. If fn returns an error the
// transaction is rolled back; otherwise it commits.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
