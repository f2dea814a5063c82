/*
Package engine is the points accrual core: it converts raw watch-progress
reports into durable state changes - completion flags, ledger entries,
balance updates, challenge progress, and badge awards.

PURPOSE:
  Everything with a correctness obligation lives here. The single most
  important property is at-most-once point award per (user, unit),
  per (user, challenge), and per (user, badge), no matter how many
  duplicate or out-of-order reports the client-side progress timer
  fires.

COMPONENTS (leaf first):
  Ledger:      append-only points transactions + cached running balance
  Tracker:     per-user watch percentage and sticky completion state
  Challenges:  time-boxed requirements with one-time completion reward
  Badges:      idempotent achievement awards
  Coordinator: the one entry point per progress report; orchestrates
               Tracker -> Ledger -> Challenges in one store transaction

DESIGN PRINCIPLES:
  1. Immutability: ledger entries are never modified or deleted
  2. Atomicity: an award and its triggering state flip commit together
  3. Conditional updates: completion edges are compare-and-swap at the
     store, not check-then-write in application code

KEY TYPES IN THIS FILE:
  - User: identity plus cached balance and watch totals
  - LedgerEntry: one immutable points transaction
  - ProgressRecord: per (user, unit) watch state and list membership
  - Challenge / ChallengeProgress: definition and per-user progress
  - Badge / BadgeAward: definition and per-user unlock

SEE ALSO:
  - store.go: persistence interface the engine runs against
  - coordinator.go: orchestration and locking
*/
package engine

import (
	"time"

	"github.com/kunal-9090/DocuStream/catalog"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID int64
type ChallengeID int64
type BadgeID int64

// =============================================================================
// USER - identity + cached balance (denormalized for fast reads)
// =============================================================================

// User carries the cached points balance and watch totals. Points must
// always equal the sum of the user's ledger entries; the cache is only
// ever moved inside the same transaction as a ledger append.
type User struct {
	ID           UserID
	Username     string
	DisplayName  string
	Email        string
	Points       int
	WatchCount   int
	WatchMinutes int
	JoinDate     time.Time
}

// =============================================================================
// LEDGER ENTRY - immutable points transaction
// =============================================================================

type TransactionType string

const (
	TxWatching  TransactionType = "watching"
	TxChallenge TransactionType = "challenge"
	TxBadge     TransactionType = "badge"
)

// LedgerEntry records one balance change. Append-only: never updated,
// never deleted. CurrentBalance snapshots the balance after this entry.
type LedgerEntry struct {
	ID             string
	UserID         UserID
	Amount         int
	Type           TransactionType
	ReferenceID    int64
	Description    string
	CurrentBalance int
	CreatedAt      time.Time
}

// PointsSummary backs the "points today/this week/this month" rollups.
type PointsSummary struct {
	Total   int `json:"total"`
	Today   int `json:"today"`
	Weekly  int `json:"weekly"`
	Monthly int `json:"monthly"`
}

// =============================================================================
// PROGRESS RECORD - per (user, unit) watch state
// =============================================================================

// ProgressRecord is one row per (user, unit). IsCompleted is sticky:
// it transitions false->true exactly once and never reverts, even when
// a later report carries a lower percentage. List membership is an
// independent mutation path on the same row.
type ProgressRecord struct {
	ID              int64
	UserID          UserID
	Unit            catalog.UnitRef
	WatchPercentage int
	IsCompleted     bool
	LastWatchedAt   time.Time
	UserRating      int // 0 = unrated
	IsInList        bool
	ListType        string
}

// =============================================================================
// CHALLENGE - time-boxed requirement
// =============================================================================

type RequirementType string

const (
	RequirementCount   RequirementType = "count"
	RequirementMinutes RequirementType = "minutes"
)

type ChallengeStatus string

const (
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeFailed    ChallengeStatus = "failed"
)

// Challenge is a time-windowed requirement. The active window is
// [StartDate, EndDate).
type Challenge struct {
	ID               ChallengeID
	Title            string
	Description      string
	ImageURL         string
	StartDate        time.Time
	EndDate          time.Time
	RequirementType  RequirementType
	RequirementValue int
	RequirementGenre string
	PointReward      int
	Difficulty       string
	IsRecurring      bool
}

// ExpiredAt reports whether the challenge window has closed.
func (c Challenge) ExpiredAt(now time.Time) bool {
	return !now.Before(c.EndDate)
}

// MatchesGenres reports whether the challenge applies to a unit with
// the given genres. An empty RequirementGenre matches everything.
func (c Challenge) MatchesGenres(genres []string) bool {
	if c.RequirementGenre == "" {
		return true
	}
	for _, g := range genres {
		if g == c.RequirementGenre {
			return true
		}
	}
	return false
}

// ChallengeProgress is per (user, challenge) state. Progress is
// monotonic and the active->completed transition happens once.
type ChallengeProgress struct {
	ID             int64
	UserID         UserID
	ChallengeID    ChallengeID
	ProgressValue  int
	Status         ChallengeStatus
	StartDate      time.Time
	CompletionDate *time.Time
}

// UserChallenge joins per-user progress with its definition for
// read-only projections.
type UserChallenge struct {
	Progress  ChallengeProgress
	Challenge Challenge
}

// =============================================================================
// BADGE - permanent achievement
// =============================================================================

type Badge struct {
	ID               BadgeID
	Name             string
	Description      string
	ImageURL         string
	Category         string
	Tier             string
	RequirementType  string
	RequirementValue int
	RequirementGenre string
	PointValue       int
	Rarity           string
}

// BadgeAward exists at most once per (user, badge).
type BadgeAward struct {
	ID          int64
	UserID      UserID
	BadgeID     BadgeID
	DateEarned  time.Time
	IsDisplayed bool
}

type UserBadge struct {
	Award BadgeAward
	Badge Badge
}
