/*
progress.go - Watch progress tracking

PURPOSE:
  Maintains one ProgressRecord per (user, unit): watch percentage,
  sticky completion, the user's rating, and list membership. The
  completion edge itself - the single trigger for a watching award -
  is detected here via the store's conditional update and consumed by
  the coordinator.

COMPLETION POLICY:
  A unit counts as watched at CompletionThreshold percent. Crossing
  the threshold for the first time is the only award edge; rewatching
  or re-reporting never re-awards. Lower percentages are accepted and
  stored (the client reports whatever position it's at) but never
  unset IsCompleted.

WATCH MINUTES:
  Forward percentage deltas convert to minutes of runtime via decimal
  math, so partial rewatches don't double-count and 1% of a 52-minute
  film doesn't drift through float rounding.

SEE ALSO:
  - coordinator.go: calls reportWatch inside the award transaction
*/
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kunal-9090/DocuStream/catalog"
)

// CompletionThreshold is the watch percentage at which a unit is
// considered watched for award purposes.
const CompletionThreshold = 85

// Tracker manages per-user watch state for content and episodes.
type Tracker struct {
	store TxStore
	clock func() time.Time
}

func NewTracker(store TxStore) *Tracker {
	return &Tracker{store: store, clock: time.Now}
}

// reportResult is the outcome of a single progress report.
type reportResult struct {
	Record ProgressRecord
	// CompletedNow is true only on the call that performed the
	// false->true completion flip.
	CompletedNow bool
	// DeltaPercent is the forward percentage movement of this report
	// (zero when the report is at or below the stored percentage).
	DeltaPercent int
}

// reportWatch runs inside a store transaction. The completion flip is a
// conditional update, so two concurrent reports cannot both observe
// the edge. Deliberately not a Tracker method: the flip is a one-time
// edge, so any caller that consumes it without paying the award would
// leave the unit completed but unpaid forever. The coordinator is the
// only consumer.
func reportWatch(ctx context.Context, s Store, now time.Time, userID UserID, ref catalog.UnitRef, percentage int) (reportResult, error) {
	percentage = clampPercent(percentage)

	prev := 0
	if existing, err := s.Progress(ctx, userID, ref); err == nil {
		prev = existing.WatchPercentage
	} else if !errors.Is(err, ErrProgressNotFound) {
		return reportResult{}, err
	}

	rec, err := s.UpsertWatch(ctx, userID, ref, percentage, now)
	if err != nil {
		return reportResult{}, err
	}

	res := reportResult{Record: rec}
	if d := percentage - prev; d > 0 {
		res.DeltaPercent = d
	}
	if percentage >= CompletionThreshold {
		flipped, err := s.MarkCompleted(ctx, userID, ref)
		if err != nil {
			return reportResult{}, err
		}
		res.CompletedNow = flipped
		res.Record.IsCompleted = true
	}
	return res, nil
}

// SetList sets list membership for a unit. Independent of watch state:
// a unit can be listed with no percentage at all. Removing from the
// list clears the list type.
func (t *Tracker) SetList(ctx context.Context, userID UserID, ref catalog.UnitRef, inList bool, listType string) (ProgressRecord, error) {
	if err := ref.Validate(); err != nil {
		return ProgressRecord{}, err
	}
	if !inList {
		listType = ""
	}
	var rec ProgressRecord
	err := t.store.WithTx(ctx, func(s Store) error {
		var err error
		rec, err = s.SetListMembership(ctx, userID, ref, inList, listType, t.clock())
		return err
	})
	return rec, err
}

// Rate stores a 1-5 rating for a unit.
func (t *Tracker) Rate(ctx context.Context, userID UserID, ref catalog.UnitRef, rating int) (ProgressRecord, error) {
	if err := ref.Validate(); err != nil {
		return ProgressRecord{}, err
	}
	if rating < 1 || rating > 5 {
		return ProgressRecord{}, ErrInvalidRating
	}
	var rec ProgressRecord
	err := t.store.WithTx(ctx, func(s Store) error {
		var err error
		rec, err = s.SetRating(ctx, userID, ref, rating, t.clock())
		return err
	})
	return rec, err
}

// Get returns the progress record for one unit.
func (t *Tracker) Get(ctx context.Context, userID UserID, ref catalog.UnitRef) (ProgressRecord, error) {
	if err := ref.Validate(); err != nil {
		return ProgressRecord{}, err
	}
	return t.store.Progress(ctx, userID, ref)
}

// ForUser returns all progress records for a user, most recent first.
func (t *Tracker) ForUser(ctx context.Context, userID UserID) ([]ProgressRecord, error) {
	return t.store.UserProgress(ctx, userID)
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// WatchedMinutes converts a forward percentage delta into whole minutes
// of a unit's runtime.
func WatchedMinutes(durationMinutes, deltaPercent int) int {
	if durationMinutes <= 0 || deltaPercent <= 0 {
		return 0
	}
	m := decimal.NewFromInt(int64(durationMinutes)).
		Mul(decimal.NewFromInt(int64(deltaPercent))).
		Div(decimal.NewFromInt(100))
	return int(m.IntPart())
}
