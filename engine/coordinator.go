/*
coordinator.go - Accrual coordinator

PURPOSE:
  The single entry point invoked once per progress report. Orchestrates
  the progress tracker, the ledger, and challenge advancement in one
  store transaction:

    report -> update percentage
           -> (first crossing of threshold only)
              flip completion, award unit points, bump watch totals,
              advance matching active challenges

  This is the ONLY code path that creates "watching" ledger entries.
  Presentation-layer code never re-implements the award check.

STATE MACHINE per (user, unit):
  NOT_STARTED -> IN_PROGRESS -> COMPLETED (terminal)
  The IN_PROGRESS -> COMPLETED edge fires once; every other call just
  updates the percentage and returns AwardedPoints = 0.

CONCURRENCY:
  A keyed mutex serializes reports per (user, unit) in-process; the
  store's conditional MarkCompleted is the authoritative check-and-set
  underneath it. All writes share one transaction, so a storage
  failure leaves neither a "completed but unpaid" nor a "paid but not
  completed" split.
*/
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kunal-9090/DocuStream/catalog"
)

// Coordinator converts progress reports into durable accrual state.
type Coordinator struct {
	store  TxStore
	units  catalog.PointValuer
	logger *slog.Logger
	locks  keyedMutex
	clock  func() time.Time
}

func NewCoordinator(store TxStore, units catalog.PointValuer, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{store: store, units: units, logger: logger, clock: time.Now}
}

// AccrualResult is what a single progress report produced.
type AccrualResult struct {
	Record ProgressRecord
	// AwardedPoints is the unit's point value on the one completing
	// report, zero on every other call.
	AwardedPoints int
}

// OnProgressReported handles one watch-progress report for a unit.
func (c *Coordinator) OnProgressReported(ctx context.Context, userID UserID, ref catalog.UnitRef, percentage int) (AccrualResult, error) {
	if err := ref.Validate(); err != nil {
		return AccrualResult{}, err
	}

	// Resolve the unit before taking locks; catalog data is effectively
	// immutable and a bad reference should fail fast.
	unit, err := c.units.ResolveUnit(ctx, ref)
	if err != nil {
		return AccrualResult{}, err
	}

	unlock := c.locks.lock(fmt.Sprintf("watch:%d:%s", userID, ref.Key()))
	defer unlock()

	var res AccrualResult
	err = c.store.WithTx(ctx, func(s Store) error {
		now := c.clock()
		if _, err := s.GetUser(ctx, userID); err != nil {
			return err
		}

		rep, err := reportWatch(ctx, s, now, userID, ref, percentage)
		if err != nil {
			return err
		}
		res.Record = rep.Record

		minutes := WatchedMinutes(unit.Duration, rep.DeltaPercent)
		if !rep.CompletedNow {
			if minutes > 0 {
				return s.AddWatchTotals(ctx, userID, 0, minutes)
			}
			return nil
		}

		if err := s.AddWatchTotals(ctx, userID, 1, minutes); err != nil {
			return err
		}
		if _, err := appendEntry(ctx, s, now, userID, unit.Points, TxWatching, ref.RefID(),
			"Completed watching "+unit.Title); err != nil {
			return err
		}
		res.AwardedPoints = unit.Points

		return c.advanceChallenges(ctx, s, now, userID, unit)
	})
	if err != nil {
		return AccrualResult{}, err
	}

	if res.AwardedPoints > 0 {
		c.logger.Info("unit completed",
			"user_id", userID,
			"unit", ref.Key(),
			"points", res.AwardedPoints,
		)
	}
	return res, nil
}

// advanceChallenges feeds the completed unit into the user's active
// challenges: count requirements advance by one, minutes requirements
// by the unit's runtime. Genre-filtered challenges only advance when
// the unit matches.
func (c *Coordinator) advanceChallenges(ctx context.Context, s Store, now time.Time, userID UserID, unit catalog.Unit) error {
	ucs, err := s.ActiveUserChallenges(ctx, userID)
	if err != nil {
		return err
	}
	for _, uc := range ucs {
		if uc.Challenge.ExpiredAt(now) {
			continue // FailExpired sweeps these
		}
		if !uc.Challenge.MatchesGenres(unit.Genres) {
			continue
		}

		var next int
		switch uc.Challenge.RequirementType {
		case RequirementCount:
			next = uc.Progress.ProgressValue + 1
		case RequirementMinutes:
			next = uc.Progress.ProgressValue + unit.Duration
		default:
			continue
		}

		if _, err := advanceProgress(ctx, s, now, uc.Challenge, uc.Progress, next); err != nil {
			return fmt.Errorf("advance challenge %d: %w", uc.Challenge.ID, err)
		}
	}
	return nil
}
