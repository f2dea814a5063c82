/*
challenge.go - Time-boxed challenge engine

PURPOSE:
  Tracks per-user progress against time-windowed requirements ("watch
  3 nature documentaries this month") and pays the reward exactly once
  when the requirement is reached.

COMPLETION DISCIPLINE:
  - A completed row is terminal: further advances are no-ops returning
    the existing record, so the reward can never double-pay.
  - Progress is monotonic: a lower reported value never moves the
    stored value backward.
  - The active->completed flip is a conditional store update; the
    reward is appended in the same transaction as the flip.

EXPIRY:
  Closed-window challenges reject new starts, and an Advance that
  finds an existing active row on a closed window sweeps it to failed
  instead of advancing it. The FailExpired sweep catches rows nobody
  touches; ForUser runs it opportunistically so user-facing listings
  never show an active row for a dead challenge.

SEE ALSO:
  - coordinator.go: advances matching challenges when a unit completes
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Challenges manages challenge progress and completion rewards.
type Challenges struct {
	store TxStore
	locks keyedMutex
	clock func() time.Time
}

func NewChallenges(store TxStore) *Challenges {
	return &Challenges{store: store, clock: time.Now}
}

// Advance reports a new progress value for (user, challenge). Creates
// the progress row on first touch; value 0 is a plain join. Returns
// the row unchanged when the challenge was already completed.
func (c *Challenges) Advance(ctx context.Context, userID UserID, challengeID ChallengeID, value int) (ChallengeProgress, error) {
	if value < 0 {
		value = 0
	}
	unlock := c.locks.lock(fmt.Sprintf("challenge:%d:%d", userID, challengeID))
	defer unlock()

	var out ChallengeProgress
	err := c.store.WithTx(ctx, func(s Store) error {
		now := c.clock()
		if _, err := s.GetUser(ctx, userID); err != nil {
			return err
		}
		def, err := s.GetChallenge(ctx, challengeID)
		if err != nil {
			return err
		}

		expired := def.ExpiredAt(now)
		cur, err := s.ChallengeProgressFor(ctx, userID, challengeID)
		if errors.Is(err, ErrChallengeProgressNotFound) {
			if expired {
				return ErrChallengeExpired
			}
			cur, err = s.InsertChallengeProgress(ctx, ChallengeProgress{
				UserID:      userID,
				ChallengeID: challengeID,
				Status:      ChallengeActive,
				StartDate:   now,
			})
		}
		if err != nil {
			return err
		}

		// An active row on a closed window can no longer advance or
		// pay; sweep it instead of waiting for FailExpired to run.
		if expired && cur.Status == ChallengeActive {
			if _, err := s.FailExpiredChallenges(ctx, now); err != nil {
				return err
			}
			return ErrChallengeExpired
		}

		out, err = advanceProgress(ctx, s, now, def, cur, value)
		return err
	})
	return out, err
}

// advanceProgress applies a new value to an existing progress row and
// pays the reward on the one active->completed flip. Runs inside a
// store transaction.
func advanceProgress(ctx context.Context, s Store, now time.Time, def Challenge, cur ChallengeProgress, value int) (ChallengeProgress, error) {
	if cur.Status != ChallengeActive {
		return cur, nil
	}

	if value < cur.ProgressValue {
		value = cur.ProgressValue
	}
	if value != cur.ProgressValue {
		if err := s.SetChallengeProgressValue(ctx, cur.UserID, cur.ChallengeID, value); err != nil {
			return ChallengeProgress{}, err
		}
		cur.ProgressValue = value
	}

	if value < def.RequirementValue {
		return cur, nil
	}

	flipped, err := s.CompleteChallenge(ctx, cur.UserID, cur.ChallengeID, now)
	if err != nil {
		return ChallengeProgress{}, err
	}
	if !flipped {
		// Lost the flip to a concurrent writer; that writer paid.
		return s.ChallengeProgressFor(ctx, cur.UserID, cur.ChallengeID)
	}

	if def.PointReward > 0 {
		_, err = appendEntry(ctx, s, now, cur.UserID, def.PointReward, TxChallenge, int64(def.ID),
			fmt.Sprintf("Completed the %q challenge", def.Title))
		if err != nil {
			return ChallengeProgress{}, err
		}
	}

	cur.Status = ChallengeCompleted
	done := now
	cur.CompletionDate = &done
	return cur, nil
}

// ListActive returns challenge definitions whose window is still open.
func (c *Challenges) ListActive(ctx context.Context) ([]Challenge, error) {
	return c.store.ActiveChallenges(ctx, c.clock())
}

// ForUser returns the user's challenge rows joined with definitions.
// Sweeps expired-active rows first so the listing never shows an
// active row for a closed challenge.
func (c *Challenges) ForUser(ctx context.Context, userID UserID) ([]UserChallenge, error) {
	var out []UserChallenge
	err := c.store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetUser(ctx, userID); err != nil {
			return err
		}
		if _, err := s.FailExpiredChallenges(ctx, c.clock()); err != nil {
			return err
		}
		var err error
		out, err = s.UserChallenges(ctx, userID)
		return err
	})
	return out, err
}

// FailExpired marks active progress on closed-window challenges as
// failed. Returns the number of rows swept. No reward is paid.
func (c *Challenges) FailExpired(ctx context.Context) (int, error) {
	var n int
	err := c.store.WithTx(ctx, func(s Store) error {
		var err error
		n, err = s.FailExpiredChallenges(ctx, c.clock())
		return err
	})
	return n, err
}
