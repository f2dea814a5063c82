/*
badge.go - Idempotent badge awards

PURPOSE:
  Badges are permanent achievements. This engine owns only the award
  contract: at most one BadgeAward per (user, badge), with the badge's
  point value paid exactly once alongside the first award. WHETHER a
  user has met a badge's requirement is the caller's business - rule
  evaluation lives with reporting/analytics, not here.

IDEMPOTENCY:
  A unique (user_id, badge_id) index backs InsertBadgeAward; the
  engine-level keyed lock narrows the window, the index closes it.
  Re-evaluating an earned badge returns the original award unchanged
  and writes nothing.
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Badges manages badge unlocks.
type Badges struct {
	store TxStore
	locks keyedMutex
	clock func() time.Time
}

func NewBadges(store TxStore) *Badges {
	return &Badges{store: store, clock: time.Now}
}

// EvaluateAndAward grants badgeID to userID if not already earned.
// Returns the award and whether THIS call created it. The point grant
// (when the badge carries one) commits atomically with the award row.
func (b *Badges) EvaluateAndAward(ctx context.Context, userID UserID, badgeID BadgeID) (BadgeAward, bool, error) {
	unlock := b.locks.lock(fmt.Sprintf("badge:%d:%d", userID, badgeID))
	defer unlock()

	var (
		award BadgeAward
		fresh bool
	)
	err := b.store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetUser(ctx, userID); err != nil {
			return err
		}
		def, err := s.GetBadge(ctx, badgeID)
		if err != nil {
			return err
		}

		existing, err := s.BadgeAwardFor(ctx, userID, badgeID)
		if err == nil {
			award = existing
			return nil
		}
		if !errors.Is(err, ErrBadgeAwardNotFound) {
			return err
		}

		now := b.clock()
		award, fresh, err = s.InsertBadgeAward(ctx, BadgeAward{
			UserID:     userID,
			BadgeID:    badgeID,
			DateEarned: now,
		})
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}

		if def.PointValue > 0 {
			_, err = appendEntry(ctx, s, now, userID, def.PointValue, TxBadge, int64(badgeID),
				fmt.Sprintf("Earned the %s badge", def.Name))
			if err != nil {
				return err
			}
		}
		return nil
	})
	return award, fresh, err
}

// SetDisplayed toggles the profile showcase flag on an earned badge.
// Never touches the ledger.
func (b *Badges) SetDisplayed(ctx context.Context, userID UserID, badgeID BadgeID, displayed bool) (BadgeAward, error) {
	var award BadgeAward
	err := b.store.WithTx(ctx, func(s Store) error {
		var err error
		award, err = s.SetBadgeDisplayed(ctx, userID, badgeID, displayed)
		return err
	})
	return award, err
}

// ForUser returns the user's earned badges joined with definitions.
func (b *Badges) ForUser(ctx context.Context, userID UserID) ([]UserBadge, error) {
	if _, err := b.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return b.store.UserBadges(ctx, userID)
}
