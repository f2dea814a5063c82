package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kunal-9090/DocuStream/engine"
)

// =============================================================================
// BADGE DEFINITIONS
// =============================================================================

const badgeColumns = `
	id, name, description, image_url, category, tier,
	requirement_type, requirement_value, requirement_genre, point_value, rarity`

func (s *Store) CreateBadge(ctx context.Context, b engine.Badge) (engine.Badge, error) {
	defer s.wlock()()

	res, err := s.q.ExecContext(ctx, `
		INSERT INTO badges
			(name, description, image_url, category, tier, requirement_type,
			 requirement_value, requirement_genre, point_value, rarity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name, b.Description, b.ImageURL, b.Category, b.Tier, b.RequirementType,
		b.RequirementValue, nullString(b.RequirementGenre), b.PointValue, b.Rarity)
	if err != nil {
		return engine.Badge{}, mapSQLiteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return engine.Badge{}, err
	}
	b.ID = engine.BadgeID(id)
	return b, nil
}

func (s *Store) GetBadge(ctx context.Context, id engine.BadgeID) (engine.Badge, error) {
	defer s.rlock()()

	row := s.q.QueryRowContext(ctx, `SELECT `+badgeColumns+` FROM badges WHERE id = ?`, id)
	b, err := scanBadge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Badge{}, engine.ErrBadgeNotFound
	}
	return b, err
}

func scanBadge(sc scanner) (engine.Badge, error) {
	var (
		b     engine.Badge
		genre sql.NullString
	)
	err := sc.Scan(&b.ID, &b.Name, &b.Description, &b.ImageURL, &b.Category, &b.Tier,
		&b.RequirementType, &b.RequirementValue, &genre, &b.PointValue, &b.Rarity)
	if err != nil {
		return engine.Badge{}, err
	}
	b.RequirementGenre = genre.String
	return b, nil
}

// =============================================================================
// BADGE AWARDS (user_badges)
// =============================================================================

func (s *Store) BadgeAwardFor(ctx context.Context, userID engine.UserID, id engine.BadgeID) (engine.BadgeAward, error) {
	defer s.rlock()()
	return s.badgeAwardRow(ctx, userID, id)
}

func (s *Store) badgeAwardRow(ctx context.Context, userID engine.UserID, id engine.BadgeID) (engine.BadgeAward, error) {
	var (
		a         engine.BadgeAward
		earned    int64
		displayed int
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, badge_id, date_earned, is_displayed
		FROM user_badges WHERE user_id = ? AND badge_id = ?`, userID, id).
		Scan(&a.ID, &a.UserID, &a.BadgeID, &earned, &displayed)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.BadgeAward{}, engine.ErrBadgeAwardNotFound
	}
	if err != nil {
		return engine.BadgeAward{}, err
	}
	a.DateEarned = fromTS(earned)
	a.IsDisplayed = displayed == 1
	return a, nil
}

// InsertBadgeAward creates the award unless one exists. The unique
// (user_id, badge_id) index makes this the at-most-once guard:
// INSERT OR IGNORE plus a rows-affected check tells the caller whether
// THIS call created the row.
func (s *Store) InsertBadgeAward(ctx context.Context, a engine.BadgeAward) (engine.BadgeAward, bool, error) {
	defer s.wlock()()

	res, err := s.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_badges (user_id, badge_id, date_earned, is_displayed)
		VALUES (?, ?, ?, ?)`,
		a.UserID, a.BadgeID, ts(a.DateEarned), boolInt(a.IsDisplayed))
	if err != nil {
		return engine.BadgeAward{}, false, mapSQLiteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return engine.BadgeAward{}, false, err
	}

	stored, err := s.badgeAwardRow(ctx, a.UserID, a.BadgeID)
	if err != nil {
		return engine.BadgeAward{}, false, err
	}
	return stored, n == 1, nil
}

func (s *Store) SetBadgeDisplayed(ctx context.Context, userID engine.UserID, id engine.BadgeID, displayed bool) (engine.BadgeAward, error) {
	defer s.wlock()()

	res, err := s.q.ExecContext(ctx, `
		UPDATE user_badges SET is_displayed = ? WHERE user_id = ? AND badge_id = ?`,
		boolInt(displayed), userID, id)
	if err != nil {
		return engine.BadgeAward{}, mapSQLiteErr(err)
	}
	if err := requireRow(res, engine.ErrBadgeAwardNotFound); err != nil {
		return engine.BadgeAward{}, err
	}
	return s.badgeAwardRow(ctx, userID, id)
}

func (s *Store) UserBadges(ctx context.Context, userID engine.UserID) ([]engine.UserBadge, error) {
	defer s.rlock()()

	rows, err := s.q.QueryContext(ctx, `
		SELECT ub.id, ub.user_id, ub.badge_id, ub.date_earned, ub.is_displayed,
		       b.id, b.name, b.description, b.image_url, b.category, b.tier,
		       b.requirement_type, b.requirement_value, b.requirement_genre, b.point_value, b.rarity
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = ?
		ORDER BY ub.date_earned DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.UserBadge
	for rows.Next() {
		var (
			ub        engine.UserBadge
			earned    int64
			displayed int
			genre     sql.NullString
		)
		err := rows.Scan(
			&ub.Award.ID, &ub.Award.UserID, &ub.Award.BadgeID, &earned, &displayed,
			&ub.Badge.ID, &ub.Badge.Name, &ub.Badge.Description, &ub.Badge.ImageURL,
			&ub.Badge.Category, &ub.Badge.Tier, &ub.Badge.RequirementType,
			&ub.Badge.RequirementValue, &genre, &ub.Badge.PointValue, &ub.Badge.Rarity)
		if err != nil {
			return nil, err
		}
		ub.Award.DateEarned = fromTS(earned)
		ub.Award.IsDisplayed = displayed == 1
		ub.Badge.RequirementGenre = genre.String
		out = append(out, ub)
	}
	return out, rows.Err()
}
