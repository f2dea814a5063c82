package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kunal-9090/DocuStream/engine"
)

// =============================================================================
// CHALLENGE DEFINITIONS
// =============================================================================

const challengeColumns = `
	id, title, description, image_url, start_date, end_date,
	requirement_type, requirement_value, requirement_genre,
	point_reward, difficulty, is_recurring`

func (s *Store) CreateChallenge(ctx context.Context, c engine.Challenge) (engine.Challenge, error) {
	defer s.wlock()()

	res, err := s.q.ExecContext(ctx, `
		INSERT INTO challenges
			(title, description, image_url, start_date, end_date, requirement_type,
			 requirement_value, requirement_genre, point_reward, difficulty, is_recurring)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Title, c.Description, c.ImageURL, ts(c.StartDate), ts(c.EndDate),
		string(c.RequirementType), c.RequirementValue, nullString(c.RequirementGenre),
		c.PointReward, c.Difficulty, boolInt(c.IsRecurring))
	if err != nil {
		return engine.Challenge{}, mapSQLiteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return engine.Challenge{}, err
	}
	c.ID = engine.ChallengeID(id)
	return c, nil
}

func (s *Store) GetChallenge(ctx context.Context, id engine.ChallengeID) (engine.Challenge, error) {
	defer s.rlock()()

	row := s.q.QueryRowContext(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = ?`, id)
	c, err := scanChallenge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Challenge{}, engine.ErrChallengeNotFound
	}
	return c, err
}

func (s *Store) ActiveChallenges(ctx context.Context, now time.Time) ([]engine.Challenge, error) {
	defer s.rlock()()

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE end_date > ? ORDER BY end_date`, ts(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChallenge(sc scanner) (engine.Challenge, error) {
	var (
		c          engine.Challenge
		start, end int64
		reqType    string
		genre      sql.NullString
		recurring  int
	)
	err := sc.Scan(&c.ID, &c.Title, &c.Description, &c.ImageURL, &start, &end,
		&reqType, &c.RequirementValue, &genre, &c.PointReward, &c.Difficulty, &recurring)
	if err != nil {
		return engine.Challenge{}, err
	}
	c.StartDate = fromTS(start)
	c.EndDate = fromTS(end)
	c.RequirementType = engine.RequirementType(reqType)
	c.RequirementGenre = genre.String
	c.IsRecurring = recurring == 1
	return c, nil
}

// =============================================================================
// CHALLENGE PROGRESS (user_challenges)
// =============================================================================

func (s *Store) ChallengeProgressFor(ctx context.Context, userID engine.UserID, id engine.ChallengeID) (engine.ChallengeProgress, error) {
	defer s.rlock()()
	return s.challengeProgressRow(ctx, userID, id)
}

func (s *Store) challengeProgressRow(ctx context.Context, userID engine.UserID, id engine.ChallengeID) (engine.ChallengeProgress, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, challenge_id, progress_value, start_date, completion_date, status
		FROM user_challenges WHERE user_id = ? AND challenge_id = ?`, userID, id)
	p, err := scanChallengeProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.ChallengeProgress{}, engine.ErrChallengeProgressNotFound
	}
	return p, err
}

func (s *Store) InsertChallengeProgress(ctx context.Context, p engine.ChallengeProgress) (engine.ChallengeProgress, error) {
	defer s.wlock()()

	res, err := s.q.ExecContext(ctx, `
		INSERT INTO user_challenges (user_id, challenge_id, progress_value, start_date, status)
		VALUES (?, ?, ?, ?, ?)`,
		p.UserID, p.ChallengeID, p.ProgressValue, ts(p.StartDate), string(p.Status))
	if err != nil {
		return engine.ChallengeProgress{}, mapSQLiteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return engine.ChallengeProgress{}, err
	}
	p.ID = id
	return p, nil
}

func (s *Store) SetChallengeProgressValue(ctx context.Context, userID engine.UserID, id engine.ChallengeID, value int) error {
	defer s.wlock()()

	res, err := s.q.ExecContext(ctx, `
		UPDATE user_challenges SET progress_value = ? WHERE user_id = ? AND challenge_id = ?`,
		value, userID, id)
	if err != nil {
		return mapSQLiteErr(err)
	}
	return requireRow(res, engine.ErrChallengeProgressNotFound)
}

// CompleteChallenge is the conditional active->completed flip.
// RowsAffected == 1 means this call performed it.
func (s *Store) CompleteChallenge(ctx context.Context, userID engine.UserID, id engine.ChallengeID, at time.Time) (bool, error) {
	defer s.wlock()()

	res, err := s.q.ExecContext(ctx, `
		UPDATE user_challenges SET status = 'completed', completion_date = ?
		WHERE user_id = ? AND challenge_id = ? AND status = 'active'`,
		ts(at), userID, id)
	if err != nil {
		return false, mapSQLiteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) FailExpiredChallenges(ctx context.Context, now time.Time) (int, error) {
	defer s.wlock()()

	res, err := s.q.ExecContext(ctx, `
		UPDATE user_challenges SET status = 'failed'
		WHERE status = 'active'
		  AND challenge_id IN (SELECT id FROM challenges WHERE end_date <= ?)`,
		ts(now))
	if err != nil {
		return 0, mapSQLiteErr(err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) UserChallenges(ctx context.Context, userID engine.UserID) ([]engine.UserChallenge, error) {
	defer s.rlock()()
	return s.queryUserChallenges(ctx, `
		WHERE uc.user_id = ? ORDER BY uc.start_date DESC`, userID)
}

func (s *Store) ActiveUserChallenges(ctx context.Context, userID engine.UserID) ([]engine.UserChallenge, error) {
	defer s.rlock()()
	return s.queryUserChallenges(ctx, `
		WHERE uc.user_id = ? AND uc.status = 'active' ORDER BY uc.start_date`, userID)
}

func (s *Store) queryUserChallenges(ctx context.Context, where string, args ...any) ([]engine.UserChallenge, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT uc.id, uc.user_id, uc.challenge_id, uc.progress_value, uc.start_date, uc.completion_date, uc.status,
		       c.id, c.title, c.description, c.image_url, c.start_date, c.end_date,
		       c.requirement_type, c.requirement_value, c.requirement_genre,
		       c.point_reward, c.difficulty, c.is_recurring
		FROM user_challenges uc
		JOIN challenges c ON c.id = uc.challenge_id `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.UserChallenge
	for rows.Next() {
		var (
			uc         engine.UserChallenge
			pStart     int64
			completion sql.NullInt64
			status     string
			cStart     int64
			cEnd       int64
			reqType    string
			genre      sql.NullString
			recurring  int
		)
		err := rows.Scan(
			&uc.Progress.ID, &uc.Progress.UserID, &uc.Progress.ChallengeID, &uc.Progress.ProgressValue,
			&pStart, &completion, &status,
			&uc.Challenge.ID, &uc.Challenge.Title, &uc.Challenge.Description, &uc.Challenge.ImageURL,
			&cStart, &cEnd, &reqType, &uc.Challenge.RequirementValue, &genre,
			&uc.Challenge.PointReward, &uc.Challenge.Difficulty, &recurring)
		if err != nil {
			return nil, err
		}
		uc.Progress.StartDate = fromTS(pStart)
		uc.Progress.Status = engine.ChallengeStatus(status)
		if completion.Valid {
			t := fromTS(completion.Int64)
			uc.Progress.CompletionDate = &t
		}
		uc.Challenge.StartDate = fromTS(cStart)
		uc.Challenge.EndDate = fromTS(cEnd)
		uc.Challenge.RequirementType = engine.RequirementType(reqType)
		uc.Challenge.RequirementGenre = genre.String
		uc.Challenge.IsRecurring = recurring == 1
		out = append(out, uc)
	}
	return out, rows.Err()
}

func scanChallengeProgress(sc scanner) (engine.ChallengeProgress, error) {
	var (
		p          engine.ChallengeProgress
		start      int64
		completion sql.NullInt64
		status     string
	)
	err := sc.Scan(&p.ID, &p.UserID, &p.ChallengeID, &p.ProgressValue, &start, &completion, &status)
	if err != nil {
		return engine.ChallengeProgress{}, err
	}
	p.StartDate = fromTS(start)
	p.Status = engine.ChallengeStatus(status)
	if completion.Valid {
		t := fromTS(completion.Int64)
		p.CompletionDate = &t
	}
	return p, nil
}
