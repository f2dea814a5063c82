package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kunal-9090/DocuStream/catalog"
	"github.com/kunal-9090/DocuStream/engine"
)

// =============================================================================
// WATCH PROGRESS (user_content)
// =============================================================================

// unitClause returns the WHERE fragment selecting one (user, unit) row.
// A row references content XOR episode, so matching one column is
// sufficient.
func unitClause(ref catalog.UnitRef) (string, any) {
	if ref.IsEpisode() {
		return "episode_id = ?", int64(ref.EpisodeID)
	}
	return "content_id = ?", int64(ref.ContentID)
}

// unitCols returns the nullable insert values for the two ID columns.
func unitCols(ref catalog.UnitRef) (contentID, episodeID any) {
	if ref.IsEpisode() {
		return nil, int64(ref.EpisodeID)
	}
	return int64(ref.ContentID), nil
}

const progressColumns = `
	id, user_id, content_id, episode_id, watch_percentage, last_watch_date,
	is_completed, user_rating, is_in_list, list_type`

func (s *Store) Progress(ctx context.Context, userID engine.UserID, ref catalog.UnitRef) (engine.ProgressRecord, error) {
	defer s.rlock()()
	return s.progressRow(ctx, userID, ref)
}

// progressRow fetches without locking; callers hold the lock or run in
// a transaction.
func (s *Store) progressRow(ctx context.Context, userID engine.UserID, ref catalog.UnitRef) (engine.ProgressRecord, error) {
	clause, arg := unitClause(ref)
	row := s.q.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM user_content WHERE user_id = ? AND `+clause,
		userID, arg)
	rec, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.ProgressRecord{}, engine.ErrProgressNotFound
	}
	return rec, err
}

func (s *Store) UserProgress(ctx context.Context, userID engine.UserID) ([]engine.ProgressRecord, error) {
	defer s.rlock()()

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM user_content WHERE user_id = ? ORDER BY last_watch_date DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.ProgressRecord
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) UpsertWatch(ctx context.Context, userID engine.UserID, ref catalog.UnitRef, percentage int, at time.Time) (engine.ProgressRecord, error) {
	defer s.wlock()()

	if _, err := s.progressRow(ctx, userID, ref); err != nil {
		if !errors.Is(err, engine.ErrProgressNotFound) {
			return engine.ProgressRecord{}, err
		}
		contentID, episodeID := unitCols(ref)
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO user_content (user_id, content_id, episode_id, watch_percentage, last_watch_date)
			VALUES (?, ?, ?, ?, ?)`,
			userID, contentID, episodeID, percentage, ts(at))
		if err != nil {
			return engine.ProgressRecord{}, mapSQLiteErr(err)
		}
		return s.progressRow(ctx, userID, ref)
	}

	clause, arg := unitClause(ref)
	_, err := s.q.ExecContext(ctx,
		`UPDATE user_content SET watch_percentage = ?, last_watch_date = ? WHERE user_id = ? AND `+clause,
		percentage, ts(at), userID, arg)
	if err != nil {
		return engine.ProgressRecord{}, mapSQLiteErr(err)
	}
	return s.progressRow(ctx, userID, ref)
}

// MarkCompleted flips is_completed only when it was previously false.
// The WHERE guard makes this the check-and-set: RowsAffected == 1
// means this call performed the flip.
func (s *Store) MarkCompleted(ctx context.Context, userID engine.UserID, ref catalog.UnitRef) (bool, error) {
	defer s.wlock()()

	clause, arg := unitClause(ref)
	res, err := s.q.ExecContext(ctx,
		`UPDATE user_content SET is_completed = 1 WHERE user_id = ? AND `+clause+` AND is_completed = 0`,
		userID, arg)
	if err != nil {
		return false, mapSQLiteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) SetListMembership(ctx context.Context, userID engine.UserID, ref catalog.UnitRef, inList bool, listType string, at time.Time) (engine.ProgressRecord, error) {
	defer s.wlock()()

	if _, err := s.progressRow(ctx, userID, ref); err != nil {
		if !errors.Is(err, engine.ErrProgressNotFound) {
			return engine.ProgressRecord{}, err
		}
		// List membership may exist with no watch progress at all.
		contentID, episodeID := unitCols(ref)
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO user_content (user_id, content_id, episode_id, last_watch_date, is_in_list, list_type)
			VALUES (?, ?, ?, ?, ?, ?)`,
			userID, contentID, episodeID, ts(at), boolInt(inList), nullString(listType))
		if err != nil {
			return engine.ProgressRecord{}, mapSQLiteErr(err)
		}
		return s.progressRow(ctx, userID, ref)
	}

	clause, arg := unitClause(ref)
	_, err := s.q.ExecContext(ctx,
		`UPDATE user_content SET is_in_list = ?, list_type = ? WHERE user_id = ? AND `+clause,
		boolInt(inList), nullString(listType), userID, arg)
	if err != nil {
		return engine.ProgressRecord{}, mapSQLiteErr(err)
	}
	return s.progressRow(ctx, userID, ref)
}

func (s *Store) SetRating(ctx context.Context, userID engine.UserID, ref catalog.UnitRef, rating int, at time.Time) (engine.ProgressRecord, error) {
	defer s.wlock()()

	if _, err := s.progressRow(ctx, userID, ref); err != nil {
		if !errors.Is(err, engine.ErrProgressNotFound) {
			return engine.ProgressRecord{}, err
		}
		contentID, episodeID := unitCols(ref)
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO user_content (user_id, content_id, episode_id, last_watch_date, user_rating)
			VALUES (?, ?, ?, ?, ?)`,
			userID, contentID, episodeID, ts(at), rating)
		if err != nil {
			return engine.ProgressRecord{}, mapSQLiteErr(err)
		}
		return s.progressRow(ctx, userID, ref)
	}

	clause, arg := unitClause(ref)
	_, err := s.q.ExecContext(ctx,
		`UPDATE user_content SET user_rating = ? WHERE user_id = ? AND `+clause,
		rating, userID, arg)
	if err != nil {
		return engine.ProgressRecord{}, mapSQLiteErr(err)
	}
	return s.progressRow(ctx, userID, ref)
}

// scanner lets scanProgress work for both Row and Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProgress(sc scanner) (engine.ProgressRecord, error) {
	var (
		rec       engine.ProgressRecord
		contentID sql.NullInt64
		episodeID sql.NullInt64
		date      int64
		completed int
		rating    sql.NullInt64
		inList    int
		listType  sql.NullString
	)
	err := sc.Scan(&rec.ID, &rec.UserID, &contentID, &episodeID, &rec.WatchPercentage,
		&date, &completed, &rating, &inList, &listType)
	if err != nil {
		return engine.ProgressRecord{}, err
	}
	if episodeID.Valid {
		rec.Unit = catalog.EpisodeRef(catalog.EpisodeID(episodeID.Int64))
	} else {
		rec.Unit = catalog.ContentRef(catalog.ContentID(contentID.Int64))
	}
	rec.LastWatchedAt = fromTS(date)
	rec.IsCompleted = completed == 1
	rec.UserRating = int(rating.Int64)
	rec.IsInList = inList == 1
	rec.ListType = listType.String
	return rec, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
