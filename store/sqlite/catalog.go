package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kunal-9090/DocuStream/catalog"
)

// Genre lists are stored as JSON arrays in a TEXT column. SQLite has no
// native array type and the queries only ever filter with LIKE, so JSON
// keeps the round trip trivial.

func marshalGenres(genres []string) (string, error) {
	if genres == nil {
		genres = []string{}
	}
	b, err := json.Marshal(genres)
	if err != nil {
		return "", fmt.Errorf("marshal genres: %w", err)
	}
	return string(b), nil
}

func unmarshalGenres(raw string) ([]string, error) {
	var genres []string
	if err := json.Unmarshal([]byte(raw), &genres); err != nil {
		return nil, fmt.Errorf("unmarshal genres: %w", err)
	}
	return genres, nil
}

// =============================================================================
// CONTENT
// =============================================================================

const contentColumns = `
	id, title, description, thumbnail_url, video_url, duration, type,
	release_year, genres, director, age_rating, language, view_count,
	added_date, is_featured, points`

func (s *Store) CreateContent(ctx context.Context, c catalog.Content) (catalog.Content, error) {
	defer s.wlock()()

	genres, err := marshalGenres(c.Genres)
	if err != nil {
		return catalog.Content{}, err
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO content
			(title, description, thumbnail_url, video_url, duration, type,
			 release_year, genres, director, age_rating, language,
			 view_count, added_date, is_featured, points)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Title, c.Description, c.ThumbnailURL, c.VideoURL, c.Duration, c.Type,
		c.ReleaseYear, genres, c.Director, c.AgeRating, c.Language,
		c.ViewCount, ts(c.AddedDate), boolInt(c.IsFeatured), c.PointValue)
	if err != nil {
		return catalog.Content{}, mapSQLiteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return catalog.Content{}, err
	}
	c.ID = catalog.ContentID(id)
	return c, nil
}

func (s *Store) ListContent(ctx context.Context) ([]catalog.Content, error) {
	defer s.rlock()()
	return s.queryContent(ctx, `SELECT `+contentColumns+` FROM content ORDER BY added_date DESC`)
}

func (s *Store) FeaturedContent(ctx context.Context) ([]catalog.Content, error) {
	defer s.rlock()()
	return s.queryContent(ctx, `
		SELECT `+contentColumns+` FROM content
		WHERE is_featured = 1 ORDER BY added_date DESC`)
}

func (s *Store) ContentByGenre(ctx context.Context, genre string) ([]catalog.Content, error) {
	defer s.rlock()()
	// JSON array match on the quoted genre string.
	return s.queryContent(ctx, `
		SELECT `+contentColumns+` FROM content
		WHERE genres LIKE ? ORDER BY added_date DESC`,
		`%"`+genre+`"%`)
}

func (s *Store) ContentByID(ctx context.Context, id catalog.ContentID) (catalog.Content, error) {
	defer s.rlock()()

	row := s.q.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content WHERE id = ?`, id)
	c, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Content{}, catalog.ErrContentNotFound
	}
	return c, err
}

func (s *Store) queryContent(ctx context.Context, query string, args ...any) ([]catalog.Content, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanContent(sc scanner) (catalog.Content, error) {
	var (
		c         catalog.Content
		genres    string
		director  sql.NullString
		ageRating sql.NullString
		added     int64
		featured  int
	)
	err := sc.Scan(&c.ID, &c.Title, &c.Description, &c.ThumbnailURL, &c.VideoURL,
		&c.Duration, &c.Type, &c.ReleaseYear, &genres, &director, &ageRating,
		&c.Language, &c.ViewCount, &added, &featured, &c.PointValue)
	if err != nil {
		return catalog.Content{}, err
	}
	c.Genres, err = unmarshalGenres(genres)
	if err != nil {
		return catalog.Content{}, err
	}
	c.Director = director.String
	c.AgeRating = ageRating.String
	c.AddedDate = fromTS(added)
	c.IsFeatured = featured == 1
	return c, nil
}

// =============================================================================
// SERIES
// =============================================================================

const seriesColumns = `
	id, title, description, thumbnail_url, seasons, total_episodes,
	release_year_start, release_year_end, genres, creator, age_rating, is_featured`

func (s *Store) CreateSeries(ctx context.Context, sr catalog.Series) (catalog.Series, error) {
	defer s.wlock()()

	genres, err := marshalGenres(sr.Genres)
	if err != nil {
		return catalog.Series{}, err
	}
	var yearEnd any
	if sr.ReleaseYearEnd != 0 {
		yearEnd = sr.ReleaseYearEnd
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO series
			(title, description, thumbnail_url, seasons, total_episodes,
			 release_year_start, release_year_end, genres, creator, age_rating, is_featured)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.Title, sr.Description, sr.ThumbnailURL, sr.Seasons, sr.TotalEpisodes,
		sr.ReleaseYearStart, yearEnd, genres, sr.Creator, sr.AgeRating, boolInt(sr.IsFeatured))
	if err != nil {
		return catalog.Series{}, mapSQLiteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return catalog.Series{}, err
	}
	sr.ID = catalog.SeriesID(id)
	return sr, nil
}

func (s *Store) ListSeries(ctx context.Context) ([]catalog.Series, error) {
	defer s.rlock()()
	return s.querySeries(ctx, `SELECT `+seriesColumns+` FROM series ORDER BY title`)
}

func (s *Store) FeaturedSeries(ctx context.Context) ([]catalog.Series, error) {
	defer s.rlock()()
	return s.querySeries(ctx, `
		SELECT `+seriesColumns+` FROM series
		WHERE is_featured = 1 ORDER BY title`)
}

func (s *Store) SeriesByID(ctx context.Context, id catalog.SeriesID) (catalog.Series, error) {
	defer s.rlock()()

	row := s.q.QueryRowContext(ctx, `SELECT `+seriesColumns+` FROM series WHERE id = ?`, id)
	sr, err := scanSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Series{}, catalog.ErrSeriesNotFound
	}
	return sr, err
}

func (s *Store) querySeries(ctx context.Context, query string, args ...any) ([]catalog.Series, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Series
	for rows.Next() {
		sr, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

func scanSeries(sc scanner) (catalog.Series, error) {
	var (
		sr        catalog.Series
		yearEnd   sql.NullInt64
		genres    string
		creator   sql.NullString
		ageRating sql.NullString
		featured  int
	)
	err := sc.Scan(&sr.ID, &sr.Title, &sr.Description, &sr.ThumbnailURL, &sr.Seasons,
		&sr.TotalEpisodes, &sr.ReleaseYearStart, &yearEnd, &genres, &creator,
		&ageRating, &featured)
	if err != nil {
		return catalog.Series{}, err
	}
	sr.ReleaseYearEnd = int(yearEnd.Int64)
	sr.Genres, err = unmarshalGenres(genres)
	if err != nil {
		return catalog.Series{}, err
	}
	sr.Creator = creator.String
	sr.AgeRating = ageRating.String
	sr.IsFeatured = featured == 1
	return sr, nil
}

// =============================================================================
// EPISODES
// =============================================================================

const episodeColumns = `
	id, series_id, title, description, season_number, episode_number,
	duration, thumbnail_url, video_url, release_date, view_count, points`

func (s *Store) CreateEpisode(ctx context.Context, e catalog.Episode) (catalog.Episode, error) {
	defer s.wlock()()

	res, err := s.q.ExecContext(ctx, `
		INSERT INTO episodes
			(series_id, title, description, season_number, episode_number,
			 duration, thumbnail_url, video_url, release_date, view_count, points)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SeriesID, e.Title, e.Description, e.SeasonNumber, e.EpisodeNumber,
		e.Duration, e.ThumbnailURL, e.VideoURL, ts(e.ReleaseDate), e.ViewCount, e.PointValue)
	if err != nil {
		return catalog.Episode{}, mapSQLiteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return catalog.Episode{}, err
	}
	e.ID = catalog.EpisodeID(id)
	return e, nil
}

func (s *Store) SeriesEpisodes(ctx context.Context, id catalog.SeriesID) ([]catalog.Episode, error) {
	defer s.rlock()()

	rows, err := s.q.QueryContext(ctx, `
		SELECT `+episodeColumns+` FROM episodes
		WHERE series_id = ?
		ORDER BY season_number, episode_number`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) EpisodeByID(ctx context.Context, id catalog.EpisodeID) (catalog.Episode, error) {
	defer s.rlock()()

	row := s.q.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	e, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Episode{}, catalog.ErrEpisodeNotFound
	}
	return e, err
}

func scanEpisode(sc scanner) (catalog.Episode, error) {
	var (
		e        catalog.Episode
		released int64
	)
	err := sc.Scan(&e.ID, &e.SeriesID, &e.Title, &e.Description, &e.SeasonNumber,
		&e.EpisodeNumber, &e.Duration, &e.ThumbnailURL, &e.VideoURL, &released,
		&e.ViewCount, &e.PointValue)
	if err != nil {
		return catalog.Episode{}, err
	}
	e.ReleaseDate = fromTS(released)
	return e, nil
}

// =============================================================================
// VIEW COUNTS
// =============================================================================

func (s *Store) IncrementViewCount(ctx context.Context, ref catalog.UnitRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	defer s.wlock()()

	var (
		res     sql.Result
		err     error
		missing error
	)
	if ref.IsContent() {
		res, err = s.q.ExecContext(ctx,
			`UPDATE content SET view_count = view_count + 1 WHERE id = ?`, ref.ContentID)
		missing = catalog.ErrContentNotFound
	} else {
		res, err = s.q.ExecContext(ctx,
			`UPDATE episodes SET view_count = view_count + 1 WHERE id = ?`, ref.EpisodeID)
		missing = catalog.ErrEpisodeNotFound
	}
	if err != nil {
		return mapSQLiteErr(err)
	}
	return requireRow(res, missing)
}
