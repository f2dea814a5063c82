/*
Package sqlite is the SQLite-backed implementation of the engine and
catalog storage interfaces.

PURPOSE:
  One Store type persists everything: users, the append-only points
  ledger, watch progress, challenges, badges, and the content catalog.
  The engine only ever sees the interfaces; this package owns SQL.

APPEND-ONLY ENFORCEMENT:
  The points_transactions table has exactly one write statement - an
  INSERT. No UPDATE or DELETE against it exists anywhere in this
  package. Balance corrections would be compensating entries.

CONDITIONAL UPDATES:
  The completion edges are single UPDATE statements guarded in SQL:

    UPDATE user_content    SET is_completed = 1 ... AND is_completed = 0
    UPDATE user_challenges SET status = 'completed' ... AND status = 'active'

  RowsAffected is the compare-and-swap result: 1 means this call
  performed the flip. A unique (user_id, badge_id) index plays the
  same role for badge awards.

CONCURRENCY:
  A single RWMutex serializes writers (SQLite allows one writer at a
  time anyway); WAL mode keeps readers unblocked. Transactional views
  created by WithTx skip the mutex - WithTx holds the write lock for
  the whole unit.

FILE LAYOUT:
  sqlite.go    open/migrate, transactions, users, ledger
  progress.go  user_content
  challenge.go challenges + user_challenges
  badge.go     badges + user_badges
  catalog.go   content, series, episodes
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/kunal-9090/DocuStream/catalog"
	"github.com/kunal-9090/DocuStream/engine"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements engine.TxStore and catalog.Store over SQLite.
type Store struct {
	db   *sql.DB
	q    querier
	mu   *sync.RWMutex
	inTx bool
}

var (
	_ engine.TxStore = (*Store)(nil)
	_ catalog.Store  = (*Store)(nil)
)

// New opens (or creates) the database at dbPath and migrates the
// schema. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection for the whole pool. SQLite allows one writer at a
	// time regardless, and a ":memory:" database is private to the
	// connection that created it, so a second pooled connection would
	// see an empty schema.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, q: db, mu: &sync.RWMutex{}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		points INTEGER NOT NULL DEFAULT 0,
		watch_count INTEGER NOT NULL DEFAULT 0,
		watch_minutes INTEGER NOT NULL DEFAULT 0,
		join_date INTEGER NOT NULL
	);

	-- Append-only points ledger. No UPDATE or DELETE, ever.
	CREATE TABLE IF NOT EXISTS points_transactions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		transaction_date INTEGER NOT NULL,
		points_amount INTEGER NOT NULL,
		transaction_type TEXT NOT NULL,
		reference_id INTEGER,
		description TEXT NOT NULL,
		current_balance INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_user_date
		ON points_transactions(user_id, transaction_date);

	CREATE TABLE IF NOT EXISTS content (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		thumbnail_url TEXT NOT NULL,
		video_url TEXT NOT NULL,
		duration INTEGER NOT NULL,
		type TEXT NOT NULL,
		release_year INTEGER NOT NULL,
		genres TEXT NOT NULL,
		director TEXT,
		age_rating TEXT,
		language TEXT NOT NULL DEFAULT 'English',
		view_count INTEGER NOT NULL DEFAULT 0,
		added_date INTEGER NOT NULL,
		is_featured INTEGER NOT NULL DEFAULT 0,
		points INTEGER NOT NULL DEFAULT 10
	);

	CREATE TABLE IF NOT EXISTS series (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		thumbnail_url TEXT NOT NULL,
		seasons INTEGER NOT NULL,
		total_episodes INTEGER NOT NULL,
		release_year_start INTEGER NOT NULL,
		release_year_end INTEGER,
		genres TEXT NOT NULL,
		creator TEXT,
		age_rating TEXT,
		is_featured INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS episodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		series_id INTEGER NOT NULL REFERENCES series(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		season_number INTEGER NOT NULL,
		episode_number INTEGER NOT NULL,
		duration INTEGER NOT NULL,
		thumbnail_url TEXT NOT NULL,
		video_url TEXT NOT NULL,
		release_date INTEGER NOT NULL,
		view_count INTEGER NOT NULL DEFAULT 0,
		points INTEGER NOT NULL DEFAULT 10
	);
	CREATE INDEX IF NOT EXISTS idx_episodes_series
		ON episodes(series_id, season_number, episode_number);

	CREATE TABLE IF NOT EXISTS user_content (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		content_id INTEGER REFERENCES content(id),
		episode_id INTEGER REFERENCES episodes(id),
		watch_percentage INTEGER NOT NULL DEFAULT 0,
		last_watch_date INTEGER NOT NULL,
		is_completed INTEGER NOT NULL DEFAULT 0,
		user_rating INTEGER,
		is_in_list INTEGER NOT NULL DEFAULT 0,
		list_type TEXT
	);
	-- One row per (user, unit); a row references content XOR episode.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_user_content_unique
		ON user_content(user_id, content_id) WHERE content_id IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_user_episode_unique
		ON user_content(user_id, episode_id) WHERE episode_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS challenges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		image_url TEXT NOT NULL,
		start_date INTEGER NOT NULL,
		end_date INTEGER NOT NULL,
		requirement_type TEXT NOT NULL,
		requirement_value INTEGER NOT NULL,
		requirement_genre TEXT,
		point_reward INTEGER NOT NULL,
		difficulty TEXT NOT NULL,
		is_recurring INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS user_challenges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		challenge_id INTEGER NOT NULL REFERENCES challenges(id),
		progress_value INTEGER NOT NULL DEFAULT 0,
		start_date INTEGER NOT NULL,
		completion_date INTEGER,
		status TEXT NOT NULL DEFAULT 'active',
		UNIQUE(user_id, challenge_id)
	);

	CREATE TABLE IF NOT EXISTS badges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		image_url TEXT NOT NULL,
		category TEXT NOT NULL,
		tier TEXT NOT NULL,
		requirement_type TEXT NOT NULL,
		requirement_value INTEGER NOT NULL,
		requirement_genre TEXT,
		point_value INTEGER NOT NULL DEFAULT 0,
		rarity TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_badges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		badge_id INTEGER NOT NULL REFERENCES badges(id),
		date_earned INTEGER NOT NULL,
		is_displayed INTEGER NOT NULL DEFAULT 0,
		UNIQUE(user_id, badge_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LOCKING + TRANSACTIONS
// =============================================================================

// wlock takes the write lock unless this is a transactional view
// (WithTx already holds it). Returns the unlock func.
func (s *Store) wlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// WithTx runs fn against a transactional view of the store. Rolls back
// if fn errors, commits otherwise. Nested calls reuse the open
// transaction.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	view := &Store{db: s.db, q: tx, mu: s.mu, inTx: true}
	if err := fn(view); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapSQLiteErr(err)
	}
	return nil
}

// mapSQLiteErr translates driver-level contention into the engine's
// retryable conflict error.
func mapSQLiteErr(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		if serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%w: %v", engine.ErrConflict, err)
		}
	}
	return err
}

// Timestamps are stored as UTC unix nanoseconds so range comparisons
// stay plain integer comparisons.
func ts(t time.Time) int64     { return t.UTC().UnixNano() }
func fromTS(n int64) time.Time { return time.Unix(0, n).UTC() }

// =============================================================================
// USERS
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, u engine.User) (engine.User, error) {
	defer s.wlock()()

	if u.JoinDate.IsZero() {
		u.JoinDate = time.Now()
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO users (username, display_name, email, points, watch_count, watch_minutes, join_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.DisplayName, u.Email, u.Points, u.WatchCount, u.WatchMinutes, ts(u.JoinDate))
	if err != nil {
		return engine.User{}, mapSQLiteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return engine.User{}, err
	}
	u.ID = engine.UserID(id)
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id engine.UserID) (engine.User, error) {
	defer s.rlock()()

	var (
		u    engine.User
		join int64
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT id, username, display_name, email, points, watch_count, watch_minutes, join_date
		FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.Points, &u.WatchCount, &u.WatchMinutes, &join)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.User{}, engine.ErrUserNotFound
	}
	if err != nil {
		return engine.User{}, err
	}
	u.JoinDate = fromTS(join)
	return u, nil
}

func (s *Store) SetUserPoints(ctx context.Context, id engine.UserID, points int) error {
	defer s.wlock()()

	res, err := s.q.ExecContext(ctx, `UPDATE users SET points = ? WHERE id = ?`, points, id)
	if err != nil {
		return mapSQLiteErr(err)
	}
	return requireRow(res, engine.ErrUserNotFound)
}

func (s *Store) AddWatchTotals(ctx context.Context, id engine.UserID, count, minutes int) error {
	defer s.wlock()()

	res, err := s.q.ExecContext(ctx, `
		UPDATE users SET watch_count = watch_count + ?, watch_minutes = watch_minutes + ?
		WHERE id = ?`, count, minutes, id)
	if err != nil {
		return mapSQLiteErr(err)
	}
	return requireRow(res, engine.ErrUserNotFound)
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}

// =============================================================================
// LEDGER - append-only
// =============================================================================

// AppendEntry is the only write against points_transactions.
func (s *Store) AppendEntry(ctx context.Context, e engine.LedgerEntry) error {
	defer s.wlock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO points_transactions
			(id, user_id, transaction_date, points_amount, transaction_type, reference_id, description, current_balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, ts(e.CreatedAt), e.Amount, string(e.Type), e.ReferenceID, e.Description, e.CurrentBalance)
	return mapSQLiteErr(err)
}

func (s *Store) Entries(ctx context.Context, userID engine.UserID) ([]engine.LedgerEntry, error) {
	defer s.rlock()()

	return s.queryEntries(ctx, `
		SELECT id, user_id, transaction_date, points_amount, transaction_type, reference_id, description, current_balance
		FROM points_transactions WHERE user_id = ?
		ORDER BY transaction_date DESC, id DESC`, userID)
}

func (s *Store) PointsSince(ctx context.Context, userID engine.UserID, cutoff time.Time) (int, error) {
	defer s.rlock()()

	var total int
	err := s.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(points_amount), 0)
		FROM points_transactions
		WHERE user_id = ? AND transaction_date > ?`, userID, ts(cutoff)).
		Scan(&total)
	return total, err
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]engine.LedgerEntry, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.LedgerEntry
	for rows.Next() {
		var (
			e    engine.LedgerEntry
			date int64
			ref  sql.NullInt64
			typ  string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &date, &e.Amount, &typ, &ref, &e.Description, &e.CurrentBalance); err != nil {
			return nil, err
		}
		e.CreatedAt = fromTS(date)
		e.Type = engine.TransactionType(typ)
		e.ReferenceID = ref.Int64
		out = append(out, e)
	}
	return out, rows.Err()
}
