package store

import (
	"database/sql"
	"errors"
	"time"

	"hoodview/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ SessionStore = (*SQLiteStore)(nil)

// SQLiteStore implements SessionStore backed by a SQLite database, so
// sessions survive process restarts. Device tokens deliberately do not get
// the same treatment; they only need to live for one login flow.
type SQLiteStore struct {
	db *sql.DB
}

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	user_id       TEXT PRIMARY KEY,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	expires_at    INTEGER NOT NULL,
	account_id    TEXT NOT NULL DEFAULT '',
	account_url   TEXT NOT NULL DEFAULT ''
);`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, ensures
// the sessions table exists, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sessionSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the stored session for userID.
func (s *SQLiteStore) Get(userID string) (domain.Session, bool, error) {
	row := s.db.QueryRow(
		`SELECT access_token, refresh_token, expires_at, account_id, account_url
		 FROM sessions WHERE user_id = ?`, userID)

	var sess domain.Session
	var expiresAt int64
	err := row.Scan(&sess.AccessToken, &sess.RefreshToken, &expiresAt, &sess.AccountID, &sess.AccountURL)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	sess.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return sess, true, nil
}

// Set stores the session for userID, replacing any existing one.
func (s *SQLiteStore) Set(userID string, sess domain.Session) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO sessions
		 (user_id, access_token, refresh_token, expires_at, account_id, account_url)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, sess.AccessToken, sess.RefreshToken, sess.ExpiresAt.Unix(), sess.AccountID, sess.AccountURL)
	return err
}

// Clear removes the session for userID.
func (s *SQLiteStore) Clear(userID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}
