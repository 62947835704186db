package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	domainerrors "diagrammer/internal/core/errors"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Record is one cached analysis row.
type Record struct {
	SHA         string
	RepoName    string
	RepoURL     string
	SessionID   string
	FetchedAt   time.Time
	ModuleCount int
	FileCount   int
	Payload     []byte
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("cache path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("cache path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory %q: %w", dir, err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}

	// WAL lets the watcher reload while a TUI session reads.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite cache %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save inserts rec, replacing any earlier row for the same SHA.
func (s *Store) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.SHA = strings.TrimSpace(rec.SHA)
	if rec.SHA == "" {
		return domainerrors.New(domainerrors.CodeValidationError, "analysis has no commit sha")
	}
	if len(rec.Payload) == 0 {
		return domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeValidationError, "analysis payload is empty"),
			domainerrors.CtxSHA, rec.SHA,
		)
	}
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = time.Now().UTC()
	}

	query := `
INSERT INTO analyses (
  sha, repo_name, repo_url, session_id, fetched_at_utc, module_count, file_count, payload
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(sha) DO UPDATE SET
  repo_name=excluded.repo_name,
  repo_url=CASE WHEN excluded.repo_url = '' THEN analyses.repo_url ELSE excluded.repo_url END,
  session_id=excluded.session_id,
  fetched_at_utc=excluded.fetched_at_utc,
  module_count=excluded.module_count,
  file_count=excluded.file_count,
  payload=excluded.payload
`
	return s.withRetry("save analysis", func() error {
		_, err := s.db.Exec(
			query,
			rec.SHA,
			rec.RepoName,
			rec.RepoURL,
			rec.SessionID,
			rec.FetchedAt.UTC().Format(time.RFC3339Nano),
			rec.ModuleCount,
			rec.FileCount,
			rec.Payload,
		)
		return err
	})
}

// Load returns the row stored for sha, or a NOT_FOUND error.
func (s *Store) Load(sha string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sha = strings.TrimSpace(sha)
	var (
		rec   Record
		tsRaw string
	)
	err := s.withRetry("load analysis", func() error {
		return s.db.QueryRow(`
SELECT sha, repo_name, repo_url, session_id, fetched_at_utc, module_count, file_count, payload
FROM analyses WHERE sha = ?`, sha).Scan(
			&rec.SHA,
			&rec.RepoName,
			&rec.RepoURL,
			&rec.SessionID,
			&tsRaw,
			&rec.ModuleCount,
			&rec.FileCount,
			&rec.Payload,
		)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeNotFound, "Cache miss"),
			domainerrors.CtxSHA, sha,
		)
	}
	if err != nil {
		return Record{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return Record{}, fmt.Errorf("parse fetched timestamp %q: %w", tsRaw, err)
	}
	rec.FetchedAt = ts.UTC()
	return rec, nil
}

// Recent lists the newest rows first, without payloads. A non-positive limit
// lists everything.
func (s *Store) Recent(limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT sha, repo_name, repo_url, session_id, fetched_at_utc, module_count, file_count
FROM analyses
ORDER BY fetched_at_utc DESC, sha ASC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("list analyses", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			rec   Record
			tsRaw string
		)
		if err := rows.Scan(
			&rec.SHA,
			&rec.RepoName,
			&rec.RepoURL,
			&rec.SessionID,
			&tsRaw,
			&rec.ModuleCount,
			&rec.FileCount,
		); err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse fetched timestamp %q: %w", tsRaw, err)
		}
		rec.FetchedAt = ts.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analysis rows: %w", err)
	}
	return records, nil
}

// Count returns the number of cached analyses.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.withRetry("count analyses", func() error {
		return s.db.QueryRow(`SELECT COUNT(*) FROM analyses`).Scan(&n)
	})
	return n, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
