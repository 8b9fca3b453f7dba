package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mfreed/repodex/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore creates a new SQLite catalog store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const repoColumns = `full_name, name, description, created_at, updated_at, pushed_at,
	is_private, html_url, clone_url, default_branch, topics, local_path, readme,
	source, source_subtype, last_synced, embedded_at, needs_embedding`

// scanner covers *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRepository(sc scanner) (*types.Repository, error) {
	var (
		rec        types.Repository
		createdAt  sql.NullTime
		updatedAt  sql.NullTime
		pushedAt   sql.NullTime
		lastSynced sql.NullTime
		embeddedAt sql.NullTime
		topicsJSON string
		source     string
	)

	err := sc.Scan(
		&rec.FullName, &rec.Name, &rec.Description, &createdAt, &updatedAt, &pushedAt,
		&rec.Private, &rec.HTMLURL, &rec.CloneURL, &rec.DefaultBranch, &topicsJSON,
		&rec.LocalPath, &rec.Readme, &source, &rec.SourceSubtype, &lastSynced,
		&embeddedAt, &rec.NeedsEmbedding,
	)
	if err != nil {
		return nil, err
	}

	rec.Source = types.Source(source)
	rec.CreatedAt = createdAt.Time
	rec.UpdatedAt = updatedAt.Time
	rec.PushedAt = pushedAt.Time
	rec.LastSynced = lastSynced.Time
	if embeddedAt.Valid {
		t := embeddedAt.Time
		rec.EmbeddedAt = &t
	}
	// Malformed topics degrade to none rather than failing the read.
	if err := json.Unmarshal([]byte(topicsJSON), &rec.Topics); err != nil {
		rec.Topics = nil
	}
	return &rec, nil
}

func marshalTopics(topics []string) string {
	if len(topics) == 0 {
		return "[]"
	}
	data, err := json.Marshal(topics)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func (s *SQLiteStore) insertRepository(ctx context.Context, q querier, rec *types.Repository, now time.Time) error {
	query := `
		INSERT INTO repositories (full_name, name, description, created_at, updated_at,
			pushed_at, is_private, html_url, clone_url, default_branch, topics,
			local_path, readme, source, source_subtype, last_synced, needs_embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`
	_, err := q.ExecContext(ctx, query,
		rec.FullName, rec.Name, rec.Description, nullTime(rec.CreatedAt), nullTime(rec.UpdatedAt),
		nullTime(rec.PushedAt), rec.Private, rec.HTMLURL, rec.CloneURL, rec.DefaultBranch,
		marshalTopics(rec.Topics), rec.LocalPath, rec.Readme, string(rec.Source),
		rec.SourceSubtype, now)
	if err != nil {
		return fmt.Errorf("failed to insert repository %s: %w", rec.FullName, err)
	}
	rec.LastSynced = now
	rec.NeedsEmbedding = true
	return nil
}

// UpsertForge inserts or updates a forge record. A moved push
// timestamp marks the record for re-embedding.
func (s *SQLiteStore) UpsertForge(ctx context.Context, rec *types.Repository) (bool, error) {
	now := time.Now()

	var existingPushed sql.NullTime
	err := s.db.QueryRowContext(ctx,
		"SELECT pushed_at FROM repositories WHERE full_name = ?", rec.FullName).
		Scan(&existingPushed)
	if err == sql.ErrNoRows {
		if err := s.insertRepository(ctx, s.db, rec, now); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read repository %s: %w", rec.FullName, err)
	}

	var changed bool
	if existingPushed.Valid {
		changed = !existingPushed.Time.Equal(rec.PushedAt)
	} else {
		changed = !rec.PushedAt.IsZero()
	}

	// local_path is resolved from the filesystem; an empty incoming
	// value must not clobber a previously resolved one.
	query := `
		UPDATE repositories SET
			name = ?, description = ?, created_at = ?, updated_at = ?, pushed_at = ?,
			is_private = ?, html_url = ?, clone_url = ?, default_branch = ?, topics = ?,
			local_path = COALESCE(NULLIF(?, ''), local_path),
			source = ?, source_subtype = ?, last_synced = ?,
			needs_embedding = CASE WHEN ? THEN 1 ELSE needs_embedding END
		WHERE full_name = ?
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.Name, rec.Description, nullTime(rec.CreatedAt), nullTime(rec.UpdatedAt),
		nullTime(rec.PushedAt), rec.Private, rec.HTMLURL, rec.CloneURL, rec.DefaultBranch,
		marshalTopics(rec.Topics), rec.LocalPath, string(rec.Source), rec.SourceSubtype,
		now, changed, rec.FullName)
	if err != nil {
		return false, fmt.Errorf("failed to update repository %s: %w", rec.FullName, err)
	}
	rec.LastSynced = now
	return changed, nil
}

// UpsertLocal inserts or updates a hub or local-scan record. Existing
// records get a metadata refresh that leaves the embedding flag
// alone, so a repository moved on disk keeps its current embedding.
func (s *SQLiteStore) UpsertLocal(ctx context.Context, rec *types.Repository) (bool, error) {
	now := time.Now()

	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM repositories WHERE full_name = ?", rec.FullName).
		Scan(&exists)
	if err == sql.ErrNoRows {
		if err := s.insertRepository(ctx, s.db, rec, now); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read repository %s: %w", rec.FullName, err)
	}

	query := `
		UPDATE repositories SET
			description = ?, is_private = ?, topics = ?,
			local_path = COALESCE(NULLIF(?, ''), local_path),
			html_url = COALESCE(NULLIF(?, ''), html_url),
			source = ?, source_subtype = ?, last_synced = ?
		WHERE full_name = ?
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.Description, rec.Private, marshalTopics(rec.Topics), rec.LocalPath,
		rec.HTMLURL, string(rec.Source), rec.SourceSubtype, now, rec.FullName)
	if err != nil {
		return false, fmt.Errorf("failed to update repository %s: %w", rec.FullName, err)
	}
	rec.LastSynced = now
	return false, nil
}

// Get retrieves a single record by full name
func (s *SQLiteStore) Get(ctx context.Context, fullName string) (*types.Repository, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+repoColumns+" FROM repositories WHERE full_name = ?", fullName)
	rec, err := scanRepository(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s: %w", fullName, err)
	}
	return rec, nil
}

func (s *SQLiteStore) queryRepositories(ctx context.Context, query string, args ...interface{}) ([]*types.Repository, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query repositories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var repos []*types.Repository
	for rows.Next() {
		rec, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		repos = append(repos, rec)
	}
	return repos, rows.Err()
}

// All returns every record, newest first
func (s *SQLiteStore) All(ctx context.Context) ([]*types.Repository, error) {
	return s.queryRepositories(ctx,
		"SELECT "+repoColumns+" FROM repositories ORDER BY created_at DESC")
}

// BySource returns the records belonging to one source, newest first
func (s *SQLiteStore) BySource(ctx context.Context, source types.Source) ([]*types.Repository, error) {
	return s.queryRepositories(ctx,
		"SELECT "+repoColumns+" FROM repositories WHERE source = ? ORDER BY created_at DESC",
		string(source))
}

// Count returns the number of records
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM repositories").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count repositories: %w", err)
	}
	return count, nil
}

// NeedingEmbedding returns the records flagged for embedding, newest first
func (s *SQLiteStore) NeedingEmbedding(ctx context.Context) ([]*types.Repository, error) {
	return s.queryRepositories(ctx,
		"SELECT "+repoColumns+" FROM repositories WHERE needs_embedding = 1 ORDER BY created_at DESC")
}

// UpdateReadme stores readme content for a record
func (s *SQLiteStore) UpdateReadme(ctx context.Context, fullName, readme string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE repositories SET readme = ? WHERE full_name = ?", readme, fullName)
	if err != nil {
		return fmt.Errorf("failed to update readme for %s: %w", fullName, err)
	}
	return nil
}

// UpdateLocalPath stores the resolved checkout path for a record
func (s *SQLiteStore) UpdateLocalPath(ctx context.Context, fullName, localPath string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE repositories SET local_path = ? WHERE full_name = ?", localPath, fullName)
	if err != nil {
		return fmt.Errorf("failed to update local path for %s: %w", fullName, err)
	}
	return nil
}

func markEmbeddedWithQuerier(ctx context.Context, q querier, fullName string, at time.Time) error {
	_, err := q.ExecContext(ctx,
		"UPDATE repositories SET needs_embedding = 0, embedded_at = ? WHERE full_name = ?",
		at, fullName)
	if err != nil {
		return fmt.Errorf("failed to mark %s embedded: %w", fullName, err)
	}
	return nil
}

// MarkEmbedded clears the embedding flag for one record
func (s *SQLiteStore) MarkEmbedded(ctx context.Context, fullName string, at time.Time) error {
	return markEmbeddedWithQuerier(ctx, s.db, fullName, at)
}

// MarkEmbeddedBatch clears the embedding flag for a batch of records
// in one transaction
func (s *SQLiteStore) MarkEmbeddedBatch(ctx context.Context, fullNames []string, at time.Time) error {
	if len(fullNames) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, name := range fullNames {
		if err := markEmbeddedWithQuerier(ctx, tx, name, at); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ClearAllEmbeddings flags every record for re-embedding
func (s *SQLiteStore) ClearAllEmbeddings(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE repositories SET needs_embedding = 1, embedded_at = NULL")
	if err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}
	return nil
}

// Delete removes a record
func (s *SQLiteStore) Delete(ctx context.Context, fullName string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM repositories WHERE full_name = ?", fullName)
	if err != nil {
		return fmt.Errorf("failed to delete repository %s: %w", fullName, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBySource removes every record belonging to one source
func (s *SQLiteStore) DeleteBySource(ctx context.Context, source types.Source) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM repositories WHERE source = ?", string(source))
	if err != nil {
		return 0, fmt.Errorf("failed to delete repositories for source %s: %w", source, err)
	}
	return result.RowsAffected()
}

const lastSyncKey = "last_sync"

// LastSyncTime returns the recorded end of the last sync cycle
func (s *SQLiteStore) LastSyncTime(ctx context.Context) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM sync_state WHERE key = ?", lastSyncKey).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read sync state: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		// A garbled value reads as "never synced".
		return time.Time{}, nil
	}
	return t, nil
}

// SetLastSyncTime records the end of a sync cycle
func (s *SQLiteStore) SetLastSyncTime(ctx context.Context, t time.Time) error {
	query := `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.db.ExecContext(ctx, query, lastSyncKey, t.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record sync time: %w", err)
	}
	return nil
}
