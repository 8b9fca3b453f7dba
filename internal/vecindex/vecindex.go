package vecindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/mfreed/repodex/internal/catalog"
	"github.com/mfreed/repodex/pkg/types"
)

// ErrNotFound is returned when a requested entry doesn't exist
var ErrNotFound = errors.New("not found")

// DefaultCollection is the collection repository embeddings live in.
const DefaultCollection = "repositories"

// Entry is one stored embedding.
type Entry struct {
	FullName string
	Vector   []float32
	Document string
	Metadata map[string]string
}

// Result is one similarity match.
type Result struct {
	FullName   string
	Similarity float64
	Metadata   map[string]string
}

// Index is a SQLite-backed vector store.
type Index struct {
	db         *sql.DB
	collection string
}

const schema = `
CREATE TABLE IF NOT EXISTS entries (
    collection TEXT NOT NULL,
    full_name TEXT NOT NULL,
    vector BLOB NOT NULL,
    dimension INTEGER NOT NULL,
    document TEXT NOT NULL DEFAULT '',
    metadata TEXT NOT NULL DEFAULT '{}',
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (collection, full_name)
);

CREATE INDEX IF NOT EXISTS idx_entries_collection ON entries(collection);
`

// New opens (creating if needed) the vector index at dbPath.
func New(dbPath string) (*Index, error) {
	db, err := sql.Open(catalog.DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create vector index schema: %w", err)
	}

	return &Index{db: db, collection: DefaultCollection}, nil
}

// Close closes the database connection
func (ix *Index) Close() error {
	return ix.db.Close()
}

func marshalMetadata(meta map[string]string) string {
	if len(meta) == 0 {
		return "{}"
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(data)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (ix *Index) upsertWithExecer(ctx context.Context, q execer, e *Entry) error {
	query := `
		INSERT INTO entries (collection, full_name, vector, dimension, document, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, full_name) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			document = excluded.document,
			metadata = excluded.metadata,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := q.ExecContext(ctx, query,
		ix.collection, e.FullName, serializeVector(e.Vector), len(e.Vector),
		e.Document, marshalMetadata(e.Metadata))
	if err != nil {
		return fmt.Errorf("failed to upsert vector for %s: %w", e.FullName, err)
	}
	return nil
}

// Upsert stores or replaces one entry
func (ix *Index) Upsert(ctx context.Context, e *Entry) error {
	return ix.upsertWithExecer(ctx, ix.db, e)
}

// UpsertBatch stores or replaces a batch of entries in one transaction
func (ix *Index) UpsertBatch(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range entries {
		if err := ix.upsertWithExecer(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Get retrieves one entry by full name
func (ix *Index) Get(ctx context.Context, fullName string) (*Entry, error) {
	var (
		e        Entry
		blob     []byte
		metadata string
	)
	err := ix.db.QueryRowContext(ctx,
		"SELECT full_name, vector, document, metadata FROM entries WHERE collection = ? AND full_name = ?",
		ix.collection, fullName).
		Scan(&e.FullName, &blob, &e.Document, &metadata)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vector for %s: %w", fullName, err)
	}

	e.Vector = deserializeVector(blob)
	if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
		e.Metadata = nil
	}
	return &e, nil
}

// Scores computes the cosine similarity of every stored entry against
// queryVector. Entries with a mismatched dimension are skipped.
func (ix *Index) Scores(ctx context.Context, queryVector []float32) (map[string]float64, error) {
	rows, err := ix.db.QueryContext(ctx,
		"SELECT full_name, vector FROM entries WHERE collection = ?", ix.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to scan vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	scores := make(map[string]float64)
	for rows.Next() {
		var (
			fullName string
			blob     []byte
		)
		if err := rows.Scan(&fullName, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan vector row: %w", err)
		}

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue
		}
		scores[fullName] = cosineSimilarity(queryVector, vector)
	}
	return scores, rows.Err()
}

// Query returns the k most similar entries, best first.
func (ix *Index) Query(ctx context.Context, queryVector []float32, k int) ([]Result, error) {
	rows, err := ix.db.QueryContext(ctx,
		"SELECT full_name, vector, metadata FROM entries WHERE collection = ?", ix.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to scan vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Result
	for rows.Next() {
		var (
			fullName string
			blob     []byte
			metadata string
		)
		if err := rows.Scan(&fullName, &blob, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan vector row: %w", err)
		}

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue
		}

		r := Result{FullName: fullName, Similarity: cosineSimilarity(queryVector, vector)}
		if err := json.Unmarshal([]byte(metadata), &r.Metadata); err != nil {
			r.Metadata = nil
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].FullName < results[j].FullName
	})

	if k > 0 && k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// AllRepositories rebuilds display records from the stored metadata
// snapshots.
func (ix *Index) AllRepositories(ctx context.Context) ([]*types.Repository, error) {
	rows, err := ix.db.QueryContext(ctx,
		"SELECT metadata FROM entries WHERE collection = ?", ix.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to scan metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var repos []*types.Repository
	for rows.Next() {
		var metadata string
		if err := rows.Scan(&metadata); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}

		var meta map[string]string
		if err := json.Unmarshal([]byte(metadata), &meta); err != nil {
			continue
		}
		repos = append(repos, types.FromMetadata(meta))
	}
	return repos, rows.Err()
}

// Delete removes one entry
func (ix *Index) Delete(ctx context.Context, fullName string) error {
	_, err := ix.db.ExecContext(ctx,
		"DELETE FROM entries WHERE collection = ? AND full_name = ?", ix.collection, fullName)
	if err != nil {
		return fmt.Errorf("failed to delete vector for %s: %w", fullName, err)
	}
	return nil
}

// Count returns the number of stored entries
func (ix *Index) Count(ctx context.Context) (int, error) {
	var count int
	err := ix.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entries WHERE collection = ?", ix.collection).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return count, nil
}

// Clear removes every entry in the collection
func (ix *Index) Clear(ctx context.Context) error {
	_, err := ix.db.ExecContext(ctx,
		"DELETE FROM entries WHERE collection = ?", ix.collection)
	if err != nil {
		return fmt.Errorf("failed to clear vector index: %w", err)
	}
	return nil
}
