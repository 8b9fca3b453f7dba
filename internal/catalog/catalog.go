package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/mfreed/repodex/pkg/types"
)

// ErrNotFound is returned when a requested record doesn't exist
var ErrNotFound = errors.New("not found")

// Store defines the catalog persistence operations. Every
// single-record write is atomic and committed independently.
type Store interface {
	// UpsertForge inserts or updates a forge record. The change signal
	// is the push timestamp: a new record, or an existing record whose
	// pushed_at moved, is marked as needing embedding and reported as
	// changed.
	UpsertForge(ctx context.Context, rec *types.Repository) (bool, error)

	// UpsertLocal inserts or updates a hub or local-scan record. The
	// change signal is existence: only records seen for the first time
	// are marked as needing embedding. Re-upserting an existing record
	// refreshes its metadata without touching the embedding flag.
	UpsertLocal(ctx context.Context, rec *types.Repository) (bool, error)

	Get(ctx context.Context, fullName string) (*types.Repository, error)
	All(ctx context.Context) ([]*types.Repository, error)
	BySource(ctx context.Context, source types.Source) ([]*types.Repository, error)
	Count(ctx context.Context) (int, error)

	// NeedingEmbedding returns the records whose needs_embedding flag
	// is set, newest first.
	NeedingEmbedding(ctx context.Context) ([]*types.Repository, error)

	UpdateReadme(ctx context.Context, fullName, readme string) error
	UpdateLocalPath(ctx context.Context, fullName, localPath string) error

	// MarkEmbedded clears the needs_embedding flag and records the
	// embedding time.
	MarkEmbedded(ctx context.Context, fullName string, at time.Time) error

	// MarkEmbeddedBatch marks a batch of records embedded in a single
	// transaction. Unknown names are ignored; re-marking is a no-op.
	MarkEmbeddedBatch(ctx context.Context, fullNames []string, at time.Time) error

	// ClearAllEmbeddings flags every record for re-embedding and
	// clears the recorded embedding times. The vector index is not
	// touched.
	ClearAllEmbeddings(ctx context.Context) error

	Delete(ctx context.Context, fullName string) error
	DeleteBySource(ctx context.Context, source types.Source) (int64, error)

	// LastSyncTime returns the end time of the last completed sync
	// cycle, or the zero time when no cycle has run.
	LastSyncTime(ctx context.Context) (time.Time, error)
	SetLastSyncTime(ctx context.Context, t time.Time) error

	Close() error
}
