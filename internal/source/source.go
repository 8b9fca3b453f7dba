package source

import (
	"context"

	"github.com/mfreed/repodex/pkg/types"
)

// Progress reports a human-readable sync step. A zero total means the
// step count is not yet known.
type Progress func(msg string, current, total int)

func (p Progress) report(msg string, current, total int) {
	if p != nil {
		p(msg, current, total)
	}
}

// Catalog is the store surface adapters write through.
type Catalog interface {
	UpsertForge(ctx context.Context, rec *types.Repository) (bool, error)
	UpsertLocal(ctx context.Context, rec *types.Repository) (bool, error)
}

// Adapter syncs one external source into the catalog.
type Adapter interface {
	// Source identifies the records this adapter owns.
	Source() types.Source

	// Sync lists the source and upserts every record, reporting how
	// many records were seen and how many changed. A record-level
	// failure is skipped; the returned error reflects listing-level
	// failures only.
	Sync(ctx context.Context, cat Catalog, progress Progress) (total, changed int, err error)

	// FetchReadmes retrieves readme content for the given records,
	// local checkouts first. Records without a findable readme are
	// absent from the result.
	FetchReadmes(ctx context.Context, repos []*types.Repository, progress Progress) map[string]string
}
