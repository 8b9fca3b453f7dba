package source

import (
	"context"
	"fmt"

	"github.com/mfreed/repodex/internal/vcs"
	"github.com/mfreed/repodex/pkg/types"
)

// scanDepth limits how far below a base directory repositories are
// looked for.
const scanDepth = 2

// LocalAdapter scans one named directory tree for working copies.
type LocalAdapter struct {
	name     string
	basePath string
}

// NewLocalAdapter creates a local-scan adapter for one source tree.
func NewLocalAdapter(name, basePath string) *LocalAdapter {
	return &LocalAdapter{name: name, basePath: basePath}
}

func (a *LocalAdapter) Source() types.Source {
	return types.LocalSource(a.name)
}

// Sync is sequential: the work is filesystem-bound and a scan is
// cheap. Cancellation is still honored between records.
func (a *LocalAdapter) Sync(ctx context.Context, cat Catalog, progress Progress) (int, int, error) {
	progress.report(fmt.Sprintf("Scanning %s for repositories...", a.basePath), 0, 0)

	found := vcs.Scan(a.basePath, scanDepth)
	total := len(found)
	progress.report(fmt.Sprintf("Found %d repositories in %s", total, a.name), 0, total)

	var (
		current int
		changed int
	)
	for _, info := range found {
		if ctx.Err() != nil {
			break
		}
		current++
		progress.report(fmt.Sprintf("Syncing %s...", info.Name), current, total)

		description, _ := vcs.Description(info.Root)
		rec := &types.Repository{
			FullName:      fmt.Sprintf("%s:%s", a.name, info.Name),
			Name:          info.Name,
			Description:   description,
			Private:       inferPrivate(info.Root),
			CloneURL:      info.RemoteURL,
			LocalPath:     info.Root,
			Source:        types.LocalSource(a.name),
			SourceSubtype: string(info.Kind),
		}

		isNew, err := cat.UpsertLocal(ctx, rec)
		if err != nil {
			continue
		}
		if isNew {
			changed++
		}
	}

	progress.report(fmt.Sprintf("Synced %d repos from %s (%d new)", current, a.name, changed), current, current)
	return current, changed, nil
}

func (a *LocalAdapter) FetchReadmes(ctx context.Context, repos []*types.Repository, progress Progress) map[string]string {
	results := make(map[string]string)
	total := len(repos)

	for i, rec := range repos {
		if ctx.Err() != nil {
			break
		}
		progress.report(fmt.Sprintf("Reading README for %s...", rec.Name), i+1, total)

		if rec.LocalPath == "" {
			continue
		}
		if readme, ok := vcs.ReadReadme(rec.LocalPath); ok && readme != "" {
			results[rec.FullName] = readme
		}
	}
	return results
}
