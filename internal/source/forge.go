package source

import (
	"context"
	"fmt"

	"github.com/mfreed/repodex/internal/vcs"
	"github.com/mfreed/repodex/pkg/types"
)

const forgePageSize = 100

// ForgeAdapter syncs the authenticated forge account.
type ForgeAdapter struct {
	client   ForgeClient
	resolver resolver
	workers  int
}

// NewForgeAdapter creates a forge adapter. basePaths are searched, in
// order, for local checkouts.
func NewForgeAdapter(client ForgeClient, basePaths []string, workers int) *ForgeAdapter {
	return &ForgeAdapter{
		client:   client,
		resolver: resolver{basePaths: basePaths},
		workers:  workers,
	}
}

func (a *ForgeAdapter) Source() types.Source {
	return types.SourceForge
}

func (a *ForgeAdapter) Sync(ctx context.Context, cat Catalog, progress Progress) (int, int, error) {
	progress.report("Fetching repository list...", 0, 0)

	var listed []ForgeRepo
	for page := 1; ; page++ {
		repos, err := a.client.ListRepos(ctx, page, forgePageSize)
		if err != nil {
			return 0, 0, fmt.Errorf("list repositories: %w", err)
		}
		listed = append(listed, repos...)
		progress.report(fmt.Sprintf("Fetching repository list... (%d fetched)", len(listed)), len(listed), 0)
		if len(repos) < forgePageSize {
			break
		}
	}

	total := len(listed)
	progress.report(fmt.Sprintf("Processing %d repositories...", total), 0, total)

	var (
		current int
		changed int
	)
	fanOut(ctx, a.workers, listed,
		func(ctx context.Context, fr ForgeRepo) (*types.Repository, error) {
			return a.buildRecord(ctx, fr), nil
		},
		func(fr ForgeRepo, rec *types.Repository, _ error) {
			current++
			progress.report(fmt.Sprintf("Syncing %s...", fr.Name), current, total)

			isChanged, err := cat.UpsertForge(ctx, rec)
			if err != nil {
				// Skip failed records, keep the cycle going.
				return
			}
			if isChanged {
				changed++
			}
		})

	progress.report(fmt.Sprintf("Synced %d repositories (%d changed)", current, changed), current, current)
	return current, changed, nil
}

func (a *ForgeAdapter) buildRecord(ctx context.Context, fr ForgeRepo) *types.Repository {
	// Topic fetch failures degrade to no topics.
	topics, err := a.client.GetTopics(ctx, fr.FullName)
	if err != nil {
		topics = nil
	}

	localPath, _ := a.resolver.find(fr.Name)

	updatedAt := fr.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = fr.CreatedAt
	}
	pushedAt := fr.PushedAt
	if pushedAt.IsZero() {
		pushedAt = fr.CreatedAt
	}
	branch := fr.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	return &types.Repository{
		FullName:      fr.FullName,
		Name:          fr.Name,
		Description:   fr.Description,
		CreatedAt:     fr.CreatedAt,
		UpdatedAt:     updatedAt,
		PushedAt:      pushedAt,
		Private:       fr.Private,
		HTMLURL:       fr.HTMLURL,
		CloneURL:      fr.CloneURL,
		DefaultBranch: branch,
		Topics:        topics,
		LocalPath:     localPath,
		Source:        types.SourceForge,
	}
}

func (a *ForgeAdapter) FetchReadmes(ctx context.Context, repos []*types.Repository, progress Progress) map[string]string {
	results := make(map[string]string)
	total := len(repos)
	current := 0

	fanOut(ctx, a.workers, repos,
		func(ctx context.Context, rec *types.Repository) (string, error) {
			if rec.LocalPath != "" {
				if readme, ok := vcs.ReadReadme(rec.LocalPath); ok {
					return readme, nil
				}
			}
			return a.client.GetReadme(ctx, rec.FullName)
		},
		func(rec *types.Repository, readme string, err error) {
			current++
			progress.report(fmt.Sprintf("Fetching README for %s...", rec.Name), current, total)
			if err == nil && readme != "" {
				results[rec.FullName] = readme
			}
		})

	return results
}
