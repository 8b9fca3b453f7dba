package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/mfreed/repodex/internal/vcs"
	"github.com/mfreed/repodex/pkg/types"
)

// hubKinds is the fixed sync order.
var hubKinds = []string{types.HubKindDataset, types.HubKindModel, types.HubKindSpace}

// HubAdapter syncs a model-hub account. A kind is synced only when at
// least one base directory is configured for it.
type HubAdapter struct {
	client    HubClient
	user      string
	kindPaths map[string][]string
	workers   int
}

// NewHubAdapter creates a hub adapter. Each kind carries its own
// ordered base-directory slots for checkout resolution.
func NewHubAdapter(client HubClient, user string, datasetPaths, modelPaths, spacePaths []string, workers int) *HubAdapter {
	return &HubAdapter{
		client: client,
		user:   user,
		kindPaths: map[string][]string{
			types.HubKindDataset: datasetPaths,
			types.HubKindModel:   modelPaths,
			types.HubKindSpace:   spacePaths,
		},
		workers: workers,
	}
}

func (a *HubAdapter) Source() types.Source {
	return types.SourceHub
}

type hubListing struct {
	kind string
	repo HubRepo
}

func (a *HubAdapter) Sync(ctx context.Context, cat Catalog, progress Progress) (int, int, error) {
	var listed []hubListing
	for _, kind := range hubKinds {
		if len(a.kindPaths[kind]) == 0 {
			continue
		}
		progress.report(fmt.Sprintf("Fetching %ss from hub...", kind), 0, 0)

		repos, err := a.client.List(ctx, kind, a.user)
		if err != nil {
			// One kind failing must not take down the others.
			progress.report(fmt.Sprintf("Listing %ss failed: %v", kind, err), 0, 0)
			continue
		}
		for _, r := range repos {
			listed = append(listed, hubListing{kind: kind, repo: r})
		}
	}

	total := len(listed)
	progress.report(fmt.Sprintf("Processing %d hub repositories...", total), 0, total)

	var (
		current int
		changed int
	)
	fanOut(ctx, a.workers, listed,
		func(ctx context.Context, l hubListing) (*types.Repository, error) {
			return a.buildRecord(l), nil
		},
		func(l hubListing, rec *types.Repository, _ error) {
			current++
			progress.report(fmt.Sprintf("Syncing %s...", rec.Name), current, total)

			isNew, err := cat.UpsertLocal(ctx, rec)
			if err != nil {
				return
			}
			if isNew {
				changed++
			}
		})

	progress.report(fmt.Sprintf("Synced %d hub repositories (%d new)", current, changed), current, current)
	return current, changed, nil
}

func (a *HubAdapter) buildRecord(l hubListing) *types.Repository {
	id := l.repo.ID
	name := id
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		name = id[idx+1:]
	}

	// The checkout may sit under the bare name or the flattened
	// owner_name form.
	res := resolver{basePaths: a.kindPaths[l.kind]}
	localPath, _ := res.find(name, flatten(id))

	private := l.repo.Private
	if localPath != "" {
		private = inferPrivate(localPath)
	}

	var htmlURL string
	switch l.kind {
	case types.HubKindDataset:
		htmlURL = "https://huggingface.co/datasets/" + id
	case types.HubKindSpace:
		htmlURL = "https://huggingface.co/spaces/" + id
	default:
		htmlURL = "https://huggingface.co/" + id
	}

	topics := l.repo.Tags
	if len(topics) > 10 {
		topics = topics[:10]
	}

	updatedAt := l.repo.LastModified
	if updatedAt.IsZero() {
		updatedAt = l.repo.CreatedAt
	}

	return &types.Repository{
		FullName:      fmt.Sprintf("hf:%s:%s", l.kind, id),
		Name:          name,
		Description:   l.repo.Description,
		CreatedAt:     l.repo.CreatedAt,
		UpdatedAt:     updatedAt,
		Private:       private,
		HTMLURL:       htmlURL,
		Topics:        topics,
		LocalPath:     localPath,
		Source:        types.SourceHub,
		SourceSubtype: l.kind,
	}
}

// hubID extracts the kind and repository id out of an hf:<kind>:<id>
// identity.
func hubID(fullName string) (kind, id string, ok bool) {
	parts := strings.SplitN(fullName, ":", 3)
	if len(parts) != 3 || parts[0] != "hf" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func (a *HubAdapter) FetchReadmes(ctx context.Context, repos []*types.Repository, progress Progress) map[string]string {
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
			kind, id, ok := hubID(rec.FullName)
			if !ok {
				return "", fmt.Errorf("not a hub identity: %s", rec.FullName)
			}
			return a.client.GetReadme(ctx, kind, id)
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
