package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreed/repodex/pkg/types"
)

// fakeCatalog mimics the store's change-detection contract in memory.
type fakeCatalog struct {
	mu      sync.Mutex
	records map[string]*types.Repository
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{records: make(map[string]*types.Repository)}
}

func (c *fakeCatalog) UpsertForge(_ context.Context, rec *types.Repository) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.records[rec.FullName]
	changed := !ok || !existing.PushedAt.Equal(rec.PushedAt)
	c.records[rec.FullName] = rec
	return changed, nil
}

func (c *fakeCatalog) UpsertLocal(_ context.Context, rec *types.Repository) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.records[rec.FullName]
	c.records[rec.FullName] = rec
	return !ok, nil
}

func (c *fakeCatalog) get(fullName string) *types.Repository {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records[fullName]
}

// fakeForgeClient serves a fixed repo list with client-side paging.
type fakeForgeClient struct {
	repos      []ForgeRepo
	listErr    error
	topicsErr  map[string]error
	readmes    map[string]string
	listCalls  int
	mu         sync.Mutex
	readmeHits []string
}

func (f *fakeForgeClient) ListRepos(_ context.Context, page, perPage int) ([]ForgeRepo, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	start := (page - 1) * perPage
	if start >= len(f.repos) {
		return nil, nil
	}
	end := start + perPage
	if end > len(f.repos) {
		end = len(f.repos)
	}
	return f.repos[start:end], nil
}

func (f *fakeForgeClient) GetTopics(_ context.Context, fullName string) ([]string, error) {
	if err := f.topicsErr[fullName]; err != nil {
		return nil, err
	}
	return []string{"topic-of-" + fullName}, nil
}

func (f *fakeForgeClient) GetReadme(_ context.Context, fullName string) (string, error) {
	f.mu.Lock()
	f.readmeHits = append(f.readmeHits, fullName)
	f.mu.Unlock()
	readme, ok := f.readmes[fullName]
	if !ok {
		return "", errors.New("no readme")
	}
	return readme, nil
}

func makeForgeRepos(n int, pushedAt time.Time) []ForgeRepo {
	repos := make([]ForgeRepo, n)
	for i := range repos {
		name := fmt.Sprintf("repo%03d", i)
		repos[i] = ForgeRepo{
			FullName:  "alice/" + name,
			Name:      name,
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			PushedAt:  pushedAt,
		}
	}
	return repos
}

func TestForgeAdapterPaginationAndChangeCounts(t *testing.T) {
	pushed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	client := &fakeForgeClient{repos: makeForgeRepos(150, pushed)}
	adapter := NewForgeAdapter(client, nil, 4)
	cat := newFakeCatalog()

	total, changed, err := adapter.Sync(context.Background(), cat, nil)
	require.NoError(t, err)
	assert.Equal(t, 150, total)
	assert.Equal(t, 150, changed)
	assert.Equal(t, 2, client.listCalls, "150 repos fit in two pages of 100")

	// Same push timestamps: nothing changes.
	total, changed, err = adapter.Sync(context.Background(), cat, nil)
	require.NoError(t, err)
	assert.Equal(t, 150, total)
	assert.Zero(t, changed)
}

func TestForgeAdapterTopicErrorIsolated(t *testing.T) {
	client := &fakeForgeClient{
		repos:     makeForgeRepos(2, time.Now()),
		topicsErr: map[string]error{"alice/repo000": errors.New("rate limited")},
	}
	adapter := NewForgeAdapter(client, nil, 2)
	cat := newFakeCatalog()

	total, _, err := adapter.Sync(context.Background(), cat, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	assert.Empty(t, cat.get("alice/repo000").Topics)
	assert.Equal(t, []string{"topic-of-alice/repo001"}, cat.get("alice/repo001").Topics)
}

func TestForgeAdapterListErrorPropagates(t *testing.T) {
	client := &fakeForgeClient{listErr: errors.New("bad credentials")}
	adapter := NewForgeAdapter(client, nil, 2)

	_, _, err := adapter.Sync(context.Background(), newFakeCatalog(), nil)
	assert.Error(t, err)
}

func TestForgeAdapterResolvesLocalPath(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "repo000", ".git"), 0o755))

	client := &fakeForgeClient{repos: makeForgeRepos(2, time.Now())}
	adapter := NewForgeAdapter(client, []string{base}, 2)
	cat := newFakeCatalog()

	_, _, err := adapter.Sync(context.Background(), cat, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "repo000"), cat.get("alice/repo000").LocalPath)
	assert.Empty(t, cat.get("alice/repo001").LocalPath)
}

func TestForgeFetchReadmesLocalFirst(t *testing.T) {
	local := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(local, "README.md"), []byte("local readme"), 0o644))

	client := &fakeForgeClient{readmes: map[string]string{"alice/remote": "remote readme"}}
	adapter := NewForgeAdapter(client, nil, 2)

	repos := []*types.Repository{
		{FullName: "alice/checked-out", Name: "checked-out", LocalPath: local},
		{FullName: "alice/remote", Name: "remote"},
		{FullName: "alice/missing", Name: "missing"},
	}
	results := adapter.FetchReadmes(context.Background(), repos, nil)

	assert.Equal(t, "local readme", results["alice/checked-out"])
	assert.Equal(t, "remote readme", results["alice/remote"])
	_, ok := results["alice/missing"]
	assert.False(t, ok)
	assert.NotContains(t, client.readmeHits, "alice/checked-out", "local content must win without an API call")
}

// fakeHubClient serves fixed per-kind listings.
type fakeHubClient struct {
	byKind  map[string][]HubRepo
	listErr map[string]error
	readmes map[string]string
}

func (f *fakeHubClient) List(_ context.Context, kind, author string) ([]HubRepo, error) {
	if err := f.listErr[kind]; err != nil {
		return nil, err
	}
	return f.byKind[kind], nil
}

func (f *fakeHubClient) GetReadme(_ context.Context, kind, id string) (string, error) {
	readme, ok := f.readmes[kind+":"+id]
	if !ok {
		return "", errors.New("no card")
	}
	return readme, nil
}

func TestHubAdapterIdentityAndTopics(t *testing.T) {
	manyTags := make([]string, 15)
	for i := range manyTags {
		manyTags[i] = fmt.Sprintf("tag%d", i)
	}

	client := &fakeHubClient{byKind: map[string][]HubRepo{
		types.HubKindDataset: {{ID: "alice/corpus", Tags: manyTags}},
		types.HubKindModel:   {{ID: "alice/bert", Private: true}},
	}}
	adapter := NewHubAdapter(client, "alice", []string{"/tmp/nowhere"}, []string{"/tmp/nowhere"}, nil, 2)
	cat := newFakeCatalog()

	total, changed, err := adapter.Sync(context.Background(), cat, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, changed)

	ds := cat.get("hf:dataset:alice/corpus")
	require.NotNil(t, ds)
	assert.Equal(t, "corpus", ds.Name)
	assert.Len(t, ds.Topics, 10)
	assert.Equal(t, "https://huggingface.co/datasets/alice/corpus", ds.HTMLURL)
	assert.Equal(t, types.SourceHub, ds.Source)
	assert.Equal(t, types.HubKindDataset, ds.SourceSubtype)

	model := cat.get("hf:model:alice/bert")
	require.NotNil(t, model)
	assert.True(t, model.Private, "API privacy applies when no checkout is found")
	assert.Equal(t, "https://huggingface.co/alice/bert", model.HTMLURL)
}

func TestHubAdapterSkipsUnconfiguredKinds(t *testing.T) {
	client := &fakeHubClient{byKind: map[string][]HubRepo{
		types.HubKindDataset: {{ID: "alice/corpus"}},
		types.HubKindSpace:   {{ID: "alice/demo"}},
	}}
	// Only spaces have a configured path slot.
	adapter := NewHubAdapter(client, "alice", nil, nil, []string{"/tmp/nowhere"}, 2)
	cat := newFakeCatalog()

	total, _, err := adapter.Sync(context.Background(), cat, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Nil(t, cat.get("hf:dataset:alice/corpus"))
	require.NotNil(t, cat.get("hf:space:alice/demo"))
	assert.Equal(t, "https://huggingface.co/spaces/alice/demo", cat.get("hf:space:alice/demo").HTMLURL)
}

func TestHubAdapterListErrorIsolated(t *testing.T) {
	client := &fakeHubClient{
		byKind:  map[string][]HubRepo{types.HubKindModel: {{ID: "alice/bert"}}},
		listErr: map[string]error{types.HubKindDataset: errors.New("hub down")},
	}
	adapter := NewHubAdapter(client, "alice", []string{"/tmp/nowhere"}, []string{"/tmp/nowhere"}, nil, 2)
	cat := newFakeCatalog()

	total, _, err := adapter.Sync(context.Background(), cat, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.NotNil(t, cat.get("hf:model:alice/bert"))
}

func TestHubAdapterPrivacyFromPath(t *testing.T) {
	base := filepath.Join(t.TempDir(), "private-datasets")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "alice_corpus", ".git"), 0o755))

	client := &fakeHubClient{byKind: map[string][]HubRepo{
		types.HubKindDataset: {{ID: "alice/corpus"}},
	}}
	adapter := NewHubAdapter(client, "alice", []string{base}, nil, nil, 2)
	cat := newFakeCatalog()

	_, _, err := adapter.Sync(context.Background(), cat, nil)
	require.NoError(t, err)

	got := cat.get("hf:dataset:alice/corpus")
	require.NotNil(t, got)
	assert.Equal(t, filepath.Join(base, "alice_corpus"), got.LocalPath, "flattened owner_name form resolves")
	assert.True(t, got.Private, "checkout under a private directory is private")
}

func TestHubID(t *testing.T) {
	kind, id, ok := hubID("hf:model:alice/bert")
	require.True(t, ok)
	assert.Equal(t, "model", kind)
	assert.Equal(t, "alice/bert", id)

	_, _, ok = hubID("alice/widgets")
	assert.False(t, ok)
}

func TestLocalAdapterSync(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"alpha", "beta"} {
		dir := filepath.Join(base, name)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("the "+name+" project\n"), 0o644))
	}

	adapter := NewLocalAdapter("work", base)
	assert.Equal(t, types.LocalSource("work"), adapter.Source())
	cat := newFakeCatalog()

	total, changed, err := adapter.Sync(context.Background(), cat, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, changed)

	alpha := cat.get("work:alpha")
	require.NotNil(t, alpha)
	assert.Equal(t, "the alpha project", alpha.Description)
	assert.Equal(t, types.VCSGit, alpha.SourceSubtype)
	assert.Equal(t, filepath.Join(base, "alpha"), alpha.LocalPath)

	// Second pass: nothing new.
	_, changed, err = adapter.Sync(context.Background(), cat, nil)
	require.NoError(t, err)
	assert.Zero(t, changed)

	readmes := adapter.FetchReadmes(context.Background(), []*types.Repository{alpha}, nil)
	assert.Equal(t, "the alpha project\n", readmes["work:alpha"])
}

func TestLocalAdapterMissingBase(t *testing.T) {
	adapter := NewLocalAdapter("work", filepath.Join(t.TempDir(), "gone"))
	total, changed, err := adapter.Sync(context.Background(), newFakeCatalog(), nil)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, changed)
}

func TestFanOutSerializedDone(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	sum := 0
	fanOut(context.Background(), 8, items,
		func(_ context.Context, n int) (int, error) { return n, nil },
		func(_ int, n int, _ error) { sum += n })

	assert.Equal(t, 4950, sum)
}

func TestFanOutStopsDispatchOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	items := make([]int, 50)
	completed := 0
	fanOut(ctx, 1, items,
		func(_ context.Context, n int) (int, error) { return n, nil },
		func(_ int, _ int, _ error) {
			completed++
			if completed == 5 {
				cancel()
			}
		})

	assert.Less(t, completed, 50, "cancellation abandons undispatched items")
	assert.GreaterOrEqual(t, completed, 5, "completed results are kept")
}

func TestResolverOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(second, "widgets", ".git"), 0o755))

	r := resolver{basePaths: []string{first, second}}
	path, ok := r.find("widgets")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(second, "widgets"), path)

	_, ok = r.find("gadgets")
	assert.False(t, ok)
}

func TestInferPrivate(t *testing.T) {
	assert.True(t, inferPrivate("/home/alice/Private/repo"))
	assert.False(t, inferPrivate("/home/alice/public/repo"))
}
