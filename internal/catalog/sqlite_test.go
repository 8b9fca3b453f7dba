package catalog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreed/repodex/pkg/types"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func forgeRepo(fullName string, pushedAt time.Time) *types.Repository {
	return &types.Repository{
		FullName:      fullName,
		Name:          filepath.Base(fullName),
		Description:   "a test repository",
		CreatedAt:     time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		PushedAt:      pushedAt,
		HTMLURL:       "https://github.com/" + fullName,
		DefaultBranch: "main",
		Topics:        []string{"go", "testing"},
		Source:        types.SourceForge,
	}
}

func TestUpsertForgeNewRecord(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	changed, err := store.UpsertForge(ctx, forgeRepo("alice/widgets", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := store.Get(ctx, "alice/widgets")
	require.NoError(t, err)
	assert.True(t, got.NeedsEmbedding)
	assert.Nil(t, got.EmbeddedAt)
	assert.Equal(t, types.SourceForge, got.Source)
	assert.Equal(t, []string{"go", "testing"}, got.Topics)
}

func TestUpsertForgeUnchangedSignal(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	pushed := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)

	_, err := store.UpsertForge(ctx, forgeRepo("alice/widgets", pushed))
	require.NoError(t, err)
	require.NoError(t, store.MarkEmbedded(ctx, "alice/widgets", time.Now()))

	changed, err := store.UpsertForge(ctx, forgeRepo("alice/widgets", pushed))
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := store.Get(ctx, "alice/widgets")
	require.NoError(t, err)
	assert.False(t, got.NeedsEmbedding, "unchanged push timestamp must not re-flag")
	assert.NotNil(t, got.EmbeddedAt)
}

func TestUpsertForgeChangedSignal(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertForge(ctx, forgeRepo("alice/widgets", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NoError(t, store.MarkEmbedded(ctx, "alice/widgets", time.Now()))

	changed, err := store.UpsertForge(ctx, forgeRepo("alice/widgets", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := store.Get(ctx, "alice/widgets")
	require.NoError(t, err)
	assert.True(t, got.NeedsEmbedding)
}

func TestUpsertForgePreservesLocalPath(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rec := forgeRepo("alice/widgets", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	rec.LocalPath = "/home/alice/src/widgets"
	_, err := store.UpsertForge(ctx, rec)
	require.NoError(t, err)

	// A later listing without a resolved checkout must not clear it.
	_, err = store.UpsertForge(ctx, forgeRepo("alice/widgets", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	got, err := store.Get(ctx, "alice/widgets")
	require.NoError(t, err)
	assert.Equal(t, "/home/alice/src/widgets", got.LocalPath)
}

func TestUpsertLocalRefreshKeepsEmbedding(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rec := &types.Repository{
		FullName:  "work:widgets",
		Name:      "widgets",
		LocalPath: "/old/place/widgets",
		Source:    types.LocalSource("work"),
	}
	changed, err := store.UpsertLocal(ctx, rec)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NoError(t, store.MarkEmbedded(ctx, "work:widgets", time.Now()))

	moved := &types.Repository{
		FullName:    "work:widgets",
		Name:        "widgets",
		Description: "now with a description",
		LocalPath:   "/new/place/widgets",
		Source:      types.LocalSource("work"),
	}
	changed, err = store.UpsertLocal(ctx, moved)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := store.Get(ctx, "work:widgets")
	require.NoError(t, err)
	assert.Equal(t, "/new/place/widgets", got.LocalPath)
	assert.Equal(t, "now with a description", got.Description)
	assert.False(t, got.NeedsEmbedding, "path move keeps the existing embedding")
}

func TestMarkEmbeddedBatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"alice/a", "alice/b", "alice/c"} {
		_, err := store.UpsertForge(ctx, forgeRepo(name, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
	}

	at := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.MarkEmbeddedBatch(ctx, []string{"alice/a", "alice/b", "alice/nope"}, at))

	pending, err := store.NeedingEmbedding(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "alice/c", pending[0].FullName)

	// Re-marking is a no-op.
	require.NoError(t, store.MarkEmbeddedBatch(ctx, []string{"alice/a", "alice/b"}, at))
	pending, err = store.NeedingEmbedding(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestMarkEmbeddedBatchEmpty(t *testing.T) {
	store := setupTestStore(t)
	assert.NoError(t, store.MarkEmbeddedBatch(context.Background(), nil, time.Now()))
}

func TestAllOrderedByCreation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	older := forgeRepo("alice/older", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	older.CreatedAt = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := forgeRepo("alice/newer", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	newer.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.UpsertForge(ctx, older)
	require.NoError(t, err)
	_, err = store.UpsertForge(ctx, newer)
	require.NoError(t, err)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice/newer", all[0].FullName)
	assert.Equal(t, "alice/older", all[1].FullName)
}

func TestBySourceAndDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertForge(ctx, forgeRepo("alice/widgets", time.Now()))
	require.NoError(t, err)
	_, err = store.UpsertLocal(ctx, &types.Repository{
		FullName: "work:tool", Name: "tool", Source: types.LocalSource("work"),
	})
	require.NoError(t, err)
	_, err = store.UpsertLocal(ctx, &types.Repository{
		FullName: "hf:model:alice/bert", Name: "bert",
		Source: types.SourceHub, SourceSubtype: types.HubKindModel,
	})
	require.NoError(t, err)

	work, err := store.BySource(ctx, types.LocalSource("work"))
	require.NoError(t, err)
	require.Len(t, work, 1)
	assert.Equal(t, "work:tool", work[0].FullName)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	deleted, err := store.DeleteBySource(ctx, types.SourceHub)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	require.NoError(t, store.Delete(ctx, "work:tool"))
	assert.ErrorIs(t, store.Delete(ctx, "work:tool"), ErrNotFound)

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetNotFound(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.Get(context.Background(), "nobody/nothing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClearAllEmbeddings(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertForge(ctx, forgeRepo("alice/widgets", time.Now()))
	require.NoError(t, err)
	require.NoError(t, store.MarkEmbedded(ctx, "alice/widgets", time.Now()))

	require.NoError(t, store.ClearAllEmbeddings(ctx))

	got, err := store.Get(ctx, "alice/widgets")
	require.NoError(t, err)
	assert.True(t, got.NeedsEmbedding)
	assert.Nil(t, got.EmbeddedAt)
}

func TestUpdateReadmeAndLocalPath(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertForge(ctx, forgeRepo("alice/widgets", time.Now()))
	require.NoError(t, err)

	require.NoError(t, store.UpdateReadme(ctx, "alice/widgets", "# Widgets"))
	require.NoError(t, store.UpdateLocalPath(ctx, "alice/widgets", "/src/widgets"))

	got, err := store.Get(ctx, "alice/widgets")
	require.NoError(t, err)
	assert.Equal(t, "# Widgets", got.Readme)
	assert.Equal(t, "/src/widgets", got.LocalPath)
}

func TestLastSyncTime(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	got, err := store.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	want := time.Date(2026, 2, 3, 4, 5, 6, 789000000, time.UTC)
	require.NoError(t, store.SetLastSyncTime(ctx, want))

	got, err = store.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	// Overwrite wins.
	later := want.Add(time.Hour)
	require.NoError(t, store.SetLastSyncTime(ctx, later))
	got, err = store.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, later.Equal(got))
}

func TestMigrationFromLegacySchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")

	db, err := sql.Open(DriverName, dbPath)
	require.NoError(t, err)
	_, err = db.Exec(migrationV1Up)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO schema_version (version) VALUES ('1.0.0')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO repositories (full_name, name) VALUES ('alice/legacy', 'legacy')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	got, err := store.Get(context.Background(), "alice/legacy")
	require.NoError(t, err)
	assert.Equal(t, types.SourceForge, got.Source, "legacy rows default to the forge source")
	assert.Empty(t, got.SourceSubtype)
	assert.True(t, got.NeedsEmbedding)
}
