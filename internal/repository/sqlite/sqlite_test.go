package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodeflow/internal/codec"
	"nodeflow/internal/domain"
	"nodeflow/internal/repository"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

const (
	sourceID  = "6f1c1c1e-6d3a-4c47-9a52-3b1a7a0e2f10"
	displayID = "0b7e8a55-92a4-4a39-8d2b-1e5d6a2c9f31"
)

func sampleDoc() *codec.Document {
	return &codec.Document{
		Nodes: []codec.NodeRecord{
			{
				ID:       sourceID,
				Type:     "number_source",
				Position: domain.Position{X: 10, Y: 20},
				Model:    map[string]any{"number": "3.5"},
			},
			{
				ID:       displayID,
				Type:     "number_display",
				Position: domain.Position{X: 200, Y: 20},
			},
		},
		Connections: []codec.ConnectionRecord{
			{OutID: sourceID, OutIndex: 0, InID: displayID, InIndex: 0},
		},
	}
}

// ============================================================================
// Scene Tests
// ============================================================================

func TestSaveAndLoadScene(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	info, err := repo.SaveScene(ctx, "demo", sampleDoc())
	require.NoError(t, err)
	assert.Equal(t, "demo", info.Name)
	assert.Equal(t, 2, info.Nodes)
	assert.Equal(t, 1, info.Connections)
	assert.Len(t, info.Hash, 64)
	assert.Positive(t, info.Size)

	doc, loaded, err := repo.LoadScene(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, info.Hash, loaded.Hash)
	assert.Equal(t, info.Size, loaded.Size)

	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, sourceID, doc.Nodes[0].ID)
	assert.Equal(t, "number_source", doc.Nodes[0].Type)
	assert.Equal(t, domain.Position{X: 10, Y: 20}, doc.Nodes[0].Position)
	assert.Equal(t, "3.5", doc.Nodes[0].Model["number"])
	assert.Equal(t, sampleDoc().Connections, doc.Connections)
}

func TestSaveSceneReplaces(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.SaveScene(ctx, "demo", sampleDoc())
	require.NoError(t, err)

	smaller := sampleDoc()
	smaller.Nodes = smaller.Nodes[:1]
	smaller.Connections = nil
	second, err := repo.SaveScene(ctx, "demo", smaller)
	require.NoError(t, err)
	assert.NotEqual(t, first.Hash, second.Hash)

	doc, _, err := repo.LoadScene(ctx, "demo")
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 1)
	assert.Empty(t, doc.Connections)

	scenes, err := repo.ListScenes(ctx)
	require.NoError(t, err)
	assert.Len(t, scenes, 1)
}

func TestSaveSceneRequiresName(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.SaveScene(context.Background(), "", sampleDoc())
	assert.Error(t, err)
}

func TestSameContentSameHash(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, err := repo.SaveScene(ctx, "a", sampleDoc())
	require.NoError(t, err)
	b, err := repo.SaveScene(ctx, "b", sampleDoc())
	require.NoError(t, err)
	assert.Equal(t, a.Hash, b.Hash)
}

func TestListScenes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	scenes, err := repo.ListScenes(ctx)
	require.NoError(t, err)
	assert.Empty(t, scenes)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := repo.SaveScene(ctx, name, sampleDoc())
		require.NoError(t, err)
	}

	scenes, err = repo.ListScenes(ctx)
	require.NoError(t, err)
	require.Len(t, scenes, 3)
	assert.Equal(t, "alpha", scenes[0].Name)
	assert.Equal(t, "mid", scenes[1].Name)
	assert.Equal(t, "zeta", scenes[2].Name)
	assert.Equal(t, 2, scenes[0].Nodes)
	assert.False(t, scenes[0].UpdatedAt.IsZero())
}

func TestDeleteScene(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.SaveScene(ctx, "demo", sampleDoc())
	require.NoError(t, err)

	require.NoError(t, repo.DeleteScene(ctx, "demo"))

	_, _, err = repo.LoadScene(ctx, "demo")
	assert.ErrorIs(t, err, repository.ErrSceneNotFound)

	err = repo.DeleteScene(ctx, "demo")
	assert.ErrorIs(t, err, repository.ErrSceneNotFound)
}

func TestLoadMissingScene(t *testing.T) {
	repo := newTestRepo(t)
	_, _, err := repo.LoadScene(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrSceneNotFound)
}

func TestLoadDetectsCorruption(t *testing.T) {
	tests := []struct {
		name  string
		query string
		args  []any
	}{
		{
			name:  "hash mismatch",
			query: `UPDATE scenes SET hash = ? WHERE name = 'demo'`,
			args:  []any{"0000"},
		},
		{
			name:  "garbage blob",
			query: `UPDATE scenes SET blob = ? WHERE name = 'demo'`,
			args:  []any{[]byte("not zstd")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepo(t)
			ctx := context.Background()

			_, err := repo.SaveScene(ctx, "demo", sampleDoc())
			require.NoError(t, err)
			_, err = repo.db.Exec(tt.query, tt.args...)
			require.NoError(t, err)

			_, _, err = repo.LoadScene(ctx, "demo")
			assert.ErrorIs(t, err, repository.ErrCorrupt)
		})
	}
}

func TestFileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenes.db")
	ctx := context.Background()

	repo, err := New(path)
	require.NoError(t, err)
	_, err = repo.SaveScene(ctx, "demo", sampleDoc())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	doc, _, err := reopened.LoadScene(ctx, "demo")
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 2)
}

// ============================================================================
// Helper Tests
// ============================================================================

func TestCompressRoundTrip(t *testing.T) {
	data := []byte(`{"nodes":[],"connections":[]}`)
	blob, err := compress(data)
	require.NoError(t, err)

	out, err := decompress(blob)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}
