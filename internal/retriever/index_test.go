package retriever

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *VectorIndex {
	t.Helper()
	ix, err := OpenIndex(t.TempDir(), "test_docs")
	require.NoError(t, err)
	return ix
}

func TestVectorIndexAddAndQuery(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Add(ctx, []Record{
		{ID: "1", Content: "Goa beaches", Source: "goa.pdf", Page: 1, Embedding: []float32{1, 0, 0}},
		{ID: "2", Content: "Manali snow", Source: "manali.pdf", Page: 2, Embedding: []float32{0, 1, 0}},
		{ID: "3", Content: "Goa nightlife", Source: "goa.pdf", Page: 3, Embedding: []float32{0.9, 0.1, 0}},
	}))
	assert.Equal(t, 3, ix.Count())

	hits, err := ix.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "1", hits[0].ID)
	assert.Equal(t, "Goa beaches", hits[0].Content)
	assert.Equal(t, "goa.pdf", hits[0].Source)
	assert.Equal(t, 1, hits[0].Page)
	assert.Equal(t, "3", hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestVectorIndexQueryClampsTopK(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	// Empty collection yields no hits rather than an error.
	hits, err := ix.Query(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, ix.Add(ctx, []Record{
		{ID: "1", Content: "solo", Source: "a.pdf", Page: 1, Embedding: []float32{1, 0, 0}},
	}))

	hits, err = ix.Query(ctx, []float32{1, 0, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestVectorIndexDeleteSource(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Add(ctx, []Record{
		{ID: "1", Content: "Goa beaches", Source: "goa.pdf", Page: 1, Embedding: []float32{1, 0, 0}},
		{ID: "2", Content: "Manali snow", Source: "manali.pdf", Page: 1, Embedding: []float32{0, 1, 0}},
	}))

	require.NoError(t, ix.DeleteSource(ctx, "goa.pdf"))
	assert.Equal(t, 1, ix.Count())

	hits, err := ix.Query(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "manali.pdf", hits[0].Source)
}

func TestFindPDFs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "asia"), 0o755))
	for _, name := range []string{"goa.pdf", "asia/manali.PDF", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	paths, err := FindPDFs(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"goa.pdf", filepath.Join("asia", "manali.PDF")}, paths)
}
