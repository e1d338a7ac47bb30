package retriever

import (
	"context"
	"testing"

	"voyago/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeFTS5Query(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain terms", "best beaches goa", `"best" "beaches" "goa"`},
		{"question mark", "visa requirements?", `"visa" "requirements?"`},
		{"fts operators", "goa AND manali", `"goa" "AND" "manali"`},
		{"embedded quotes", `say "hello"`, `"say" """hello"""`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeFTS5Query(tt.in))
		})
	}
}

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate())
	t.Cleanup(func() { database.Close() })
	return database
}

func seedChunks(t *testing.T, database *db.DB, source string, contents ...string) {
	t.Helper()
	ctx := context.Background()
	q := db.New(database.Conn())

	docID, err := q.UpsertDocument(ctx, db.UpsertDocumentParams{
		Path:        source,
		ContentHash: "test",
		Pages:       1,
		ChunkCount:  int64(len(contents)),
	})
	require.NoError(t, err)

	for i, content := range contents {
		_, err := q.InsertChunk(ctx, db.InsertChunkParams{
			DocumentID: docID,
			Source:     source,
			Page:       int64(i + 1),
			Content:    content,
		})
		require.NoError(t, err)
	}
}

func TestHybridSearchFTSOnly(t *testing.T) {
	database := newTestDB(t)
	seedChunks(t, database, "goa.pdf",
		"Goa is famous for its beaches and nightlife.",
		"The best time to visit Goa is from November to February.",
		"Manali offers trekking and snow sports in winter.",
	)

	// nil embedder puts all weight on FTS.
	h := NewHybridSearcher(database, nil, nil, 0.7, 0.3)
	results, err := h.Search(context.Background(), "best time visit Goa", 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Contains(t, results[0].Content, "best time to visit Goa")
	assert.Equal(t, "goa.pdf", results[0].Source)
	assert.LessOrEqual(t, len(results), 2)
	for _, r := range results {
		assert.Greater(t, r.Score, float32(0))
	}
}

func TestHybridSearchNoMatches(t *testing.T) {
	database := newTestDB(t)
	seedChunks(t, database, "goa.pdf", "Goa is famous for its beaches.")

	h := NewHybridSearcher(database, nil, nil, 0.7, 0.3)
	results, err := h.Search(context.Background(), "zanzibar", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHybridSearchLimitDefault(t *testing.T) {
	database := newTestDB(t)
	seedChunks(t, database, "goa.pdf",
		"beach one", "beach two", "beach three",
		"beach four", "beach five", "beach six", "beach seven",
	)

	h := NewHybridSearcher(database, nil, nil, 0.7, 0.3)
	results, err := h.Search(context.Background(), "beach", 0)
	require.NoError(t, err)
	assert.Len(t, results, 5)
}
