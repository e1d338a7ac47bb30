package embedding

import (
	"context"
	"testing"

	"voyago/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	model string
	calls int
	texts []string
}

func (f *fakeProvider) Model() string   { return f.model }
func (f *fakeProvider) Dimensions() int { return 3 }

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.texts = append(f.texts, texts...)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1, 0}
	}
	return out, nil
}

func newCacheDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate())
	t.Cleanup(func() { database.Close() })
	return database
}

func TestCachedProviderCachesEmbeddings(t *testing.T) {
	database := newCacheDB(t)
	inner := &fakeProvider{model: "test-model"}
	cached := NewCachedProvider(inner, database, 100)
	ctx := context.Background()

	first, err := cached.Embed(ctx, []string{"goa beaches", "manali trekking"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, inner.calls)

	second, err := cached.Embed(ctx, []string{"goa beaches", "manali trekking"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls, "repeat embed should hit the cache")
}

func TestCachedProviderPartialMiss(t *testing.T) {
	database := newCacheDB(t)
	inner := &fakeProvider{model: "test-model"}
	cached := NewCachedProvider(inner, database, 100)
	ctx := context.Background()

	_, err := cached.Embed(ctx, []string{"goa beaches"})
	require.NoError(t, err)

	inner.texts = nil
	out, err := cached.Embed(ctx, []string{"goa beaches", "new text"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"new text"}, inner.texts, "only the miss should reach the inner provider")
}

func TestCachedProviderModelChangeInvalidates(t *testing.T) {
	database := newCacheDB(t)
	ctx := context.Background()

	first := &fakeProvider{model: "model-a"}
	_, err := NewCachedProvider(first, database, 100).Embed(ctx, []string{"goa beaches"})
	require.NoError(t, err)

	second := &fakeProvider{model: "model-b"}
	_, err = NewCachedProvider(second, database, 100).Embed(ctx, []string{"goa beaches"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.calls, "different model must bypass cached entries")
}

func TestCachedProviderEmptyInput(t *testing.T) {
	database := newCacheDB(t)
	inner := &fakeProvider{model: "test-model"}
	cached := NewCachedProvider(inner, database, 100)

	out, err := cached.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Zero(t, inner.calls)
}
