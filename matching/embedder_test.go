package matching

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/skillswap/store"
)

func TestHashText(t *testing.T) {
	h := HashText("Python. Web development with Django")
	assert.True(t, strings.HasPrefix(h, "sha256:"))
	assert.Len(t, h, len("sha256:")+64)

	// Whitespace-only differences produce the same hash.
	assert.Equal(t, HashText("a  b\tc"), HashText(" a b c "))
	assert.NotEqual(t, HashText("a b c"), HashText("a b d"))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeText("  a \t b\n\nc "))
	assert.Equal(t, "", NormalizeText("   "))
}

func TestEmbedderMissThenHit(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{vectors: map[string][]float32{
		"React. frontend": {0, 1, 0},
	}}
	cache := newFakeCache()
	embedder := NewEmbedder(cache, provider, nil)

	vec, err := embedder.GetOrCreate(ctx, "u1", store.ItemTypeNeed, "React", "React. frontend")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, vec)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 1, cache.puts)

	// Same text again: served from cache, no provider call.
	vec, err = embedder.GetOrCreate(ctx, "u1", store.ItemTypeNeed, "React", "React. frontend")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, vec)
	assert.Equal(t, 1, provider.calls)
}

func TestEmbedderStaleTextPreservesCreatedTs(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{vectors: map[string][]float32{
		"React. hooks and state": {0, 0, 1},
	}}
	cache := newFakeCache()
	cache.entries[cacheKey("u1", store.ItemTypeNeed, "React")] = &store.EmbeddingCacheEntry{
		OwnerID:   "u1",
		ItemType:  store.ItemTypeNeed,
		RefID:     "React",
		Model:     "fake-embed",
		TextHash:  HashText("React. old description"),
		Vector:    []float32{0, 1, 0},
		CreatedTs: 111,
		UpdatedTs: 111,
	}
	embedder := NewEmbedder(cache, provider, nil)

	vec, err := embedder.GetOrCreate(ctx, "u1", store.ItemTypeNeed, "React", "React. hooks and state")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1}, vec)
	assert.Equal(t, 1, provider.calls)

	entry := cache.entries[cacheKey("u1", store.ItemTypeNeed, "React")]
	require.NotNil(t, entry)
	assert.Equal(t, int64(111), entry.CreatedTs)
	assert.Greater(t, entry.UpdatedTs, int64(111))
	assert.Equal(t, HashText("React. hooks and state"), entry.TextHash)
}

func TestEmbedderModelChangeIsMiss(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{model: "embed-v2"}
	cache := newFakeCache()
	cache.entries[cacheKey("u1", store.ItemTypeSkill, "Go")] = &store.EmbeddingCacheEntry{
		OwnerID:  "u1",
		ItemType: store.ItemTypeSkill,
		RefID:    "Go",
		Model:    "embed-v1",
		TextHash: HashText("Go. systems"),
		Vector:   []float32{0, 1, 0},
	}
	embedder := NewEmbedder(cache, provider, nil)

	_, err := embedder.GetOrCreate(ctx, "u1", store.ItemTypeSkill, "Go", "Go. systems")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, "embed-v2", cache.entries[cacheKey("u1", store.ItemTypeSkill, "Go")].Model)
}

func TestEmbedderEmptyVectorIsMiss(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	cache := newFakeCache()
	cache.entries[cacheKey("u1", store.ItemTypeSkill, "Go")] = &store.EmbeddingCacheEntry{
		OwnerID:  "u1",
		ItemType: store.ItemTypeSkill,
		RefID:    "Go",
		Model:    "fake-embed",
		TextHash: HashText("Go. systems"),
		Vector:   nil,
	}
	embedder := NewEmbedder(cache, provider, nil)

	vec, err := embedder.GetOrCreate(ctx, "u1", store.ItemTypeSkill, "Go", "Go. systems")
	require.NoError(t, err)
	assert.NotEmpty(t, vec)
	assert.Equal(t, 1, provider.calls)
}

func TestEmbedderProviderErrorPropagates(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{err: errors.New("provider down")}
	cache := newFakeCache()
	embedder := NewEmbedder(cache, provider, nil)

	_, err := embedder.GetOrCreate(ctx, "u1", store.ItemTypeNeed, "React", "React. frontend")
	require.Error(t, err)
	assert.Equal(t, 0, cache.puts)
}

func TestEmbedderCacheWriteFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	cache := newFakeCache()
	cache.putErr = errors.New("disk full")
	embedder := NewEmbedder(cache, provider, nil)

	vec, err := embedder.GetOrCreate(ctx, "u1", store.ItemTypeNeed, "React", "React. frontend")
	require.NoError(t, err)
	assert.NotEmpty(t, vec)
}

func TestEmbedderCacheReadFailureDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	cache := newFakeCache()
	cache.getErr = errors.New("connection reset")
	embedder := NewEmbedder(cache, provider, nil)

	vec, err := embedder.GetOrCreate(ctx, "u1", store.ItemTypeNeed, "React", "React. frontend")
	require.NoError(t, err)
	assert.NotEmpty(t, vec)
	assert.Equal(t, 1, provider.calls)
}
