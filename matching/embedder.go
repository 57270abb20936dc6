// Package matching implements the matchmaking core: candidate retrieval over
// cached embeddings, judgment-based re-ranking with reciprocity detection,
// and three-party barter cycle search.
package matching

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/skillswap/ai"
	"github.com/hrygo/skillswap/ai/metrics"
	"github.com/hrygo/skillswap/store"
)

// CacheStore is the embedding cache persistence the embedder depends on.
// *store.Store satisfies it.
type CacheStore interface {
	GetEmbeddingCacheEntry(ctx context.Context, ownerID string, itemType store.ItemType, refID string) (*store.EmbeddingCacheEntry, error)
	UpsertEmbeddingCacheEntry(ctx context.Context, entry *store.EmbeddingCacheEntry) (*store.EmbeddingCacheEntry, error)
}

// Embedder resolves (owner, item type, ref, text) to a vector through a
// content-hash cache, delegating misses to the embedding provider.
type Embedder struct {
	cache    CacheStore
	provider ai.EmbeddingService
	metrics  *metrics.Metrics
}

// NewEmbedder creates an Embedder. metrics may be nil.
func NewEmbedder(cache CacheStore, provider ai.EmbeddingService, m *metrics.Metrics) *Embedder {
	return &Embedder{
		cache:    cache,
		provider: provider,
		metrics:  m,
	}
}

// ModelName returns the active embedding model.
func (e *Embedder) ModelName() string {
	return e.provider.ModelName()
}

// GetOrCreate returns the embedding for the given text, reusing the cached
// vector when both the model and the text hash still match. A miss calls the
// provider and overwrites the entry in place, preserving CreatedTs.
//
// Provider failures propagate: a missing embedding makes a candidate
// meaningless, so there is no silent zero-vector fallback here. A failed
// cache write after a successful provider call is only logged; the next
// lookup simply recomputes.
func (e *Embedder) GetOrCreate(ctx context.Context, ownerID string, itemType store.ItemType, refID, text string) ([]float32, error) {
	textHash := HashText(text)

	cached, err := e.cache.GetEmbeddingCacheEntry(ctx, ownerID, itemType, refID)
	if err != nil {
		// A failed read degrades to a miss; the upsert below repairs the entry.
		slog.Warn("embedder: cache lookup failed, treating as miss",
			"owner", ownerID, "type", itemType, "ref", refID, "error", err)
		cached = nil
	}

	if cached != nil && cached.Model == e.provider.ModelName() && cached.TextHash == textHash && len(cached.Vector) > 0 {
		slog.Debug("embedder: cache hit", "owner", ownerID, "type", itemType, "ref", refID)
		e.metrics.RecordCacheHit()
		return cached.Vector, nil
	}

	slog.Debug("embedder: cache miss", "owner", ownerID, "type", itemType, "ref", refID, "stale", cached != nil)
	e.metrics.RecordCacheMiss()
	e.metrics.RecordEmbeddingCall()

	vectors, err := e.provider.EmbedBatch(ctx, []string{text})
	if err != nil {
		e.metrics.RecordEmbeddingError()
		return nil, err
	}
	vec := vectors[0]

	now := time.Now().Unix()
	entry := &store.EmbeddingCacheEntry{
		OwnerID:   ownerID,
		ItemType:  itemType,
		RefID:     refID,
		Model:     e.provider.ModelName(),
		TextHash:  textHash,
		Dimension: len(vec),
		Vector:    vec,
		CreatedTs: now,
		UpdatedTs: now,
	}
	if cached != nil && cached.CreatedTs != 0 {
		entry.CreatedTs = cached.CreatedTs
	}

	if _, err := e.cache.UpsertEmbeddingCacheEntry(ctx, entry); err != nil {
		slog.Warn("embedder: cache write failed, vector still usable",
			"owner", ownerID, "type", itemType, "ref", refID, "error", err)
	}

	return vec, nil
}

// NormalizeText collapses runs of whitespace and trims the ends, so that
// formatting-only differences do not bust the cache.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// HashText computes the content hash of the normalized text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return "sha256:" + hex.EncodeToString(sum[:])
}
