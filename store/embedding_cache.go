package store

import (
	"context"

	"github.com/pkg/errors"
)

// ItemType distinguishes the two kinds of embedded text.
type ItemType string

const (
	ItemTypeSkill ItemType = "skill"
	ItemTypeNeed  ItemType = "need"
)

// EmbeddingCacheEntry is one cached vector, keyed by (owner, item type, ref).
// An entry is valid for reuse only while Model matches the configured
// embedding model and TextHash matches the hash of the current source text;
// otherwise it is stale and gets overwritten in place, preserving CreatedTs.
type EmbeddingCacheEntry struct {
	OwnerID   string
	ItemType  ItemType
	RefID     string
	Model     string
	TextHash  string
	Dimension int
	Vector    []float32
	CreatedTs int64
	UpdatedTs int64
}

// Validate checks the entry key and payload before an upsert.
func (e *EmbeddingCacheEntry) Validate() error {
	if e.OwnerID == "" || e.RefID == "" {
		return errors.New("embedding cache entry requires owner and ref ids")
	}
	if e.ItemType != ItemTypeSkill && e.ItemType != ItemTypeNeed {
		return errors.Errorf("invalid item type: %s", e.ItemType)
	}
	if len(e.Vector) == 0 {
		return errors.New("embedding cache entry requires a non-empty vector")
	}
	return nil
}

// GetEmbeddingCacheEntry returns the cached entry for the key, or nil.
func (s *Store) GetEmbeddingCacheEntry(ctx context.Context, ownerID string, itemType ItemType, refID string) (*EmbeddingCacheEntry, error) {
	return s.driver.GetEmbeddingCacheEntry(ctx, ownerID, itemType, refID)
}

// UpsertEmbeddingCacheEntry inserts or replaces the entry for its key.
// The write is an atomic upsert; concurrent writers race last-write-wins,
// which is harmless because the value is a deterministic function of
// (model, text).
func (s *Store) UpsertEmbeddingCacheEntry(ctx context.Context, entry *EmbeddingCacheEntry) (*EmbeddingCacheEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return s.driver.UpsertEmbeddingCacheEntry(ctx, entry)
}
