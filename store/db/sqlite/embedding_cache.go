package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/skillswap/store"
)

func (d *DB) GetEmbeddingCacheEntry(ctx context.Context, ownerID string, itemType store.ItemType, refID string) (*store.EmbeddingCacheEntry, error) {
	query := `SELECT owner_id, item_type, ref_id, model, text_hash, dimension, embedding, created_ts, updated_ts
		FROM embedding_cache
		WHERE owner_id = ? AND item_type = ? AND ref_id = ?`

	var entry store.EmbeddingCacheEntry
	var vectorBLOB []byte
	err := d.db.QueryRowContext(ctx, query, ownerID, itemType, refID).Scan(
		&entry.OwnerID,
		&entry.ItemType,
		&entry.RefID,
		&entry.Model,
		&entry.TextHash,
		&entry.Dimension,
		&vectorBLOB,
		&entry.CreatedTs,
		&entry.UpdatedTs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get embedding cache entry")
	}

	entry.Vector, err = blobToFloat32Array(vectorBLOB)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode embedding BLOB")
	}
	return &entry, nil
}

// UpsertEmbeddingCacheEntry inserts or replaces the entry for its natural
// key. created_ts of an existing row is preserved.
func (d *DB) UpsertEmbeddingCacheEntry(ctx context.Context, entry *store.EmbeddingCacheEntry) (*store.EmbeddingCacheEntry, error) {
	vectorBLOB, err := float32ArrayToBLOB(entry.Vector)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode embedding BLOB")
	}

	now := time.Now().Unix()
	if entry.CreatedTs == 0 {
		entry.CreatedTs = now
	}
	entry.UpdatedTs = now

	stmt := `INSERT INTO embedding_cache (owner_id, item_type, ref_id, model, text_hash, dimension, embedding, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, item_type, ref_id) DO UPDATE SET
			model = excluded.model,
			text_hash = excluded.text_hash,
			dimension = excluded.dimension,
			embedding = excluded.embedding,
			updated_ts = excluded.updated_ts
		RETURNING created_ts, updated_ts`

	err = d.db.QueryRowContext(ctx, stmt,
		entry.OwnerID,
		entry.ItemType,
		entry.RefID,
		entry.Model,
		entry.TextHash,
		entry.Dimension,
		vectorBLOB,
		entry.CreatedTs,
		entry.UpdatedTs,
	).Scan(&entry.CreatedTs, &entry.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert embedding cache entry")
	}

	return entry, nil
}
