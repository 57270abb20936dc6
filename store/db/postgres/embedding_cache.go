package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/skillswap/store"
)

func (d *DB) GetEmbeddingCacheEntry(ctx context.Context, ownerID string, itemType store.ItemType, refID string) (*store.EmbeddingCacheEntry, error) {
	query := `SELECT owner_id, item_type, ref_id, model, text_hash, dimension, embedding, created_ts, updated_ts
		FROM embedding_cache
		WHERE owner_id = $1 AND item_type = $2 AND ref_id = $3`

	var entry store.EmbeddingCacheEntry
	var vec pgvector.Vector
	err := d.db.QueryRowContext(ctx, query, ownerID, itemType, refID).Scan(
		&entry.OwnerID,
		&entry.ItemType,
		&entry.RefID,
		&entry.Model,
		&entry.TextHash,
		&entry.Dimension,
		&vec,
		&entry.CreatedTs,
		&entry.UpdatedTs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get embedding cache entry")
	}

	entry.Vector = vec.Slice()
	return &entry, nil
}

// UpsertEmbeddingCacheEntry inserts or replaces the entry for its natural
// key. created_ts of an existing row is preserved.
func (d *DB) UpsertEmbeddingCacheEntry(ctx context.Context, entry *store.EmbeddingCacheEntry) (*store.EmbeddingCacheEntry, error) {
	now := time.Now().Unix()
	if entry.CreatedTs == 0 {
		entry.CreatedTs = now
	}
	entry.UpdatedTs = now

	stmt := `INSERT INTO embedding_cache (owner_id, item_type, ref_id, model, text_hash, dimension, embedding, created_ts, updated_ts)
		VALUES (` + placeholders(9) + `)
		ON CONFLICT (owner_id, item_type, ref_id) DO UPDATE SET
			model = EXCLUDED.model,
			text_hash = EXCLUDED.text_hash,
			dimension = EXCLUDED.dimension,
			embedding = EXCLUDED.embedding,
			updated_ts = EXCLUDED.updated_ts
		RETURNING created_ts, updated_ts`

	err := d.db.QueryRowContext(ctx, stmt,
		entry.OwnerID,
		entry.ItemType,
		entry.RefID,
		entry.Model,
		entry.TextHash,
		entry.Dimension,
		pgvector.NewVector(entry.Vector),
		entry.CreatedTs,
		entry.UpdatedTs,
	).Scan(&entry.CreatedTs, &entry.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert embedding cache entry")
	}

	return entry, nil
}
