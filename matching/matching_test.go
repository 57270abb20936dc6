package matching

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hrygo/skillswap/ai/judge"
	"github.com/hrygo/skillswap/store"
)

// fakeProvider maps normalized text to fixed vectors and counts calls.
type fakeProvider struct {
	vectors map[string][]float32
	model   string
	calls   int
	err     error
}

func (p *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := p.vectors[NormalizeText(text)]; ok {
			out[i] = vec
		} else {
			out[i] = []float32{1, 0, 0}
		}
	}
	return out, nil
}

func (p *fakeProvider) ModelName() string {
	if p.model != "" {
		return p.model
	}
	return "fake-embed"
}

func (p *fakeProvider) Dimensions() int { return 3 }

type fakeCache struct {
	entries map[string]*store.EmbeddingCacheEntry
	getErr  error
	putErr  error
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*store.EmbeddingCacheEntry{}}
}

func cacheKey(ownerID string, itemType store.ItemType, refID string) string {
	return fmt.Sprintf("%s/%s/%s", ownerID, itemType, refID)
}

func (c *fakeCache) GetEmbeddingCacheEntry(ctx context.Context, ownerID string, itemType store.ItemType, refID string) (*store.EmbeddingCacheEntry, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[cacheKey(ownerID, itemType, refID)], nil
}

func (c *fakeCache) UpsertEmbeddingCacheEntry(ctx context.Context, entry *store.EmbeddingCacheEntry) (*store.EmbeddingCacheEntry, error) {
	if c.putErr != nil {
		return nil, c.putErr
	}
	c.puts++
	c.entries[cacheKey(entry.OwnerID, entry.ItemType, entry.RefID)] = entry
	return entry, nil
}

type fakeDirectory struct {
	users map[string]*store.User
}

func newFakeDirectory(users ...*store.User) *fakeDirectory {
	d := &fakeDirectory{users: map[string]*store.User{}}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return d.users[id], nil
}

func (d *fakeDirectory) ListActiveUsers(ctx context.Context, limit int, excludeID string) ([]*store.User, error) {
	var out []*store.User
	for _, u := range d.users {
		if !u.IsActive || u.ID == excludeID {
			continue
		}
		out = append(out, u)
	}
	// Deterministic order for tests.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ID < out[i].ID {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *fakeDirectory) GetUsersByIDs(ctx context.Context, ids []string) ([]*store.User, error) {
	var out []*store.User
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeJudge delegates to a function so each test scripts its own verdicts.
// The call counter is atomic because re-ranking runs evaluations in parallel.
type fakeJudge struct {
	fn    func(req *judge.Request) (*judge.Verdict, error)
	calls atomic.Int64
}

func (j *fakeJudge) AnalyzeMatch(ctx context.Context, req *judge.Request) (*judge.Verdict, error) {
	j.calls.Add(1)
	return j.fn(req)
}
