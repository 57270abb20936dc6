// Package store provides database access to all raw objects: users and their
// declared skills, persisted matches, and the embedding cache.
package store

import (
	"context"

	"github.com/hrygo/skillswap/internal/profile"
)

// Driver is an interface for the storage backend.
type Driver interface {
	GetDB() any
	Close() error

	Migrate(ctx context.Context) error

	// User objects.
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
	UpsertUser(ctx context.Context, user *User) (*User, error)

	// Match objects.
	CreateMatch(ctx context.Context, create *Match) (*Match, error)
	ListMatches(ctx context.Context, find *FindMatch) ([]*Match, error)
	GetExistingMatch(ctx context.Context, seekerID, helperID string) (*Match, error)
	UpdateMatchStatus(ctx context.Context, matchID string, status MatchStatus) (*Match, error)

	// Embedding cache objects.
	GetEmbeddingCacheEntry(ctx context.Context, ownerID string, itemType ItemType, refID string) (*EmbeddingCacheEntry, error)
	UpsertEmbeddingCacheEntry(ctx context.Context, entry *EmbeddingCacheEntry) (*EmbeddingCacheEntry, error)
}

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// Migrate applies the schema for the active driver.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}
