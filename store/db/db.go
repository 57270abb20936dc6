// Package db wires the configured database driver.
package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/skillswap/internal/profile"
	"github.com/hrygo/skillswap/store"
	"github.com/hrygo/skillswap/store/db/postgres"
	"github.com/hrygo/skillswap/store/db/sqlite"
)

// NewDBDriver creates a new DB driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		return sqlite.NewDB(profile)
	case "postgres":
		return postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver: %s", profile.Driver)
	}
}
