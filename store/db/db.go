package db

import (
	"github.com/pkg/errors"

	"github.com/pepavlin/agent-manager-sub000/internal/profile"
	"github.com/pepavlin/agent-manager-sub000/store"
	"github.com/pepavlin/agent-manager-sub000/store/db/postgres"
	"github.com/pepavlin/agent-manager-sub000/store/db/sqlite"
)

// PostgreSQL is the primary database for production use; it carries the
// pgvector-backed vector index alongside the relational tables.
// SQLite is supported for development and testing, without the in-database
// vector index.

// NewDBDriver creates a new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver: %s (only 'postgres' and 'sqlite' are supported)", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
