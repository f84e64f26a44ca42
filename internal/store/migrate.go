package store

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/matheus3301/rtlink/internal/store/migrations"
)

// MigrateResult reports the schema version before and after Migrate.
type MigrateResult struct {
	From    uint
	Version uint
	Changed bool
}

// Migrate brings the journal schema up to date. A journal left dirty by an
// interrupted migration is refused rather than repaired.
func (db *DB) Migrate() (*MigrateResult, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	from, err := schemaVersion(m)
	if err != nil {
		return nil, err
	}

	res := &MigrateResult{From: from, Version: from}
	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		return res, nil
	case err != nil:
		return nil, fmt.Errorf("migrate from version %d: %w", from, err)
	}

	if res.Version, err = schemaVersion(m); err != nil {
		return nil, err
	}
	res.Changed = res.Version != from
	return res, nil
}

func schemaVersion(m *migrate.Migrate) (uint, error) {
	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("schema version: %w", err)
	case dirty:
		return 0, fmt.Errorf("journal schema is dirty at version %d", v)
	}
	return v, nil
}
