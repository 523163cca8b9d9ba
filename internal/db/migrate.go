package db

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies all pending up migrations to the database at dbURL.
func Migrate(dbURL string, log *zap.Logger) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(dbURL))
	if err != nil {
		return fmt.Errorf("create migration: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("No migration required")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Info("Database migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// migrateURL switches a postgres URL to the scheme of the pgx v5 driver.
func migrateURL(dbURL string) string {
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dbURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(dbURL, scheme)
		}
	}
	return dbURL
}
