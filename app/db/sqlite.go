package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed sqlite_migrations/*.sql
var sqliteMigrationFS embed.FS

// MemoryDSN opens a private in-memory database, used by tests and one-shot CLI runs.
const MemoryDSN = ":memory:"

// OpenSQLite opens (or creates) the SQLite database at path and applies the
// embedded migrations.
func OpenSQLite(path string, logger *slog.Logger) (*sql.DB, error) {
	if path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps an in-memory database alive across calls and
	// avoids "database is locked" on file databases.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := runSQLiteMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("SQLite store ready", slog.String("path", path))
	return db, nil
}

func runSQLiteMigrations(db *sql.DB, logger *slog.Logger) error {
	sourceDriver, err := iofs.New(sqliteMigrationFS, "sqlite_migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source driver: %w", err)
	}
	dbDriver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to initialize migrate instance: %w", err)
	}
	// m.Close is not called: it would close db, which the caller owns.
	return applyMigrations(m, logger)
}
