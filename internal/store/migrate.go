package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

// insufficientPrivilege is the SQLSTATE for "permission denied".
const insufficientPrivilege = "42501"

// EnsurePgvector creates the vector extension. Roles without the privilege
// to create it pass as long as an administrator already installed it.
func EnsurePgvector(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	_, err = db.Exec("CREATE EXTENSION IF NOT EXISTS vector")
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != insufficientPrivilege {
		return fmt.Errorf("create pgvector extension: %w", err)
	}
	var exists bool
	if qErr := db.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector')").Scan(&exists); qErr != nil {
		return fmt.Errorf("check pgvector: %w (original: %w)", qErr, err)
	}
	if !exists {
		return fmt.Errorf("pgvector is not installed and this role cannot create it; run CREATE EXTENSION vector as an admin: %w", err)
	}
	return nil
}

// RunMigrations applies SQL migrations from migrationsPath (e.g. "file://migrations").
// It returns the schema version after migrating.
func RunMigrations(dsn string, migrationsPath string) (uint, error) {
	m, err := migrate.New(migrationsPath, dsn)
	if err != nil {
		return 0, fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate.Up: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("migrate.Version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}
