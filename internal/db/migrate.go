package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/connectapp/apiserver/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations
var migrationsFS embed.FS

// Schema versions a store created by the legacy ad-hoc initializer may
// already match, in migration order.
const (
	versionUsers    = 1
	versionJobTitle = 2
	versionPosts    = 3
	versionLikes    = 4
)

// Migrate applies every pending migration for the configured driver. Running
// it against an up-to-date store is a no-op.
func Migrate(ctx context.Context, cfg config.Config) error {
	migrator, conn, err := newMigrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
		_ = conn.Close()
	}()

	if err := adoptLegacySchema(ctx, migrator, conn, Dialect(cfg.Database.Driver)); err != nil {
		return err
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debug("database schema up to date")
			return nil
		}
		return fmt.Errorf("migrate up failed: %w", err)
	}

	version, _, err := migrator.Version()
	if err == nil {
		log.WithField("version", version).Info("database migrations applied")
	}
	return nil
}

// MigrationVersion reports the applied schema version. A store with no
// recorded migrations reports version 0.
func MigrationVersion(ctx context.Context, cfg config.Config) (uint, bool, error) {
	migrator, conn, err := newMigrator(ctx, cfg)
	if err != nil {
		return 0, false, err
	}
	defer func() {
		_, _ = migrator.Close()
		_ = conn.Close()
	}()

	version, dirty, err := migrator.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return version, dirty, nil
}

// newMigrator opens a dedicated connection for golang-migrate so closing the
// migrator never touches the application's pool.
func newMigrator(ctx context.Context, cfg config.Config) (*migrate.Migrate, *sql.DB, error) {
	conn, err := Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var driver database.Driver
	switch conn.Dialect {
	case DialectSQLite:
		driver, err = sqlitemigrate.WithInstance(conn.DB, &sqlitemigrate.Config{})
	case DialectPostgres:
		driver, err = postgres.WithInstance(conn.DB, &postgres.Config{})
	}
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("init migration driver failed: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+string(conn.Dialect))
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("load migrations failed: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, string(conn.Dialect), driver)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return migrator, conn.DB, nil
}

// adoptLegacySchema records the highest version whose structure already
// exists in a store created before migrations were tracked, so Up only
// applies the missing steps.
func adoptLegacySchema(ctx context.Context, migrator *migrate.Migrate, conn *sql.DB, dialect Dialect) error {
	_, _, err := migrator.Version()
	if err == nil {
		return nil
	}
	if !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}

	version, err := legacyVersion(ctx, conn, dialect)
	if err != nil {
		return err
	}
	if version == 0 {
		return nil
	}

	log.WithField("version", version).Warn("existing untracked schema found, recording baseline version")
	if err := migrator.Force(version); err != nil {
		return fmt.Errorf("record baseline version: %w", err)
	}
	return nil
}

// legacyVersion inspects the store and returns the last migration already
// satisfied, or 0 for an empty store. Later steps create their tables with
// IF NOT EXISTS, so only the users table and its job_title column decide
// whether they are replayed safely.
func legacyVersion(ctx context.Context, conn *sql.DB, dialect Dialect) (int, error) {
	hasUsers, err := tableExists(ctx, conn, dialect, "users")
	if err != nil || !hasUsers {
		return 0, err
	}

	hasJobTitle, err := columnExists(ctx, conn, dialect, "users", "job_title")
	if err != nil {
		return 0, err
	}
	if !hasJobTitle {
		return versionUsers, nil
	}

	hasPosts, err := tableExists(ctx, conn, dialect, "posts")
	if err != nil {
		return 0, err
	}
	if !hasPosts {
		return versionJobTitle, nil
	}

	hasLikes, err := tableExists(ctx, conn, dialect, "post_likes")
	if err != nil {
		return 0, err
	}
	if !hasLikes {
		return versionPosts, nil
	}
	return versionLikes, nil
}

func tableExists(ctx context.Context, conn *sql.DB, dialect Dialect, table string) (bool, error) {
	query := `SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?`
	if dialect == DialectPostgres {
		query = `
			SELECT COUNT(1)
			FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1`
	}

	var found int
	if err := conn.QueryRowContext(ctx, query, table).Scan(&found); err != nil {
		return false, fmt.Errorf("inspect table %s: %w", table, err)
	}
	return found > 0, nil
}

func columnExists(ctx context.Context, conn *sql.DB, dialect Dialect, table, column string) (bool, error) {
	query := `SELECT COUNT(1) FROM pragma_table_info(?) WHERE name = ?`
	if dialect == DialectPostgres {
		query = `
			SELECT COUNT(1)
			FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2`
	}

	var found int
	if err := conn.QueryRowContext(ctx, query, table, column).Scan(&found); err != nil {
		return false, fmt.Errorf("inspect column %s.%s: %w", table, column, err)
	}
	return found > 0, nil
}
