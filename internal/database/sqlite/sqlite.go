package sqlite

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func isUniqueViolationError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// DSN builds a sqlite connection string for the given database file.
// WAL keeps readers from being blocked by the single writer, and the busy
// timeout makes concurrent writers queue instead of failing immediately.
func DSN(path string, busyTimeoutMs int) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_synchronous", "NORMAL")
	q.Set("_busy_timeout", fmt.Sprintf("%d", busyTimeoutMs))
	q.Set("_foreign_keys", "on")

	return fmt.Sprintf("file:%s?%s", path, q.Encode())
}

func New(dsn string, maxOpenConns int) (*sqlx.DB, error) {
	const op = "database.sqlite.New"

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)

	return db, nil
}

// RunMigrations applies the database migrations from the specified path
// to the sqlite database file.
func RunMigrations(path, dbPath string) error {
	const op = "database.sqlite.RunMigrations"

	m, err := migrate.New(path, "sqlite3://"+dbPath)
	if err != nil {
		return fmt.Errorf("%s: failed to initialize migrations: %w", op, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	return nil
}
