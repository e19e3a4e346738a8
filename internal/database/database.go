package database

import (
	"database/sql"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

type PgHuddleRepository struct {
	conn *sql.DB
}

func NewPgHuddleRepository(dsn string) (*PgHuddleRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgHuddleRepository{conn: db}, nil
}

// Migrate applies any pending schema migrations. sourceURL is a
// golang-migrate source, e.g. "file://db/migrations".
func (db *PgHuddleRepository) Migrate(sourceURL string) error {
	driver, err := migratepg.WithInstance(db.conn, &migratepg.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (db *PgHuddleRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgHuddleRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
