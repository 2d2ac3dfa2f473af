package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

// ParseDialect validates a DB_DRIVER value.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(s); d {
	case SQLite, MySQL, Postgres:
		return d, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", s)
}

// Params carries the connection settings for every dialect. Path is used by
// SQLite only; the rest by MySQL and Postgres.
type Params struct {
	Dialect Dialect
	Path    string
	User    string
	Pass    string
	Host    string
	Port    string
	Name    string
}

// DSN builds the driver name and data source for p.
func (p Params) DSN() (driver, dsn string) {
	switch p.Dialect {
	case MySQL:
		auth := p.User
		if p.Pass != "" {
			auth = fmt.Sprintf("%s:%s", p.User, p.Pass)
		}
		// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
		return "mysql", fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			auth, p.Host, p.Port, p.Name)
	case Postgres:
		return "pgx", fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			p.User, p.Pass, p.Host, p.Port, p.Name)
	default:
		return "sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_loc=UTC", p.Path)
	}
}

// Open connects to the configured backend and verifies the connection.
func Open(p Params) (*sql.DB, error) {
	driver, dsn := p.DSN()
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p.Dialect, err)
	}

	// Pool settings
	if p.Dialect == SQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", p.Dialect, err)
	}
	return db, nil
}
