package database

import (
	"context"
	"database/sql"
	"fmt"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tv_shows (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	tvmaze_id      INTEGER NOT NULL UNIQUE,
	name           TEXT NOT NULL,
	show_type      TEXT NOT NULL DEFAULT '',
	language       TEXT NOT NULL DEFAULT '',
	genres         TEXT NOT NULL DEFAULT '[]',
	status         TEXT NOT NULL DEFAULT '',
	runtime        INTEGER,
	premiered      CHAR(10),
	official_site  TEXT NOT NULL DEFAULT '',
	schedule       TEXT NOT NULL DEFAULT '{}',
	rating         TEXT NOT NULL DEFAULT '{}',
	rating_average REAL,
	weight         INTEGER,
	network        TEXT,
	summary        TEXT NOT NULL DEFAULT '',
	last_updated   DATETIME NOT NULL
)`

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS tv_shows (
	id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	tvmaze_id      BIGINT NOT NULL,
	name           VARCHAR(255) NOT NULL,
	show_type      VARCHAR(64) NOT NULL DEFAULT '',
	language       VARCHAR(64) NOT NULL DEFAULT '',
	genres         JSON NOT NULL,
	status         VARCHAR(64) NOT NULL DEFAULT '',
	runtime        INT NULL,
	premiered      CHAR(10) NULL,
	official_site  VARCHAR(512) NOT NULL DEFAULT '',
	schedule       JSON NOT NULL,
	rating         JSON NOT NULL,
	rating_average DOUBLE NULL,
	weight         INT NULL,
	network        JSON NULL,
	summary        TEXT NOT NULL,
	last_updated   DATETIME NOT NULL,
	UNIQUE KEY uq_tv_shows_tvmaze_id (tvmaze_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tv_shows (
	id             BIGSERIAL PRIMARY KEY,
	tvmaze_id      BIGINT NOT NULL UNIQUE,
	name           TEXT NOT NULL,
	show_type      TEXT NOT NULL DEFAULT '',
	language       TEXT NOT NULL DEFAULT '',
	genres         JSONB NOT NULL DEFAULT '[]',
	status         TEXT NOT NULL DEFAULT '',
	runtime        INTEGER,
	premiered      CHAR(10),
	official_site  TEXT NOT NULL DEFAULT '',
	schedule       JSONB NOT NULL DEFAULT '{}',
	rating         JSONB NOT NULL DEFAULT '{}',
	rating_average DOUBLE PRECISION,
	weight         INTEGER,
	network        JSONB,
	summary        TEXT NOT NULL DEFAULT '',
	last_updated   TIMESTAMP NOT NULL
)`

// Schema returns the tv_shows DDL for d.
func Schema(d Dialect) string {
	switch d {
	case MySQL:
		return mysqlSchema
	case Postgres:
		return postgresSchema
	default:
		return sqliteSchema
	}
}

// Migrate creates the tv_shows table when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	if _, err := db.ExecContext(ctx, Schema(d)); err != nil {
		return fmt.Errorf("create tv_shows: %w", err)
	}
	return nil
}
