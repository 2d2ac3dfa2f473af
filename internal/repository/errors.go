// Package repository persists shows. Sentinel errors let higher layers tell
// failure scenarios apart without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrShowNotFound indicates that a show was not located in the store.
var ErrShowNotFound = errors.New("show not found")

// ErrDuplicateTVMazeID is returned when an insert would store a catalog id
// that is already present. Handlers translate it into HTTP 409.
var ErrDuplicateTVMazeID = errors.New("tvmaze id already stored")

// isDuplicateKey reports whether err is a unique constraint violation on
// any supported backend.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	// go-sqlite3 reports "UNIQUE constraint failed: tv_shows.tvmaze_id"
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
