package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/tvshow-catalog/internal/model"
	"github.com/iliyamo/tvshow-catalog/internal/query"
)

// orderClause renders keys as ORDER BY terms. NULLs sort before values in
// ascending order and after them in descending order, matching
// query.SortKey.Compare. id breaks remaining ties.
func orderClause(keys []query.SortKey) string {
	terms := make([]string, 0, 2*len(keys)+1)
	for _, k := range keys {
		col := k.Column()
		if k.Desc {
			terms = append(terms, "("+col+" IS NULL) ASC", col+" DESC")
		} else {
			terms = append(terms, "("+col+" IS NULL) DESC", col+" ASC")
		}
	}
	if !hasID(keys) {
		terms = append(terms, "id ASC")
	}
	return strings.Join(terms, ", ")
}

// List returns one ordered window of shows.
func (r *ShowRepo) List(ctx context.Context, opts ListOptions) ([]model.Show, error) {
	q := `SELECT ` + showColumns + ` FROM tv_shows ORDER BY ` + orderClause(opts.Order)
	var args []any
	if opts.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}
	return r.query(ctx, r.rebind(q), args...)
}

// All returns every stored show ordered by id.
func (r *ShowRepo) All(ctx context.Context) ([]model.Show, error) {
	return r.query(ctx, `SELECT `+showColumns+` FROM tv_shows ORDER BY id ASC`)
}

func (r *ShowRepo) query(ctx context.Context, q string, args ...any) ([]model.Show, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []model.Show{}
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

// NeighbourIDs returns the nearest stored ids below and above id.
func (r *ShowRepo) NeighbourIDs(ctx context.Context, id int64) (prev, next int64, err error) {
	var p, n sql.NullInt64
	if err = r.db.QueryRowContext(ctx, r.rebind(`SELECT MAX(id) FROM tv_shows WHERE id < ?`), id).Scan(&p); err != nil {
		return 0, 0, err
	}
	if err = r.db.QueryRowContext(ctx, r.rebind(`SELECT MIN(id) FROM tv_shows WHERE id > ?`), id).Scan(&n); err != nil {
		return 0, 0, err
	}
	return p.Int64, n.Int64, nil
}
