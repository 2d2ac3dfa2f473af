package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/tvshow-catalog/internal/database"
	"github.com/iliyamo/tvshow-catalog/internal/model"
)

// showColumns lists tv_shows columns in the order scanShow expects.
const showColumns = `id, tvmaze_id, name, show_type, language, genres, status, runtime, premiered,
	official_site, schedule, rating, rating_average, weight, network, summary, last_updated`

// ShowRepo manages persistence for shows in a SQL database.
type ShowRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewShowRepo constructs a ShowRepo with the given DB handle. Queries are
// written with '?' placeholders and rebound for dialects that need it.
func NewShowRepo(db *sql.DB, dialect database.Dialect) *ShowRepo {
	return &ShowRepo{db: db, dialect: dialect}
}

// rebind rewrites '?' placeholders into '$n' for Postgres.
func (r *ShowRepo) rebind(q string) string {
	if r.dialect != database.Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShow(row scanner) (*model.Show, error) {
	var (
		s                        model.Show
		genres, schedule, rating string
		network, premiered       sql.NullString
		runtime, weight          sql.NullInt64
		ratingAverage            sql.NullFloat64
	)
	if err := row.Scan(&s.ID, &s.TVMazeID, &s.Name, &s.Type, &s.Language, &genres, &s.Status, &runtime, &premiered,
		&s.OfficialSite, &schedule, &rating, &ratingAverage, &weight, &network, &s.Summary, &s.LastUpdated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(genres), &s.Genres); err != nil {
		return nil, fmt.Errorf("decode genres of show %d: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(schedule), &s.Schedule); err != nil {
		return nil, fmt.Errorf("decode schedule of show %d: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(rating), &s.Rating); err != nil {
		return nil, fmt.Errorf("decode rating of show %d: %w", s.ID, err)
	}
	if network.Valid && network.String != "null" {
		s.Network = &model.Network{}
		if err := json.Unmarshal([]byte(network.String), s.Network); err != nil {
			return nil, fmt.Errorf("decode network of show %d: %w", s.ID, err)
		}
	}
	if premiered.Valid {
		d, err := model.ParseDate(premiered.String)
		if err != nil {
			return nil, fmt.Errorf("show %d: %w", s.ID, err)
		}
		s.Premiered = &d
	}
	if runtime.Valid {
		v := int(runtime.Int64)
		s.Runtime = &v
	}
	if weight.Valid {
		v := int(weight.Int64)
		s.Weight = &v
	}
	s.LastUpdated = model.Stamp(s.LastUpdated)
	return &s, nil
}

// showArgs returns the column values of s from tvmaze_id onwards, in
// showColumns order.
func showArgs(s *model.Show) ([]any, error) {
	genres := s.Genres
	if genres == nil {
		genres = []string{}
	}
	g, err := json.Marshal(genres)
	if err != nil {
		return nil, err
	}
	days := s.Schedule
	if days.Days == nil {
		days.Days = []string{}
	}
	sch, err := json.Marshal(days)
	if err != nil {
		return nil, err
	}
	rat, err := json.Marshal(s.Rating)
	if err != nil {
		return nil, err
	}
	var network, premiered, runtime, weight, avg any
	if s.Network != nil {
		b, err := json.Marshal(s.Network)
		if err != nil {
			return nil, err
		}
		network = string(b)
	}
	if s.Premiered != nil {
		premiered = s.Premiered.String()
	}
	if s.Runtime != nil {
		runtime = *s.Runtime
	}
	if s.Weight != nil {
		weight = *s.Weight
	}
	if s.Rating.Average != nil {
		avg = *s.Rating.Average
	}
	return []any{s.TVMazeID, s.Name, s.Type, s.Language, string(g), s.Status, runtime, premiered,
		s.OfficialSite, string(sch), string(rat), avg, weight, network, s.Summary, model.Stamp(s.LastUpdated)}, nil
}

// Count returns the number of stored shows.
func (r *ShowRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tv_shows`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// GetByID retrieves a show by its ID. It returns ErrShowNotFound if there
// is no matching row.
func (r *ShowRepo) GetByID(ctx context.Context, id int64) (*model.Show, error) {
	q := r.rebind(`SELECT ` + showColumns + ` FROM tv_shows WHERE id = ?`)
	s, err := scanShow(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetByTVMazeID looks a show up by its catalog id.
func (r *ShowRepo) GetByTVMazeID(ctx context.Context, tvmazeID int64) (*model.Show, error) {
	q := r.rebind(`SELECT ` + showColumns + ` FROM tv_shows WHERE tvmaze_id = ?`)
	s, err := scanShow(r.db.QueryRowContext(ctx, q, tvmazeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	return s, nil
}

// CreateMany inserts shows in one transaction and assigns the generated
// IDs back. A catalog id that is already stored rolls everything back with
// ErrDuplicateTVMazeID.
func (r *ShowRepo) CreateMany(ctx context.Context, shows []*model.Show) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range shows {
		if err := r.createTx(ctx, tx, s); err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("%w: %d", ErrDuplicateTVMazeID, s.TVMazeID)
			}
			return err
		}
	}
	return tx.Commit()
}

// createTx inserts s using the provided transaction. The caller must commit
// or roll back.
func (r *ShowRepo) createTx(ctx context.Context, tx *sql.Tx, s *model.Show) error {
	args, err := showArgs(s)
	if err != nil {
		return err
	}
	q := `INSERT INTO tv_shows (tvmaze_id, name, show_type, language, genres, status, runtime, premiered,
		official_site, schedule, rating, rating_average, weight, network, summary, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if r.dialect == database.MySQL {
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		s.ID = id
		return nil
	}
	return tx.QueryRowContext(ctx, r.rebind(q+` RETURNING id`), args...).Scan(&s.ID)
}

// Update overwrites every mutable column of s.
func (r *ShowRepo) Update(ctx context.Context, s *model.Show) error {
	args, err := showArgs(s)
	if err != nil {
		return err
	}
	q := r.rebind(`UPDATE tv_shows SET tvmaze_id = ?, name = ?, show_type = ?, language = ?, genres = ?, status = ?,
		runtime = ?, premiered = ?, official_site = ?, schedule = ?, rating = ?, rating_average = ?, weight = ?,
		network = ?, summary = ?, last_updated = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, append(args, s.ID)...)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateTVMazeID
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports zero affected rows when nothing changed.
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the show with id.
func (r *ShowRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM tv_shows WHERE id = ?`), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrShowNotFound
	}
	return nil
}
