package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tvshow-catalog/internal/database"
	"github.com/iliyamo/tvshow-catalog/internal/model"
	"github.com/iliyamo/tvshow-catalog/internal/query"
)

var stamp = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func sample(tvmazeID int64, name string) *model.Show {
	d, _ := model.ParseDate("2011-04-17")
	return &model.Show{
		TVMazeID:  tvmazeID,
		Name:      name,
		Type:      "Scripted",
		Language:  "English",
		Genres:    []string{"Drama"},
		Status:    "Ended",
		Runtime:   ptr(60),
		Premiered: &d,
		Schedule:  model.Schedule{Time: "21:00", Days: []string{"Sunday"}},
		Rating:    model.Rating{Average: ptr(8.5)},
		Network: &model.Network{ID: 8, Name: "HBO",
			Country: &model.Country{Name: "United States", Code: "US", Timezone: "America/New_York"}},
		Summary:     "<p>text</p>",
		LastUpdated: stamp,
	}
}

// exerciseStore runs the ShowStore contract against any implementation.
func exerciseStore(t *testing.T, store ShowStore) {
	ctx := context.Background()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	a, b, c := sample(10, "Bravo"), sample(20, "Alpha"), sample(30, "Charlie")
	c.Runtime = nil
	c.Network = nil
	c.Premiered = nil
	c.Rating.Average = nil
	require.NoError(t, store.CreateMany(ctx, []*model.Show{a, b, c}))
	assert.Less(t, a.ID, b.ID)
	assert.Less(t, b.ID, c.ID)

	err = store.CreateMany(ctx, []*model.Show{sample(40, "Delta"), sample(20, "Again")})
	assert.ErrorIs(t, err, ErrDuplicateTVMazeID)
	n, _ = store.Count(ctx)
	assert.Equal(t, 3, n, "failed batch must not insert anything")

	got, err := store.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, *a, *got)

	got, err = store.GetByTVMazeID(ctx, 30)
	require.NoError(t, err)
	assert.Nil(t, got.Network)
	assert.Nil(t, got.Premiered)
	assert.Nil(t, got.Runtime)

	_, err = store.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrShowNotFound)

	byName, err := store.List(ctx, ListOptions{Order: []query.SortKey{{Attribute: "name"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, names(byName))

	byRuntime, err := store.List(ctx, ListOptions{Order: []query.SortKey{{Attribute: "runtime", Desc: true}}, Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Charlie"}, names(byRuntime))

	a.Name = "Bravo Renamed"
	a.LastUpdated = stamp.Add(time.Hour)
	require.NoError(t, store.Update(ctx, a))
	got, _ = store.GetByID(ctx, a.ID)
	assert.Equal(t, "Bravo Renamed", got.Name)
	assert.Equal(t, stamp.Add(time.Hour), got.LastUpdated)

	require.NoError(t, store.Delete(ctx, b.ID))
	assert.ErrorIs(t, store.Delete(ctx, b.ID), ErrShowNotFound)

	prev, next, err := store.NeighbourIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, prev)
	assert.Equal(t, c.ID, next, "deleted ids are skipped")

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func names(shows []model.Show) []string {
	out := make([]string, len(shows))
	for i := range shows {
		out[i] = shows[i].Name
	}
	return out
}

func TestMemoryShowRepo(t *testing.T) {
	exerciseStore(t, NewMemoryShowRepo())
}

func TestMemoryShowRepoReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryShowRepo()
	s := sample(1, "One")
	require.NoError(t, store.CreateMany(ctx, []*model.Show{s}))

	got, _ := store.GetByID(ctx, s.ID)
	got.Genres[0] = "Changed"
	again, _ := store.GetByID(ctx, s.ID)
	assert.Equal(t, "Drama", again.Genres[0])
}

func TestSQLiteShowRepo(t *testing.T) {
	db, err := database.Open(database.Params{Dialect: database.SQLite, Path: filepath.Join(t.TempDir(), "shows.db")})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))

	exerciseStore(t, NewShowRepo(db, database.SQLite))
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "(name IS NULL) DESC, name ASC, (runtime IS NULL) ASC, runtime DESC, id ASC",
		orderClause([]query.SortKey{{Attribute: "name"}, {Attribute: "runtime", Desc: true}}))
	assert.Equal(t, "(id IS NULL) ASC, id DESC",
		orderClause([]query.SortKey{{Attribute: "id", Desc: true}}))
}

func TestRebind(t *testing.T) {
	pg := NewShowRepo(nil, database.Postgres)
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", pg.rebind("SELECT 1 WHERE a = ? AND b = ?"))
	my := NewShowRepo(nil, database.MySQL)
	assert.Equal(t, "a = ?", my.rebind("a = ?"))
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1045}))
	assert.True(t, isDuplicateKey(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, isDuplicateKey(errors.New("UNIQUE constraint failed: tv_shows.tvmaze_id")))
	assert.False(t, isDuplicateKey(nil))
	assert.False(t, isDuplicateKey(errors.New("disk full")))
}
