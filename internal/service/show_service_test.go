package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tvshow-catalog/internal/apperr"
	"github.com/iliyamo/tvshow-catalog/internal/model"
	"github.com/iliyamo/tvshow-catalog/internal/query"
	"github.com/iliyamo/tvshow-catalog/internal/queue"
	"github.com/iliyamo/tvshow-catalog/internal/repository"
	"github.com/iliyamo/tvshow-catalog/internal/stats"
	"github.com/iliyamo/tvshow-catalog/internal/tvmaze"
)

type fakeCatalog struct {
	results []tvmaze.SearchResult
	err     error
	calls   int
}

func (f *fakeCatalog) Search(_ context.Context, _ string) ([]tvmaze.SearchResult, error) {
	f.calls++
	return f.results, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ShowEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ShowEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func hit(id int64, name string, genres ...string) tvmaze.SearchResult {
	lang := "English"
	return tvmaze.SearchResult{Show: tvmaze.Show{ID: id, Name: name, Language: &lang, Genres: genres}}
}

func newService(cat *fakeCatalog, opts ...Option) (*ShowService, *repository.MemoryShowRepo) {
	store := repository.NewMemoryShowRepo()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewShowService(store, cat, opts...), store
}

func TestImportExactMatchIgnoringPunctuation(t *testing.T) {
	cat := &fakeCatalog{results: []tvmaze.SearchResult{
		hit(1, "It's Always Sunny in Philadelphia"),
		hit(2, "Sunny"),
	}}
	pub := &recordingPublisher{}
	svc, store := newService(cat, WithEvents(pub))

	shows, err := svc.Import(context.Background(), "Its Always Sunny in Philadelphia")
	require.NoError(t, err)
	require.Len(t, shows, 1)
	assert.Equal(t, int64(1), shows[0].TVMazeID)
	assert.Equal(t, int64(1), shows[0].ID)
	assert.Equal(t, fixedNow, shows[0].LastUpdated)

	n, _ := store.Count(context.Background())
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{queue.ShowImported}, pub.types())
}

func TestImportStoresEveryExactMatch(t *testing.T) {
	cat := &fakeCatalog{results: []tvmaze.SearchResult{hit(5, "The Office"), hit(6, "The Office!"), hit(7, "Office")}}
	svc, _ := newService(cat)

	shows, err := svc.Import(context.Background(), "the office")
	require.NoError(t, err)
	require.Len(t, shows, 2)
	assert.Equal(t, int64(5), shows[0].TVMazeID)
	assert.Equal(t, int64(6), shows[1].TVMazeID)
}

func TestImportRejectsInvalidCharactersBeforeSearching(t *testing.T) {
	cat := &fakeCatalog{}
	svc, _ := newService(cat)

	_, err := svc.Import(context.Background(), "Game of Thrones!")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Zero(t, cat.calls)
}

func TestImportNotFoundListsSimilar(t *testing.T) {
	cat := &fakeCatalog{results: []tvmaze.SearchResult{hit(1, "Friends"), hit(2, "Friends with Benefits")}}
	svc, _ := newService(cat)

	_, err := svc.Import(context.Background(), "Friend")
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindNotFound, ae.Kind)
	assert.Equal(t, []string{"Friends", "Friends with Benefits"}, ae.Details["similar"])

	cat.results = nil
	_, err = svc.Import(context.Background(), "Friend")
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindNotFound, ae.Kind)
	assert.NotContains(t, ae.Details, "similar")
}

func TestImportDuplicateIsConflict(t *testing.T) {
	cat := &fakeCatalog{results: []tvmaze.SearchResult{hit(82, "Game of Thrones")}}
	svc, store := newService(cat)
	ctx := context.Background()

	_, err := svc.Import(ctx, "Game of Thrones")
	require.NoError(t, err)

	_, err = svc.Import(ctx, "game of thrones")
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindConflict, ae.Kind)
	assert.Equal(t, int64(1), ae.Details["id"])

	n, _ := store.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestImportUpstreamFailure(t *testing.T) {
	cat := &fakeCatalog{err: apperr.Upstream(fmt.Errorf("boom"), "show catalog is unavailable")}
	svc, _ := newService(cat)
	_, err := svc.Import(context.Background(), "Lost")
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
}

func seed(t *testing.T, store repository.ShowStore, n int) {
	t.Helper()
	batch := make([]*model.Show, n)
	for i := range batch {
		batch[i] = &model.Show{TVMazeID: int64(1000 + i), Name: fmt.Sprintf("Show %03d", i), LastUpdated: fixedNow}
	}
	require.NoError(t, store.CreateMany(context.Background(), batch))
}

func TestListPagination(t *testing.T) {
	svc, store := newService(&fakeCatalog{})
	ctx := context.Background()

	_, err := svc.List(ctx, query.Params{})
	assert.True(t, apperr.Is(err, apperr.KindConflict), "empty store")

	seed(t, store, 250)
	res, err := svc.List(ctx, query.Params{Page: "3", PageSize: "100"})
	require.NoError(t, err)
	assert.Len(t, res.Shows, 50)
	assert.Equal(t, int64(201), res.Shows[0].ID)
	assert.Equal(t, 250, res.Total)

	page := res.Plan.BuildPage(res.Shows, res.Total, "http://x/tv-shows")
	assert.Contains(t, page.Links, "previous")
	assert.NotContains(t, page.Links, "next")

	_, err = svc.List(ctx, query.Params{Page: "4", PageSize: "100"})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Equal(t, 3, ae.Details["pages"])
}

func TestListHugePageSize(t *testing.T) {
	svc, store := newService(&fakeCatalog{})
	seed(t, store, 2)

	res, err := svc.List(context.Background(), query.Params{PageSize: strconv.Itoa(math.MaxInt)})
	require.NoError(t, err)
	assert.Len(t, res.Shows, 2)
	page := res.Plan.BuildPage(res.Shows, res.Total, "http://x/tv-shows")
	assert.NotContains(t, page.Links, "next")
	assert.NotContains(t, page.Links, "previous")
}

func TestListOrdersDescending(t *testing.T) {
	svc, store := newService(&fakeCatalog{})
	seed(t, store, 5)
	res, err := svc.List(context.Background(), query.Params{OrderBy: "-name", PageSize: "2"})
	require.NoError(t, err)
	require.Len(t, res.Shows, 2)
	assert.Equal(t, "Show 004", res.Shows[0].Name)
	assert.Equal(t, "Show 003", res.Shows[1].Name)
}

func TestGetIncludesNeighbours(t *testing.T) {
	svc, store := newService(&fakeCatalog{})
	ctx := context.Background()
	seed(t, store, 3)

	_, err := svc.Delete(ctx, 2)
	require.NoError(t, err)
	d, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, d.Prev)
	assert.Equal(t, int64(3), d.Next)

	_, err = svc.Get(ctx, 2)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteUnknownLeavesCount(t *testing.T) {
	pub := &recordingPublisher{}
	svc, store := newService(&fakeCatalog{}, WithEvents(pub))
	ctx := context.Background()
	seed(t, store, 2)

	_, err := svc.Delete(ctx, 42)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	n, _ := store.Count(ctx)
	assert.Equal(t, 2, n)
	assert.Empty(t, pub.types())

	_, err = svc.Delete(ctx, 1)
	require.NoError(t, err)
	n, _ = store.Count(ctx)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{queue.ShowDeleted}, pub.types())
}

func TestPatchMergesAndRefreshesTimestamp(t *testing.T) {
	pub := &recordingPublisher{err: fmt.Errorf("broker down")}
	svc, store := newService(&fakeCatalog{}, WithEvents(pub))
	ctx := context.Background()
	require.NoError(t, store.CreateMany(ctx, []*model.Show{{
		TVMazeID: 1, Name: "Bluey",
		Network: &model.Network{ID: 3, Name: "ABC",
			Country: &model.Country{Name: "AU", Code: "AUS", Timezone: "Australia/Sydney"}},
		LastUpdated: fixedNow.Add(-time.Hour),
	}}))

	got, err := svc.Patch(ctx, 1, []byte(`{"network":{"country":{"name":"Australia"}}}`))
	require.NoError(t, err, "publish failures never fail the request")
	assert.Equal(t, model.Country{Name: "Australia", Code: "AUS", Timezone: "Australia/Sydney"}, *got.Network.Country)
	assert.Equal(t, fixedNow, got.LastUpdated)

	stored, _ := store.GetByID(ctx, 1)
	assert.Equal(t, "Australia", stored.Network.Country.Name)

	_, err = svc.Patch(ctx, 1, []byte(`{"bogus":1}`))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.Patch(ctx, 9, []byte(`{"name":"x"}`))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestStatistics(t *testing.T) {
	svc, store := newService(&fakeCatalog{})
	ctx := context.Background()

	_, _, err := svc.Statistics(ctx, "json", "genres")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	_, _, err = svc.Statistics(ctx, "csv", "genres")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, store.CreateMany(ctx, []*model.Show{
		{TVMazeID: 1, Name: "A", Genres: []string{"Drama", "Comedy"}, LastUpdated: fixedNow},
		{TVMazeID: 2, Name: "B", Genres: []string{"Drama"}, LastUpdated: fixedNow.Add(-72 * time.Hour)},
	}))
	res, f, err := svc.Statistics(ctx, "json", "genres")
	require.NoError(t, err)
	assert.Equal(t, stats.FormatJSON, f)
	assert.Equal(t, 1, res.RecentlyUpdated)
	assert.Equal(t, map[string]string{"Drama": "100%", "Comedy": "50%"}, res.Summary().Values)
}
