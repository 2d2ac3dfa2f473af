package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/tvshow-catalog/internal/apperr"
	"github.com/iliyamo/tvshow-catalog/internal/model"
	"github.com/iliyamo/tvshow-catalog/internal/repository"
	"github.com/iliyamo/tvshow-catalog/internal/service"
	"github.com/iliyamo/tvshow-catalog/internal/tvmaze"
)

const base = "http://shows.test"

type stubCatalog struct {
	results []tvmaze.SearchResult
	err     error
}

func (s stubCatalog) Search(context.Context, string) ([]tvmaze.SearchResult, error) {
	return s.results, s.err
}

var now = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T, cat stubCatalog) (*echo.Echo, *repository.MemoryShowRepo) {
	t.Helper()
	store := repository.NewMemoryShowRepo()
	svc := service.NewShowService(store, cat, service.WithClock(func() time.Time { return now }))
	h := NewShowHandler(svc, base+"/", zap.NewNop())

	e := echo.New()
	e.GET("/healthz", Health)
	e.POST("/tv-shows/import", h.Import)
	e.GET("/tv-shows", h.List)
	e.GET("/tv-shows/statistics", h.Statistics)
	e.GET("/tv-shows/:id", h.Get)
	e.DELETE("/tv-shows/:id", h.Delete)
	e.PATCH("/tv-shows/:id", h.Patch)
	return e, store
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func seed(t *testing.T, store *repository.MemoryShowRepo, n int) {
	t.Helper()
	batch := make([]*model.Show, n)
	for i := range batch {
		batch[i] = &model.Show{
			TVMazeID: int64(i + 1), Name: fmt.Sprintf("Show %d", i+1),
			Language: "English", Genres: []string{"Drama"}, LastUpdated: now,
		}
	}
	require.NoError(t, store.CreateMany(context.Background(), batch))
}

func TestHealth(t *testing.T) {
	e, _ := setup(t, stubCatalog{})
	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestImportFlow(t *testing.T) {
	lang := "English"
	e, _ := setup(t, stubCatalog{results: []tvmaze.SearchResult{
		{Show: tvmaze.Show{ID: 82, Name: "Game of Thrones", Language: &lang}},
	}})

	rec := do(e, http.MethodPost, "/tv-shows/import?name=game+of+thrones", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	shows := body["shows"].([]any)
	require.Len(t, shows, 1)
	first := shows[0].(map[string]any)
	assert.Equal(t, float64(1), first["id"])
	assert.Equal(t, float64(82), first["tvmaze-id"])
	assert.Equal(t, "2024-07-01 09:00:00", first["last-update"])
	assert.Equal(t, base+"/tv-shows/1", first["_links"].(map[string]any)["self"].(map[string]any)["href"])

	rec = do(e, http.MethodPost, "/tv-shows/import?name=Game+of+Thrones", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "conflict", body["error"])
	assert.Equal(t, base+"/tv-shows/1", body["href"])

	rec = do(e, http.MethodPost, "/tv-shows/import?name=Game%3B+of+Thrones", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportNotFoundAndUpstream(t *testing.T) {
	e, _ := setup(t, stubCatalog{results: []tvmaze.SearchResult{{Show: tvmaze.Show{ID: 1, Name: "Lost Girl"}}}})
	rec := do(e, http.MethodPost, "/tv-shows/import?name=Lost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, []any{"Lost Girl"}, decode(t, rec)["similar"])

	e, _ = setup(t, stubCatalog{err: apperr.Upstream(fmt.Errorf("dial tcp: refused"), "show catalog is unavailable")})
	rec = do(e, http.MethodPost, "/tv-shows/import?name=Lost", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "refused")
}

func TestListEnvelope(t *testing.T) {
	e, store := setup(t, stubCatalog{})

	rec := do(e, http.MethodGet, "/tv-shows", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	seed(t, store, 250)
	rec = do(e, http.MethodGet, "/tv-shows?page=3&page_size=100&filter=id,name&order_by=%2Bid", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(3), body["page"])
	assert.Equal(t, float64(100), body["page-size"])
	assert.Len(t, body["tv-shows"], 50)
	links := body["_links"].(map[string]any)
	assert.Contains(t, links, "previous")
	assert.NotContains(t, links, "next")
	assert.True(t, strings.HasPrefix(links["self"].(map[string]any)["href"].(string), base+"/tv-shows?"))

	rec = do(e, http.MethodGet, "/tv-shows?page=4&page_size=100", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, float64(3), decode(t, rec)["pages"])

	rec = do(e, http.MethodGet, "/tv-shows?order_by=name", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFilterSubset(t *testing.T) {
	e, store := setup(t, stubCatalog{})
	seed(t, store, 1)

	small := decode(t, do(e, http.MethodGet, "/tv-shows?filter=id,name", ""))["tv-shows"].([]any)[0].(map[string]any)
	large := decode(t, do(e, http.MethodGet, "/tv-shows?filter=id,name,summary", ""))["tv-shows"].([]any)[0].(map[string]any)
	for k, v := range small {
		assert.Equal(t, v, large[k])
	}
	assert.Len(t, small, 2)
	assert.Len(t, large, 3)
}

func TestGetDeletePatch(t *testing.T) {
	e, store := setup(t, stubCatalog{})
	seed(t, store, 3)

	rec := do(e, http.MethodGet, "/tv-shows/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Show 2", body["name"])
	links := body["_links"].(map[string]any)
	assert.Equal(t, base+"/tv-shows/1", links["previous"].(map[string]any)["href"])
	assert.Equal(t, base+"/tv-shows/3", links["next"].(map[string]any)["href"])

	rec = do(e, http.MethodDelete, "/tv-shows/2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(e, http.MethodDelete, "/tv-shows/2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	n, _ := store.Count(context.Background())
	assert.Equal(t, 2, n)

	rec = do(e, http.MethodGet, "/tv-shows/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPatch, "/tv-shows/3", `{"name":"Renamed","schedule":{"time":"20:30"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, _ := store.GetByID(context.Background(), 3)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "20:30", got.Schedule.Time)

	rec = do(e, http.MethodPatch, "/tv-shows/3", `{"premiered":"01/02/2020"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(e, http.MethodPatch, "/tv-shows/99", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatistics(t *testing.T) {
	e, store := setup(t, stubCatalog{})
	rec := do(e, http.MethodGet, "/tv-shows/statistics?format=json&by=language", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	seed(t, store, 2)
	rec = do(e, http.MethodGet, "/tv-shows/statistics?format=json&by=language", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, float64(2), body["total-updated"])
	assert.Equal(t, map[string]any{"English": "100%"}, body["values"])

	rec = do(e, http.MethodGet, "/tv-shows/statistics?format=image&by=genres", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `filename="genres.png"`)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = do(e, http.MethodGet, "/tv-shows/statistics?format=json&by=rating", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnclassifiedErrorIsHidden(t *testing.T) {
	e := echo.New()
	e.GET("/boom", func(c echo.Context) error {
		return writeError(c, zap.NewNop(), fmt.Errorf("db password leaked"))
	})
	rec := do(e, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "leaked")
}
