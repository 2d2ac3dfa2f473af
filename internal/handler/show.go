package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/tvshow-catalog/internal/apperr"
	"github.com/iliyamo/tvshow-catalog/internal/model"
	"github.com/iliyamo/tvshow-catalog/internal/query"
	"github.com/iliyamo/tvshow-catalog/internal/service"
	"github.com/iliyamo/tvshow-catalog/internal/stats"
)

const maxPatchBody = 1 << 20

// ShowHandler exposes the show catalog over HTTP. BaseURL is the public
// origin used in navigation links.
type ShowHandler struct {
	Svc     *service.ShowService
	BaseURL string
	Log     *zap.Logger
}

func NewShowHandler(svc *service.ShowService, baseURL string, log *zap.Logger) *ShowHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ShowHandler{Svc: svc, BaseURL: strings.TrimRight(baseURL, "/"), Log: log}
}

func (h *ShowHandler) collectionURL() string { return h.BaseURL + "/tv-shows" }

func (h *ShowHandler) showURL(id int64) string {
	return fmt.Sprintf("%s/tv-shows/%d", h.BaseURL, id)
}

// summary is the short form returned by import and patch.
func (h *ShowHandler) summary(s *model.Show) echo.Map {
	return echo.Map{
		"id":          s.ID,
		"last-update": s.LastUpdated.UTC().Format(query.LastUpdateLayout),
		"tvmaze-id":   s.TVMazeID,
		"_links":      map[string]query.Link{"self": {Href: h.showURL(s.ID)}},
	}
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.Validation("show id must be a positive integer, got '%s'", c.Param("id"))
	}
	return id, nil
}

// Import handles POST /tv-shows/import?name=...
func (h *ShowHandler) Import(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("name"))
	shows, err := h.Svc.Import(c.Request().Context(), name)
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Kind == apperr.KindConflict {
			if id, ok := ae.Details["id"].(int64); ok {
				err = ae.With("href", h.showURL(id))
			}
		}
		return writeError(c, h.Log, err)
	}
	out := make([]echo.Map, len(shows))
	for i := range shows {
		out[i] = h.summary(&shows[i])
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": fmt.Sprintf("%d show(s) imported", len(shows)),
		"shows":   out,
	})
}

// List handles GET /tv-shows.
func (h *ShowHandler) List(c echo.Context) error {
	res, err := h.Svc.List(c.Request().Context(), query.Params{
		OrderBy:  c.QueryParam("order_by"),
		Filter:   c.QueryParam("filter"),
		Page:     c.QueryParam("page"),
		PageSize: c.QueryParam("page_size"),
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res.Plan.BuildPage(res.Shows, res.Total, h.collectionURL()))
}

// Get handles GET /tv-shows/:id and returns every attribute plus
// links to the neighbouring records.
func (h *ShowHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	d, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	links := map[string]query.Link{"self": {Href: h.showURL(id)}}
	if d.Prev != 0 {
		links["previous"] = query.Link{Href: h.showURL(d.Prev)}
	}
	if d.Next != 0 {
		links["next"] = query.Link{Href: h.showURL(d.Next)}
	}
	rec := append(query.Project(&d.Show, query.FilterableAttributes), query.Field{Key: "_links", Value: links})
	return c.JSON(http.StatusOK, rec)
}

// Delete handles DELETE /tv-shows/:id.
func (h *ShowHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if _, err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("The tv show with id %d was removed from the database!", id),
		"id":      id,
	})
}

// Patch handles PATCH /tv-shows/:id with a JSON object of new values.
func (h *ShowHandler) Patch(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPatchBody))
	if err != nil {
		return writeError(c, h.Log, apperr.Validation("cannot read request body"))
	}
	s, err := h.Svc.Patch(c.Request().Context(), id, body)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, h.summary(s))
}

// Statistics handles GET /tv-shows/statistics?format=&by=.
func (h *ShowHandler) Statistics(c echo.Context) error {
	res, format, err := h.Svc.Statistics(c.Request().Context(), c.QueryParam("format"), c.QueryParam("by"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if format == stats.FormatJSON {
		return c.JSON(http.StatusOK, res.Summary())
	}
	img, err := stats.Render(res)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", res.Filename()))
	return c.Blob(http.StatusOK, "image/png", img)
}
