// Package service implements the show catalog use cases on top of a
// ShowStore and the external catalog. It is independent of HTTP.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/tvshow-catalog/internal/apperr"
	"github.com/iliyamo/tvshow-catalog/internal/matcher"
	"github.com/iliyamo/tvshow-catalog/internal/model"
	"github.com/iliyamo/tvshow-catalog/internal/query"
	"github.com/iliyamo/tvshow-catalog/internal/queue"
	"github.com/iliyamo/tvshow-catalog/internal/repository"
	"github.com/iliyamo/tvshow-catalog/internal/stats"
	"github.com/iliyamo/tvshow-catalog/internal/tvmaze"
)

// Catalog searches the external show catalog.
type Catalog interface {
	Search(ctx context.Context, query string) ([]tvmaze.SearchResult, error)
}

// ShowService wires the store, the catalog and event publishing together.
type ShowService struct {
	store   repository.ShowStore
	catalog Catalog
	events  EventPublisher
	log     *zap.Logger
	now     func() time.Time
}

// Option configures a ShowService.
type Option func(*ShowService)

// WithEvents publishes lifecycle events through p.
func WithEvents(p EventPublisher) Option {
	return func(s *ShowService) { s.events = p }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *ShowService) { s.log = log }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *ShowService) { s.now = now }
}

func NewShowService(store repository.ShowStore, catalog Catalog, opts ...Option) *ShowService {
	s := &ShowService{store: store, catalog: catalog, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Import searches the catalog for name and stores every exact match. It
// fails with NotFound (carrying the similar names) when nothing matches
// exactly, and with Conflict when a match is already stored.
func (s *ShowService) Import(ctx context.Context, name string) ([]model.Show, error) {
	if err := matcher.ValidateQuery(name); err != nil {
		return nil, err
	}
	results, err := s.catalog.Search(ctx, name)
	if err != nil {
		return nil, err
	}

	exact, similar := matcher.Partition(name, results, func(r tvmaze.SearchResult) string { return r.Show.Name })
	if len(exact) == 0 {
		names := make([]string, 0, len(similar))
		for _, r := range similar {
			names = append(names, r.Show.Name)
		}
		if len(names) == 0 {
			return nil, apperr.NotFound("show '%s' not found", name)
		}
		return nil, apperr.NotFound("show '%s' not found, but similar shows exist", name).With("similar", names)
	}

	now := s.now()
	seen := map[int64]bool{}
	var batch []*model.Show
	for _, r := range exact {
		if seen[r.Show.ID] {
			continue
		}
		seen[r.Show.ID] = true
		if existing, err := s.store.GetByTVMazeID(ctx, r.Show.ID); err == nil {
			return nil, conflict(existing.Name, existing.ID)
		} else if !errors.Is(err, repository.ErrShowNotFound) {
			return nil, err
		}
		rec, err := r.Show.Record(now)
		if err != nil {
			return nil, apperr.Upstream(err, "catalog returned a malformed show")
		}
		batch = append(batch, &rec)
	}

	if err := s.store.CreateMany(ctx, batch); err != nil {
		if errors.Is(err, repository.ErrDuplicateTVMazeID) {
			// lost a race with a concurrent import of the same show
			return nil, apperr.Conflict("show '%s' is already stored", name)
		}
		return nil, err
	}

	out := make([]model.Show, len(batch))
	for i, rec := range batch {
		out[i] = *rec
		s.publish(ctx, queue.ShowImported, rec)
	}
	s.log.Info("shows imported", zap.String("query", name), zap.Int("count", len(out)))
	return out, nil
}

func conflict(name string, id int64) error {
	return apperr.Conflict("show '%s' is already stored", name).With("id", id)
}

// ListResult is one validated, loaded page.
type ListResult struct {
	Plan  query.Plan
	Shows []model.Show
	Total int
}

// List validates p and loads the requested page.
func (s *ShowService) List(ctx context.Context, p query.Params) (*ListResult, error) {
	plan, err := query.Parse(p)
	if err != nil {
		return nil, err
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if err := plan.Check(total); err != nil {
		return nil, err
	}
	shows, err := s.store.List(ctx, repository.ListOptions{Order: plan.Order, Limit: plan.PageSize, Offset: plan.Offset()})
	if err != nil {
		return nil, err
	}
	return &ListResult{Plan: plan, Shows: shows, Total: total}, nil
}

// Detail is a show together with its id neighbours (zero when absent).
type Detail struct {
	Show       model.Show
	Prev, Next int64
}

func (s *ShowService) Get(ctx context.Context, id int64) (*Detail, error) {
	show, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	prev, next, err := s.store.NeighbourIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Show: *show, Prev: prev, Next: next}, nil
}

func (s *ShowService) find(ctx context.Context, id int64) (*model.Show, error) {
	show, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrShowNotFound) {
		return nil, apperr.NotFound("show with id %d not found", id)
	}
	return show, err
}

// Delete removes the show with id.
func (s *ShowService) Delete(ctx context.Context, id int64) (*model.Show, error) {
	show, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return nil, apperr.NotFound("show with id %d not found", id)
		}
		return nil, err
	}
	s.publish(ctx, queue.ShowDeleted, show)
	return show, nil
}

// Patch merges body into the stored show and refreshes last_updated.
func (s *ShowService) Patch(ctx context.Context, id int64, body []byte) (*model.Show, error) {
	show, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if now.Before(show.LastUpdated) {
		now = show.LastUpdated
	}
	if err := model.ApplyPatch(show, body, now); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, show); err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return nil, apperr.NotFound("show with id %d not found", id)
		}
		return nil, err
	}
	s.publish(ctx, queue.ShowUpdated, show)
	return show, nil
}

// Statistics computes the distribution of stored shows over by.
func (s *ShowService) Statistics(ctx context.Context, format, by string) (*stats.Result, stats.Format, error) {
	f, err := stats.ParseFormat(format)
	if err != nil {
		return nil, "", err
	}
	attr, err := stats.ParseAttribute(by)
	if err != nil {
		return nil, "", err
	}
	shows, err := s.store.All(ctx)
	if err != nil {
		return nil, "", err
	}
	res, err := stats.Compute(shows, attr, s.now())
	if err != nil {
		return nil, "", err
	}
	return res, f, nil
}

func (s *ShowService) publish(ctx context.Context, kind string, show *model.Show) {
	if s.events == nil {
		return
	}
	ev := queue.NewShowEvent(kind, show.ID, show.TVMazeID, show.Name, s.now())
	// outlives the request context
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		s.log.Warn("show event dropped", zap.String("type", kind), zap.Int64("show_id", show.ID), zap.Error(err))
	}
}
