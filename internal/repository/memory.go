package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/iliyamo/tvshow-catalog/internal/model"
	"github.com/iliyamo/tvshow-catalog/internal/query"
)

// MemoryShowRepo is an in-process ShowStore for development and tests.
// Records are kept in id order; callers always receive copies.
type MemoryShowRepo struct {
	mu     sync.RWMutex
	shows  []model.Show
	nextID int64
}

func NewMemoryShowRepo() *MemoryShowRepo {
	return &MemoryShowRepo{nextID: 1}
}

func (m *MemoryShowRepo) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.shows), nil
}

func (m *MemoryShowRepo) snapshot() []model.Show {
	out := make([]model.Show, len(m.shows))
	for i := range m.shows {
		out[i] = m.shows[i].Clone()
	}
	return out
}

func (m *MemoryShowRepo) List(_ context.Context, opts ListOptions) ([]model.Show, error) {
	m.mu.RLock()
	all := m.snapshot()
	m.mu.RUnlock()

	query.Sort(all, opts.Order)
	if opts.Limit <= 0 {
		return all, nil
	}
	start := min(opts.Offset, len(all))
	end := min(start+opts.Limit, len(all))
	return all[start:end], nil
}

func (m *MemoryShowRepo) All(_ context.Context) ([]model.Show, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot(), nil
}

func (m *MemoryShowRepo) indexOf(id int64) int {
	i, ok := slices.BinarySearchFunc(m.shows, id, func(s model.Show, id int64) int {
		switch {
		case s.ID < id:
			return -1
		case s.ID > id:
			return 1
		}
		return 0
	})
	if !ok {
		return -1
	}
	return i
}

func (m *MemoryShowRepo) GetByID(_ context.Context, id int64) (*model.Show, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexOf(id)
	if i < 0 {
		return nil, ErrShowNotFound
	}
	s := m.shows[i].Clone()
	return &s, nil
}

func (m *MemoryShowRepo) GetByTVMazeID(_ context.Context, tvmazeID int64) (*model.Show, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.shows {
		if m.shows[i].TVMazeID == tvmazeID {
			s := m.shows[i].Clone()
			return &s, nil
		}
	}
	return nil, ErrShowNotFound
}

func (m *MemoryShowRepo) CreateMany(_ context.Context, shows []*model.Show) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[int64]bool, len(m.shows)+len(shows))
	for i := range m.shows {
		seen[m.shows[i].TVMazeID] = true
	}
	for _, s := range shows {
		if seen[s.TVMazeID] {
			return fmt.Errorf("%w: %d", ErrDuplicateTVMazeID, s.TVMazeID)
		}
		seen[s.TVMazeID] = true
	}
	for _, s := range shows {
		s.ID = m.nextID
		m.nextID++
		s.LastUpdated = model.Stamp(s.LastUpdated)
		m.shows = append(m.shows, s.Clone())
	}
	return nil
}

func (m *MemoryShowRepo) Update(_ context.Context, s *model.Show) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(s.ID)
	if i < 0 {
		return ErrShowNotFound
	}
	for j := range m.shows {
		if j != i && m.shows[j].TVMazeID == s.TVMazeID {
			return ErrDuplicateTVMazeID
		}
	}
	m.shows[i] = s.Clone()
	m.shows[i].LastUpdated = model.Stamp(s.LastUpdated)
	return nil
}

func (m *MemoryShowRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return ErrShowNotFound
	}
	m.shows = slices.Delete(m.shows, i, i+1)
	return nil
}

func (m *MemoryShowRepo) NeighbourIDs(_ context.Context, id int64) (prev, next int64, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.shows {
		switch sid := m.shows[i].ID; {
		case sid < id:
			prev = sid
		case sid > id && next == 0:
			next = sid
		}
	}
	return prev, next, nil
}
