package repository

import (
	"context"

	"github.com/iliyamo/tvshow-catalog/internal/model"
	"github.com/iliyamo/tvshow-catalog/internal/query"
)

// ListOptions selects one ordered window of the table.
type ListOptions struct {
	Order  []query.SortKey
	Limit  int
	Offset int
}

// ShowStore is the persistence contract of the service. ShowRepo backs it
// with SQL; MemoryShowRepo keeps everything in process.
type ShowStore interface {
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, opts ListOptions) ([]model.Show, error)
	All(ctx context.Context) ([]model.Show, error)
	GetByID(ctx context.Context, id int64) (*model.Show, error)
	GetByTVMazeID(ctx context.Context, tvmazeID int64) (*model.Show, error)
	// CreateMany inserts every show or none, assigning IDs in order.
	CreateMany(ctx context.Context, shows []*model.Show) error
	Update(ctx context.Context, s *model.Show) error
	Delete(ctx context.Context, id int64) error
	// NeighbourIDs returns the closest existing lower and higher ids, zero
	// when there is none.
	NeighbourIDs(ctx context.Context, id int64) (prev, next int64, err error)
}

// hasID reports whether keys already order by id.
func hasID(keys []query.SortKey) bool {
	for _, k := range keys {
		if k.Attribute == "id" {
			return true
		}
	}
	return false
}
