package services

import (
	"context"

	"github.com/dmitrijs2005/filedepot/internal/server/models"
	fr "github.com/dmitrijs2005/filedepot/internal/server/repositories/files"
)

// DefaultPageSize is used when the caller supplies no (or a non-positive)
// page size.
const DefaultPageSize = 10

// ListQuery names a page of the resolved, filtered view. Page numbers are
// 1-indexed; non-positive values are coerced rather than rejected.
type ListQuery struct {
	Filter   fr.Filter
	Page     int
	PageSize int
}

// ListResult is the pagination envelope: resolved rows for the requested
// page plus post-filter, pre-pagination totals.
type ListResult struct {
	Items       []*models.ResolvedFile
	TotalCount  int64
	TotalPages  int
	Page        int
	PageSize    int
	HasNext     bool
	HasPrevious bool
}

// List filters and paginates the resolved view. The count is taken with the
// same predicates as the scan, so totals always agree with the rows. A page
// beyond the last one returns an empty result set, not an error.
func (s *FileService) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	repo := s.repomanager.Files(s.db)

	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size < 1 {
		size = DefaultPageSize
	}

	count, err := repo.CountResolved(ctx, q.Filter)
	if err != nil {
		return nil, err
	}

	totalPages := int((count + int64(size) - 1) / int64(size))

	items := []*models.ResolvedFile{}
	if count > 0 {
		rows, err := repo.ListResolved(ctx, q.Filter, size, (page-1)*size)
		if err != nil {
			return nil, err
		}
		if rows != nil {
			items = rows
		}
	}

	return &ListResult{
		Items:       items,
		TotalCount:  count,
		TotalPages:  totalPages,
		Page:        page,
		PageSize:    size,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}, nil
}
