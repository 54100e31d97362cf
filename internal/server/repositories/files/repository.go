// Package files implements the persistent store for file metadata rows.
package files

import (
	"context"
	"time"

	"github.com/dmitrijs2005/filedepot/internal/server/models"
)

// Filter restricts a List/Count scan. All predicates are optional and are
// combined with AND. Name matches case-insensitively as a substring. Type
// and the size bounds apply to the resolved (coalesced) view, so an alias
// matches on its canonical's type and size. The date bounds are inclusive
// calendar dates applied to the row's own upload time.
type Filter struct {
	Name      string
	Type      string
	MinSize   *int64
	MaxSize   *int64
	StartDate *time.Time
	EndDate   *time.Time
}

// Repository is the entry store. ListResolved and CountResolved operate on
// the resolved projection (payload fields coalesced from the referenced
// canonical row); everything else works on raw rows.
type Repository interface {
	Create(ctx context.Context, f *models.File) error
	GetByID(ctx context.Context, id string) (*models.File, error)
	GetByHash(ctx context.Context, hash string) (*models.File, error)
	Delete(ctx context.Context, id string) error
	OrphanAliases(ctx context.Context, targetID string) (int64, error)
	ListResolved(ctx context.Context, f Filter, limit, offset int) ([]*models.ResolvedFile, error)
	CountResolved(ctx context.Context, f Filter) (int64, error)
	DistinctTypes(ctx context.Context) ([]string, error)
	SuggestNames(ctx context.Context, q string, limit int) ([]string, error)
}
