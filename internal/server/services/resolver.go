package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/filedepot/internal/common"
	"github.com/dmitrijs2005/filedepot/internal/server/models"
	"github.com/dmitrijs2005/filedepot/internal/server/repositories/files"
)

// maxResolveHops bounds reference resolution. Ingest refuses to create an
// alias whose target is itself an alias, so depth 1 is the only shape that
// occurs; the bound keeps a corrupted chain from looping forever.
const maxResolveHops = 2

// Resolver computes the effective view of a file by following its reference
// link. It is the single source of truth for per-row resolution; the bulk
// SQL projection in the repository mirrors its depth-1 behavior.
type Resolver struct {
	repo files.Repository
}

func NewResolver(repo files.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the effective attributes of f. A canonical row resolves to
// itself verbatim. An alias inherits the payload-bearing fields of the row
// it references; its own identity fields are kept. When the target is
// missing, or a chain is still unresolved after maxResolveHops, the payload
// fields are nil and the row is returned anyway, never dropped.
func (r *Resolver) Resolve(ctx context.Context, f *models.File) (*models.ResolvedFile, error) {
	res := &models.ResolvedFile{
		ID:               f.ID,
		StorageKey:       f.StorageKey,
		OriginalFilename: f.OriginalFilename,
		FileType:         f.FileType,
		FileHash:         f.FileHash,
		SizeBytes:        f.SizeBytes,
		UploadedAt:       f.UploadedAt,
		ReferenceID:      f.ReferenceID,
	}

	cur := f
	for hops := 0; cur.ReferenceID != nil && hops < maxResolveHops; hops++ {
		next, err := r.repo.GetByID(ctx, *cur.ReferenceID)
		if errors.Is(err, common.ErrorNotFound) {
			// Orphaned alias: the row survives with absent payload fields.
			clearPayloadFields(res)
			return res, nil
		}
		if err != nil {
			return nil, err
		}

		res.StorageKey = next.StorageKey
		res.FileType = next.FileType
		res.FileHash = next.FileHash
		res.SizeBytes = next.SizeBytes
		cur = next
	}

	if cur.ReferenceID != nil {
		// Hop budget exhausted with the chain still open.
		clearPayloadFields(res)
	}

	return res, nil
}

func clearPayloadFields(res *models.ResolvedFile) {
	res.StorageKey = nil
	res.FileType = nil
	res.FileHash = nil
	res.SizeBytes = nil
}
