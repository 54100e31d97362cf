// Package services implements the dedup/reference-resolution core: ingest of
// uploads, duplicate detection by content hash, alias creation, deletion with
// orphaning, and the resolved, filtered, paginated listing.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/filedepot/internal/common"
	"github.com/dmitrijs2005/filedepot/internal/dbx"
	"github.com/dmitrijs2005/filedepot/internal/hashx"
	"github.com/dmitrijs2005/filedepot/internal/logging"
	"github.com/dmitrijs2005/filedepot/internal/server/models"
	fr "github.com/dmitrijs2005/filedepot/internal/server/repositories/files"
	"github.com/dmitrijs2005/filedepot/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filedepot/internal/server/storage"
)

type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       storage.BlobStore
	spoolDir    string
	logger      logging.Logger
}

func NewFileService(db *sql.DB, rm repomanager.RepositoryManager, blobs storage.BlobStore, spoolDir string, logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: rm,
		blobs:       blobs,
		spoolDir:    spoolDir,
		logger:      logger.With("module", "file_service"),
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Upload ingests a payload: the stream is spooled to a temp file while the
// content hash is computed, then either deduplicated into an alias of the
// existing canonical row or stored as a new canonical entry. The payload is
// durable in the blob store before the metadata row is inserted.
func (s *FileService) Upload(ctx context.Context, payload io.Reader, filename, mimeType string) (*models.ResolvedFile, error) {
	repo := s.repomanager.Files(s.db)

	spool, err := os.CreateTemp(s.spoolDir, "upload-*")
	if err != nil {
		return nil, fmt.Errorf("spool create: %w", err)
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()

	digest, err := hashx.Hash(io.TeeReader(payload, spool))
	if err != nil {
		return nil, err
	}

	stat, err := spool.Stat()
	if err != nil {
		return nil, fmt.Errorf("spool stat: %w", err)
	}
	size := stat.Size()

	existing, err := repo.GetByHash(ctx, digest)
	if err == nil {
		// Identical bytes are already stored: no second payload, just an
		// alias carrying the newly supplied name.
		s.logger.Info(ctx, "Deduplicated upload", "hash", digest, "canonical_id", existing.ID)
		return s.createAlias(ctx, repo, filename, existing.ID)
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	key := storage.NewStorageKey()
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("spool seek: %w", err)
	}
	if err := s.blobs.Put(ctx, key, spool, size); err != nil {
		return nil, fmt.Errorf("storing payload: %w", err)
	}

	f := &models.File{
		ID:               uuid.NewString(),
		StorageKey:       &key,
		OriginalFilename: filename,
		FileType:         optionalString(mimeType),
		FileHash:         &digest,
		SizeBytes:        &size,
		UploadedAt:       time.Now().UTC(),
	}

	err = repo.Create(ctx, f)
	if errors.Is(err, common.ErrDuplicateHash) {
		// Lost the check-then-insert race against a concurrent identical
		// upload. The winner's payload is canonical now; drop ours and
		// become an alias of it.
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.Warn(ctx, "Orphaned blob left behind after dedup race", "key", key, "error", derr.Error())
		}
		winner, lerr := repo.GetByHash(ctx, digest)
		if lerr != nil {
			return nil, fmt.Errorf("dedup race lookup: %w", lerr)
		}
		s.logger.Info(ctx, "Recovered dedup race as alias", "hash", digest, "canonical_id", winner.ID)
		return s.createAlias(ctx, repo, filename, winner.ID)
	}
	if err != nil {
		return nil, err
	}

	return NewResolver(repo).Resolve(ctx, f)
}

// CreateAlias records a new entry that shares the payload of targetID
// without any bytes being uploaded or hashed. A target that does not exist
// is accepted (tolerant write; the row resolves to "no payload" until the
// id appears), but a target that exists and is itself an alias is rejected
// so reference chains never grow past one hop.
func (s *FileService) CreateAlias(ctx context.Context, filename, targetID string) (*models.ResolvedFile, error) {
	repo := s.repomanager.Files(s.db)

	target, err := repo.GetByID(ctx, targetID)
	switch {
	case err == nil && target.IsAlias():
		return nil, common.ErrAliasTarget
	case err != nil && !errors.Is(err, common.ErrorNotFound):
		return nil, err
	}

	return s.createAlias(ctx, repo, filename, targetID)
}

func (s *FileService) createAlias(ctx context.Context, repo fr.Repository, filename, targetID string) (*models.ResolvedFile, error) {
	f := &models.File{
		ID:               uuid.NewString(),
		OriginalFilename: filename,
		UploadedAt:       time.Now().UTC(),
		ReferenceID:      &targetID,
	}

	if err := repo.Create(ctx, f); err != nil {
		return nil, err
	}

	return NewResolver(repo).Resolve(ctx, f)
}

// CheckDuplicate hashes the payload and reports whether a canonical entry
// with that content already exists. Nothing is created or stored.
func (s *FileService) CheckDuplicate(ctx context.Context, payload io.Reader) (bool, string, error) {
	digest, err := hashx.Hash(payload)
	if err != nil {
		return false, "", err
	}

	existing, err := s.repomanager.Files(s.db).GetByHash(ctx, digest)
	if errors.Is(err, common.ErrorNotFound) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}

	return true, existing.ID, nil
}

// Get returns the resolved view of a single entry.
func (s *FileService) Get(ctx context.Context, id string) (*models.ResolvedFile, error) {
	repo := s.repomanager.Files(s.db)

	f, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return NewResolver(repo).Resolve(ctx, f)
}

// Delete removes an entry. Aliases referencing it are orphaned in the same
// transaction, never cascaded: their identity and name survive even though
// the payload becomes unreachable. The canonical payload blob is deleted
// best-effort after the row is gone.
func (s *FileService) Delete(ctx context.Context, id string) error {
	repo := s.repomanager.Files(s.db)

	f, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txRepo := s.repomanager.Files(tx)

		orphaned, err := txRepo.OrphanAliases(ctx, id)
		if err != nil {
			return err
		}
		if orphaned > 0 {
			s.logger.Info(ctx, "Orphaned dependent aliases", "id", id, "count", orphaned)
		}

		return txRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	if f.StorageKey != nil {
		if derr := s.blobs.Delete(ctx, *f.StorageKey); derr != nil {
			s.logger.Warn(ctx, "Blob delete failed", "key", *f.StorageKey, "error", derr.Error())
		}
	}

	return nil
}

// MimeTypes returns the distinct set of known MIME types across canonical
// entries, for building filter UIs.
func (s *FileService) MimeTypes(ctx context.Context) ([]string, error) {
	return s.repomanager.Files(s.db).DistinctTypes(ctx)
}

const (
	minSuggestQueryLen = 3
	maxSuggestions     = 10
)

// SuggestNames returns up to ten distinct filenames containing q. Queries
// shorter than three characters yield no suggestions.
func (s *FileService) SuggestNames(ctx context.Context, q string) ([]string, error) {
	if utf8.RuneCountInString(q) < minSuggestQueryLen {
		return []string{}, nil
	}
	return s.repomanager.Files(s.db).SuggestNames(ctx, q, maxSuggestions)
}

// PresignDownload mints a download URL for a payload storage key.
func (s *FileService) PresignDownload(ctx context.Context, key string) (string, error) {
	return s.blobs.PresignGet(ctx, key)
}
