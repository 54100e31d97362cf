// Package httpapi exposes the file store over HTTP: multipart uploads,
// duplicate checks, the filtered/paginated listing, and the small facet and
// suggestion helpers.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filedepot/internal/logging"
	"github.com/dmitrijs2005/filedepot/internal/server/models"
	"github.com/dmitrijs2005/filedepot/internal/server/services"
)

// FileService is the surface the HTTP layer needs from the core service.
type FileService interface {
	Upload(ctx context.Context, payload io.Reader, filename, mimeType string) (*models.ResolvedFile, error)
	CreateAlias(ctx context.Context, filename, targetID string) (*models.ResolvedFile, error)
	CheckDuplicate(ctx context.Context, payload io.Reader) (bool, string, error)
	Get(ctx context.Context, id string) (*models.ResolvedFile, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q services.ListQuery) (*services.ListResult, error)
	MimeTypes(ctx context.Context) ([]string, error)
	SuggestNames(ctx context.Context, q string) ([]string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

type Server struct {
	address        string
	files          FileService
	logger         logging.Logger
	maxUploadBytes int64
}

func NewServer(address string, l logging.Logger, files FileService, maxUploadBytes int64) *Server {
	return &Server{
		address:        address,
		files:          files,
		logger:         l.With("module", "http_server"),
		maxUploadBytes: maxUploadBytes,
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/files/{$}", s.handleUpload)
	mux.HandleFunc("GET /api/files/{$}", s.handleList)
	mux.HandleFunc("POST /api/files/get_duplicate_file/{$}", s.handleDuplicateCheck)
	mux.HandleFunc("GET /api/files/get_files/{$}", s.handleSuggest)
	mux.HandleFunc("GET /api/files/get_all_mime_type/{$}", s.handleTypes)
	mux.HandleFunc("GET /api/files/{id}/{$}", s.handleGet)
	mux.HandleFunc("DELETE /api/files/{id}/{$}", s.handleDelete)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return mux
}

func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{Addr: s.address, Handler: s.routes()}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
