package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/filedepot/internal/common"
	"github.com/dmitrijs2005/filedepot/internal/server/models"
	"github.com/dmitrijs2005/filedepot/internal/server/repositories/files"
	"github.com/dmitrijs2005/filedepot/internal/server/services"
)

const multipartMemoryLimit = 32 << 20

// toFileResponse converts a resolved entry into its wire shape, minting a
// presigned download URL when the entry has a payload to point at.
func (s *Server) toFileResponse(r *http.Request, f *models.ResolvedFile) *FileResponse {
	resp := &FileResponse{
		ID:               f.ID,
		OriginalFilename: f.OriginalFilename,
		FileType:         f.FileType,
		FileHash:         f.FileHash,
		Size:             f.SizeBytes,
		UploadedAt:       f.UploadedAt,
		ReferenceID:      f.ReferenceID,
	}
	if f.StorageKey != nil {
		url, err := s.files.PresignDownload(r.Context(), *f.StorageKey)
		if err != nil {
			s.logger.Error(r.Context(), "presign failed", "id", f.ID, "error", err)
		} else {
			resp.File = &url
		}
	}
	return resp
}

// handleUpload accepts a multipart form carrying either a payload part
// ("file") or an "id" pointing at an existing entry. With an id the payload
// is ignored and an alias is created; with only a payload the file is
// ingested; with neither the request is rejected.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeError(w, http.StatusBadRequest, "malformed multipart form")
		return
	}

	part, header, partErr := r.FormFile("file")
	if partErr == nil {
		defer part.Close()
	}

	if targetID := strings.TrimSpace(r.FormValue("id")); targetID != "" {
		name := strings.TrimSpace(r.FormValue("filename"))
		if partErr == nil && header.Filename != "" {
			name = header.Filename
		}
		if name == "" {
			writeError(w, http.StatusBadRequest, "no filename provided")
			return
		}
		created, err := s.files.CreateAlias(r.Context(), name, targetID)
		if err != nil {
			s.writeServiceError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusCreated, s.toFileResponse(r, created))
		return
	}

	if partErr != nil {
		writeError(w, http.StatusBadRequest, common.ErrNoPayloadOrTarget.Error())
		return
	}

	created, err := s.files.Upload(r.Context(), part, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.toFileResponse(r, created))
}

// parseListQuery builds the filter and paging from query params. Malformed
// or negative numbers and unparsable dates are ignored rather than rejected.
func parseListQuery(r *http.Request) services.ListQuery {
	q := r.URL.Query()

	f := files.Filter{
		Name: strings.TrimSpace(q.Get("name")),
		Type: strings.TrimSpace(q.Get("type")),
	}
	if v, err := strconv.ParseInt(strings.TrimSpace(q.Get("startSize")), 10, 64); err == nil && v >= 0 {
		f.MinSize = &v
	}
	if v, err := strconv.ParseInt(strings.TrimSpace(q.Get("endSize")), 10, 64); err == nil && v >= 0 {
		f.MaxSize = &v
	}
	if d, err := time.Parse("2006-01-02", strings.TrimSpace(q.Get("startDate"))); err == nil {
		f.StartDate = &d
	}
	if d, err := time.Parse("2006-01-02", strings.TrimSpace(q.Get("endDate"))); err == nil {
		f.EndDate = &d
	}

	page, _ := strconv.Atoi(strings.TrimSpace(q.Get("page")))
	pageSize, _ := strconv.Atoi(strings.TrimSpace(q.Get("pageSize")))

	return services.ListQuery{Filter: f, Page: page, PageSize: pageSize}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	res, err := s.files.List(r.Context(), parseListQuery(r))
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	items := make([]*FileResponse, 0, len(res.Items))
	for _, f := range res.Items {
		items = append(items, s.toFileResponse(r, f))
	}

	writeJSON(w, http.StatusOK, &ListFilesResponse{
		Result:      items,
		Count:       res.TotalCount,
		TotalPages:  res.TotalPages,
		CurrentPage: res.Page,
		PageSize:    res.PageSize,
		HasNext:     res.HasNext,
		HasPrevious: res.HasPrevious,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	f, err := s.files.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toFileResponse(r, f))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.files.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDuplicateCheck hashes the uploaded payload and reports whether a
// matching entry already exists. Nothing is created or stored.
func (s *Server) handleDuplicateCheck(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeError(w, http.StatusBadRequest, "malformed multipart form")
		return
	}

	part, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer part.Close()

	exists, id, err := s.files.CheckDuplicate(r.Context(), part)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, &DuplicateCheckResponse{Exists: exists, ID: id})
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.files.MimeTypes(r.Context())
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	if types == nil {
		types = []string{}
	}
	writeJSON(w, http.StatusOK, types)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	names, err := s.files.SuggestNames(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
