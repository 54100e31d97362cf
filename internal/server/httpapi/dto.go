package httpapi

import "time"

type FileResponse struct {
	ID               string    `json:"id"`
	File             *string   `json:"file"`
	OriginalFilename string    `json:"original_filename"`
	FileType         *string   `json:"file_type"`
	FileHash         *string   `json:"file_hash"`
	Size             *int64    `json:"size"`
	UploadedAt       time.Time `json:"uploaded_at"`
	ReferenceID      *string   `json:"reference_id"`
}

type ListFilesResponse struct {
	Result      []*FileResponse `json:"result"`
	Count       int64           `json:"count"`
	TotalPages  int             `json:"total_pages"`
	CurrentPage int             `json:"current_page"`
	PageSize    int             `json:"page_size"`
	HasNext     bool            `json:"has_next"`
	HasPrevious bool            `json:"has_previous"`
}

type DuplicateCheckResponse struct {
	Exists bool   `json:"exists"`
	ID     string `json:"id,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
