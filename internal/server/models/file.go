// Package models defines server-side data models persisted in the database.
package models

import "time"

// File is the single persisted entity: one logical stored file.
//
// A file is either canonical or an alias. A canonical file owns a physical
// payload: StorageKey, FileHash and SizeBytes are set and ReferenceID is nil.
// An alias stores no payload of its own: the payload-bearing fields are nil
// and ReferenceID names the canonical row whose payload it shares. Alias rows
// keep their own identity, filename and upload time.
type File struct {
	ID               string
	StorageKey       *string
	OriginalFilename string
	FileType         *string
	FileHash         *string
	SizeBytes        *int64
	UploadedAt       time.Time
	ReferenceID      *string
}

// IsAlias reports whether the file inherits its payload from another row.
func (f *File) IsAlias() bool {
	return f.ReferenceID != nil
}

// ResolvedFile is the effective view of a File after following its reference:
// for an alias the payload-bearing fields are taken from the referenced
// canonical row. Identity fields (ID, OriginalFilename, UploadedAt,
// ReferenceID) always belong to the row itself. Payload fields stay nil when
// the reference cannot be resolved; such rows are still returned.
type ResolvedFile struct {
	ID               string
	StorageKey       *string
	OriginalFilename string
	FileType         *string
	FileHash         *string
	SizeBytes        *int64
	UploadedAt       time.Time
	ReferenceID      *string
}
