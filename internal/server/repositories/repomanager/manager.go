package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filedepot/internal/dbx"
	"github.com/dmitrijs2005/filedepot/internal/server/repositories/files"
)

// RepositoryManager vends repository implementations bound to a DBTX, so a
// service can run the same repository code against the pool or inside a
// transaction handle.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
}
