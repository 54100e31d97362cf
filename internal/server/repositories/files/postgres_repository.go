package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filedepot/internal/common"
	"github.com/dmitrijs2005/filedepot/internal/dbx"
	"github.com/dmitrijs2005/filedepot/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// uniqueViolation is the PostgreSQL SQLSTATE for unique-index conflicts.
const uniqueViolation = "23505"

// resolvedColumns is the coalesced projection: an alias row picks up the
// payload-bearing columns of the row it references, a canonical row keeps
// its own, and an orphaned alias yields NULLs.
const resolvedColumns = `f.id, COALESCE(f.storage_key, ref.storage_key), f.original_filename,
		COALESCE(f.file_type, ref.file_type), COALESCE(f.file_hash, ref.file_hash),
		COALESCE(f.size_bytes, ref.size_bytes), f.uploaded_at, f.reference_id`

func (r *PostgresRepository) Create(ctx context.Context, f *models.File) error {

	query := `INSERT INTO files (id, storage_key, original_filename, file_type, file_hash, size_bytes, uploaded_at, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.StorageKey, f.OriginalFilename, f.FileType, f.FileHash, f.SizeBytes, f.UploadedAt, f.ReferenceID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrDuplicateHash
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) scanFile(row *sql.Row) (*models.File, error) {
	var f models.File
	var storageKey, fileType, fileHash, referenceID sql.NullString
	var sizeBytes sql.NullInt64

	err := row.Scan(&f.ID, &storageKey, &f.OriginalFilename, &fileType, &fileHash, &sizeBytes, &f.UploadedAt, &referenceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan file: %w", err)
	}

	f.StorageKey = nullableString(storageKey)
	f.FileType = nullableString(fileType)
	f.FileHash = nullableString(fileHash)
	f.SizeBytes = nullableInt64(sizeBytes)
	f.ReferenceID = nullableString(referenceID)
	return &f, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT id, storage_key, original_filename, file_type, file_hash, size_bytes, uploaded_at, reference_id
		FROM files WHERE id=$1`
	return r.scanFile(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByHash(ctx context.Context, hash string) (*models.File, error) {
	query := `SELECT id, storage_key, original_filename, file_type, file_hash, size_bytes, uploaded_at, reference_id
		FROM files WHERE file_hash=$1`
	return r.scanFile(r.db.QueryRowContext(ctx, query, hash))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return common.ErrorNotFound
	}

	return nil
}

// OrphanAliases clears the reference of every alias pointing at targetID and
// returns how many rows were touched. Run together with Delete in one
// transaction so dependents never briefly reference a missing row.
func (r *PostgresRepository) OrphanAliases(ctx context.Context, targetID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE files SET reference_id=NULL WHERE reference_id=$1`, targetID)
	if err != nil {
		return 0, fmt.Errorf("failed to orphan aliases: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// likeEscaper neutralizes LIKE metacharacters so user input matches as a
// literal substring, never as a pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// buildFilterWhere renders the optional predicates into a WHERE clause over
// the self-joined projection ("f" is the row, "ref" its referenced row).
func buildFilterWhere(f Filter) (string, []any) {
	var conds []string
	var args []any

	add := func(expr string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if f.Name != "" {
		add(`f.original_filename ILIKE $%d`, "%"+escapeLike(f.Name)+"%")
	}
	if f.Type != "" {
		add(`LOWER(COALESCE(f.file_type, ref.file_type)) = LOWER($%d)`, f.Type)
	}
	if f.MinSize != nil {
		add(`COALESCE(f.size_bytes, ref.size_bytes) >= $%d`, *f.MinSize)
	}
	if f.MaxSize != nil {
		add(`COALESCE(f.size_bytes, ref.size_bytes) <= $%d`, *f.MaxSize)
	}
	if f.StartDate != nil {
		add(`f.uploaded_at::date >= $%d::date`, *f.StartDate)
	}
	if f.EndDate != nil {
		add(`f.uploaded_at::date <= $%d::date`, *f.EndDate)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresRepository) ListResolved(ctx context.Context, f Filter, limit, offset int) ([]*models.ResolvedFile, error) {
	where, args := buildFilterWhere(f)

	query := `SELECT ` + resolvedColumns + `
		FROM files f LEFT JOIN files ref ON ref.id = f.reference_id` + where +
		fmt.Sprintf(` ORDER BY f.uploaded_at DESC, f.id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.ResolvedFile
	for rows.Next() {
		var item models.ResolvedFile
		var storageKey, fileType, fileHash, referenceID sql.NullString
		var sizeBytes sql.NullInt64

		err := rows.Scan(&item.ID, &storageKey, &item.OriginalFilename, &fileType, &fileHash, &sizeBytes, &item.UploadedAt, &referenceID)
		if err != nil {
			return nil, err
		}

		item.StorageKey = nullableString(storageKey)
		item.FileType = nullableString(fileType)
		item.FileHash = nullableString(fileHash)
		item.SizeBytes = nullableInt64(sizeBytes)
		item.ReferenceID = nullableString(referenceID)
		result = append(result, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) CountResolved(ctx context.Context, f Filter) (int64, error) {
	where, args := buildFilterWhere(f)

	query := `SELECT COUNT(*) FROM files f LEFT JOIN files ref ON ref.id = f.reference_id` + where

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}

	return count, nil
}

// DistinctTypes lists the MIME types carried by canonical rows. Aliases
// never contribute their own type, so scanning stored values is enough.
func (r *PostgresRepository) DistinctTypes(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT file_type FROM files WHERE file_type IS NOT NULL ORDER BY file_type`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select types: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) SuggestNames(ctx context.Context, q string, limit int) ([]string, error) {
	query := `SELECT DISTINCT original_filename FROM files WHERE original_filename ILIKE $1
		ORDER BY original_filename LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, "%"+escapeLike(q)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select names: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		result = append(result, name)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullableInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
