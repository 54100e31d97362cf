package files

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filedepot/internal/common"
	"github.com/dmitrijs2005/filedepot/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func strptr(s string) *string { return &s }
func i64ptr(v int64) *int64   { return &v }

func canonicalFixture() *models.File {
	return &models.File{
		ID:               "11111111-1111-1111-1111-111111111111",
		StorageKey:       strptr("uploads/2026/8/1/key"),
		OriginalFilename: "report.pdf",
		FileType:         strptr("application/pdf"),
		FileHash:         strptr("abcd"),
		SizeBytes:        i64ptr(1024),
		UploadedAt:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	f := canonicalFixture()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+files\b`).
		WithArgs(f.ID, f.StorageKey, f.OriginalFilename, f.FileType, f.FileHash, f.SizeBytes, f.UploadedAt, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_UniqueViolationIsDuplicateHash(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	f := canonicalFixture()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+files\b`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "files_file_hash_key"})

	err := repo.Create(context.Background(), f)
	if !errors.Is(err, common.ErrDuplicateHash) {
		t.Fatalf("want ErrDuplicateHash, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+files\b`).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), canonicalFixture())
	if err == nil || errors.Is(err, common.ErrDuplicateHash) {
		t.Fatalf("want generic db error, got %v", err)
	}
}

func fileRows(f *models.File) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "storage_key", "original_filename", "file_type", "file_hash", "size_bytes", "uploaded_at", "reference_id"}).
		AddRow(f.ID, f.StorageKey, f.OriginalFilename, f.FileType, f.FileHash, f.SizeBytes, f.UploadedAt, f.ReferenceID)
}

func TestGetByHash_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	f := canonicalFixture()

	mock.ExpectQuery(`(?s)^SELECT\b.*FROM\s+files\s+WHERE\s+file_hash=\$1$`).
		WithArgs("abcd").
		WillReturnRows(fileRows(f))

	got, err := repo.GetByHash(context.Background(), "abcd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != f.ID || got.FileHash == nil || *got.FileHash != "abcd" {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestGetByHash_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\b.*FROM\s+files\s+WHERE\s+file_hash=\$1$`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByHash(context.Background(), "nope")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestGetByID_AliasHasNilPayloadFields(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	alias := &models.File{
		ID:               "22222222-2222-2222-2222-222222222222",
		OriginalFilename: "copy.pdf",
		UploadedAt:       time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC),
		ReferenceID:      strptr("11111111-1111-1111-1111-111111111111"),
	}

	mock.ExpectQuery(`(?s)^SELECT\b.*FROM\s+files\s+WHERE\s+id=\$1$`).
		WithArgs(alias.ID).
		WillReturnRows(fileRows(alias))

	got, err := repo.GetByID(context.Background(), alias.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsAlias() || got.StorageKey != nil || got.FileHash != nil || got.SizeBytes != nil {
		t.Fatalf("unexpected alias row: %+v", got)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+files\s+WHERE\s+id=\$1$`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestDelete_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+files\s+WHERE\s+id=\$1$`).
		WithArgs("some-id").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "some-id"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOrphanAliases_ReturnsAffected(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^UPDATE\s+files\s+SET\s+reference_id=NULL\s+WHERE\s+reference_id=\$1$`).
		WithArgs("target").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.OrphanAliases(context.Background(), "target")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("want 3 orphaned rows, got %d", n)
	}
}

func TestBuildFilterWhere_Empty(t *testing.T) {
	where, args := buildFilterWhere(Filter{})
	if where != "" || args != nil {
		t.Fatalf("expected empty clause, got %q with %v", where, args)
	}
}

func TestBuildFilterWhere_AllPredicates(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	f := Filter{
		Name:      "report",
		Type:      "image/PNG",
		MinSize:   i64ptr(100),
		MaxSize:   i64ptr(2000),
		StartDate: &start,
		EndDate:   &end,
	}

	where, args := buildFilterWhere(f)
	if len(args) != 6 {
		t.Fatalf("want 6 args, got %d: %v", len(args), args)
	}
	if args[0] != "%report%" {
		t.Fatalf("name arg not wrapped for substring match: %v", args[0])
	}
	for _, frag := range []string{
		"f.original_filename ILIKE $1",
		"LOWER(COALESCE(f.file_type, ref.file_type)) = LOWER($2)",
		"COALESCE(f.size_bytes, ref.size_bytes) >= $3",
		"COALESCE(f.size_bytes, ref.size_bytes) <= $4",
		"f.uploaded_at::date >= $5::date",
		"f.uploaded_at::date <= $6::date",
	} {
		if !strings.Contains(where, frag) {
			t.Fatalf("clause %q missing fragment %q", where, frag)
		}
	}
}

func TestBuildFilterWhere_NameMetacharactersMatchLiterally(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"underscore", "my_file", `%my\_file%`},
		{"percent", "100%", `%100\%%`},
		{"backslash", `a\b`, `%a\\b%`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, args := buildFilterWhere(Filter{Name: tt.in})
			if len(args) != 1 || args[0] != tt.want {
				t.Fatalf("want pattern %q, got %v", tt.want, args)
			}
		})
	}
}

func TestListResolved_CoalescedScan(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "storage_key", "original_filename", "file_type", "file_hash", "size_bytes", "uploaded_at", "reference_id"}).
		AddRow("a2", "uploads/k1", "copy.png", "image/png", "h1", int64(512), time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC), "a1").
		AddRow("a1", "uploads/k1", "orig.png", "image/png", "h1", int64(512), time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), nil).
		AddRow("a3", nil, "orphan.bin", nil, nil, nil, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), nil)

	mock.ExpectQuery(`(?s)^SELECT\b.*COALESCE.*FROM\s+files\s+f\s+LEFT\s+JOIN\s+files\s+ref\b.*ORDER\s+BY\s+f\.uploaded_at\s+DESC,\s+f\.id\s+DESC\s+LIMIT\s+\$1\s+OFFSET\s+\$2$`).
		WithArgs(10, 0).
		WillReturnRows(rows)

	got, err := repo.ListResolved(context.Background(), Filter{}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 rows, got %d", len(got))
	}
	if got[0].ID != "a2" || got[0].SizeBytes == nil || *got[0].SizeBytes != 512 {
		t.Fatalf("alias row did not inherit payload fields: %+v", got[0])
	}
	if got[2].StorageKey != nil || got[2].FileType != nil {
		t.Fatalf("orphan row should have nil payload fields: %+v", got[2])
	}
}

func TestCountResolved_WithFilterArgs(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+COUNT\(\*\)\s+FROM\s+files\s+f\s+LEFT\s+JOIN\s+files\s+ref\b.*WHERE\b`).
		WithArgs("image/png").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(25)))

	n, err := repo.CountResolved(context.Background(), Filter{Type: "image/png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 25 {
		t.Fatalf("want 25, got %d", n)
	}
}

func TestDistinctTypes(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+DISTINCT\s+file_type\s+FROM\s+files\s+WHERE\s+file_type\s+IS\s+NOT\s+NULL\b`).
		WillReturnRows(sqlmock.NewRows([]string{"file_type"}).AddRow("application/pdf").AddRow("image/png"))

	got, err := repo.DistinctTypes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "application/pdf" {
		t.Fatalf("unexpected types: %v", got)
	}
}

func TestSuggestNames_PassesPatternAndLimit(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+DISTINCT\s+original_filename\s+FROM\s+files\s+WHERE\s+original_filename\s+ILIKE\s+\$1\b`).
		WithArgs("%rep%", 10).
		WillReturnRows(sqlmock.NewRows([]string{"original_filename"}).AddRow("report.pdf"))

	got, err := repo.SuggestNames(context.Background(), "rep", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "report.pdf" {
		t.Fatalf("unexpected names: %v", got)
	}
}

func TestSuggestNames_EscapesPatternMetacharacters(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+DISTINCT\s+original_filename\s+FROM\s+files\s+WHERE\s+original_filename\s+ILIKE\s+\$1\b`).
		WithArgs(`%my\_file\%%`, 10).
		WillReturnRows(sqlmock.NewRows([]string{"original_filename"}).AddRow("my_file%.txt"))

	got, err := repo.SuggestNames(context.Background(), "my_file%", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "my_file%.txt" {
		t.Fatalf("unexpected names: %v", got)
	}
}
