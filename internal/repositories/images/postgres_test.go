package images

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/domain/lifecycle"
	"github.com/dmitrijs2005/imagevault/internal/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var imageColumns = []string{"image_id", "owner", "sort_key", "object_key", "filename", "content_type", "tags", "max_size",
	"status", "size", "thumbnail_key", "failure_reason", "created_at", "updated_at"}

func TestPostgres_Create_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rec := sampleRecord()
	q := `(?s)^\s*INSERT\s+INTO\s+images\b.*ON\s+CONFLICT\s*\(image_id\)\s*DO\s+NOTHING\s*$`
	mock.ExpectExec(q).
		WithArgs("img-1", "u1", rec.SortKey, rec.ObjectKey, "pic.jpg", "image/jpeg", []byte(`{"album":"trip"}`), int64(1024),
			"PENDING", rec.CreatedAt, rec.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Create_DuplicateIsConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+images`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), sampleRecord())
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestPostgres_Create_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+images`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), sampleRecord())
	assert.ErrorIs(t, err, common.ErrDependency)
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestPostgres_Create_RowsAffectedErr(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+images`).WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))

	err := repo.Create(context.Background(), sampleRecord())
	if err == nil || !regexp.MustCompile(`rows affected error: .*rows-err`).MatchString(err.Error()) {
		t.Fatalf("expected rows affected error, got %v", err)
	}
}

func TestPostgres_GetByImageID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(imageColumns).AddRow(
		"img-1", "u1", "CREATED#x#img-1", "users/u1/img-1/pic.jpg", "pic.jpg", "image/jpeg", []byte(`{"a":"b"}`), int64(10),
		"AVAILABLE", int64(7), "thumbnails/u1/img-1.jpg", nil, created, created)
	mock.ExpectQuery(`SELECT .* FROM images WHERE image_id=\$1`).WithArgs("img-1").WillReturnRows(rows)

	got, err := repo.GetByImageID(context.Background(), "img-1")
	require.NoError(t, err)
	assert.Equal(t, "USER#u1", got.OwnerKey)
	assert.Equal(t, lifecycle.StatusAvailable, got.Status)
	require.NotNil(t, got.Size)
	assert.Equal(t, int64(7), *got.Size)
	require.NotNil(t, got.ThumbnailKey)
	assert.Equal(t, "thumbnails/u1/img-1.jpg", *got.ThumbnailKey)
	assert.Equal(t, "b", got.Tags["a"])
	assert.Empty(t, got.FailureReason)
}

func TestPostgres_GetByImageID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM images WHERE image_id=\$1`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByImageID(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPostgres_ListByOwner_SetsCursorWhenMoreRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(imageColumns)
	for _, id := range []string{"c", "b", "a"} {
		rows.AddRow(id, "u1", "CREATED#"+id, "k", "f.jpg", "image/jpeg", []byte(`{}`), int64(1), "PENDING", nil, nil, nil, now, now)
	}
	mock.ExpectQuery(`SELECT .* FROM images WHERE owner=\$1 AND sort_key < \$2 ORDER BY sort_key DESC LIMIT \$3`).
		WithArgs("u1", "CREATED#d", 3).
		WillReturnRows(rows)

	page, err := repo.ListByOwner(context.Background(), "u1", 2, "CREATED#d")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "CREATED#b", page.NextCursor)
	assert.Nil(t, page.Items[0].Tags)
}

func TestPostgres_ListByOwner_LastPage(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(imageColumns).
		AddRow("a", "u1", "CREATED#a", "k", "f.jpg", "image/jpeg", []byte(`{}`), int64(1), "PENDING", nil, nil, nil, now, now)
	mock.ExpectQuery(`SELECT .* FROM images WHERE owner=\$1 ORDER BY sort_key DESC LIMIT \$2`).
		WithArgs("u1", 51).
		WillReturnRows(rows)

	page, err := repo.ListByOwner(context.Background(), "u1", 50, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Empty(t, page.NextCursor)
}

func TestPostgres_Transition(t *testing.T) {
	tests := []struct {
		name    string
		result  sql.Result
		execErr error
		wantErr error
	}{
		{name: "applied", result: sqlmock.NewResult(0, 1)},
		{name: "not pending", result: sqlmock.NewResult(0, 0), wantErr: common.ErrConditionFailed},
		{name: "db error", execErr: errors.New("down"), wantErr: common.ErrDependency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			size := int64(99)
			at := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
			exp := mock.ExpectExec(`UPDATE\s+images\s+SET\s+status=\$1.*WHERE\s+image_id=\$6\s+AND\s+status='PENDING'`).
				WithArgs("AVAILABLE", sql.NullInt64{Int64: 99, Valid: true}, sql.NullString{}, sql.NullString{}, at, "img-1")
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := repo.Transition(context.Background(), sampleRecord(), models.Transition{
				To: lifecycle.StatusAvailable, Size: &size, At: at,
			})
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgres_Delete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM images WHERE image_id=\$1`).WithArgs("img-1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), sampleRecord()))

	mock.ExpectExec(`DELETE FROM images`).WillReturnError(errors.New("down"))
	assert.ErrorIs(t, repo.Delete(context.Background(), sampleRecord()), common.ErrDependency)
}
