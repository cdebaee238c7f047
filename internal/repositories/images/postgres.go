package images

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/dbx"
	"github.com/dmitrijs2005/imagevault/internal/domain/lifecycle"
	"github.com/dmitrijs2005/imagevault/internal/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
// The primary key on image_id plays the role of the imageId index.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `image_id, owner, sort_key, object_key, filename, content_type, tags, max_size,
		status, size, thumbnail_key, failure_reason, created_at, updated_at`

// Create inserts a PENDING record. ON CONFLICT DO NOTHING turns a duplicate
// image_id into zero affected rows, reported as ErrConflict.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.ImageRecord) error {
	tags, err := json.Marshal(nonNilTags(rec.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	query := `
		INSERT INTO images (image_id, owner, sort_key, object_key, filename, content_type, tags, max_size,
			status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (image_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		rec.ImageID, rec.Owner, rec.SortKey, rec.ObjectKey, rec.Filename, rec.ContentType, tags, rec.MaxSize,
		string(rec.Status), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return common.Dependency("postgres.Create", fmt.Errorf("db error: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return common.Dependency("postgres.Create", fmt.Errorf("rows affected error: %w", err))
	}
	switch n {
	case 1:
		return nil
	case 0:
		return conflict("postgres.Create", rec.ImageID, nil)
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) GetByImageID(ctx context.Context, imageID string) (*models.ImageRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM images WHERE image_id=$1`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, imageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("postgres.GetByImageID", imageID)
	}
	if err != nil {
		return nil, common.Dependency("postgres.GetByImageID", err)
	}
	return rec, nil
}

// ListByOwner pages by sort_key descending; cursor is the last sort_key of
// the previous page. One extra row is fetched to know whether a next page exists.
func (r *PostgresRepository) ListByOwner(ctx context.Context, owner string, limit int, cursor string) (*Page, error) {
	if limit < 1 {
		limit = 1
	}

	var (
		rows *sql.Rows
		err  error
	)
	if cursor == "" {
		query := `SELECT ` + selectColumns + ` FROM images WHERE owner=$1 ORDER BY sort_key DESC LIMIT $2`
		rows, err = r.db.QueryContext(ctx, query, owner, limit+1)
	} else {
		query := `SELECT ` + selectColumns + ` FROM images WHERE owner=$1 AND sort_key < $2 ORDER BY sort_key DESC LIMIT $3`
		rows, err = r.db.QueryContext(ctx, query, owner, cursor, limit+1)
	}
	if err != nil {
		return nil, common.Dependency("postgres.ListByOwner", fmt.Errorf("failed to select images: %w", err))
	}
	defer rows.Close()

	var items []*models.ImageRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, common.Dependency("postgres.ListByOwner", err)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Dependency("postgres.ListByOwner", err)
	}

	page := &Page{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.NextCursor = page.Items[limit-1].SortKey
	}
	return page, nil
}

// Transition updates the row only while status is still PENDING.
func (r *PostgresRepository) Transition(ctx context.Context, rec *models.ImageRecord, t models.Transition) error {
	if err := checkTransition(t); err != nil {
		return err
	}

	var (
		size   sql.NullInt64
		thumb  sql.NullString
		reason sql.NullString
	)
	switch t.To {
	case lifecycle.StatusAvailable:
		if t.Size != nil {
			size = sql.NullInt64{Int64: *t.Size, Valid: true}
		}
		if t.ThumbnailKey != nil {
			thumb = sql.NullString{String: *t.ThumbnailKey, Valid: true}
		}
	case lifecycle.StatusFailed:
		reason = sql.NullString{String: t.FailureReason, Valid: true}
	}

	query := `
		UPDATE images SET status=$1, size=$2, thumbnail_key=$3, failure_reason=$4, updated_at=$5
		WHERE image_id=$6 AND status='PENDING'
	`
	res, err := r.db.ExecContext(ctx, query, string(t.To), size, thumb, reason, t.At.UTC(), rec.ImageID)
	if err != nil {
		return common.Dependency("postgres.Transition", fmt.Errorf("db error: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return common.Dependency("postgres.Transition", fmt.Errorf("rows affected error: %w", err))
	}
	switch n {
	case 1:
		return nil
	case 0:
		return conditionFailed("postgres.Transition", rec.ImageID, "", nil)
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) Delete(ctx context.Context, rec *models.ImageRecord) error {
	query := `DELETE FROM images WHERE image_id=$1`
	if _, err := r.db.ExecContext(ctx, query, rec.ImageID); err != nil {
		return common.Dependency("postgres.Delete", fmt.Errorf("failed to delete image: %w", err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.ImageRecord, error) {
	var (
		rec    models.ImageRecord
		status string
		tags   []byte
		size   sql.NullInt64
		thumb  sql.NullString
		reason sql.NullString
	)
	if err := row.Scan(&rec.ImageID, &rec.Owner, &rec.SortKey, &rec.ObjectKey, &rec.Filename, &rec.ContentType,
		&tags, &rec.MaxSize, &status, &size, &thumb, &reason, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}

	rec.OwnerKey = models.OwnerKey(rec.Owner)
	rec.Status = lifecycle.Status(status)
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &rec.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
		if len(rec.Tags) == 0 {
			rec.Tags = nil
		}
	}
	if size.Valid {
		v := size.Int64
		rec.Size = &v
	}
	if thumb.Valid {
		v := thumb.String
		rec.ThumbnailKey = &v
	}
	rec.FailureReason = reason.String
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

func nonNilTags(tags map[string]string) map[string]string {
	if tags == nil {
		return map[string]string{}
	}
	return tags
}

var _ Repository = (*PostgresRepository)(nil)
