package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dfryer1193/xbrush/media/domain"
	"github.com/dfryer1193/xbrush/shared/db"
)

var (
	_ domain.ImageRepository = (*SQLiteImageRepository)(nil)
	_ domain.EntrySource     = (*SQLiteImageRepository)(nil)
)

// SQLiteImageRepository implements domain.ImageRepository using SQL database (SQLite).
// The encoded image lives in the row itself as a data URI.
type SQLiteImageRepository struct {
	db *sql.DB
}

// NewImageRepository creates a new SQLiteImageRepository from a standard sql.DB
func NewImageRepository(sqlDB *sql.DB) *SQLiteImageRepository {
	return &SQLiteImageRepository{
		db: sqlDB,
	}
}

// HashDataURI returns the content hash stored alongside an image.
func HashDataURI(dataURI string) string {
	return strconv.FormatUint(xxhash.Sum64String(dataURI), 16)
}

const upsertImageQuery = `
	INSERT INTO images (id, owner_id, role, position, file_name, format, width, height,
		original_width, original_height, size, hash, data_uri, updated_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		owner_id = excluded.owner_id,
		role = excluded.role,
		position = excluded.position,
		file_name = excluded.file_name,
		format = excluded.format,
		width = excluded.width,
		height = excluded.height,
		original_width = excluded.original_width,
		original_height = excluded.original_height,
		size = excluded.size,
		hash = excluded.hash,
		data_uri = excluded.data_uri,
		updated_at = excluded.updated_at,
		created_at = COALESCE(images.created_at, excluded.created_at)
`

// SaveImage inserts or updates an image record. The hash is recomputed from the data URI.
// Joins the caller's transaction when ctx carries one.
func (r *SQLiteImageRepository) SaveImage(ctx context.Context, img *domain.StoredImage) error {
	if img == nil {
		return fmt.Errorf("image cannot be nil")
	}

	if img.ID == "" {
		return fmt.Errorf("image ID cannot be empty")
	}

	if img.DataURI == "" {
		return fmt.Errorf("image data cannot be empty")
	}

	if img.Role == "" {
		img.Role = domain.RoleStandalone
	}

	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}

	img.Hash = HashDataURI(img.DataURI)

	var ownerID, updatedAt any
	if img.OwnerID != "" {
		ownerID = img.OwnerID
	}
	if !img.UpdatedAt.IsZero() {
		updatedAt = img.UpdatedAt
	}

	executor := db.GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, upsertImageQuery,
		img.ID,
		ownerID,
		img.Role,
		img.Position,
		img.FileName,
		string(img.Format),
		img.Width,
		img.Height,
		img.OriginalWidth,
		img.OriginalHeight,
		img.Size,
		img.Hash,
		img.DataURI,
		updatedAt,
		img.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert image record: %w", err)
	}

	return nil
}

const selectImageColumns = `
	SELECT id, owner_id, role, position, file_name, format, width, height,
		original_width, original_height, size, hash, data_uri, updated_at, created_at
	FROM images
`

const getImageQuery = selectImageColumns + `WHERE id = ?`

// GetImage retrieves a single image by ID
func (r *SQLiteImageRepository) GetImage(ctx context.Context, id string) (*domain.StoredImage, error) {
	if id == "" {
		return nil, fmt.Errorf("image ID cannot be empty")
	}

	row := db.GetExecutor(ctx, r.db).QueryRowContext(ctx, getImageQuery, id)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrImageNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return img, nil
}

const listByOwnerQuery = selectImageColumns + `
	WHERE owner_id = ?
	ORDER BY role DESC, position ASC
`

// ListByOwner returns the images of an owner, thumbnail first, then portfolio by position
func (r *SQLiteImageRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.StoredImage, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner ID cannot be empty")
	}

	rows, err := db.GetExecutor(ctx, r.db).QueryContext(ctx, listByOwnerQuery, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	images := make([]*domain.StoredImage, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image row: %w", err)
		}
		images = append(images, img)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating image rows: %w", err)
	}

	return images, nil
}

const deleteImageQuery = `
	DELETE FROM images WHERE id = ?
`

// DeleteImage removes an image record
func (r *SQLiteImageRepository) DeleteImage(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("image ID cannot be empty")
	}

	res, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, deleteImageQuery, id)
	if err != nil {
		return fmt.Errorf("failed to delete image record: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrImageNotFound, id)
	}

	return nil
}

const deleteByOwnerQuery = `
	DELETE FROM images WHERE owner_id = ?
`

// DeleteByOwner removes every image of an owner
func (r *SQLiteImageRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("owner ID cannot be empty")
	}

	_, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, deleteByOwnerQuery, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete images for owner %s: %w", ownerID, err)
	}

	return nil
}

const entrySizesQuery = `
	SELECT id, length(data_uri) FROM images
`

// ForEachEntry reports every stored image as a key/value entry (id, data URI length)
func (r *SQLiteImageRepository) ForEachEntry(ctx context.Context, fn func(key string, valueLen int64)) error {
	rows, err := r.db.QueryContext(ctx, entrySizesQuery)
	if err != nil {
		return fmt.Errorf("failed to list image entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var size int64
		if err := rows.Scan(&key, &size); err != nil {
			return fmt.Errorf("failed to scan image entry: %w", err)
		}
		fn(key, size)
	}

	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

// imageRow is a private struct used to scan database rows
type imageRow struct {
	ID             string         `db:"id"`
	OwnerID        sql.NullString `db:"owner_id"`
	Role           string         `db:"role"`
	Position       int            `db:"position"`
	FileName       string         `db:"file_name"`
	Format         string         `db:"format"`
	Width          int            `db:"width"`
	Height         int            `db:"height"`
	OriginalWidth  int            `db:"original_width"`
	OriginalHeight int            `db:"original_height"`
	Size           int64          `db:"size"`
	Hash           string         `db:"hash"`
	DataURI        string         `db:"data_uri"`
	UpdatedAt      sql.NullTime   `db:"updated_at"`
	CreatedAt      sql.NullTime   `db:"created_at"`
}

func scanImage(s scanner) (*domain.StoredImage, error) {
	var row imageRow
	err := s.Scan(
		&row.ID,
		&row.OwnerID,
		&row.Role,
		&row.Position,
		&row.FileName,
		&row.Format,
		&row.Width,
		&row.Height,
		&row.OriginalWidth,
		&row.OriginalHeight,
		&row.Size,
		&row.Hash,
		&row.DataURI,
		&row.UpdatedAt,
		&row.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// toDomain converts an imageRow to a domain.StoredImage, handling nullable columns
func (ir *imageRow) toDomain() *domain.StoredImage {
	img := &domain.StoredImage{
		ID:       ir.ID,
		OwnerID:  ir.OwnerID.String,
		Role:     ir.Role,
		Position: ir.Position,
		Hash:     ir.Hash,
		CompressedImage: domain.CompressedImage{
			DataURI:        ir.DataURI,
			Width:          ir.Width,
			Height:         ir.Height,
			OriginalWidth:  ir.OriginalWidth,
			OriginalHeight: ir.OriginalHeight,
			Size:           ir.Size,
			Format:         domain.OutputFormat(ir.Format),
			FileName:       ir.FileName,
		},
	}

	if ir.UpdatedAt.Valid {
		img.UpdatedAt = ir.UpdatedAt.Time
	}
	if ir.CreatedAt.Valid {
		img.CreatedAt = ir.CreatedAt.Time
	}

	return img
}
