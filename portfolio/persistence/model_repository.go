package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	media "github.com/dfryer1193/xbrush/media/domain"
	"github.com/dfryer1193/xbrush/portfolio/domain"
	"github.com/dfryer1193/xbrush/shared/db"
)

var _ domain.ModelRepository = (*SQLiteModelRepository)(nil)

// SQLiteModelRepository implements domain.ModelRepository using SQL database (SQLite).
// Images are stored through the media repository inside the same transaction.
type SQLiteModelRepository struct {
	db     *sql.DB
	images media.ImageRepository
}

// NewModelRepository creates a new SQLiteModelRepository from a standard sql.DB
func NewModelRepository(sqlDB *sql.DB, images media.ImageRepository) *SQLiteModelRepository {
	return &SQLiteModelRepository{
		db:     sqlDB,
		images: images,
	}
}

const insertModelQuery = `
	INSERT INTO models (id, name, bio, bio_html, snippet, updated_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

// SaveModel inserts a model and all of its images within a transaction
func (r *SQLiteModelRepository) SaveModel(ctx context.Context, m *domain.Model) error {
	if err := validateModel(m); err != nil {
		return err
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		var updatedAt any
		if !m.UpdatedAt.IsZero() {
			updatedAt = m.UpdatedAt
		}

		executor := db.GetExecutor(txCtx, r.db)
		_, err := executor.ExecContext(txCtx, insertModelQuery,
			m.ID,
			m.Name,
			m.Bio,
			m.BioHTML,
			m.Snippet,
			updatedAt,
			m.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert model: %w", err)
		}

		return r.saveImages(txCtx, m)
	})
}

const updateModelQuery = `
	UPDATE models
	SET name = ?, bio = ?, bio_html = ?, snippet = ?, updated_at = ?
	WHERE id = ?
`

// UpdateModel overwrites a model and replaces its image set within a transaction
func (r *SQLiteModelRepository) UpdateModel(ctx context.Context, m *domain.Model) error {
	if err := validateModel(m); err != nil {
		return err
	}

	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now().UTC()
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)
		res, err := executor.ExecContext(txCtx, updateModelQuery,
			m.Name,
			m.Bio,
			m.BioHTML,
			m.Snippet,
			m.UpdatedAt,
			m.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update model: %w", err)
		}

		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s", domain.ErrModelNotFound, m.ID)
		}

		if err := r.images.DeleteByOwner(txCtx, m.ID); err != nil {
			return err
		}

		return r.saveImages(txCtx, m)
	})
}

func (r *SQLiteModelRepository) saveImages(ctx context.Context, m *domain.Model) error {
	if m.Thumbnail != nil {
		m.Thumbnail.OwnerID = m.ID
		m.Thumbnail.Role = media.RoleThumbnail
		if err := r.images.SaveImage(ctx, m.Thumbnail); err != nil {
			return fmt.Errorf("failed to save thumbnail: %w", err)
		}
	}

	for i, img := range m.Portfolio {
		img.OwnerID = m.ID
		img.Role = media.RolePortfolio
		img.Position = i
		if err := r.images.SaveImage(ctx, img); err != nil {
			return fmt.Errorf("failed to save portfolio image %d: %w", i, err)
		}
	}

	return nil
}

const selectModelColumns = `
	SELECT id, name, bio, bio_html, snippet, updated_at, created_at
	FROM models
`

const getModelQuery = selectModelColumns + `WHERE id = ?`

// GetModel retrieves a single model by ID, with its images
func (r *SQLiteModelRepository) GetModel(ctx context.Context, id string) (*domain.Model, error) {
	if id == "" {
		return nil, fmt.Errorf("model ID cannot be empty")
	}

	var row modelRow
	err := db.GetExecutor(ctx, r.db).QueryRowContext(ctx, getModelQuery, id).Scan(
		&row.ID,
		&row.Name,
		&row.Bio,
		&row.BioHTML,
		&row.Snippet,
		&row.UpdatedAt,
		&row.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrModelNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model: %w", err)
	}

	m := row.toDomain()
	if err := r.attachImages(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

const listModelsQuery = selectModelColumns + `ORDER BY created_at DESC`

// GetAllModels retrieves every model ordered by creation date descending
func (r *SQLiteModelRepository) GetAllModels(ctx context.Context) ([]*domain.Model, error) {
	models, err := r.listModels(ctx)
	if err != nil {
		return nil, err
	}

	// model rows are closed before images are queried
	for _, m := range models {
		if err := r.attachImages(ctx, m); err != nil {
			return nil, err
		}
	}

	return models, nil
}

func (r *SQLiteModelRepository) listModels(ctx context.Context) ([]*domain.Model, error) {
	rows, err := db.GetExecutor(ctx, r.db).QueryContext(ctx, listModelsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	models := make([]*domain.Model, 0)
	for rows.Next() {
		var row modelRow
		err := rows.Scan(
			&row.ID,
			&row.Name,
			&row.Bio,
			&row.BioHTML,
			&row.Snippet,
			&row.UpdatedAt,
			&row.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model row: %w", err)
		}
		models = append(models, row.toDomain())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating model rows: %w", err)
	}

	return models, nil
}

func (r *SQLiteModelRepository) attachImages(ctx context.Context, m *domain.Model) error {
	images, err := r.images.ListByOwner(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("failed to load images for model %s: %w", m.ID, err)
	}

	m.Portfolio = make([]*media.StoredImage, 0, len(images))
	for _, img := range images {
		switch img.Role {
		case media.RoleThumbnail:
			m.Thumbnail = img
		case media.RolePortfolio:
			m.Portfolio = append(m.Portfolio, img)
		}
	}

	return nil
}

const deleteModelQuery = `
	DELETE FROM models WHERE id = ?
`

// DeleteModel removes a model and its images within a transaction
func (r *SQLiteModelRepository) DeleteModel(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("model ID cannot be empty")
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		if err := r.images.DeleteByOwner(txCtx, id); err != nil {
			return err
		}

		res, err := db.GetExecutor(txCtx, r.db).ExecContext(txCtx, deleteModelQuery, id)
		if err != nil {
			return fmt.Errorf("failed to delete model: %w", err)
		}

		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s", domain.ErrModelNotFound, id)
		}

		return nil
	})
}

func validateModel(m *domain.Model) error {
	if m == nil {
		return fmt.Errorf("model cannot be nil")
	}

	if m.ID == "" {
		return fmt.Errorf("model ID cannot be empty")
	}

	if m.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidModel)
	}

	return nil
}

// modelRow is a private struct used to scan database rows
type modelRow struct {
	ID        string       `db:"id"`
	Name      string       `db:"name"`
	Bio       string       `db:"bio"`
	BioHTML   string       `db:"bio_html"`
	Snippet   string       `db:"snippet"`
	UpdatedAt sql.NullTime `db:"updated_at"`
	CreatedAt sql.NullTime `db:"created_at"`
}

// toDomain converts a modelRow to a domain.Model, handling nullable times
func (mr *modelRow) toDomain() *domain.Model {
	m := &domain.Model{
		ID:      mr.ID,
		Name:    mr.Name,
		Bio:     mr.Bio,
		BioHTML: mr.BioHTML,
		Snippet: mr.Snippet,
	}

	if mr.UpdatedAt.Valid {
		m.UpdatedAt = mr.UpdatedAt.Time
	}
	if mr.CreatedAt.Valid {
		m.CreatedAt = mr.CreatedAt.Time
	}

	return m
}
