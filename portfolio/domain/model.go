package domain

import (
	"context"
	"errors"
	"time"

	media "github.com/dfryer1193/xbrush/media/domain"
)

var (
	ErrModelNotFound = errors.New("model not found")
	ErrModelTooLarge = errors.New("model images exceed the document budget")
	ErrInvalidModel  = errors.New("invalid model")
)

// Model is a creator profile shown in the xBrush portfolio.
// The bio is authored in markdown; BioHTML and Snippet are derived from it.
type Model struct {
	ID        string
	Name      string
	Bio       string
	BioHTML   string
	Snippet   string
	Thumbnail *media.StoredImage
	Portfolio []*media.StoredImage
	UpdatedAt time.Time
	CreatedAt time.Time
}

// ImageBytes is the estimated size of every image attached to the model.
func (m *Model) ImageBytes() int64 {
	var total int64
	if m.Thumbnail != nil {
		total += m.Thumbnail.Size
	}
	for _, img := range m.Portfolio {
		total += img.Size
	}
	return total
}

type ModelRepository interface {
	// SaveModel inserts a new model together with its images
	SaveModel(ctx context.Context, m *Model) error

	// GetModel retrieves a model and its images
	GetModel(ctx context.Context, id string) (*Model, error)

	// GetAllModels lists models newest first, with their images
	GetAllModels(ctx context.Context) ([]*Model, error)

	// UpdateModel replaces an existing model and its images
	UpdateModel(ctx context.Context, m *Model) error

	// DeleteModel removes a model; its images go with it
	DeleteModel(ctx context.Context, id string) error
}
