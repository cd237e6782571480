package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	media "github.com/dfryer1193/xbrush/media/domain"
	"github.com/dfryer1193/xbrush/portfolio/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ImageCompressor produces the two fixed-size renditions a model needs.
type ImageCompressor interface {
	CreateThumbnail(src media.SourceImage) (*media.CompressedImage, error)
	CreatePortfolioImage(src media.SourceImage) (*media.CompressedImage, error)
}

// ModelInput carries the fields a caller may set on a model.
// A nil Thumbnail or Portfolio keeps the stored images on update.
type ModelInput struct {
	Name      string
	Bio       string
	Thumbnail *media.SourceImage
	Portfolio []media.SourceImage
}

type ModelService struct {
	codec    ImageCompressor
	repo     domain.ModelRepository
	renderer BioRenderer

	// budget caps the summed image size of one model; 0 disables the check
	budget int64
}

func NewModelService(repo domain.ModelRepository, codec ImageCompressor, renderer BioRenderer, budget int64) *ModelService {
	return &ModelService{
		codec:    codec,
		repo:     repo,
		renderer: renderer,
		budget:   budget,
	}
}

func (s *ModelService) CreateModel(ctx context.Context, in ModelInput) (*domain.Model, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidModel)
	}

	now := time.Now().UTC()
	model := &domain.Model{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.applyBio(model, in.Bio); err != nil {
		return nil, err
	}

	thumbnail, portfolio, err := s.compressImages(ctx, model.ID, in, now)
	if err != nil {
		return nil, err
	}
	model.Thumbnail = thumbnail
	model.Portfolio = portfolio

	if err := s.checkBudget(model); err != nil {
		return nil, err
	}

	if err := s.repo.SaveModel(ctx, model); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}

	log.Info().Str("model", model.ID).Int("portfolio", len(model.Portfolio)).Msg("Created model")
	return model, nil
}

func (s *ModelService) UpdateModel(ctx context.Context, id string, in ModelInput) (*domain.Model, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidModel)
	}

	model, err := s.repo.GetModel(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	model.Name = strings.TrimSpace(in.Name)
	model.UpdatedAt = now

	if err := s.applyBio(model, in.Bio); err != nil {
		return nil, err
	}

	thumbnail, portfolio, err := s.compressImages(ctx, model.ID, in, now)
	if err != nil {
		return nil, err
	}
	if in.Thumbnail != nil {
		model.Thumbnail = thumbnail
	}
	if in.Portfolio != nil {
		model.Portfolio = portfolio
	}

	if err := s.checkBudget(model); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateModel(ctx, model); err != nil {
		return nil, fmt.Errorf("failed to update model %s: %w", id, err)
	}

	log.Info().Str("model", model.ID).Msg("Updated model")
	return model, nil
}

func (s *ModelService) GetModel(ctx context.Context, id string) (*domain.Model, error) {
	return s.repo.GetModel(ctx, id)
}

func (s *ModelService) GetAllModels(ctx context.Context) ([]*domain.Model, error) {
	return s.repo.GetAllModels(ctx)
}

func (s *ModelService) DeleteModel(ctx context.Context, id string) error {
	if err := s.repo.DeleteModel(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrModelNotFound) {
			log.Error().Err(err).Str("model", id).Msg("Failed to delete model")
		}
		return err
	}

	log.Info().Str("model", id).Msg("Deleted model")
	return nil
}

func (s *ModelService) applyBio(model *domain.Model, bio string) error {
	model.Bio = bio
	if strings.TrimSpace(bio) == "" {
		model.BioHTML = ""
		model.Snippet = ""
		return nil
	}

	result, err := s.renderer.Render([]byte(bio))
	if err != nil {
		return fmt.Errorf("failed to render bio: %w", err)
	}
	model.BioHTML = result.HTML
	model.Snippet = result.Snippet
	return nil
}

// compressImages runs every rendition of in concurrently. The first failure
// wins; results of the other calls are dropped.
func (s *ModelService) compressImages(ctx context.Context, ownerID string, in ModelInput, now time.Time) (*media.StoredImage, []*media.StoredImage, error) {
	g, _ := errgroup.WithContext(ctx)

	var thumbnail *media.StoredImage
	if in.Thumbnail != nil {
		src := *in.Thumbnail
		g.Go(func() error {
			compressed, err := s.codec.CreateThumbnail(src)
			if err != nil {
				return fmt.Errorf("failed to create thumbnail: %w", err)
			}
			thumbnail = newStoredImage(ownerID, media.RoleThumbnail, 0, compressed, now)
			return nil
		})
	}

	portfolio := make([]*media.StoredImage, len(in.Portfolio))
	for i, src := range in.Portfolio {
		g.Go(func() error {
			compressed, err := s.codec.CreatePortfolioImage(src)
			if err != nil {
				return fmt.Errorf("failed to create portfolio image %q: %w", src.Name, err)
			}
			portfolio[i] = newStoredImage(ownerID, media.RolePortfolio, i, compressed, now)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return thumbnail, portfolio, nil
}

func (s *ModelService) checkBudget(model *domain.Model) error {
	if s.budget <= 0 {
		return nil
	}
	if total := model.ImageBytes(); total > s.budget {
		return fmt.Errorf("%w: %d bytes, budget is %d", domain.ErrModelTooLarge, total, s.budget)
	}
	return nil
}

func newStoredImage(ownerID, role string, position int, compressed *media.CompressedImage, now time.Time) *media.StoredImage {
	return &media.StoredImage{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Role:            role,
		Position:        position,
		CompressedImage: *compressed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
