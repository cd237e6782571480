package application

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sort"
	"strings"
	"sync"
	"testing"

	mediaapp "github.com/dfryer1193/xbrush/media/application"
	media "github.com/dfryer1193/xbrush/media/domain"
	"github.com/dfryer1193/xbrush/portfolio/domain"
	"github.com/dfryer1193/xbrush/shared/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModelRepo struct {
	mu     sync.Mutex
	models map[string]*domain.Model
}

func newFakeModelRepo() *fakeModelRepo {
	return &fakeModelRepo{models: make(map[string]*domain.Model)}
}

func (r *fakeModelRepo) SaveModel(_ context.Context, m *domain.Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[m.ID] = m
	return nil
}

func (r *fakeModelRepo) GetModel(_ context.Context, id string) (*domain.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[id]
	if !ok {
		return nil, domain.ErrModelNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeModelRepo) GetAllModels(_ context.Context) ([]*domain.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeModelRepo) UpdateModel(_ context.Context, m *domain.Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[m.ID]; !ok {
		return domain.ErrModelNotFound
	}
	r.models[m.ID] = m
	return nil
}

func (r *fakeModelRepo) DeleteModel(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[id]; !ok {
		return domain.ErrModelNotFound
	}
	delete(r.models, id)
	return nil
}

// fakeCompressor returns images of a fixed estimated size named after the source.
type fakeCompressor struct {
	size int64
	fail string
}

func (f fakeCompressor) CreateThumbnail(src media.SourceImage) (*media.CompressedImage, error) {
	return f.compress(src, 400, 500)
}

func (f fakeCompressor) CreatePortfolioImage(src media.SourceImage) (*media.CompressedImage, error) {
	return f.compress(src, 600, 800)
}

func (f fakeCompressor) compress(src media.SourceImage, w, h int) (*media.CompressedImage, error) {
	if src.Name == f.fail {
		return nil, media.ErrDecode
	}
	return &media.CompressedImage{
		DataURI:  "data:image/jpeg;base64,AAAA",
		Width:    w,
		Height:   h,
		Size:     f.size,
		Format:   media.FormatJPEG,
		FileName: src.Name,
	}, nil
}

func source(name string) media.SourceImage {
	return media.SourceImage{Name: name, MIMEType: "image/png", Reader: strings.NewReader("")}
}

func TestModelService_CreateModel(t *testing.T) {
	repo := newFakeModelRepo()
	svc := NewModelService(repo, fakeCompressor{size: 10}, NewBioRenderer(), 0)

	thumb := source("face.png")
	model, err := svc.CreateModel(context.Background(), ModelInput{
		Name:      "  Ada  ",
		Bio:       "Paints *large* canvases.",
		Thumbnail: &thumb,
		Portfolio: []media.SourceImage{source("a.png"), source("b.png"), source("c.png")},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, model.ID)
	assert.Equal(t, "Ada", model.Name)
	assert.Contains(t, model.BioHTML, "<em>large</em>")
	assert.Equal(t, "Paints *large* canvases.", model.Snippet)

	require.NotNil(t, model.Thumbnail)
	assert.Equal(t, media.RoleThumbnail, model.Thumbnail.Role)
	assert.Equal(t, model.ID, model.Thumbnail.OwnerID)
	assert.Equal(t, "face.png", model.Thumbnail.FileName)

	require.Len(t, model.Portfolio, 3)
	for i, name := range []string{"a.png", "b.png", "c.png"} {
		assert.Equal(t, name, model.Portfolio[i].FileName)
		assert.Equal(t, i, model.Portfolio[i].Position)
		assert.Equal(t, media.RolePortfolio, model.Portfolio[i].Role)
		assert.NotEmpty(t, model.Portfolio[i].ID)
	}
	assert.Equal(t, int64(40), model.ImageBytes())

	stored, err := repo.GetModel(context.Background(), model.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Name, stored.Name)
}

func TestModelService_CreateModel_InvalidName(t *testing.T) {
	svc := NewModelService(newFakeModelRepo(), fakeCompressor{}, NewBioRenderer(), 0)

	_, err := svc.CreateModel(context.Background(), ModelInput{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidModel)
}

func TestModelService_CreateModel_OverBudget(t *testing.T) {
	repo := newFakeModelRepo()
	svc := NewModelService(repo, fakeCompressor{size: 600}, NewBioRenderer(), 1000)

	_, err := svc.CreateModel(context.Background(), ModelInput{
		Name:      "Big",
		Portfolio: []media.SourceImage{source("a.png"), source("b.png")},
	})
	assert.ErrorIs(t, err, domain.ErrModelTooLarge)

	all, err := repo.GetAllModels(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestModelService_CreateModel_CompressFailure(t *testing.T) {
	svc := NewModelService(newFakeModelRepo(), fakeCompressor{fail: "bad.png"}, NewBioRenderer(), 0)

	_, err := svc.CreateModel(context.Background(), ModelInput{
		Name:      "Broken",
		Portfolio: []media.SourceImage{source("ok.png"), source("bad.png")},
	})
	assert.ErrorIs(t, err, media.ErrDecode)
}

func TestModelService_UpdateModel_KeepsImagesWhenOmitted(t *testing.T) {
	repo := newFakeModelRepo()
	svc := NewModelService(repo, fakeCompressor{size: 10}, NewBioRenderer(), 0)
	ctx := context.Background()

	thumb := source("face.png")
	created, err := svc.CreateModel(ctx, ModelInput{
		Name:      "Ada",
		Thumbnail: &thumb,
		Portfolio: []media.SourceImage{source("a.png")},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateModel(ctx, created.ID, ModelInput{Name: "Ada L.", Bio: "New bio"})
	require.NoError(t, err)

	assert.Equal(t, "Ada L.", updated.Name)
	assert.Equal(t, "New bio", updated.Snippet)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.NotNil(t, updated.Thumbnail)
	assert.Equal(t, created.Thumbnail.ID, updated.Thumbnail.ID)
	require.Len(t, updated.Portfolio, 1)
	assert.Equal(t, created.Portfolio[0].ID, updated.Portfolio[0].ID)
}

func TestModelService_UpdateModel_ReplacesPortfolio(t *testing.T) {
	repo := newFakeModelRepo()
	svc := NewModelService(repo, fakeCompressor{size: 10}, NewBioRenderer(), 0)
	ctx := context.Background()

	created, err := svc.CreateModel(ctx, ModelInput{
		Name:      "Ada",
		Portfolio: []media.SourceImage{source("a.png")},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateModel(ctx, created.ID, ModelInput{
		Name:      "Ada",
		Portfolio: []media.SourceImage{source("x.png"), source("y.png")},
	})
	require.NoError(t, err)

	require.Len(t, updated.Portfolio, 2)
	assert.Equal(t, "x.png", updated.Portfolio[0].FileName)
	assert.Equal(t, "y.png", updated.Portfolio[1].FileName)
	assert.NotEqual(t, created.Portfolio[0].ID, updated.Portfolio[0].ID)
}

func TestModelService_UpdateModel_NotFound(t *testing.T) {
	svc := NewModelService(newFakeModelRepo(), fakeCompressor{}, NewBioRenderer(), 0)

	_, err := svc.UpdateModel(context.Background(), "missing", ModelInput{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestModelService_DeleteModel(t *testing.T) {
	repo := newFakeModelRepo()
	svc := NewModelService(repo, fakeCompressor{}, NewBioRenderer(), 0)
	ctx := context.Background()

	created, err := svc.CreateModel(ctx, ModelInput{Name: "Ada"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteModel(ctx, created.ID))

	_, err = svc.GetModel(ctx, created.ID)
	assert.True(t, errors.Is(err, domain.ErrModelNotFound))
	assert.ErrorIs(t, svc.DeleteModel(ctx, created.ID), domain.ErrModelNotFound)
}

func TestModelService_WithImageCodec(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2000, 1000))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	codec := mediaapp.NewImageCodec(raster.NewEngine())
	svc := NewModelService(newFakeModelRepo(), codec, NewBioRenderer(), 0)

	thumb := media.SourceImage{Name: "wide.png", MIMEType: "image/png", Reader: bytes.NewReader(buf.Bytes())}
	model, err := svc.CreateModel(context.Background(), ModelInput{Name: "Ada", Thumbnail: &thumb})
	require.NoError(t, err)

	require.NotNil(t, model.Thumbnail)
	assert.Equal(t, 400, model.Thumbnail.Width)
	assert.Equal(t, 200, model.Thumbnail.Height)
	assert.Equal(t, "wide.png", model.Thumbnail.FileName)
}
