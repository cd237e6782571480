package rest

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dfryer1193/xbrush/api"
	media "github.com/dfryer1193/xbrush/media/domain"
	"github.com/dfryer1193/xbrush/portfolio/application"
	"github.com/dfryer1193/xbrush/portfolio/domain"
	"github.com/gin-gonic/gin"
)

type modelsHandler struct {
	models *application.ModelService
	images *imagesHandler
}

func (h *modelsHandler) getModels(c *gin.Context) {
	models, err := h.models.GetAllModels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]api.Model, 0, len(models))
	for _, m := range models {
		out = append(out, toAPIModel(m, false))
	}
	c.JSON(http.StatusOK, out)
}

func (h *modelsHandler) getModel(c *gin.Context) {
	m, err := h.models.GetModel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAPIModel(m, true))
}

func (h *modelsHandler) createModel(c *gin.Context) {
	in, err := h.bindModelInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	m, err := h.models.CreateModel(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toAPIModel(m, true))
}

func (h *modelsHandler) updateModel(c *gin.Context) {
	in, err := h.bindModelInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	m, err := h.models.UpdateModel(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAPIModel(m, true))
}

func (h *modelsHandler) deleteModel(c *gin.Context) {
	if err := h.models.DeleteModel(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// bindModelInput reads the multipart fields name, bio, thumbnail and portfolio.
func (h *modelsHandler) bindModelInput(c *gin.Context) (application.ModelInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return application.ModelInput{}, fmt.Errorf("%w: expected multipart form: %w", domain.ErrInvalidModel, err)
	}

	in := application.ModelInput{
		Name: firstValue(form.Value["name"]),
		Bio:  firstValue(form.Value["bio"]),
	}

	if headers := form.File["thumbnail"]; len(headers) > 0 {
		src, err := h.images.openSource(headers[0])
		if err != nil {
			return in, err
		}
		in.Thumbnail = &src
	}

	if headers := form.File["portfolio"]; len(headers) > 0 {
		in.Portfolio = make([]media.SourceImage, 0, len(headers))
		for _, header := range headers {
			src, err := h.images.openSource(header)
			if err != nil {
				return in, err
			}
			in.Portfolio = append(in.Portfolio, src)
		}
	}

	return in, nil
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func toAPIModel(m *domain.Model, withData bool) api.Model {
	out := api.Model{
		ID:         m.ID,
		Name:       m.Name,
		Bio:        m.Bio,
		BioHTML:    m.BioHTML,
		Snippet:    m.Snippet,
		Portfolio:  make([]api.Image, 0, len(m.Portfolio)),
		ImageBytes: m.ImageBytes(),
		CreatedAt:  m.CreatedAt.Format(time.RFC3339),
	}

	if m.Thumbnail != nil {
		thumb := toAPIImage(m.Thumbnail, true)
		out.Thumbnail = &thumb
	}
	for _, img := range m.Portfolio {
		out.Portfolio = append(out.Portfolio, toAPIImage(img, withData))
	}
	if !m.UpdatedAt.IsZero() {
		out.UpdatedAt = m.UpdatedAt.Format(time.RFC3339)
	}

	return out
}
