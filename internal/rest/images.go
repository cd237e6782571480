package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/dfryer1193/xbrush/api"
	"github.com/dfryer1193/xbrush/media/application"
	"github.com/dfryer1193/xbrush/media/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type imagesHandler struct {
	codec           *application.ImageCodec
	images          domain.ImageRepository
	maxUploadBytes  int64
	compressTimeout time.Duration
}

// compress handles multipart uploads for a preset, or for caller-supplied
// options when preset is PresetCustom.
func (h *imagesHandler) compress(preset string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}

		var opts domain.CompressionOptions
		if preset == application.PresetCustom {
			opts, err = parseCompressionOptions(c)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		persist := false
		if raw := c.PostForm("persist"); raw != "" {
			persist, err = strconv.ParseBool(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "persist must be a boolean"})
				return
			}
		}

		src, err := h.openSource(header)
		if err != nil {
			respondError(c, err)
			return
		}

		var outcome <-chan application.CompressOutcome
		if preset == application.PresetCustom {
			outcome = h.codec.CompressAsync(src, opts)
		} else {
			outcome = h.codec.CompressPresetAsync(src, preset)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.compressTimeout)
		defer cancel()

		compressed, err := application.Await(ctx, outcome)
		if err != nil {
			respondError(c, err)
			return
		}

		if !persist {
			c.JSON(http.StatusOK, toAPIImage(&domain.StoredImage{CompressedImage: *compressed}, true))
			return
		}

		stored := &domain.StoredImage{
			ID:              uuid.NewString(),
			Role:            domain.RoleStandalone,
			CompressedImage: *compressed,
		}
		if err := h.images.SaveImage(c.Request.Context(), stored); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, toAPIImage(stored, true))
	}
}

// openSource validates the declared type and size of an upload and buffers it.
// The returned reader does not depend on the request, so a compress abandoned
// after a timeout still reads complete data.
func (h *imagesHandler) openSource(header *multipart.FileHeader) (domain.SourceImage, error) {
	src := domain.SourceImage{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
	}

	if !application.IsValidImage(src) {
		return src, fmt.Errorf("%w: %q", errUnsupportedType, src.MIMEType)
	}

	if header.Size > h.maxUploadBytes {
		return src, fmt.Errorf("%w: %s is %s, limit is %s", errFileTooLarge,
			header.Filename, application.FormatFileSize(header.Size), application.FormatFileSize(h.maxUploadBytes))
	}

	f, err := header.Open()
	if err != nil {
		return src, fmt.Errorf("%w: %s: %w", domain.ErrRead, header.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		return src, fmt.Errorf("%w: %s: %w", domain.ErrRead, header.Filename, err)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return src, fmt.Errorf("%w: %s exceeds %s", errFileTooLarge,
			header.Filename, application.FormatFileSize(h.maxUploadBytes))
	}

	src.Reader = bytes.NewReader(data)
	return src, nil
}

func parseCompressionOptions(c *gin.Context) (domain.CompressionOptions, error) {
	var opts domain.CompressionOptions
	var err error

	if raw := c.PostForm("maxWidth"); raw != "" {
		if opts.MaxWidth, err = strconv.Atoi(raw); err != nil || opts.MaxWidth < 0 {
			return opts, fmt.Errorf("maxWidth must be a non-negative integer")
		}
	}

	if raw := c.PostForm("maxHeight"); raw != "" {
		if opts.MaxHeight, err = strconv.Atoi(raw); err != nil || opts.MaxHeight < 0 {
			return opts, fmt.Errorf("maxHeight must be a non-negative integer")
		}
	}

	if raw := c.PostForm("quality"); raw != "" {
		if opts.Quality, err = strconv.ParseFloat(raw, 64); err != nil {
			return opts, fmt.Errorf("quality must be a number")
		}
	}

	opts.OutputFormat = domain.OutputFormat(c.PostForm("outputFormat"))
	return opts, nil
}

func (h *imagesHandler) getImage(c *gin.Context) {
	img, err := h.images.GetImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAPIImage(img, true))
}

// getRaw serves the decoded image bytes, using the content hash as ETag.
func (h *imagesHandler) getRaw(c *gin.Context) {
	img, err := h.images.GetImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	etag := strconv.Quote(img.Hash)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "private, max-age=0, must-revalidate")
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	blob, err := application.Base64ToBlob(img.DataURI)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(http.StatusOK, blob.MIMEType, blob.Data)
}

func (h *imagesHandler) deleteImage(c *gin.Context) {
	if err := h.images.DeleteImage(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func toAPIImage(img *domain.StoredImage, withData bool) api.Image {
	out := api.Image{
		ID:             img.ID,
		FileName:       img.FileName,
		Format:         string(img.Format),
		Width:          img.Width,
		Height:         img.Height,
		OriginalWidth:  img.OriginalWidth,
		OriginalHeight: img.OriginalHeight,
		Size:           img.Size,
		SizeLabel:      application.FormatFileSize(img.Size),
		Hash:           img.Hash,
	}
	if withData {
		out.DataURI = img.DataURI
	}
	if !img.CreatedAt.IsZero() {
		out.CreatedAt = img.CreatedAt.Format(time.RFC3339)
	}
	return out
}
