package rest

import (
	"context"
	"errors"
	"net/http"

	media "github.com/dfryer1193/xbrush/media/domain"
	portfolio "github.com/dfryer1193/xbrush/portfolio/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var (
	errUnsupportedType = errors.New("unsupported image type")
	errFileTooLarge    = errors.New("file exceeds the upload limit")
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, errFileTooLarge), errors.Is(err, portfolio.ErrModelTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, media.ErrRead), errors.Is(err, portfolio.ErrInvalidModel):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrDecode), errors.Is(err, media.ErrFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, media.ErrImageNotFound), errors.Is(err, portfolio.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body. Server-side failures are logged
// and their details withheld from the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusGatewayTimeout {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status)})
		return
	}

	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
