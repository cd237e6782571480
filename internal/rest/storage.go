package rest

import (
	"net/http"

	"github.com/dfryer1193/xbrush/api"
	"github.com/dfryer1193/xbrush/media/application"
	"github.com/gin-gonic/gin"
)

type storageHandler struct {
	storage *application.StorageService
}

func (h *storageHandler) getEstimate(c *gin.Context) {
	est := h.storage.CheckStorageSpace(c.Request.Context())

	c.JSON(http.StatusOK, api.StorageEstimate{
		Usage:      est.Usage,
		Quota:      est.Quota,
		UsageLabel: application.FormatFileSize(est.Usage),
		QuotaLabel: application.FormatFileSize(est.Quota),
	})
}
