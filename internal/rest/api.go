package rest

import (
	"net/http"
	"time"

	"github.com/dfryer1193/xbrush/media/application"
	"github.com/dfryer1193/xbrush/media/domain"
	portfolio "github.com/dfryer1193/xbrush/portfolio/application"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the REST API is served from.
type Dependencies struct {
	Codec           *application.ImageCodec
	Images          domain.ImageRepository
	Storage         *application.StorageService
	Models          *portfolio.ModelService
	MaxUploadBytes  int64
	CompressTimeout time.Duration
}

func NewApi(router *gin.Engine, deps Dependencies) {
	images := &imagesHandler{
		codec:           deps.Codec,
		images:          deps.Images,
		maxUploadBytes:  deps.MaxUploadBytes,
		compressTimeout: deps.CompressTimeout,
	}
	storage := &storageHandler{storage: deps.Storage}
	models := &modelsHandler{models: deps.Models, images: images}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	imagesV1 := router.Group("images/v1")
	{
		imagesV1.POST("/compress", images.compress(application.PresetCustom))
		imagesV1.POST("/thumbnail", images.compress(application.PresetThumbnail))
		imagesV1.POST("/portfolio", images.compress(application.PresetPortfolio))
		imagesV1.GET("/:id", images.getImage)
		imagesV1.GET("/:id/raw", images.getRaw)
		imagesV1.DELETE("/:id", images.deleteImage)
	}

	storageV1 := router.Group("storage/v1")
	{
		storageV1.GET("/estimate", storage.getEstimate)
	}

	modelsV1 := router.Group("models/v1")
	{
		modelsV1.GET("/", models.getModels)
		modelsV1.GET("/:id", models.getModel)
		modelsV1.POST("/", models.createModel)
		modelsV1.PUT("/:id", models.updateModel)
		modelsV1.DELETE("/:id", models.deleteModel)
	}
}
