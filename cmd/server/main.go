package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dfryer1193/xbrush/internal/middleware"
	"github.com/dfryer1193/xbrush/internal/rest"
	mediaapp "github.com/dfryer1193/xbrush/media/application"
	mediadomain "github.com/dfryer1193/xbrush/media/domain"
	mediapersistence "github.com/dfryer1193/xbrush/media/persistence"
	notifyapp "github.com/dfryer1193/xbrush/notify/application"
	portfolioapp "github.com/dfryer1193/xbrush/portfolio/application"
	portfoliopersistence "github.com/dfryer1193/xbrush/portfolio/persistence"
	"github.com/dfryer1193/xbrush/shared/config"
	"github.com/dfryer1193/xbrush/shared/db"
	"github.com/dfryer1193/xbrush/shared/db/sqlite"
	"github.com/dfryer1193/xbrush/shared/logging"
	"github.com/dfryer1193/xbrush/shared/raster"
	webhook "github.com/dfryer1193/xbrush/webhook/http"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	dbCfg, err := sqlite.NewSQLiteConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load database config")
	}

	var database db.Database = sqlite.NewSQLiteDB(dbCfg)
	if err := database.Connect(context.Background()); err != nil {
		log.Fatal().Err(err).Str("path", dbCfg.Path).Msg("Failed to connect to database")
	}
	defer database.Close()

	imageRepo := mediapersistence.NewImageRepository(database.DB())
	modelRepo := portfoliopersistence.NewModelRepository(database.DB(), imageRepo)

	codec := mediaapp.NewImageCodec(raster.NewEngine(raster.WithMaxPixels(cfg.MaxDecodePixels)))

	var estimator mediadomain.StorageEstimator
	if dirEstimator := mediapersistence.NewDirectoryEstimator(cfg.StorageDir, cfg.StorageQuotaBytes); dirEstimator != nil {
		estimator = dirEstimator
	}
	storageService := mediaapp.NewStorageService(estimator, imageRepo)

	modelService := portfolioapp.NewModelService(modelRepo, codec, portfolioapp.NewBioRenderer(), cfg.DocumentBudgetBytes)

	forwarder := notifyapp.NewSlackForwarder(cfg.SlackWebhookURL, cfg.NotifyTimeout)
	if !forwarder.Configured() {
		log.Warn().Msg("SLACK_WEBHOOK_URL is not set; relay requests will fail")
	}

	hooks := chi.NewRouter()
	webhook.NewRelayHandler(forwarder, cfg.GitHubWebhookSecret).RegisterRoutes(hooks)

	gin.SetMode(gin.ReleaseMode)
	service := gin.New()
	service.Use(middleware.LoggingMiddleware())
	service.Use(gin.CustomRecovery(middleware.HandlePanics()))
	service.Any("/hooks/*path", gin.WrapH(hooks))

	rest.NewApi(service, rest.Dependencies{
		Codec:           codec,
		Images:          imageRepo,
		Storage:         storageService,
		Models:          modelService,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		CompressTimeout: cfg.CompressTimeout,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: gzhttp.GzipHandler(service),
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to shutdown server")
	}

	log.Info().Msg("Server stopped")
}
