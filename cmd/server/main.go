package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/unt-libraries/coda/internal/api"
	"github.com/unt-libraries/coda/internal/config"
	"github.com/unt-libraries/coda/internal/db"
	"github.com/unt-libraries/coda/internal/oai"
	"github.com/unt-libraries/coda/internal/services"
	"github.com/unt-libraries/coda/pkg/logger"
	"github.com/unt-libraries/coda/pkg/metrics"
	"go.uber.org/zap"
)

func main() {
	cfg := config.InitializeDefaultConfig()
	if path := os.Getenv("CODA_CONFIG"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	zapLogger, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	config.LogConfig(zapLogger)

	database, err := db.Initialize(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}

	metricsCollector := metrics.NewMetricsCollector()

	bagService := services.NewBagService(database, zapLogger, metricsCollector)
	nodeService := services.NewNodeService(database, zapLogger, metricsCollector)
	queueService := services.NewQueueService(database, zapLogger, metricsCollector)
	validateService := services.NewValidateService(database, zapLogger, metricsCollector, &cfg.Validation)
	oaiRepository := oai.NewRepository(bagService, cfg, zapLogger)

	router := api.NewRouter(cfg, zapLogger, metricsCollector,
		bagService, nodeService, queueService, validateService, oaiRepository)
	router.SetupRoutes()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}
	go func() {
		if err := router.Run(":" + port); err != nil {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()
	zapLogger.Info("Server started", zap.String("port", port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	sqlDB, err := db.DB.DB()
	if err == nil {
		sqlDB.Close()
	}
	zapLogger.Info("Server gracefully stopped")
}
