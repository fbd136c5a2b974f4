package api

import (
	"github.com/gin-gonic/gin"
	"github.com/unt-libraries/coda/internal/api/handlers"
	"github.com/unt-libraries/coda/internal/api/middleware"
	"github.com/unt-libraries/coda/internal/config"
	"github.com/unt-libraries/coda/internal/oai"
	"github.com/unt-libraries/coda/internal/services"
	"github.com/unt-libraries/coda/pkg/metrics"
	"go.uber.org/zap"
)

type Router struct {
	engine          *gin.Engine
	logger          *zap.Logger
	metrics         *metrics.MetricsCollector
	bagHandler      *handlers.BagHandler
	nodeHandler     *handlers.NodeHandler
	queueHandler    *handlers.QueueHandler
	validateHandler *handlers.ValidateHandler
	oaiHandler      *handlers.OAIHandler
	statsHandler    *handlers.StatsHandler
	reqMiddleware   *middleware.RequestMiddleware
}

func NewRouter(
	cfg *config.Configuration,
	logger *zap.Logger,
	collector *metrics.MetricsCollector,
	bagService *services.BagService,
	nodeService *services.NodeService,
	queueService *services.QueueService,
	validateService *services.ValidateService,
	oaiRepository *oai.Repository,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	reqMiddleware := middleware.NewRequestMiddleware(logger, collector)
	engine.Use(reqMiddleware.ProcessRequest())
	engine.Use(reqMiddleware.RecoverPanic())

	return &Router{
		engine:          engine,
		logger:          logger,
		metrics:         collector,
		bagHandler:      handlers.NewBagHandler(bagService, cfg, logger),
		nodeHandler:     handlers.NewNodeHandler(nodeService, cfg, logger),
		queueHandler:    handlers.NewQueueHandler(queueService, cfg, logger),
		validateHandler: handlers.NewValidateHandler(validateService, cfg, logger),
		oaiHandler:      handlers.NewOAIHandler(oaiRepository, logger),
		statsHandler:    handlers.NewStatsHandler(bagService, nodeService, collector, logger),
		reqMiddleware:   reqMiddleware,
	}
}

func (r *Router) SetupRoutes() {
	// Protocol collections take a catch-all parameter because ARK
	// identifiers contain slashes. An empty remainder addresses the
	// collection itself.
	r.engine.Any("/APP/bag/*id", r.bagHandler.Handle)
	r.engine.Any("/APP/node/*id", r.nodeHandler.Handle)
	r.engine.Any("/APP/queue/*id", r.queueHandler.Handle)
	r.engine.Any("/APP/validate/*id", r.validateHandler.Handle)

	r.engine.GET("/oai/", r.oaiHandler.Handle)

	r.engine.GET("/feed/", r.bagHandler.PublicFeed)
	r.engine.GET("/stats.json", r.statsHandler.StatsJSON)
	r.engine.GET("/bag/external-identifier.json", r.bagHandler.ExternalIdentifierJSON)
	r.engine.GET("/queue/stats.json", r.queueHandler.Stats)
	r.engine.GET("/validate/prioritize.json", r.validateHandler.PrioritizeJSON)
	r.engine.GET("/validate/check.json", r.validateHandler.CheckJSON)
	r.engine.GET("/validate/next/*id", r.validateHandler.Next)

	r.engine.GET("/health", r.statsHandler.Health)
	r.engine.GET("/metrics", r.statsHandler.Metrics)
	r.engine.GET("/robots.txt", r.statsHandler.Robots)
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

func (r *Router) Run(addr string) error {
	r.logger.Info("Starting HTTP server", zap.String("address", addr))
	return r.engine.Run(addr)
}
