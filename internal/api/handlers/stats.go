package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unt-libraries/coda/internal/services"
	"github.com/unt-libraries/coda/pkg/metrics"
	"go.uber.org/zap"
)

// StatsHandler serves the machine-readable odds and ends around the
// protocol surfaces: aggregate stats, health, process metrics, and the
// robots policy.
type StatsHandler struct {
	bags    *services.BagService
	nodes   *services.NodeService
	metrics *metrics.MetricsCollector
	logger  *zap.Logger
}

func NewStatsHandler(bags *services.BagService, nodes *services.NodeService, collector *metrics.MetricsCollector, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		bags:    bags,
		nodes:   nodes,
		metrics: collector,
		logger:  logger.With(zap.String("handler", "stats")),
	}
}

func (h *StatsHandler) StatsJSON(c *gin.Context) {
	totals, err := h.bags.Totals()
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read totals.\n")
		return
	}
	capacity, err := h.nodes.CapacitySum()
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read totals.\n")
		return
	}
	updated := ""
	if totals.MaxBaggingDate != nil {
		updated = totals.MaxBaggingDate.Format("2006-01-02")
	}
	c.JSON(http.StatusOK, gin.H{
		"bags":          totals.Bags,
		"files":         totals.Files,
		"capacity":      capacity,
		"capacity_used": totals.Size,
		"updated":       updated,
	})
}

func (h *StatsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *StatsHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"counters":  h.metrics.GetCounters(),
		"latencies": h.metrics.GetLatencies(),
	})
}

func (h *StatsHandler) Robots(c *gin.Context) {
	c.String(http.StatusOK, "User-agent: *\nDisallow: /")
}
