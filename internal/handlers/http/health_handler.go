package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	apperrors "streampulse/pkg/errors"
	"streampulse/pkg/utils"
	"streampulse/pkg/validation"

	"github.com/gin-gonic/gin"
)

// HealthHandler exposes the monitor over REST
type HealthHandler struct {
	monitor ports.HealthMonitor
	// lifetime of the tick loop started over HTTP; request contexts end too early
	baseCtx context.Context
}

func NewHealthHandler(baseCtx context.Context, monitor ports.HealthMonitor) *HealthHandler {
	return &HealthHandler{
		monitor: monitor,
		baseCtx: baseCtx,
	}
}

// SetupRoutes registers read routes openly and wraps control routes in the
// given middleware
func (h *HealthHandler) SetupRoutes(router *gin.Engine, control ...gin.HandlerFunc) {
	api := router.Group("/api/v1")
	{
		api.GET("/health/current", h.GetCurrentHealth)
		api.GET("/health/metrics", h.GetMetrics)
		api.GET("/health/alerts", h.GetAlerts)
		api.GET("/health/history", h.GetHistory)
		api.GET("/health/score", h.GetScore)
		api.GET("/health/recommendation", h.GetRecommendation)
		api.GET("/health/export", h.ExportReport)
		api.GET("/health/status", h.GetStatus)
		api.GET("/optimization", h.GetOptimization)
	}

	ctl := router.Group("/api/v1", control...)
	{
		ctl.POST("/monitoring/start", h.StartMonitoring)
		ctl.POST("/monitoring/stop", h.StopMonitoring)
		ctl.POST("/alerts/:key/resolve", h.ResolveAlert)
		ctl.DELETE("/alerts/resolved", h.ClearResolvedAlerts)
		ctl.POST("/bitrate", h.AdjustBitrate)
		ctl.POST("/metrics/reset", h.ResetMetrics)
		ctl.PUT("/optimization", h.UpdateOptimization)
	}
}

func (h *HealthHandler) GetCurrentHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.CurrentHealth())
}

func (h *HealthHandler) GetMetrics(c *gin.Context) {
	metrics := h.monitor.Metrics()
	c.JSON(http.StatusOK, gin.H{
		"metrics":       metrics,
		"uptimeDisplay": utils.FormatUptime(metrics.Uptime),
	})
}

func (h *HealthHandler) GetAlerts(c *gin.Context) {
	alerts := h.monitor.Alerts()
	if c.Query("active") == "true" {
		active := make([]domain.Alert, 0, len(alerts))
		for _, a := range alerts {
			if !a.Resolved {
				active = append(active, a)
			}
		}
		alerts = active
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (h *HealthHandler) GetHistory(c *gin.Context) {
	history := h.monitor.HealthHistory()
	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"count":   len(history),
	})
}

func (h *HealthHandler) GetScore(c *gin.Context) {
	r := h.monitor.Report()
	c.JSON(http.StatusOK, gin.H{
		"score":          r.HealthScore,
		"status":         domain.StatusForScore(r.HealthScore),
		"dropPercentage": r.DropPercentage,
	})
}

func (h *HealthHandler) GetRecommendation(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.BitrateRecommendation())
}

// ExportReport serves the indented report as a file download
func (h *HealthHandler) ExportReport(c *gin.Context) {
	data, err := h.monitor.ExportHealthReport()
	if err != nil {
		_ = c.Error(err)
		return
	}
	filename := fmt.Sprintf("stream-health-%s.json", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/json", data)
}

func (h *HealthHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"isMonitoring": h.monitor.IsMonitoring(),
		"optimization": h.monitor.OptimizationSettings(),
	})
}

func (h *HealthHandler) GetOptimization(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.OptimizationSettings())
}

func (h *HealthHandler) StartMonitoring(c *gin.Context) {
	started := h.monitor.StartMonitoring(h.baseCtx)
	c.JSON(http.StatusOK, gin.H{
		"started":      started,
		"isMonitoring": h.monitor.IsMonitoring(),
	})
}

func (h *HealthHandler) StopMonitoring(c *gin.Context) {
	stopped := h.monitor.StopMonitoring()
	c.JSON(http.StatusOK, gin.H{
		"stopped":      stopped,
		"isMonitoring": h.monitor.IsMonitoring(),
	})
}

// ResolveAlert accepts unknown keys and leaves the alert list unchanged.
// Malformed keys are rejected.
func (h *HealthHandler) ResolveAlert(c *gin.Context) {
	key := c.Param("key")
	if err := validation.ValidateAlertKey(key); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()).WithContext("key", key))
		return
	}
	h.monitor.ResolveAlert(domain.AlertKey(key))
	c.JSON(http.StatusOK, gin.H{"alerts": h.monitor.Alerts()})
}

func (h *HealthHandler) ClearResolvedAlerts(c *gin.Context) {
	h.monitor.ClearResolvedAlerts()
	c.JSON(http.StatusOK, gin.H{"alerts": h.monitor.Alerts()})
}

func (h *HealthHandler) AdjustBitrate(c *gin.Context) {
	var req struct {
		Bitrate *float64 `json:"bitrate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError("body must be {\"bitrate\": <kbps>}").WithContext("cause", err.Error()))
		return
	}

	if err := h.monitor.ManualBitrateAdjust(*req.Bitrate); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.monitor.CurrentHealth())
}

func (h *HealthHandler) ResetMetrics(c *gin.Context) {
	h.monitor.ResetMetrics()
	c.JSON(http.StatusOK, gin.H{
		"metrics":      h.monitor.Metrics(),
		"isMonitoring": h.monitor.IsMonitoring(),
	})
}

// UpdateOptimization changes only the flags present in the body
func (h *HealthHandler) UpdateOptimization(c *gin.Context) {
	var req struct {
		AutoOptimize          *bool `json:"autoOptimize"`
		AutoBitrateAdjustment *bool `json:"autoBitrateAdjustment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError("invalid optimization settings").WithContext("cause", err.Error()))
		return
	}

	settings := h.monitor.OptimizationSettings()
	if req.AutoOptimize != nil {
		settings.AutoOptimize = *req.AutoOptimize
	}
	if req.AutoBitrateAdjustment != nil {
		settings.AutoBitrateAdjustment = *req.AutoBitrateAdjustment
	}
	h.monitor.SetOptimizationSettings(settings)

	c.JSON(http.StatusOK, settings)
}
