package http

import (
	"net/http"

	"streampulse/internal/core/ports"
	apperrors "streampulse/pkg/errors"
	"streampulse/pkg/validation"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reports ports.ReportService
}

func NewReportHandler(reports ports.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func (h *ReportHandler) SetupRoutes(router *gin.Engine, control ...gin.HandlerFunc) {
	api := router.Group("/api/v1")
	{
		api.GET("/reports", h.ListReports)
		api.GET("/reports/:id", h.GetReport)
	}
	ctl := router.Group("/api/v1", control...)
	{
		ctl.POST("/reports", h.SaveReport)
		ctl.DELETE("/reports/:id", h.DeleteReport)
	}
}

func (h *ReportHandler) SaveReport(c *gin.Context) {
	summary, err := h.reports.SaveReport(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

func (h *ReportHandler) ListReports(c *gin.Context) {
	raw := c.Query("limit")
	limit, err := validation.ParseLimit(raw)
	if err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()).WithContext("limit", raw))
		return
	}

	reports, err := h.reports.ListReports(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"count":   len(reports),
	})
}

// GetReport returns the stored report document as it was exported
func (h *ReportHandler) GetReport(c *gin.Context) {
	id := c.Param("id")
	if err := validation.ValidateReportID(id); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()).WithContext("report_id", id))
		return
	}

	report, err := h.reports.GetReport(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("X-Report-Created-At", report.CreatedAt.UTC().Format(http.TimeFormat))
	c.Data(http.StatusOK, "application/json", report.Data)
}

func (h *ReportHandler) DeleteReport(c *gin.Context) {
	id := c.Param("id")
	if err := validation.ValidateReportID(id); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()).WithContext("report_id", id))
		return
	}

	if err := h.reports.DeleteReport(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
