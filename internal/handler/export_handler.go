package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorbid/tutorbid-api/internal/service"
	appErrors "github.com/tutorbid/tutorbid-api/pkg/errors"
	"github.com/tutorbid/tutorbid-api/pkg/response"
)

// ExportHandler serves the availability exchange formats and the PDF report.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// ExportCSV godoc
// @Summary Export the caller's availability as CSV
// @Tags Export
// @Produce text/csv
// @Success 200 {string} string "CSV content"
// @Router /availability/export [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	raw, err := h.service.ExportAvailabilityCSV(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="availability.csv"`)
	c.Data(http.StatusOK, "text/csv", raw)
}

// ImportCSV godoc
// @Summary Import availability windows from CSV
// @Tags Export
// @Accept text/csv
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /availability/import [post]
func (h *ExportHandler) ImportCSV(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable request body"))
		return
	}
	report, err := h.service.ImportAvailabilityCSV(c.Request.Context(), actorID(c), raw)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ReportPDF godoc
// @Summary Render the caller's earnings and utilization report
// @Tags Export
// @Produce application/pdf
// @Success 200 {string} string "PDF content"
// @Router /stats/report.pdf [get]
func (h *ExportHandler) ReportPDF(c *gin.Context) {
	raw, err := h.service.RenderReportPDF(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="booking-report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", raw)
}
