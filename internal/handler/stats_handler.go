package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorbid/tutorbid-api/internal/service"
	"github.com/tutorbid/tutorbid-api/pkg/response"
)

// StatsHandler serves the read-only statistics projection.
type StatsHandler struct {
	service *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// Overview godoc
// @Summary Session statistics for the caller
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/overview [get]
func (h *StatsHandler) Overview(c *gin.Context) {
	stats, err := h.service.Overview(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Utilization godoc
// @Summary Per-window slot utilization for the caller
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/utilization [get]
func (h *StatsHandler) Utilization(c *gin.Context) {
	utilizations, err := h.service.Utilization(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, utilizations, nil)
}
