package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorbid/tutorbid-api/internal/dto"
	"github.com/tutorbid/tutorbid-api/internal/service"
	appErrors "github.com/tutorbid/tutorbid-api/pkg/errors"
	"github.com/tutorbid/tutorbid-api/pkg/response"
)

// SlotHandler manages slot endpoints.
type SlotHandler struct {
	slots    *service.SlotService
	bookings *service.BookingService
}

// NewSlotHandler constructs handler.
func NewSlotHandler(slots *service.SlotService, bookings *service.BookingService) *SlotHandler {
	return &SlotHandler{slots: slots, bookings: bookings}
}

// Get godoc
// @Summary Get one slot with its derived status
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /slots/{id} [get]
func (h *SlotHandler) Get(c *gin.Context) {
	slot, err := h.slots.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Block godoc
// @Summary Block a slot
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.BlockSlotRequest false "Block reason"
// @Success 204
// @Router /slots/{id}/block [post]
func (h *SlotHandler) Block(c *gin.Context) {
	var req dto.BlockSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.slots.Block(c.Request.Context(), c.Param("id"), req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Unblock godoc
// @Summary Unblock a slot
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 204
// @Router /slots/{id}/unblock [post]
func (h *SlotHandler) Unblock(c *gin.Context) {
	if err := h.slots.Unblock(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListRequests godoc
// @Summary List booking requests against a slot
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /slots/{id}/requests [get]
func (h *SlotHandler) ListRequests(c *gin.Context) {
	requests, err := h.bookings.ListBySlot(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}
