package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorbid/tutorbid-api/internal/dto"
	"github.com/tutorbid/tutorbid-api/internal/service"
	appErrors "github.com/tutorbid/tutorbid-api/pkg/errors"
	"github.com/tutorbid/tutorbid-api/pkg/response"
)

// AvailabilityHandler manages availability window endpoints.
type AvailabilityHandler struct {
	service *service.AvailabilityService
	slots   *service.SlotService
}

// NewAvailabilityHandler constructs handler.
func NewAvailabilityHandler(svc *service.AvailabilityService, slots *service.SlotService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc, slots: slots}
}

// Create godoc
// @Summary Declare an availability window
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.CreateAvailabilityRequest true "Window payload"
// @Success 201 {object} response.Envelope
// @Router /availability [post]
func (h *AvailabilityHandler) Create(c *gin.Context) {
	var req dto.CreateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	window, err := h.service.Create(c.Request.Context(), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, window)
}

// List godoc
// @Summary List the caller's availability windows
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	windows, err := h.service.List(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// Get godoc
// @Summary Get one availability window
// @Tags Availability
// @Produce json
// @Param id path string true "Window ID"
// @Success 200 {object} response.Envelope
// @Router /availability/{id} [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	window, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}

// Update godoc
// @Summary Update an availability window
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Window ID"
// @Param payload body dto.UpdateAvailabilityRequest true "Window payload"
// @Success 200 {object} response.Envelope
// @Router /availability/{id} [put]
func (h *AvailabilityHandler) Update(c *gin.Context) {
	var req dto.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	window, err := h.service.Update(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}

// Delete godoc
// @Summary Delete an availability window
// @Tags Availability
// @Produce json
// @Param id path string true "Window ID"
// @Success 204
// @Router /availability/{id} [delete]
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Activate godoc
// @Summary Activate an availability window
// @Tags Availability
// @Produce json
// @Param id path string true "Window ID"
// @Success 204
// @Router /availability/{id}/activate [post]
func (h *AvailabilityHandler) Activate(c *gin.Context) {
	if err := h.service.SetActive(c.Request.Context(), actorID(c), c.Param("id"), true); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Deactivate godoc
// @Summary Deactivate an availability window
// @Tags Availability
// @Produce json
// @Param id path string true "Window ID"
// @Success 204
// @Router /availability/{id}/deactivate [post]
func (h *AvailabilityHandler) Deactivate(c *gin.Context) {
	if err := h.service.SetActive(c.Request.Context(), actorID(c), c.Param("id"), false); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSlots godoc
// @Summary List a window's generated slots
// @Tags Availability
// @Produce json
// @Param id path string true "Window ID"
// @Success 200 {object} response.Envelope
// @Router /availability/{id}/slots [get]
func (h *AvailabilityHandler) ListSlots(c *gin.Context) {
	slots, err := h.slots.ListByWindow(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Materialize godoc
// @Summary Regenerate a window's slot set
// @Tags Availability
// @Produce json
// @Param id path string true "Window ID"
// @Success 200 {object} response.Envelope
// @Router /availability/{id}/slots/materialize [post]
func (h *AvailabilityHandler) Materialize(c *gin.Context) {
	window, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if window.InstructorID != actorID(c) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	slots, err := h.slots.Materialize(c.Request.Context(), window)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}
