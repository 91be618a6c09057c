package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorbid/tutorbid-api/internal/dto"
	"github.com/tutorbid/tutorbid-api/internal/service"
	appErrors "github.com/tutorbid/tutorbid-api/pkg/errors"
	"github.com/tutorbid/tutorbid-api/pkg/response"
)

// BookingHandler manages booking request endpoints.
type BookingHandler struct {
	service *service.BookingService
}

// NewBookingHandler constructs handler.
func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{service: svc}
}

// Submit godoc
// @Summary Submit a priced booking request against a slot
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.SubmitBidRequest true "Bid payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *BookingHandler) Submit(c *gin.Context) {
	var req dto.SubmitBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.service.Submit(c.Request.Context(), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Get godoc
// @Summary Get one booking request
// @Tags Bookings
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// List godoc
// @Summary List booking requests against the caller's slots
// @Tags Bookings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *BookingHandler) List(c *gin.Context) {
	requests, err := h.service.ListForInstructor(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Accept godoc
// @Summary Accept a pending booking request
// @Tags Bookings
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/accept [post]
func (h *BookingHandler) Accept(c *gin.Context) {
	request, err := h.service.Accept(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject a pending booking request
// @Tags Bookings
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/reject [post]
func (h *BookingHandler) Reject(c *gin.Context) {
	request, err := h.service.Reject(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Withdraw godoc
// @Summary Withdraw the caller's pending booking request
// @Tags Bookings
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/withdraw [post]
func (h *BookingHandler) Withdraw(c *gin.Context) {
	request, err := h.service.Withdraw(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// BulkUpdate godoc
// @Summary Accept or reject a batch of requests
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.BulkUpdateRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /requests/bulk [post]
func (h *BookingHandler) BulkUpdate(c *gin.Context) {
	var req dto.BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	results, err := h.service.BulkUpdate(c.Request.Context(), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Release godoc
// @Summary Release the slot reservation of a failed payment
// @Tags Bookings
// @Produce json
// @Param id path string true "Request ID"
// @Success 204
// @Router /requests/{id}/release [post]
func (h *BookingHandler) Release(c *gin.Context) {
	if err := h.service.ReleaseReservation(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
