package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorbid/tutorbid-api/internal/dto"
	"github.com/tutorbid/tutorbid-api/internal/service"
	appErrors "github.com/tutorbid/tutorbid-api/pkg/errors"
	"github.com/tutorbid/tutorbid-api/pkg/response"
)

// PaymentHandler receives asynchronous callbacks from the payment provider.
type PaymentHandler struct {
	service *service.BookingService
}

// NewPaymentHandler constructs handler.
func NewPaymentHandler(svc *service.BookingService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// Callback godoc
// @Summary Payment provider webhook
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.PaymentCallbackRequest true "Callback payload"
// @Success 200 {object} response.Envelope
// @Router /payments/callback [post]
func (h *PaymentHandler) Callback(c *gin.Context) {
	var req dto.PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.HandlePaymentCallback(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "processed"}, nil)
}
