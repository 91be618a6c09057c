package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorbid/tutorbid-api/internal/dto"
	"github.com/tutorbid/tutorbid-api/internal/service"
	appErrors "github.com/tutorbid/tutorbid-api/pkg/errors"
	"github.com/tutorbid/tutorbid-api/pkg/response"
)

// PriceRuleHandler manages pricing policy endpoints.
type PriceRuleHandler struct {
	service *service.PricingService
}

// NewPriceRuleHandler constructs handler.
func NewPriceRuleHandler(svc *service.PricingService) *PriceRuleHandler {
	return &PriceRuleHandler{service: svc}
}

// Upsert godoc
// @Summary Create or replace the price rule for a session type
// @Tags Pricing
// @Accept json
// @Produce json
// @Param payload body dto.UpsertPriceRuleRequest true "Rule payload"
// @Success 200 {object} response.Envelope
// @Router /price-rules [put]
func (h *PriceRuleHandler) Upsert(c *gin.Context) {
	var req dto.UpsertPriceRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.service.Upsert(c.Request.Context(), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// List godoc
// @Summary List the caller's price rules
// @Tags Pricing
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /price-rules [get]
func (h *PriceRuleHandler) List(c *gin.Context) {
	rules, err := h.service.List(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// Delete godoc
// @Summary Delete a price rule
// @Tags Pricing
// @Produce json
// @Param id path string true "Rule ID"
// @Success 204
// @Router /price-rules/{id} [delete]
func (h *PriceRuleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Evaluate godoc
// @Summary Preview the evaluator verdict for a hypothetical bid
// @Tags Pricing
// @Accept json
// @Produce json
// @Param payload body dto.EvaluateBidRequest true "Evaluation payload"
// @Success 200 {object} response.Envelope
// @Router /price-rules/evaluate [post]
func (h *PriceRuleHandler) Evaluate(c *gin.Context) {
	var req dto.EvaluateBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	verdict, err := h.service.Preview(c.Request.Context(), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verdict, nil)
}
