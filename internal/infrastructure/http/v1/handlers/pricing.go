package handlers

import (
	"github.com/gin-gonic/gin"

	"atelier/internal/domain/pricing"
)

// PricingHandler handles price calculation endpoints. Rule CRUD is served
// by the embedded catalog handler.
type PricingHandler struct {
	*CatalogHandler[*pricing.Rule]
	service *pricing.Service
}

// NewPricingHandler creates a new pricing handler.
func NewPricingHandler(base *BaseHandler, service *pricing.Service) *PricingHandler {
	return &PricingHandler{
		CatalogHandler: NewCatalogHandler(base, service.CatalogService, "pricing rule",
			func() *pricing.Rule { return &pricing.Rule{} }),
		service: service,
	}
}

// CalculatePrice handles POST /pricing/calculate-price
func (h *PricingHandler) CalculatePrice(c *gin.Context) {
	var in pricing.CalculateInput
	if !h.BindJSON(c, &in) {
		return
	}

	quote, err := h.service.CalculatePrice(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, quote)
}

// SimulateMargin handles POST /pricing/simulate-margin
func (h *PricingHandler) SimulateMargin(c *gin.Context) {
	var in pricing.SimulateInput
	if !h.BindJSON(c, &in) {
		return
	}

	sim, err := h.service.SimulateMargin(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, sim)
}

// Quote handles POST /pricing/quote
// Picks the first matching active rule and prices with it.
func (h *PricingHandler) Quote(c *gin.Context) {
	var in pricing.QuoteInput
	if !h.BindJSON(c, &in) {
		return
	}

	quote, err := h.service.QuoteWithRules(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, quote)
}
