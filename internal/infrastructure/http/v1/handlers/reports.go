package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/domain/reports"
)

// ReportsHandler handles financial and stock report endpoints.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// parsePeriod reads the mandatory from/to query parameters.
func (h *ReportsHandler) parsePeriod(c *gin.Context) (time.Time, time.Time, bool) {
	from, ok := h.ParseDateQuery(c, "from")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := h.ParseDateQuery(c, "to")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if from == nil || to == nil {
		h.Error(c, apperror.NewValidation("from and to query parameters are required"))
		return time.Time{}, time.Time{}, false
	}
	if !to.After(*from) {
		h.Error(c, apperror.NewValidation("to must be after from"))
		return time.Time{}, time.Time{}, false
	}
	return *from, *to, true
}

// CashFlowSummary handles GET /reports/cash-flow-summary
func (h *ReportsHandler) CashFlowSummary(c *gin.Context) {
	from, to, ok := h.parsePeriod(c)
	if !ok {
		return
	}

	filter := reports.CashFlowSummaryFilter{
		FromDate: from,
		ToDate:   to,
		Category: h.StringQuery(c, "category"),
	}
	if filter.UnitID, ok = h.ParseIDQuery(c, "unitId"); !ok {
		return
	}

	summary, err := h.service.GetCashFlowSummary(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, summary)
}

// DRE handles GET /reports/dre
// Returns the income statement for the period.
func (h *ReportsHandler) DRE(c *gin.Context) {
	from, to, ok := h.parsePeriod(c)
	if !ok {
		return
	}

	filter := reports.DREFilter{FromDate: from, ToDate: to}
	if filter.UnitID, ok = h.ParseIDQuery(c, "unitId"); !ok {
		return
	}

	report, err := h.service.GetDRE(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// ABCAnalysis handles GET /reports/abc-analysis
func (h *ReportsHandler) ABCAnalysis(c *gin.Context) {
	from, to, ok := h.parsePeriod(c)
	if !ok {
		return
	}

	filter := reports.ABCFilter{
		FromDate: from,
		ToDate:   to,
		Metric:   reports.ABCMetric(c.DefaultQuery("metric", string(reports.MetricRevenue))),
	}

	if v := c.Query("classA"); v != "" {
		boundary, err := decimal.NewFromString(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid classA boundary"))
			return
		}
		filter.ClassABoundary = boundary
	}
	if v := c.Query("classB"); v != "" {
		boundary, err := decimal.NewFromString(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid classB boundary"))
			return
		}
		filter.ClassBBoundary = boundary
	}

	report, err := h.service.GetABCAnalysis(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// StockTurnover handles GET /reports/stock-turnover
func (h *ReportsHandler) StockTurnover(c *gin.Context) {
	from, to, ok := h.parsePeriod(c)
	if !ok {
		return
	}

	filter := reports.TurnoverFilter{
		FromDate: from,
		ToDate:   to,
		Limit:    h.ParseIntQuery(c, "limit", 50),
		Offset:   h.ParseIntQuery(c, "offset", 0),
	}
	if filter.UnitID, ok = h.ParseIDQuery(c, "unitId"); !ok {
		return
	}
	if raw, exists := c.GetQueryArray("productId"); exists {
		for _, s := range raw {
			productID, err := id.Parse(s)
			if err != nil {
				h.Error(c, apperror.NewValidation("invalid productId format"))
				return
			}
			filter.ProductIDs = append(filter.ProductIDs, productID)
		}
	}

	report, err := h.service.GetStockTurnover(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}
