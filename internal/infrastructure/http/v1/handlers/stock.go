package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"atelier/internal/domain/ledger"
	"atelier/internal/infrastructure/http/v1/dto"
)

// StockHandler handles stock ledger endpoints.
type StockHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *ledger.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// RecordMovement handles POST /stock/movements
func (h *StockHandler) RecordMovement(c *gin.Context) {
	var req dto.RecordMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	movement, err := h.service.RecordMovement(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, movement)
}

// ListMovements handles GET /stock/movements
func (h *StockHandler) ListMovements(c *gin.Context) {
	filter, ok := h.parseMovementFilter(c)
	if !ok {
		return
	}

	movements, err := h.service.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": movements})
}

func (h *StockHandler) parseMovementFilter(c *gin.Context) (ledger.MovementFilter, bool) {
	filter := ledger.MovementFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	var ok bool
	if filter.ProductID, ok = h.ParseIDQuery(c, "productId"); !ok {
		return filter, false
	}
	if filter.UnitID, ok = h.ParseIDQuery(c, "unitId"); !ok {
		return filter, false
	}
	if filter.FromDate, ok = h.ParseDateQuery(c, "from"); !ok {
		return filter, false
	}
	if filter.ToDate, ok = h.ParseDateQuery(c, "to"); !ok {
		return filter, false
	}
	if v := c.Query("type"); v != "" {
		t := ledger.MovementType(v)
		filter.Type = &t
	}
	if v := c.Query("reason"); v != "" {
		r := ledger.MovementReason(v)
		filter.Reason = &r
	}
	return filter, true
}

// UnitStock handles GET /stock/units/:id
func (h *StockHandler) UnitStock(c *gin.Context) {
	unitID, ok := h.ParseID(c)
	if !ok {
		return
	}

	stock, err := h.service.GetUnitStock(c.Request.Context(), unitID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": stock})
}

// Availability handles GET /stock/availability/:id
// Returns the consolidated balance and the per-unit breakdown for a product.
func (h *StockHandler) Availability(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}

	total, units, err := h.service.GetProductAvailability(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"productId": productID,
		"total":     total,
		"units":     units,
	})
}

// ListAlerts handles GET /stock/alerts
func (h *StockHandler) ListAlerts(c *gin.Context) {
	filter := ledger.AlertFilter{
		UnreadOnly: c.Query("unreadOnly") == "true",
		Limit:      h.ParseIntQuery(c, "limit", 50),
		Offset:     h.ParseIntQuery(c, "offset", 0),
	}

	var ok bool
	if filter.ProductID, ok = h.ParseIDQuery(c, "productId"); !ok {
		return
	}
	if filter.UnitID, ok = h.ParseIDQuery(c, "unitId"); !ok {
		return
	}
	if v := c.Query("type"); v != "" {
		t := ledger.AlertType(v)
		filter.Type = &t
	}

	alerts, err := h.service.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": alerts})
}

// MarkAlertRead handles POST /stock/alerts/:id/read
func (h *StockHandler) MarkAlertRead(c *gin.Context) {
	alertID, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.service.MarkAlertRead(c.Request.Context(), alertID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "alert marked as read")
}

// ScanAlerts handles POST /stock/alerts/scan
//
// Re-dispatches alerts whose notification previously failed. The same
// sweep runs periodically in the background; this endpoint forces it.
func (h *StockHandler) ScanAlerts(c *gin.Context) {
	limit := h.ParseIntQuery(c, "limit", 100)

	retried, err := h.service.RetryUnnotifiedAlerts(c.Request.Context(), limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dispatched": retried})
}
