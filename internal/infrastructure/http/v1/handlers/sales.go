package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"atelier/internal/domain/orders/sales"
	"atelier/internal/infrastructure/http/v1/dto"
)

// SalesHandler handles sales order endpoints.
type SalesHandler struct {
	*BaseHandler
	service *sales.Service
}

// NewSalesHandler creates a new sales order handler.
func NewSalesHandler(base *BaseHandler, service *sales.Service) *SalesHandler {
	return &SalesHandler{BaseHandler: base, service: service}
}

// Create handles POST /sales-orders
func (h *SalesHandler) Create(c *gin.Context) {
	var order sales.Order
	if !h.BindJSON(c, &order) {
		return
	}

	if err := h.service.Create(c.Request.Context(), &order); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, &order)
}

// Get handles GET /sales-orders/:id
func (h *SalesHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseID(c)
	if !ok {
		return
	}

	order, err := h.service.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, order)
}

// Update handles PUT /sales-orders/:id
func (h *SalesHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.ParseID(c)
	if !ok {
		return
	}

	order, err := h.service.GetByID(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if !h.BindJSON(c, order) {
		return
	}
	order.ID = orderID

	if err := h.service.Update(ctx, order); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, order)
}

// UpdateStatus handles POST /sales-orders/:id/status
func (h *SalesHandler) UpdateStatus(c *gin.Context) {
	orderID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, order)
}

// Confirm handles POST /sales-orders/:id/confirm
// Confirms the order, posts stock movements and opens the receivable.
func (h *SalesHandler) Confirm(c *gin.Context) {
	orderID, ok := h.ParseID(c)
	if !ok {
		return
	}

	order, err := h.service.Confirm(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, order)
}

// List handles GET /sales-orders
func (h *SalesHandler) List(c *gin.Context) {
	filter := sales.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
		Status: h.StringQuery(c, "status"),
	}

	var ok bool
	if filter.CustomerID, ok = h.ParseIDQuery(c, "customerId"); !ok {
		return
	}
	if filter.UnitID, ok = h.ParseIDQuery(c, "unitId"); !ok {
		return
	}
	if filter.FromDate, ok = h.ParseDateQuery(c, "from"); !ok {
		return
	}
	if filter.ToDate, ok = h.ParseDateQuery(c, "to"); !ok {
		return
	}

	orders, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      orders,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}
