package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"atelier/internal/domain/orders/purchase"
	"atelier/internal/infrastructure/http/v1/dto"
)

// PurchaseHandler handles purchase order endpoints.
type PurchaseHandler struct {
	*BaseHandler
	service *purchase.Service
}

// NewPurchaseHandler creates a new purchase order handler.
func NewPurchaseHandler(base *BaseHandler, service *purchase.Service) *PurchaseHandler {
	return &PurchaseHandler{BaseHandler: base, service: service}
}

// Create handles POST /purchase-orders
func (h *PurchaseHandler) Create(c *gin.Context) {
	var order purchase.Order
	if !h.BindJSON(c, &order) {
		return
	}

	if err := h.service.Create(c.Request.Context(), &order); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, &order)
}

// Get handles GET /purchase-orders/:id
func (h *PurchaseHandler) Get(c *gin.Context) {
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

// Update handles PUT /purchase-orders/:id
func (h *PurchaseHandler) Update(c *gin.Context) {
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

// UpdateStatus handles POST /purchase-orders/:id/status
func (h *PurchaseHandler) UpdateStatus(c *gin.Context) {
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

// Receive handles POST /purchase-orders/:id/receive
func (h *PurchaseHandler) Receive(c *gin.Context) {
	orderID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.ReceiveOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.Receive(c.Request.Context(), orderID, req.UnitID, req.ReceiptLines())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, order)
}

// List handles GET /purchase-orders
func (h *PurchaseHandler) List(c *gin.Context) {
	filter := purchase.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
		Status: h.StringQuery(c, "status"),
	}

	var ok bool
	if filter.SupplierID, ok = h.ParseIDQuery(c, "supplierId"); !ok {
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
