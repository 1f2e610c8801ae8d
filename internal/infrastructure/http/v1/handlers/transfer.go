package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"atelier/internal/domain/transfers"
	"atelier/internal/infrastructure/http/v1/dto"
)

// TransferHandler handles inter-unit transfer endpoints.
type TransferHandler struct {
	*BaseHandler
	service *transfers.Service
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(base *BaseHandler, service *transfers.Service) *TransferHandler {
	return &TransferHandler{BaseHandler: base, service: service}
}

// Create handles POST /transfers
func (h *TransferHandler) Create(c *gin.Context) {
	var t transfers.Transfer
	if !h.BindJSON(c, &t) {
		return
	}

	if err := h.service.Create(c.Request.Context(), &t); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, &t)
}

// Get handles GET /transfers/:id
func (h *TransferHandler) Get(c *gin.Context) {
	transferID, ok := h.ParseID(c)
	if !ok {
		return
	}

	t, err := h.service.GetByID(c.Request.Context(), transferID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, t)
}

// Approve handles POST /transfers/:id/approve
func (h *TransferHandler) Approve(c *gin.Context) {
	transferID, ok := h.ParseID(c)
	if !ok {
		return
	}

	t, err := h.service.Approve(c.Request.Context(), transferID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, t)
}

// Cancel handles POST /transfers/:id/cancel
func (h *TransferHandler) Cancel(c *gin.Context) {
	transferID, ok := h.ParseID(c)
	if !ok {
		return
	}

	t, err := h.service.Cancel(c.Request.Context(), transferID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, t)
}

// Ship handles POST /transfers/:id/ship
func (h *TransferHandler) Ship(c *gin.Context) {
	transferID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.ShipTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	t, err := h.service.Ship(c.Request.Context(), transferID, req.ShipLines())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, t)
}

// Receive handles POST /transfers/:id/receive
func (h *TransferHandler) Receive(c *gin.Context) {
	transferID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.ReceiveTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	t, err := h.service.Receive(c.Request.Context(), transferID, req.ReceiveLines())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, t)
}

// List handles GET /transfers
func (h *TransferHandler) List(c *gin.Context) {
	filter := transfers.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
		Status: h.StringQuery(c, "status"),
	}

	var ok bool
	if filter.FromUnitID, ok = h.ParseIDQuery(c, "fromUnitId"); !ok {
		return
	}
	if filter.ToUnitID, ok = h.ParseIDQuery(c, "toUnitId"); !ok {
		return
	}
	if filter.FromDate, ok = h.ParseDateQuery(c, "from"); !ok {
		return
	}
	if filter.ToDate, ok = h.ParseDateQuery(c, "to"); !ok {
		return
	}

	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}
