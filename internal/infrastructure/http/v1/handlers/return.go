package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"atelier/internal/domain/returns"
	"atelier/internal/infrastructure/http/v1/dto"
)

// ReturnHandler handles customer return endpoints.
type ReturnHandler struct {
	*BaseHandler
	service *returns.Service
}

// NewReturnHandler creates a new return handler.
func NewReturnHandler(base *BaseHandler, service *returns.Service) *ReturnHandler {
	return &ReturnHandler{BaseHandler: base, service: service}
}

// Create handles POST /returns
func (h *ReturnHandler) Create(c *gin.Context) {
	var r returns.Return
	if !h.BindJSON(c, &r) {
		return
	}

	if err := h.service.Create(c.Request.Context(), &r); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, &r)
}

// Get handles GET /returns/:id
func (h *ReturnHandler) Get(c *gin.Context) {
	returnID, ok := h.ParseID(c)
	if !ok {
		return
	}

	r, err := h.service.GetByID(c.Request.Context(), returnID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, r)
}

// Approve handles POST /returns/:id/approve
func (h *ReturnHandler) Approve(c *gin.Context) {
	returnID, ok := h.ParseID(c)
	if !ok {
		return
	}

	r, err := h.service.Approve(c.Request.Context(), returnID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, r)
}

// Reject handles POST /returns/:id/reject
func (h *ReturnHandler) Reject(c *gin.Context) {
	returnID, ok := h.ParseID(c)
	if !ok {
		return
	}

	r, err := h.service.Reject(c.Request.Context(), returnID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, r)
}

// Process handles POST /returns/:id/process
// Settles an approved return: optional stock reinstatement plus refund.
func (h *ReturnHandler) Process(c *gin.Context) {
	returnID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.ProcessReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Process(c.Request.Context(), returnID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// List handles GET /returns
func (h *ReturnHandler) List(c *gin.Context) {
	filter := returns.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
		Status: h.StringQuery(c, "status"),
	}

	var ok bool
	if filter.CustomerID, ok = h.ParseIDQuery(c, "customerId"); !ok {
		return
	}
	if filter.FromDate, ok = h.ParseDateQuery(c, "from"); !ok {
		return
	}
	if filter.ToDate, ok = h.ParseDateQuery(c, "to"); !ok {
		return
	}
	if v := c.Query("type"); v != "" {
		t := returns.ReturnType(v)
		filter.Type = &t
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
