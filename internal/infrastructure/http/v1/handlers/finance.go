package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"atelier/internal/domain/finance"
	"atelier/internal/infrastructure/http/v1/dto"
)

// FinanceHandler handles payables, receivables and cash flow endpoints.
type FinanceHandler struct {
	*BaseHandler
	service *finance.Service
}

// NewFinanceHandler creates a new finance handler.
func NewFinanceHandler(base *BaseHandler, service *finance.Service) *FinanceHandler {
	return &FinanceHandler{BaseHandler: base, service: service}
}

// CreateAccount handles POST /finance/accounts
func (h *FinanceHandler) CreateAccount(c *gin.Context) {
	var account finance.Account
	if !h.BindJSON(c, &account) {
		return
	}

	if err := h.service.CreateAccount(c.Request.Context(), &account); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, &account)
}

// GetAccount handles GET /finance/accounts/:id
func (h *FinanceHandler) GetAccount(c *gin.Context) {
	accountID, ok := h.ParseID(c)
	if !ok {
		return
	}

	account, err := h.service.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, account)
}

// RegisterPayment handles POST /finance/accounts/:id/pay
func (h *FinanceHandler) RegisterPayment(c *gin.Context) {
	accountID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.RegisterPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	account, err := h.service.RegisterPayment(c.Request.Context(), accountID, req.Amount)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, account)
}

// CancelAccount handles POST /finance/accounts/:id/cancel
func (h *FinanceHandler) CancelAccount(c *gin.Context) {
	accountID, ok := h.ParseID(c)
	if !ok {
		return
	}

	account, err := h.service.CancelAccount(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, account)
}

// ListAccounts handles GET /finance/accounts
func (h *FinanceHandler) ListAccounts(c *gin.Context) {
	filter := finance.AccountFilter{
		Limit:    h.ParseIntQuery(c, "limit", 50),
		Offset:   h.ParseIntQuery(c, "offset", 0),
		Status:   h.StringQuery(c, "status"),
		Category: h.StringQuery(c, "category"),
	}

	var ok bool
	if filter.PartyID, ok = h.ParseIDQuery(c, "partyId"); !ok {
		return
	}
	if filter.DueFrom, ok = h.ParseDateQuery(c, "dueFrom"); !ok {
		return
	}
	if filter.DueTo, ok = h.ParseDateQuery(c, "dueTo"); !ok {
		return
	}
	if v := c.Query("kind"); v != "" {
		kind := finance.AccountKind(v)
		filter.Kind = &kind
	}

	accounts, total, err := h.service.ListAccounts(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      accounts,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// CreateCashFlowEntry handles POST /finance/cash-flow
func (h *FinanceHandler) CreateCashFlowEntry(c *gin.Context) {
	var entry finance.CashFlowEntry
	if !h.BindJSON(c, &entry) {
		return
	}

	if err := h.service.CreateCashFlowEntry(c.Request.Context(), &entry); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, &entry)
}

// GetCashFlowEntry handles GET /finance/cash-flow/:id
func (h *FinanceHandler) GetCashFlowEntry(c *gin.Context) {
	entryID, ok := h.ParseID(c)
	if !ok {
		return
	}

	entry, err := h.service.GetCashFlowEntry(c.Request.Context(), entryID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, entry)
}

// UpdateCashFlowEntry handles PUT /finance/cash-flow/:id
func (h *FinanceHandler) UpdateCashFlowEntry(c *gin.Context) {
	ctx := c.Request.Context()

	entryID, ok := h.ParseID(c)
	if !ok {
		return
	}

	entry, err := h.service.GetCashFlowEntry(ctx, entryID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if !h.BindJSON(c, entry) {
		return
	}
	entry.ID = entryID

	if err := h.service.UpdateCashFlowEntry(ctx, entry); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, entry)
}

// DeleteCashFlowEntry handles DELETE /finance/cash-flow/:id
func (h *FinanceHandler) DeleteCashFlowEntry(c *gin.Context) {
	entryID, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteCashFlowEntry(c.Request.Context(), entryID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// ListCashFlowEntries handles GET /finance/cash-flow
func (h *FinanceHandler) ListCashFlowEntries(c *gin.Context) {
	filter := finance.CashFlowFilter{
		Limit:    h.ParseIntQuery(c, "limit", 50),
		Offset:   h.ParseIntQuery(c, "offset", 0),
		Category: h.StringQuery(c, "category"),
	}

	var ok bool
	if filter.UnitID, ok = h.ParseIDQuery(c, "unitId"); !ok {
		return
	}
	if filter.FromDate, ok = h.ParseDateQuery(c, "from"); !ok {
		return
	}
	if filter.ToDate, ok = h.ParseDateQuery(c, "to"); !ok {
		return
	}
	if v := c.Query("type"); v != "" {
		t := finance.CashFlowType(v)
		filter.Type = &t
	}

	entries, total, err := h.service.ListCashFlowEntries(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      entries,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}
