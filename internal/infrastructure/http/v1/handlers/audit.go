package handlers

import (
	"github.com/gin-gonic/gin"

	"atelier/internal/infrastructure/http/v1/dto"
	"atelier/internal/infrastructure/storage/postgres"
)

// AuditHandler exposes the audit trail to administrators.
type AuditHandler struct {
	*BaseHandler
	store *postgres.AuditStore
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, store *postgres.AuditStore) *AuditHandler {
	return &AuditHandler{BaseHandler: base, store: store}
}

// List handles GET /audit (admin only)
func (h *AuditHandler) List(c *gin.Context) {
	filter := postgres.AuditFilter{
		EntityType: h.StringQuery(c, "entityType"),
		UserID:     h.StringQuery(c, "userId"),
		Limit:      h.ParseIntQuery(c, "limit", 50),
		Offset:     h.ParseIntQuery(c, "offset", 0),
	}

	var ok bool
	if filter.EntityID, ok = h.ParseIDQuery(c, "entityId"); !ok {
		return
	}
	if filter.FromDate, ok = h.ParseDateQuery(c, "from"); !ok {
		return
	}
	if filter.ToDate, ok = h.ParseDateQuery(c, "to"); !ok {
		return
	}
	if v := c.Query("action"); v != "" {
		action := postgres.AuditAction(v)
		filter.Action = &action
	}

	entries, total, err := h.store.ListEntries(c.Request.Context(), filter)
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
