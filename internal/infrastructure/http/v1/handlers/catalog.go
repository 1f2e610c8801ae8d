// Package handlers provides HTTP request handlers.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"atelier/internal/core/apperror"
	"atelier/internal/core/entity"
	"atelier/internal/core/id"
	"atelier/internal/domain"
	domainFilter "atelier/internal/domain/filter"
	"atelier/internal/infrastructure/http/v1/dto"
)

// CatalogEntity is the handler-side constraint: a validatable entity whose
// ID can be forced to the path parameter after binding.
type CatalogEntity interface {
	entity.Validatable
	SetID(id.ID)
}

// CatalogHandler provides generic HTTP handlers for catalog entities.
// Requests bind straight into the domain model; service-level validation
// rejects anything the JSON layer lets through.
type CatalogHandler[T CatalogEntity] struct {
	*BaseHandler
	service    *domain.CatalogService[T]
	entityName string
	newFn      func() T
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler[T CatalogEntity](
	base *BaseHandler,
	service *domain.CatalogService[T],
	entityName string,
	newFn func() T,
) *CatalogHandler[T] {
	return &CatalogHandler[T]{
		BaseHandler: base,
		service:     service,
		entityName:  entityName,
		newFn:       newFn,
	}
}

// List handles GET /{entity} with filtering and pagination.
func (h *CatalogHandler[T]) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter, ok := h.parseListFilter(c)
	if !ok {
		return
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

func (h *CatalogHandler[T]) parseListFilter(c *gin.Context) (domain.ListFilter, bool) {
	filter := domain.DefaultListFilter()
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", filter.Limit)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", filter.OrderBy)
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	if filterJSON := c.Query("filter"); filterJSON != "" {
		var advFilters []domainFilter.Item
		if err := json.Unmarshal([]byte(filterJSON), &advFilters); err != nil {
			h.Error(c, apperror.NewValidation("invalid filter format (json expected)"))
			return filter, false
		}
		filter.AdvancedFilters = advFilters
	}

	return filter, true
}

// Get handles GET /{entity}/:id.
func (h *CatalogHandler[T]) Get(c *gin.Context) {
	entityID, ok := h.ParseID(c)
	if !ok {
		return
	}

	item, err := h.service.GetByID(c.Request.Context(), entityID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// GetByCode handles GET /{entity}/code/:code.
func (h *CatalogHandler[T]) GetByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		h.Error(c, apperror.NewValidation("code is required"))
		return
	}

	item, err := h.service.GetByCode(c.Request.Context(), code)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// Create handles POST /{entity}.
func (h *CatalogHandler[T]) Create(c *gin.Context) {
	item := h.newFn()
	if !h.BindJSON(c, item) {
		return
	}

	if err := h.service.Create(c.Request.Context(), item); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// Update handles PUT /{entity}/:id. The request body is applied on top of
// the stored entity, so omitted fields keep their current values.
func (h *CatalogHandler[T]) Update(c *gin.Context) {
	ctx := c.Request.Context()

	entityID, ok := h.ParseID(c)
	if !ok {
		return
	}

	existing, err := h.service.GetByID(ctx, entityID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if !h.BindJSON(c, existing) {
		return
	}
	existing.SetID(entityID)

	if err := h.service.Update(ctx, existing); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, existing)
}

// Delete handles DELETE /{entity}/:id (soft delete).
func (h *CatalogHandler[T]) Delete(c *gin.Context) {
	entityID, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), entityID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// SetDeletionMark handles POST /{entity}/:id/deletion-mark.
func (h *CatalogHandler[T]) SetDeletionMark(c *gin.Context) {
	entityID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.SetDeletionMarkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.SetDeletionMark(c.Request.Context(), entityID, req.Marked); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "deletion mark updated")
}
