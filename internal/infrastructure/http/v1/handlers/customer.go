package handlers

import (
	"github.com/gin-gonic/gin"

	"atelier/internal/core/apperror"
	"atelier/internal/domain/catalogs/customer"
)

// CustomerHandler handles customer endpoints beyond generic catalog CRUD.
type CustomerHandler struct {
	*CatalogHandler[*customer.Customer]
	service *customer.Service
}

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(base *BaseHandler, service *customer.Service) *CustomerHandler {
	return &CustomerHandler{
		CatalogHandler: NewCatalogHandler(base, service.CatalogService, "customer",
			func() *customer.Customer { return &customer.Customer{} }),
		service: service,
	}
}

// FindByDocument handles GET /customers/document/:document
// Looks a customer up by the fiscal document number (CPF or CNPJ).
func (h *CustomerHandler) FindByDocument(c *gin.Context) {
	document := c.Param("document")
	if document == "" {
		h.Error(c, apperror.NewValidation("document is required"))
		return
	}

	cust, err := h.service.FindByDocument(c.Request.Context(), document)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, cust)
}
