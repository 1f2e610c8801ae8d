package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"atelier/internal/core/apperror"
	"atelier/internal/domain"
	"atelier/internal/domain/catalogs/product"
	"atelier/internal/infrastructure/http/v1/dto"
)

// maxImageSize caps uploaded product images at 5 MiB.
const maxImageSize = 5 << 20

// ProductHandler handles product endpoints beyond generic catalog CRUD:
// barcode lookup, low stock listing, image upload and variants.
type ProductHandler struct {
	*CatalogHandler[*product.Product]
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{
		CatalogHandler: NewCatalogHandler(base, service.CatalogService, "product",
			func() *product.Product { return &product.Product{} }),
		service: service,
	}
}

// FindByBarcode handles GET /products/barcode/:barcode
func (h *ProductHandler) FindByBarcode(c *gin.Context) {
	barcode := c.Param("barcode")
	if barcode == "" {
		h.Error(c, apperror.NewValidation("barcode is required"))
		return
	}

	p, err := h.service.FindByBarcode(c.Request.Context(), barcode)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// LowStock handles GET /products/low-stock
func (h *ProductHandler) LowStock(c *gin.Context) {
	filter := domain.DefaultListFilter()
	filter.Limit = h.ParseIntQuery(c, "limit", filter.Limit)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)

	result, err := h.service.FindLowStock(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// UploadImage handles POST /products/:id/image (multipart form, field "image").
func (h *ProductHandler) UploadImage(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		h.Error(c, apperror.NewValidation("image file is required"))
		return
	}
	if fileHeader.Size > maxImageSize {
		h.Error(c, apperror.NewValidation("image exceeds maximum size of 5 MiB"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.Error(c, apperror.NewValidation("cannot read image file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		h.Error(c, apperror.NewInternal(fmt.Errorf("read image: %w", err)))
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := h.service.UploadImage(c.Request.Context(), productID, data, contentType)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"imageUrl": url})
}

// ListVariants handles GET /products/:id/variants
func (h *ProductHandler) ListVariants(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}

	variants, err := h.service.ListVariants(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": variants})
}

// CreateVariant handles POST /products/:id/variants
func (h *ProductHandler) CreateVariant(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var v product.Variant
	if !h.BindJSON(c, &v) {
		return
	}
	v.ProductID = productID

	if err := h.service.CreateVariant(c.Request.Context(), &v); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, &v)
}

// UpdateVariant handles PUT /products/:id/variants/:variantId
func (h *ProductHandler) UpdateVariant(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}

	variantID, err := parseParamID(c, "variantId")
	if err != nil {
		h.Error(c, err)
		return
	}

	var v product.Variant
	if !h.BindJSON(c, &v) {
		return
	}
	v.ID = variantID
	v.ProductID = productID

	if err := h.service.UpdateVariant(c.Request.Context(), &v); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, &v)
}

// DeleteVariant handles DELETE /products/:id/variants/:variantId
func (h *ProductHandler) DeleteVariant(c *gin.Context) {
	if _, ok := h.ParseID(c); !ok {
		return
	}

	variantID, err := parseParamID(c, "variantId")
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.DeleteVariant(c.Request.Context(), variantID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}
