package product

import (
	"context"

	"atelier/internal/core/id"
	"atelier/internal/domain"
)

// Repository defines data access for products.
type Repository interface {
	domain.CatalogRepository[*Product]

	// FindByBarcode retrieves a product by barcode.
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)

	// FindLowStock retrieves products whose consolidated stock is below min_stock.
	FindLowStock(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error)

	// SetImageURL stores the uploaded image location.
	SetImageURL(ctx context.Context, productID id.ID, url string) error
}

// VariantRepository defines data access for product variants.
type VariantRepository interface {
	Create(ctx context.Context, v *Variant) error
	GetByID(ctx context.Context, variantID id.ID) (*Variant, error)
	GetBySKU(ctx context.Context, sku string) (*Variant, error)
	Update(ctx context.Context, v *Variant) error
	ListByProduct(ctx context.Context, productID id.ID) ([]*Variant, error)
	SetDeletionMark(ctx context.Context, variantID id.ID, marked bool) error
}
