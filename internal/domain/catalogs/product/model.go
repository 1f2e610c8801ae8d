// Package product provides the Product catalog: the sellable items of the
// store along with their size/color variants.
package product

import (
	"context"

	"atelier/internal/core/apperror"
	"atelier/internal/core/entity"
	"atelier/internal/core/id"
	"atelier/internal/core/types"
)

// Category groups products for reporting and pricing rules.
type Category string

const (
	CategoryClothing    Category = "clothing"
	CategoryFootwear    Category = "footwear"
	CategoryAccessories Category = "accessories"
	CategoryOther       Category = "other"
)

// Product represents a sellable item.
type Product struct {
	entity.Catalog

	// Category groups the product for reports and pricing rules
	Category Category `db:"category" json:"category"`

	// Description is a detailed description
	Description *string `db:"description" json:"description,omitempty"`

	// CostPrice is the current acquisition cost per unit
	CostPrice types.Money `db:"cost_price" json:"costPrice"`

	// SalePrice is the current list price per unit
	SalePrice types.Money `db:"sale_price" json:"salePrice"`

	// CurrentStock is the consolidated on-hand quantity across all units.
	// Updated only by the stock ledger when movements are recorded.
	CurrentStock types.Quantity `db:"current_stock" json:"currentStock"`

	// MinStock triggers LOW_STOCK alerts when crossed downward
	MinStock types.Quantity `db:"min_stock" json:"minStock"`

	// MaxStock triggers HIGH_STOCK alerts when crossed upward (0 = unbounded)
	MaxStock types.Quantity `db:"max_stock" json:"maxStock"`

	// Barcode is the item barcode (EAN-13, etc.)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// ImageURL points to the stored product image
	ImageURL *string `db:"image_url" json:"imageUrl,omitempty"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(code, name string, category Category) *Product {
	return &Product{
		Catalog:   entity.NewCatalog(code, name),
		Category:  category,
		CostPrice: types.Zero(),
		SalePrice: types.Zero(),
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidCategory(p.Category) {
		return apperror.NewValidation("invalid product category").
			WithDetail("field", "category").
			WithDetail("value", string(p.Category))
	}

	if p.CostPrice.IsNegative() {
		return apperror.NewValidation("cost price cannot be negative").
			WithDetail("field", "costPrice")
	}

	if p.SalePrice.IsNegative() {
		return apperror.NewValidation("sale price cannot be negative").
			WithDetail("field", "salePrice")
	}

	if p.MinStock.IsNegative() || p.MaxStock.IsNegative() {
		return apperror.NewValidation("stock thresholds cannot be negative").
			WithDetail("field", "minStock")
	}

	if !p.MaxStock.IsZero() && p.MaxStock.Int64Scaled() < p.MinStock.Int64Scaled() {
		return apperror.NewValidation("max stock cannot be below min stock").
			WithDetail("field", "maxStock")
	}

	return nil
}

// IsLowStock reports whether consolidated stock is below the minimum.
func (p *Product) IsLowStock() bool {
	return !p.MinStock.IsZero() && p.CurrentStock.Int64Scaled() < p.MinStock.Int64Scaled()
}

// Variant represents a size/color variation of a product.
type Variant struct {
	entity.BaseEntity

	// ProductID references the parent product
	ProductID id.ID `db:"product_id" json:"productId"`

	// SKU is the variant stock keeping unit, unique per product
	SKU string `db:"sku" json:"sku"`

	// Size label (e.g. "M", "42")
	Size *string `db:"size" json:"size,omitempty"`

	// Color label
	Color *string `db:"color" json:"color,omitempty"`

	// PriceDelta is added to the product sale price for this variant
	PriceDelta types.Money `db:"price_delta" json:"priceDelta"`

	// Active marks the variant as orderable
	Active bool `db:"active" json:"active"`
}

// NewVariant creates a variant for a product.
func NewVariant(productID id.ID, sku string) *Variant {
	return &Variant{
		BaseEntity: entity.NewBaseEntity(),
		ProductID:  productID,
		SKU:        sku,
		PriceDelta: types.Zero(),
		Active:     true,
	}
}

// Validate implements entity.Validatable.
func (v *Variant) Validate(ctx context.Context) error {
	if id.IsNil(v.ProductID) {
		return apperror.NewValidation("variant requires a product").
			WithDetail("field", "productId")
	}
	if v.SKU == "" {
		return apperror.NewValidation("variant SKU is required").
			WithDetail("field", "sku")
	}
	return nil
}

func isValidCategory(c Category) bool {
	switch c {
	case CategoryClothing, CategoryFootwear, CategoryAccessories, CategoryOther:
		return true
	}
	return false
}
