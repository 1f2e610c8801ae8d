package entity

import (
	"context"

	"atelier/internal/core/apperror"
)

// Catalog is the base type for reference data.
// Examples: Product, Supplier, Customer, StoreUnit.
type Catalog struct {
	BaseEntity

	// Code is a human-readable identifier, unique per catalog
	Code string `db:"code" json:"code"`

	// Name is the display name
	Name string `db:"name" json:"name"`

	// Active toggles visibility in pickers without deleting history
	Active bool `db:"active" json:"active"`
}

// NewCatalog creates a new Catalog with a generated ID.
func NewCatalog(code, name string) Catalog {
	return Catalog{
		BaseEntity: NewBaseEntity(),
		Code:       code,
		Name:       name,
		Active:     true,
	}
}

// Validate implements Validatable.
func (c *Catalog) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	// Code may be auto-generated at creation, required by save time.
	return nil
}
