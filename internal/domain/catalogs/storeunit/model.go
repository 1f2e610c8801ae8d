// Package storeunit provides the StoreUnit catalog: the physical or virtual
// locations that hold stock (stores, warehouses, ecommerce).
package storeunit

import (
	"context"

	"atelier/internal/core/apperror"
	"atelier/internal/core/entity"
)

// UnitType classifies a store unit.
type UnitType string

const (
	TypeStore     UnitType = "store"
	TypeWarehouse UnitType = "warehouse"
	TypeEcommerce UnitType = "ecommerce"
)

// StoreUnit represents a stock-holding location.
type StoreUnit struct {
	entity.Catalog

	Type UnitType `db:"type" json:"type"`

	Address *string `db:"address" json:"address,omitempty"`
	City    *string `db:"city" json:"city,omitempty"`

	// ManagerName is the responsible person
	ManagerName *string `db:"manager_name" json:"managerName,omitempty"`
	Phone       *string `db:"phone" json:"phone,omitempty"`
}

// NewStoreUnit creates a new StoreUnit.
func NewStoreUnit(code, name string, unitType UnitType) *StoreUnit {
	return &StoreUnit{
		Catalog: entity.NewCatalog(code, name),
		Type:    unitType,
	}
}

// Validate implements entity.Validatable.
func (u *StoreUnit) Validate(ctx context.Context) error {
	if err := u.Catalog.Validate(ctx); err != nil {
		return err
	}
	switch u.Type {
	case TypeStore, TypeWarehouse, TypeEcommerce:
	default:
		return apperror.NewValidation("invalid store unit type").
			WithDetail("field", "type").
			WithDetail("value", string(u.Type))
	}
	return nil
}
