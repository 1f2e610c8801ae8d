// Package supplier provides the Supplier catalog.
package supplier

import (
	"context"

	"atelier/internal/core/apperror"
	"atelier/internal/core/entity"
)

// Tier classifies suppliers for pricing rule conditions.
type Tier string

const (
	TierStandard  Tier = "standard"
	TierPreferred Tier = "preferred"
	TierPremium   Tier = "premium"
)

// Supplier represents a goods supplier.
type Supplier struct {
	entity.Catalog

	// Document is the supplier tax/registration number
	Document *string `db:"document" json:"document,omitempty"`

	Tier Tier `db:"tier" json:"tier"`

	ContactName *string `db:"contact_name" json:"contactName,omitempty"`
	Email       *string `db:"email" json:"email,omitempty"`
	Phone       *string `db:"phone" json:"phone,omitempty"`
	Address     *string `db:"address" json:"address,omitempty"`

	// PaymentTermDays is the default payable due offset
	PaymentTermDays int `db:"payment_term_days" json:"paymentTermDays"`
}

// NewSupplier creates a new Supplier.
func NewSupplier(code, name string) *Supplier {
	return &Supplier{
		Catalog: entity.NewCatalog(code, name),
		Tier:    TierStandard,
	}
}

// Validate implements entity.Validatable.
func (s *Supplier) Validate(ctx context.Context) error {
	if err := s.Catalog.Validate(ctx); err != nil {
		return err
	}
	switch s.Tier {
	case TierStandard, TierPreferred, TierPremium:
	default:
		return apperror.NewValidation("invalid supplier tier").
			WithDetail("field", "tier").
			WithDetail("value", string(s.Tier))
	}
	if s.PaymentTermDays < 0 {
		return apperror.NewValidation("payment term cannot be negative").
			WithDetail("field", "paymentTermDays")
	}
	return nil
}
