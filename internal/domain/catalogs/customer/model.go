// Package customer provides the Customer catalog.
package customer

import (
	"context"
	"strings"

	"atelier/internal/core/apperror"
	"atelier/internal/core/entity"
)

// Customer represents a buyer, either a person or a company.
type Customer struct {
	entity.Catalog

	// Document is the customer tax id (CPF/CNPJ or equivalent)
	Document *string `db:"document" json:"document,omitempty"`

	Email *string `db:"email" json:"email,omitempty"`
	Phone *string `db:"phone" json:"phone,omitempty"`

	Address *string `db:"address" json:"address,omitempty"`
	City    *string `db:"city" json:"city,omitempty"`
	State   *string `db:"state" json:"state,omitempty"`
	ZipCode *string `db:"zip_code" json:"zipCode,omitempty"`

	// Notes free-form remarks about the customer
	Notes *string `db:"notes" json:"notes,omitempty"`
}

// NewCustomer creates a new Customer.
func NewCustomer(code, name string) *Customer {
	return &Customer{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable.
func (c *Customer) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}
	if c.Email != nil && *c.Email != "" && !strings.Contains(*c.Email, "@") {
		return apperror.NewValidation("invalid email").
			WithDetail("field", "email")
	}
	return nil
}
