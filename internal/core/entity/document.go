package entity

import (
	"context"
	"time"

	"atelier/internal/core/apperror"
)

// Document is the base type for business transactions.
// Examples: PurchaseOrder, SalesOrder, StockTransfer, Return.
type Document struct {
	BaseDocument

	// Number is the document number (auto-generated, unique per type)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Status is the lifecycle state; allowed values depend on document type
	Status string `db:"status" json:"status"`

	// Notes is an optional user comment
	Notes string `db:"notes" json:"notes,omitempty"`
}

// NewDocument creates a new Document with a generated ID and the given initial status.
func NewDocument(status string) Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
		Status:       status,
	}
}

// Validate implements Validatable.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	if d.Status == "" {
		return apperror.NewValidation("status is required").
			WithDetail("field", "status")
	}
	return nil
}

// GuardStatus rejects a transition unless the document is in one of the
// allowed current states. entity names the document type for the error.
func (d *Document) GuardStatus(entity, attempted string, allowed ...string) error {
	for _, s := range allowed {
		if d.Status == s {
			return nil
		}
	}
	return apperror.NewInvalidTransition(entity, d.Status, attempted)
}

// SetStatus applies a new status and touches the audit fields.
func (d *Document) SetStatus(status string) {
	d.Status = status
	d.Touch()
}
