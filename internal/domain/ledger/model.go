// Package ledger provides the stock movement ledger: the append-only record
// of every quantity change, per-unit balances and threshold alerts.
package ledger

import (
	"time"

	"atelier/internal/core/id"
	"atelier/internal/core/types"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// MovementReason records why the movement happened.
type MovementReason string

const (
	ReasonPurchase   MovementReason = "purchase"
	ReasonSale       MovementReason = "sale"
	ReasonTransfer   MovementReason = "transfer"
	ReasonReturn     MovementReason = "return"
	ReasonInventory  MovementReason = "inventory"
	ReasonDamage     MovementReason = "damage"
	ReasonManual     MovementReason = "manual"
)

// Movement is one immutable ledger entry. PreviousStock and NewStock capture
// the consolidated product balance around the movement so history can be
// audited without replaying the ledger.
type Movement struct {
	ID        id.ID  `db:"id" json:"id"`
	ProductID id.ID  `db:"product_id" json:"productId"`
	VariantID *id.ID `db:"variant_id" json:"variantId,omitempty"`
	UnitID    *id.ID `db:"unit_id" json:"unitId,omitempty"`

	Type   MovementType   `db:"type" json:"type"`
	Reason MovementReason `db:"reason" json:"reason"`

	// Quantity is always positive; Type carries the direction.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	PreviousStock types.Quantity `db:"previous_stock" json:"previousStock"`
	NewStock      types.Quantity `db:"new_stock" json:"newStock"`

	UnitCost  *types.Money `db:"unit_cost" json:"unitCost,omitempty"`
	TotalCost *types.Money `db:"total_cost" json:"totalCost,omitempty"`

	// DocumentID links the movement to the originating document, if any
	DocumentID *id.ID `db:"document_id" json:"documentId,omitempty"`

	Notes  string `db:"notes" json:"notes,omitempty"`
	UserID string `db:"user_id" json:"userId,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// UnitStock is the per-unit balance for a product (optionally per variant).
type UnitStock struct {
	UnitID    id.ID  `db:"unit_id" json:"unitId"`
	ProductID id.ID  `db:"product_id" json:"productId"`
	VariantID *id.ID `db:"variant_id" json:"variantId,omitempty"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	LastMovementAt *time.Time `db:"last_movement_at" json:"lastMovementAt,omitempty"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// AlertType classifies stock alerts.
type AlertType string

const (
	AlertLowStock   AlertType = "LOW_STOCK"
	AlertHighStock  AlertType = "HIGH_STOCK"
	AlertOutOfStock AlertType = "OUT_OF_STOCK"
)

// Alert is raised when a movement crosses a product threshold.
type Alert struct {
	ID        id.ID  `db:"id" json:"id"`
	ProductID id.ID  `db:"product_id" json:"productId"`
	UnitID    *id.ID `db:"unit_id" json:"unitId,omitempty"`

	Type AlertType `db:"type" json:"type"`

	CurrentStock types.Quantity `db:"current_stock" json:"currentStock"`
	Threshold    types.Quantity `db:"threshold" json:"threshold"`

	IsRead     bool `db:"is_read" json:"isRead"`
	IsNotified bool `db:"is_notified" json:"isNotified"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// MovementFilter narrows movement history queries.
type MovementFilter struct {
	ProductID *id.ID
	UnitID    *id.ID
	Type      *MovementType
	Reason    *MovementReason
	FromDate  *time.Time
	ToDate    *time.Time
	Limit     int
	Offset    int
}

// AlertFilter narrows alert queries.
type AlertFilter struct {
	ProductID  *id.ID
	UnitID     *id.ID
	Type       *AlertType
	UnreadOnly bool

	// UnnotifiedOnly restricts to alerts whose delivery has not succeeded yet
	UnnotifiedOnly bool
	Limit      int
	Offset     int
}
