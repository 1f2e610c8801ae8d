// Package pricing computes suggested sale prices and realized margins, and
// manages pricing rules that pick fee/margin presets per sale context.
package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"atelier/internal/core/apperror"
	"atelier/internal/core/entity"
	"atelier/internal/core/types"
)

var hundred = decimal.NewFromInt(100)

// FeeRates holds the percentage-of-price fees deducted from a sale.
// All values are percents (10 means 10%).
type FeeRates struct {
	Tax         types.Money `json:"tax"`
	Freight     types.Money `json:"freight"`
	Commission  types.Money `json:"commission"`
	Marketplace types.Money `json:"marketplace"`
	Acquirer    types.Money `json:"acquirer"`
}

// Total returns the combined fee percentage.
func (f FeeRates) Total() types.Money {
	return f.Tax.Add(f.Freight).Add(f.Commission).Add(f.Marketplace).Add(f.Acquirer)
}

func (f FeeRates) validate() error {
	for _, rate := range []struct {
		name  string
		value types.Money
	}{
		{"tax", f.Tax},
		{"freight", f.Freight},
		{"commission", f.Commission},
		{"marketplace", f.Marketplace},
		{"acquirer", f.Acquirer},
	} {
		if rate.value.IsNegative() {
			return apperror.NewValidation("fee rate cannot be negative").
				WithDetail("fee", rate.name)
		}
	}
	if f.Total().GreaterThanOrEqual(hundred) {
		return apperror.NewValidation("combined fee rates must stay below 100%")
	}
	return nil
}

// Rule is a pricing preset: fee rates plus a target margin, optionally
// restricted by a condition expression evaluated against the sale context
// (category, unitId, supplierTier, quantity). Lower priority wins.
type Rule struct {
	entity.Catalog

	Condition    string      `json:"condition" db:"condition"`
	Fees         FeeRates    `json:"fees" db:"fees"`
	TargetMargin types.Money `json:"targetMargin" db:"target_margin"`
	Priority     int         `json:"priority" db:"priority"`
}

// NewRule creates a pricing rule with defaults applied.
func NewRule(code, name string) *Rule {
	return &Rule{Catalog: entity.NewCatalog(code, name)}
}

// Validate implements entity.Validatable.
func (r *Rule) Validate(ctx context.Context) error {
	if r.Name == "" {
		return apperror.NewValidation("rule name is required")
	}
	if err := r.Fees.validate(); err != nil {
		return err
	}
	if r.TargetMargin.IsNegative() {
		return apperror.NewValidation("target margin cannot be negative")
	}
	if r.Fees.Total().Add(r.TargetMargin).GreaterThanOrEqual(hundred) {
		return apperror.NewValidation("fees plus target margin must stay below 100%")
	}
	return nil
}

// RuleContext is the sale context a rule condition is evaluated against.
type RuleContext struct {
	Category     string `json:"category"`
	UnitID       string `json:"unitId"`
	SupplierTier string `json:"supplierTier"`
	Quantity     int64  `json:"quantity"`
}

// Quote is the result of a price calculation.
type Quote struct {
	SuggestedPrice types.Money `json:"suggestedPrice"`
	BaseCost       types.Money `json:"baseCost"`
	TotalFees      types.Money `json:"totalFees"`
	FeeAmount      types.Money `json:"feeAmount"`
	Margin         types.Money `json:"margin"`
	MarginPercent  types.Money `json:"marginPercent"`
	RuleID         *string     `json:"ruleId,omitempty"`
}

// Simulation is the result of a margin simulation for a given sale price.
type Simulation struct {
	SalePrice     types.Money `json:"salePrice"`
	BaseCost      types.Money `json:"baseCost"`
	TotalFees     types.Money `json:"totalFees"`
	FeeAmount     types.Money `json:"feeAmount"`
	Margin        types.Money `json:"margin"`
	MarginPercent types.Money `json:"marginPercent"`
}
