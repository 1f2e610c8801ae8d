package pricing

import (
	"atelier/internal/core/apperror"
	"atelier/internal/core/types"
)

// CalculateInput is the input for a suggested-price calculation.
type CalculateInput struct {
	BaseCost     types.Money `json:"baseCost"`
	Fees         FeeRates    `json:"fees"`
	TargetMargin types.Money `json:"targetMargin"`
}

// SimulateInput is the input for a realized-margin simulation.
type SimulateInput struct {
	SalePrice types.Money `json:"salePrice"`
	BaseCost  types.Money `json:"baseCost"`
	Fees      FeeRates    `json:"fees"`
}

// Calculate solves for the sale price that covers baseCost after deducting
// all percentage-of-price fees and the target margin:
//
//	price = baseCost / (1 - totalFees - targetMargin)
func Calculate(in CalculateInput) (Quote, error) {
	if !in.BaseCost.IsPositive() {
		return Quote{}, apperror.NewValidation("base cost must be positive")
	}
	if err := in.Fees.validate(); err != nil {
		return Quote{}, err
	}
	if in.TargetMargin.IsNegative() {
		return Quote{}, apperror.NewValidation("target margin cannot be negative")
	}

	totalFees := in.Fees.Total()
	denominator := hundred.Sub(totalFees).Sub(in.TargetMargin)
	if !denominator.IsPositive() {
		return Quote{}, apperror.NewValidation("fees plus target margin must stay below 100%").
			WithDetail("totalFees", totalFees.String()).
			WithDetail("targetMargin", in.TargetMargin.String())
	}

	price := in.BaseCost.Mul(hundred).Div(denominator).Round(2)
	feeAmount := price.Mul(totalFees).Div(hundred).Round(2)
	margin := price.Sub(feeAmount).Sub(in.BaseCost)

	return Quote{
		SuggestedPrice: price,
		BaseCost:       in.BaseCost,
		TotalFees:      totalFees,
		FeeAmount:      feeAmount,
		Margin:         margin,
		MarginPercent:  marginPercent(margin, price),
	}, nil
}

// Simulate inverts Calculate: given an actual sale price, it reports the
// realized margin after fees.
func Simulate(in SimulateInput) (Simulation, error) {
	if !in.SalePrice.IsPositive() {
		return Simulation{}, apperror.NewValidation("sale price must be positive")
	}
	if in.BaseCost.IsNegative() {
		return Simulation{}, apperror.NewValidation("base cost cannot be negative")
	}
	if err := in.Fees.validate(); err != nil {
		return Simulation{}, err
	}

	totalFees := in.Fees.Total()
	feeAmount := in.SalePrice.Mul(totalFees).Div(hundred).Round(2)
	margin := in.SalePrice.Sub(feeAmount).Sub(in.BaseCost)

	return Simulation{
		SalePrice:     in.SalePrice,
		BaseCost:      in.BaseCost,
		TotalFees:     totalFees,
		FeeAmount:     feeAmount,
		Margin:        margin,
		MarginPercent: marginPercent(margin, in.SalePrice),
	}, nil
}

func marginPercent(margin, price types.Money) types.Money {
	if !price.IsPositive() {
		return types.Zero()
	}
	return margin.Div(price).Mul(hundred).Round(2)
}
