package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/core/types"
	"atelier/internal/domain"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memRepo struct {
	rules []*Rule
}

func (r *memRepo) Create(ctx context.Context, rule *Rule) error {
	r.rules = append(r.rules, rule)
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, ruleID id.ID) (*Rule, error) {
	for _, rule := range r.rules {
		if rule.ID == ruleID {
			return rule, nil
		}
	}
	return nil, apperror.NewNotFound("pricing rule", ruleID.String())
}

func (r *memRepo) GetByCode(ctx context.Context, code string) (*Rule, error) {
	for _, rule := range r.rules {
		if rule.Code == code {
			return rule, nil
		}
	}
	return nil, apperror.NewNotFound("pricing rule", code)
}

func (r *memRepo) Update(ctx context.Context, rule *Rule) error { return nil }

func (r *memRepo) SetDeletionMark(ctx context.Context, ruleID id.ID, marked bool) error {
	return nil
}

func (r *memRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*Rule], error) {
	return domain.ListResult[*Rule]{Items: r.rules, TotalCount: int64(len(r.rules))}, nil
}

func (r *memRepo) Exists(ctx context.Context, ruleID id.ID) (bool, error) { return true, nil }

func (r *memRepo) ExistsByCode(ctx context.Context, code string) (bool, error) { return false, nil }

func (r *memRepo) ListActive(ctx context.Context) ([]*Rule, error) { return r.rules, nil }

func TestCalculate_NoFees(t *testing.T) {
	quote, err := Calculate(CalculateInput{
		BaseCost:     types.MustMoney("50"),
		TargetMargin: types.MustMoney("30"),
	})
	require.NoError(t, err)

	// 50 / 0.70 = 71.43
	assert.True(t, quote.SuggestedPrice.Equal(types.MustMoney("71.43")),
		"price = %s", quote.SuggestedPrice)
	assert.True(t, quote.TotalFees.IsZero())
}

func TestSimulate_FeesAndMargin(t *testing.T) {
	sim, err := Simulate(SimulateInput{
		SalePrice: types.MustMoney("100"),
		BaseCost:  types.MustMoney("50"),
		Fees: FeeRates{
			Tax:        types.MustMoney("10"),
			Commission: types.MustMoney("5"),
		},
	})
	require.NoError(t, err)

	assert.True(t, sim.FeeAmount.Equal(types.MustMoney("15")), "fees = %s", sim.FeeAmount)
	assert.True(t, sim.Margin.Equal(types.MustMoney("35")), "margin = %s", sim.Margin)
	assert.True(t, sim.MarginPercent.Equal(types.MustMoney("35")), "marginPercent = %s", sim.MarginPercent)
}

func TestCalculate_MarginRoundTrip(t *testing.T) {
	cases := []struct {
		name         string
		baseCost     string
		fees         FeeRates
		targetMargin string
	}{
		{"no fees", "50", FeeRates{}, "30"},
		{"tax and freight", "120", FeeRates{Tax: types.MustMoney("12"), Freight: types.MustMoney("3.5")}, "25"},
		{"full fee stack", "89.90", FeeRates{
			Tax:         types.MustMoney("8.65"),
			Freight:     types.MustMoney("2"),
			Commission:  types.MustMoney("4.5"),
			Marketplace: types.MustMoney("16"),
			Acquirer:    types.MustMoney("3.19"),
		}, "20"},
		{"thin margin", "10", FeeRates{Commission: types.MustMoney("5")}, "2"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := Calculate(CalculateInput{
				BaseCost:     types.MustMoney(tc.baseCost),
				Fees:         tc.fees,
				TargetMargin: types.MustMoney(tc.targetMargin),
			})
			require.NoError(t, err)

			// Selling at the suggested price must realize the target margin
			// within rounding tolerance.
			sim, err := Simulate(SimulateInput{
				SalePrice: quote.SuggestedPrice,
				BaseCost:  types.MustMoney(tc.baseCost),
				Fees:      tc.fees,
			})
			require.NoError(t, err)

			diff := sim.MarginPercent.Sub(types.MustMoney(tc.targetMargin)).Abs()
			assert.True(t, diff.LessThanOrEqual(types.MustMoney("0.05")),
				"realized %s vs target %s", sim.MarginPercent, tc.targetMargin)
		})
	}
}

func TestCalculate_Rejections(t *testing.T) {
	_, err := Calculate(CalculateInput{BaseCost: types.Zero(), TargetMargin: types.MustMoney("30")})
	require.Error(t, err)

	_, err = Calculate(CalculateInput{
		BaseCost:     types.MustMoney("50"),
		Fees:         FeeRates{Marketplace: types.MustMoney("70")},
		TargetMargin: types.MustMoney("30"),
	})
	require.Error(t, err, "fees plus margin reaching 100% has no solution")

	_, err = Calculate(CalculateInput{
		BaseCost: types.MustMoney("50"),
		Fees:     FeeRates{Tax: types.MustMoney("-1")},
	})
	require.Error(t, err)

	_, err = Simulate(SimulateInput{SalePrice: types.Zero(), BaseCost: types.MustMoney("50")})
	require.Error(t, err)
}

func TestQuoteWithRules(t *testing.T) {
	bulk := NewRule("RG000001", "Footwear bulk")
	bulk.Condition = `category == "footwear" && quantity >= 10`
	bulk.Fees = FeeRates{Tax: types.MustMoney("10")}
	bulk.TargetMargin = types.MustMoney("15")
	bulk.Priority = 1

	fallback := NewRule("RG000002", "Default")
	fallback.Fees = FeeRates{Tax: types.MustMoney("10")}
	fallback.TargetMargin = types.MustMoney("40")
	fallback.Priority = 100

	repo := &memRepo{rules: []*Rule{bulk, fallback}}
	svc, err := NewService(repo, fakeTxManager{}, nil)
	require.NoError(t, err)

	ctx := context.Background()

	// Bulk footwear matches the conditional rule.
	quote, err := svc.QuoteWithRules(ctx, QuoteInput{
		BaseCost: types.MustMoney("100"),
		Context:  RuleContext{Category: "footwear", Quantity: 12},
	})
	require.NoError(t, err)
	require.NotNil(t, quote.RuleID)
	assert.Equal(t, bulk.ID.String(), *quote.RuleID)
	// 100 / (1 - 0.10 - 0.15) = 133.33
	assert.True(t, quote.SuggestedPrice.Equal(types.MustMoney("133.33")),
		"price = %s", quote.SuggestedPrice)

	// Small clothing order falls through to the unconditional rule.
	quote, err = svc.QuoteWithRules(ctx, QuoteInput{
		BaseCost: types.MustMoney("100"),
		Context:  RuleContext{Category: "clothing", Quantity: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, quote.RuleID)
	assert.Equal(t, fallback.ID.String(), *quote.RuleID)

	// No matching rule at all.
	repo.rules = []*Rule{bulk}
	_, err = svc.QuoteWithRules(ctx, QuoteInput{
		BaseCost: types.MustMoney("100"),
		Context:  RuleContext{Category: "clothing", Quantity: 1},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestRuleConditionValidation(t *testing.T) {
	repo := &memRepo{}
	svc, err := NewService(repo, fakeTxManager{}, nil)
	require.NoError(t, err)

	bad := NewRule("RG000009", "Broken")
	bad.Condition = `category ==` // malformed expression
	err = svc.Create(context.Background(), bad)
	require.Error(t, err)

	notBool := NewRule("RG000010", "Not boolean")
	notBool.Condition = `quantity + 1`
	err = svc.Create(context.Background(), notBool)
	require.Error(t, err)

	good := NewRule("RG000011", "Premium suppliers")
	good.Condition = `supplierTier == "premium"`
	good.Fees = FeeRates{Tax: types.MustMoney("10")}
	good.TargetMargin = types.MustMoney("30")
	require.NoError(t, svc.Create(context.Background(), good))
}
