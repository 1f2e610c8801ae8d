package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"atelier/internal/domain/pricing"
	"atelier/internal/infrastructure/storage/postgres"
)

const pricingRuleTable = "cat_pricing_rules"

// PricingRuleRepo implements pricing.Repository.
type PricingRuleRepo struct {
	*BaseCatalogRepo[*pricing.Rule]
}

// NewPricingRuleRepo creates a new pricing rule repository.
func NewPricingRuleRepo(txManager *postgres.TxManager) *PricingRuleRepo {
	return &PricingRuleRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			pricingRuleTable,
			postgres.ExtractDBColumns[pricing.Rule](),
			func() *pricing.Rule { return &pricing.Rule{} },
		),
	}
}

// ListActive returns non-deleted active rules ordered by priority.
func (r *PricingRuleRepo) ListActive(ctx context.Context) ([]*pricing.Rule, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Eq{"active": true}).
		OrderBy("priority ASC", "code ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*pricing.Rule
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	return items, nil
}
