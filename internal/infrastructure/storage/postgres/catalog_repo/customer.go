package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"atelier/internal/core/apperror"
	"atelier/internal/domain/catalogs/customer"
	"atelier/internal/infrastructure/storage/postgres"
)

const customerTable = "cat_customers"

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	*BaseCatalogRepo[*customer.Customer]
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txManager *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			customerTable,
			postgres.ExtractDBColumns[customer.Customer](),
			func() *customer.Customer { return &customer.Customer{} },
		),
	}
}

// FindByDocument retrieves a customer by tax id.
func (r *CustomerRepo) FindByDocument(ctx context.Context, document string) (*customer.Customer, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"document": document}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	item, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("customer", document)
		}
		return nil, err
	}
	return item, nil
}
