package catalog_repo

import (
	"atelier/internal/domain/catalogs/storeunit"
	"atelier/internal/infrastructure/storage/postgres"
)

const storeUnitTable = "cat_store_units"

// StoreUnitRepo implements storeunit.Repository.
type StoreUnitRepo struct {
	*BaseCatalogRepo[*storeunit.StoreUnit]
}

// NewStoreUnitRepo creates a new store unit repository.
func NewStoreUnitRepo(txManager *postgres.TxManager) *StoreUnitRepo {
	return &StoreUnitRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			storeUnitTable,
			postgres.ExtractDBColumns[storeunit.StoreUnit](),
			func() *storeunit.StoreUnit { return &storeunit.StoreUnit{} },
		),
	}
}
