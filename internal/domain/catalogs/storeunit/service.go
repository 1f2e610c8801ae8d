package storeunit

import (
	"context"
	"fmt"
	"time"

	"atelier/internal/core/tx"
	"atelier/internal/domain"
	"atelier/pkg/numerator"
)

// Repository defines data access for store units.
type Repository interface {
	domain.CatalogRepository[*StoreUnit]
}

// Service provides business logic for the StoreUnit catalog.
type Service struct {
	*domain.CatalogService[*StoreUnit]
	numerator *numerator.Service
}

// NewService creates a new StoreUnit service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*StoreUnit]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "store unit",
	})

	svc := &Service{CatalogService: base, numerator: num}
	base.Hooks().OnBeforeCreate(svc.generateCode)
	return svc
}

func (s *Service) generateCode(ctx context.Context, item *StoreUnit) error {
	if item.Code != "" {
		return nil
	}
	code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("UN"), nil, time.Now())
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	item.Code = code
	return nil
}
