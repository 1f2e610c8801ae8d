package supplier

import (
	"context"
	"fmt"
	"time"

	"atelier/internal/core/tx"
	"atelier/internal/domain"
	"atelier/pkg/numerator"
)

// Repository defines data access for suppliers.
type Repository interface {
	domain.CatalogRepository[*Supplier]
}

// Service provides business logic for the Supplier catalog.
type Service struct {
	*domain.CatalogService[*Supplier]
	numerator *numerator.Service
}

// NewService creates a new Supplier service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Supplier]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "supplier",
	})

	svc := &Service{CatalogService: base, numerator: num}
	base.Hooks().OnBeforeCreate(svc.generateCode)
	return svc
}

func (s *Service) generateCode(ctx context.Context, item *Supplier) error {
	if item.Code != "" {
		return nil
	}
	code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("SU"), nil, time.Now())
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	item.Code = code
	return nil
}
