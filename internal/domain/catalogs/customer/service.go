package customer

import (
	"context"
	"fmt"
	"time"

	"atelier/internal/core/apperror"
	"atelier/internal/core/tx"
	"atelier/internal/domain"
	"atelier/pkg/numerator"
)

// Repository defines data access for customers.
type Repository interface {
	domain.CatalogRepository[*Customer]

	// FindByDocument retrieves a customer by tax id.
	FindByDocument(ctx context.Context, document string) (*Customer, error)
}

// Service provides business logic for the Customer catalog.
type Service struct {
	*domain.CatalogService[*Customer]
	repo      Repository
	numerator *numerator.Service
}

// NewService creates a new Customer service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Customer]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "customer",
	})

	svc := &Service{CatalogService: base, repo: repo, numerator: num}
	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.checkDocumentUnique)
	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, item *Customer) error {
	if item.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("CU"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		item.Code = code
	}
	return s.checkDocumentUnique(ctx, item)
}

func (s *Service) checkDocumentUnique(ctx context.Context, item *Customer) error {
	if item.Document == nil || *item.Document == "" {
		return nil
	}
	existing, err := s.repo.FindByDocument(ctx, *item.Document)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != item.ID {
		return apperror.NewConflict("customer with this document already exists").
			WithDetail("document", *item.Document)
	}
	return nil
}

// FindByDocument retrieves a customer by tax id.
func (s *Service) FindByDocument(ctx context.Context, document string) (*Customer, error) {
	c, err := s.repo.FindByDocument(ctx, document)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("customer", document)
		}
		return nil, err
	}
	return c, nil
}
