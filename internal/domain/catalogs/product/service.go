package product

import (
	"context"
	"fmt"
	"time"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/core/tx"
	"atelier/internal/domain"
	"atelier/pkg/numerator"
)

// ImageStore persists product images and returns their public URL.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Service provides business logic for the Product catalog.
// Composes domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Product]
	repo      Repository
	variants  VariantRepository
	txManager tx.Manager
	numerator *numerator.Service
	images    ImageStore
}

// NewService creates a new Product service.
func NewService(
	repo Repository,
	variants VariantRepository,
	txManager tx.Manager,
	num *numerator.Service,
	images ImageStore,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "product",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		variants:       variants,
		txManager:      txManager,
		numerator:      num,
		images:         images,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.checkBarcodeUnique)

	return svc
}

// prepareForCreate generates a code when absent and checks barcode uniqueness.
func (s *Service) prepareForCreate(ctx context.Context, item *Product) error {
	if item.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PR"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		item.Code = code
	}
	return s.checkBarcodeUnique(ctx, item)
}

func (s *Service) checkBarcodeUnique(ctx context.Context, item *Product) error {
	if item.Barcode == nil || *item.Barcode == "" {
		return nil
	}
	existing, err := s.repo.FindByBarcode(ctx, *item.Barcode)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != item.ID {
		return apperror.NewConflict("product with this barcode already exists").
			WithDetail("barcode", *item.Barcode)
	}
	return nil
}

// FindByBarcode retrieves a product by barcode.
func (s *Service) FindByBarcode(ctx context.Context, barcode string) (*Product, error) {
	p, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("product", barcode)
		}
		return nil, err
	}
	return p, nil
}

// FindLowStock retrieves products with stock below minimum.
func (s *Service) FindLowStock(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error) {
	return s.repo.FindLowStock(ctx, filter)
}

// UploadImage stores the image bytes and links the URL to the product.
func (s *Service) UploadImage(ctx context.Context, productID id.ID, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", apperror.NewValidation("image payload is empty")
	}

	if _, err := s.GetByID(ctx, productID); err != nil {
		return "", err
	}

	key := fmt.Sprintf("products/%s", productID)
	url, err := s.images.Put(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SetImageURL(ctx, productID, url)
	})
	if err != nil {
		return "", err
	}
	return url, nil
}

// --- Variants ---

// CreateVariant adds a variant to a product.
func (s *Service) CreateVariant(ctx context.Context, v *Variant) error {
	if err := v.Validate(ctx); err != nil {
		return err
	}

	exists, err := s.repo.Exists(ctx, v.ProductID)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NewNotFound("product", v.ProductID.String())
	}

	if existing, err := s.variants.GetBySKU(ctx, v.SKU); err == nil && existing.ID != v.ID {
		return apperror.NewConflict("variant with this SKU already exists").
			WithDetail("sku", v.SKU)
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.variants.Create(ctx, v)
	})
}

// UpdateVariant modifies an existing variant.
func (s *Service) UpdateVariant(ctx context.Context, v *Variant) error {
	if err := v.Validate(ctx); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.variants.Update(ctx, v)
	})
}

// ListVariants returns all variants of a product.
func (s *Service) ListVariants(ctx context.Context, productID id.ID) ([]*Variant, error) {
	return s.variants.ListByProduct(ctx, productID)
}

// DeleteVariant soft-deletes a variant.
func (s *Service) DeleteVariant(ctx context.Context, variantID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.variants.SetDeletionMark(ctx, variantID, true)
	})
}
