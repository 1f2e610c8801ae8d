package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/domain"
	"atelier/internal/domain/catalogs/product"
	"atelier/internal/infrastructure/storage/postgres"
)

const (
	productTable = "cat_products"
	variantTable = "cat_product_variants"
)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			productTable,
			postgres.ExtractDBColumns[product.Product](),
			func() *product.Product { return &product.Product{} },
		),
	}
}

// FindByBarcode retrieves a product by barcode.
func (r *ProductRepo) FindByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"barcode": barcode}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	item, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("product", barcode)
		}
		return nil, err
	}
	return item, nil
}

// FindLowStock retrieves products with stock at or below their minimum.
func (r *ProductRepo) FindLowStock(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	result := domain.ListResult[*product.Product]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect().
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Expr("current_stock <= min_stock")).
		Where(squirrel.Gt{"min_stock": 0}).
		OrderBy("name ASC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	var items []*product.Product
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return result, fmt.Errorf("find low stock: %w", err)
	}
	result.Items = items
	result.TotalCount = int64(len(items))

	return result, nil
}

// SetImageURL links an uploaded image to the product.
func (r *ProductRepo) SetImageURL(ctx context.Context, productID id.ID, url string) error {
	q := r.Builder().
		Update(productTable).
		Set("image_url", url).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": productID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build set image url: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set image url: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID.String())
	}
	return nil
}

// VariantRepo implements product.VariantRepository.
type VariantRepo struct {
	txManager  *postgres.TxManager
	selectCols []string
}

// NewVariantRepo creates a new variant repository.
func NewVariantRepo(txManager *postgres.TxManager) *VariantRepo {
	return &VariantRepo{
		txManager:  txManager,
		selectCols: postgres.ExtractDBColumns[product.Variant](),
	}
}

func (r *VariantRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a new variant.
func (r *VariantRepo) Create(ctx context.Context, v *product.Variant) error {
	q := r.builder().
		Insert(variantTable).
		SetMap(postgres.StructToMap(v))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert variant: %w", err)
	}
	return nil
}

// GetByID retrieves a variant by ID.
func (r *VariantRepo) GetByID(ctx context.Context, variantID id.ID) (*product.Variant, error) {
	q := r.builder().
		Select(r.selectCols...).
		From(variantTable).
		Where(squirrel.Eq{"id": variantID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var v product.Variant
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &v, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("variant", variantID.String())
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return &v, nil
}

// GetBySKU retrieves a variant by SKU.
func (r *VariantRepo) GetBySKU(ctx context.Context, sku string) (*product.Variant, error) {
	q := r.builder().
		Select(r.selectCols...).
		From(variantTable).
		Where(squirrel.Eq{"sku": sku}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var v product.Variant
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &v, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("variant", sku)
		}
		return nil, fmt.Errorf("get variant by sku: %w", err)
	}
	return &v, nil
}

// Update modifies a variant with optimistic locking.
func (r *VariantRepo) Update(ctx context.Context, v *product.Variant) error {
	data := postgres.StructToMap(v)
	version := v.Version
	delete(data, "id")
	delete(data, "version")

	q := r.builder().
		Update(variantTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": v.ID}).
		Where(squirrel.Eq{"version": version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update variant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("variant", v.ID)
	}
	return nil
}

// ListByProduct retrieves all variants of a product.
func (r *VariantRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*product.Variant, error) {
	q := r.builder().
		Select(r.selectCols...).
		From(variantTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("sku ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*product.Variant
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	return items, nil
}

// SetDeletionMark sets or clears the soft-delete mark.
func (r *VariantRepo) SetDeletionMark(ctx context.Context, variantID id.ID, marked bool) error {
	q := r.builder().
		Update(variantTable).
		Set("deletion_mark", marked).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": variantID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build set deletion mark: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set deletion mark: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("variant", variantID.String())
	}
	return nil
}
