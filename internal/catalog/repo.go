package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const minPriceColumn = "(SELECT MIN(pr.price) FROM prices pr WHERE pr.product_id = p.id) AS min_price"

// Repository reads the catalog tables.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := r.DB(ctx).
		Where("archived = ?", false).
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return out, nil
}

type productSummaryRecord struct {
	ID         uuid.UUID
	Name       string
	CategoryID uuid.UUID
	MinPrice   decimal.NullDecimal
	CreatedAt  time.Time
}

func (rec productSummaryRecord) toDTO() ProductSummary {
	return ProductSummary{
		ID:         rec.ID,
		Name:       rec.Name,
		CategoryID: rec.CategoryID,
		MinPrice:   rec.MinPrice,
		CreatedAt:  rec.CreatedAt,
	}
}

// ListProducts returns non-archived products newest first.
func (r *Repository) ListProducts(ctx context.Context, params ListProductsParams) (ProductPage, error) {
	seek, err := pagination.Seek("p", params.Params)
	if err != nil {
		return ProductPage{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.DB(ctx).
		Table("products p").
		Select("p.id, p.name, p.category_id, p.created_at, "+minPriceColumn).
		Where("p.archived = ?", false)
	if params.CategoryID != nil {
		query = query.Where("p.category_id = ?", *params.CategoryID)
	}

	var records []productSummaryRecord
	err = query.Scopes(seek).Scan(&records).Error
	if err != nil {
		return ProductPage{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	kept, page := pagination.Trim(records, params.Params, func(rec productSummaryRecord) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rec.CreatedAt, ID: rec.ID}
	})
	items := make([]ProductSummary, 0, len(kept))
	for _, rec := range kept {
		items = append(items, rec.toDTO())
	}
	return ProductPage{Items: items, Pagination: page}, nil
}

// FindProduct loads a non-archived product with prices and specifications.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.DB(ctx).
		Preload("Prices", func(db *gorm.DB) *gorm.DB { return db.Order("price ASC") }).
		Preload("Specifications", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Where("archived = ?", false).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, repo.LookupError(err, "product")
	}
	return &product, nil
}

// SellerNames maps seller ids to display names.
func (r *Repository) SellerNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var sellers []models.Seller
	if err := r.DB(ctx).Where("id IN (?)", ids).Find(&sellers).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sellers")
	}
	for _, s := range sellers {
		out[s.ID] = s.Name
	}
	return out, nil
}

// ProductSummaries returns summaries for the given ids in no particular order.
func (r *Repository) ProductSummaries(ctx context.Context, ids []uuid.UUID) ([]ProductSummary, error) {
	if len(ids) == 0 {
		return []ProductSummary{}, nil
	}
	var records []productSummaryRecord
	err := r.DB(ctx).
		Table("products p").
		Select("p.id, p.name, p.category_id, p.created_at, "+minPriceColumn).
		Where("p.id IN (?)", ids).
		Scan(&records).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product summaries")
	}
	out := make([]ProductSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toDTO())
	}
	return out, nil
}

// ProductExists reports whether a live product has the id.
func (r *Repository) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ? AND archived = ?", id, false).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
	}
	return count > 0, nil
}

// SellerPrice returns one seller's listing for a product.
func (r *Repository) SellerPrice(ctx context.Context, productID, sellerID uuid.UUID) (*models.Price, error) {
	var price models.Price
	err := r.DB(ctx).
		Where("product_id = ? AND seller_id = ?", productID, sellerID).
		First(&price).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "seller does not list this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller price")
	}
	return &price, nil
}

// MaxListing returns the highest listing for a product.
func (r *Repository) MaxListing(ctx context.Context, productID uuid.UUID) (*models.Price, error) {
	var price models.Price
	err := r.DB(ctx).
		Where("product_id = ?", productID).
		Order("price DESC").
		Order("seller_id ASC").
		First(&price).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product has no listed prices")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load max listing")
	}
	return &price, nil
}
