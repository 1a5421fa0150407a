package comparison

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const uniqueConstraint = "comparisons_user_product_key"

// Repository encapsulates comparison persistence.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// Add stores the pair. A repeated pair is a conflict.
func (r *Repository) Add(ctx context.Context, userID, productID uuid.UUID) error {
	row := models.Comparison{UserID: userID, ProductID: productID}
	if err := r.DB(ctx).Create(&row).Error; err != nil {
		if db.IsUniqueViolation(err, uniqueConstraint) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product already added")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add comparison")
	}
	return nil
}

// Remove deletes the pair if present.
func (r *Repository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	err := r.DB(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.Comparison{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove comparison")
	}
	return nil
}

type comparedRecord struct {
	ProductID  uuid.UUID
	Name       string
	CategoryID uuid.UUID
	MinPrice   decimal.NullDecimal
	AddedAt    time.Time
}

// List returns the user's live compared products in the order they were added.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]ComparedProduct, error) {
	var records []comparedRecord
	err := r.DB(ctx).
		Table("comparisons c").
		Select("p.id AS product_id, p.name, p.category_id, c.created_at AS added_at, "+
			"(SELECT MIN(pr.price) FROM prices pr WHERE pr.product_id = p.id) AS min_price").
		Joins("JOIN products p ON p.id = c.product_id").
		Where("c.user_id = ? AND p.archived = ?", userID, false).
		Order("c.created_at ASC").
		Order("c.id ASC").
		Scan(&records).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list comparisons")
	}
	if len(records) == 0 {
		return []ComparedProduct{}, nil
	}

	ids := make([]uuid.UUID, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ProductID)
	}
	var specs []models.Specification
	err = r.DB(ctx).
		Where("product_id IN (?)", ids).
		Order("name ASC").
		Find(&specs).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load specifications")
	}
	byProduct := make(map[uuid.UUID][]catalog.Specification, len(records))
	for _, spec := range specs {
		byProduct[spec.ProductID] = append(byProduct[spec.ProductID], catalog.Specification{Name: spec.Name, Value: spec.Value})
	}

	out := make([]ComparedProduct, 0, len(records))
	for _, rec := range records {
		productSpecs := byProduct[rec.ProductID]
		if productSpecs == nil {
			productSpecs = []catalog.Specification{}
		}
		out = append(out, ComparedProduct{
			ProductID:      rec.ProductID,
			Name:           rec.Name,
			CategoryID:     rec.CategoryID,
			MinPrice:       rec.MinPrice,
			Specifications: productSpecs,
			AddedAt:        rec.AddedAt,
		})
	}
	return out, nil
}
