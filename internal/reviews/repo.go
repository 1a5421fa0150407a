package reviews

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	if err := r.DB(ctx).Create(review).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.DB(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, repo.LookupError(err, "review")
	}
	return &review, nil
}

func (r *Repository) UpdateText(ctx context.Context, review *models.Review, text string) error {
	review.Text = text
	review.UpdatedAt = time.Now().UTC()
	err := r.DB(ctx).Model(review).
		Updates(map[string]any{"text": text, "updated_at": review.UpdatedAt}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update review")
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.DB(ctx).Delete(&models.Review{}, "id = ?", id).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete review")
	}
	return nil
}

type reviewRecord struct {
	models.Review
	Author string
}

// ListForProduct pages a product's reviews newest first.
func (r *Repository) ListForProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewPage, error) {
	seek, err := pagination.Seek("r", params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.DB(ctx).
		Table("reviews r").
		Select("r.*, COALESCE(u.login, '') AS author").
		Joins("LEFT JOIN users u ON u.id = r.user_id").
		Where("r.product_id = ?", productID)

	var records []reviewRecord
	err = query.Scopes(seek).Scan(&records).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}

	kept, page := pagination.Trim(records, params, func(rec reviewRecord) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rec.CreatedAt, ID: rec.ID}
	})
	out := &ReviewPage{Reviews: make([]ReviewDTO, 0, len(kept)), Pagination: page}
	for _, rec := range kept {
		out.Reviews = append(out.Reviews, toDTO(rec.Review, rec.Author))
	}
	return out, nil
}
