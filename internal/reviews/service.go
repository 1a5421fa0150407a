package reviews

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// MaxTextLength bounds review text in characters.
const MaxTextLength = 5000

type productChecker interface {
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service interface {
	Create(ctx context.Context, userID, productID uuid.UUID, text string) (*ReviewDTO, error)
	ListForProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewPage, error)
	Update(ctx context.Context, userID, reviewID uuid.UUID, text string) (*ReviewDTO, error)
	Delete(ctx context.Context, userID, reviewID uuid.UUID) error
}

type ServiceParams struct {
	Repo     *Repository
	Products productChecker
}

type service struct {
	repo     *Repository
	products productChecker
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "review repository is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product lookup is required")
	}
	return &service{repo: params.Repo, products: params.Products}, nil
}

func (s *service) Create(ctx context.Context, userID, productID uuid.UUID, text string) (*ReviewDTO, error) {
	text, err := cleanText(text)
	if err != nil {
		return nil, err
	}
	exists, err := s.products.ProductExists(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	review := models.Review{ProductID: productID, UserID: userID, Text: text}
	if err := s.repo.Create(ctx, &review); err != nil {
		return nil, err
	}
	dto := toDTO(review, "")
	return &dto, nil
}

func (s *service) ListForProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewPage, error) {
	return s.repo.ListForProduct(ctx, productID, params)
}

func (s *service) Update(ctx context.Context, userID, reviewID uuid.UUID, text string) (*ReviewDTO, error) {
	text, err := cleanText(text)
	if err != nil {
		return nil, err
	}
	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the author can edit a review")
	}
	if err := s.repo.UpdateText(ctx, review, text); err != nil {
		return nil, err
	}
	dto := toDTO(*review, "")
	return &dto, nil
}

// Delete removes the caller's review. A non-author gets a validation error.
func (s *service) Delete(ctx context.Context, userID, reviewID uuid.UUID) error {
	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeValidation, "you can delete only your own reviews")
	}
	return s.repo.Delete(ctx, review.ID)
}

func cleanText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "review text is required")
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "review text is too long")
	}
	return text, nil
}
