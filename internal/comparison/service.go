package comparison

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

type productChecker interface {
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service manages a user's product comparison list.
type Service interface {
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]ComparedProduct, error)
}

type ServiceParams struct {
	Repo     *Repository
	Products productChecker
	Cache    *redis.Cache
	TTLs     config.CacheConfig
}

type service struct {
	repo     *Repository
	products productChecker
	cache    *redis.Cache
	ttls     config.CacheConfig
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "comparison repository is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product lookup is required")
	}
	return &service{repo: params.Repo, products: params.Products, cache: params.Cache, ttls: params.TTLs}, nil
}

func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) error {
	exists, err := s.products.ProductExists(ctx, productID)
	if err != nil {
		return err
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err := s.repo.Add(ctx, userID, productID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, s.key(userID))
	return nil
}

func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, s.key(userID))
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ComparedProduct, error) {
	return redis.Remember(ctx, s.cache, s.key(userID), s.ttls.ComparisonTTL, func(ctx context.Context) ([]ComparedProduct, error) {
		return s.repo.List(ctx, userID)
	})
}

func (s *service) key(userID uuid.UUID) string {
	return s.cache.Key("comparison", userID.String())
}
