package catalog

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// MaxHotOffers caps the hot offers sample size.
const MaxHotOffers = 50

type pricingEngine interface {
	PriorityDiscount(ctx context.Context, productID uuid.UUID) (*models.Discount, error)
	Price(ctx context.Context, productID uuid.UUID, discount *models.Discount, base *decimal.Decimal) (discounts.PriceResult, error)
	Sample(ctx context.Context, n int) ([]discounts.DiscountedProduct, error)
}

// Service is the public catalog read surface.
type Service interface {
	ListCategories(ctx context.Context) ([]CategoryNode, error)
	ListProducts(ctx context.Context, params ListProductsParams) (ProductPage, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDetail, error)
	HotOffers(ctx context.Context, n int) ([]discounts.DiscountedProduct, error)
}

type ServiceParams struct {
	Repo   *Repository
	Engine pricingEngine
	Cache  *redis.Cache
	TTLs   config.CacheConfig
}

type service struct {
	repo   *Repository
	engine pricingEngine
	cache  *redis.Cache
	ttls   config.CacheConfig
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository is required")
	}
	if params.Engine == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing engine is required")
	}
	return &service{
		repo:   params.Repo,
		engine: params.Engine,
		cache:  params.Cache,
		ttls:   params.TTLs,
	}, nil
}

// ListCategories returns the live category tree. Children whose parent is
// archived or missing surface as roots.
func (s *service) ListCategories(ctx context.Context) ([]CategoryNode, error) {
	return redis.Remember(ctx, s.cache, s.cache.Key("categories"), s.ttls.CategoriesTTL, func(ctx context.Context) ([]CategoryNode, error) {
		rows, err := s.repo.Categories(ctx)
		if err != nil {
			return nil, err
		}
		return buildTree(rows), nil
	})
}

func buildTree(rows []models.Category) []CategoryNode {
	known := make(map[uuid.UUID]struct{}, len(rows))
	for _, row := range rows {
		known[row.ID] = struct{}{}
	}
	children := map[uuid.UUID][]models.Category{}
	var roots []models.Category
	for _, row := range rows {
		if row.ParentID != nil {
			if _, ok := known[*row.ParentID]; ok && *row.ParentID != row.ID {
				children[*row.ParentID] = append(children[*row.ParentID], row)
				continue
			}
		}
		roots = append(roots, row)
	}

	var build func(models.Category, map[uuid.UUID]bool) CategoryNode
	build = func(c models.Category, path map[uuid.UUID]bool) CategoryNode {
		node := CategoryNode{ID: c.ID, Name: c.Name, Icon: c.Icon, ParentID: c.ParentID, Children: []CategoryNode{}}
		path[c.ID] = true
		for _, child := range children[c.ID] {
			if path[child.ID] {
				continue
			}
			node.Children = append(node.Children, build(child, path))
		}
		delete(path, c.ID)
		return node
	}

	out := make([]CategoryNode, 0, len(roots))
	for _, root := range roots {
		out = append(out, build(root, map[uuid.UUID]bool{}))
	}
	return out
}

func (s *service) ListProducts(ctx context.Context, params ListProductsParams) (ProductPage, error) {
	return s.repo.ListProducts(ctx, params)
}

// GetProduct returns the product page priced with its winning discount at
// the highest listing.
func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDetail, error) {
	key := s.cache.Key("product", s.cache.Version(ctx, discounts.PricingScope), id.String())
	detail, err := redis.Remember(ctx, s.cache, key, s.ttls.ProductTTL, func(ctx context.Context) (ProductDetail, error) {
		return s.loadProduct(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (ProductDetail, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return ProductDetail{}, err
	}

	sellerIDs := make([]uuid.UUID, 0, len(product.Prices))
	for _, p := range product.Prices {
		sellerIDs = append(sellerIDs, p.SellerID)
	}
	names, err := s.repo.SellerNames(ctx, sellerIDs)
	if err != nil {
		return ProductDetail{}, err
	}

	detail := ProductDetail{
		ID:             product.ID,
		Name:           product.Name,
		Description:    product.Description,
		CategoryID:     product.CategoryID,
		Prices:         make([]SellerPrice, 0, len(product.Prices)),
		Specifications: make([]Specification, 0, len(product.Specifications)),
		CreatedAt:      product.CreatedAt,
	}
	for _, p := range product.Prices {
		detail.Prices = append(detail.Prices, SellerPrice{
			SellerID:   p.SellerID,
			SellerName: names[p.SellerID],
			Price:      p.Price,
			Quantity:   p.Quantity,
		})
	}
	for _, spec := range product.Specifications {
		detail.Specifications = append(detail.Specifications, Specification{Name: spec.Name, Value: spec.Value})
	}

	discount, err := s.engine.PriorityDiscount(ctx, product.ID)
	if err != nil {
		return ProductDetail{}, err
	}
	if discount != nil {
		detail.Discount = &DiscountSummary{
			ID:      discount.ID,
			Name:    discount.Name,
			Method:  discount.Method,
			Value:   discount.Value,
			EndDate: discount.EndDate.UTC().Format(discounts.DateLayout),
		}
	}
	if len(product.Prices) > 0 {
		pricing, err := s.engine.Price(ctx, product.ID, discount, nil)
		if err != nil {
			return ProductDetail{}, err
		}
		detail.Pricing = &pricing
	}
	return detail, nil
}

// HotOffers samples discounted products. The sample is cached briefly so
// repeated page loads see the same offers.
func (s *service) HotOffers(ctx context.Context, n int) ([]discounts.DiscountedProduct, error) {
	if n <= 0 {
		return []discounts.DiscountedProduct{}, nil
	}
	if n > MaxHotOffers {
		n = MaxHotOffers
	}
	key := s.cache.Key("hot-offers", s.cache.Version(ctx, discounts.PricingScope), strconv.Itoa(n))
	return redis.Remember(ctx, s.cache, key, s.ttls.HotOffersTTL, func(ctx context.Context) ([]discounts.DiscountedProduct, error) {
		return s.engine.Sample(ctx, n)
	})
}
