package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/redis/redistest"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db      *gorm.DB
	svc     Service
	cache   *redis.Cache
	memory  *redistest.Memory
	discRep *discounts.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	client, mem := redistest.NewClient()
	cache := redis.NewCache(client, nil)
	discRepo := discounts.NewRepository(conn)
	engine, err := discounts.NewEngine(discounts.EngineParams{
		Store: discRepo,
		Now:   func() time.Time { return testNow },
		IntN:  func(int) int { return 0 },
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Engine: engine,
		Cache:  cache,
		TTLs:   config.CacheConfig{CategoriesTTL: time.Minute, ProductTTL: time.Minute, HotOffersTTL: time.Minute},
	})
	require.NoError(t, err)
	return &fixture{db: conn, svc: svc, cache: cache, memory: mem, discRep: discRepo}
}

func (f *fixture) category(t *testing.T, name string, parent *uuid.UUID) models.Category {
	t.Helper()
	c := models.Category{Name: name, ParentID: parent}
	require.NoError(t, f.db.Create(&c).Error)
	return c
}

func (f *fixture) product(t *testing.T, name string, categoryID uuid.UUID, createdAt time.Time, prices ...string) models.Product {
	t.Helper()
	p := models.Product{Name: name, CategoryID: categoryID, CreatedAt: createdAt}
	require.NoError(t, f.db.Create(&p).Error)
	for i, price := range prices {
		seller := models.Seller{Name: name + " seller " + string(rune('A'+i))}
		require.NoError(t, f.db.Create(&seller).Error)
		row := models.Price{ProductID: p.ID, SellerID: seller.ID, Price: decimal.RequireFromString(price), Quantity: 3}
		require.NoError(t, f.db.Create(&row).Error)
	}
	return p
}

func TestListCategoriesBuildsTreeAndCaches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	phones := f.category(t, "Phones", nil)
	f.category(t, "Smartphones", &phones.ID)
	f.category(t, "Audio", nil)
	retired := models.Category{Name: "Retired", Archived: true}
	require.NoError(t, f.db.Create(&retired).Error)

	tree, err := f.svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Audio", tree[0].Name)
	assert.Equal(t, "Phones", tree[1].Name)
	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, "Smartphones", tree[1].Children[0].Name)

	f.category(t, "Cameras", nil)
	cached, err := f.svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 2, "second read is served from cache")
}

func TestListCategoriesSurvivesCacheOutage(t *testing.T) {
	f := newFixture(t)
	f.category(t, "Phones", nil)
	f.memory.SetFailing(true)

	tree, err := f.svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, tree, 1)
}

func TestBuildTreeOrphansBecomeRoots(t *testing.T) {
	missing := uuid.New()
	rows := []models.Category{{ID: uuid.New(), Name: "orphan", ParentID: &missing}}
	tree := buildTree(rows)
	require.Len(t, tree, 1)
	assert.Equal(t, "orphan", tree[0].Name)
	assert.NotNil(t, tree[0].Children)
}

func TestListProductsPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	phones := f.category(t, "Phones", nil)
	audio := f.category(t, "Audio", nil)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	newest := f.product(t, "newest", phones.ID, base.Add(3*time.Hour), "50", "40")
	middle := f.product(t, "middle", phones.ID, base.Add(2*time.Hour))
	f.product(t, "oldest", phones.ID, base.Add(time.Hour), "10")
	f.product(t, "other", audio.ID, base.Add(4*time.Hour), "1")
	gone := models.Product{Name: "gone", CategoryID: phones.ID, Archived: true, CreatedAt: base.Add(5 * time.Hour)}
	require.NoError(t, f.db.Create(&gone).Error)

	page, err := f.svc.ListProducts(ctx, ListProductsParams{CategoryID: &phones.ID, Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, newest.ID, page.Items[0].ID)
	assert.True(t, page.Items[0].MinPrice.Valid)
	assert.True(t, page.Items[0].MinPrice.Decimal.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, middle.ID, page.Items[1].ID)
	assert.False(t, page.Items[1].MinPrice.Valid, "unlisted products have no min price")
	require.NotEmpty(t, page.Pagination.NextCursor)

	next, err := f.svc.ListProducts(ctx, ListProductsParams{CategoryID: &phones.ID, Params: pagination.Params{Limit: 2, Cursor: page.Pagination.NextCursor}})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, "oldest", next.Items[0].Name)
	assert.Empty(t, next.Pagination.NextCursor)

	_, err = f.svc.ListProducts(ctx, ListProductsParams{Params: pagination.Params{Cursor: "%%%"}})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestGetProductPricesWithPriorityDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	phones := f.category(t, "Phones", nil)
	phone := f.product(t, "phone", phones.ID, testNow, "100", "80")
	require.NoError(t, f.db.Create(&models.Specification{ProductID: phone.ID, Name: "ram", Value: "8GB"}).Error)

	detail, err := f.svc.GetProduct(ctx, phone.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Prices, 2)
	assert.True(t, detail.Prices[0].Price.Equal(decimal.NewFromInt(80)), "listings are cheapest first")
	assert.Len(t, detail.Specifications, 1)
	assert.Nil(t, detail.Discount)
	require.NotNil(t, detail.Pricing)
	assert.False(t, detail.Pricing.IsDiscounted)
	assert.True(t, detail.Pricing.DiscountedPrice.Equal(decimal.NewFromInt(100)))

	discount := models.Discount{
		Name:      "ten off",
		Kind:      enums.DiscountKindProduct,
		Method:    enums.DiscountMethodPercent,
		Value:     decimal.NewFromInt(10),
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	}
	require.NoError(t, f.discRep.Create(ctx, &discount))
	require.NoError(t, f.discRep.ReplaceLinks(ctx, discount.ID, nil, []uuid.UUID{phones.ID}, nil))

	stale, err := f.svc.GetProduct(ctx, phone.ID)
	require.NoError(t, err)
	assert.Nil(t, stale.Discount, "cached until the pricing scope moves")

	f.cache.Bump(ctx, discounts.PricingScope)
	fresh, err := f.svc.GetProduct(ctx, phone.ID)
	require.NoError(t, err)
	require.NotNil(t, fresh.Discount)
	assert.Equal(t, discount.ID, fresh.Discount.ID)
	assert.Equal(t, "2026-03-31", fresh.Discount.EndDate)
	assert.True(t, fresh.Pricing.IsDiscounted)
	assert.True(t, fresh.Pricing.DiscountedPrice.Equal(decimal.NewFromInt(90)))

	_, err = f.svc.GetProduct(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestHotOffers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	offers, err := f.svc.HotOffers(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, offers)

	offers, err = f.svc.HotOffers(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, offers)

	phones := f.category(t, "Phones", nil)
	phone := f.product(t, "phone", phones.ID, testNow, "20")
	discount := models.Discount{
		Name:      "deal",
		Kind:      enums.DiscountKindProduct,
		Method:    enums.DiscountMethodAmount,
		Value:     decimal.NewFromInt(5),
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	}
	require.NoError(t, f.discRep.Create(ctx, &discount))
	require.NoError(t, f.discRep.ReplaceLinks(ctx, discount.ID, []uuid.UUID{phone.ID}, nil, nil))
	f.cache.Bump(ctx, discounts.PricingScope)

	offers, err = f.svc.HotOffers(ctx, 2)
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, phone.ID, offers[0].ProductID)
	assert.Equal(t, phone.ID, offers[1].ProductID)
}
