package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type quoteFixture struct {
	db       *gorm.DB
	svc      Service
	category models.Category
}

func newQuoteFixture(t *testing.T) *quoteFixture {
	t.Helper()
	conn := dbtest.Open(t)
	engine, err := discounts.NewEngine(discounts.EngineParams{
		Store: discounts.NewRepository(conn),
		Now:   func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{Listings: catalog.NewRepository(conn), Resolver: engine})
	require.NoError(t, err)

	category := models.Category{Name: "Phones"}
	require.NoError(t, conn.Create(&category).Error)
	return &quoteFixture{db: conn, svc: svc, category: category}
}

// listing creates a product with one listing per price and returns the
// product and its sellers in price order.
func (f *quoteFixture) listing(t *testing.T, name string, prices ...string) (models.Product, []models.Seller) {
	t.Helper()
	product := models.Product{Name: name, CategoryID: f.category.ID}
	require.NoError(t, f.db.Create(&product).Error)
	sellers := make([]models.Seller, 0, len(prices))
	for _, price := range prices {
		seller := models.Seller{Name: name + " seller " + price}
		require.NoError(t, f.db.Create(&seller).Error)
		row := models.Price{ProductID: product.ID, SellerID: seller.ID, Price: decimal.RequireFromString(price), Quantity: 10}
		require.NoError(t, f.db.Create(&row).Error)
		sellers = append(sellers, seller)
	}
	return product, sellers
}

func TestQuoteUsesNamedSellerOrMaxListing(t *testing.T) {
	f := newQuoteFixture(t)
	phone, sellers := f.listing(t, "phone", "90.00", "120.00")
	cable, _ := f.listing(t, "cable", "5.00")

	res, err := f.svc.Quote(context.Background(), QuoteInput{Items: []QuoteItem{
		{ProductID: phone.ID, SellerID: &sellers[0].ID, Quantity: 1},
		{ProductID: cable.ID, Quantity: 2},
	}})
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.True(t, res.Lines[0].OriginalPrice.Equal(decimal.RequireFromString("90")))
	assert.Equal(t, sellers[0].ID, *res.Lines[0].SellerID)
	assert.True(t, res.Lines[1].LineTotal.Equal(decimal.RequireFromString("10")))
	assert.Equal(t, 3, res.TotalQuantity)
	assert.True(t, res.DiscountedTotal.Equal(decimal.RequireFromString("100")))
	assert.Equal(t, enums.ResolutionTierNone, res.Tier)
}

func TestQuoteDefaultsToMostExpensiveSeller(t *testing.T) {
	f := newQuoteFixture(t)
	phone, sellers := f.listing(t, "phone", "90.00", "120.00")

	res, err := f.svc.Quote(context.Background(), QuoteInput{Items: []QuoteItem{{ProductID: phone.ID, Quantity: 1}}})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.True(t, res.Lines[0].OriginalPrice.Equal(decimal.RequireFromString("120")))
	assert.Equal(t, sellers[1].ID, *res.Lines[0].SellerID)
}

func TestQuoteMergesDuplicateProducts(t *testing.T) {
	f := newQuoteFixture(t)
	phone, sellers := f.listing(t, "phone", "90.00", "120.00")

	res, err := f.svc.Quote(context.Background(), QuoteInput{Items: []QuoteItem{
		{ProductID: phone.ID, SellerID: &sellers[0].ID, Quantity: 1},
		{ProductID: phone.ID, SellerID: &sellers[1].ID, Quantity: 2},
	}})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, 3, res.Lines[0].Quantity)
	assert.Equal(t, sellers[0].ID, *res.Lines[0].SellerID)
	assert.True(t, res.OriginalTotal.Equal(decimal.RequireFromString("270")))
}

func TestQuoteAppliesCartDiscount(t *testing.T) {
	f := newQuoteFixture(t)
	phone, _ := f.listing(t, "phone", "100.00")
	threshold := decimal.RequireFromString("150")
	cartWide := models.Discount{
		Name:      "spring cart",
		Kind:      enums.DiscountKindCart,
		Method:    enums.DiscountMethodPercent,
		Value:     decimal.RequireFromString("10"),
		TotalGT:   &threshold,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	}
	require.NoError(t, f.db.Omit("Products", "Categories", "ProductGroups").Create(&cartWide).Error)

	small, err := f.svc.Quote(context.Background(), QuoteInput{Items: []QuoteItem{{ProductID: phone.ID, Quantity: 1}}})
	require.NoError(t, err)
	assert.Equal(t, enums.ResolutionTierNone, small.Tier)

	big, err := f.svc.Quote(context.Background(), QuoteInput{Items: []QuoteItem{{ProductID: phone.ID, Quantity: 2}}})
	require.NoError(t, err)
	assert.Equal(t, enums.ResolutionTierCart, big.Tier)
	require.NotNil(t, big.DiscountID)
	assert.Equal(t, cartWide.ID, *big.DiscountID)
	assert.True(t, big.DiscountedTotal.Equal(decimal.RequireFromString("180")))
}

func TestQuoteRejectsBadItems(t *testing.T) {
	f := newQuoteFixture(t)
	phone, _ := f.listing(t, "phone", "100.00")
	stranger := uuid.New()

	cases := []struct {
		name  string
		items []QuoteItem
		code  pkgerrors.Code
	}{
		{name: "zero quantity", items: []QuoteItem{{ProductID: phone.ID, Quantity: 0}}, code: pkgerrors.CodeValidation},
		{name: "missing product id", items: []QuoteItem{{Quantity: 1}}, code: pkgerrors.CodeValidation},
		{name: "unknown product", items: []QuoteItem{{ProductID: uuid.New(), Quantity: 1}}, code: pkgerrors.CodeNotFound},
		{name: "seller without listing", items: []QuoteItem{{ProductID: phone.ID, SellerID: &stranger, Quantity: 1}}, code: pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Quote(context.Background(), QuoteInput{Items: tc.items})
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.CodeOf(err))
		})
	}
}

func TestQuoteEmptyCart(t *testing.T) {
	f := newQuoteFixture(t)
	res, err := f.svc.Quote(context.Background(), QuoteInput{})
	require.NoError(t, err)
	assert.NotNil(t, res.Lines)
	assert.Equal(t, enums.ResolutionTierNone, res.Tier)
	assert.True(t, res.DiscountedTotal.IsZero())
}
