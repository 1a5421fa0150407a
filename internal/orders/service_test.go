package orders

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type orderFixture struct {
	db      *gorm.DB
	svc     Service
	repo    *Repository
	events  *outbox.Repository
	product models.Product
	seller  models.Seller
	buyer   uuid.UUID
}

func newOrderFixture(t *testing.T, unitPrice string) *orderFixture {
	t.Helper()
	conn := dbtest.Open(t)

	engine, err := discounts.NewEngine(discounts.EngineParams{
		Store: discounts.NewRepository(conn),
		Now:   func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	quoter, err := cart.NewService(cart.ServiceParams{Listings: catalog.NewRepository(conn), Resolver: engine})
	require.NoError(t, err)

	events := outbox.NewRepository(conn)
	repo := NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Quoter:   quoter,
		Tx:       db.NewFromGorm(conn),
		Outbox:   outbox.NewService(events, nil),
		Delivery: config.DeliveryConfig{FlatFee: "200.00", FreeThreshold: "2000.00"},
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	category := models.Category{Name: "Laptops"}
	require.NoError(t, conn.Create(&category).Error)
	product := models.Product{Name: "ultrabook", CategoryID: category.ID}
	require.NoError(t, conn.Create(&product).Error)
	seller := models.Seller{Name: "north"}
	require.NoError(t, conn.Create(&seller).Error)
	require.NoError(t, conn.Create(&models.Price{
		ProductID: product.ID,
		SellerID:  seller.ID,
		Price:     decimal.RequireFromString(unitPrice),
		Quantity:  5,
	}).Error)

	return &orderFixture{db: conn, svc: svc, repo: repo, events: events, product: product, seller: seller, buyer: uuid.New()}
}

func (f *orderFixture) input(quantity int) CreateOrderInput {
	return CreateOrderInput{
		DeliveryCity:    " Lviv ",
		DeliveryAddress: "Main st 1",
		Items:           []cart.QuoteItem{{ProductID: f.product.ID, Quantity: quantity}},
	}
}

func TestCreateStoresQuotedItemsAndEmitsEvent(t *testing.T) {
	f := newOrderFixture(t, "300.00")

	order, err := f.svc.Create(context.Background(), f.buyer, f.input(2))
	require.NoError(t, err)
	assert.Equal(t, "Lviv", order.DeliveryCity)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaidStatusUnpaid, order.PaidStatus)
	assert.Equal(t, enums.FulfilmentStore, order.DeliveryType)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("600")))
	assert.True(t, order.DeliveryPrice.Equal(decimal.RequireFromString("200")))
	require.Len(t, order.Items, 1)
	assert.Equal(t, f.seller.ID, order.Items[0].SellerID)

	stored, err := f.repo.FindForUser(context.Background(), f.buyer, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 2, stored.Items[0].Quantity)
	assert.True(t, stored.Items[0].Active)

	rows, err := f.events.ListByAggregate(nil, order.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventOrderCreated, rows[0].EventType)

	envelope, err := outbox.DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	var payload payloads.OrderCreatedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, f.buyer, payload.UserID)
	require.Len(t, payload.Items, 1)
	assert.True(t, payload.TotalPrice.Equal(decimal.RequireFromString("600")))
}

func TestCreateDeliveryIsFreeAtThreshold(t *testing.T) {
	f := newOrderFixture(t, "1000.00")

	order, err := f.svc.Create(context.Background(), f.buyer, f.input(2))
	require.NoError(t, err)
	assert.True(t, order.DeliveryPrice.IsZero())
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newOrderFixture(t, "10.00")

	cases := []struct {
		name  string
		input CreateOrderInput
		code  pkgerrors.Code
	}{
		{name: "no items", input: CreateOrderInput{DeliveryCity: "Lviv", DeliveryAddress: "Main"}, code: pkgerrors.CodeValidation},
		{name: "blank address", input: CreateOrderInput{DeliveryCity: "Lviv", Items: f.input(1).Items}, code: pkgerrors.CodeValidation},
		{name: "bad delivery type", input: func() CreateOrderInput {
			in := f.input(1)
			in.DeliveryType = "drone"
			return in
		}(), code: pkgerrors.CodeValidation},
		{name: "unknown product", input: CreateOrderInput{
			DeliveryCity:    "Lviv",
			DeliveryAddress: "Main",
			Items:           []cart.QuoteItem{{ProductID: uuid.New(), Quantity: 1}},
		}, code: pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.buyer, tc.input)
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.CodeOf(err))
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetHidesOtherUsersOrders(t *testing.T) {
	f := newOrderFixture(t, "10.00")
	order, err := f.svc.Create(context.Background(), f.buyer, f.input(1))
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), uuid.New(), order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	got, err := f.svc.Get(context.Background(), f.buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, 1, got.ItemCount)
}

func TestListPagesNewestFirst(t *testing.T) {
	f := newOrderFixture(t, "10.00")
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		order, err := f.svc.Create(context.Background(), f.buyer, f.input(1))
		require.NoError(t, err)
		ids = append(ids, order.ID)
		created := fixedNow.Add(time.Duration(i) * time.Minute)
		require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("created_at", created).Error)
	}
	_, err := f.svc.Create(context.Background(), uuid.New(), f.input(1))
	require.NoError(t, err)

	first, err := f.svc.List(context.Background(), f.buyer, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	assert.Equal(t, ids[2], first.Orders[0].ID)
	assert.Equal(t, ids[1], first.Orders[1].ID)
	assert.Equal(t, 1, first.Orders[0].ItemCount)
	require.NotEmpty(t, first.Pagination.NextCursor)

	second, err := f.svc.List(context.Background(), f.buyer, pagination.Params{Limit: 2, Cursor: first.Pagination.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Equal(t, ids[0], second.Orders[0].ID)
	assert.Empty(t, second.Pagination.NextCursor)
}

func TestCancelOnlyPendingUnpaid(t *testing.T) {
	f := newOrderFixture(t, "10.00")
	order, err := f.svc.Create(context.Background(), f.buyer, f.input(1))
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), f.buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	_, err = f.svc.Cancel(context.Background(), f.buyer, order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))

	rows, err := f.events.ListByAggregate(nil, order.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, enums.EventOrderCancelled, rows[1].EventType)

	paid, err := f.svc.Create(context.Background(), f.buyer, f.input(1))
	require.NoError(t, err)
	require.NoError(t, f.repo.UpdateState(context.Background(), paid.ID, enums.OrderStatusProcessing, enums.PaidStatusPaid))
	_, err = f.svc.Cancel(context.Background(), f.buyer, paid.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
}

func TestCancelStaleSkipsFreshAndPaidOrders(t *testing.T) {
	f := newOrderFixture(t, "10.00")
	old := fixedNow.Add(-96 * time.Hour)

	stale, err := f.svc.Create(context.Background(), f.buyer, f.input(1))
	require.NoError(t, err)
	stalePaid, err := f.svc.Create(context.Background(), f.buyer, f.input(1))
	require.NoError(t, err)
	fresh, err := f.svc.Create(context.Background(), f.buyer, f.input(1))
	require.NoError(t, err)
	for _, id := range []uuid.UUID{stale.ID, stalePaid.ID} {
		require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", id).Update("created_at", old).Error)
	}
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", fresh.ID).Update("created_at", fixedNow).Error)
	require.NoError(t, f.repo.UpdateState(context.Background(), stalePaid.ID, enums.OrderStatusProcessing, enums.PaidStatusPartlyPaid))

	count, err := f.svc.CancelStale(context.Background(), fixedNow.Add(-72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := f.repo.FindByID(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)
	assert.False(t, got.Items[0].Active)

	rows, err := f.events.ListByAggregate(nil, stale.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	envelope, err := outbox.DecodeEnvelope(rows[1].Payload)
	require.NoError(t, err)
	var payload payloads.OrderCancelledEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, payloads.CancelReasonStale, payload.Reason)

	untouched, err := f.repo.FindByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, untouched.Status)
}
