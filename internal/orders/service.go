package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// staleBatchSize caps how many orders one CancelStale pass loads.
const staleBatchSize = 200

// Service manages buyer orders.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDetail, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDetail, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDetail, error)
	CancelStale(ctx context.Context, cutoff time.Time) (int, error)
}

type ServiceParams struct {
	Repo     *Repository
	Quoter   quoter
	Tx       txRunner
	Outbox   outboxPublisher
	Delivery config.DeliveryConfig
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     *Repository
	quoter   quoter
	tx       txRunner
	outbox   outboxPublisher
	delivery config.DeliveryConfig
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repository is required")
	}
	if params.Quoter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart quoter is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		quoter:   params.Quoter,
		tx:       params.Tx,
		outbox:   params.Outbox,
		delivery: params.Delivery,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDetail, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}
	input.DeliveryCity = strings.TrimSpace(input.DeliveryCity)
	input.DeliveryAddress = strings.TrimSpace(input.DeliveryAddress)
	if input.DeliveryCity == "" || input.DeliveryAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery city and address are required")
	}
	if input.DeliveryType == "" {
		input.DeliveryType = enums.FulfilmentStore
	}
	if input.PaymentType == "" {
		input.PaymentType = enums.FulfilmentStore
	}
	if !input.DeliveryType.IsValid() || !input.PaymentType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery or payment type")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}

	// Quoting reads through its own connection, so it runs before the
	// transaction opens.
	resolution, err := s.quoter.Quote(ctx, cart.QuoteInput{Items: input.Items})
	if err != nil {
		return nil, err
	}

	total := resolution.DiscountedTotal
	order := models.Order{
		UserID:          userID,
		DeliveryCity:    input.DeliveryCity,
		DeliveryAddress: input.DeliveryAddress,
		DeliveryType:    input.DeliveryType,
		PaymentType:     input.PaymentType,
		Status:          enums.OrderStatusPending,
		PaidStatus:      enums.PaidStatusUnpaid,
		TotalPrice:      total,
		DeliveryPrice:   s.delivery.Fee(total),
		Items:           make([]models.OrderItem, 0, len(resolution.Lines)),
	}
	for _, line := range resolution.Lines {
		discountID := line.DiscountID
		if discountID == nil {
			discountID = resolution.DiscountID
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductID:     line.ProductID,
			SellerID:      *line.SellerID,
			Quantity:      line.Quantity,
			Price:         line.DiscountedPrice,
			OriginalPrice: line.OriginalPrice,
			DiscountID:    discountID,
			Active:        true,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &order); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: enums.UserRoleBuyer},
			Data:          createdPayload(order),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, userID.String()), order.ID.String())
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"total_price": order.TotalPrice.StringFixed(2),
			"item_count":  len(order.Items),
			"tier":        string(resolution.Tier),
		}), "order created")
	}
	return toDetail(order), nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return s.repo.ListForUser(ctx, userID, params)
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := s.repo.FindForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return toDetail(*order), nil
}

func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDetail, error) {
	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUser(ctx, userID, orderID)
		if err != nil {
			return err
		}
		if err := s.cancel(ctx, tx, order, payloads.CancelReasonBuyer); err != nil {
			return err
		}
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDetail(*cancelled), nil
}

// CancelStale cancels pending unpaid orders created before cutoff. Orders
// paid or cancelled concurrently are skipped; other failures are collected.
func (s *service) CancelStale(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.repo.StalePending(ctx, cutoff, staleBatchSize)
	if err != nil {
		return 0, err
	}

	var (
		cancelled int
		errs      error
	)
	for i := range stale {
		order := stale[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.cancel(ctx, tx, &order, payloads.CancelReasonStale)
		})
		switch {
		case err == nil:
			cancelled++
		case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
		default:
			errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order "+order.ID.String()))
		}
	}
	return cancelled, errs
}

func (s *service) cancel(ctx context.Context, tx *gorm.DB, order *models.Order, reason string) error {
	repo := s.repo.WithTx(tx)
	changed, err := repo.TransitionState(ctx, order.ID,
		enums.OrderStatusPending, enums.PaidStatusUnpaid,
		enums.OrderStatusCancelled, enums.PaidStatusUnpaid)
	if err != nil {
		return err
	}
	if !changed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending unpaid orders can be cancelled")
	}
	if err := repo.DeactivateItems(ctx, order.ID); err != nil {
		return err
	}
	order.Status = enums.OrderStatusCancelled
	for i := range order.Items {
		order.Items[i].Active = false
	}

	now := s.now().UTC()
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderCancelledEvent{
			OrderID:     order.ID,
			UserID:      order.UserID,
			TotalPrice:  order.TotalPrice,
			ItemCount:   len(order.Items),
			Reason:      reason,
			CancelledAt: now,
		},
		OccurredAt: now,
	})
}

func createdPayload(order models.Order) payloads.OrderCreatedEvent {
	lines := make([]payloads.OrderItemLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderItemLine{
			ProductID:  item.ProductID,
			SellerID:   item.SellerID,
			Quantity:   item.Quantity,
			Price:      item.Price,
			DiscountID: item.DiscountID,
		})
	}
	return payloads.OrderCreatedEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalPrice:    order.TotalPrice,
		DeliveryPrice: order.DeliveryPrice,
		Items:         lines,
	}
}
