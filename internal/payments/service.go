package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// checkoutClient opens Stripe Checkout Sessions.
type checkoutClient interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Service takes payments for orders through Stripe Checkout.
type Service interface {
	CreateCheckout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*CheckoutSession, error)
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type ServiceParams struct {
	Orders *orders.Repository
	Stripe checkoutClient
	Tx     txRunner
	Outbox outboxPublisher
	Config config.StripeConfig
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	orders *orders.Repository
	stripe checkoutClient
	tx     txRunner
	outbox outboxPublisher
	cfg    config.StripeConfig
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repository required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		orders: params.Orders,
		stripe: params.Stripe,
		tx:     params.Tx,
		outbox: params.Outbox,
		cfg:    params.Config,
		logg:   params.Logger,
		now:    now,
	}, nil
}

func (s *service) CreateCheckout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*CheckoutSession, error) {
	order, err := s.orders.FindForUser(ctx, userID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PaidStatus == enums.PaidStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}

	receipt := receiptURL(s.cfg.SuccessURL, order.ID)
	var (
		amount   decimal.Decimal
		metadata map[string]string
		label    string
	)
	if input.SellerID == nil {
		if order.Status != enums.OrderStatusPending || order.PaidStatus != enums.PaidStatusUnpaid {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending unpaid orders can be paid in full")
		}
		amount = order.TotalPrice.Add(order.DeliveryPrice)
		metadata = wholeOrderMetadata(order, receipt)
		label = "Order " + order.ID.String()
	} else {
		if !payableBySeller(order) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
		}
		var lines int
		amount, lines = unpaidSellerTotal(order.Items, *input.SellerID)
		if lines == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller has no unpaid items in this order")
		}
		metadata = sellerMetadata(order, *input.SellerID, amount, receipt)
		label = fmt.Sprintf("Order %s (seller %s)", order.ID, *input.SellerID)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL(s.cfg.SuccessURL)),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		ClientReferenceID: stripe.String(order.ID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(s.cfg.Currency)),
				UnitAmount: stripe.Int64(toMinorUnits(amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(label),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	sess, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe checkout session")
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(s.logg.WithField(logCtx, "session_id", sess.ID), "checkout session created")
	}
	return &CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

// HandleEvent applies a verified Stripe event. Only completed and paid
// checkout sessions change state.
func (s *service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil
	}
	meta, err := parseMetadata(sess.Metadata)
	if err != nil {
		return err
	}
	return s.applyPayment(ctx, &sess, meta)
}

func (s *service) applyPayment(ctx context.Context, sess *stripe.CheckoutSession, meta sessionMetadata) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByID(ctx, meta.OrderID)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusCancelled {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "payment received for cancelled order")
			}
			return nil
		}

		if _, err := repo.MarkItemsPaid(ctx, order.ID, meta.SellerID, meta.ReceiptURL); err != nil {
			return err
		}
		paid := enums.PaidStatusPaid
		if meta.SellerID != nil {
			refreshed, err := repo.FindByID(ctx, order.ID)
			if err != nil {
				return err
			}
			order = refreshed
			if !allItemsPaid(order.Items) {
				paid = enums.PaidStatusPartlyPaid
			}
		}
		if err := repo.UpdateState(ctx, order.ID, enums.OrderStatusProcessing, paid); err != nil {
			return err
		}

		itemCount := len(order.Items)
		if meta.SellerID != nil {
			itemCount = sellerItemCount(order.Items, *meta.SellerID)
		}
		paidAt := s.now().UTC()
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPaidEvent{
				OrderID:    order.ID,
				UserID:     order.UserID,
				SellerID:   meta.SellerID,
				PaidStatus: paid,
				AmountPaid: decimal.New(sess.AmountTotal, -2),
				ItemCount:  itemCount,
				SessionID:  sess.ID,
				PaidAt:     paidAt,
			},
			OccurredAt: paidAt,
		})
	})
}

// payableBySeller reports whether a per-seller session may still be opened.
// A partial payment moves the order to processing while other sellers wait.
func payableBySeller(order *models.Order) bool {
	switch {
	case order.Status == enums.OrderStatusPending && order.PaidStatus == enums.PaidStatusUnpaid:
		return true
	case order.Status == enums.OrderStatusProcessing && order.PaidStatus == enums.PaidStatusPartlyPaid:
		return true
	default:
		return false
	}
}

func unpaidSellerTotal(items []models.OrderItem, sellerID uuid.UUID) (decimal.Decimal, int) {
	total := decimal.Zero
	lines := 0
	for _, item := range items {
		if item.SellerID != sellerID || item.PaymentStatus {
			continue
		}
		total = total.Add(item.LineTotal())
		lines++
	}
	return total, lines
}

func sellerItemCount(items []models.OrderItem, sellerID uuid.UUID) int {
	count := 0
	for _, item := range items {
		if item.SellerID == sellerID {
			count++
		}
	}
	return count
}

func allItemsPaid(items []models.OrderItem) bool {
	for _, item := range items {
		if !item.PaymentStatus {
			return false
		}
	}
	return true
}
