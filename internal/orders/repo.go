package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository persists orders and their items.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

// Create inserts the order together with its items.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	if err := r.DB(ctx).Create(order).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return nil
}

type summaryRecord struct {
	ID            uuid.UUID
	Status        enums.OrderStatus
	PaidStatus    enums.PaidStatus
	TotalPrice    decimal.Decimal
	DeliveryPrice decimal.Decimal
	ItemCount     int
	CreatedAt     time.Time
}

func (rec summaryRecord) toDTO() OrderSummary {
	return OrderSummary{
		ID:            rec.ID,
		Status:        rec.Status,
		PaidStatus:    rec.PaidStatus,
		TotalPrice:    rec.TotalPrice,
		DeliveryPrice: rec.DeliveryPrice,
		ItemCount:     rec.ItemCount,
		CreatedAt:     rec.CreatedAt,
	}
}

// ListForUser returns the user's non-archived orders newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	seek, err := pagination.Seek("o", params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.DB(ctx).
		Table("orders o").
		Select("o.id, o.status, o.paid_status, o.total_price, o.delivery_price, o.created_at, "+
			"(SELECT COUNT(*) FROM order_items i WHERE i.order_id = o.id) AS item_count").
		Where("o.user_id = ? AND o.archived = ?", userID, false)

	var records []summaryRecord
	err = query.Scopes(seek).Scan(&records).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	kept, page := pagination.Trim(records, params, func(rec summaryRecord) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rec.CreatedAt, ID: rec.ID}
	})
	list := &OrderList{Orders: make([]OrderSummary, 0, len(kept)), Pagination: page}
	for _, rec := range kept {
		list.Orders = append(list.Orders, rec.toDTO())
	}
	return list, nil
}

// FindByID loads an order with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.find(r.DB(ctx).Where("id = ?", id))
}

// FindForUser loads the user's order. Orders of other users are not found.
func (r *Repository) FindForUser(ctx context.Context, userID, id uuid.UUID) (*models.Order, error) {
	return r.find(r.DB(ctx).Where("id = ? AND user_id = ? AND archived = ?", id, userID, false))
}

func (r *Repository) find(query *gorm.DB) (*models.Order, error) {
	var order models.Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		First(&order).Error
	if err != nil {
		return nil, repo.LookupError(err, "order")
	}
	return &order, nil
}

// TransitionState moves an order to status and paid from the expected
// status and paid values. It reports whether a row changed.
func (r *Repository) TransitionState(ctx context.Context, id uuid.UUID, from enums.OrderStatus, fromPaid enums.PaidStatus, to enums.OrderStatus, toPaid enums.PaidStatus) (bool, error) {
	res := r.DB(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ? AND paid_status = ?", id, from, fromPaid).
		Updates(map[string]any{"status": to, "paid_status": toPaid, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update order state")
	}
	return res.RowsAffected > 0, nil
}

// UpdateState sets status and paid_status unconditionally.
func (r *Repository) UpdateState(ctx context.Context, id uuid.UUID, status enums.OrderStatus, paid enums.PaidStatus) error {
	err := r.DB(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "paid_status": paid, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order state")
	}
	return nil
}

// MarkItemsPaid flags the order's items as paid. A nil seller marks every
// item. It returns how many items changed.
func (r *Repository) MarkItemsPaid(ctx context.Context, orderID uuid.UUID, sellerID *uuid.UUID, receiptURL string) (int64, error) {
	query := r.DB(ctx).Model(&models.OrderItem{}).Where("order_id = ?", orderID)
	if sellerID != nil {
		query = query.Where("seller_id = ?", *sellerID)
	}
	res := query.Updates(map[string]any{"payment_status": true, "receipt_url": receiptURL})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark items paid")
	}
	return res.RowsAffected, nil
}

// DeactivateItems clears the active flag on all of the order's items.
func (r *Repository) DeactivateItems(ctx context.Context, orderID uuid.UUID) error {
	err := r.DB(ctx).Model(&models.OrderItem{}).
		Where("order_id = ?", orderID).
		Update("active", false).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate order items")
	}
	return nil
}

// StalePending returns pending unpaid orders created before cutoff, oldest first.
func (r *Repository) StalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB(ctx).
		Preload("Items").
		Where("status = ? AND paid_status = ? AND archived = ? AND created_at < ?",
			enums.OrderStatusPending, enums.PaidStatusUnpaid, false, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale orders")
	}
	return orders, nil
}
