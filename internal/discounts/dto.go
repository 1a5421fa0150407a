package discounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// DiscountInput carries the writable discount fields.
type DiscountInput struct {
	Name        string
	Description *string
	Kind        enums.DiscountKind
	Method      enums.DiscountMethod
	Priority    int
	Value       decimal.Decimal
	QuantityGT  *int
	QuantityLT  *int
	TotalGT     *decimal.Decimal
	StartDate   time.Time
	EndDate     time.Time
	IsActive    bool
}

// LinksInput replaces every product, category and group link of a discount.
type LinksInput struct {
	ProductIDs  []uuid.UUID
	CategoryIDs []uuid.UUID
	GroupIDs    []uuid.UUID
}

type GroupInput struct {
	Name        string
	Description *string
	ProductIDs  []uuid.UUID
}

type DiscountDTO struct {
	ID          uuid.UUID            `json:"id"`
	Name        string               `json:"name"`
	Description *string              `json:"description,omitempty"`
	Kind        enums.DiscountKind   `json:"kind"`
	Method      enums.DiscountMethod `json:"method"`
	Priority    int                  `json:"priority"`
	Value       decimal.Decimal      `json:"value"`
	QuantityGT  *int                 `json:"quantity_gt,omitempty"`
	QuantityLT  *int                 `json:"quantity_lt,omitempty"`
	TotalGT     *decimal.Decimal     `json:"total_gt,omitempty"`
	StartDate   string               `json:"start_date"`
	EndDate     string               `json:"end_date"`
	IsActive    bool                 `json:"is_active"`
	Archived    bool                 `json:"archived"`
	ProductIDs  []uuid.UUID          `json:"product_ids"`
	CategoryIDs []uuid.UUID          `json:"category_ids"`
	GroupIDs    []uuid.UUID          `json:"group_ids"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

type GroupDTO struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	Archived    bool        `json:"archived"`
	ProductIDs  []uuid.UUID `json:"product_ids"`
	CreatedAt   time.Time   `json:"created_at"`
}

// DateLayout is the wire format of discount windows.
const DateLayout = "2006-01-02"

func toDiscountDTO(d models.Discount) DiscountDTO {
	dto := DiscountDTO{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Kind:        d.Kind,
		Method:      d.Method,
		Priority:    d.Priority,
		Value:       d.Value,
		QuantityGT:  d.QuantityGT,
		QuantityLT:  d.QuantityLT,
		TotalGT:     d.TotalGT,
		StartDate:   d.StartDate.UTC().Format(DateLayout),
		EndDate:     d.EndDate.UTC().Format(DateLayout),
		IsActive:    d.IsActive,
		Archived:    d.Archived,
		ProductIDs:  make([]uuid.UUID, 0, len(d.Products)),
		CategoryIDs: make([]uuid.UUID, 0, len(d.Categories)),
		GroupIDs:    make([]uuid.UUID, 0, len(d.ProductGroups)),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, p := range d.Products {
		dto.ProductIDs = append(dto.ProductIDs, p.ID)
	}
	for _, c := range d.Categories {
		dto.CategoryIDs = append(dto.CategoryIDs, c.ID)
	}
	for _, g := range d.ProductGroups {
		dto.GroupIDs = append(dto.GroupIDs, g.ID)
	}
	return dto
}

func toGroupDTO(g models.ProductGroup) GroupDTO {
	dto := GroupDTO{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Archived:    g.Archived,
		ProductIDs:  make([]uuid.UUID, 0, len(g.Products)),
		CreatedAt:   g.CreatedAt,
	}
	for _, p := range g.Products {
		dto.ProductIDs = append(dto.ProductIDs, p.ID)
	}
	return dto
}
