package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Discount is a pricing rule. Kind scopes where it applies and Method
// decides how Value changes a price.
type Discount struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string               `gorm:"column:name;not null"`
	Description   *string              `gorm:"column:description"`
	Kind          enums.DiscountKind   `gorm:"column:kind;not null"`
	Method        enums.DiscountMethod `gorm:"column:method;not null"`
	Priority      int                  `gorm:"column:priority;not null;default:0"`
	Value         decimal.Decimal      `gorm:"column:value;type:numeric(10,2);not null;default:0"`
	QuantityGT    *int                 `gorm:"column:quantity_gt"`
	QuantityLT    *int                 `gorm:"column:quantity_lt"`
	TotalGT       *decimal.Decimal     `gorm:"column:total_gt;type:numeric(10,2)"`
	StartDate     time.Time            `gorm:"column:start_date;type:date;not null"`
	EndDate       time.Time            `gorm:"column:end_date;type:date;not null"`
	IsActive      bool                 `gorm:"column:is_active;not null"`
	Archived      bool                 `gorm:"column:archived;not null;default:false"`
	Products      []Product            `gorm:"many2many:discounts_products;joinForeignKey:discount_id;joinReferences:product_id"`
	Categories    []Category           `gorm:"many2many:discounts_categories;joinForeignKey:discount_id;joinReferences:category_id"`
	ProductGroups []ProductGroup       `gorm:"many2many:discounts_groups;joinForeignKey:discount_id;joinReferences:product_group_id"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Discount) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// ProductGroup is a curated product set that SET discounts target.
type ProductGroup struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description *string   `gorm:"column:description"`
	Archived    bool      `gorm:"column:archived;not null;default:false"`
	Products    []Product `gorm:"many2many:discount_groups_products;joinForeignKey:product_group_id;joinReferences:product_id"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ProductGroup) TableName() string {
	return "discount_groups"
}

func (g *ProductGroup) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
