package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog entry. Sellers attach prices to it.
type Product struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string          `gorm:"column:name;not null"`
	Description    *string         `gorm:"column:description"`
	CategoryID     uuid.UUID       `gorm:"column:category_id;type:uuid;not null"`
	Archived       bool            `gorm:"column:archived;not null;default:false"`
	Prices         []Price         `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Specifications []Specification `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Specification is a name/value attribute shown on product detail.
type Specification struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name      string    `gorm:"column:name;not null"`
	Value     string    `gorm:"column:value;not null"`
}

func (s *Specification) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
