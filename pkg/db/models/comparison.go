package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comparison is a product a user placed on their comparison list.
type Comparison struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:comparisons_user_product_key"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:comparisons_user_product_key"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *Comparison) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
