package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Seller lists prices for catalog products.
type Seller struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      *uuid.UUID `gorm:"column:user_id;type:uuid"`
	Name        string     `gorm:"column:name;not null"`
	Description *string    `gorm:"column:description"`
	Archived    bool       `gorm:"column:archived;not null;default:false"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (s *Seller) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
