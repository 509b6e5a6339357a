package models

import (
	"time"

	"gorm.io/gorm"
)

// Event is the campaign or open day a QR code and its leads belong to.
type Event struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Slug      string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	newID(&e.ID)
	return nil
}
