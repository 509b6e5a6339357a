package models

import (
	"time"

	"gorm.io/gorm"
)

// QRCode is a persisted short link printed as a QR code.
// ScanCount is only ever changed by an atomic increment from the redirector.
type QRCode struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ShortCode  string    `gorm:"uniqueIndex;size:16;not null" json:"short_code"`
	TargetURL  string    `gorm:"not null" json:"target_url"`
	EventID    *string   `gorm:"size:36;index" json:"event_id,omitempty"`
	ScanCount  int64     `gorm:"not null;default:0" json:"scan_count"`
	TrackingID string    `gorm:"uniqueIndex;size:32;not null" json:"tracking_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for QRCode
func (QRCode) TableName() string { return "qr_codes" }

func (q *QRCode) BeforeCreate(tx *gorm.DB) error {
	newID(&q.ID)
	return nil
}
