package models

import (
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
)

// ScanSession records one resolved scan of a QRCode.
// LeadID is written at most once, by a conditional update that requires it to be NULL.
type ScanSession struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	QRCodeID   string    `gorm:"column:qr_code_id;size:36;index;not null" json:"qr_code_id"`
	EventID    *string   `gorm:"size:36;index" json:"event_id,omitempty"`
	TrackingID string    `gorm:"size:32;index" json:"tracking_id"`
	UserAgent  string    `gorm:"size:255" json:"user_agent"`
	IPAddress  string    `gorm:"size:50" json:"ip_address"`
	LeadID     *string   `gorm:"size:36;index" json:"lead_id,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (s *ScanSession) BeforeCreate(tx *gorm.DB) error {
	newID(&s.ID)
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	return nil
}

// ScanEvent is the lightweight record handed from the redirect handler to the
// scan workers. It carries everything needed to build a ScanSession later.
type ScanEvent struct {
	QRCodeID   string
	EventID    *string
	TrackingID string
	Timestamp  time.Time
	UserAgent  string
	IPAddress  string
}

// Session converts the event into the row the workers persist.
func (e ScanEvent) Session() *ScanSession {
	return &ScanSession{
		QRCodeID:   e.QRCodeID,
		EventID:    e.EventID,
		TrackingID: e.TrackingID,
		UserAgent:  truncate(e.UserAgent, 255),
		IPAddress:  truncate(e.IPAddress, 50),
		CreatedAt:  e.Timestamp,
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
