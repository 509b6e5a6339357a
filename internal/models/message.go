package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeliveryStatus is the lifecycle state of one outbound message to one lead.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
)

// ParseDeliveryStatus accepts the status names the gateway reports.
func ParseDeliveryStatus(s string) (DeliveryStatus, bool) {
	switch st := DeliveryStatus(s); st {
	case StatusPending, StatusSent, StatusDelivered, StatusFailed:
		return st, true
	}
	return "", false
}

// Terminal reports whether no transition may leave s.
func (s DeliveryStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is a forward step.
// Re-applying the current status is not a transition and returns false.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusSent || next == StatusDelivered || next == StatusFailed
	case StatusSent:
		return next == StatusDelivered || next == StatusFailed
	}
	return false
}

// Predecessors lists the states from which next may be reached.
func Predecessors(next DeliveryStatus) []DeliveryStatus {
	var from []DeliveryStatus
	for _, s := range []DeliveryStatus{StatusPending, StatusSent, StatusDelivered, StatusFailed} {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}

// MessageFilter describes which leads a dispatch targeted.
type MessageFilter struct {
	FilterType    string `json:"filter_type"`
	FilterValue   string `json:"filter_value,omitempty"`
	SendOnlyToNew bool   `json:"send_only_to_new"`
}

// MessageHistory is one dispatch request. Never mutated after creation.
type MessageHistory struct {
	ID             string                            `gorm:"primaryKey;size:36" json:"id"`
	Content        string                            `gorm:"type:text;not null" json:"content"`
	Filter         datatypes.JSONType[MessageFilter] `json:"filter"`
	DeliveryCode   string                            `gorm:"size:64;index;not null" json:"delivery_code"`
	RecipientCount int                               `json:"recipient_count"`
	CreatedAt      time.Time                         `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for MessageHistory
func (MessageHistory) TableName() string { return "message_history" }

func (m *MessageHistory) BeforeCreate(tx *gorm.DB) error {
	newID(&m.ID)
	return nil
}

// MessageRecipient tracks delivery of one MessageHistory to one Lead.
type MessageRecipient struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`
	MessageHistoryID string         `gorm:"size:36;index;not null" json:"message_history_id"`
	LeadID           string         `gorm:"size:36;not null;index:idx_recipient_code_lead,priority:2" json:"lead_id"`
	Status           DeliveryStatus `gorm:"size:16;not null;index" json:"status"`
	DeliveryCode     string         `gorm:"size:64;not null;index:idx_recipient_code_lead,priority:1" json:"delivery_code"`
	SentAt           *time.Time     `json:"sent_at,omitempty"`
	DeliveredAt      *time.Time     `json:"delivered_at,omitempty"`
	FailedAt         *time.Time     `json:"failed_at,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *MessageRecipient) BeforeCreate(tx *gorm.DB) error {
	newID(&r.ID)
	if r.Status == "" {
		r.Status = StatusPending
	}
	return nil
}

// TimestampColumn names the column stamped when a recipient enters s.
func TimestampColumn(s DeliveryStatus) string {
	switch s {
	case StatusSent:
		return "sent_at"
	case StatusDelivered:
		return "delivered_at"
	case StatusFailed:
		return "failed_at"
	}
	return ""
}
