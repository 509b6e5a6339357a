package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// newID fills an empty string primary key with a random UUID.
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// All lists every model managed by migrations, in dependency order.
func All() []any {
	return []any{
		&Event{},
		&QRCode{},
		&ScanSession{},
		&LeadStatus{},
		&Lead{},
		&MessageHistory{},
		&MessageRecipient{},
	}
}

// AutoMigrate creates or updates the tables of every model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
