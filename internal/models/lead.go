package models

import (
	"time"

	"gorm.io/gorm"
)

// CourseType is the interest category a lead selected. The two kinds are
// mutually exclusive: a lead references a course id of exactly one kind.
type CourseType string

const (
	CourseTypeGraduation   CourseType = "graduation"
	CourseTypePostgraduate CourseType = "postgraduate"
)

// Valid reports whether t is one of the known kinds.
func (t CourseType) Valid() bool {
	return t == CourseTypeGraduation || t == CourseTypePostgraduate
}

// Lead is a captured prospect.
type Lead struct {
	ID                   string     `gorm:"primaryKey;size:36" json:"id"`
	Name                 string     `gorm:"size:255;not null" json:"name"`
	Whatsapp             string     `gorm:"size:32;not null;index" json:"whatsapp"`
	Email                string     `gorm:"size:255;not null;index" json:"email"`
	CourseType           CourseType `gorm:"size:16;not null;index" json:"course_type"`
	CourseID             *string    `gorm:"size:64;index" json:"course_id,omitempty"`
	PostgraduateCourseID *string    `gorm:"size:64;index" json:"postgraduate_course_id,omitempty"`
	EventID              *string    `gorm:"size:36;index" json:"event_id,omitempty"`
	ScanSessionID        *string    `gorm:"size:36;index" json:"scan_session_id,omitempty"`
	StatusID             *string    `gorm:"size:36;index" json:"status_id,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	newID(&l.ID)
	return nil
}

// LeadStatus is a pipeline stage label maintained by the CRUD screens.
type LeadStatus struct {
	ID   string `gorm:"primaryKey;size:36" json:"id"`
	Name string `gorm:"size:100;not null" json:"name"`
}

// TableName returns the table name for LeadStatus
func (LeadStatus) TableName() string { return "lead_statuses" }

func (s *LeadStatus) BeforeCreate(tx *gorm.DB) error {
	newID(&s.ID)
	return nil
}
