package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/axellelanca/scanlead/internal/models"
	"gorm.io/gorm"
)

// LeadFilter selects dispatch targets. An empty CourseType means every lead.
type LeadFilter struct {
	CourseType    models.CourseType
	CourseID      string
	OnlyNeverSent bool
}

// LeadRepository est une interface qui définit les méthodes d'accès aux leads
type LeadRepository interface {
	WithTx(tx *gorm.DB) LeadRepository
	CreateLead(ctx context.Context, lead *models.Lead) error
	SetScanSession(ctx context.Context, leadID, sessionID string) error
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	FindLeadIDsByContact(ctx context.Context, identifier string) ([]string, error)
	FindLeadIDs(ctx context.Context, filter LeadFilter) ([]string, error)
}

// GormLeadRepository est l'implémentation de LeadRepository utilisant GORM.
type GormLeadRepository struct {
	db *gorm.DB
}

// NewLeadRepository crée et retourne une nouvelle instance de GormLeadRepository.
func NewLeadRepository(db *gorm.DB) *GormLeadRepository {
	return &GormLeadRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *GormLeadRepository) WithTx(tx *gorm.DB) LeadRepository {
	return &GormLeadRepository{db: tx}
}

// CreateLead insère un nouveau lead.
func (r *GormLeadRepository) CreateLead(ctx context.Context, lead *models.Lead) error {
	if err := r.db.WithContext(ctx).Create(lead).Error; err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// SetScanSession records the session a lead was attributed to. It only runs
// inside the transaction that created the lead.
func (r *GormLeadRepository) SetScanSession(ctx context.Context, leadID, sessionID string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("id = ? AND scan_session_id IS NULL", leadID).
		UpdateColumn("scan_session_id", sessionID).Error
	if err != nil {
		return fmt.Errorf("failed to link lead %s to scan session %s: %w", leadID, sessionID, err)
	}
	return nil
}

// GetLead returns the lead with the given id, or (nil, nil) when absent.
func (r *GormLeadRepository) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lead %s: %w", id, err)
	}
	return &lead, nil
}

// FindLeadIDsByContact resolves the alternate identifiers a gateway knows a
// lead by: the whatsapp number (digits compared only) or the email address.
// The same person may have submitted more than once, so every match is returned.
func (r *GormLeadRepository) FindLeadIDsByContact(ctx context.Context, identifier string) ([]string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}

	q := r.db.WithContext(ctx).Model(&models.Lead{})
	if strings.Contains(identifier, "@") {
		q = q.Where("LOWER(email) = ?", strings.ToLower(identifier))
	} else {
		digits := DigitsOnly(identifier)
		if digits == "" {
			return nil, nil
		}
		q = q.Where("whatsapp = ?", digits)
	}

	var ids []string
	if err := q.Order("created_at DESC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to find lead by contact: %w", err)
	}
	return ids, nil
}

// FindLeadIDs returns the ids of the leads matching filter.
func (r *GormLeadRepository) FindLeadIDs(ctx context.Context, filter LeadFilter) ([]string, error) {
	q := r.db.WithContext(ctx).Model(&models.Lead{})

	switch filter.CourseType {
	case models.CourseTypeGraduation:
		q = q.Where("course_type = ?", string(models.CourseTypeGraduation))
		if filter.CourseID != "" {
			q = q.Where("course_id = ?", filter.CourseID)
		}
	case models.CourseTypePostgraduate:
		q = q.Where("course_type = ?", string(models.CourseTypePostgraduate))
		if filter.CourseID != "" {
			q = q.Where("postgraduate_course_id = ?", filter.CourseID)
		}
	}

	if filter.OnlyNeverSent {
		q = q.Where("NOT EXISTS (?)",
			r.db.Model(&models.MessageRecipient{}).Select("1").Where("message_recipients.lead_id = leads.id"))
	}

	var ids []string
	if err := q.Order("created_at").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve target leads: %w", err)
	}
	return ids, nil
}

// DigitsOnly strips everything but 0-9 from a phone number.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
