package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/axellelanca/scanlead/internal/models"
	"gorm.io/gorm"
)

// ScanSessionRepository est une interface qui définit les méthodes d'accès aux sessions de scan
type ScanSessionRepository interface {
	WithTx(tx *gorm.DB) ScanSessionRepository
	CreateScanSession(ctx context.Context, session *models.ScanSession) error
	GetScanSession(ctx context.Context, id string) (*models.ScanSession, error)
	FindOpenByTrackingID(ctx context.Context, trackingID string, since time.Time) (*models.ScanSession, error)
	FindOpenByEventID(ctx context.Context, eventID string, since time.Time) (*models.ScanSession, error)
	ClaimForLead(ctx context.Context, sessionID, leadID string) (bool, error)
	CountByQRCodeID(ctx context.Context, qrCodeID string) (int64, error)
	CountConvertedByQRCodeID(ctx context.Context, qrCodeID string) (int64, error)
}

// GormScanSessionRepository est l'implémentation de ScanSessionRepository utilisant GORM.
type GormScanSessionRepository struct {
	db *gorm.DB
}

// NewScanSessionRepository crée et retourne une nouvelle instance de GormScanSessionRepository.
func NewScanSessionRepository(db *gorm.DB) *GormScanSessionRepository {
	return &GormScanSessionRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *GormScanSessionRepository) WithTx(tx *gorm.DB) ScanSessionRepository {
	return &GormScanSessionRepository{db: tx}
}

// CreateScanSession insère une nouvelle session de scan.
func (r *GormScanSessionRepository) CreateScanSession(ctx context.Context, session *models.ScanSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create scan session: %w", err)
	}
	return nil
}

// GetScanSession returns the session with the given id, or (nil, nil) when absent.
func (r *GormScanSessionRepository) GetScanSession(ctx context.Context, id string) (*models.ScanSession, error) {
	var session models.ScanSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scan session %s: %w", id, err)
	}
	return &session, nil
}

// FindOpenByTrackingID returns the most recent unattributed session for
// trackingID created after since, or (nil, nil).
func (r *GormScanSessionRepository) FindOpenByTrackingID(ctx context.Context, trackingID string, since time.Time) (*models.ScanSession, error) {
	return r.findOpen(ctx, "tracking_id = ?", trackingID, since)
}

// FindOpenByEventID returns the most recent unattributed session of an event
// created after since, or (nil, nil).
func (r *GormScanSessionRepository) FindOpenByEventID(ctx context.Context, eventID string, since time.Time) (*models.ScanSession, error) {
	return r.findOpen(ctx, "event_id = ?", eventID, since)
}

func (r *GormScanSessionRepository) findOpen(ctx context.Context, cond string, arg any, since time.Time) (*models.ScanSession, error) {
	var session models.ScanSession
	err := r.db.WithContext(ctx).
		Where(cond, arg).
		Where("lead_id IS NULL").
		Where("created_at >= ?", since).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find open scan session: %w", err)
	}
	return &session, nil
}

// ClaimForLead attributes the session to leadID only if it has no lead yet.
// The check and the write are one UPDATE, so of two concurrent claims exactly
// one reports true.
func (r *GormScanSessionRepository) ClaimForLead(ctx context.Context, sessionID, leadID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ScanSession{}).
		Where("id = ? AND lead_id IS NULL", sessionID).
		UpdateColumn("lead_id", leadID)
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim scan session %s: %w", sessionID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// CountByQRCodeID compte le nombre de sessions pour un QR code donné.
func (r *GormScanSessionRepository) CountByQRCodeID(ctx context.Context, qrCodeID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ScanSession{}).Where("qr_code_id = ?", qrCodeID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count scan sessions for qr code %s: %w", qrCodeID, err)
	}
	return count, nil
}

// CountConvertedByQRCodeID compte les sessions d'un QR code rattachées à un lead.
func (r *GormScanSessionRepository) CountConvertedByQRCodeID(ctx context.Context, qrCodeID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ScanSession{}).
		Where("qr_code_id = ? AND lead_id IS NOT NULL", qrCodeID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count converted sessions for qr code %s: %w", qrCodeID, err)
	}
	return count, nil
}
