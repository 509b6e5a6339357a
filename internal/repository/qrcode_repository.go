package repository

import (
	"context"
	"errors"
	"fmt"

	customerrors "github.com/axellelanca/scanlead/internal/errors"
	"github.com/axellelanca/scanlead/internal/models"
	"gorm.io/gorm"
)

// QRCodeRepository est une interface qui définit les méthodes d'accès aux QR codes
type QRCodeRepository interface {
	CreateQRCode(ctx context.Context, qr *models.QRCode) error
	GetQRCodeByShortCode(ctx context.Context, shortCode string) (*models.QRCode, error)
	GetAllQRCodes(ctx context.Context) ([]models.QRCode, error)
	IncrementScanCount(ctx context.Context, id string) error
}

// GormQRCodeRepository est l'implémentation de QRCodeRepository utilisant GORM.
type GormQRCodeRepository struct {
	db *gorm.DB
}

// NewQRCodeRepository crée et retourne une nouvelle instance de GormQRCodeRepository.
func NewQRCodeRepository(db *gorm.DB) *GormQRCodeRepository {
	return &GormQRCodeRepository{db: db}
}

// CreateQRCode insère un nouveau QR code dans la base de données.
func (r *GormQRCodeRepository) CreateQRCode(ctx context.Context, qr *models.QRCode) error {
	if err := r.db.WithContext(ctx).Create(qr).Error; err != nil {
		return fmt.Errorf("failed to create qr code: %w", err)
	}
	return nil
}

// GetQRCodeByShortCode récupère un QR code par son shortCode.
// Returns customerrors.ErrShortCodeNotFound when no row matches.
func (r *GormQRCodeRepository) GetQRCodeByShortCode(ctx context.Context, shortCode string) (*models.QRCode, error) {
	var qr models.QRCode
	if err := r.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&qr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerrors.ErrShortCodeNotFound
		}
		return nil, fmt.Errorf("failed to get qr code %q: %w", shortCode, err)
	}
	return &qr, nil
}

// GetAllQRCodes récupère tous les QR codes.
func (r *GormQRCodeRepository) GetAllQRCodes(ctx context.Context) ([]models.QRCode, error) {
	var codes []models.QRCode
	if err := r.db.WithContext(ctx).Order("created_at").Find(&codes).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve all qr codes: %w", err)
	}
	return codes, nil
}

// IncrementScanCount adds one to the scan counter in a single UPDATE statement,
// so concurrent scans never lose an increment.
func (r *GormQRCodeRepository) IncrementScanCount(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&models.QRCode{}).
		Where("id = ?", id).
		UpdateColumn("scan_count", gorm.Expr("scan_count + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to increment scan count for qr code %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to increment scan count for qr code %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}
