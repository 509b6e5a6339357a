package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/axellelanca/scanlead/internal/models"
	"gorm.io/gorm"
)

// QRCodeBreakdown is one row of the per-code dashboard table.
type QRCodeBreakdown struct {
	ShortCode   string
	ScanCount   int64
	Sessions    int64
	Conversions int64
}

// StatsRepository runs the read-only aggregate queries behind the dashboard.
type StatsRepository interface {
	SumScanCounts(ctx context.Context) (int64, error)
	CountQRCodes(ctx context.Context) (int64, error)
	CountSessions(ctx context.Context) (int64, error)
	CountConvertedSessions(ctx context.Context) (int64, error)
	CountLeads(ctx context.Context) (int64, error)
	CountAttributedLeads(ctx context.Context) (int64, error)
	CountLeadsWithStatus(ctx context.Context, statusID string) (int64, error)
	FindStatusIDByName(ctx context.Context, name string) (string, error)
	RecipientStatusCounts(ctx context.Context) (map[models.DeliveryStatus]int64, error)
	QRCodeBreakdown(ctx context.Context) ([]QRCodeBreakdown, error)
}

// GormStatsRepository est l'implémentation de StatsRepository utilisant GORM.
type GormStatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository crée et retourne une nouvelle instance de GormStatsRepository.
func NewStatsRepository(db *gorm.DB) *GormStatsRepository {
	return &GormStatsRepository{db: db}
}

func (r *GormStatsRepository) SumScanCounts(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.QRCode{}).Select("COALESCE(SUM(scan_count), 0)").Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to sum scan counts: %w", err)
	}
	return total, nil
}

func (r *GormStatsRepository) CountQRCodes(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.QRCode{}, "qr codes")
}

func (r *GormStatsRepository) CountSessions(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.ScanSession{}, "scan sessions")
}

func (r *GormStatsRepository) CountConvertedSessions(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.ScanSession{}, "converted scan sessions", "lead_id IS NOT NULL")
}

func (r *GormStatsRepository) CountLeads(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.Lead{}, "leads")
}

func (r *GormStatsRepository) CountAttributedLeads(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.Lead{}, "attributed leads", "scan_session_id IS NOT NULL")
}

func (r *GormStatsRepository) CountLeadsWithStatus(ctx context.Context, statusID string) (int64, error) {
	return r.count(ctx, &models.Lead{}, "enrolled leads", "status_id = ?", statusID)
}

// FindStatusIDByName matches a lead status name case-insensitively. It returns
// an empty id when nothing matches.
func (r *GormStatsRepository) FindStatusIDByName(ctx context.Context, name string) (string, error) {
	var status models.LeadStatus
	err := r.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(name)).First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find lead status %q: %w", name, err)
	}
	return status.ID, nil
}

func (r *GormStatsRepository) RecipientStatusCounts(ctx context.Context) (map[models.DeliveryStatus]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.MessageRecipient{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count recipients by status: %w", err)
	}
	counts := make(map[models.DeliveryStatus]int64, len(rows))
	for _, row := range rows {
		counts[models.DeliveryStatus(row.Status)] = row.Total
	}
	return counts, nil
}

func (r *GormStatsRepository) QRCodeBreakdown(ctx context.Context) ([]QRCodeBreakdown, error) {
	var rows []QRCodeBreakdown
	err := r.db.WithContext(ctx).
		Table("qr_codes").
		Select(`qr_codes.short_code AS short_code,
			qr_codes.scan_count AS scan_count,
			COUNT(scan_sessions.id) AS sessions,
			COUNT(scan_sessions.lead_id) AS conversions`).
		Joins("LEFT JOIN scan_sessions ON scan_sessions.qr_code_id = qr_codes.id").
		Group("qr_codes.id, qr_codes.short_code, qr_codes.scan_count, qr_codes.created_at").
		Order("qr_codes.created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build qr code breakdown: %w", err)
	}
	return rows, nil
}

func (r *GormStatsRepository) count(ctx context.Context, model any, what string, conds ...any) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(model)
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", what, err)
	}
	return count, nil
}
