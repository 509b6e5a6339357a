package services

import (
	"context"
	"math"

	"github.com/axellelanca/scanlead/internal/models"
	"github.com/axellelanca/scanlead/internal/repository"
	"go.uber.org/zap"
)

// EnrolledStatusLabel is matched case-insensitively against lead status names
// when no enrolled status id is configured.
const EnrolledStatusLabel = "Enrolled"

// QRCodeSummary is one QR code row on the dashboard.
type QRCodeSummary struct {
	ShortCode      string  `json:"short_code"`
	ScanCount      int64   `json:"scan_count"`
	Sessions       int64   `json:"sessions"`
	Conversions    int64   `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Dashboard holds the derived pipeline figures. Any figure whose query failed
// is left at zero.
type Dashboard struct {
	TotalQRCodes      int64                           `json:"total_qr_codes"`
	TotalScans        int64                           `json:"total_scans"`
	TotalSessions     int64                           `json:"total_sessions"`
	ConvertedSessions int64                           `json:"converted_sessions"`
	ConversionRate    float64                         `json:"conversion_rate"`
	TotalLeads        int64                           `json:"total_leads"`
	AttributedLeads   int64                           `json:"attributed_leads"`
	EnrolledLeads     int64                           `json:"enrolled_leads"`
	EnrollmentRate    float64                         `json:"enrollment_rate"`
	TotalRecipients   int64                           `json:"total_recipients"`
	Recipients        map[models.DeliveryStatus]int64 `json:"recipients"`
	DeliveryRate      int64                           `json:"delivery_rate"`
	QRCodes           []QRCodeSummary                 `json:"qr_codes"`
}

// MetricsService derives dashboard figures. It never writes and never fails:
// a broken query is logged and its figure stays zero.
type MetricsService struct {
	stats            repository.StatsRepository
	enrolledStatusID string
	log              *zap.Logger
}

// NewMetricsService creates a MetricsService. enrolledStatusID may be empty.
func NewMetricsService(stats repository.StatsRepository, enrolledStatusID string, log *zap.Logger) *MetricsService {
	return &MetricsService{stats: stats, enrolledStatusID: enrolledStatusID, log: log}
}

// Dashboard computes every figure.
func (s *MetricsService) Dashboard(ctx context.Context) *Dashboard {
	d := &Dashboard{Recipients: map[models.DeliveryStatus]int64{}}

	d.TotalQRCodes = s.count(ctx, "qr_codes", s.stats.CountQRCodes)
	scanCounter := s.count(ctx, "scan_count_sum", s.stats.SumScanCounts)
	d.TotalSessions = s.count(ctx, "scan_sessions", s.stats.CountSessions)
	d.ConvertedSessions = s.count(ctx, "converted_sessions", s.stats.CountConvertedSessions)
	d.TotalLeads = s.count(ctx, "leads", s.stats.CountLeads)
	d.AttributedLeads = s.count(ctx, "attributed_leads", s.stats.CountAttributedLeads)

	// counter and session rows can each lag the other, trust the larger
	d.TotalScans = max(scanCounter, d.TotalSessions)
	d.ConversionRate = percent(d.ConvertedSessions, d.TotalScans)

	if statusID := s.enrolledStatus(ctx); statusID != "" {
		d.EnrolledLeads = s.count(ctx, "enrolled_leads", func(ctx context.Context) (int64, error) {
			return s.stats.CountLeadsWithStatus(ctx, statusID)
		})
	}
	d.EnrollmentRate = percent(d.EnrolledLeads, d.TotalLeads)

	if counts, err := s.stats.RecipientStatusCounts(ctx); err != nil {
		s.log.Error("dashboard query failed", zap.String("figure", "recipients"), zap.Error(err))
	} else {
		for status, n := range counts {
			d.Recipients[status] = n
			d.TotalRecipients += n
		}
	}
	if d.TotalRecipients > 0 {
		reached := d.Recipients[models.StatusDelivered] + d.Recipients[models.StatusSent]
		d.DeliveryRate = int64(math.Round(float64(reached) / float64(d.TotalRecipients) * 100))
	}

	if rows, err := s.stats.QRCodeBreakdown(ctx); err != nil {
		s.log.Error("dashboard query failed", zap.String("figure", "qr_codes"), zap.Error(err))
	} else {
		for _, row := range rows {
			d.QRCodes = append(d.QRCodes, QRCodeSummary{
				ShortCode:      row.ShortCode,
				ScanCount:      row.ScanCount,
				Sessions:       row.Sessions,
				Conversions:    row.Conversions,
				ConversionRate: percent(row.Conversions, max(row.ScanCount, row.Sessions)),
			})
		}
	}

	return d
}

func (s *MetricsService) enrolledStatus(ctx context.Context) string {
	if s.enrolledStatusID != "" {
		return s.enrolledStatusID
	}
	id, err := s.stats.FindStatusIDByName(ctx, EnrolledStatusLabel)
	if err != nil {
		s.log.Error("dashboard query failed", zap.String("figure", "enrolled_status"), zap.Error(err))
		return ""
	}
	return id
}

func (s *MetricsService) count(ctx context.Context, figure string, fn func(context.Context) (int64, error)) int64 {
	n, err := fn(ctx)
	if err != nil {
		s.log.Error("dashboard query failed", zap.String("figure", figure), zap.Error(err))
		return 0
	}
	return n
}

// percent returns part/total*100 rounded to two decimals, 0 when total is 0.
func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}
