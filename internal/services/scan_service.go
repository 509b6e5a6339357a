package services

import (
	"context"
	"errors"
	"strings"
	"time"

	customerrors "github.com/axellelanca/scanlead/internal/errors"
	"github.com/axellelanca/scanlead/internal/metrics"
	"github.com/axellelanca/scanlead/internal/models"
	"github.com/axellelanca/scanlead/internal/repository"
	"github.com/axellelanca/scanlead/internal/tracking"
	"go.uber.org/zap"
)

// ScanRecorder accepts scan events for asynchronous persistence.
type ScanRecorder interface {
	Enqueue(event models.ScanEvent) bool
}

// ScanMeta is the client information captured with a scan.
type ScanMeta struct {
	UserAgent string
	IPAddress string
}

// ScanService resolves short codes into tracked redirect targets.
type ScanService struct {
	qrRepo   repository.QRCodeRepository
	recorder ScanRecorder
	log      *zap.Logger
	now      func() time.Time
}

// NewScanService creates and returns a new instance of ScanService.
func NewScanService(qrRepo repository.QRCodeRepository, recorder ScanRecorder, log *zap.Logger) *ScanService {
	return &ScanService{qrRepo: qrRepo, recorder: recorder, log: log, now: time.Now}
}

// Resolve returns the URL a scan of shortCode must redirect to.
//
// The target is decided first. Counting the scan and recording the session
// come after and only log their failures, a scan is never refused because
// bookkeeping failed.
func (s *ScanService) Resolve(ctx context.Context, shortCode string, meta ScanMeta) (string, error) {
	shortCode = strings.TrimSpace(shortCode)
	if shortCode == "" {
		metrics.ScansTotal.WithLabelValues("bad_request").Inc()
		return "", customerrors.BadRequest("short code is required")
	}

	qr, err := s.qrRepo.GetQRCodeByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, customerrors.ErrShortCodeNotFound) {
			metrics.ScansTotal.WithLabelValues("not_found").Inc()
			return "", customerrors.NotFound("short url not found", err)
		}
		metrics.ScansTotal.WithLabelValues("error").Inc()
		return "", customerrors.Upstream("failed to resolve short code", err)
	}

	if strings.TrimSpace(qr.TargetURL) == "" {
		metrics.ScansTotal.WithLabelValues("error").Inc()
		return "", customerrors.Upstream("no redirect target", customerrors.ErrMissingTarget)
	}
	if err := tracking.ValidateTarget(qr.TargetURL); err != nil {
		metrics.ScansTotal.WithLabelValues("error").Inc()
		return "", customerrors.Upstream("no redirect target", errors.Join(customerrors.ErrMissingTarget, err))
	}
	trackingID := qr.TrackingID
	if trackingID == "" {
		trackingID = qr.ShortCode
	}
	target := tracking.WithTrackingParam(qr.TargetURL, trackingID)

	if err := s.qrRepo.IncrementScanCount(ctx, qr.ID); err != nil {
		s.log.Error("failed to increment scan count", zap.String("short_code", shortCode), zap.Error(err))
	}

	event := models.ScanEvent{
		QRCodeID:   qr.ID,
		EventID:    qr.EventID,
		TrackingID: trackingID,
		Timestamp:  s.now(),
		UserAgent:  meta.UserAgent,
		IPAddress:  meta.IPAddress,
	}
	if !s.recorder.Enqueue(event) {
		s.log.Warn("scan event dropped, session not recorded",
			zap.String("short_code", shortCode), zap.String("qr_code_id", qr.ID))
	}

	metrics.ScansTotal.WithLabelValues("redirected").Inc()
	return target, nil
}
