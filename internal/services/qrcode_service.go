// Package services contains the business logic of the scan-to-lead pipeline.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	customerrors "github.com/axellelanca/scanlead/internal/errors"
	"github.com/axellelanca/scanlead/internal/models"
	"github.com/axellelanca/scanlead/internal/repository"
	"github.com/axellelanca/scanlead/internal/tracking"
	"go.uber.org/zap"
)

// maxShortCodeRetries bounds the attempts to find an unused short code.
const maxShortCodeRetries = 5

// QRCodeStats is the per-code view used by the stats endpoint and CLI.
type QRCodeStats struct {
	QRCode      *models.QRCode
	Sessions    int64
	Conversions int64
}

// QRCodeService manages the short links printed as QR codes.
type QRCodeService struct {
	qrRepo    repository.QRCodeRepository
	eventRepo repository.EventRepository
	sessions  repository.ScanSessionRepository
	ids       *tracking.Generator
	log       *zap.Logger

	newCode func() (string, error)
}

// NewQRCodeService creates and returns a new instance of QRCodeService.
func NewQRCodeService(
	qrRepo repository.QRCodeRepository,
	eventRepo repository.EventRepository,
	sessions repository.ScanSessionRepository,
	ids *tracking.Generator,
	log *zap.Logger,
) *QRCodeService {
	return &QRCodeService{
		qrRepo:    qrRepo,
		eventRepo: eventRepo,
		sessions:  sessions,
		ids:       ids,
		log:       log,
		newCode:   tracking.NewShortCode,
	}
}

// CreateQRCode creates a QR code for targetURL, optionally attached to the
// event named eventName (created on first use). Short code collisions and
// codes shadowed by a root route are retried up to maxShortCodeRetries times.
func (s *QRCodeService) CreateQRCode(ctx context.Context, targetURL, eventName string) (*models.QRCode, error) {
	targetURL = strings.TrimSpace(targetURL)
	if err := tracking.ValidateTarget(targetURL); err != nil {
		return nil, customerrors.Validation(fmt.Sprintf("invalid target url: %v", err))
	}

	var eventID *string
	if name := strings.TrimSpace(eventName); name != "" {
		event, err := s.eventRepo.EnsureEvent(ctx, name)
		if err != nil {
			return nil, customerrors.Upstream("failed to resolve event", err)
		}
		eventID = &event.ID
	}

	var shortCode string
	for i := 0; i < maxShortCodeRetries; i++ {
		code, err := s.newCode()
		if err != nil {
			return nil, customerrors.Upstream("failed to generate short code", err)
		}
		if tracking.IsReservedShortCode(code) {
			s.log.Warn("short code is a reserved route, retrying",
				zap.String("short_code", code), zap.Int("attempt", i+1), zap.Int("max", maxShortCodeRetries))
			continue
		}

		_, err = s.qrRepo.GetQRCodeByShortCode(ctx, code)
		if errors.Is(err, customerrors.ErrShortCodeNotFound) {
			shortCode = code
			break
		}
		if err != nil {
			return nil, customerrors.Upstream("database error checking short code uniqueness", err)
		}
		s.log.Warn("short code already exists, retrying",
			zap.String("short_code", code), zap.Int("attempt", i+1), zap.Int("max", maxShortCodeRetries))
	}
	if shortCode == "" {
		return nil, customerrors.Upstream("could not allocate a short code", customerrors.ErrShortCodeGenerationFailed)
	}

	qr := &models.QRCode{
		ShortCode:  shortCode,
		TargetURL:  targetURL,
		EventID:    eventID,
		TrackingID: s.ids.NewTrackingID(),
	}
	if err := s.qrRepo.CreateQRCode(ctx, qr); err != nil {
		return nil, customerrors.Upstream("failed to create qr code", err)
	}
	s.log.Info("qr code created", zap.String("short_code", qr.ShortCode), zap.String("tracking_id", qr.TrackingID))
	return qr, nil
}

// GetQRCodeStats returns a QR code with its session and conversion counts.
func (s *QRCodeService) GetQRCodeStats(ctx context.Context, shortCode string) (*QRCodeStats, error) {
	qr, err := s.qrRepo.GetQRCodeByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, customerrors.ErrShortCodeNotFound) {
			return nil, customerrors.NotFound("short code not found", err)
		}
		return nil, customerrors.Upstream("failed to load qr code", err)
	}

	sessions, err := s.sessions.CountByQRCodeID(ctx, qr.ID)
	if err != nil {
		return nil, customerrors.Upstream("failed to count scan sessions", err)
	}

	conversions, err := s.sessions.CountConvertedByQRCodeID(ctx, qr.ID)
	if err != nil {
		return nil, customerrors.Upstream("failed to count conversions", err)
	}

	return &QRCodeStats{QRCode: qr, Sessions: sessions, Conversions: conversions}, nil
}
