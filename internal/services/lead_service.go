package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	customerrors "github.com/axellelanca/scanlead/internal/errors"
	"github.com/axellelanca/scanlead/internal/metrics"
	"github.com/axellelanca/scanlead/internal/models"
	"github.com/axellelanca/scanlead/internal/repository"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CaptureInput is a form submission from the landing page.
type CaptureInput struct {
	Name                 string `json:"name" validate:"required"`
	Whatsapp             string `json:"whatsapp" validate:"required"`
	Email                string `json:"email" validate:"required"`
	EventName            string `json:"eventName"`
	TrackingID           string `json:"trackingId"`
	CourseID             string `json:"courseId"`
	PostgraduateCourseID string `json:"postgraduateCourseId"`
	CourseType           string `json:"courseType"`
	ScanSessionID        string `json:"scanSessionId"`
}

// CaptureResult is returned for every successful submission, attributed or not.
type CaptureResult struct {
	LeadID        string
	ScanSessionID string
	Attributed    bool
}

// LeadService turns form submissions into leads and attributes them to the
// scan session that brought the prospect in.
type LeadService struct {
	db       *gorm.DB
	leads    repository.LeadRepository
	sessions repository.ScanSessionRepository
	events   repository.EventRepository
	validate *validator.Validate
	window   time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewLeadService creates a LeadService. Sessions older than window are no
// longer claimed by tracking id or event name.
func NewLeadService(
	db *gorm.DB,
	leads repository.LeadRepository,
	sessions repository.ScanSessionRepository,
	events repository.EventRepository,
	window time.Duration,
	log *zap.Logger,
) *LeadService {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &LeadService{
		db:       db,
		leads:    leads,
		sessions: sessions,
		events:   events,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		window:   window,
		log:      log,
		now:      time.Now,
	}
}

// Capture validates in, creates the lead and claims the matching scan session
// if it is still unattributed. Losing the claim to a concurrent submission is
// not an error: the lead is still created, just without attribution.
func (s *LeadService) Capture(ctx context.Context, in CaptureInput) (*CaptureResult, error) {
	lead, err := s.buildLead(in)
	if err != nil {
		return nil, err
	}

	var eventID *string
	if name := strings.TrimSpace(in.EventName); name != "" {
		event, err := s.events.FindEventByName(ctx, name)
		if err != nil {
			return nil, customerrors.Upstream("failed to resolve event", err)
		}
		if event != nil {
			eventID = &event.ID
		}
	}

	session, err := s.resolveSession(ctx, in, eventID)
	if err != nil {
		return nil, customerrors.Upstream("failed to resolve scan session", err)
	}

	lead.EventID = eventID
	if lead.EventID == nil && session != nil {
		lead.EventID = session.EventID
	}

	result := &CaptureResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		leads := s.leads.WithTx(tx)
		if err := leads.CreateLead(ctx, lead); err != nil {
			return err
		}
		result.LeadID = lead.ID

		if session == nil {
			return nil
		}
		claimed, err := s.sessions.WithTx(tx).ClaimForLead(ctx, session.ID, lead.ID)
		if err != nil {
			return err
		}
		if !claimed {
			s.log.Info("scan session already attributed, lead left unattributed",
				zap.String("scan_session_id", session.ID), zap.String("lead_id", lead.ID))
			return nil
		}
		if err := leads.SetScanSession(ctx, lead.ID, session.ID); err != nil {
			return err
		}
		result.Attributed = true
		result.ScanSessionID = session.ID
		return nil
	})
	if err != nil {
		return nil, customerrors.Upstream("failed to create lead", err)
	}

	metrics.LeadsCapturedTotal.WithLabelValues(fmt.Sprint(result.Attributed)).Inc()
	s.log.Info("lead captured",
		zap.String("lead_id", result.LeadID),
		zap.Bool("attributed", result.Attributed),
		zap.String("scan_session_id", result.ScanSessionID))
	return result, nil
}

func (s *LeadService) buildLead(in CaptureInput) (*models.Lead, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Whatsapp = strings.TrimSpace(in.Whatsapp)
	in.Email = strings.TrimSpace(in.Email)
	in.CourseID = strings.TrimSpace(in.CourseID)
	in.PostgraduateCourseID = strings.TrimSpace(in.PostgraduateCourseID)

	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	whatsapp := repository.DigitsOnly(in.Whatsapp)
	if whatsapp == "" {
		return nil, customerrors.Validation("whatsapp must contain digits")
	}

	courseType := models.CourseType(strings.ToLower(strings.TrimSpace(in.CourseType)))
	if courseType == "" {
		courseType = models.CourseTypeGraduation
	}
	if !courseType.Valid() {
		return nil, customerrors.Validation(fmt.Sprintf("courseType must be %q or %q", models.CourseTypeGraduation, models.CourseTypePostgraduate))
	}

	lead := &models.Lead{
		Name:       in.Name,
		Whatsapp:   whatsapp,
		Email:      in.Email,
		CourseType: courseType,
	}
	switch courseType {
	case models.CourseTypeGraduation:
		if in.PostgraduateCourseID != "" {
			return nil, customerrors.Validation("postgraduateCourseId cannot be combined with a graduation course")
		}
		lead.CourseID = optional(in.CourseID)
	case models.CourseTypePostgraduate:
		if in.CourseID != "" {
			return nil, customerrors.Validation("courseId cannot be combined with a postgraduate course")
		}
		lead.PostgraduateCourseID = optional(in.PostgraduateCourseID)
	}
	return lead, nil
}

// resolveSession finds the scan session a submission may claim: an explicit
// session id first, then the newest open session for the tracking id, then the
// newest open session of the event.
func (s *LeadService) resolveSession(ctx context.Context, in CaptureInput, eventID *string) (*models.ScanSession, error) {
	if id := strings.TrimSpace(in.ScanSessionID); id != "" {
		session, err := s.sessions.GetScanSession(ctx, id)
		if err != nil || session != nil {
			return session, err
		}
	}

	since := s.now().Add(-s.window)
	if trackingID := strings.TrimSpace(in.TrackingID); trackingID != "" {
		session, err := s.sessions.FindOpenByTrackingID(ctx, trackingID, since)
		if err != nil || session != nil {
			return session, err
		}
	}

	if eventID != nil {
		return s.sessions.FindOpenByEventID(ctx, *eventID, since)
	}
	return nil, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// validationError flattens validator output into one user-facing message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return customerrors.Validation(err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, jsonName(fe.Field()))
	}
	return customerrors.Validation("missing required fields: " + strings.Join(fields, ", "))
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
