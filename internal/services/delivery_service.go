package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	customerrors "github.com/axellelanca/scanlead/internal/errors"
	"github.com/axellelanca/scanlead/internal/metrics"
	"github.com/axellelanca/scanlead/internal/models"
	"github.com/axellelanca/scanlead/internal/repository"
	"go.uber.org/zap"
)

// ConfirmInput is a delivery status callback from the gateway.
type ConfirmInput struct {
	DeliveryCode   string `json:"delivery_code"`
	LeadIdentifier string `json:"lead_identifier"`
	Status         string `json:"status"`
}

// ConfirmResult is the recipient after the callback was applied. Changed is
// false when the recipient was already in the reported state.
// Rejected is set when the recipient already sits in a state the callback
// cannot leave; Reason then says why and the row is left untouched.
type ConfirmResult struct {
	Recipient *models.MessageRecipient
	Changed   bool
	Rejected  bool
	Reason    string
}

// DeliveryService applies gateway callbacks to MessageRecipient rows.
type DeliveryService struct {
	leads    repository.LeadRepository
	messages repository.MessageRepository
	log      *zap.Logger
	now      func() time.Time
}

// NewDeliveryService creates and returns a new instance of DeliveryService.
func NewDeliveryService(leads repository.LeadRepository, messages repository.MessageRepository, log *zap.Logger) *DeliveryService {
	return &DeliveryService{leads: leads, messages: messages, log: log, now: time.Now}
}

// Confirm moves the recipient identified by (delivery code, lead) to the
// reported status, `delivered` when none is given. Repeating a callback is a
// successful no-op; a callback that would leave a terminal state, or go
// backwards, comes back with Rejected set and the row is left untouched.
func (s *DeliveryService) Confirm(ctx context.Context, in ConfirmInput) (*ConfirmResult, error) {
	code := strings.TrimSpace(in.DeliveryCode)
	identifier := strings.TrimSpace(in.LeadIdentifier)
	if code == "" || identifier == "" {
		metrics.DeliveryCallbacksTotal.WithLabelValues("bad_request").Inc()
		return nil, customerrors.BadRequest("delivery_code and lead_identifier are required")
	}

	status := models.StatusDelivered
	if raw := strings.ToLower(strings.TrimSpace(in.Status)); raw != "" {
		parsed, ok := models.ParseDeliveryStatus(raw)
		if !ok || parsed == models.StatusPending {
			metrics.DeliveryCallbacksTotal.WithLabelValues("bad_request").Inc()
			return nil, customerrors.BadRequest(fmt.Sprintf("unsupported status %q", in.Status))
		}
		status = parsed
	}

	rec, err := s.findRecipient(ctx, code, identifier)
	if err != nil {
		metrics.DeliveryCallbacksTotal.WithLabelValues("error").Inc()
		return nil, customerrors.Upstream("failed to resolve recipient", err)
	}
	if rec == nil {
		metrics.DeliveryCallbacksTotal.WithLabelValues("not_found").Inc()
		s.log.Warn("delivery callback matched no recipient",
			zap.String("delivery_code", code), zap.String("lead_identifier", identifier))
		return nil, customerrors.NotFound("recipient not found for delivery code and lead", nil)
	}

	if rec.Status == status {
		metrics.DeliveryCallbacksTotal.WithLabelValues("noop").Inc()
		return &ConfirmResult{Recipient: rec, Changed: false}, nil
	}

	moved, err := s.messages.TransitionRecipient(ctx, rec.ID, status, s.now())
	if err != nil {
		metrics.DeliveryCallbacksTotal.WithLabelValues("error").Inc()
		return nil, customerrors.Upstream("failed to update recipient", err)
	}

	current, err := s.messages.GetRecipient(ctx, rec.ID)
	if err != nil {
		metrics.DeliveryCallbacksTotal.WithLabelValues("error").Inc()
		return nil, customerrors.Upstream("failed to reload recipient", err)
	}

	if !moved {
		// lost a race with another callback, or the move is not allowed
		if current.Status == status {
			metrics.DeliveryCallbacksTotal.WithLabelValues("noop").Inc()
			return &ConfirmResult{Recipient: current, Changed: false}, nil
		}
		metrics.DeliveryCallbacksTotal.WithLabelValues("conflict").Inc()
		s.log.Warn("rejected delivery status transition",
			zap.String("recipient_id", current.ID),
			zap.String("from", string(current.Status)),
			zap.String("to", string(status)))
		return &ConfirmResult{
			Recipient: current,
			Rejected:  true,
			Reason:    fmt.Sprintf("recipient is %s and cannot move to %s", current.Status, status),
		}, nil
	}

	metrics.DeliveryCallbacksTotal.WithLabelValues("applied").Inc()
	s.log.Info("delivery status updated",
		zap.String("recipient_id", current.ID),
		zap.String("delivery_code", code),
		zap.String("status", string(current.Status)))
	return &ConfirmResult{Recipient: current, Changed: true}, nil
}

// findRecipient resolves the lead identifier as a lead id first, then as a
// whatsapp number or email the gateway knows the lead by.
func (s *DeliveryService) findRecipient(ctx context.Context, code, identifier string) (*models.MessageRecipient, error) {
	if _, err := uuid.Parse(identifier); err == nil {
		rec, err := s.messages.FindRecipient(ctx, code, identifier)
		if err != nil || rec != nil {
			return rec, err
		}
	}

	leadIDs, err := s.leads.FindLeadIDsByContact(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return s.messages.FindRecipient(ctx, code, leadIDs...)
}
