package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	customerrors "github.com/axellelanca/scanlead/internal/errors"
	"github.com/axellelanca/scanlead/internal/gateway"
	"github.com/axellelanca/scanlead/internal/metrics"
	"github.com/axellelanca/scanlead/internal/models"
	"github.com/axellelanca/scanlead/internal/repository"
	"github.com/axellelanca/scanlead/internal/tracking"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Filter types accepted by Dispatch.
const (
	FilterAll          = "all"
	FilterGraduation   = string(models.CourseTypeGraduation)
	FilterPostgraduate = string(models.CourseTypePostgraduate)
)

// DispatchInput is a bulk message request from staff.
type DispatchInput struct {
	Content       string `json:"content"`
	FilterType    string `json:"filter_type"`
	FilterValue   string `json:"filter_value"`
	SendOnlyToNew bool   `json:"send_only_to_new"`
}

// DispatchResult describes an accepted dispatch.
type DispatchResult struct {
	MessageHistoryID string
	DeliveryCode     string
	RecipientCount   int
}

// GatewaySettings is the slice of configuration the dispatcher needs.
type GatewaySettings struct {
	URL         string
	CallbackURL string
}

// DispatchService records a bulk message and hands it to the external gateway.
type DispatchService struct {
	leads    repository.LeadRepository
	messages repository.MessageRepository
	gateway  gateway.Gateway
	settings GatewaySettings
	log      *zap.Logger
	now      func() time.Time
}

// NewDispatchService creates and returns a new instance of DispatchService.
func NewDispatchService(
	leads repository.LeadRepository,
	messages repository.MessageRepository,
	gw gateway.Gateway,
	settings GatewaySettings,
	log *zap.Logger,
) *DispatchService {
	return &DispatchService{
		leads:    leads,
		messages: messages,
		gateway:  gw,
		settings: settings,
		log:      log,
		now:      time.Now,
	}
}

// Dispatch persists one MessageHistory and a pending MessageRecipient per
// target lead, then submits the message to the gateway with a shared delivery
// code and the callback URL.
//
// A gateway rejection fails the call but leaves the recipient rows pending:
// they are already committed and are resolved later by a callback or by an
// operator. The stale recipient monitor reports them.
func (s *DispatchService) Dispatch(ctx context.Context, in DispatchInput) (*DispatchResult, error) {
	if strings.TrimSpace(s.settings.URL) == "" {
		metrics.DispatchesTotal.WithLabelValues("misconfigured").Inc()
		return nil, customerrors.Configuration("messaging gateway url is not configured", customerrors.ErrGatewayNotConfigured)
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, customerrors.Validation("content is required")
	}

	filter, err := parseFilter(in)
	if err != nil {
		return nil, err
	}

	leadIDs, err := s.leads.FindLeadIDs(ctx, filter)
	if err != nil {
		return nil, customerrors.Upstream("failed to resolve target leads", err)
	}
	if len(leadIDs) == 0 {
		return nil, customerrors.Validation("no leads match the selected filter")
	}

	deliveryCode, err := tracking.NewDeliveryCode()
	if err != nil {
		return nil, customerrors.Upstream("failed to generate delivery code", err)
	}

	filterType := strings.ToLower(strings.TrimSpace(in.FilterType))
	if filterType == "" {
		filterType = FilterAll
	}
	history := &models.MessageHistory{
		Content: content,
		Filter: datatypes.NewJSONType(models.MessageFilter{
			FilterType:    filterType,
			FilterValue:   in.FilterValue,
			SendOnlyToNew: in.SendOnlyToNew,
		}),
		DeliveryCode: deliveryCode,
	}
	if _, err := s.messages.CreateDispatch(ctx, history, leadIDs); err != nil {
		return nil, customerrors.Upstream("failed to record dispatch", err)
	}

	env := gateway.Envelope{
		WebhookURL: s.settings.URL,
		WebhookData: gateway.WebhookData{
			Type:          gateway.MessageType,
			Content:       content,
			FilterType:    filterType,
			FilterValue:   in.FilterValue,
			SendOnlyToNew: in.SendOnlyToNew,
			DeliveryCode:  deliveryCode,
			CallbackURL:   s.settings.CallbackURL,
			Timestamp:     s.now().UTC(),
		},
	}
	if err := s.gateway.Submit(ctx, s.settings.URL, env); err != nil {
		metrics.DispatchesTotal.WithLabelValues("rejected").Inc()
		s.log.Error("gateway rejected dispatch, recipients left pending",
			zap.String("delivery_code", deliveryCode),
			zap.String("message_history_id", history.ID),
			zap.Int("recipients", len(leadIDs)),
			zap.Error(err))
		return nil, customerrors.Upstream("messaging gateway rejected the dispatch", errors.Join(customerrors.ErrGatewayRejected, err))
	}

	moved, err := s.messages.MarkBatchSent(ctx, deliveryCode, s.now())
	if err != nil {
		// the gateway has the batch; callbacks will still move rows forward
		s.log.Error("failed to mark batch as sent", zap.String("delivery_code", deliveryCode), zap.Error(err))
	}

	metrics.DispatchesTotal.WithLabelValues("accepted").Inc()
	s.log.Info("dispatch accepted by gateway",
		zap.String("delivery_code", deliveryCode),
		zap.String("message_history_id", history.ID),
		zap.Int("recipients", len(leadIDs)),
		zap.Int64("marked_sent", moved))

	return &DispatchResult{
		MessageHistoryID: history.ID,
		DeliveryCode:     deliveryCode,
		RecipientCount:   len(leadIDs),
	}, nil
}

func parseFilter(in DispatchInput) (repository.LeadFilter, error) {
	filter := repository.LeadFilter{OnlyNeverSent: in.SendOnlyToNew}
	switch strings.ToLower(strings.TrimSpace(in.FilterType)) {
	case "", FilterAll:
		if in.FilterValue != "" {
			return filter, customerrors.Validation("filter_value requires a course filter_type")
		}
	case FilterGraduation:
		filter.CourseType = models.CourseTypeGraduation
		filter.CourseID = strings.TrimSpace(in.FilterValue)
	case FilterPostgraduate:
		filter.CourseType = models.CourseTypePostgraduate
		filter.CourseID = strings.TrimSpace(in.FilterValue)
	default:
		return filter, customerrors.Validation(fmt.Sprintf("unknown filter_type %q", in.FilterType))
	}
	return filter, nil
}
