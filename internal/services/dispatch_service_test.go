package services

import (
	"context"
	"testing"

	customerrors "github.com/axellelanca/scanlead/internal/errors"
	"github.com/axellelanca/scanlead/internal/gateway"
	"github.com/axellelanca/scanlead/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatchAcceptedMarksRecipientsSent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLead(t, "ana", "5511911111111", models.CourseTypeGraduation)
	f.seedLead(t, "bia", "5511922222222", models.CourseTypePostgraduate)

	res, err := f.dispatch.Dispatch(ctx, DispatchInput{Content: "Welcome to the open day"})
	require.NoError(t, err)
	require.Equal(t, 2, res.RecipientCount)
	require.Regexp(t, `^MSG_\d+_[0-9a-z]{9}$`, res.DeliveryCode)

	require.Len(t, f.gateway.envelopes, 1)
	env := f.gateway.envelopes[0]
	require.Equal(t, "https://gateway.example/hook", env.WebhookURL)
	require.Equal(t, gateway.MessageType, env.WebhookData.Type)
	require.Equal(t, res.DeliveryCode, env.WebhookData.DeliveryCode)
	require.Equal(t, "http://localhost:8080/api/v1/webhooks/delivery", env.WebhookData.CallbackURL)
	require.Equal(t, FilterAll, env.WebhookData.FilterType)

	recipients := f.recipients(t, res.DeliveryCode)
	require.Len(t, recipients, 2)
	for _, rec := range recipients {
		require.Equal(t, models.StatusSent, rec.Status)
		require.NotNil(t, rec.SentAt)
		require.Equal(t, res.MessageHistoryID, rec.MessageHistoryID)
	}

	var history models.MessageHistory
	require.NoError(t, f.db.First(&history, "id = ?", res.MessageHistoryID).Error)
	require.Equal(t, 2, history.RecipientCount)
	require.Equal(t, FilterAll, history.Filter.Data().FilterType)
}

func TestDispatchRejectedLeavesRecipientsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLead(t, "ana", "5511911111111", models.CourseTypeGraduation)
	f.gateway.err = &gateway.RejectedError{StatusCode: 500, Body: "boom"}

	_, err := f.dispatch.Dispatch(ctx, DispatchInput{Content: "hello"})
	require.True(t, customerrors.Is(err, customerrors.KindUpstream))
	require.ErrorIs(t, err, customerrors.ErrGatewayRejected)

	require.Len(t, f.gateway.envelopes, 1)
	recipients := f.recipients(t, f.gateway.envelopes[0].WebhookData.DeliveryCode)
	require.Len(t, recipients, 1)
	require.Equal(t, models.StatusPending, recipients[0].Status)
	require.Nil(t, recipients[0].SentAt)
}

func TestDispatchWithoutGatewayURL(t *testing.T) {
	f := newFixture(t)
	f.seedLead(t, "ana", "5511911111111", models.CourseTypeGraduation)
	svc := NewDispatchService(f.leads, f.messages, f.gateway, GatewaySettings{}, zap.NewNop())

	_, err := svc.Dispatch(context.Background(), DispatchInput{Content: "hello"})
	require.True(t, customerrors.Is(err, customerrors.KindConfiguration))
	require.ErrorIs(t, err, customerrors.ErrGatewayNotConfigured)
	require.Empty(t, f.gateway.envelopes)

	var count int64
	require.NoError(t, f.db.Model(&models.MessageHistory{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestDispatchValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.dispatch.Dispatch(ctx, DispatchInput{Content: "hello"})
	require.True(t, customerrors.Is(err, customerrors.KindValidation), "no leads at all")

	f.seedLead(t, "ana", "5511911111111", models.CourseTypeGraduation)

	_, err = f.dispatch.Dispatch(ctx, DispatchInput{Content: "  "})
	require.True(t, customerrors.Is(err, customerrors.KindValidation))

	_, err = f.dispatch.Dispatch(ctx, DispatchInput{Content: "hello", FilterType: "alumni"})
	require.True(t, customerrors.Is(err, customerrors.KindValidation))

	_, err = f.dispatch.Dispatch(ctx, DispatchInput{Content: "hello", FilterType: FilterPostgraduate})
	require.True(t, customerrors.Is(err, customerrors.KindValidation), "no postgraduate leads")

	require.Empty(t, f.gateway.envelopes)
	var count int64
	require.NoError(t, f.db.Model(&models.MessageRecipient{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestDispatchSendOnlyToNew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLead(t, "ana", "5511911111111", models.CourseTypeGraduation)

	first, err := f.dispatch.Dispatch(ctx, DispatchInput{Content: "first"})
	require.NoError(t, err)
	require.Equal(t, 1, first.RecipientCount)

	bia := f.seedLead(t, "bia", "5511922222222", models.CourseTypeGraduation)
	second, err := f.dispatch.Dispatch(ctx, DispatchInput{Content: "second", SendOnlyToNew: true})
	require.NoError(t, err)
	require.Equal(t, 1, second.RecipientCount)

	recipients := f.recipients(t, second.DeliveryCode)
	require.Len(t, recipients, 1)
	require.Equal(t, bia.ID, recipients[0].LeadID)
}
