package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/axellelanca/scanlead/internal/models"
	"github.com/axellelanca/scanlead/internal/repository"
	"github.com/axellelanca/scanlead/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckCountsOnlyStalePending(t *testing.T) {
	db := testutil.NewTestDB(t)
	messages := repository.NewMessageRepository(db)
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Hour)
	rows := []models.MessageRecipient{
		{MessageHistoryID: "h1", LeadID: "l1", DeliveryCode: "MSG_1_a", Status: models.StatusPending, CreatedAt: old},
		{MessageHistoryID: "h1", LeadID: "l2", DeliveryCode: "MSG_1_a", Status: models.StatusSent, CreatedAt: old},
		{MessageHistoryID: "h2", LeadID: "l3", DeliveryCode: "MSG_2_b", Status: models.StatusPending},
	}
	require.NoError(t, db.Create(&rows).Error)

	m := NewRecipientMonitor(messages, time.Minute, time.Hour, zap.NewNop())
	require.EqualValues(t, 1, m.Check(ctx))

	require.NoError(t, db.Model(&models.MessageRecipient{}).Where("lead_id = ?", "l1").
		Update("status", string(models.StatusFailed)).Error)
	require.EqualValues(t, 0, m.Check(ctx))
}

func TestStartStopsWithContext(t *testing.T) {
	db := testutil.NewTestDB(t)
	m := NewRecipientMonitor(repository.NewMessageRepository(db), 10*time.Millisecond, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
