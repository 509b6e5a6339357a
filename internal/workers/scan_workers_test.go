package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/axellelanca/scanlead/internal/models"
	"github.com/axellelanca/scanlead/internal/repository"
	"github.com/axellelanca/scanlead/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScanPoolPersistsEvents(t *testing.T) {
	db := testutil.NewTestDB(t)
	qr := &models.QRCode{ShortCode: "ab12cd", TargetURL: "https://x.example/page", TrackingID: "trk1"}
	require.NoError(t, db.Create(qr).Error)

	pool := StartScanWorkers(3, 100, repository.NewScanSessionRepository(db), zap.NewNop())
	for i := 0; i < 20; i++ {
		require.True(t, pool.Enqueue(models.ScanEvent{
			QRCodeID:   qr.ID,
			TrackingID: qr.TrackingID,
			Timestamp:  time.Now(),
			UserAgent:  "test-agent",
			IPAddress:  "203.0.113.7",
		}))
	}
	pool.Close()

	var count int64
	require.NoError(t, db.Model(&models.ScanSession{}).Where("qr_code_id = ?", qr.ID).Count(&count).Error)
	require.EqualValues(t, 20, count)
}

type blockingRepo struct {
	repository.ScanSessionRepository
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (b *blockingRepo) CreateScanSession(ctx context.Context, s *models.ScanSession) error {
	<-b.release
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return errors.New("disk full")
}

func TestScanPoolDropsWhenFullAndSurvivesErrors(t *testing.T) {
	repo := &blockingRepo{release: make(chan struct{})}
	pool := StartScanWorkers(1, 1, repo, zap.NewNop())

	// the single worker may or may not have picked up the first event yet,
	// so at most two are accepted before the buffer is full
	accepted := 0
	for i := 0; i < 5; i++ {
		if pool.Enqueue(models.ScanEvent{QRCodeID: "qr"}) {
			accepted++
		}
	}
	require.GreaterOrEqual(t, accepted, 1)
	require.LessOrEqual(t, accepted, 2)

	close(repo.release)
	pool.Close()

	require.Equal(t, accepted, repo.calls)
	require.False(t, pool.Enqueue(models.ScanEvent{QRCodeID: "qr"}))
}
