package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/axellelanca/scanlead/internal/gateway"
	"github.com/axellelanca/scanlead/internal/models"
	"github.com/axellelanca/scanlead/internal/repository"
	"github.com/axellelanca/scanlead/internal/testutil"
	"github.com/axellelanca/scanlead/internal/tracking"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// syncRecorder writes scan sessions inline so tests can assert on them
// without waiting for a worker pool.
type syncRecorder struct {
	sessions repository.ScanSessionRepository
}

func (r *syncRecorder) Enqueue(event models.ScanEvent) bool {
	return r.sessions.CreateScanSession(context.Background(), event.Session()) == nil
}

// fakeGateway records submissions and answers with err.
type fakeGateway struct {
	mu        sync.Mutex
	envelopes []gateway.Envelope
	err       error
	onSubmit  func(env gateway.Envelope)
}

func (g *fakeGateway) Submit(ctx context.Context, url string, env gateway.Envelope) error {
	g.mu.Lock()
	g.envelopes = append(g.envelopes, env)
	g.mu.Unlock()
	if g.onSubmit != nil {
		g.onSubmit(env)
	}
	return g.err
}

type fixture struct {
	db       *gorm.DB
	qrRepo   *repository.GormQRCodeRepository
	sessions *repository.GormScanSessionRepository
	leads    *repository.GormLeadRepository
	events   *repository.GormEventRepository
	messages *repository.GormMessageRepository
	stats    *repository.GormStatsRepository
	gateway  *fakeGateway

	qrcodes  *QRCodeService
	scans    *ScanService
	capture  *LeadService
	dispatch *DispatchService
	delivery *DeliveryService
	metrics  *MetricsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := zap.NewNop()
	ids, err := tracking.NewGenerator(1)
	require.NoError(t, err)

	f := &fixture{
		db:       db,
		qrRepo:   repository.NewQRCodeRepository(db),
		sessions: repository.NewScanSessionRepository(db),
		leads:    repository.NewLeadRepository(db),
		events:   repository.NewEventRepository(db),
		messages: repository.NewMessageRepository(db),
		stats:    repository.NewStatsRepository(db),
		gateway:  &fakeGateway{},
	}
	f.qrcodes = NewQRCodeService(f.qrRepo, f.events, f.sessions, ids, log)
	f.scans = NewScanService(f.qrRepo, &syncRecorder{sessions: f.sessions}, log)
	f.capture = NewLeadService(db, f.leads, f.sessions, f.events, 24*time.Hour, log)
	f.dispatch = NewDispatchService(f.leads, f.messages, f.gateway, GatewaySettings{
		URL:         "https://gateway.example/hook",
		CallbackURL: "http://localhost:8080/api/v1/webhooks/delivery",
	}, log)
	f.delivery = NewDeliveryService(f.leads, f.messages, log)
	f.metrics = NewMetricsService(f.stats, "", log)
	return f
}

func (f *fixture) seedQRCode(t *testing.T, shortCode, target, trackingID string) *models.QRCode {
	t.Helper()
	qr := &models.QRCode{ShortCode: shortCode, TargetURL: target, TrackingID: trackingID}
	require.NoError(t, f.qrRepo.CreateQRCode(context.Background(), qr))
	return qr
}

func (f *fixture) seedLead(t *testing.T, name, whatsapp string, kind models.CourseType) *models.Lead {
	t.Helper()
	lead := &models.Lead{Name: name, Whatsapp: whatsapp, Email: name + "@x.example", CourseType: kind}
	require.NoError(t, f.leads.CreateLead(context.Background(), lead))
	return lead
}

func (f *fixture) sessionsFor(t *testing.T, qrID string) []models.ScanSession {
	t.Helper()
	var out []models.ScanSession
	require.NoError(t, f.db.Where("qr_code_id = ?", qrID).Order("created_at").Find(&out).Error)
	return out
}

func (f *fixture) recipients(t *testing.T, code string) []models.MessageRecipient {
	t.Helper()
	var out []models.MessageRecipient
	require.NoError(t, f.db.Where("delivery_code = ?", code).Find(&out).Error)
	return out
}
