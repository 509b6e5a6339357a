package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	customerrors "github.com/axellelanca/scanlead/internal/errors"
	"github.com/axellelanca/scanlead/internal/models"
	"github.com/axellelanca/scanlead/internal/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveAppendsTrackingParam(t *testing.T) {
	f := newFixture(t)
	qr := f.seedQRCode(t, "ab12cd", "https://x.example/page", "trk42")

	target, err := f.scans.Resolve(context.Background(), "ab12cd", ScanMeta{UserAgent: "ua", IPAddress: "198.51.100.1"})
	require.NoError(t, err)
	require.Equal(t, "https://x.example/page?t=trk42", target)

	sessions := f.sessionsFor(t, qr.ID)
	require.Len(t, sessions, 1)
	require.Equal(t, "trk42", sessions[0].TrackingID)
	require.Equal(t, "ua", sessions[0].UserAgent)
	require.Nil(t, sessions[0].LeadID)

	stored, err := f.qrRepo.GetQRCodeByShortCode(context.Background(), "ab12cd")
	require.NoError(t, err)
	require.EqualValues(t, 1, stored.ScanCount)
}

func TestResolveKeepsExistingTrackingParam(t *testing.T) {
	f := newFixture(t)
	f.seedQRCode(t, "ef34gh", "https://x.example/page?tracking=campaign-7", "trk43")

	target, err := f.scans.Resolve(context.Background(), "ef34gh", ScanMeta{})
	require.NoError(t, err)
	require.Equal(t, "https://x.example/page?tracking=campaign-7", target)
}

func TestResolveUnknownCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.scans.Resolve(context.Background(), "zzzzzz", ScanMeta{})
	require.True(t, customerrors.Is(err, customerrors.KindNotFound))

	var count int64
	require.NoError(t, f.db.Model(&models.ScanSession{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestResolveEmptyCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.scans.Resolve(context.Background(), "  ", ScanMeta{})
	require.True(t, customerrors.Is(err, customerrors.KindBadRequest))
}

func TestResolveMissingTargetIsFatal(t *testing.T) {
	f := newFixture(t)
	qr := f.seedQRCode(t, "n0targ", "https://x.example/page", "trk44")
	require.NoError(t, f.db.Model(&models.QRCode{}).Where("id = ?", qr.ID).UpdateColumn("target_url", "").Error)

	_, err := f.scans.Resolve(context.Background(), "n0targ", ScanMeta{})
	require.True(t, customerrors.Is(err, customerrors.KindUpstream))
	require.ErrorIs(t, err, customerrors.ErrMissingTarget)
	require.Empty(t, f.sessionsFor(t, qr.ID))
}

func TestResolveUnparsableTargetIsFatal(t *testing.T) {
	f := newFixture(t)
	qr := f.seedQRCode(t, "badurl", "http://[::1:80/page", "trk47")

	_, err := f.scans.Resolve(context.Background(), "badurl", ScanMeta{})
	require.True(t, customerrors.Is(err, customerrors.KindUpstream))
	require.ErrorIs(t, err, customerrors.ErrMissingTarget)
	require.Empty(t, f.sessionsFor(t, qr.ID))

	stored, err := f.qrRepo.GetQRCodeByShortCode(context.Background(), "badurl")
	require.NoError(t, err)
	require.Zero(t, stored.ScanCount)
}

func TestResolveConcurrentScansCountExactly(t *testing.T) {
	f := newFixture(t)
	qr := f.seedQRCode(t, "c0ncur", "https://x.example/page", "trk45")

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.scans.Resolve(context.Background(), "c0ncur", ScanMeta{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.qrRepo.GetQRCodeByShortCode(context.Background(), "c0ncur")
	require.NoError(t, err)
	require.EqualValues(t, n, stored.ScanCount)
	require.Len(t, f.sessionsFor(t, qr.ID), n)
}

type failingCounterRepo struct {
	repository.QRCodeRepository
}

func (failingCounterRepo) IncrementScanCount(ctx context.Context, id string) error {
	return errors.New("database is locked")
}

type droppingRecorder struct{ calls int }

func (d *droppingRecorder) Enqueue(models.ScanEvent) bool {
	d.calls++
	return false
}

func TestResolveSwallowsBookkeepingFailures(t *testing.T) {
	f := newFixture(t)
	f.seedQRCode(t, "b00kkp", "https://x.example/page", "trk46")

	recorder := &droppingRecorder{}
	svc := NewScanService(failingCounterRepo{f.qrRepo}, recorder, zap.NewNop())

	target, err := svc.Resolve(context.Background(), "b00kkp", ScanMeta{})
	require.NoError(t, err)
	require.Equal(t, "https://x.example/page?t=trk46", target)
	require.Equal(t, 1, recorder.calls)
}
