package services

import (
	"context"
	"testing"

	customerrors "github.com/axellelanca/scanlead/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestCreateQRCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	qr, err := f.qrcodes.CreateQRCode(ctx, " https://x.example/landing ", "")
	require.NoError(t, err)
	require.Len(t, qr.ShortCode, 6)
	require.NotEmpty(t, qr.TrackingID)
	require.Equal(t, "https://x.example/landing", qr.TargetURL)
	require.Nil(t, qr.EventID)

	other, err := f.qrcodes.CreateQRCode(ctx, "https://x.example/landing", "")
	require.NoError(t, err)
	require.NotEqual(t, qr.ShortCode, other.ShortCode)
	require.NotEqual(t, qr.TrackingID, other.TrackingID)
}

func TestCreateQRCodeReusesEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.qrcodes.CreateQRCode(ctx, "https://x.example/a", "Open Day 2026")
	require.NoError(t, err)
	b, err := f.qrcodes.CreateQRCode(ctx, "https://x.example/b", "open day 2026")
	require.NoError(t, err)
	require.NotNil(t, a.EventID)
	require.NotNil(t, b.EventID)
	require.Equal(t, *a.EventID, *b.EventID)
}

func TestCreateQRCodeRejectsBadTarget(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{"", "not a url", "ftp://x.example/file", "https:///nohost"} {
		_, err := f.qrcodes.CreateQRCode(context.Background(), target, "")
		require.True(t, customerrors.Is(err, customerrors.KindValidation), "target %q", target)
	}
}

func TestGetQRCodeStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedQRCode(t, "ab12cd", "https://x.example/page", "trk42")
	for i := 0; i < 2; i++ {
		_, err := f.scans.Resolve(ctx, "ab12cd", ScanMeta{})
		require.NoError(t, err)
	}
	in := validInput()
	in.TrackingID = "trk42"
	_, err := f.capture.Capture(ctx, in)
	require.NoError(t, err)

	stats, err := f.qrcodes.GetQRCodeStats(ctx, "ab12cd")
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.QRCode.ScanCount)
	require.EqualValues(t, 2, stats.Sessions)
	require.EqualValues(t, 1, stats.Conversions)

	_, err = f.qrcodes.GetQRCodeStats(ctx, "zzzzzz")
	require.True(t, customerrors.Is(err, customerrors.KindNotFound))
}

func TestCreateQRCodeSkipsReservedCodes(t *testing.T) {
	f := newFixture(t)
	codes := []string{"health", "metrics", "ab12cd"}
	f.qrcodes.newCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	qr, err := f.qrcodes.CreateQRCode(context.Background(), "https://x.example/page", "")
	require.NoError(t, err)
	require.Equal(t, "ab12cd", qr.ShortCode)
	require.Empty(t, codes)
}

func TestCreateQRCodeGivesUpOnReservedCodes(t *testing.T) {
	f := newFixture(t)
	f.qrcodes.newCode = func() (string, error) { return "health", nil }

	_, err := f.qrcodes.CreateQRCode(context.Background(), "https://x.example/page", "")
	require.True(t, customerrors.Is(err, customerrors.KindUpstream))
	require.ErrorIs(t, err, customerrors.ErrShortCodeGenerationFailed)
}
