package tracking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithTrackingParam(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"no query", "https://x.example/page", "https://x.example/page?t=abc123"},
		{"existing query", "https://x.example/page?utm_source=qr", "https://x.example/page?utm_source=qr&t=abc123"},
		{"existing tracking param", "https://x.example/page?tracking=old", "https://x.example/page?tracking=old"},
		{"existing t param", "https://x.example/page?t=old&x=1", "https://x.example/page?t=old&x=1"},
		{"existing trackingId param", "https://x.example/?trackingId=zz", "https://x.example/?trackingId=zz"},
		{"fragment", "https://x.example/page#form", "https://x.example/page?t=abc123#form"},
		{"dangling question mark", "https://x.example/page?", "https://x.example/page?t=abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, WithTrackingParam(tt.target, "abc123"))
		})
	}
}

func TestWithTrackingParamEmptyID(t *testing.T) {
	require.Equal(t, "https://x.example/page", WithTrackingParam("https://x.example/page", ""))
}

func TestValidateTarget(t *testing.T) {
	require.NoError(t, ValidateTarget("https://x.example/page"))
	require.NoError(t, ValidateTarget("http://localhost:3000/form?a=1"))
	require.Error(t, ValidateTarget("ftp://x.example/file"))
	require.Error(t, ValidateTarget("not a url"))
	require.Error(t, ValidateTarget(""))
}
