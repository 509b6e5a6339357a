package tracking

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewShortCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		code, err := NewShortCode()
		require.NoError(t, err)
		require.Len(t, code, ShortCodeLength)
		require.Regexp(t, `^[a-zA-Z0-9]+$`, code)
		seen[code] = struct{}{}
	}
	require.Greater(t, len(seen), 490)
}

func TestIsReservedShortCode(t *testing.T) {
	for _, code := range []string{"health", "metrics", "api"} {
		require.True(t, IsReservedShortCode(code), code)
	}
	require.False(t, IsReservedShortCode("Health"))
	require.False(t, IsReservedShortCode("ab12cd"))
}

func TestNewDeliveryCode(t *testing.T) {
	pattern := regexp.MustCompile(`^MSG_\d{13}_[0-9a-z]{9}$`)

	a, err := NewDeliveryCode()
	require.NoError(t, err)
	b, err := NewDeliveryCode()
	require.NoError(t, err)

	require.Regexp(t, pattern, a)
	require.Regexp(t, pattern, b)
	require.NotEqual(t, a, b)
}

func TestGeneratorTrackingIDsAreUnique(t *testing.T) {
	gen, err := NewGenerator(1)
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := gen.NewTrackingID()
		require.NotEmpty(t, id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate tracking id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNewGeneratorRejectsBadNode(t *testing.T) {
	_, err := NewGenerator(5000)
	require.Error(t, err)
}
