package target

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMidnight(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)

	// 20:00 UTC on Jan 1 is already Jan 2 in UTC+7
	at := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC), Midnight(at, jakarta))
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Midnight(at, nil))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-02", time.UTC)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-01-02T15:04:05Z", time.UTC)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("02/01/2024", time.UTC)
	require.Error(t, err)
}
