package rediskey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildKeys(t *testing.T) {
	require.Equal(t, "target:summary:all", BuildTargetSummaryKey(""))
	require.Equal(t, "target:summary:2024-01", BuildTargetSummaryKey("2024-01"))
	require.Equal(t, "seq:lead:240101", BuildLeadSequenceKey("240101"))
}
