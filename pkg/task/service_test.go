package task

import (
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type payload struct {
	LeadID string `json:"leadId"`
}

func TestJSONTaskRoundTrip(t *testing.T) {
	task, err := NewJSONTask("audit:archive", payload{LeadID: "7"})
	require.NoError(t, err)
	require.Equal(t, "audit:archive", task.Type())

	var out payload
	require.NoError(t, DecodePayload(task, &out))
	require.Equal(t, "7", out.LeadID)
}

func TestDecodePayload_SkipsRetry(t *testing.T) {
	task := asynq.NewTask("audit:archive", []byte("{"))

	var out payload
	err := DecodePayload(task, &out)
	require.Error(t, err)
	require.True(t, errors.Is(err, asynq.SkipRetry))
}
