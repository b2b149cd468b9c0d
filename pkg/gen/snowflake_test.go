package gen

import (
	"testing"

	"salesdesk/pkg/config"

	"github.com/stretchr/testify/require"
)

func TestNewNode(t *testing.T) {
	cfg := &config.Config{NodeID: 3}
	node, err := NewNode(cfg)
	require.NoError(t, err)
	require.Equal(t, int64(3), node.Generate().Node())

	cfg.NodeID = 5000
	_, err = NewNode(cfg)
	require.Error(t, err)
}
