package engine

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klon-labs/klon/internal/config"
	"github.com/klon-labs/klon/internal/logger"
	klon "github.com/klon-labs/klon/pkg/klon/v1"
)

func TestNewEngine_Defaults(t *testing.T) {
	e, err := NewEngine(logger.NewLogger("error", "text", io.Discard))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultMaxDepth, e.maxDepth)
	assert.Equal(t, 1, e.replicateParallelism,
		"replication runs hooks sequentially unless a caller opts in")

	e, err = NewEngine(logger.NewLogger("error", "text", io.Discard), klon.WithReplicateParallelism(4))
	require.NoError(t, err)
	assert.Equal(t, 4, e.replicateParallelism)
}
