package redis

import (
	"context"
	"errors"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationLabelBoundsCardinality(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"hset", "hset"},
		{"hgetall", "hgetall"},
		{"hdel", "hdel"},
		{"del", "del"},
		{"expire", "expire"},
		{"ping", "ping"},
		{"eval", "other"},
		{"subscribe", "other"},
		{"flushall", "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, operationLabel(tt.name), tt.name)
	}
}

func TestStatusLabelTreatsNilReplyAsSuccess(t *testing.T) {
	assert.Equal(t, "success", statusLabel(nil))
	assert.Equal(t, "success", statusLabel(goredis.Nil))
	assert.Equal(t, "error", statusLabel(errors.New("connection refused")))
}

func TestMetricsHookPassesResultsThrough(t *testing.T) {
	hook := &MetricsHook{}
	wantErr := errors.New("connection refused")

	calls := 0
	process := hook.ProcessHook(func(ctx context.Context, cmd goredis.Cmder) error {
		calls++
		return wantErr
	})

	cmd := goredis.NewStatusCmd(context.Background(), "ping")
	err := process(context.Background(), cmd)
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}

func TestMetricsHookPipelinePassesResultsThrough(t *testing.T) {
	hook := &MetricsHook{}

	calls := 0
	pipeline := hook.ProcessPipelineHook(func(ctx context.Context, cmds []goredis.Cmder) error {
		calls++
		return nil
	})

	cmds := []goredis.Cmder{goredis.NewStatusCmd(context.Background(), "ping")}
	require.NoError(t, pipeline(context.Background(), cmds))
	assert.Equal(t, 1, calls)
}
