package redis

import (
	"context"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/itt1233/augeo/internal/metrics"
)

// MetricsHook implements redis.Hook and records per-command counters and
// latencies for every Redis operation the client issues.
type MetricsHook struct{}

var _ redis.Hook = (*MetricsHook)(nil)

// The stream registry only issues a handful of commands. Anything outside
// this set collapses into one "other" label so the operation label stays
// bounded no matter what future code sends through the client.
var registryOps = map[string]struct{}{
	"hset":    {},
	"hget":    {},
	"hgetall": {},
	"hdel":    {},
	"del":     {},
	"expire":  {},
	"ping":    {},
}

func operationLabel(name string) string {
	if _, ok := registryOps[name]; ok {
		return name
	}
	return "other"
}

func statusLabel(err error) string {
	if err != nil && err != redis.Nil {
		return "error"
	}
	return "success"
}

// DialHook counts failed connection attempts.
func (h *MetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			metrics.RedisConnectionErrors.Inc()
		}
		return conn, err
	}
}

// ProcessHook times every command. A redis.Nil reply is a miss, not a failure.
func (h *MetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		duration := time.Since(start).Seconds()

		operation := operationLabel(cmd.Name())
		metrics.RedisOpsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
		metrics.RedisOpDuration.WithLabelValues(operation).Observe(duration)

		return err
	}
}

// ProcessPipelineHook records a whole pipeline as one "pipeline" operation.
func (h *MetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		duration := time.Since(start).Seconds()

		status := "success"
		if err != nil {
			status = "error"
		}

		metrics.RedisOpsTotal.WithLabelValues("pipeline", status).Inc()
		metrics.RedisOpDuration.WithLabelValues("pipeline").Observe(duration)

		return err
	}
}
