// Package redis constructs the shared Redis client.
//
// The client carries two hooks: one recording per-command metrics, one
// wrapping every command in a circuit breaker so a dead Redis degrades the
// stream registry instead of stalling request handling.
package redis
