// Package server implements the HTTP surface using the Echo framework.
//
// Routes: observability (health, metrics), the skills API (leaderboard,
// rank, activity), stream management, and the live activity feed WebSocket.
// Handlers split by concern: handlers_api.go, handlers_health.go,
// handlers_feed.go.
package server
