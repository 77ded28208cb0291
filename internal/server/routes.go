package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Skills API
	s.echo.GET("/api/skills/:skill/leaderboard", s.handleLeaderboard)
	s.echo.GET("/api/skills/:skill/rank/:username", s.handleRank)
	s.echo.GET("/api/users/:screenName/activity", s.handleActivity)

	// Stream management
	s.echo.GET("/api/streams", s.handleListStreams)
	s.echo.POST("/api/streams/:twitterID", s.handleOpenStream)
	s.echo.DELETE("/api/streams/:twitterID", s.handleCloseStream)

	// Live activity feed (WebSocket)
	s.echo.GET("/ws/feed", s.handleFeed)
}
