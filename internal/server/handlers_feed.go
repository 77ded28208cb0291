package server

import (
	"fmt"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/itt1233/augeo/internal/metrics"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is public and carries no credentials.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleFeed(c echo.Context) error {
	ip := c.RealIP()

	ok, reason := s.limits.Acquire(ip)
	if !ok {
		metrics.FeedRejectionsTotal.WithLabelValues(string(reason)).Inc()
		return c.JSON(429, map[string]string{
			"error":  "connection limit reached",
			"reason": string(reason),
		})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.limits.Release(ip)
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	if err := s.hub.Register(conn); err != nil {
		// The hub closed the connection already; surface nothing to the
		// client beyond the close.
		s.limits.Release(ip)
		return nil
	}

	// Read pump, blocks until the connection closes. Inbound frames are
	// discarded; the feed is one-way.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(conn)
	s.limits.Release(ip)

	return nil //nolint:nilerr // ReadMessage err is block-scoped; outer err is nil
}
