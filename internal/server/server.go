package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/itt1233/augeo/internal/config"
	"github.com/itt1233/augeo/internal/coordination"
	"github.com/itt1233/augeo/internal/domain"
	apperrors "github.com/itt1233/augeo/internal/errors"
	"github.com/itt1233/augeo/internal/rank"
	"github.com/itt1233/augeo/internal/websocket"
)

// Enqueuer submits actions to the serialized action queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, action domain.Action) error
}

// StreamManager is the slice of stream lifecycle operations the API exposes.
type StreamManager interface {
	Close(twitterID string)
	IsOpen(twitterID string) bool
}

// StreamLister lists live streams across all instances.
type StreamLister interface {
	ListOpen(ctx context.Context) ([]coordination.StreamInfo, error)
}

// FeedHub is the slice of hub operations the feed endpoint needs.
type FeedHub interface {
	Register(conn websocket.Conn) error
	Unregister(conn websocket.Conn)
	ClientCount() int
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	rank      *rank.Service
	tweets    domain.TweetRepository
	users     domain.UserRepository
	hub       FeedHub
	queue     Enqueuer
	streams   StreamManager
	registry  StreamLister
	postgres  postgresHealthChecker
	redis     redisHealthChecker
	limits    *ConnectionLimits
	startTime time.Time
}

// Deps collects the collaborators the server routes against.
type Deps struct {
	Rank     *rank.Service
	Tweets   domain.TweetRepository
	Users    domain.UserRepository
	Hub      FeedHub
	Queue    Enqueuer
	Streams  StreamManager
	Registry StreamLister
	Postgres postgresHealthChecker
	Redis    redisHealthChecker
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:     e,
		config:   cfg,
		rank:     deps.Rank,
		tweets:   deps.Tweets,
		users:    deps.Users,
		hub:      deps.Hub,
		queue:    deps.Queue,
		streams:  deps.Streams,
		registry: deps.Registry,
		postgres: deps.Postgres,
		redis:    deps.Redis,
		limits: NewConnectionLimits(
			cfg.MaxConnections,
			cfg.MaxConnectionsPerIP,
			cfg.ConnectionRatePerSecond,
			cfg.ConnectionBurst,
		),
		startTime: time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
