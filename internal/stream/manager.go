// Package stream manages live platform stream connections, one per tracked
// user.
//
// The manager is a per-key state machine over a locked connection table:
// Closed → Opening → Open → Closed. Open requests against a live or opening
// key are absorbed by the existing connection, so at most one underlying
// connection per user ever exists. The wire protocol itself lives behind
// domain.StreamAdapter; events pushed by a connection are forwarded to the
// action queue.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/itt1233/augeo/internal/domain"
	"github.com/itt1233/augeo/internal/metrics"
	"github.com/itt1233/augeo/internal/platform/correlation"
)

// Enqueuer is the queue entry point the manager feeds stream events into.
type Enqueuer interface {
	Enqueue(ctx context.Context, action domain.Action) error
}

// Registry records stream liveness for operators and other instances. A nil
// registry disables recording.
type Registry interface {
	MarkOpen(ctx context.Context, twitterID string) error
	MarkClosed(ctx context.Context, twitterID string) error
}

// ErrManagerClosed is returned by Open after Shutdown.
var ErrManagerClosed = errors.New("stream manager is shut down")

type connState int

const (
	stateOpening connState = iota
	stateOpen
)

type connection struct {
	state    connState
	ready    chan struct{} // closed when the opening attempt settles
	err      error         // settle outcome, valid after ready closes
	handle   domain.StreamHandle
	onClosed []func()

	// A release that races the opening attempt is recorded here and honored
	// by Open once the dial settles.
	released     bool
	releaseCause error
	closeHandle  bool
}

type Manager struct {
	adapter  domain.StreamAdapter
	queue    Enqueuer
	registry Registry

	mu     sync.Mutex
	conns  map[string]*connection
	closed bool
}

func NewManager(adapter domain.StreamAdapter, queue Enqueuer, registry Registry) *Manager {
	return &Manager{
		adapter:  adapter,
		queue:    queue,
		registry: registry,
		conns:    make(map[string]*connection),
	}
}

// Open ensures a live connection for the given user. When the key is already
// open this returns nil immediately; when another Open is in flight for the
// same key, this waits for that attempt and shares its outcome. The onClosed
// callback, when non-nil, fires once when the connection later closes for any
// reason.
func (m *Manager) Open(ctx context.Context, req *domain.OpenRequest, onClosed func()) error {
	if req == nil || req.TwitterID == "" {
		return errors.New("open request requires a twitter ID")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}

	if conn, ok := m.conns[req.TwitterID]; ok {
		if onClosed != nil {
			conn.onClosed = append(conn.onClosed, onClosed)
		}
		state, ready := conn.state, conn.ready
		m.mu.Unlock()

		metrics.StreamOpenDedupsTotal.Inc()
		if state == stateOpen {
			return nil
		}

		// Another Open is mid-flight for this key; share its outcome.
		select {
		case <-ready:
			return conn.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	conn := &connection{state: stateOpening, ready: make(chan struct{})}
	if onClosed != nil {
		conn.onClosed = append(conn.onClosed, onClosed)
	}
	m.conns[req.TwitterID] = conn
	m.mu.Unlock()

	// The adapter dial happens outside the lock so a slow connect never
	// stalls opens for other keys.
	handle, err := m.adapter.Connect(ctx, req.TwitterID, &eventSink{manager: m, twitterID: req.TwitterID})

	m.mu.Lock()
	if err != nil {
		conn.err = err
		delete(m.conns, req.TwitterID)
		close(conn.ready)
		m.mu.Unlock()
		return fmt.Errorf("failed to open stream for %s: %w", req.TwitterID, err)
	}
	if conn.released {
		// The connection dropped (or was closed) before the dial settled.
		// Free the slot instead of promoting a dead connection, so a later
		// Open can reconnect.
		cause := conn.releaseCause
		closeHandle := conn.closeHandle
		callbacks := conn.onClosed
		delete(m.conns, req.TwitterID)
		close(conn.ready)
		m.mu.Unlock()

		if closeHandle && handle != nil {
			if err := handle.Close(); err != nil {
				slog.Warn("Failed to close stream handle", "twitter_id", req.TwitterID, "error", err)
			}
		}
		for _, cb := range callbacks {
			cb()
		}
		metrics.StreamConnectsTotal.Inc()
		if cause != nil {
			slog.WarnContext(ctx, "Stream dropped while opening", "twitter_id", req.TwitterID, "error", cause)
		} else {
			slog.InfoContext(ctx, "Stream closed while opening", "twitter_id", req.TwitterID)
		}
		return nil
	}

	conn.state = stateOpen
	conn.handle = handle
	close(conn.ready)
	m.mu.Unlock()

	metrics.StreamConnectsTotal.Inc()
	metrics.StreamConnectionsCurrent.Inc()
	m.markOpen(ctx, req.TwitterID)

	slog.InfoContext(ctx, "Stream opened", "twitter_id", req.TwitterID)
	return nil
}

// Close tears down the connection for one user. Closing an unknown key is a
// no-op.
func (m *Manager) Close(twitterID string) {
	m.release(twitterID, nil, true)
}

// Shutdown closes every live connection and rejects further opens.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	keys := make([]string, 0, len(m.conns))
	for id := range m.conns {
		keys = append(keys, id)
	}
	m.mu.Unlock()

	for _, id := range keys {
		m.release(id, nil, true)
	}
}

// IsOpen reports whether the key currently holds a live connection.
func (m *Manager) IsOpen(twitterID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[twitterID]
	return ok && conn.state == stateOpen
}

// release frees the slot for a key. Both explicit Close and a natural
// disconnect land here; the map check makes double release a no-op.
func (m *Manager) release(twitterID string, cause error, closeHandle bool) {
	m.mu.Lock()
	conn, ok := m.conns[twitterID]
	if !ok {
		m.mu.Unlock()
		return
	}
	if conn.state != stateOpen {
		// The opening attempt has not settled yet. Record the release so
		// Open frees the slot once the dial returns.
		conn.released = true
		if conn.releaseCause == nil {
			conn.releaseCause = cause
		}
		conn.closeHandle = conn.closeHandle || closeHandle
		m.mu.Unlock()
		return
	}
	delete(m.conns, twitterID)
	callbacks := conn.onClosed
	handle := conn.handle
	m.mu.Unlock()

	if closeHandle && handle != nil {
		if err := handle.Close(); err != nil {
			slog.Warn("Failed to close stream handle", "twitter_id", twitterID, "error", err)
		}
	}

	metrics.StreamConnectionsCurrent.Dec()
	m.markClosed(twitterID)

	for _, cb := range callbacks {
		cb()
	}

	if cause != nil {
		slog.Warn("Stream disconnected", "twitter_id", twitterID, "error", cause)
	} else {
		slog.Info("Stream closed", "twitter_id", twitterID)
	}
}

func (m *Manager) markOpen(ctx context.Context, twitterID string) {
	if m.registry == nil {
		return
	}
	if err := m.registry.MarkOpen(ctx, twitterID); err != nil {
		slog.WarnContext(ctx, "Failed to register stream", "twitter_id", twitterID, "error", err)
	}
}

func (m *Manager) markClosed(twitterID string) {
	if m.registry == nil {
		return
	}
	if err := m.registry.MarkClosed(context.Background(), twitterID); err != nil {
		slog.Warn("Failed to deregister stream", "twitter_id", twitterID, "error", err)
	}
}

// eventSink forwards pushed events from one live connection into the queue.
type eventSink struct {
	manager   *Manager
	twitterID string
}

func (s *eventSink) OnTweet(tweet *domain.RawTweet) {
	ctx := correlation.WithID(context.Background(), correlation.NewID())
	err := s.manager.queue.Enqueue(ctx, domain.Action{Type: domain.ActionAdd, Tweet: tweet})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to enqueue stream tweet", "twitter_id", s.twitterID, "error", err)
	}
}

func (s *eventSink) OnDelete(removal *domain.StatusRemoval) {
	ctx := correlation.WithID(context.Background(), correlation.NewID())
	err := s.manager.queue.Enqueue(ctx, domain.Action{Type: domain.ActionRemove, Removal: removal})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to enqueue stream removal", "twitter_id", s.twitterID, "error", err)
	}
}

func (s *eventSink) OnDisconnect(err error) {
	// The underlying connection is already gone; free the slot so a later
	// Open can reconnect.
	s.manager.release(s.twitterID, err, false)
}
