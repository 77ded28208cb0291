package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/itt1233/augeo/internal/domain"
)

// GatewayAdapter implements domain.StreamAdapter against the internal stream
// gateway, which multiplexes upstream platform streams behind a plain
// WebSocket. One dial per tracked user; the gateway scopes the stream via the
// twitter_id query parameter.
//
// Frames are JSON envelopes:
//
//	{"event": "tweet", "tweet": {...}}
//	{"event": "delete", "delete": {"status": {...}}}
type GatewayAdapter struct {
	baseURL string
	dialer  *websocket.Dialer
}

// ErrGatewayUnconfigured is returned by Connect when no gateway URL is set.
var ErrGatewayUnconfigured = errors.New("stream gateway URL is not configured")

func NewGatewayAdapter(baseURL string) *GatewayAdapter {
	return &GatewayAdapter{
		baseURL: baseURL,
		dialer:  websocket.DefaultDialer,
	}
}

type gatewayFrame struct {
	Event  string                `json:"event"`
	Tweet  *domain.RawTweet      `json:"tweet,omitempty"`
	Delete *domain.StatusRemoval `json:"delete,omitempty"`
}

// gatewayHandle is the live connection for one user. Close is idempotent;
// the read loop owns OnDisconnect and suppresses it after an explicit Close.
type gatewayHandle struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func (h *gatewayHandle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	return h.conn.Close()
}

func (h *gatewayHandle) closedExplicitly() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Connect dials the gateway for one user and starts the read loop. Events are
// pushed to the sink until the connection drops or the handle is closed.
func (a *GatewayAdapter) Connect(ctx context.Context, twitterID string, sink domain.StreamSink) (domain.StreamHandle, error) {
	if a.baseURL == "" {
		return nil, ErrGatewayUnconfigured
	}

	u, err := url.Parse(a.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway URL: %w", err)
	}
	q := u.Query()
	q.Set("twitter_id", twitterID)
	u.RawQuery = q.Encode()

	conn, resp, err := a.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial stream gateway (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial stream gateway: %w", err)
	}

	handle := &gatewayHandle{conn: conn}
	go a.readLoop(handle, twitterID, sink)

	return handle, nil
}

func (a *GatewayAdapter) readLoop(handle *gatewayHandle, twitterID string, sink domain.StreamSink) {
	for {
		_, data, err := handle.conn.ReadMessage()
		if err != nil {
			if handle.closedExplicitly() {
				return
			}
			sink.OnDisconnect(err)
			return
		}

		var frame gatewayFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Warn("Dropping malformed gateway frame", "twitter_id", twitterID, "error", err)
			continue
		}

		switch frame.Event {
		case "tweet":
			if frame.Tweet != nil {
				sink.OnTweet(frame.Tweet)
			}
		case "delete":
			if frame.Delete != nil {
				sink.OnDelete(frame.Delete)
			}
		default:
			slog.Debug("Ignoring unknown gateway event", "event", frame.Event)
		}
	}
}
