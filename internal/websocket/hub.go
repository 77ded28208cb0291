// Package websocket implements the live activity feed hub.
//
// The hub is an actor goroutine owning the client set. Applied tweets are
// fanned out to every connected client through per-connection writers; a
// client whose send buffer is full gets evicted rather than backpressuring
// the feed.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/itt1233/augeo/internal/domain"
	"github.com/itt1233/augeo/internal/metrics"
)

// Conn is the connection subset the hub uses. *websocket.Conn satisfies it;
// tests substitute fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// FeedEvent is the wire shape pushed to feed clients.
type FeedEvent struct {
	TweetID    string    `json:"tweet_id"`
	ScreenName string    `json:"screen_name"`
	Name       string    `json:"name"`
	Text       string    `json:"text"`
	Date       time.Time `json:"date"`
	Experience int64     `json:"experience"`
	Hashtags   []string  `json:"hashtags,omitempty"`
}

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	conn  Conn
	errCh chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	conn Conn
}

func (cmdUnregister) hubCmd() {}

type cmdBroadcast struct {
	data []byte
}

func (cmdBroadcast) hubCmd() {}

type cmdClientCount struct {
	replyCh chan int
}

func (cmdClientCount) hubCmd() {}

type cmdStop struct {
	doneCh chan struct{}
}

func (cmdStop) hubCmd() {}

// --- Per-connection writer ---

type clientWriter struct {
	conn   Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClientWriter(conn Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg, ok := <-cw.sendCh:
			if !ok {
				return
			}
			cw.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	cw.conn.Close()
}

// --- Hub ---

type Hub struct {
	cmdCh      chan hubCmd
	clients    map[Conn]*clientWriter
	maxClients int
}

func NewHub(maxClients int) *Hub {
	hub := &Hub{
		cmdCh:      make(chan hubCmd, 256),
		clients:    make(map[Conn]*clientWriter),
		maxClients: maxClients,
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.handleRegister(c)
		case cmdUnregister:
			h.handleUnregister(c.conn)
		case cmdBroadcast:
			h.handleBroadcast(c.data)
		case cmdClientCount:
			c.replyCh <- len(h.clients)
		case cmdStop:
			h.handleStop()
			close(c.doneCh)
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	if len(h.clients) >= h.maxClients {
		metrics.FeedRejectionsTotal.WithLabelValues("hub_full").Inc()
		slog.Warn("Rejecting feed client: hub full", "max_clients", h.maxClients)
		c.conn.Close()
		c.errCh <- fmt.Errorf("feed client limit (%d) reached", h.maxClients)
		return
	}

	h.clients[c.conn] = newClientWriter(c.conn)
	metrics.FeedClientsCurrent.Inc()
	slog.Debug("Feed client registered", "clients", len(h.clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(conn Conn) {
	cw, ok := h.clients[conn]
	if !ok {
		return
	}

	cw.stop()
	delete(h.clients, conn)
	metrics.FeedClientsCurrent.Dec()
	slog.Debug("Feed client unregistered", "clients", len(h.clients))
}

func (h *Hub) handleBroadcast(data []byte) {
	var slow []Conn
	for conn, cw := range h.clients {
		select {
		case cw.sendCh <- data:
		default:
			// client is not draining its buffer, drop it
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		metrics.FeedSlowClientsEvicted.Inc()
		slog.Warn("Evicting slow feed client")
		h.handleUnregister(conn)
	}
}

func (h *Hub) handleStop() {
	for conn, cw := range h.clients {
		cw.stop()
		delete(h.clients, conn)
		metrics.FeedClientsCurrent.Dec()
	}
}

// --- Public API ---

// Register adds a feed client. Returns an error when the hub is full.
func (h *Hub) Register(conn Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- cmdRegister{conn: conn, errCh: errCh}
	return <-errCh
}

// Unregister removes a feed client and closes its connection.
func (h *Hub) Unregister(conn Conn) {
	h.cmdCh <- cmdUnregister{conn: conn}
}

// PublishTweet pushes an applied tweet to every connected client. Implements
// domain.ActivityPublisher.
func (h *Hub) PublishTweet(tweet *domain.Tweet) {
	data, err := json.Marshal(FeedEvent{
		TweetID:    tweet.TweetID,
		ScreenName: tweet.ScreenName,
		Name:       tweet.Name,
		Text:       tweet.Text,
		Date:       tweet.Date,
		Experience: tweet.Experience,
		Hashtags:   tweet.Hashtags,
	})
	if err != nil {
		slog.Error("Failed to marshal feed event", "tweet_id", tweet.TweetID, "error", err)
		return
	}
	h.cmdCh <- cmdBroadcast{data: data}
}

// ClientCount returns the number of connected feed clients.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- cmdClientCount{replyCh: replyCh}
	return <-replyCh
}

// Stop closes every client connection and shuts the actor down.
func (h *Hub) Stop() {
	doneCh := make(chan struct{})
	h.cmdCh <- cmdStop{doneCh: doneCh}
	<-doneCh
}
