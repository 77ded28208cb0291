// Package queue serializes mutating stream actions through a single actor
// goroutine.
//
// Add, Remove and AddMany run strictly in submission order, which is what
// keeps the experience ledger consistent without locks in the processor.
// Open actions touch no ledger state and are dispatched concurrently to the
// stream manager instead of occupying the actor.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/itt1233/augeo/internal/domain"
	"github.com/itt1233/augeo/internal/metrics"
	"github.com/itt1233/augeo/internal/platform/correlation"
)

// Mutator is the subset of processor operations driven by the actor.
type Mutator interface {
	Add(ctx context.Context, raw *domain.RawTweet) error
	Remove(ctx context.Context, removal *domain.StatusRemoval) error
	AddMany(ctx context.Context, raws []*domain.RawTweet) error
}

// Opener establishes live stream connections. Open must deduplicate against
// connections that are already live.
type Opener interface {
	Open(ctx context.Context, req *domain.OpenRequest, onClosed func()) error
}

// --- Command types ---

type queueCmd interface{ queueCmd() }

type cmdAdd struct {
	ctx   context.Context
	tweet *domain.RawTweet
	done  func(error)
}

func (cmdAdd) queueCmd() {}

type cmdRemove struct {
	ctx     context.Context
	removal *domain.StatusRemoval
	done    func(error)
}

func (cmdRemove) queueCmd() {}

type cmdAddMany struct {
	ctx    context.Context
	tweets []*domain.RawTweet
	done   func(error)
}

func (cmdAddMany) queueCmd() {}

type cmdStop struct {
	doneCh chan struct{}
}

func (cmdStop) queueCmd() {}

// --- Queue ---

type Queue struct {
	cmdCh     chan queueCmd
	processor Mutator
	opener    Opener
}

func New(processor Mutator, opener Opener) *Queue {
	return &Queue{
		cmdCh:     make(chan queueCmd, 512),
		processor: processor,
		opener:    opener,
	}
}

// SetOpener sets the target for Open actions. Resolves the wiring cycle
// where the stream manager needs the queue before it exists. Must be called
// before Start.
func (q *Queue) SetOpener(opener Opener) {
	q.opener = opener
}

// Start launches the actor goroutine.
func (q *Queue) Start() {
	go q.run()
}

// Enqueue submits an action. Mutating actions are appended to the serialized
// command channel; Open is delegated to the stream manager on its own
// goroutine. The action's Done callback, when set, fires exactly once with
// the terminal error.
func (q *Queue) Enqueue(ctx context.Context, action domain.Action) error {
	ctx = correlation.Ensure(ctx)

	switch action.Type {
	case domain.ActionAdd:
		q.push(cmdAdd{ctx: ctx, tweet: action.Tweet, done: action.Done})
	case domain.ActionRemove:
		q.push(cmdRemove{ctx: ctx, removal: action.Removal, done: action.Done})
	case domain.ActionAddMany:
		q.push(cmdAddMany{ctx: ctx, tweets: action.Tweets, done: action.Done})
	case domain.ActionOpen:
		if q.opener == nil {
			return errors.New("no opener configured")
		}
		go q.handleOpen(ctx, action)
	default:
		return fmt.Errorf("unknown action type %q", action.Type)
	}
	return nil
}

// Stop drains nothing: commands already enqueued ahead of the stop marker are
// processed first, then the actor exits.
func (q *Queue) Stop() {
	doneCh := make(chan struct{})
	q.cmdCh <- cmdStop{doneCh: doneCh}
	<-doneCh
}

func (q *Queue) push(cmd queueCmd) {
	metrics.QueueDepth.Inc()
	q.cmdCh <- cmd
}

func (q *Queue) run() {
	for cmd := range q.cmdCh {
		switch c := cmd.(type) {
		case cmdAdd:
			q.settle(c.ctx, "add", c.done, func() error {
				return q.processor.Add(c.ctx, c.tweet)
			})

		case cmdRemove:
			q.settle(c.ctx, "remove", c.done, func() error {
				return q.processor.Remove(c.ctx, c.removal)
			})

		case cmdAddMany:
			q.settle(c.ctx, "add_many", c.done, func() error {
				return q.processor.AddMany(c.ctx, c.tweets)
			})

		case cmdStop:
			close(c.doneCh)
			return
		}
	}
}

// settle runs one mutating action, records its metrics and fires the
// completion callback. A failed action never blocks the ones behind it.
func (q *Queue) settle(ctx context.Context, name string, done func(error), op func() error) {
	metrics.QueueDepth.Dec()

	timer := metrics.NewActionTimer(name)
	err := op()
	timer.ObserveDuration()

	status := "ok"
	if err != nil {
		status = "error"
		slog.ErrorContext(ctx, "Queue action failed", "action", name, "error", err)
	}
	metrics.ActionsTotal.WithLabelValues(name, status).Inc()

	if done != nil {
		done(err)
	}
}

func (q *Queue) handleOpen(ctx context.Context, action domain.Action) {
	timer := metrics.NewActionTimer("open")
	err := q.opener.Open(ctx, action.Open, action.OnClosed)
	timer.ObserveDuration()

	status := "ok"
	if err != nil {
		status = "error"
		slog.ErrorContext(ctx, "Open action failed", "twitter_id", action.Open.TwitterID, "error", err)
	}
	metrics.ActionsTotal.WithLabelValues("open", status).Inc()

	if action.Done != nil {
		action.Done(err)
	}
}
