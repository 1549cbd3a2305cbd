// Package concurrent wraps an *engine.Engine behind a single-goroutine
// actor so many cheaply-cloneable Client handles can share it with FIFO,
// strictly-serialized semantics.
package concurrent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ttocsneb/mbon/data"
	"github.com/ttocsneb/mbon/engine"
	"github.com/ttocsneb/mbon/errs"
	"github.com/ttocsneb/mbon/marks"
)

type result struct {
	val any
	err error
}

type job struct {
	run   func(*engine.Engine) (any, error)
	reply chan result
}

// Handle owns the actor goroutine's lifecycle.
type Handle struct {
	quit     chan struct{}
	done     chan struct{}
	closeMu  sync.Once
	closeErr error
}

// Client is a cheaply-cloneable handle to a running actor's request
// channel. The zero value is not usable; obtain one from Spawn.
type Client struct {
	reqCh chan job
	done  <-chan struct{}
}

// Spawn starts an actor goroutine owning e and returns a Handle (for
// lifecycle control) and a Client (for making requests). Further Clients
// can be made cheaply via Client.Clone. If logger is nil, slog.Default()
// is used; it is only consulted for operationally interesting events such
// as actor shutdown, never on the request-handling hot path.
func Spawn(e *engine.Engine, logger ...*slog.Logger) (*Handle, *Client) {
	log := slog.Default()
	if len(logger) > 0 && logger[0] != nil {
		log = logger[0]
	}

	reqCh := make(chan job)
	quit := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer log.Debug("concurrent: actor stopped")
		for {
			select {
			case j := <-reqCh:
				v, err := j.run(e)
				j.reply <- result{v, err}
			case <-quit:
				return
			}
		}
	}()

	h := &Handle{quit: quit, done: done}
	c := &Client{reqCh: reqCh, done: done}
	return h, c
}

// Clone returns a new Client sharing this one's actor.
func (c *Client) Clone() *Client {
	return &Client{reqCh: c.reqCh, done: c.done}
}

// Close stops the actor after it finishes any in-flight request and waits
// for its goroutine to exit. Calling it more than once is safe.
func (h *Handle) Close() error {
	h.closeMu.Do(func() {
		close(h.quit)
		<-h.done
	})
	return h.closeErr
}

func submit[T any](ctx context.Context, c *Client, run func(*engine.Engine) (any, error)) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}

	j := job{run: run, reply: make(chan result, 1)}
	select {
	case c.reqCh <- j:
	case <-c.done:
		return zero, errs.ErrConnectionReset
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-j.reply:
		if r.err != nil {
			return zero, r.err
		}
		v, _ := r.val.(T)
		return v, nil
	case <-c.done:
		return zero, errs.ErrConnectionReset
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// ParseMark asks the actor to parse the mark at loc.
func (c *Client) ParseMark(ctx context.Context, loc uint64) (*marks.Mark, uint64, error) {
	type pair struct {
		m   *marks.Mark
		loc uint64
	}
	p, err := submit[pair](ctx, c, func(e *engine.Engine) (any, error) {
		m, dataLoc, err := e.ParseMark(loc)
		return pair{m, dataLoc}, err
	})
	return p.m, p.loc, err
}

// ParseData asks the actor to shallowly decode mark's data at loc.
func (c *Client) ParseData(ctx context.Context, mark *marks.Mark, loc uint64) (data.Value, error) {
	return submit[data.Value](ctx, c, func(e *engine.Engine) (any, error) {
		return e.ParseData(mark, loc)
	})
}

// ParseDataFull asks the actor to fully decode mark's data at loc.
func (c *Client) ParseDataFull(ctx context.Context, mark *marks.Mark, loc uint64) (data.Value, error) {
	return submit[data.Value](ctx, c, func(e *engine.Engine) (any, error) {
		return e.ParseDataFull(mark, loc)
	})
}

// ParseItem asks the actor to parse the mark and shallow data at loc.
func (c *Client) ParseItem(ctx context.Context, loc uint64) (engine.PartialItem, error) {
	return submit[engine.PartialItem](ctx, c, func(e *engine.Engine) (any, error) {
		return e.ParseItem(loc)
	})
}

// ParseItemFull asks the actor to parse the mark and full data at loc.
func (c *Client) ParseItemFull(ctx context.Context, loc uint64) (engine.PartialItem, error) {
	return submit[engine.PartialItem](ctx, c, func(e *engine.Engine) (any, error) {
		return e.ParseItemFull(loc)
	})
}

// ParseItemN asks the actor to parse up to count items or limitBytes bytes
// starting at loc.
func (c *Client) ParseItemN(ctx context.Context, loc uint64, count *int, limitBytes uint64, parseData bool) ([]engine.PartialItem, error) {
	return submit[[]engine.PartialItem](ctx, c, func(e *engine.Engine) (any, error) {
		return e.ParseItemN(loc, count, limitBytes, parseData)
	})
}

// ParseDataN asks the actor to parse n repetitions of mark starting at loc.
func (c *Client) ParseDataN(ctx context.Context, mark *marks.Mark, loc uint64, n int) ([]data.Value, error) {
	return submit[[]data.Value](ctx, c, func(e *engine.Engine) (any, error) {
		return e.ParseDataN(mark, loc, n)
	})
}
