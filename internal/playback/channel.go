// Package playback serializes narration jobs per session: starting a new job
// stops the one already running on that session.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrStopped is returned by Play when its job was stopped, either explicitly
// or by a newer job on the same session.
var ErrStopped = errors.New("playback stopped")

// Job is one unit of playback work. It must return promptly once ctx is done.
type Job func(ctx context.Context) error

// Observer is notified when jobs end.
type Observer interface {
	OnDone(session string)
	OnError(session string, err error)
}

type noopObserver struct{}

func (noopObserver) OnDone(string)         {}
func (noopObserver) OnError(string, error) {}

type handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Channels holds at most one active job per session.
type Channels struct {
	mu       sync.Mutex
	active   map[string]*handle
	observer Observer
}

// NewChannels creates an empty registry. A nil observer is allowed.
func NewChannels(observer Observer) *Channels {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Channels{
		active:   make(map[string]*handle),
		observer: observer,
	}
}

// Play runs job on session, stopping and waiting for any previous job first.
// It blocks until job returns.
func (c *Channels) Play(ctx context.Context, session string, job Job) error {
	jobCtx, cancel := context.WithCancel(ctx)
	h := &handle{cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	prev := c.active[session]
	c.active[session] = h
	c.mu.Unlock()

	defer func() {
		cancel()
		// A stopped waiter still owns its predecessor until that job exits,
		// so done must not close before prev.done does.
		if prev != nil {
			<-prev.done
		}
		c.mu.Lock()
		if c.active[session] == h {
			delete(c.active, session)
		}
		c.mu.Unlock()
		close(h.done)
	}()

	if prev != nil {
		prev.cancel()
		select {
		case <-prev.done:
		case <-jobCtx.Done():
			return c.finish(session, jobCtx, jobCtx.Err())
		}
	}

	if err := jobCtx.Err(); err != nil {
		return c.finish(session, jobCtx, err)
	}
	return c.finish(session, jobCtx, job(jobCtx))
}

func (c *Channels) finish(session string, jobCtx context.Context, err error) error {
	if err != nil && jobCtx.Err() != nil && errors.Is(err, context.Canceled) {
		slog.Debug("playback stopped", "session", session)
		return ErrStopped
	}
	if err != nil {
		c.observer.OnError(session, err)
		return err
	}
	c.observer.OnDone(session)
	return nil
}

// Stop cancels the active job on session. It reports whether one was running.
func (c *Channels) Stop(session string) bool {
	c.mu.Lock()
	h, ok := c.active[session]
	c.mu.Unlock()
	if !ok {
		return false
	}
	h.cancel()
	return true
}

// Active reports whether session has a running job.
func (c *Channels) Active(session string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[session]
	return ok
}

// Len returns the number of sessions with a running job.
func (c *Channels) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}
