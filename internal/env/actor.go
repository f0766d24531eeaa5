// Package env implements the environment actor model: each scripting
// engine instance is owned by exactly one actor running on a dedicated
// OS-locked goroutine, processing build requests strictly in arrival
// order. The manager creates and destroys actors, routes requests to the
// live one, and replaces a dead or stale actor wholesale; an engine is
// never shared, moved, or reset in place.
package env

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/yklcs/areum/internal/errors"
	"github.com/yklcs/areum/internal/logging"
	"github.com/yklcs/areum/internal/page"
)

// mailboxSize bounds each actor's request channel. A full mailbox
// suspends senders; that is the only backpressure mechanism.
const mailboxSize = 16

// replyGrace bounds how long a caller waits for a flushed reply after
// observing its actor exit.
const replyGrace = time.Second

// Engine is the per-actor build backend. Implementations are not
// goroutine-safe; the owning actor is their only caller.
type Engine interface {
	// Run builds the page at path, served under sitePath.
	Run(path, sitePath string) (*page.Page, error)
	// Bundle returns the client bundle accumulated across builds.
	Bundle() (string, error)
}

// Factory constructs a fresh engine for a new actor. It is invoked on the
// actor's own goroutine, so engines confined to their creating thread are
// safe.
type Factory func() (Engine, error)

// RequestKind discriminates build requests.
type RequestKind int

const (
	// KindBuild renders one page.
	KindBuild RequestKind = iota
	// KindBundle emits the accumulated client bundle.
	KindBundle
)

// Request is one unit of work for an actor.
type Request struct {
	Kind     RequestKind
	Path     string
	SitePath string
	// Reply receives exactly one Reply. It must have capacity 1 so a
	// caller that gave up never blocks the actor.
	Reply chan Reply
}

// Reply carries the result of a request.
type Reply struct {
	Page   *page.Page
	Bundle string
	Err    error
}

// Actor owns one engine on a dedicated goroutine.
//
// Lifecycle: Starting (engine construction; failures abort the actor
// only) -> Ready (blocking receive) -> processing -> Draining (stop
// observed at a select point, never preemptive) -> Stopped. Requests
// still queued when the actor exits are failed with ChannelError, never
// silently dropped.
type Actor struct {
	jobs chan Request
	stop chan struct{}
	// done is closed when the actor's goroutine has exited; senders gate
	// on it to fail fast instead of queueing to a dead mailbox.
	done chan struct{}

	stopOnce sync.Once
	log      logging.Logger
}

// startActor spawns an actor and blocks until its engine finished
// starting. deaths receives the actor if it exits by panic rather than by
// stop signal.
func startActor(factory Factory, log logging.Logger, deaths chan<- *Actor) (*Actor, error) {
	a := &Actor{
		jobs: make(chan Request, mailboxSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
		log:  log,
	}

	ready := make(chan error, 1)
	go a.run(factory, deaths, ready)

	if err := <-ready; err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Actor) run(factory Factory, deaths chan<- *Actor, ready chan<- error) {
	// The engine must only ever be touched from this thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	defer func() {
		if r := recover(); r != nil {
			a.log.Error(context.Background(), nil, "environment actor died", "panic", r)
			close(a.done)
			a.failPending()
			if deaths != nil {
				deaths <- a
			}
			return
		}
		close(a.done)
		a.failPending()
	}()

	eng, err := factory()
	if err != nil {
		ready <- err
		return
	}
	ready <- nil

	for {
		// Check stop first so a pending drain is never starved by a busy
		// mailbox.
		select {
		case <-a.stop:
			return
		default:
		}
		select {
		case <-a.stop:
			return
		case req := <-a.jobs:
			a.process(eng, req)
		}
	}
}

// process runs exactly one request to completion and sends exactly one
// reply. The engine is busy for the duration; FIFO order over the mailbox
// is the only scheduling.
func (a *Actor) process(eng Engine, req Request) {
	var rep Reply
	switch req.Kind {
	case KindBuild:
		rep.Page, rep.Err = eng.Run(req.Path, req.SitePath)
	case KindBundle:
		rep.Bundle, rep.Err = eng.Bundle()
	default:
		rep.Err = &errors.ChannelError{Reason: "unknown request kind"}
	}
	a.reply(req, rep)
}

func (a *Actor) reply(req Request, rep Reply) {
	// Reply channels are buffered; a non-blocking send also covers a
	// misbuilt zero-capacity channel whose receiver went away.
	select {
	case req.Reply <- rep:
	default:
	}
}

// failPending flushes requests that were still queued when the actor
// exited. Runs after done is closed, so no new sends can be admitted
// while draining.
func (a *Actor) failPending() {
	for {
		select {
		case req := <-a.jobs:
			a.reply(req, Reply{Err: &errors.ChannelError{Reason: "environment actor stopped"}})
		default:
			return
		}
	}
}

// signalStop requests a drain. The actor observes it at its next select
// point: a job already dequeued always finishes first.
func (a *Actor) signalStop() {
	a.stopOnce.Do(func() { close(a.stop) })
}

// call enqueues a request and awaits its reply. If the actor exits before
// replying, the caller gets a ChannelError within replyGrace rather than
// hanging.
func (a *Actor) call(ctx context.Context, req Request) Reply {
	select {
	case a.jobs <- req:
	case <-a.done:
		return Reply{Err: &errors.ChannelError{Reason: "environment actor stopped"}}
	case <-ctx.Done():
		return Reply{Err: ctx.Err()}
	}

	select {
	case rep := <-req.Reply:
		return rep
	case <-ctx.Done():
		return Reply{Err: ctx.Err()}
	case <-a.done:
		// The actor exited after accepting the request: either the reply
		// is already in flight or the drain pass is about to fail it.
		select {
		case rep := <-req.Reply:
			return rep
		case <-time.After(replyGrace):
			return Reply{Err: &errors.ChannelError{Reason: "environment actor stopped before replying"}}
		}
	}
}
