package env

import (
	"context"
	"sync"

	"github.com/yklcs/areum/internal/errors"
	"github.com/yklcs/areum/internal/logging"
	"github.com/yklcs/areum/internal/page"
)

// Manager owns the live environment actor and routes build requests to
// it. Restart replaces the actor wholesale: the old engine's module
// caches and accumulated bundle state die with it.
type Manager struct {
	mu      sync.RWMutex
	current *Actor
	stopped bool

	factory Factory
	log     logging.Logger

	deaths    chan *Actor
	watchDone chan struct{}
}

// NewManager spawns the first actor and starts the death watch. A panic
// inside the live actor triggers an implicit restart so the next request
// finds a fresh engine instead of a dead mailbox.
func NewManager(factory Factory, log logging.Logger) (*Manager, error) {
	if log == nil {
		log = logging.Discard()
	}
	m := &Manager{
		factory:   factory,
		log:       log,
		deaths:    make(chan *Actor, 4),
		watchDone: make(chan struct{}),
	}

	a, err := startActor(factory, log, m.deaths)
	if err != nil {
		return nil, err
	}
	m.current = a

	go m.watch()
	return m, nil
}

// Build renders the page at path through the live actor.
func (m *Manager) Build(ctx context.Context, path, sitePath string) (*page.Page, error) {
	rep := m.send(ctx, Request{
		Kind:     KindBuild,
		Path:     path,
		SitePath: sitePath,
		Reply:    make(chan Reply, 1),
	})
	return rep.Page, rep.Err
}

// BundleJS returns the client bundle accumulated by the live engine.
func (m *Manager) BundleJS(ctx context.Context) (string, error) {
	rep := m.send(ctx, Request{
		Kind:  KindBundle,
		Reply: make(chan Reply, 1),
	})
	return rep.Bundle, rep.Err
}

func (m *Manager) send(ctx context.Context, req Request) Reply {
	m.mu.RLock()
	a := m.current
	stopped := m.stopped
	m.mu.RUnlock()

	if stopped || a == nil {
		return Reply{Err: &errors.ChannelError{Reason: "no live environment"}}
	}
	return a.call(ctx, req)
}

// Restart replaces the live actor with a fresh one: signal the old actor
// to drain, spawn the replacement, swap it in, then join the old one.
// Requests routed to the old actor during the window either complete
// against it or fail with ChannelError; they are never migrated.
func (m *Manager) Restart() error {
	m.mu.RLock()
	old := m.current
	stopped := m.stopped
	m.mu.RUnlock()

	if stopped {
		return &errors.ChannelError{Reason: "environment manager stopped"}
	}

	if old != nil {
		old.signalStop()
	}

	fresh, err := startActor(m.factory, m.log, m.deaths)
	if err != nil {
		m.mu.Lock()
		m.current = nil
		m.mu.Unlock()
		m.log.Error(context.Background(), err, "environment restart failed")
		if old != nil {
			<-old.done
		}
		return err
	}

	m.mu.Lock()
	if m.stopped {
		// Stop raced the restart; do not resurrect.
		m.mu.Unlock()
		fresh.signalStop()
		<-fresh.done
		if old != nil {
			<-old.done
		}
		return &errors.ChannelError{Reason: "environment manager stopped"}
	}
	m.current = fresh
	m.mu.Unlock()

	if old != nil {
		<-old.done
	}
	m.log.Info(context.Background(), "environment restarted")
	return nil
}

// Stop drains and joins the live actor and shuts the death watch down.
// Further requests fail with ChannelError.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	old := m.current
	m.current = nil
	m.mu.Unlock()

	if old != nil {
		old.signalStop()
		<-old.done
	}
	close(m.watchDone)
}

// watch restarts the environment when the live actor dies by panic. A
// death notice from an actor that was already replaced is ignored.
func (m *Manager) watch() {
	for {
		select {
		case <-m.watchDone:
			return
		case dead := <-m.deaths:
			m.mu.RLock()
			live := m.current == dead
			stopped := m.stopped
			m.mu.RUnlock()
			if stopped || !live {
				continue
			}
			m.log.Warn(context.Background(), nil, "environment died, restarting")
			if err := m.Restart(); err != nil {
				m.log.Error(context.Background(), err, "implicit restart failed")
			}
		}
	}
}
