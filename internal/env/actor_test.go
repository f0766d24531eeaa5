package env

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	areumerrors "github.com/yklcs/areum/internal/errors"
	"github.com/yklcs/areum/internal/logging"
	"github.com/yklcs/areum/internal/page"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubEngine records the order Run was invoked in and can be made slow or
// explosive per path.
type stubEngine struct {
	mu      sync.Mutex
	runs    []string
	delay   time.Duration
	panicOn string
	bundle  string
}

func (e *stubEngine) Run(path, sitePath string) (*page.Page, error) {
	if e.panicOn != "" && e.panicOn == path {
		panic("engine crashed on " + path)
	}
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	e.mu.Lock()
	e.runs = append(e.runs, path)
	e.mu.Unlock()
	return &page.Page{SitePath: sitePath}, nil
}

func (e *stubEngine) Bundle() (string, error) {
	return e.bundle, nil
}

func (e *stubEngine) ran() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.runs))
	copy(out, e.runs)
	return out
}

func stubFactory(e *stubEngine) Factory {
	return func() (Engine, error) { return e, nil }
}

func TestActorProcessesInArrivalOrder(t *testing.T) {
	eng := &stubEngine{}
	a, err := startActor(stubFactory(eng), logging.Discard(), nil)
	require.NoError(t, err)
	defer func() {
		a.signalStop()
		<-a.done
	}()

	const n = 10
	replies := make([]chan Reply, n)
	for i := 0; i < n; i++ {
		replies[i] = make(chan Reply, 1)
		a.jobs <- Request{
			Kind:     KindBuild,
			Path:     fmt.Sprintf("/page-%d.gsx", i),
			SitePath: fmt.Sprintf("/page-%d", i),
			Reply:    replies[i],
		}
	}

	for i := 0; i < n; i++ {
		rep := <-replies[i]
		require.NoError(t, rep.Err)
		assert.Equal(t, fmt.Sprintf("/page-%d", i), rep.Page.SitePath)
	}

	want := make([]string, n)
	for i := range want {
		want[i] = fmt.Sprintf("/page-%d.gsx", i)
	}
	assert.Equal(t, want, eng.ran())
}

func TestActorFailsQueuedRequestsOnStop(t *testing.T) {
	eng := &stubEngine{delay: 100 * time.Millisecond}
	a, err := startActor(stubFactory(eng), logging.Discard(), nil)
	require.NoError(t, err)

	// First request occupies the engine, the rest queue behind it.
	replies := make([]chan Reply, 5)
	for i := range replies {
		replies[i] = make(chan Reply, 1)
		a.jobs <- Request{Kind: KindBuild, Path: "/p.gsx", SitePath: "/p", Reply: replies[i]}
	}

	a.signalStop()
	<-a.done

	var completed, failed int
	for _, ch := range replies {
		select {
		case rep := <-ch:
			if rep.Err == nil {
				completed++
			} else {
				var cerr *areumerrors.ChannelError
				require.ErrorAs(t, rep.Err, &cerr)
				failed++
			}
		case <-time.After(2 * time.Second):
			t.Fatal("queued request neither completed nor failed")
		}
	}
	// At most the request already dequeued finishes; everything still
	// queued fails.
	assert.LessOrEqual(t, completed, 1)
	assert.Equal(t, len(replies), completed+failed)
}

func TestActorStartupFailure(t *testing.T) {
	boom := fmt.Errorf("interpreter init failed")
	_, err := startActor(func() (Engine, error) { return nil, boom }, logging.Discard(), nil)
	require.ErrorIs(t, err, boom)
}

func TestCallAgainstStoppedActor(t *testing.T) {
	eng := &stubEngine{}
	a, err := startActor(stubFactory(eng), logging.Discard(), nil)
	require.NoError(t, err)
	a.signalStop()
	<-a.done

	rep := a.call(context.Background(), Request{
		Kind:     KindBuild,
		Path:     "/p.gsx",
		SitePath: "/p",
		Reply:    make(chan Reply, 1),
	})
	var cerr *areumerrors.ChannelError
	require.ErrorAs(t, rep.Err, &cerr)
}

func TestCallHonorsContextWhileMailboxFull(t *testing.T) {
	eng := &stubEngine{delay: time.Second}
	a, err := startActor(stubFactory(eng), logging.Discard(), nil)
	require.NoError(t, err)
	defer func() {
		a.signalStop()
		<-a.done
	}()

	// Saturate: one in flight plus a full mailbox.
	a.jobs <- Request{Kind: KindBuild, Path: "/p.gsx", SitePath: "/p", Reply: make(chan Reply, 1)}
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < mailboxSize; i++ {
		a.jobs <- Request{Kind: KindBuild, Path: "/p.gsx", SitePath: "/p", Reply: make(chan Reply, 1)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	rep := a.call(ctx, Request{Kind: KindBuild, Path: "/late.gsx", SitePath: "/late", Reply: make(chan Reply, 1)})
	require.ErrorIs(t, rep.Err, context.DeadlineExceeded)
}
