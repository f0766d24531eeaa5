package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yklcs/areum/internal/logging"
)

func TestWatcherReportsSourceChanges(t *testing.T) {
	dir := t.TempDir()

	w, err := New(50*time.Millisecond, logging.Discard())
	require.NoError(t, err)
	defer w.Stop()

	w.AddFilter(SourceFilter)
	w.AddFilter(NoHiddenFilter)

	got := make(chan []Event, 1)
	w.AddHandler(func(events []Event) {
		select {
		case got <- events:
		default:
		}
	})

	require.NoError(t, w.AddRecursive(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	page := filepath.Join(dir, "index.gsx")
	require.NoError(t, os.WriteFile(page, []byte("// page"), 0o644))

	select {
	case events := <-got:
		require.NotEmpty(t, events)
		assert.Equal(t, page, events[0].Path)
	case <-time.After(3 * time.Second):
		t.Fatal("no change batch received")
	}
}

func TestWatcherIgnoresFilteredFiles(t *testing.T) {
	dir := t.TempDir()

	w, err := New(50*time.Millisecond, logging.Discard())
	require.NoError(t, err)
	defer w.Stop()

	w.AddFilter(SourceFilter)

	got := make(chan []Event, 1)
	w.AddHandler(func(events []Event) {
		select {
		case got <- events:
		default:
		}
	})

	require.NoError(t, w.AddRecursive(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case events := <-got:
		t.Fatalf("unexpected batch for non-source file: %v", events)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestDebouncerDeduplicatesByPath(t *testing.T) {
	d := &debouncer{
		delay:  10 * time.Millisecond,
		events: make(chan Event, 10),
		output: make(chan []Event, 1),
	}

	d.add(Event{Op: OpCreate, Path: "/a.gsx"})
	d.add(Event{Op: OpModify, Path: "/a.gsx"})
	d.add(Event{Op: OpModify, Path: "/b.css"})

	select {
	case events := <-d.output:
		require.Len(t, events, 2)
		assert.Equal(t, "/a.gsx", events[0].Path)
		assert.Equal(t, OpModify, events[0].Op)
		assert.Equal(t, "/b.css", events[1].Path)
	case <-time.After(time.Second):
		t.Fatal("debouncer never flushed")
	}
}

func TestFilters(t *testing.T) {
	assert.True(t, SourceFilter("/site/index.gsx"))
	assert.True(t, SourceFilter("/site/post.md"))
	assert.True(t, SourceFilter("/site/style.css"))
	assert.False(t, SourceFilter("/site/readme.txt"))

	assert.True(t, NoHiddenFilter("/site/pages/index.gsx"))
	assert.False(t, NoHiddenFilter("/site/.git/config"))
	assert.False(t, NoHiddenFilter("/site/.cache"))
}
