package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bild-story/storage"
	"bild-story/story"
)

func waitEvent(t *testing.T, w *StoryWatcher, want EventType) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-w.Events():
			require.True(t, ok, "events channel closed")
			if ev.Type == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("timeout waiting for %s", want)
		}
	}
}

func TestStoryWatcherLifecycle(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir, nil)
	require.NoError(t, err)

	w, err := New(Config{Dir: dir, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start(), "second start fails")

	g := story.NewDefault()
	require.NoError(t, store.Save(context.Background(), "demo", g))

	ev := waitEvent(t, w, EventReloaded)
	assert.Equal(t, "demo", ev.StoryID)
	require.NotNil(t, ev.Graph)
	assert.Equal(t, g.StartSceneID, ev.Graph.StartSceneID)
	assert.Zero(t, ev.Errors)

	require.NoError(t, os.WriteFile(store.Path("demo"), []byte(`{"oops":`), 0o644))
	ev = waitEvent(t, w, EventDecodeError)
	assert.NotEmpty(t, ev.Message)
	assert.Nil(t, ev.Graph)

	require.NoError(t, os.Remove(store.Path("demo")))
	ev = waitEvent(t, w, EventDeleted)
	assert.Equal(t, "demo", ev.StoryID)

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	assert.Error(t, w.Stop())

	_, ok := <-w.Events()
	for ok {
		_, ok = <-w.Events()
	}
}

func TestStoryWatcherIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Dir: dir, Debounce: 10 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-demo.json"), []byte("{}"), 0o644))

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNewRequiresExistingDir(t *testing.T) {
	_, err := New(Config{Dir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}
