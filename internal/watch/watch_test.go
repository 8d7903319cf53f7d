package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/homeshow/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatcherFiresDebouncedTrigger(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "homeshow.db")
	require.NoError(t, os.WriteFile(store, []byte("v1"), 0o600))

	var fires atomic.Int32
	w, err := New(config.WatchConfig{Debounce: "50ms"}, []string{store},
		func(reason string) {
			assert.Equal(t, "change", reason)
			fires.Add(1)
		}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register, then burst-write.
	time.Sleep(100 * time.Millisecond)
	for range 5 {
		require.NoError(t, os.WriteFile(store, []byte(time.Now().String()), 0o600))
		time.Sleep(5 * time.Millisecond)
	}

	// The burst collapses to one trigger.
	require.Eventually(t, func() bool { return fires.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), fires.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "homeshow.db")
	require.NoError(t, os.WriteFile(store, []byte("v1"), 0o600))

	var fires atomic.Int32
	w, err := New(config.WatchConfig{Debounce: "30ms"}, []string{store},
		func(string) { fires.Add(1) }, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o600))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), fires.Load())
}

func TestWatcherWatchesDirectoryContents(t *testing.T) {
	tplDir := filepath.Join(t.TempDir(), "templates")
	require.NoError(t, os.MkdirAll(tplDir, 0o750))

	var fires atomic.Int32
	w, err := New(config.WatchConfig{Debounce: "30ms"}, []string{tplDir},
		func(string) { fires.Add(1) }, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(tplDir, "template.yaml"), []byte("id: x"), 0o600))
	require.Eventually(t, func() bool { return fires.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherScheduleFires(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "homeshow.db")
	require.NoError(t, os.WriteFile(store, []byte("v1"), 0o600))

	var scheduled atomic.Int32
	w, err := New(config.WatchConfig{Debounce: "1s", Schedule: "40ms"}, []string{store},
		func(reason string) {
			if reason == "schedule" {
				scheduled.Add(1)
			}
		}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool { return scheduled.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherRejectsBadSchedule(t *testing.T) {
	_, err := New(config.WatchConfig{Debounce: "1s", Schedule: "often"}, nil, func(string) {}, testLogger())
	assert.Error(t, err)
}
