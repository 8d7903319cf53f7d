package jobs

import (
	stdcontext "context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/homeshow/internal/catalog"
	"git.home.luguber.info/inful/homeshow/internal/property"
	"git.home.luguber.info/inful/homeshow/internal/sitegen"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New(t.TempDir())
	require.NoError(t, cat.EnsureBuiltins())
	return cat
}

func testStore() *property.MemoryStore {
	title := "Villa"
	return property.NewMemoryStore(&property.Record{ID: "p1", Title: &title})
}

// stubGenerator simulates the pipeline: it walks the stage order,
// notifying the observer, with an optional per-run delay and failure.
type stubGenerator struct {
	delay time.Duration
	fail  error

	mu         sync.Mutex
	running    map[string]int // target → currently running
	maxRunning map[string]int
}

func newStubGenerator(delay time.Duration) *stubGenerator {
	return &stubGenerator{
		delay:      delay,
		running:    map[string]int{},
		maxRunning: map[string]int{},
	}
}

func (s *stubGenerator) Generate(ctx stdcontext.Context, req sitegen.Request, obs sitegen.Observer) (*sitegen.Report, error) {
	s.mu.Lock()
	s.running[req.Target]++
	if s.running[req.Target] > s.maxRunning[req.Target] {
		s.maxRunning[req.Target] = s.running[req.Target]
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running[req.Target]--
		s.mu.Unlock()
	}()

	for _, stage := range sitegen.StageOrder() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		obs.StageStarted(req.JobID, stage)
		if s.delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.delay):
			}
		}
		obs.StageFinished(req.JobID, stage, s.delay, s.fail)
		if s.fail != nil {
			return nil, s.fail
		}
	}
	return &sitegen.Report{JobID: req.JobID, OutputDir: req.Target}, nil
}

func startQueue(t *testing.T, workers int, gen Generator) *Queue {
	t.Helper()
	q := NewQueue(workers, 10, gen, testStore(), testCatalog(t), nil, testLogger())
	ctx, cancel := stdcontext.WithCancel(stdcontext.Background())
	q.Start(ctx)
	t.Cleanup(func() {
		q.Stop()
		cancel()
	})
	return q
}

func collect(t *testing.T, ch <-chan Notification, timeout time.Duration) []Notification {
	t.Helper()
	var out []Notification
	deadline := time.After(timeout)
	for {
		select {
		case n, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, n)
		case <-deadline:
			t.Fatalf("timed out waiting for notifications, got %v", out)
		}
	}
}

func TestSubmitRunsToCompletion(t *testing.T) {
	q := startQueue(t, 2, newStubGenerator(0))

	job, ch, err := q.Submit(SubmitRequest{
		PropertyID: "p1", TemplateID: "modern",
		Target: filepath.Join(t.TempDir(), "site"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)

	ns := collect(t, ch, 5*time.Second)
	require.NotEmpty(t, ns)

	// One notification per state transition, in pipeline order, then
	// the terminal one.
	var states []State
	for _, n := range ns {
		states = append(states, n.State)
	}
	assert.Equal(t, []State{
		StateValidating, StateProcessingAssets, StateRendering, StateWriting, StateCompleted,
	}, states)

	last := ns[len(ns)-1]
	assert.True(t, last.Terminal)
	assert.Equal(t, job.Target, last.OutputDir)
	assert.NoError(t, last.Err)

	snap, ok := q.Snapshot(job.ID)
	require.True(t, ok)
	assert.Equal(t, StateCompleted, snap.State)
	assert.NotNil(t, snap.Report)
}

func TestSameTargetSerializesDistinctTargetsParallel(t *testing.T) {
	gen := newStubGenerator(30 * time.Millisecond)
	q := startQueue(t, 4, gen)

	shared := filepath.Join(t.TempDir(), "shared")
	other := filepath.Join(t.TempDir(), "other")

	var chans []<-chan Notification
	for _, target := range []string{shared, shared, shared, other} {
		_, ch, err := q.Submit(SubmitRequest{PropertyID: "p1", TemplateID: "modern", Target: target})
		require.NoError(t, err)
		chans = append(chans, ch)
	}
	for _, ch := range chans {
		collect(t, ch, 10*time.Second)
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()
	assert.Equal(t, 1, gen.maxRunning[shared], "same-target jobs must serialize")
}

func TestCancelActiveJob(t *testing.T) {
	gen := newStubGenerator(200 * time.Millisecond)
	q := startQueue(t, 1, gen)

	job, ch, err := q.Submit(SubmitRequest{
		PropertyID: "p1", TemplateID: "modern",
		Target: filepath.Join(t.TempDir(), "site"),
	})
	require.NoError(t, err)

	// Wait for the job to start, then cancel.
	require.Eventually(t, func() bool {
		snap, ok := q.Snapshot(job.ID)
		return ok && snap.StartedAt != nil
	}, 5*time.Second, 5*time.Millisecond)
	assert.True(t, q.Cancel(job.ID))

	ns := collect(t, ch, 5*time.Second)
	last := ns[len(ns)-1]
	assert.True(t, last.Terminal)
	assert.Equal(t, StateCanceled, last.State)
	assert.Error(t, last.Err)
}

func TestCancelUnknownJob(t *testing.T) {
	q := startQueue(t, 1, newStubGenerator(0))
	assert.False(t, q.Cancel("no-such-job"))
}

func TestSubmitValidatesRequest(t *testing.T) {
	q := NewQueue(1, 1, newStubGenerator(0), testStore(), testCatalog(t), nil, testLogger())
	_, _, err := q.Submit(SubmitRequest{PropertyID: "p1"})
	assert.Error(t, err)
}

func TestSubmitQueueFull(t *testing.T) {
	// One slot, workers never started.
	q := NewQueue(1, 1, newStubGenerator(0), testStore(), testCatalog(t), nil, testLogger())
	_, _, err := q.Submit(SubmitRequest{PropertyID: "p1", TemplateID: "modern", Target: "a"})
	require.NoError(t, err)
	_, _, err = q.Submit(SubmitRequest{PropertyID: "p1", TemplateID: "modern", Target: "b"})
	assert.Error(t, err)
}

func TestUnknownPropertyFailsJob(t *testing.T) {
	q := startQueue(t, 1, newStubGenerator(0))

	job, ch, err := q.Submit(SubmitRequest{
		PropertyID: "missing", TemplateID: "modern",
		Target: filepath.Join(t.TempDir(), "site"),
	})
	require.NoError(t, err)

	ns := collect(t, ch, 5*time.Second)
	last := ns[len(ns)-1]
	assert.Equal(t, StateFailed, last.State)
	require.Error(t, last.Err)
	assert.True(t, property.IsNotFound(last.Err))

	snap, ok := q.Snapshot(job.ID)
	require.True(t, ok)
	assert.Equal(t, StateFailed, snap.State)
	assert.Contains(t, snap.Error, "missing")
}

func TestUnknownTemplateFailsJob(t *testing.T) {
	q := startQueue(t, 1, newStubGenerator(0))

	_, ch, err := q.Submit(SubmitRequest{
		PropertyID: "p1", TemplateID: "brutalist",
		Target: filepath.Join(t.TempDir(), "site"),
	})
	require.NoError(t, err)

	ns := collect(t, ch, 5*time.Second)
	last := ns[len(ns)-1]
	assert.Equal(t, StateFailed, last.State)
	assert.Contains(t, last.Err.Error(), "brutalist")
}
