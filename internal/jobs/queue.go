package jobs

import (
	stdcontext "context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/homeshow/internal/catalog"
	"git.home.luguber.info/inful/homeshow/internal/logfields"
	"git.home.luguber.info/inful/homeshow/internal/metrics"
	"git.home.luguber.info/inful/homeshow/internal/property"
	"git.home.luguber.info/inful/homeshow/internal/sitegen"
	"git.home.luguber.info/inful/homeshow/internal/sitegen/context"
)

// notifyBuffer holds every transition of one job plus slack; sends
// never block a worker.
const notifyBuffer = 16

// Generator abstracts the pipeline so tests can substitute one.
type Generator interface {
	Generate(ctx stdcontext.Context, req sitegen.Request, obs sitegen.Observer) (*sitegen.Report, error)
}

// SubmitRequest describes one generation to enqueue.
type SubmitRequest struct {
	PropertyID string
	TemplateID string
	Options    context.Options
	Target     string
}

// Queue runs generation jobs on background workers. Jobs for the same
// cleaned target path serialize behind each other; distinct targets
// run in parallel up to the worker count.
type Queue struct {
	jobs    chan *Job
	workers int

	mu      sync.RWMutex
	active  map[string]*Job
	history []*Job

	lockMu      sync.Mutex
	targetLocks map[string]*sync.Mutex

	stopChan chan struct{}
	wg       sync.WaitGroup

	gen      Generator
	store    property.Store
	catalog  *catalog.Catalog
	recorder metrics.Recorder
	log      *slog.Logger
}

const historySize = 50

// NewQueue creates a job queue.
func NewQueue(workers, maxSize int, gen Generator, store property.Store, cat *catalog.Catalog, recorder metrics.Recorder, log *slog.Logger) *Queue {
	if workers <= 0 {
		workers = 2
	}
	if maxSize <= 0 {
		maxSize = 100
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Queue{
		jobs:        make(chan *Job, maxSize),
		workers:     workers,
		active:      make(map[string]*Job),
		targetLocks: make(map[string]*sync.Mutex),
		stopChan:    make(chan struct{}),
		gen:         gen,
		store:       store,
		catalog:     cat,
		recorder:    recorder,
		log:         log,
	}
}

// Start launches the workers.
func (q *Queue) Start(ctx stdcontext.Context) {
	q.log.Info("Starting job queue", slog.Int("workers", q.workers))
	for i := range q.workers {
		q.wg.Add(1)
		go q.worker(ctx, fmt.Sprintf("worker-%d", i))
	}
}

// Stop cancels active jobs and waits for the workers to drain.
func (q *Queue) Stop() {
	close(q.stopChan)
	q.mu.Lock()
	for _, job := range q.active {
		if job.cancel != nil {
			job.cancel()
		}
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Submit enqueues one generation. The returned channel delivers one
// notification per state transition plus a terminal one, then closes.
func (q *Queue) Submit(req SubmitRequest) (*Job, <-chan Notification, error) {
	if req.PropertyID == "" || req.TemplateID == "" || req.Target == "" {
		return nil, nil, stderrors.New("property, template, and target are required")
	}
	job := &Job{
		ID:         uuid.NewString(),
		PropertyID: req.PropertyID,
		TemplateID: req.TemplateID,
		Options:    req.Options,
		Target:     filepath.Clean(req.Target),
		State:      StatePending,
		CreatedAt:  time.Now(),
		notify:     make(chan Notification, notifyBuffer),
	}
	select {
	case q.jobs <- job:
		return job, job.notify, nil
	default:
		close(job.notify)
		return nil, nil, stderrors.New("job queue is full")
	}
}

// Cancel requests cancellation of a running job. Cancellation takes
// effect between pipeline stages; a swap in progress always completes
// or fails atomically.
func (q *Queue) Cancel(jobID string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if job, ok := q.active[jobID]; ok && job.cancel != nil {
		job.cancel()
		return true
	}
	return false
}

// Snapshot returns a copy of a job, active first, then history.
func (q *Queue) Snapshot(jobID string) (*Job, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if j, ok := q.active[jobID]; ok {
		cp := *j
		return &cp, true
	}
	for _, j := range q.history {
		if j.ID == jobID {
			cp := *j
			return &cp, true
		}
	}
	return nil, false
}

func (q *Queue) worker(ctx stdcontext.Context, workerID string) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopChan:
			return
		case job := <-q.jobs:
			if job != nil {
				q.process(ctx, job, workerID)
			}
		}
	}
}

// targetLock returns the serialization lock for a cleaned target path.
func (q *Queue) targetLock(target string) *sync.Mutex {
	q.lockMu.Lock()
	defer q.lockMu.Unlock()
	l, ok := q.targetLocks[target]
	if !ok {
		l = &sync.Mutex{}
		q.targetLocks[target] = l
	}
	return l
}

func (q *Queue) process(ctx stdcontext.Context, job *Job, workerID string) {
	lock := q.targetLock(job.Target)
	lock.Lock()
	defer lock.Unlock()

	jobCtx, cancel := stdcontext.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	q.mu.Lock()
	job.cancel = cancel
	job.StartedAt = &start
	q.active[job.ID] = job
	q.mu.Unlock()

	q.log.Info("Job started",
		logfields.JobID(job.ID),
		logfields.Property(job.PropertyID),
		logfields.Template(job.TemplateID),
		logfields.Target(job.Target),
		slog.String("worker", workerID))

	report, err := q.run(jobCtx, job)
	q.finish(job, report, err)
}

// run resolves the job's inputs and executes the pipeline, forwarding
// stage transitions as notifications.
func (q *Queue) run(ctx stdcontext.Context, job *Job) (*sitegen.Report, error) {
	record, err := q.store.GetProperty(ctx, job.PropertyID)
	if err != nil {
		return nil, err
	}
	manifest, err := q.catalog.Get(job.TemplateID)
	if err != nil {
		return nil, err
	}

	obs := sitegen.Observers{
		&progressObserver{queue: q, job: job},
		sitegen.RecorderObserver{Recorder: q.recorder},
	}
	return q.gen.Generate(ctx, sitegen.Request{
		JobID:    job.ID,
		Record:   record,
		Manifest: manifest,
		Options:  job.Options,
		Target:   job.Target,
	}, obs)
}

func (q *Queue) finish(job *Job, report *sitegen.Report, err error) {
	end := time.Now()

	q.mu.Lock()
	job.CompletedAt = &end
	if job.StartedAt != nil {
		job.Duration = end.Sub(*job.StartedAt)
	}
	job.Report = report
	switch {
	case err == nil:
		job.State = StateCompleted
	case stderrors.Is(err, stdcontext.Canceled):
		job.State = StateCanceled
		job.Error = err.Error()
	default:
		job.State = StateFailed
		job.Error = err.Error()
	}
	terminal := job.State
	delete(q.active, job.ID)
	q.history = append(q.history, job)
	if len(q.history) > historySize {
		q.history = q.history[len(q.history)-historySize:]
	}
	q.mu.Unlock()

	n := Notification{JobID: job.ID, State: terminal, Terminal: true, Err: err}
	if err == nil {
		n.OutputDir = job.Target
	}
	q.notify(job, n)
	close(job.notify)

	q.log.Info("Job finished",
		logfields.JobID(job.ID),
		logfields.JobState(string(terminal)),
		logfields.DurationMS(float64(job.Duration.Milliseconds())),
		logfields.Error(err))
}

// notify delivers without ever blocking a worker; an undrained channel
// drops intermediate events but always keeps capacity for the terminal
// one because the buffer exceeds the transition count.
func (q *Queue) notify(job *Job, n Notification) {
	select {
	case job.notify <- n:
	default:
		q.log.Warn("Dropping job notification, subscriber not draining",
			logfields.JobID(job.ID), logfields.JobState(string(n.State)))
	}
}

// progressObserver maps pipeline stage starts onto job state
// transitions.
type progressObserver struct {
	queue *Queue
	job   *Job
}

func (o *progressObserver) StageStarted(jobID string, stage sitegen.StageName) {
	state := stateForStage(stage)
	o.queue.mu.Lock()
	o.job.State = state
	o.queue.mu.Unlock()
	o.queue.notify(o.job, Notification{JobID: jobID, State: state, Stage: stage})
}

func (o *progressObserver) StageFinished(string, sitegen.StageName, time.Duration, error) {}
