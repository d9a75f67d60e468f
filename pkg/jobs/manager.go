// Package jobs tracks background executions of action lists.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arnavsurve/pagestep/pkg/core"
	"github.com/arnavsurve/pagestep/pkg/journal"
	"github.com/arnavsurve/pagestep/pkg/log"
	"github.com/arnavsurve/pagestep/pkg/types"
	"github.com/google/uuid"
)

// DefaultJobType names jobs started without an explicit type.
const DefaultJobType = "execute-job"

var (
	ErrJobRunning  = errors.New("job already running")
	ErrJobNotFound = errors.New("job not found")
)

// Executor runs one action list. logger is already scoped to the job.
type Executor func(ctx context.Context, logger types.Logger, actions []types.Action, progress core.ProgressFunc) (*types.JobResult, error)

// EngineExecutor runs jobs on engine, scoping its logger per job.
func EngineExecutor(engine *core.Engine) Executor {
	return func(ctx context.Context, logger types.Logger, actions []types.Action, progress core.ProgressFunc) (*types.JobResult, error) {
		return engine.WithLogger(logger).Execute(ctx, actions, progress)
	}
}

type StartRequest struct {
	// ID is optional; one is derived from Type and the start time otherwise.
	ID      string
	Type    string
	Name    string
	Actions []types.Action
}

type record struct {
	job  types.Job
	done chan struct{}
}

// Manager owns the job registry. Jobs share one page, so at most one job
// executes at a time; later jobs wait for the page lock while reported as running.
type Manager struct {
	mu    sync.Mutex
	jobs  map[string]*record
	order []string

	pageLock sync.Mutex
	wg       sync.WaitGroup

	exec    Executor
	journal journal.Journal
	logger  types.Logger
	now     func() time.Time
}

func NewManager(exec Executor, j journal.Journal, logger types.Logger) *Manager {
	if j == nil {
		j = journal.Nop{}
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{
		jobs:    map[string]*record{},
		exec:    exec,
		journal: j,
		logger:  logger,
		now:     time.Now,
	}
}

// Start registers a job and runs it in the background. It returns as soon as
// the job is recorded. A job whose id is still running is rejected with
// ErrJobRunning; a finished job with the same id is replaced.
func (m *Manager) Start(ctx context.Context, req StartRequest) (string, error) {
	jobType := req.Type
	if jobType == "" {
		jobType = DefaultJobType
	}
	start := m.now()
	id := req.ID
	if id == "" {
		id = fmt.Sprintf("%s_%d", jobType, start.UnixMilli())
	}

	m.mu.Lock()
	if existing, ok := m.jobs[id]; ok {
		if existing.job.Status == types.JobStatusRunning {
			m.mu.Unlock()
			return "", fmt.Errorf("%w: %s", ErrJobRunning, id)
		}
		m.removeFromOrder(id)
	}
	rec := &record{
		job: types.Job{
			ID:        id,
			RunID:     uuid.NewString(),
			Type:      jobType,
			Name:      req.Name,
			Status:    types.JobStatusRunning,
			StartTime: start,
		},
		done: make(chan struct{}),
	}
	m.jobs[id] = rec
	m.order = append(m.order, id)
	m.wg.Add(1)
	m.mu.Unlock()

	logger := m.logger.With().Str("job_id", id).Str("run_id", rec.job.RunID).Logger()
	logger.Info().Int("actions", len(req.Actions)).Msg("Job started")

	go m.run(context.WithoutCancel(ctx), rec, req.Actions, logger)
	return id, nil
}

func (m *Manager) run(ctx context.Context, rec *record, actions []types.Action, logger types.Logger) {
	defer m.wg.Done()

	m.pageLock.Lock()
	result, err := m.execute(ctx, rec, actions, logger)
	m.pageLock.Unlock()

	m.mu.Lock()
	end := m.now()
	rec.job.EndTime = &end
	if err != nil {
		rec.job.Status = types.JobStatusFailed
		rec.job.Error = err.Error()
		if rec.job.Error == "" {
			rec.job.Error = "job failed"
		}
	} else {
		rec.job.Status = types.JobStatusCompleted
		rec.job.Progress = 100
		rec.job.Result = result
	}
	final := snapshot(rec.job)
	m.mu.Unlock()

	if err != nil {
		logger.Error().Err(err).Msg("Job failed")
	} else {
		logger.Info().Msg("Job completed")
	}

	if jerr := m.journal.Append(ctx, final); jerr != nil {
		logger.Error().Err(jerr).Msg("Failed to journal job")
	}
	close(rec.done)
}

func (m *Manager) execute(ctx context.Context, rec *record, actions []types.Action, logger types.Logger) (result *types.JobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	progress := func(percent int, description string) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if percent > rec.job.Progress {
			rec.job.Progress = percent
		}
		rec.job.LastAction = description
	}
	return m.exec(ctx, logger, actions, progress)
}

// Status returns a snapshot of the job.
func (m *Manager) Status(id string) (types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[id]
	if !ok {
		return types.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return snapshot(rec.job), nil
}

// All returns snapshots of every known job in start order.
func (m *Manager) All() []types.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, snapshot(m.jobs[id].job))
	}
	return out
}

// Wait blocks until the job settles or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) (types.Job, error) {
	m.mu.Lock()
	rec, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return types.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	select {
	case <-rec.done:
	case <-ctx.Done():
		return types.Job{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(rec.job), nil
}

// Shutdown waits for every running job to settle or for ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) removeFromOrder(id string) {
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

func snapshot(job types.Job) types.Job {
	if job.EndTime != nil {
		end := *job.EndTime
		job.EndTime = &end
	}
	if job.Result != nil {
		res := *job.Result
		if res.Variables != nil {
			vars := make(map[string]string, len(res.Variables))
			for k, v := range res.Variables {
				vars[k] = v
			}
			res.Variables = vars
		}
		job.Result = &res
	}
	return job
}
