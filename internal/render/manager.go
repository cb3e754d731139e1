package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/flona/broll-engine/internal/logging"
	"github.com/flona/broll-engine/internal/metrics"
	"github.com/flona/broll-engine/internal/plan"
)

// Manager owns the render job lifecycle. Submit registers a job with a
// snapshot of the plan as it stood at submission time, so later plan runs
// never change what an in-flight job renders. A fixed pool of workers drains
// a bounded queue; when the queue is full the job is failed immediately
// rather than blocking the caller.
type Manager struct {
	repo       plan.Repository
	compositor Compositor
	metrics    *metrics.Metrics
	outputDir  string
	timeout    time.Duration
	workers    int
	queue      chan string
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(repo plan.Repository, compositor Compositor, m *metrics.Metrics, outputDir string, workers, queueSize int, timeout time.Duration, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		repo:       repo,
		compositor: compositor,
		metrics:    m,
		outputDir:  outputDir,
		timeout:    timeout,
		workers:    workers,
		queue:      make(chan string, queueSize),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the worker pool.
func (m *Manager) Start() {
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	m.logger.Info("render manager started", "workers", m.workers, "queue_size", cap(m.queue))
}

// Stop signals the workers and waits for in-flight renders to finish.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
	m.logger.Info("render manager stopped")
}

// Submit creates a queued render job for the given run and enqueues it.
// Returns ErrQueueFull if the queue has no room; the job row is failed so
// callers polling the job see a terminal status.
func (m *Manager) Submit(ctx context.Context, run *plan.Run) (*plan.RenderJob, error) {
	now := time.Now().UTC()
	job := &plan.RenderJob{
		ID:        plan.NewID(),
		RunID:     run.ID,
		Status:    plan.JobStatusQueued,
		Plan:      run.Plan,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.repo.CreateRenderJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating render job: %w", err)
	}

	select {
	case m.queue <- job.ID:
	default:
		if err := m.repo.FailRenderJob(ctx, job.ID, "render queue is full"); err != nil {
			m.logger.Error("failed to mark overflowed job", "job_id", job.ID, "error", err)
		}
		return nil, ErrQueueFull
	}

	m.logger.Info("render job queued", "job_id", job.ID, "run_id", run.ID)
	return job, nil
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case jobID := <-m.queue:
			m.process(jobID)
		}
	}
}

func (m *Manager) process(jobID string) {
	logger := logging.WithJobID(m.logger, jobID)

	// Repository writes use a background context so outcomes are still
	// recorded while the manager is shutting down.
	job, err := m.repo.GetRenderJob(context.Background(), jobID)
	if err != nil {
		logger.Error("failed to load render job", "error", err)
		return
	}
	if job == nil || job.Status != plan.JobStatusQueued {
		// Interrupted-job cleanup may have failed it before we got here.
		return
	}
	if err := m.repo.MarkRenderJobProcessing(context.Background(), jobID); err != nil {
		logger.Error("failed to mark job processing", "error", err)
		return
	}

	if m.metrics != nil {
		m.metrics.RenderStarted()
		defer m.metrics.RenderDone()
	}

	outputPath := filepath.Join(m.outputDir, jobID+".mp4")
	logger.Info("render started", "run_id", job.RunID, "output", outputPath)

	ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
	err = m.compositor.Render(ctx, &job.Plan, outputPath)
	cancel()

	if err != nil {
		m.finish(jobID, logger, func() error {
			return m.repo.FailRenderJob(context.Background(), jobID, renderFailureMessage(err))
		}, plan.JobStatusFailed)
		logger.Error("render failed", "error", err)
		return
	}

	m.finish(jobID, logger, func() error {
		return m.repo.CompleteRenderJob(context.Background(), jobID, outputPath)
	}, plan.JobStatusCompleted)
	logger.Info("render completed", "output", outputPath)
}

func (m *Manager) finish(jobID string, logger *slog.Logger, apply func() error, status string) {
	if err := apply(); err != nil {
		logger.Error("failed to record render outcome", "status", status, "error", err)
		return
	}
	if m.metrics != nil {
		m.metrics.RenderFinished(status)
	}
}

// renderFailureMessage prefixes the stored error with its failure kind so
// clients can distinguish a missing source from a broken render tool.
func renderFailureMessage(err error) string {
	var rerr *Error
	if errors.As(err, &rerr) {
		return fmt.Sprintf("%s: %v", rerr.Kind, rerr.Err)
	}
	return err.Error()
}
