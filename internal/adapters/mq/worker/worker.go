// Package worker runs the scoring pool: each worker takes a job off the
// queue, runs the engine and hands the breakdown to the Updater.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/pitwall/internal/adapters/mq/queue"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/scoring"
	"github.com/okian/pitwall/pkg/logger"
	"github.com/okian/pitwall/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2
	defaultAttempts         = 3
	defaultBackoff          = 50 * time.Millisecond
	poolShutdownTimeout     = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = queue.Job

// Updater persists a breakdown and refreshes the leaderboards for the job.
type Updater interface {
	ApplyScore(ctx context.Context, job Job, b scoring.Breakdown) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// observer is implemented by queues that want to hear about dequeues.
type observer interface {
	Observe(j Job)
}

// InMemoryWorker processes jobs until the queue closes or ctx is done.
type InMemoryWorker struct {
	queue   Queue
	scorer  scoring.Scorer
	updater Updater
	name    string

	attempts  int
	backoff   time.Duration
	active    *atomic.Int64
	onOutcome func(ctx context.Context, out model.JobOutcome)

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, scorer scoring.Scorer, updater Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		scorer:   scorer,
		updater:  updater,
		name:     "worker",
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		active:   &atomic.Int64{},
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	obs, _ := w.queue.(observer)
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if obs != nil {
				obs.Observe(j)
			}
			w.handle(ctx, j)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) handle(ctx context.Context, j Job) { //nolint:gocritic // hugeParam: jobs travel by value
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() { metrics.UpdateWorkerActiveCount(int(w.active.Add(-1))) }()

	start := time.Now()
	b, attempts, err := w.process(ctx, j)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordWorkerProcessingLatency(elapsed)

	if err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "scoring job failed",
			logger.String("job", j.Key),
			logger.Int("attempts", attempts),
			logger.Error(err),
		)
	} else {
		metrics.RecordScoringLatency(elapsed)
		metrics.RecordBetScored(b.TotalScore, b.DetailTypes())
		w.logger.Debug(ctx, "bet scored",
			logger.String("bet_id", j.BetID),
			logger.Int("score", b.TotalScore),
		)
	}

	out := model.JobOutcome{BetID: j.BetID, UserID: j.UserID, Breakdown: b, Attempts: attempts, Err: err}
	if w.onOutcome != nil {
		w.onOutcome(ctx, out)
	}
	if j.Reply != nil {
		j.Reply <- out
	}
}

// process scores once and retries the update with exponential backoff.
func (w *InMemoryWorker) process(ctx context.Context, j Job) (scoring.Breakdown, int, error) { //nolint:gocritic // hugeParam: jobs travel by value
	b, err := w.scorer.Score(ctx, scoring.Input{
		Prediction:         j.Prediction,
		Results:            j.Results,
		FastestLapDriverID: j.FastestLapDriverID,
	})
	if err != nil {
		metrics.RecordScoringError()
		metrics.RecordErrorByComponent("worker", "scoring_error")
		return scoring.Breakdown{}, 0, fmt.Errorf("score bet %s: %w", j.BetID, err)
	}

	var lastErr error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		if attempt > 1 {
			metrics.RecordWorkerRetry()
			delay := w.backoff << (attempt - 2)
			select {
			case <-ctx.Done():
				return b, attempt - 1, errors.Join(lastErr, ctx.Err())
			case <-time.After(delay):
			}
		}
		lastErr = w.updater.ApplyScore(ctx, j, b)
		if lastErr == nil {
			return b, attempt, nil
		}
		if errors.Is(lastErr, ErrPermanent) {
			metrics.RecordErrorByComponent("worker", "permanent")
			return b, attempt, fmt.Errorf("apply score for bet %s: %w", j.BetID, lastErr)
		}
		w.logger.Warn(ctx, "apply score failed",
			logger.String("bet_id", j.BetID),
			logger.Int("attempt", attempt),
			logger.Error(lastErr),
		)
	}
	metrics.RecordLeaderboardError()
	metrics.RecordErrorByComponent("worker", "update_error")
	return b, w.attempts, fmt.Errorf("apply score for bet %s after %d attempts: %w", j.BetID, w.attempts, lastErr)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers sharing q. opts are applied
// to every worker.
func NewPool(workerCount int, q Queue, scorer scoring.Scorer, updater Updater, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	active := &atomic.Int64{}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append(append([]Option(nil), opts...), WithName("worker-"+strconv.Itoa(i)), withActiveCounter(active))
		p.workers[i] = NewInMemoryWorker(q, scorer, updater, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)

	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, lets workers drain what is buffered and waits
// for them, bounded by ctx and poolShutdownTimeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	return nil
}
