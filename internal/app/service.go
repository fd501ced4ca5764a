// Package service wires storage, the scoring pool and the leaderboards into
// the operations the HTTP API and the CLI call.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/pitwall/internal/adapters/mq/queue"
	"github.com/okian/pitwall/internal/adapters/mq/worker"
	"github.com/okian/pitwall/internal/adapters/repository"
	"github.com/okian/pitwall/internal/adapters/storage"
	"github.com/okian/pitwall/internal/domain/dedupe"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/scoring"
	"github.com/okian/pitwall/internal/domain/types"
	"github.com/okian/pitwall/pkg/logger"
	"github.com/okian/pitwall/pkg/metrics"
)

const userStripes = 64

// Store is the persistence the service needs.
type Store interface {
	EnsureUser(ctx context.Context, u model.User) (model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)

	CreateDriver(ctx context.Context, d model.Driver) (model.Driver, error)
	GetDriver(ctx context.Context, id string) (model.Driver, error)
	ListDrivers(ctx context.Context, activeOnly bool) ([]model.Driver, error)

	CreateRace(ctx context.Context, r model.Race) (model.Race, error)
	GetRace(ctx context.Context, id string) (model.Race, error)
	ListRaces(ctx context.Context, season int) ([]model.Race, error)
	Seasons(ctx context.Context) ([]int, error)
	UpdateRace(ctx context.Context, r model.Race) (model.Race, error)
	DeleteRace(ctx context.Context, id string) error

	ReplaceResults(ctx context.Context, raceID string, results []scoring.Result, fastestLap string) (model.Race, error)
	Results(ctx context.Context, raceID string) ([]scoring.Result, error)

	UpsertBet(ctx context.Context, userID, raceID string, p scoring.Prediction) (model.Bet, error)
	GetBet(ctx context.Context, id string) (model.Bet, error)
	BetsForRace(ctx context.Context, raceID string) ([]model.Bet, error)
	BetsForUser(ctx context.Context, userID string) ([]model.Bet, error)
	SaveScore(ctx context.Context, betID string, revision int, b scoring.Breakdown) error
	UserTotals(ctx context.Context, season int) ([]storage.UserTotal, error)
	UserTotal(ctx context.Context, userID string, season int) (int, bool, error)
	TopBets(ctx context.Context, limit int) ([]model.ScoredBet, error)

	Migrate(ctx context.Context, target int) (uint, error)
}

// Notifier hears about races whose scoring finished.
type Notifier interface {
	RaceScored(ctx context.Context, race model.Race, report Report, top []types.Entry) error
}

// Service implements the betting workflows.
type Service struct {
	mu sync.RWMutex

	store    Store
	boards   *repository.Boards
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue
	scorer   scoring.Scorer
	pool     *worker.Pool
	notifier Notifier
	cancel   context.CancelFunc

	workerCount       int
	queueSize         int
	dedupeSize        int
	retryAttempts     int
	retryBackoff      time.Duration
	submissionTimeout time.Duration
	minPositions      int
	autoMigrate       bool
	now               func() time.Time

	stripes [userStripes]sync.Mutex

	submissions atomic.Int64
	betsPlaced  atomic.Int64
	scored      atomic.Int64
	failed      atomic.Int64

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of scoring workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the scoring queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many job keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRetry sets how often a score write is attempted and the base backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.retryAttempts = attempts
		}
		if backoff >= 0 {
			s.retryBackoff = backoff
		}
	}
}

// WithSubmissionTimeout bounds how long SubmitResults waits for scoring.
func WithSubmissionTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.submissionTimeout = d
		}
	}
}

// WithMinPositions sets how many positions a bet must fill.
func WithMinPositions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minPositions = n
		}
	}
}

// WithNotifier registers a Notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithScorer replaces the scoring engine.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithAutoMigrate controls whether Start migrates the schema to latest.
func WithAutoMigrate(on bool) Option {
	return func(s *Service) { s.autoMigrate = on }
}

// WithClock overrides the time source used for deadline checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:             store,
		scorer:            scoring.NewEngine(),
		workerCount:       runtime.NumCPU() * 2,
		queueSize:         10_000,
		dedupeSize:        100_000,
		retryAttempts:     3,
		retryBackoff:      50 * time.Millisecond,
		submissionTimeout: 30 * time.Second,
		minPositions:      10,
		autoMigrate:       true,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start migrates the schema, rebuilds the leaderboards from storage and
// starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting betting service...")

	if s.autoMigrate {
		if _, err := s.store.Migrate(ctx, -1); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	s.boards = repository.NewBoards()
	if err := s.rebuildBoards(ctx); err != nil {
		return fmt.Errorf("rebuild leaderboards: %w", err)
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.scorer, s,
		worker.WithRetry(s.retryAttempts, s.retryBackoff),
		worker.WithOutcomeHook(s.recordOutcome))

	// workers outlive the caller's ctx; Stop cancels them
	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(poolCtx)

	s.started = true
	s.logger.Info(ctx, "betting service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("boards", len(s.boards.Keys())),
	)
	return nil
}

// Stop drains the queue and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping betting service...")

	err := s.pool.Shutdown(ctx)
	s.cancel()
	s.started = false

	s.logger.Info(ctx, "betting service stopped")
	return err
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Service) running() error {
	if !s.isStarted() {
		return ErrNotStarted
	}
	return nil
}

// lockUser serialises total recomputation per user.
func (s *Service) lockUser(userID string) func() {
	m := &s.stripes[xxhash.Sum64String(userID)%userStripes]
	m.Lock()
	return m.Unlock
}

// recordOutcome counts every finished job, including jobs that finish after
// their submission stopped waiting.
func (s *Service) recordOutcome(_ context.Context, out model.JobOutcome) {
	if out.Err != nil {
		s.failed.Add(1)
		return
	}
	s.scored.Add(1)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":           s.started,
		"workerCount":       s.workerCount,
		"queueSize":         s.queueSize,
		"dedupeSize":        s.dedupeSize,
		"resultSubmissions": s.submissions.Load(),
		"betsPlaced":        s.betsPlaced.Load(),
		"betsScored":        s.scored.Load(),
		"scoringFailures":   s.failed.Load(),
	}

	if s.started {
		ctx := context.Background()
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()
		stats["boards"] = len(s.boards.Keys())
		if overall, ok := s.boards.Lookup(repository.OverallBoard); ok {
			stats["rankedUsers"] = overall.Count(ctx)
		} else {
			stats["rankedUsers"] = 0
		}

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, repository.ErrNotFound)
}
