package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/emiswap/indexer/internal/processor"
)

const maxConsecutiveErrors = 10

// Follower catches up with the chain head.
type Follower interface {
	CatchUp(ctx context.Context) error
}

// FollowScheduler runs the follower every interval, one run at a time.
// A fatal error, or too many consecutive failures, stops it.
type FollowScheduler struct {
	follower  Follower
	interval  time.Duration
	scheduler gocron.Scheduler
	logger    zerolog.Logger

	mu                sync.Mutex
	consecutiveErrors int
	fatal             chan error
	once              sync.Once
}

func NewFollowScheduler(follower Follower, interval time.Duration, logger zerolog.Logger) (*FollowScheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &FollowScheduler{
		follower:  follower,
		interval:  interval,
		scheduler: s,
		logger:    logger.With().Str("component", "follow-scheduler").Logger(),
		fatal:     make(chan error, 1),
	}, nil
}

// Run schedules the follow job and blocks until ctx is done or the job
// fails fatally.
func (s *FollowScheduler) Run(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.follow, ctx),
		gocron.WithName("follow-chain"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule follow job: %w", err)
	}

	s.logger.Info().Dur("interval", s.interval).Msg("Follow scheduler started")
	s.scheduler.Start()
	defer s.stop()

	select {
	case <-ctx.Done():
		return nil
	case err := <-s.fatal:
		return err
	}
}

func (s *FollowScheduler) stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down scheduler")
	}
}

func (s *FollowScheduler) follow(ctx context.Context) {
	start := time.Now()
	err := s.follower.CatchUp(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		s.mu.Lock()
		s.consecutiveErrors = 0
		s.mu.Unlock()
		return
	}

	if processor.IsFatal(err) {
		s.logger.Error().Err(err).Msg("Fatal error, stopping sync")
		s.halt(err)
		return
	}

	s.mu.Lock()
	s.consecutiveErrors++
	n := s.consecutiveErrors
	s.mu.Unlock()

	s.logger.Error().
		Err(err).
		Int("consecutive_errors", n).
		Dur("duration", time.Since(start)).
		Msg("Sync failed")
	if n >= maxConsecutiveErrors {
		s.logger.Error().Msg("Too many consecutive errors, stopping sync")
		s.halt(fmt.Errorf("%d consecutive sync failures: %w", n, err))
	}
}

func (s *FollowScheduler) halt(err error) {
	s.once.Do(func() { s.fatal <- err })
}
