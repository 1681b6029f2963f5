// Package sweep runs the periodic overdue scan. The sweeper asks the
// lifecycle engine to flip every task whose due date has passed and hands
// the resulting effects to the dispatcher.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/choreboard/choreboard/internal/service"
)

// Engine is the subset of the task service the sweeper needs.
type Engine interface {
	SweepOverdue(ctx context.Context, now time.Time) ([]service.Effect, error)
}

// Dispatcher executes the effects a sweep produces.
type Dispatcher interface {
	Dispatch(ctx context.Context, effects []service.Effect) []service.EffectResult
}

// Sweeper periodically scans for overdue tasks. One sweep runs at a time;
// a slow sweep delays the next tick rather than overlapping it.
type Sweeper struct {
	engine     Engine
	dispatcher Dispatcher
	interval   time.Duration
	logger     *slog.Logger

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	// timeFunc returns the current time. Injectable for tests.
	timeFunc func() time.Time
}

// NewSweeper creates a new Sweeper. Returns an error if any dependency is
// nil or the interval is not positive.
func NewSweeper(engine Engine, dispatcher Dispatcher, interval time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}

	return &Sweeper{
		engine:     engine,
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger.With(slog.String("component", "sweeper")),
		timeFunc:   time.Now,
	}, nil
}

// Start launches the sweep loop. The first sweep runs after one interval.
func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelFunc = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("sweeper started", slog.Duration("interval", s.interval))
}

// Stop cancels the sweep loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.cancelFunc == nil {
		return
	}
	s.cancelFunc()
	s.wg.Wait()
	s.logger.Info("sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep immediately. It is also the body of each
// tick in the background loop.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	now := s.timeFunc().UTC()

	effects, err := s.engine.SweepOverdue(ctx, now)
	if err != nil {
		s.logger.Error("overdue sweep failed", slog.String("error", err.Error()))
		return
	}
	if len(effects) == 0 {
		return
	}

	results := s.dispatcher.Dispatch(ctx, effects)

	failed := 0
	for _, r := range results {
		if !r.Succeeded() {
			failed++
		}
	}

	s.logger.Info("overdue sweep dispatched",
		slog.Int("effects", len(effects)),
		slog.Int("failed", failed))
}
