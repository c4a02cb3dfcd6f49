package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"dualAgentBot/internal/domain"
	"dualAgentBot/internal/ports"
)

// defaultBoundaryPoll is how often the calendar watcher checks the clock for
// day/month rollovers.
const defaultBoundaryPoll = time.Minute

// JobFunc is one schedulable unit of work. The time argument is the clock
// reading that triggered the run.
type JobFunc func(ctx context.Context, now time.Time) error

type job struct {
	name     string
	interval time.Duration
	run      JobFunc
	inFlight atomic.Bool
}

// Scheduler drives every component's tick on its own independent timer.
// There is no global lock between jobs; each job carries an in-flight marker
// so a timer firing before the previous run finished is skipped and logged
// rather than run concurrently or queued. Job errors are logged and isolated:
// they never stop the scheduler or a sibling job.
//
// The scheduler is constructed with explicit jobs and started only by the
// process entry point; nothing schedules itself as an import side effect.
type Scheduler struct {
	logger       ports.Logger
	clock        ports.Clock
	boundaryPoll time.Duration

	periodic []*job
	daily    []*job
	monthly  []*job

	started atomic.Bool
}

// New creates an empty scheduler.
func New(logger ports.Logger, clock ports.Clock) (*Scheduler, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for scheduler")
	}
	if clock == nil {
		clock = ports.SystemClock()
	}
	return &Scheduler{logger: logger, clock: clock, boundaryPoll: defaultBoundaryPoll}, nil
}

// AddPeriodic registers a job firing every interval.
func (s *Scheduler) AddPeriodic(name string, interval time.Duration, run JobFunc) error {
	if name == "" || run == nil || interval <= 0 {
		return fmt.Errorf("periodic job requires a name, a positive interval and a run function")
	}
	s.periodic = append(s.periodic, &job{name: name, interval: interval, run: run})
	return nil
}

// AddDaily registers a job firing once whenever the calendar day rolls over.
func (s *Scheduler) AddDaily(name string, run JobFunc) error {
	if name == "" || run == nil {
		return fmt.Errorf("daily job requires a name and a run function")
	}
	s.daily = append(s.daily, &job{name: name, run: run})
	return nil
}

// AddMonthly registers a job firing once whenever the calendar month rolls
// over.
func (s *Scheduler) AddMonthly(name string, run JobFunc) error {
	if name == "" || run == nil {
		return fmt.Errorf("monthly job requires a name and a run function")
	}
	s.monthly = append(s.monthly, &job{name: name, run: run})
	return nil
}

// Start launches all registered jobs and blocks until ctx is canceled and
// every in-progress run has returned.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("scheduler already started")
	}
	s.logger.Info(ctx, "Scheduler starting", map[string]interface{}{
		"periodicJobs": len(s.periodic), "dailyJobs": len(s.daily), "monthlyJobs": len(s.monthly),
	})

	var wg sync.WaitGroup
	for _, j := range s.periodic {
		wg.Add(1)
		go func(j *job) {
			defer wg.Done()
			s.runPeriodic(ctx, j)
		}(j)
	}
	if len(s.daily) > 0 || len(s.monthly) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.watchBoundaries(ctx)
		}()
	}

	wg.Wait()
	s.logger.Info(ctx, "Scheduler stopped")
	return nil
}

func (s *Scheduler) runPeriodic(ctx context.Context, j *job) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx, j)
		}
	}
}

// watchBoundaries polls the clock and fires daily/monthly jobs exactly once
// per rollover.
func (s *Scheduler) watchBoundaries(ctx context.Context) {
	ticker := time.NewTicker(s.boundaryPoll)
	defer ticker.Stop()

	now := s.clock.Now()
	lastDay := domain.DayKey(now)
	lastMonth := domain.MonthKey(now)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.clock.Now()
			if day := domain.DayKey(now); day != lastDay {
				lastDay = day
				for _, j := range s.daily {
					s.fire(ctx, j)
				}
			}
			if month := domain.MonthKey(now); month != lastMonth {
				lastMonth = month
				for _, j := range s.monthly {
					s.fire(ctx, j)
				}
			}
		}
	}
}

// fire runs a job unless its previous run is still outstanding, in which
// case the new firing is skipped and logged.
func (s *Scheduler) fire(ctx context.Context, j *job) {
	if !j.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn(ctx, "Previous run still in flight, skipping tick", map[string]interface{}{"job": j.name})
		return
	}
	defer j.inFlight.Store(false)

	now := s.clock.Now()
	if err := j.run(ctx, now); err != nil {
		s.logger.Error(ctx, err, "Job run failed", map[string]interface{}{"job": j.name})
	}
}
