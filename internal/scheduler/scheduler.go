package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/instagram-agent/pkg/logger"
)

// job is one named scheduled task with its next fire time.
type job struct {
	name     string
	schedule cron.Schedule
	next     time.Time
	run      func(ctx context.Context) error
}

// Scheduler runs registered jobs from a single goroutine. Each tick runs
// every due job inline and to completion, so jobs never overlap; a slow job
// delays the others instead of racing them. Stop is observed between ticks.
type Scheduler struct {
	tick time.Duration
	jobs []*job
	log  *logger.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a scheduler that evaluates job fire times every tick.
func New(tick time.Duration, log *logger.Logger) *Scheduler {
	if tick <= 0 {
		tick = time.Minute
	}
	return &Scheduler{
		tick: tick,
		log:  log.WithComponent("scheduler"),
	}
}

// AddJob registers a job under a standard 5-field cron expression. Jobs must
// be registered before Start.
func (s *Scheduler) AddJob(name, spec string, run func(ctx context.Context) error) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for job %s: %w", spec, name, err)
	}

	if err := s.add(name, schedule, run); err != nil {
		return err
	}

	s.log.Info().
		Str("job", name).
		Str("cron", spec).
		Msg("Job registered")

	return nil
}

func (s *Scheduler) add(name string, schedule cron.Schedule, run func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("cannot register job %s while the scheduler is running", name)
	}
	for _, j := range s.jobs {
		if j.name == name {
			return fmt.Errorf("job %s already registered", name)
		}
	}

	s.jobs = append(s.jobs, &job{name: name, schedule: schedule, run: run})
	return nil
}

// Start arms every job and launches the tick loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	now := time.Now()
	for _, j := range s.jobs {
		j.next = j.schedule.Next(now)
		s.log.Info().
			Str("job", j.name).
			Time("next_run", j.next).
			Msg("Job armed")
	}

	go s.loop()

	s.log.Info().
		Dur("tick", s.tick).
		Int("jobs", len(s.jobs)).
		Msg("Scheduler started")
}

func (s *Scheduler) loop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.runDue(now)
		}
	}
}

// runDue runs every job whose fire time has passed, in registration order,
// then advances its schedule. A missed window collapses into one run.
func (s *Scheduler) runDue(now time.Time) {
	for _, j := range s.jobs {
		if j.next.After(now) {
			continue
		}
		s.runJob(context.Background(), j)
		j.next = j.schedule.Next(now)
	}
}

func (s *Scheduler) runJob(ctx context.Context, j *job) error {
	start := time.Now()
	s.log.Info().Str("job", j.name).Msg("Job starting")

	if err := j.run(ctx); err != nil {
		s.log.Error().
			Err(err).
			Str("job", j.name).
			Dur("duration", time.Since(start)).
			Msg("Job failed")
		return err
	}

	s.log.Info().
		Str("job", j.name).
		Dur("duration", time.Since(start)).
		Msg("Job finished")

	return nil
}

// Stop signals the loop and blocks until any in-flight tick, including a job
// in progress, finishes. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
	s.log.Info().Msg("Scheduler stopped")
}

// RunJob runs one registered job immediately and returns its error. Meant
// for one-shot invocations before Start; it does not touch the schedule.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	for _, j := range s.jobs {
		if j.name == name {
			return s.runJob(ctx, j)
		}
	}
	return fmt.Errorf("unknown job: %s", name)
}

// JobNames lists the registered jobs in registration order.
func (s *Scheduler) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.name
	}
	return names
}
