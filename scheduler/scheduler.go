package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobFn is the function signature for scheduled jobs.
type JobFn func()

// Scheduler runs named background jobs on fixed intervals or after a delay.
type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*jobEntry
	timers map[string]*time.Timer
	logger *zap.Logger
	stopCh chan struct{}
}

type jobEntry struct {
	ticker *time.Ticker
	stopCh chan struct{}
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		jobs:   make(map[string]*jobEntry),
		timers: make(map[string]*time.Timer),
		stopCh: make(chan struct{}),
		logger: logger,
	}
}

// RunEvery registers a job to run on a fixed interval. The job also runs
// once immediately so fresh state is available right after startup.
// A job with the same name replaces the previous one.
func (s *Scheduler) RunEvery(name string, interval time.Duration, fn JobFn) {
	s.mu.Lock()
	if old, ok := s.jobs[name]; ok {
		close(old.stopCh)
		delete(s.jobs, name)
	}
	entry := &jobEntry{
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
	}
	s.jobs[name] = entry
	s.mu.Unlock()

	go func() {
		s.safeRun(name, fn)
		for {
			select {
			case <-entry.ticker.C:
				s.safeRun(name, fn)
			case <-entry.stopCh:
				entry.ticker.Stop()
				return
			case <-s.stopCh:
				entry.ticker.Stop()
				return
			}
		}
	}()
	s.logger.Info("job registered",
		zap.String("job", name), zap.Duration("interval", interval))
}

// RunAfter runs fn once after the given delay.
func (s *Scheduler) RunAfter(name string, delay time.Duration, fn JobFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[name]; ok {
		old.Stop()
	}
	s.timers[name] = time.AfterFunc(delay, func() {
		defer func() {
			s.mu.Lock()
			delete(s.timers, name)
			s.mu.Unlock()
		}()
		s.safeRun(name, fn)
	})
}

// Cancel stops and removes a job by name.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.jobs[name]; ok {
		close(entry.stopCh)
		delete(s.jobs, name)
	}
	if t, ok := s.timers[name]; ok {
		t.Stop()
		delete(s.timers, name)
	}
}

// Stop stops all jobs.
func (s *Scheduler) Stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
}

// Jobs returns the names of all registered interval jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

func (s *Scheduler) safeRun(name string, fn JobFn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked",
				zap.String("job", name), zap.Any("recover", r))
		}
	}()
	fn()
}
