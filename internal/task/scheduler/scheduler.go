package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jalemieux/hermes/internal/task/domain"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Job names exposed through POST /tasks/:name/run
const (
	JobIngest    = "ingest"
	JobDigest    = "digest"
	JobSweep     = "sweep"
	JobRetention = "retention"
)

// RunFunc is one synchronous run of a job
type RunFunc func(ctx context.Context) error

type job struct {
	name    string
	spec    string
	timeout time.Duration
	run     RunFunc
}

// Scheduler fires registered jobs on their cron spec. A job never overlaps
// with itself, whether it was started by cron or by RunNow.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context

	mu      sync.Mutex
	jobs    map[string]*job
	running map[string]bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cron.PrintfLogger(log.StandardLogger())),
			cron.WithChain(cron.Recover(cron.PrintfLogger(log.StandardLogger()))),
		),
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[string]*job),
		running: make(map[string]bool),
	}
}

// Register adds a job. An empty spec registers a manual-only job.
func (s *Scheduler) Register(name, spec string, timeout time.Duration, run RunFunc) error {
	j := &job{name: name, spec: spec, timeout: timeout, run: run}

	if spec != "" {
		if _, err := s.cron.AddFunc(spec, func() { s.trigger(j) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
		}
	}

	s.mu.Lock()
	s.jobs[name] = j
	s.mu.Unlock()
	log.Infof("[Scheduler] Registered %s (%s)", name, spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Infof("[Scheduler] Started with %d jobs", len(s.Jobs()))
}

// Stop halts the cron loop, cancels in-flight runs and waits for them or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	<-s.cron.Stop().Done()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("[Scheduler] Stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow starts a run in the background
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownJob, name)
	}
	if !s.trigger(j) {
		return fmt.Errorf("%w: %s", domain.ErrJobRunning, name)
	}
	return nil
}

// Jobs lists registered job names
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) trigger(j *job) bool {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	if s.running[j.name] {
		s.mu.Unlock()
		log.WithField("job", j.name).Info("[Scheduler] Skipping, previous run still active")
		return false
	}
	s.running[j.name] = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, j.name)
			s.mu.Unlock()
		}()
		s.execute(j)
	}()
	return true
}

func (s *Scheduler) execute(j *job) {
	ctx := s.ctx
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	entry := log.WithField("job", j.name)
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			entry.Errorf("[Scheduler] Run panicked: %v", r)
		}
	}()

	if err := j.run(ctx); err != nil {
		entry.WithField("duration", time.Since(started).String()).Errorf("[Scheduler] Run failed: %v", err)
		return
	}
	entry.WithField("duration", time.Since(started).String()).Info("[Scheduler] Run finished")
}
