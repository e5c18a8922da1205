package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	summarydomain "github.com/jalemieux/hermes/internal/summary/domain"

	log "github.com/sirupsen/logrus"
)

const EventSummaryFailed = "summary_failed"

var ErrQueueFull = errors.New("summary queue is full")

const queueSize = 100

// QueueDrainTime is the longest a job can sit in the queue and run: every
// slot ahead of it plus its own run, each taking the full job timeout.
func QueueDrainTime(workerCount int, jobTimeout time.Duration) time.Duration {
	if workerCount <= 0 {
		workerCount = 2
	}
	rounds := (queueSize + workerCount - 1) / workerCount
	return time.Duration(rounds+1) * jobTimeout
}

// DigestJob resumes one pending summary in the background
type DigestJob struct {
	UserID    string
	SummaryID string
}

// SummaryWorkerService runs queued digests on a fixed set of workers.
// Completion reaches the browser through the notifier, failure through EventSummaryFailed.
type SummaryWorkerService struct {
	summaries   SummaryUsecase
	events      EventSink
	jobQueue    chan DigestJob
	jobTimeout  time.Duration
	workerWg    sync.WaitGroup
	workerCount int
	started     bool
	stopped     bool
	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewSummaryWorkerService(summaries SummaryUsecase, events EventSink, workerCount int, jobTimeout time.Duration) *SummaryWorkerService {
	if workerCount <= 0 {
		workerCount = 2
	}
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SummaryWorkerService{
		summaries:   summaries,
		events:      events,
		jobQueue:    make(chan DigestJob, queueSize),
		jobTimeout:  jobTimeout,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *SummaryWorkerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	for i := 0; i < s.workerCount; i++ {
		s.workerWg.Add(1)
		go s.worker(i)
	}
	s.started = true
	log.Infof("[SummaryWorker] Started %d workers", s.workerCount)
}

// Stop lets queued jobs drain, then cancels whatever is still running after ctx expires
func (s *SummaryWorkerService) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.jobQueue)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.workerWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.cancel()
		<-done
	}
	s.cancel()
	log.Info("[SummaryWorker] All workers stopped")
}

func (s *SummaryWorkerService) worker(id int) {
	defer s.workerWg.Done()
	for job := range s.jobQueue {
		s.processJob(job)
	}
	log.Debugf("[SummaryWorker] Worker %d stopped", id)
}

func (s *SummaryWorkerService) processJob(job DigestJob) {
	ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
	defer cancel()

	if _, err := s.summaries.Resume(ctx, job.UserID, job.SummaryID); err != nil {
		log.WithFields(log.Fields{"user_id": job.UserID, "summary_id": job.SummaryID}).Errorf("[SummaryWorker] Digest failed: %v", err)
		if s.events != nil {
			s.events.SendToUser(job.UserID, EventSummaryFailed, map[string]interface{}{
				"summary_id": job.SummaryID,
				"error":      err.Error(),
			})
		}
	}
}

// QueueJob adds a job without blocking
func (s *SummaryWorkerService) QueueJob(job DigestJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	select {
	case s.jobQueue <- job:
		return true
	default:
		return false
	}
}

// Enqueue creates the pending digest and hands it to a worker. The pending row
// is dropped again when the queue cannot take it.
func (s *SummaryWorkerService) Enqueue(userID string) (*summarydomain.Summary, error) {
	pending, err := s.summaries.RequestDigest(userID)
	if err != nil {
		return nil, err
	}
	if !s.QueueJob(DigestJob{UserID: userID, SummaryID: pending.ID}) {
		if err := s.summaries.Abandon(pending.ID); err != nil {
			log.WithField("summary_id", pending.ID).Errorf("[SummaryWorker] Could not drop pending row: %v", err)
		}
		return nil, ErrQueueFull
	}
	return pending, nil
}
