package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	summarydomain "github.com/jalemieux/hermes/internal/summary/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) SendToUser(userID, event string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func newWorkerFixture(provider *synthProvider) (*SummaryWorkerService, *memorySummaries, *recordingSink) {
	now := time.Now()
	repo := newMemorySummaries()
	emails := newMemoryEmails(newsletterEmail("a1", "u1", "A", now.Add(-time.Hour), "https://a.example"))
	sink := &recordingSink{}
	notifier := NewDigestNotifier().WithEvents(sink)
	uc := NewSummaryUsecase(repo, NewEngine(emails, provider), emails, nil, nil, nil, notifier, Config{})
	return NewSummaryWorkerService(uc, sink, 1, time.Second), repo, sink
}

func TestWorkerCompletesQueuedDigest(t *testing.T) {
	worker, repo, sink := newWorkerFixture(&synthProvider{answer: digestAnswer})
	worker.Start()

	pending, err := worker.Enqueue("u1")
	require.NoError(t, err)
	assert.Equal(t, summarydomain.StatusPending, pending.Status)

	worker.Stop(context.Background())

	stored, _ := repo.FindByID("u1", pending.ID)
	require.NotNil(t, stored)
	assert.Equal(t, summarydomain.StatusCompleted, stored.Status)
	assert.Equal(t, []string{EventSummaryReady}, sink.names())
}

func TestWorkerReportsFailure(t *testing.T) {
	worker, repo, sink := newWorkerFixture(&synthProvider{err: errProviderDown})
	worker.Start()

	pending, err := worker.Enqueue("u1")
	require.NoError(t, err)
	worker.Stop(context.Background())

	stored, _ := repo.FindByID("u1", pending.ID)
	assert.Nil(t, stored)
	assert.Equal(t, []string{EventSummaryFailed}, sink.names())
}

func TestEnqueueAfterStopDropsPendingRow(t *testing.T) {
	worker, repo, _ := newWorkerFixture(&synthProvider{answer: digestAnswer})
	worker.Start()
	worker.Stop(context.Background())

	_, err := worker.Enqueue("u1")

	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 0, repo.countByStatus(summarydomain.StatusPending))
}

func TestQueueDrainTimeCoversFullQueue(t *testing.T) {
	assert.Equal(t, 51*3*time.Minute, QueueDrainTime(2, 3*time.Minute))
	assert.Equal(t, 101*time.Minute, QueueDrainTime(1, time.Minute))
	assert.Equal(t, QueueDrainTime(2, time.Minute), QueueDrainTime(0, time.Minute))
}
