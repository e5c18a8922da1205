package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
	emaildomain "github.com/jalemieux/hermes/internal/email/domain"
	"github.com/jalemieux/hermes/internal/email/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memoryLedger enforces (user, fingerprint) uniqueness the way the unique index does
type memoryLedger struct {
	mu   sync.Mutex
	rows []emaildomain.ExtractedEmail
}

func (m *memoryLedger) FindByFingerprint(userID, fingerprint string) (*emaildomain.ExtractedEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].UserID == userID && m.rows[i].Fingerprint == fingerprint {
			cp := m.rows[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryLedger) Record(email *emaildomain.ExtractedEmail) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == email.UserID && r.Fingerprint == email.Fingerprint {
			return false, nil
		}
	}
	if email.ID == "" {
		email.ID = uuid.New().String()
	}
	m.rows = append(m.rows, *email)
	return true, nil
}

func (m *memoryLedger) FindByID(userID, id string) (*emaildomain.ExtractedEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].UserID == userID && m.rows[i].ID == id {
			cp := m.rows[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryLedger) FindByIDs(userID string, ids []string) ([]emaildomain.ExtractedEmail, error) {
	out := []emaildomain.ExtractedEmail{}
	for _, id := range ids {
		if e, _ := m.FindByID(userID, id); e != nil {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memoryLedger) FindForDigest(userID string, from, to time.Time) ([]emaildomain.ExtractedEmail, error) {
	return nil, errors.New("not used")
}

func (m *memoryLedger) List(userID string, limit, offset int) ([]emaildomain.ExtractedEmail, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []emaildomain.ExtractedEmail
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryLedger) MarkSummarized(userID string, ids []string) error { return nil }

func (m *memoryLedger) SetHasAudio(userID, id string, hasAudio bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].HasAudio = hasAudio
		}
	}
	return nil
}

func (m *memoryLedger) DistinctNewsletterNames(userID string) ([]repository.NameSighting, error) {
	return nil, nil
}

func (m *memoryLedger) PurgeWithoutAudio(cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	var n int64
	for _, r := range m.rows {
		if r.EmailDate.Before(cutoff) && !r.HasAudio {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

func (m *memoryLedger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// memoryRegistry is an opt-out set; observed names are remembered
type memoryRegistry struct {
	inactive map[string]bool
	observed map[string]time.Time
}

func newMemoryRegistry(inactive ...string) *memoryRegistry {
	r := &memoryRegistry{inactive: map[string]bool{}, observed: map[string]time.Time{}}
	for _, n := range inactive {
		r.inactive[n] = true
	}
	return r
}

func (r *memoryRegistry) IsActive(userID, name string) (bool, error) {
	return !r.inactive[name], nil
}

func (r *memoryRegistry) Observe(userID, name string, seenAt time.Time) error {
	if seenAt.After(r.observed[name]) {
		r.observed[name] = seenAt
	}
	return nil
}

// scriptedProvider answers by system prompt and counts calls per prompt
type scriptedProvider struct {
	mu           sync.Mutex
	sender       string
	extraction   string
	failOn       string
	senderCalls  int
	extractCalls int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if systemPrompt == senderPrompt {
		p.senderCalls++
		if p.failOn == "sender" {
			return "", errors.New("sender call failed")
		}
		return `{"sender": "` + p.sender + `"}`, nil
	}
	p.extractCalls++
	if p.failOn == "extract" {
		return "", errors.New("extraction call failed")
	}
	return p.extraction, nil
}

type mockMailbox struct {
	mock.Mock
}

func (m *mockMailbox) Fetch(ctx context.Context, user *authdomain.User, since time.Time) ([]emaildomain.RawMessage, error) {
	args := m.Called(ctx, user, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]emaildomain.RawMessage), args.Error(1)
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) FindByID(id string) (*authdomain.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authdomain.User), args.Error(1)
}

func (m *mockUsers) ListWithInbox() ([]authdomain.User, error) {
	args := m.Called()
	return args.Get(0).([]authdomain.User), args.Error(1)
}

func (m *mockUsers) MarkInboxSynced(userID string, at time.Time) error {
	return m.Called(userID, at).Error(0)
}

type mockTasks struct {
	mock.Mock
}

func (m *mockTasks) Start(name string) error {
	return m.Called(name).Error(0)
}

func (m *mockTasks) Finish(name string, runErr error) error {
	return m.Called(name, runErr).Error(0)
}
