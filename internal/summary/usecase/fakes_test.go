package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
	emaildomain "github.com/jalemieux/hermes/internal/email/domain"
	summarydomain "github.com/jalemieux/hermes/internal/summary/domain"

	"github.com/stretchr/testify/mock"
)

// memorySummaries mirrors the gorm repository's status guards
type memorySummaries struct {
	mu          sync.Mutex
	rows        map[string]*summarydomain.Summary
	completeErr error
}

func newMemorySummaries() *memorySummaries {
	return &memorySummaries{rows: map[string]*summarydomain.Summary{}}
}

func clone(s *summarydomain.Summary) *summarydomain.Summary {
	cp := *s
	cp.SourceEmailIDs = append([]string(nil), s.SourceEmailIDs...)
	cp.KeyPoints = append([]summarydomain.KeyPoint(nil), s.KeyPoints...)
	cp.Sections = append([]summarydomain.Section(nil), s.Sections...)
	cp.Sources = append([]summarydomain.Source(nil), s.Sources...)
	cp.NewsletterNames = append([]string(nil), s.NewsletterNames...)
	return &cp
}

func (m *memorySummaries) CreatePending(s *summarydomain.Summary, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == s.UserID && r.Status == summarydomain.StatusPending && !r.CreatedAt.Before(since) {
			return false, nil
		}
	}
	m.rows[s.ID] = clone(s)
	return true, nil
}

func (m *memorySummaries) FindByID(userID, id string) (*summarydomain.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.UserID != userID {
		return nil, nil
	}
	return clone(r), nil
}

func (m *memorySummaries) List(userID string, limit, offset int) ([]summarydomain.Summary, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []summarydomain.Summary
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, *clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (m *memorySummaries) LastCompleted(userID string) (*summarydomain.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *summarydomain.Summary
	for _, r := range m.rows {
		if r.UserID == userID && r.Status == summarydomain.StatusCompleted {
			if last == nil || r.ToDate.After(last.ToDate) {
				last = r
			}
		}
	}
	if last == nil {
		return nil, nil
	}
	return clone(last), nil
}

func (m *memorySummaries) Complete(s *summarydomain.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeErr != nil {
		return m.completeErr
	}
	r, ok := m.rows[s.ID]
	if !ok || r.Status != summarydomain.StatusPending {
		return summarydomain.ErrSummaryNotFound
	}
	m.rows[s.ID] = clone(s)
	return nil
}

func (m *memorySummaries) UpdateContent(s *summarydomain.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[s.ID]
	if !ok || r.Status != summarydomain.StatusCompleted {
		return summarydomain.ErrSummaryNotFound
	}
	r.Title = s.Title
	r.KeyPoints = append([]summarydomain.KeyPoint(nil), s.KeyPoints...)
	r.Sections = append([]summarydomain.Section(nil), s.Sections...)
	r.UpdatedAt = s.UpdatedAt
	return nil
}

func (m *memorySummaries) DeletePending(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok && r.Status == summarydomain.StatusPending {
		delete(m.rows, id)
	}
	return nil
}

func (m *memorySummaries) DeleteStalePending(before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.rows {
		if r.Status == summarydomain.StatusPending && r.CreatedAt.Before(before) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memorySummaries) SetHasAudio(userID, id string, hasAudio bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.UserID != userID {
		return summarydomain.ErrSummaryNotFound
	}
	r.HasAudio = hasAudio
	return nil
}

func (m *memorySummaries) countByStatus(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.Status == status {
			n++
		}
	}
	return n
}

// memoryEmails serves stored emails and remembers which were summarized
type memoryEmails struct {
	mu         sync.Mutex
	rows       []emaildomain.ExtractedEmail
	summarized map[string]bool
}

func newMemoryEmails(rows ...emaildomain.ExtractedEmail) *memoryEmails {
	return &memoryEmails{rows: rows, summarized: map[string]bool{}}
}

func (m *memoryEmails) FindByIDs(userID string, ids []string) ([]emaildomain.ExtractedEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []emaildomain.ExtractedEmail{}
	for _, id := range ids {
		for _, r := range m.rows {
			if r.ID == id && r.UserID == userID {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (m *memoryEmails) FindForDigest(userID string, from, to time.Time) ([]emaildomain.ExtractedEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []emaildomain.ExtractedEmail
	for _, r := range m.rows {
		if r.UserID == userID && !r.IsExcluded && !r.EmailDate.Before(from) && r.EmailDate.Before(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmailDate.Before(out[j].EmailDate) })
	return out, nil
}

func (m *memoryEmails) MarkSummarized(userID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.summarized[id] = true
	}
	return nil
}

type inactiveSet map[string]bool

func (s inactiveSet) InactiveNames(userID string) (map[string]bool, error) {
	return s, nil
}

// synthProvider answers every call with the same JSON, or fails
type synthProvider struct {
	mu       sync.Mutex
	answer   string
	err      error
	calls    int
	lastUser string
}

func (p *synthProvider) Name() string { return "synth" }

func (p *synthProvider) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lastUser = userContent
	if p.err != nil {
		return "", p.err
	}
	return p.answer, nil
}

func (p *synthProvider) setAnswer(answer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answer = answer
}

const digestAnswer = `{"title": "Week in AI", "from_to_date": "last week",
 "key_points": [{"text": "Chips are scarce"}],
 "sections": [{"header": "Hardware", "content": "Supply is tight."}]}`

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) ListWithInbox() ([]authdomain.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]authdomain.User), args.Error(1)
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

type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
}

func (n *recordingNotifier) SummaryCompleted(ctx context.Context, s *summarydomain.Summary) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, s.ID)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.completed)
}

var errProviderDown = errors.New("provider down")

func newsletterEmail(id, userID, name string, date time.Time, urls ...string) emaildomain.ExtractedEmail {
	e := emaildomain.ExtractedEmail{
		ID:             id,
		UserID:         userID,
		Fingerprint:    emaildomain.Fingerprint(id, name, date),
		NewsletterName: name,
		Subject:        name + " issue",
		EmailDate:      date,
		Topics: []emaildomain.Topic{{
			Header:    name + " topic",
			Summary:   "summary of " + id,
			NewsItems: []emaildomain.NewsItem{{Title: "item", Content: "content of " + id}},
		}},
	}
	for _, u := range urls {
		e.Sources = append(e.Sources, emaildomain.Source{URL: u, Title: id + " " + u, Publisher: name})
	}
	return e
}
