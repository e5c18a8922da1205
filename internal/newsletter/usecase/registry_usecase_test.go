package usecase

import (
	"testing"
	"time"

	emailrepo "github.com/jalemieux/hermes/internal/email/repository"
	"github.com/jalemieux/hermes/internal/newsletter/domain"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type memorySubscriptions struct {
	rows map[string]*domain.Subscription
}

func newMemorySubscriptions() *memorySubscriptions {
	return &memorySubscriptions{rows: map[string]*domain.Subscription{}}
}

func key(userID, name string) string { return userID + "\x00" + name }

func (m *memorySubscriptions) Find(userID, name string) (*domain.Subscription, error) {
	if s, ok := m.rows[key(userID, name)]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *memorySubscriptions) ListByUser(userID string) ([]domain.Subscription, error) {
	var out []domain.Subscription
	for _, s := range m.rows {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memorySubscriptions) Observe(userID, name string, seenAt time.Time) error {
	s, ok := m.rows[key(userID, name)]
	if !ok {
		m.rows[key(userID, name)] = &domain.Subscription{UserID: userID, Name: name, IsActive: true, LatestSeenDate: &seenAt}
		return nil
	}
	if s.LatestSeenDate == nil || seenAt.After(*s.LatestSeenDate) {
		s.LatestSeenDate = &seenAt
	}
	return nil
}

func (m *memorySubscriptions) SetActive(userID, name string, active bool) (*domain.Subscription, error) {
	s, ok := m.rows[key(userID, name)]
	if !ok {
		s = &domain.Subscription{UserID: userID, Name: name}
		m.rows[key(userID, name)] = s
	}
	s.IsActive = active
	return m.Find(userID, name)
}

func (m *memorySubscriptions) InactiveNames(userID string) ([]string, error) {
	var out []string
	for _, s := range m.rows {
		if s.UserID == userID && !s.IsActive {
			out = append(out, s.Name)
		}
	}
	return out, nil
}

type mockNameSource struct {
	mock.Mock
}

func (m *mockNameSource) DistinctNewsletterNames(userID string) ([]emailrepo.NameSighting, error) {
	args := m.Called(userID)
	return args.Get(0).([]emailrepo.NameSighting), args.Error(1)
}

type RegistryUsecaseTestSuite struct {
	suite.Suite
	repo     *memorySubscriptions
	names    *mockNameSource
	registry RegistryUsecase
}

func (s *RegistryUsecaseTestSuite) SetupTest() {
	s.repo = newMemorySubscriptions()
	s.names = new(mockNameSource)
	s.registry = NewRegistryUsecase(s.repo, s.names)
}

func (s *RegistryUsecaseTestSuite) TearDownTest() {
	s.names.AssertExpectations(s.T())
}

func (s *RegistryUsecaseTestSuite) TestUnknownNewsletterIsActive() {
	active, err := s.registry.IsActive("u1", "Never Seen")
	s.NoError(err)
	s.True(active)
}

func (s *RegistryUsecaseTestSuite) TestObserveCreatesActiveAndKeepsLatestDate() {
	later := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	earlier := later.Add(-48 * time.Hour)

	s.NoError(s.registry.Observe("u1", "The Batch", later))
	s.NoError(s.registry.Observe("u1", "The Batch", earlier))

	sub, err := s.repo.Find("u1", "The Batch")
	s.Require().NoError(err)
	s.Require().NotNil(sub)
	s.True(sub.IsActive)
	s.True(later.Equal(*sub.LatestSeenDate))
}

func (s *RegistryUsecaseTestSuite) TestObserveDoesNotReactivate() {
	_, err := s.registry.SetActive("u1", "Promo Weekly", false)
	s.Require().NoError(err)

	s.NoError(s.registry.Observe("u1", "Promo Weekly", time.Now()))

	active, err := s.registry.IsActive("u1", "Promo Weekly")
	s.NoError(err)
	s.False(active)
}

func (s *RegistryUsecaseTestSuite) TestSetActiveIsIdempotent() {
	for i := 0; i < 2; i++ {
		sub, err := s.registry.SetActive("u1", "TLDR", false)
		s.Require().NoError(err)
		s.False(sub.IsActive)
	}
	inactive, err := s.registry.InactiveNames("u1")
	s.NoError(err)
	s.Equal(map[string]bool{"TLDR": true}, inactive)

	sub, err := s.registry.SetActive("u1", "TLDR", true)
	s.NoError(err)
	s.True(sub.IsActive)
}

func (s *RegistryUsecaseTestSuite) TestDeactivationIsPerUser() {
	_, err := s.registry.SetActive("u1", "TLDR", false)
	s.Require().NoError(err)

	active, err := s.registry.IsActive("u2", "TLDR")
	s.NoError(err)
	s.True(active)
}

func (s *RegistryUsecaseTestSuite) TestEmptyNameRejected() {
	s.ErrorIs(s.registry.Observe("u1", "  ", time.Now()), ErrEmptyName)
	_, err := s.registry.SetActive("u1", "", true)
	s.ErrorIs(err, ErrEmptyName)
}

func (s *RegistryUsecaseTestSuite) TestBackfillCountsOnlyNewNames() {
	s.Require().NoError(s.registry.Observe("u1", "Morning Brew", time.Now()))
	s.names.On("DistinctNewsletterNames", "u1").Return([]emailrepo.NameSighting{
		{Name: "Morning Brew", LastSeen: time.Now()},
		{Name: "The Batch", LastSeen: time.Now()},
	}, nil).Once()

	created, err := s.registry.Backfill("u1")
	s.NoError(err)
	s.Equal(1, created)

	sub, _ := s.repo.Find("u1", "The Batch")
	s.Require().NotNil(sub)
	s.True(sub.IsActive)
}

func (s *RegistryUsecaseTestSuite) TestSearchIsFuzzy() {
	for _, n := range []string{"Morning Brew", "The Batch", "TLDR AI"} {
		s.Require().NoError(s.registry.Observe("u1", n, time.Now()))
	}

	subs, err := s.registry.Search("u1", "brw")
	s.NoError(err)
	s.Require().Len(subs, 1)
	s.Equal("Morning Brew", subs[0].Name)

	all, err := s.registry.Search("u1", "")
	s.NoError(err)
	s.Len(all, 3)
}

func TestRegistryUsecaseTestSuite(t *testing.T) {
	suite.Run(t, new(RegistryUsecaseTestSuite))
}
