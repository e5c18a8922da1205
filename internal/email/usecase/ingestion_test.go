package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
	emaildomain "github.com/jalemieux/hermes/internal/email/domain"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type IngestionServiceTestSuite struct {
	suite.Suite
	ledger   *memoryLedger
	registry *memoryRegistry
	provider *scriptedProvider
	mailbox  *mockMailbox
	users    *mockUsers
	tasks    *mockTasks
	user     *authdomain.User
}

func (s *IngestionServiceTestSuite) SetupTest() {
	s.ledger = &memoryLedger{}
	s.registry = newMemoryRegistry()
	s.provider = &scriptedProvider{extraction: tldrExtraction}
	s.mailbox = new(mockMailbox)
	s.users = new(mockUsers)
	s.tasks = new(mockTasks)
	s.user = &authdomain.User{ID: "u1", Email: "jac@example.com", InboxProvider: authdomain.InboxGmail, GmailRefreshToken: "refresh"}
}

func (s *IngestionServiceTestSuite) TearDownTest() {
	s.mailbox.AssertExpectations(s.T())
	s.users.AssertExpectations(s.T())
	s.tasks.AssertExpectations(s.T())
}

func (s *IngestionServiceTestSuite) service(maxPerRun int) *IngestionService {
	extractor := NewExtractor(s.ledger, s.registry, HeaderNameStrategy{}, s.provider)
	return NewIngestionService(s.users, s.mailbox, extractor, s.ledger, s.tasks, IngestionConfig{
		Lookback:  24 * time.Hour,
		MaxPerRun: maxPerRun,
	})
}

func headerMessage(name, subject string, at time.Time) emaildomain.RawMessage {
	return emaildomain.RawMessage{
		Sender:     emaildomain.Address{Name: name, Address: "news@example.com"},
		Subject:    subject,
		HTMLBody:   "<p>" + subject + "</p>",
		ReceivedAt: at,
	}
}

func (s *IngestionServiceTestSuite) TestFailureDoesNotAbortBatch() {
	base := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	msgs := []emaildomain.RawMessage{
		headerMessage("TLDR AI", "one", base),
		headerMessage("TLDR AI", "two", base.Add(time.Minute)),
		headerMessage("TLDR AI", "three", base.Add(2*time.Minute)),
	}
	s.users.On("FindByID", "u1").Return(s.user, nil)
	s.mailbox.On("Fetch", mock.Anything, s.user, mock.AnythingOfType("time.Time")).Return(msgs, nil)

	calls := 0
	flaky := &flakyProvider{inner: s.provider, failAt: 2, calls: &calls}
	extractor := NewExtractor(s.ledger, s.registry, HeaderNameStrategy{}, flaky)
	svc := NewIngestionService(s.users, s.mailbox, extractor, s.ledger, s.tasks, IngestionConfig{Lookback: time.Hour})

	report, err := svc.RunForUser(context.Background(), "u1")
	s.Require().NoError(err)
	s.Equal(3, report.Fetched)
	s.Equal(2, report.Created)
	s.Equal(1, report.Failed)
	s.Equal(2, s.ledger.count())
	// MarkInboxSynced is not expected: a failed message keeps the window open
}

func (s *IngestionServiceTestSuite) TestCleanRunAdvancesSyncMark() {
	synced := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	s.user.InboxSyncedAt = &synced
	s.users.On("FindByID", "u1").Return(s.user, nil)
	s.mailbox.On("Fetch", mock.Anything, s.user, synced.Add(-24*time.Hour)).
		Return([]emaildomain.RawMessage{headerMessage("TLDR AI", "one", synced.Add(time.Hour))}, nil)
	s.users.On("MarkInboxSynced", "u1", mock.AnythingOfType("time.Time")).Return(nil).Once()

	report, err := s.service(0).RunForUser(context.Background(), "u1")
	s.Require().NoError(err)
	s.Equal(1, report.Created)
}

func (s *IngestionServiceTestSuite) TestCapDefersExtraMessages() {
	base := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	msgs := []emaildomain.RawMessage{
		headerMessage("A", "one", base),
		headerMessage("A", "two", base.Add(time.Minute)),
		headerMessage("A", "three", base.Add(2*time.Minute)),
	}
	s.users.On("FindByID", "u1").Return(s.user, nil)
	s.mailbox.On("Fetch", mock.Anything, s.user, mock.AnythingOfType("time.Time")).Return(msgs, nil)

	report, err := s.service(2).RunForUser(context.Background(), "u1")
	s.Require().NoError(err)
	s.Equal(2, report.Created)
	s.Equal(1, report.Deferred)
	s.Equal(2, s.provider.extractCalls)
	s.Equal(2, s.ledger.count())
}

func (s *IngestionServiceTestSuite) TestFetchErrorPropagates() {
	s.users.On("FindByID", "u1").Return(s.user, nil)
	s.mailbox.On("Fetch", mock.Anything, s.user, mock.AnythingOfType("time.Time")).Return(nil, errors.New("token expired"))

	_, err := s.service(0).RunForUser(context.Background(), "u1")
	s.ErrorContains(err, "token expired")
}

func (s *IngestionServiceTestSuite) TestUserWithoutInbox() {
	s.users.On("FindByID", "u2").Return(&authdomain.User{ID: "u2"}, nil)

	_, err := s.service(0).RunForUser(context.Background(), "u2")
	s.ErrorIs(err, authdomain.ErrInboxNotConfigured)
}

func (s *IngestionServiceTestSuite) TestRunAllRecordsTaskAndCountsFailures() {
	other := &authdomain.User{ID: "u2", InboxProvider: authdomain.InboxIMAP, ImapServer: "imap.example.com", ImapPassword: "sealed"}
	s.users.On("ListWithInbox").Return([]authdomain.User{*s.user, *other}, nil)
	s.users.On("FindByID", "u1").Return(s.user, nil)
	s.users.On("FindByID", "u2").Return(other, nil)
	s.mailbox.On("Fetch", mock.Anything, s.user, mock.AnythingOfType("time.Time")).
		Return([]emaildomain.RawMessage{headerMessage("A", "one", time.Now())}, nil)
	s.mailbox.On("Fetch", mock.Anything, other, mock.AnythingOfType("time.Time")).
		Return(nil, errors.New("imap login failed"))
	s.users.On("MarkInboxSynced", "u1", mock.AnythingOfType("time.Time")).Return(nil)
	s.tasks.On("Start", TaskProcessInbox).Return(nil).Once()
	s.tasks.On("Finish", TaskProcessInbox, mock.MatchedBy(func(err error) bool { return err != nil })).Return(nil).Once()

	failures, err := s.service(0).RunAll(context.Background())
	s.Error(err)
	s.Equal(1, failures)
	s.Equal(1, s.ledger.count())
}

func TestIngestionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(IngestionServiceTestSuite))
}

// flakyProvider fails the n-th extraction call
type flakyProvider struct {
	inner  *scriptedProvider
	failAt int
	calls  *int
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) Complete(ctx context.Context, system, user string) (string, error) {
	*f.calls++
	if *f.calls == f.failAt {
		return "", errors.New("upstream 500")
	}
	return f.inner.Complete(ctx, system, user)
}
