package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	emaildomain "github.com/jalemieux/hermes/internal/email/domain"
	"github.com/jalemieux/hermes/pkg/ai"

	"github.com/stretchr/testify/suite"
)

const tldrExtraction = `{
  "name": "TLDR AI",
  "topics": [
    {"header": " Models ", "summary": "Open weights keep coming.", "news": [
      {"title": "Open-R1", "content": "Hugging Face reproduces R1."}
    ]}
  ],
  "sources": [
    {"url": "https://hf.co/blog/open-r1", "date": "2025-01-28", "title": "Open-R1", "publisher": "Hugging Face"}
  ]
}`

func forwardedMessage(subject string, at time.Time) emaildomain.RawMessage {
	return emaildomain.RawMessage{
		Sender:      emaildomain.Address{Name: "Jac Lemieux", Address: "jac@example.com"},
		Subject:     subject,
		HTMLBody:    "<html><body><p>---------- Forwarded message ---------</p><p>From: TLDR AI &lt;dan@tldrnewsletter.com&gt;</p><p>Open-R1 is out.</p></body></html>",
		ReceivedAt:  at,
		Recipients:  []emaildomain.Address{{Address: "digest@example.com"}},
		TextExcerpt: "---------- Forwarded message --------- From: TLDR AI <dan@tldrnewsletter.com>",
	}
}

type fakeSeenFilter struct {
	items map[string]bool
	err   error
}

func (f *fakeSeenFilter) MightContain(ctx context.Context, userID, fingerprint string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.items[userID+":"+fingerprint], nil
}

func (f *fakeSeenFilter) Add(ctx context.Context, userID, fingerprint string) error {
	f.items[userID+":"+fingerprint] = true
	return nil
}

// racingLedger misses on the first lookup, then loses the insert to a row
// another worker recorded in between
type racingLedger struct {
	*memoryLedger
	winner  emaildomain.ExtractedEmail
	lookups int
}

func (l *racingLedger) FindByFingerprint(userID, fingerprint string) (*emaildomain.ExtractedEmail, error) {
	l.lookups++
	if l.lookups == 1 {
		return nil, nil
	}
	return l.memoryLedger.FindByFingerprint(userID, fingerprint)
}

func (l *racingLedger) Record(email *emaildomain.ExtractedEmail) (bool, error) {
	if _, err := l.memoryLedger.Record(&l.winner); err != nil {
		return false, err
	}
	return l.memoryLedger.Record(email)
}

type ExtractorTestSuite struct {
	suite.Suite
	ledger   *memoryLedger
	registry *memoryRegistry
	provider *scriptedProvider
	ctx      context.Context
}

func (s *ExtractorTestSuite) SetupTest() {
	s.ledger = &memoryLedger{}
	s.registry = newMemoryRegistry("Promo Weekly")
	s.provider = &scriptedProvider{sender: "TLDR AI <dan@tldrnewsletter.com>", extraction: tldrExtraction}
	s.ctx = context.Background()
}

func (s *ExtractorTestSuite) extractor(strategy string) *Extractor {
	return NewExtractor(s.ledger, s.registry, NewNameStrategy(strategy, s.provider), s.provider)
}

func (s *ExtractorTestSuite) TestProcessCreatesStructuredEmail() {
	at := time.Date(2025, 1, 29, 10, 0, 0, 0, time.UTC)
	res, err := s.extractor(NameStrategyForwarded).Process(s.ctx, "u1", forwardedMessage("Fwd: Open-R1", at))
	s.Require().NoError(err)

	s.Equal(OutcomeCreated, res.Outcome)
	s.NotEmpty(res.EmailID)
	s.Equal("TLDR AI", res.Email.NewsletterName)
	s.Require().Len(res.Email.Topics, 1)
	s.Equal("Models", res.Email.Topics[0].Header)
	s.Require().Len(res.Email.Topics[0].NewsItems, 1)
	s.Require().Len(res.Email.Sources, 1)
	s.False(res.Email.IsExcluded)
	s.Contains(res.Email.TextContent, "Open-R1 is out.")
	s.NotContains(res.Email.TextContent, "<p>")

	s.Equal(at, s.registry.observed["TLDR AI"])
	s.Equal(1, s.ledger.count())
}

func (s *ExtractorTestSuite) TestProcessTwiceIsNoOp() {
	ex := s.extractor(NameStrategyForwarded)
	msg := forwardedMessage("Fwd: Open-R1", time.Unix(1738144800, 0))

	first, err := ex.Process(s.ctx, "u1", msg)
	s.Require().NoError(err)

	msg.HTMLBody = "<p>same message, re-rendered body</p>"
	msg.ReceivedAt = msg.ReceivedAt.Add(300 * time.Millisecond)
	second, err := ex.Process(s.ctx, "u1", msg)
	s.Require().NoError(err)

	s.Equal(OutcomeDuplicate, second.Outcome)
	s.Equal(first.EmailID, second.EmailID)
	s.Equal(1, s.ledger.count())
	s.Equal(1, s.provider.senderCalls)
	s.Equal(1, s.provider.extractCalls)
}

func (s *ExtractorTestSuite) TestSameMessageForAnotherUserIsRecorded() {
	ex := s.extractor(NameStrategyForwarded)
	msg := forwardedMessage("Fwd: Open-R1", time.Unix(1738144800, 0))

	_, err := ex.Process(s.ctx, "u1", msg)
	s.Require().NoError(err)
	res, err := ex.Process(s.ctx, "u2", msg)
	s.Require().NoError(err)

	s.Equal(OutcomeCreated, res.Outcome)
	s.Equal(2, s.ledger.count())
}

func (s *ExtractorTestSuite) TestDeactivatedNewsletterShortCircuits() {
	s.provider.sender = "Promo Weekly"

	res, err := s.extractor(NameStrategyForwarded).Process(s.ctx, "u1", forwardedMessage("50% off", time.Now()))
	s.Require().NoError(err)

	s.Equal(OutcomeExcluded, res.Outcome)
	s.True(res.Email.IsExcluded)
	s.Empty(res.Email.Topics)
	s.Empty(res.Email.Sources)
	s.Empty(res.Email.TextContent)
	s.Equal(0, s.provider.extractCalls)
	s.Equal(1, s.ledger.count())
}

func (s *ExtractorTestSuite) TestExtractionFailureRecordsNothing() {
	s.provider.failOn = "extract"
	ex := s.extractor(NameStrategyForwarded)
	msg := forwardedMessage("Fwd: Open-R1", time.Now())

	_, err := ex.Process(s.ctx, "u1", msg)
	s.Error(err)
	s.Equal(0, s.ledger.count())

	// the next run picks the message up again
	s.provider.failOn = ""
	res, err := ex.Process(s.ctx, "u1", msg)
	s.Require().NoError(err)
	s.Equal(OutcomeCreated, res.Outcome)
}

func (s *ExtractorTestSuite) TestMalformedOutputIsFailure() {
	s.provider.extraction = `{"name": "TLDR AI", "topics": [{"header": "", "summary": "x", "news": []}], "sources": []}`

	_, err := s.extractor(NameStrategyForwarded).Process(s.ctx, "u1", forwardedMessage("Fwd", time.Now()))
	s.True(errors.Is(err, ai.ErrMalformedOutput))
	s.Equal(0, s.ledger.count())

	s.provider.extraction = "Sorry, I can't help with that."
	_, err = s.extractor(NameStrategyForwarded).Process(s.ctx, "u1", forwardedMessage("Fwd", time.Now()))
	s.True(errors.Is(err, ai.ErrMalformedOutput))
}

func (s *ExtractorTestSuite) TestSenderInferenceFailureRecordsNothing() {
	s.provider.failOn = "sender"

	_, err := s.extractor(NameStrategyForwarded).Process(s.ctx, "u1", forwardedMessage("Fwd", time.Now()))
	s.Error(err)
	s.Equal(0, s.provider.extractCalls)
	s.Equal(0, s.ledger.count())
}

func (s *ExtractorTestSuite) TestHeaderStrategyTrustsFromHeader() {
	msg := forwardedMessage("The Batch #280", time.Now())
	msg.Sender = emaildomain.Address{Name: "The Batch", Address: "thebatch@deeplearning.ai"}

	res, err := s.extractor(NameStrategyHeader).Process(s.ctx, "u1", msg)
	s.Require().NoError(err)
	s.Equal("The Batch", res.Email.NewsletterName)
	s.Equal(0, s.provider.senderCalls)
	s.Equal(1, s.provider.extractCalls)
}

func (s *ExtractorTestSuite) TestSeenFilterErrorsFallBackToLedger() {
	filter := &fakeSeenFilter{items: map[string]bool{}}
	ex := s.extractor(NameStrategyForwarded)
	ex.SetSeenFilter(filter)
	msg := forwardedMessage("Fwd: Open-R1", time.Now())

	_, err := ex.Process(s.ctx, "u1", msg)
	s.Require().NoError(err)
	s.True(filter.items["u1:"+msg.Fingerprint()])

	filter.err = errors.New("redis down")
	res, err := ex.Process(s.ctx, "u1", msg)
	s.Require().NoError(err)
	s.Equal(OutcomeDuplicate, res.Outcome)
	s.Equal(1, s.provider.extractCalls)
}

func (s *ExtractorTestSuite) TestFilterMissStillConsultsLedger() {
	ex := s.extractor(NameStrategyForwarded)
	msg := forwardedMessage("Fwd: Open-R1", time.Now())
	first, err := ex.Process(s.ctx, "u1", msg)
	s.Require().NoError(err)

	// the filter was attached after the row was recorded, so it knows nothing
	filter := &fakeSeenFilter{items: map[string]bool{}}
	ex.SetSeenFilter(filter)
	for i := 0; i < 3; i++ {
		res, err := ex.Process(s.ctx, "u1", msg)
		s.Require().NoError(err)
		s.Equal(OutcomeDuplicate, res.Outcome)
		s.Equal(first.EmailID, res.EmailID)
	}

	s.Equal(1, s.ledger.count())
	s.Equal(1, s.provider.senderCalls)
	s.Equal(1, s.provider.extractCalls)
	s.True(filter.items["u1:"+msg.Fingerprint()])
}

func (s *ExtractorTestSuite) TestLostInsertRaceReturnsWinner() {
	msg := forwardedMessage("Fwd: Open-R1", time.Now())
	winner := emaildomain.ExtractedEmail{ID: "winner", UserID: "u1", Fingerprint: msg.Fingerprint(), NewsletterName: "TLDR AI"}
	ledger := &racingLedger{memoryLedger: s.ledger, winner: winner}
	filter := &fakeSeenFilter{items: map[string]bool{}}

	ex := NewExtractor(ledger, s.registry, NewNameStrategy(NameStrategyForwarded, s.provider), s.provider)
	ex.SetSeenFilter(filter)
	res, err := ex.Process(s.ctx, "u1", msg)
	s.Require().NoError(err)

	s.Equal(OutcomeDuplicate, res.Outcome)
	s.Equal("winner", res.EmailID)
	s.Equal(1, s.ledger.count())
	s.True(filter.items["u1:"+msg.Fingerprint()])
	s.Empty(s.registry.observed)
}

func TestExtractorTestSuite(t *testing.T) {
	suite.Run(t, new(ExtractorTestSuite))
}
