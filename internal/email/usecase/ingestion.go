package usecase

import (
	"context"
	"fmt"
	"time"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
	"github.com/jalemieux/hermes/internal/email/repository"

	log "github.com/sirupsen/logrus"
)

// TaskProcessInbox is the task execution name of a full ingestion run
const TaskProcessInbox = "process_inbox_emails"

// IngestReport counts what one user's run did with the fetched messages
type IngestReport struct {
	UserID     string `json:"user_id"`
	Fetched    int    `json:"fetched"`
	Created    int    `json:"created"`
	Duplicates int    `json:"duplicates"`
	Excluded   int    `json:"excluded"`
	Failed     int    `json:"failed"`
	Deferred   int    `json:"deferred"`
}

type IngestionConfig struct {
	// Lookback is subtracted from the last sync time to build the fetch window
	Lookback time.Duration
	// MaxPerRun caps model extractions per user per run, 0 means unlimited
	MaxPerRun int
}

// IngestionService pulls each inbox and feeds the messages, one at a time, to the extractor
type IngestionService struct {
	users     InboxUsers
	mailbox   Mailbox
	extractor *Extractor
	ledger    repository.ExtractedEmailRepository
	index     *SearchIndex
	tasks     TaskRecorder
	cfg       IngestionConfig
}

func NewIngestionService(
	users InboxUsers,
	mailbox Mailbox,
	extractor *Extractor,
	ledger repository.ExtractedEmailRepository,
	tasks TaskRecorder,
	cfg IngestionConfig,
) *IngestionService {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 24 * time.Hour
	}
	return &IngestionService{
		users:     users,
		mailbox:   mailbox,
		extractor: extractor,
		ledger:    ledger,
		tasks:     tasks,
		cfg:       cfg,
	}
}

// SetSearchIndex enables best-effort indexing of newly created emails
func (s *IngestionService) SetSearchIndex(index *SearchIndex) {
	s.index = index
}

// RunAll ingests every user with a connected inbox and returns the total failure count
func (s *IngestionService) RunAll(ctx context.Context) (int, error) {
	if err := s.tasks.Start(TaskProcessInbox); err != nil {
		log.Warnf("[Ingestion] Could not record task start: %v", err)
	}

	users, err := s.users.ListWithInbox()
	if err != nil {
		s.finish(err)
		return 0, fmt.Errorf("list users: %w", err)
	}

	failures := 0
	for i := range users {
		if ctx.Err() != nil {
			break
		}
		report, err := s.RunForUser(ctx, users[i].ID)
		if err != nil {
			failures++
			log.WithField("user_id", users[i].ID).Errorf("[Ingestion] Run failed: %v", err)
			continue
		}
		failures += report.Failed
	}

	var runErr error
	if ctx.Err() != nil {
		runErr = ctx.Err()
	} else if failures > 0 {
		runErr = fmt.Errorf("%d messages or inboxes failed", failures)
	}
	s.finish(runErr)
	log.Infof("[Ingestion] Processed %d users, %d failures", len(users), failures)
	return failures, runErr
}

func (s *IngestionService) finish(runErr error) {
	if err := s.tasks.Finish(TaskProcessInbox, runErr); err != nil {
		log.Warnf("[Ingestion] Could not record task result: %v", err)
	}
}

// RunForUser fetches the user's window and processes it in mailbox order.
// A failed message is counted and skipped; the sync mark only advances
// when nothing was left behind.
func (s *IngestionService) RunForUser(ctx context.Context, userID string) (*IngestReport, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.HasInbox() {
		return nil, fmt.Errorf("user %s: %w", userID, authdomain.ErrInboxNotConfigured)
	}

	startedAt := time.Now()
	since := startedAt.Add(-s.cfg.Lookback)
	if user.InboxSyncedAt != nil {
		since = user.InboxSyncedAt.Add(-s.cfg.Lookback)
	}

	messages, err := s.mailbox.Fetch(ctx, user, since)
	if err != nil {
		return nil, fmt.Errorf("fetch inbox: %w", err)
	}

	report := &IngestReport{UserID: userID, Fetched: len(messages)}
	for i, msg := range messages {
		if ctx.Err() != nil {
			report.Deferred += len(messages) - i
			break
		}

		if s.cfg.MaxPerRun > 0 && report.Created >= s.cfg.MaxPerRun {
			known, err := s.ledger.FindByFingerprint(userID, msg.Fingerprint())
			if err == nil && known != nil {
				report.Duplicates++
			} else {
				report.Deferred++
			}
			continue
		}

		res, err := s.extractor.Process(ctx, userID, msg)
		if err != nil {
			report.Failed++
			log.WithFields(log.Fields{
				"user_id":     userID,
				"subject":     msg.Subject,
				"fingerprint": msg.Fingerprint(),
			}).Errorf("[Ingestion] Skipping message: %v", err)
			continue
		}

		switch res.Outcome {
		case OutcomeCreated:
			report.Created++
			if s.index != nil {
				if err := s.index.Add(ctx, res.Email); err != nil {
					log.Warnf("[Ingestion] Indexing email %s failed: %v", res.EmailID, err)
				}
			}
		case OutcomeExcluded:
			report.Excluded++
		case OutcomeDuplicate:
			report.Duplicates++
		}
	}

	if report.Failed == 0 && report.Deferred == 0 {
		if err := s.users.MarkInboxSynced(userID, startedAt); err != nil {
			log.Warnf("[Ingestion] Could not advance sync mark for %s: %v", userID, err)
		}
	}

	log.WithFields(log.Fields{
		"user_id":    userID,
		"fetched":    report.Fetched,
		"created":    report.Created,
		"duplicates": report.Duplicates,
		"excluded":   report.Excluded,
		"failed":     report.Failed,
		"deferred":   report.Deferred,
	}).Info("[Ingestion] User run finished")
	return report, nil
}
