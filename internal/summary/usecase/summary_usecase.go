package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	summarydomain "github.com/jalemieux/hermes/internal/summary/domain"
	"github.com/jalemieux/hermes/internal/summary/repository"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const TaskGenerateDigests = "generate_digests"

type Config struct {
	// Cooldown is how long a pending summary blocks new requests from the same user
	Cooldown time.Duration
	// Window is how far back the first digest of a user reaches
	Window time.Duration
	// StaleAfter is the age at which the sweep deletes a pending row. It must
	// cover the longest a queued job can wait, see QueueDrainTime.
	StaleAfter time.Duration
}

type summaryUsecase struct {
	repo     repository.SummaryRepository
	engine   *Engine
	emails   EmailSource
	filter   ActivityFilter
	users    DigestUsers
	tasks    TaskRecorder
	notifier Notifier
	cfg      Config
	now      func() time.Time
}

// NewSummaryUsecase wires the lifecycle manager. filter and notifier may be nil.
func NewSummaryUsecase(
	repo repository.SummaryRepository,
	engine *Engine,
	emails EmailSource,
	filter ActivityFilter,
	users DigestUsers,
	tasks TaskRecorder,
	notifier Notifier,
	cfg Config,
) SummaryUsecase {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.Window <= 0 {
		cfg.Window = 7 * 24 * time.Hour
	}
	if cfg.StaleAfter < cfg.Cooldown {
		cfg.StaleAfter = cfg.Cooldown
	}
	return &summaryUsecase{
		repo:     repo,
		engine:   engine,
		emails:   emails,
		filter:   filter,
		users:    users,
		tasks:    tasks,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (u *summaryUsecase) GenerateDigest(ctx context.Context, userID string) (*summarydomain.Summary, error) {
	pending, err := u.RequestDigest(userID)
	if err != nil {
		return nil, err
	}
	return u.run(ctx, pending)
}

func (u *summaryUsecase) GenerateFromEmails(ctx context.Context, userID string, emailIDs []string) (*summarydomain.Summary, error) {
	ids := uniqueIDs(emailIDs)
	if len(ids) == 0 {
		return nil, summarydomain.ErrNothingToSummarize
	}
	emails, err := u.emails.FindByIDs(userID, ids)
	if err != nil {
		return nil, fmt.Errorf("load emails: %w", err)
	}
	if len(emails) != len(ids) {
		return nil, fmt.Errorf("%w: %d of %d ids", summarydomain.ErrUnknownSourceEmail, len(ids)-len(emails), len(ids))
	}

	from, to := emails[0].EmailDate, emails[0].EmailDate
	for _, e := range emails[1:] {
		if e.EmailDate.Before(from) {
			from = e.EmailDate
		}
		if e.EmailDate.After(to) {
			to = e.EmailDate
		}
	}

	// [from, to) must include the newest email
	pending, err := u.request(userID, from, to.Add(time.Second), ids)
	if err != nil {
		return nil, err
	}
	return u.run(ctx, pending)
}

// RequestDigest picks the window and the eligible emails, then creates the pending row.
// No row is created when there is nothing to summarize.
func (u *summaryUsecase) RequestDigest(userID string) (*summarydomain.Summary, error) {
	to := u.now()
	from := to.Add(-u.cfg.Window)
	last, err := u.repo.LastCompleted(userID)
	if err != nil {
		return nil, fmt.Errorf("find last summary: %w", err)
	}
	if last != nil {
		from = last.ToDate
	}

	emails, err := u.emails.FindForDigest(userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load emails: %w", err)
	}

	inactive := map[string]bool{}
	if u.filter != nil {
		if inactive, err = u.filter.InactiveNames(userID); err != nil {
			return nil, fmt.Errorf("load newsletter settings: %w", err)
		}
	}

	ids := make([]string, 0, len(emails))
	for _, e := range emails {
		if e.IsExcluded || inactive[e.NewsletterName] {
			continue
		}
		ids = append(ids, e.ID)
	}
	if len(ids) == 0 {
		return nil, summarydomain.ErrNothingToSummarize
	}

	return u.request(userID, from, to, ids)
}

func (u *summaryUsecase) request(userID string, from, to time.Time, ids []string) (*summarydomain.Summary, error) {
	now := u.now()
	s := &summarydomain.Summary{
		ID:             uuid.New().String(),
		UserID:         userID,
		Status:         summarydomain.StatusPending,
		FromDate:       from,
		ToDate:         to,
		FromToDate:     summarydomain.DateRange(from, to),
		SourceEmailIDs: ids,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := u.repo.CreatePending(s, now.Add(-u.cfg.Cooldown))
	if err != nil {
		return nil, fmt.Errorf("create pending summary: %w", err)
	}
	if !created {
		return nil, summarydomain.ErrSummaryInProgress
	}
	log.WithFields(log.Fields{"user_id": userID, "summary_id": s.ID, "emails": len(ids)}).Info("[Summary] Requested")
	return s, nil
}

func (u *summaryUsecase) Resume(ctx context.Context, userID, summaryID string) (*summarydomain.Summary, error) {
	s, err := u.repo.FindByID(userID, summaryID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, summarydomain.ErrSummaryNotFound
	}
	if s.IsCompleted() {
		return s, nil
	}
	return u.run(ctx, s)
}

func (u *summaryUsecase) Abandon(summaryID string) error {
	return u.repo.DeletePending(summaryID)
}

func (u *summaryUsecase) run(ctx context.Context, s *summarydomain.Summary) (*summarydomain.Summary, error) {
	syn, err := u.engine.Synthesize(ctx, s.UserID, s.SourceEmailIDs)
	if err != nil {
		return nil, u.fail(s, err)
	}
	if err := u.complete(ctx, s, syn); err != nil {
		return nil, u.fail(s, fmt.Errorf("%w: %w", summarydomain.ErrGenerationFailed, err))
	}
	return s, nil
}

func (u *summaryUsecase) complete(ctx context.Context, s *summarydomain.Summary, syn *Synthesis) error {
	now := u.now()
	s.Status = summarydomain.StatusCompleted
	s.Title = syn.Title
	s.KeyPoints = syn.KeyPoints
	s.Sections = syn.Sections
	s.Sources = syn.Sources
	s.NewsletterNames = syn.NewsletterNames
	s.DatePublished = &now
	s.UpdatedAt = now

	if err := u.repo.Complete(s); err != nil {
		return fmt.Errorf("complete summary %s: %w", s.ID, err)
	}
	if err := u.emails.MarkSummarized(s.UserID, s.SourceEmailIDs); err != nil {
		log.WithField("summary_id", s.ID).Warnf("[Summary] Could not flag source emails: %v", err)
	}

	log.WithFields(log.Fields{
		"user_id":     s.UserID,
		"summary_id":  s.ID,
		"newsletters": len(s.NewsletterNames),
		"sources":     len(s.Sources),
	}).Info("[Summary] Completed")

	if u.notifier != nil {
		u.notifier.SummaryCompleted(ctx, s)
	}
	return nil
}

// fail drops the pending row so the next request starts clean, and hands the cause back
func (u *summaryUsecase) fail(s *summarydomain.Summary, cause error) error {
	if err := u.repo.DeletePending(s.ID); err != nil {
		log.WithField("summary_id", s.ID).Errorf("[Summary] Could not delete pending row: %v", err)
	}
	log.WithFields(log.Fields{"user_id": s.UserID, "summary_id": s.ID}).Errorf("[Summary] Failed: %v", cause)
	return cause
}

func (u *summaryUsecase) Regenerate(ctx context.Context, userID, summaryID string) (*summarydomain.Summary, error) {
	s, err := u.repo.FindByID(userID, summaryID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, summarydomain.ErrSummaryNotFound
	}
	if !s.IsCompleted() {
		return nil, summarydomain.ErrSummaryNotCompleted
	}

	syn, err := u.engine.Synthesize(ctx, userID, s.SourceEmailIDs)
	if err != nil {
		return nil, err
	}

	s.Title = syn.Title
	s.KeyPoints = syn.KeyPoints
	s.Sections = syn.Sections
	s.UpdatedAt = u.now()
	if err := u.repo.UpdateContent(s); err != nil {
		return nil, fmt.Errorf("update summary %s: %w", s.ID, err)
	}
	log.WithField("summary_id", s.ID).Info("[Summary] Regenerated")
	return s, nil
}

func (u *summaryUsecase) Get(userID, summaryID string) (*summarydomain.Summary, error) {
	s, err := u.repo.FindByID(userID, summaryID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, summarydomain.ErrSummaryNotFound
	}
	return s, nil
}

func (u *summaryUsecase) List(userID string, limit, offset int) ([]summarydomain.Summary, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return u.repo.List(userID, limit, offset)
}

func (u *summaryUsecase) SpokenScript(userID, summaryID string) (string, error) {
	s, err := u.Get(userID, summaryID)
	if err != nil {
		return "", err
	}
	if !s.IsCompleted() {
		return "", summarydomain.ErrSummaryNotCompleted
	}
	return s.SpokenScript(), nil
}

func (u *summaryUsecase) SetHasAudio(userID, summaryID string, hasAudio bool) error {
	return u.repo.SetHasAudio(userID, summaryID, hasAudio)
}

// SweepStale removes pending rows older than StaleAfter; they belong to crashed runs.
// Rows between Cooldown and StaleAfter no longer block new requests but may still be queued.
func (u *summaryUsecase) SweepStale(now time.Time) (int64, error) {
	n, err := u.repo.DeleteStalePending(now.Add(-u.cfg.StaleAfter))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Infof("[Summary] Swept %d stale pending summaries", n)
	}
	return n, nil
}

// RunDailyDigests generates one digest per user with an inbox and returns the failure count.
// Users with nothing new or a digest already in flight are skipped, not failed.
func (u *summaryUsecase) RunDailyDigests(ctx context.Context) (int, error) {
	if u.tasks != nil {
		if err := u.tasks.Start(TaskGenerateDigests); err != nil {
			log.Warnf("[Summary] Could not record task start: %v", err)
		}
	}

	users, err := u.users.ListWithInbox()
	if err != nil {
		u.finish(err)
		return 0, fmt.Errorf("list users: %w", err)
	}

	generated, failures := 0, 0
	for i := range users {
		if ctx.Err() != nil {
			break
		}
		_, err := u.GenerateDigest(ctx, users[i].ID)
		switch {
		case err == nil:
			generated++
		case errors.Is(err, summarydomain.ErrNothingToSummarize), errors.Is(err, summarydomain.ErrSummaryInProgress):
			log.WithField("user_id", users[i].ID).Debugf("[Summary] Skipped: %v", err)
		default:
			failures++
		}
	}

	var runErr error
	if ctx.Err() != nil {
		runErr = ctx.Err()
	} else if failures > 0 {
		runErr = fmt.Errorf("%d of %d digests failed", failures, len(users))
	}
	u.finish(runErr)
	log.Infof("[Summary] Daily digests: %d generated, %d failed", generated, failures)
	return failures, runErr
}

func (u *summaryUsecase) finish(runErr error) {
	if u.tasks == nil {
		return
	}
	if err := u.tasks.Finish(TaskGenerateDigests, runErr); err != nil {
		log.Warnf("[Summary] Could not record task result: %v", err)
	}
}
