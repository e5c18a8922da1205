package usecase

import (
	"errors"
	"strings"
	"time"

	"github.com/jalemieux/hermes/internal/newsletter/domain"
	"github.com/jalemieux/hermes/internal/newsletter/repository"
	"github.com/jalemieux/hermes/pkg/fuzzy"

	log "github.com/sirupsen/logrus"
)

var ErrEmptyName = errors.New("newsletter name is required")

type registryUsecase struct {
	repo  repository.SubscriptionRepository
	names NameSource
}

func NewRegistryUsecase(repo repository.SubscriptionRepository, names NameSource) RegistryUsecase {
	return &registryUsecase{repo: repo, names: names}
}

func (u *registryUsecase) Observe(userID, name string, seenAt time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return u.repo.Observe(userID, name, seenAt)
}

func (u *registryUsecase) IsActive(userID, name string) (bool, error) {
	sub, err := u.repo.Find(userID, strings.TrimSpace(name))
	if err != nil {
		return false, err
	}
	if sub == nil {
		return true, nil
	}
	return sub.IsActive, nil
}

func (u *registryUsecase) SetActive(userID, name string, active bool) (*domain.Subscription, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	sub, err := u.repo.SetActive(userID, name, active)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": userID, "newsletter": name, "active": active}).Info("[Registry] Subscription updated")
	return sub, nil
}

func (u *registryUsecase) InactiveNames(userID string) (map[string]bool, error) {
	names, err := u.repo.InactiveNames(userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out, nil
}

func (u *registryUsecase) List(userID string) ([]domain.Subscription, error) {
	return u.repo.ListByUser(userID)
}

func (u *registryUsecase) Search(userID, query string) ([]domain.Subscription, error) {
	subs, err := u.repo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return subs, nil
	}

	byName := make(map[string]domain.Subscription, len(subs))
	names := make([]string, 0, len(subs))
	for _, s := range subs {
		byName[s.Name] = s
		names = append(names, s.Name)
	}

	matched := fuzzy.Match(query, names)
	out := make([]domain.Subscription, 0, len(matched))
	for _, n := range matched {
		out = append(out, byName[n])
	}
	return out, nil
}

func (u *registryUsecase) Backfill(userID string) (int, error) {
	sightings, err := u.names.DistinctNewsletterNames(userID)
	if err != nil {
		return 0, err
	}
	existing, err := u.repo.ListByUser(userID)
	if err != nil {
		return 0, err
	}
	known := make(map[string]bool, len(existing))
	for _, s := range existing {
		known[s.Name] = true
	}

	created := 0
	for _, s := range sightings {
		if err := u.Observe(userID, s.Name, s.LastSeen); err != nil {
			log.Warnf("[Registry] Backfill of %q failed: %v", s.Name, err)
			continue
		}
		if !known[strings.TrimSpace(s.Name)] {
			created++
		}
	}
	log.Infof("[Registry] Backfill for user %s created %d subscriptions", userID, created)
	return created, nil
}
