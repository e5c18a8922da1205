package notification

import (
	"context"
	"fmt"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
	"github.com/jalemieux/hermes/pkg/gmail"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Watcher registers Gmail push notifications for one mailbox
type Watcher interface {
	Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh gmail.TokenUpdateFunc) (uint64, error)
}

// RenewWatches re-registers every Gmail inbox on the topic. Gmail drops a
// watch after seven days, so this runs on a schedule.
func (s *Service) RenewWatches(ctx context.Context, watcher Watcher) error {
	users, err := s.users.ListWithInbox()
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	failures := 0
	for i := range users {
		user := &users[i]
		if user.InboxProvider != authdomain.InboxGmail {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		onRefresh := func(t *oauth2.Token) error {
			return s.users.UpdateGmailTokens(user.ID, t.AccessToken, t.RefreshToken)
		}
		historyID, err := watcher.Watch(ctx, user.GmailAccessToken, user.GmailRefreshToken, s.topicName, onRefresh)
		if err != nil {
			failures++
			log.WithField("user_id", user.ID).Warnf("[PubSub] Watch failed: %v", err)
			continue
		}
		// first watch: anything older than this history id is covered by the scheduled ingestion
		if user.GmailHistoryID == 0 {
			if err := s.users.UpdateHistoryID(user.ID, historyID); err != nil {
				log.WithField("user_id", user.ID).Warnf("[PubSub] Could not store history id: %v", err)
			}
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d watches failed", failures)
	}
	return nil
}
