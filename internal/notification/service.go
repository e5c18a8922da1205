package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
	"github.com/jalemieux/hermes/internal/email/usecase"

	"cloud.google.com/go/pubsub"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// EventInboxSynced is pushed to the user's SSE stream after a push-triggered ingestion
const EventInboxSynced = "inbox_synced"

// GmailNotification is the payload Gmail publishes on the watch topic
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Users is the slice of the user store the subscriber needs
type Users interface {
	FindByInboxAddress(address string) (*authdomain.User, error)
	UpdateHistoryID(userID string, historyID uint64) error
	ListWithInbox() ([]authdomain.User, error)
	UpdateGmailTokens(userID, accessToken, refreshToken string) error
}

// Ingestor runs one inbox ingestion
type Ingestor interface {
	RunForUser(ctx context.Context, userID string) (*usecase.IngestReport, error)
}

// EventSink delivers server-sent events to a user's open streams
type EventSink interface {
	SendToUser(userID, event string, data interface{})
}

// Service turns Gmail push notifications into ingestion runs, so newsletters
// are extracted minutes after arrival instead of at the next scheduled run.
type Service struct {
	pubsubClient *pubsub.Client
	users        Users
	ingestor     Ingestor
	events       EventSink
	topicName    string
	subName      string

	// one ingestion per user at a time; later notifications are covered by the
	// running one's window
	mu       sync.Mutex
	inFlight map[string]bool
}

func NewService(ctx context.Context, projectID, topicName, credentialsFile string, users Users, ingestor Ingestor, events EventSink) (*Service, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	s := newService(users, ingestor, events)
	s.pubsubClient = client
	s.topicName = topicPath(projectID, topicName)
	s.subName = subscriptionName(topicName)
	return s, nil
}

func newService(users Users, ingestor Ingestor, events EventSink) *Service {
	return &Service{
		users:    users,
		ingestor: ingestor,
		events:   events,
		inFlight: make(map[string]bool),
	}
}

// subscriptionName follows the topic-sub convention
func subscriptionName(topic string) string {
	return topicID(topic) + "-sub"
}

// topicID strips the projects/<p>/topics/ prefix Gmail watch requests use
func topicID(topic string) string {
	if i := strings.LastIndex(topic, "/"); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

// topicPath is the fully qualified name Gmail publishes to
func topicPath(projectID, topic string) string {
	if strings.HasPrefix(topic, "projects/") {
		return topic
	}
	return fmt.Sprintf("projects/%s/topics/%s", projectID, topic)
}

// Start blocks receiving notifications until ctx is cancelled
func (s *Service) Start(ctx context.Context) {
	log.Infof("[PubSub] Starting notification service with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Errorf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(topicID(s.topicName))
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Errorf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Errorf("[PubSub] Topic %s does not exist, cannot create subscription", s.topicName)
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Errorf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Infof("[PubSub] Created subscription: %s", s.subName)
	}

	log.Infof("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		// Gmail redelivers unacked messages; a failed ingestion is retried by the scheduler instead
		msg.Ack()
		if err := s.handleMessage(ctx, msg.Data); err != nil {
			log.Warnf("[PubSub] %v", err)
		}
	})
	if err != nil && ctx.Err() == nil {
		log.Errorf("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) Close() error {
	if s.pubsubClient == nil {
		return nil
	}
	return s.pubsubClient.Close()
}

func (s *Service) handleMessage(ctx context.Context, data []byte) error {
	var notification GmailNotification
	if err := json.Unmarshal(data, &notification); err != nil {
		return fmt.Errorf("unmarshal notification: %w", err)
	}

	user, err := s.users.FindByInboxAddress(strings.ToLower(notification.EmailAddress))
	if err != nil {
		return fmt.Errorf("find user for %s: %w", notification.EmailAddress, err)
	}
	if user == nil || user.InboxProvider != authdomain.InboxGmail {
		log.WithField("address", notification.EmailAddress).Debug("[PubSub] No Gmail inbox for notification")
		return nil
	}

	entry := log.WithFields(log.Fields{"user_id": user.ID, "history_id": notification.HistoryID})
	if notification.HistoryID <= user.GmailHistoryID {
		entry.Debugf("[PubSub] Skipping stale notification (last %d)", user.GmailHistoryID)
		return nil
	}
	if err := s.users.UpdateHistoryID(user.ID, notification.HistoryID); err != nil {
		return fmt.Errorf("store history id: %w", err)
	}

	if !s.acquire(user.ID) {
		entry.Debug("[PubSub] Ingestion already running")
		return nil
	}
	defer s.release(user.ID)

	report, err := s.ingestor.RunForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("ingest for %s: %w", user.ID, err)
	}
	entry.WithFields(log.Fields{"created": report.Created, "failed": report.Failed}).Info("[PubSub] Inbox synced")

	if s.events != nil && report.Created > 0 {
		s.events.SendToUser(user.ID, EventInboxSynced, report)
	}
	return nil
}

func (s *Service) acquire(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[userID] {
		return false
	}
	s.inFlight[userID] = true
	return true
}

func (s *Service) release(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, userID)
}
