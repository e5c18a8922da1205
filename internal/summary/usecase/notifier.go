package usecase

import (
	"context"
	"fmt"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
	summarydomain "github.com/jalemieux/hermes/internal/summary/domain"
	"github.com/jalemieux/hermes/pkg/amqp"
	"github.com/jalemieux/hermes/pkg/fcm"

	log "github.com/sirupsen/logrus"
)

const EventSummaryReady = "summary_ready"

type EventSink interface {
	SendToUser(userID, event string, data interface{})
}

type PushSender interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

type DeviceTokens interface {
	GetTokensByUserID(userID string) ([]authdomain.FCMToken, error)
	DeleteStaleTokens(tokens []string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

type ScriptStore interface {
	PutScript(ctx context.Context, userID, summaryID, script string) (string, error)
}

// CompletedMessage is published for the voice pipeline
type CompletedMessage struct {
	SummaryID string `json:"summary_id"`
	UserID    string `json:"user_id"`
	ScriptURL string `json:"script_url,omitempty"`
}

// DigestNotifier fans a completed summary out to every configured sink.
// Sinks are optional; their failures are logged and dropped.
type DigestNotifier struct {
	events    EventSink
	push      PushSender
	devices   DeviceTokens
	publisher EventPublisher
	scripts   ScriptStore
}

func NewDigestNotifier() *DigestNotifier {
	return &DigestNotifier{}
}

func (n *DigestNotifier) WithEvents(events EventSink) *DigestNotifier {
	n.events = events
	return n
}

func (n *DigestNotifier) WithPush(push PushSender, devices DeviceTokens) *DigestNotifier {
	n.push = push
	n.devices = devices
	return n
}

func (n *DigestNotifier) WithPublisher(publisher EventPublisher) *DigestNotifier {
	n.publisher = publisher
	return n
}

func (n *DigestNotifier) WithScripts(scripts ScriptStore) *DigestNotifier {
	n.scripts = scripts
	return n
}

func (n *DigestNotifier) SummaryCompleted(ctx context.Context, s *summarydomain.Summary) {
	logger := log.WithFields(log.Fields{"user_id": s.UserID, "summary_id": s.ID})

	if n.events != nil {
		n.events.SendToUser(s.UserID, EventSummaryReady, map[string]interface{}{
			"summary_id": s.ID,
			"title":      s.Title,
		})
	}

	if n.push != nil && n.devices != nil {
		if err := n.sendPush(ctx, s); err != nil {
			logger.Warnf("[Notifier] Push failed: %v", err)
		}
	}

	scriptURL := ""
	if n.scripts != nil {
		url, err := n.scripts.PutScript(ctx, s.UserID, s.ID, s.SpokenScript())
		if err != nil {
			logger.Warnf("[Notifier] Script upload failed: %v", err)
		} else {
			scriptURL = url
		}
	}

	if n.publisher != nil {
		msg := CompletedMessage{SummaryID: s.ID, UserID: s.UserID, ScriptURL: scriptURL}
		if err := n.publisher.Publish(ctx, amqp.RoutingKeySummaryCompleted, msg); err != nil {
			logger.Warnf("[Notifier] Publish failed: %v", err)
		}
	}
}

func (n *DigestNotifier) sendPush(ctx context.Context, s *summarydomain.Summary) error {
	devices, err := n.devices.GetTokensByUserID(s.UserID)
	if err != nil {
		return fmt.Errorf("load device tokens: %w", err)
	}
	if len(devices) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.Token)
	}

	stale, err := n.push.SendToDevices(ctx, tokens, fcm.NotificationData{
		Title: "Your digest is ready",
		Body:  s.Title,
		Data:  map[string]string{"summary_id": s.ID, "type": EventSummaryReady},
		Link:  "/summaries/" + s.ID,
	})
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		if err := n.devices.DeleteStaleTokens(stale); err != nil {
			return fmt.Errorf("drop stale tokens: %w", err)
		}
	}
	return nil
}
