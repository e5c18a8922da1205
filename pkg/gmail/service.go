package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"net/mail"
	"sort"
	"strings"
	"time"

	emaildomain "github.com/jalemieux/hermes/internal/email/domain"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	user          = "me"
	pageSize      = 100
	fetchParallel = 10
)

// TokenUpdateFunc is called whenever the oauth2 library refreshes the access token
type TokenUpdateFunc func(token *oauth2.Token) error

type Service struct {
	clientID     string
	clientSecret string
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Warnf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (s *Service) client(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrapped := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, wrapped)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// FetchSince returns every inbox message received at or after since, oldest first.
// Messages that cannot be fetched individually are logged and skipped.
func (s *Service) FetchSince(ctx context.Context, accessToken, refreshToken string, since time.Time, onTokenRefresh TokenUpdateFunc) ([]emaildomain.RawMessage, error) {
	srv, err := s.client(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	var ids []string
	query := fmt.Sprintf("in:inbox after:%d", since.Unix())
	err = srv.Users.Messages.List(user).Q(query).MaxResults(pageSize).Pages(ctx, func(resp *gmail.ListMessagesResponse) error {
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list messages: %w", err)
	}

	type result struct {
		msg emaildomain.RawMessage
		err error
		id  string
	}
	results := make(chan result, len(ids))
	semaphore := make(chan struct{}, fetchParallel)

	for _, id := range ids {
		go func(msgID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			full, err := srv.Users.Messages.Get(user, msgID).Format("full").Context(ctx).Do()
			if err != nil {
				results <- result{err: err, id: msgID}
				return
			}
			results <- result{msg: toRawMessage(full), id: msgID}
		}(id)
	}

	messages := make([]emaildomain.RawMessage, 0, len(ids))
	for range ids {
		r := <-results
		if r.err != nil {
			log.Warnf("[Gmail] Skipping message %s: %v", r.id, r.err)
			continue
		}
		if r.msg.ReceivedAt.Before(since) {
			continue
		}
		messages = append(messages, r.msg)
	}

	// parallel fetches complete in random order
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].ReceivedAt.Before(messages[j].ReceivedAt)
	})
	return messages, nil
}

// Watch (re)registers push notifications for the inbox and returns the mailbox history id.
func (s *Service) Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh TokenUpdateFunc) (uint64, error) {
	srv, err := s.client(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return 0, err
	}

	// Only one push client is allowed per mailbox.
	_ = srv.Users.Stop(user).Context(ctx).Do()

	resp, err := srv.Users.Watch(user, &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to watch mailbox: %w", err)
	}
	log.Infof("[Gmail] Watch started on %s (history %d, expires %d)", topicName, resp.HistoryId, resp.Expiration)
	return resp.HistoryId, nil
}

func toRawMessage(msg *gmail.Message) emaildomain.RawMessage {
	var headers []*gmail.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}

	raw := emaildomain.RawMessage{
		ID:          msg.Id,
		Sender:      parseAddress(getHeader(headers, "From")),
		Subject:     getHeader(headers, "Subject"),
		HTMLBody:    getEmailBody(msg.Payload),
		TextExcerpt: html.UnescapeString(msg.Snippet),
		ReceivedAt:  time.UnixMilli(msg.InternalDate).UTC(),
	}
	for _, name := range []string{"To", "Cc"} {
		raw.Recipients = append(raw.Recipients, parseAddressList(getHeader(headers, name))...)
	}
	return raw
}

func parseAddress(value string) emaildomain.Address {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return emaildomain.Address{Address: strings.TrimSpace(value)}
	}
	return emaildomain.Address{Name: addr.Name, Address: addr.Address}
}

func parseAddressList(value string) []emaildomain.Address {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	list, err := mail.ParseAddressList(value)
	if err != nil {
		return []emaildomain.Address{{Address: strings.TrimSpace(value)}}
	}
	out := make([]emaildomain.Address, 0, len(list))
	for _, a := range list {
		out = append(out, emaildomain.Address{Name: a.Name, Address: a.Address})
	}
	return out
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// getEmailBody prefers the text/html part and falls back to text/plain.
func getEmailBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}
	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := decode(payload.Body.Data); err == nil {
			return data
		}
	}

	var htmlBody, plainBody string
	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Body != nil && part.Body.Data != "" {
				switch part.MimeType {
				case "text/html":
					if data, err := decode(part.Body.Data); err == nil && htmlBody == "" {
						htmlBody = data
					}
				case "text/plain":
					if data, err := decode(part.Body.Data); err == nil && plainBody == "" {
						plainBody = data
					}
				}
			}
			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}
	findBody(payload.Parts)

	if htmlBody != "" {
		return htmlBody
	}
	return plainBody
}

// Gmail emits base64url, sometimes without padding.
func decode(data string) (string, error) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(data)
	}
	return string(b), err
}
