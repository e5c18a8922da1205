package imap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	emaildomain "github.com/jalemieux/hermes/internal/email/domain"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	log "github.com/sirupsen/logrus"
)

const (
	defaultPort   = 993
	dialTimeout   = 30 * time.Second
	excerptLength = 200
)

// Credentials identify one IMAP mailbox. Password is plain text.
type Credentials struct {
	Server   string
	Port     int
	Username string
	Password string
}

type IMAPService struct{}

func NewService() *IMAPService {
	return &IMAPService{}
}

func (s *IMAPService) connect(creds Credentials) (*client.Client, error) {
	port := creds.Port
	if port == 0 {
		port = defaultPort
	}
	addr := fmt.Sprintf("%s:%d", creds.Server, port)

	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c.Timeout = dialTimeout

	if err := c.Login(creds.Username, creds.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("login: %w", err)
	}
	return c, nil
}

// FetchSince returns INBOX messages received at or after since, oldest first.
// IMAP SINCE has day granularity, so results are filtered again by internal date.
func (s *IMAPService) FetchSince(ctx context.Context, creds Credentials, since time.Time) ([]emaildomain.RawMessage, error) {
	c, err := s.connect(creds)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("select INBOX: %w", err)
	}

	criteria := goimap.NewSearchCriteria()
	criteria.Since = since
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(goimap.SeqSet)
	seqset.AddNum(uids...)
	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{goimap.FetchUid, goimap.FetchInternalDate, section.FetchItem()}

	fetched := make(chan *goimap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, fetched)
	}()

	var messages []emaildomain.RawMessage
	for msg := range fetched {
		if ctx.Err() != nil {
			continue // drain so UidFetch can return
		}
		if msg.InternalDate.Before(since) {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := parseMessage(body, msg.InternalDate)
		if err != nil {
			log.Warnf("[IMAP] Skipping message uid %d: %v", msg.Uid, err)
			continue
		}
		raw.ID = fmt.Sprintf("%d", msg.Uid)
		messages = append(messages, raw)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].ReceivedAt.Before(messages[j].ReceivedAt)
	})
	return messages, nil
}

// Verify checks that the credentials can log in.
func (s *IMAPService) Verify(creds Credentials) error {
	c, err := s.connect(creds)
	if err != nil {
		return err
	}
	return c.Logout()
}

func parseMessage(r io.Reader, receivedAt time.Time) (emaildomain.RawMessage, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return emaildomain.RawMessage{}, err
	}
	defer mr.Close()

	raw := emaildomain.RawMessage{ReceivedAt: receivedAt.UTC()}
	raw.Subject, _ = mr.Header.Subject()

	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		raw.Sender = emaildomain.Address{Name: from[0].Name, Address: from[0].Address}
	}
	for _, key := range []string{"To", "Cc"} {
		list, err := mr.Header.AddressList(key)
		if err != nil {
			continue
		}
		for _, a := range list {
			raw.Recipients = append(raw.Recipients, emaildomain.Address{Name: a.Name, Address: a.Address})
		}
	}
	if raw.ReceivedAt.IsZero() {
		if date, err := mr.Header.Date(); err == nil {
			raw.ReceivedAt = date.UTC()
		}
	}

	var htmlBody, plainBody string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return raw, err
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		data, err := io.ReadAll(part.Body)
		if err != nil {
			return raw, err
		}
		switch contentType {
		case "text/html":
			if htmlBody == "" {
				htmlBody = string(data)
			}
		case "text/plain":
			if plainBody == "" {
				plainBody = string(data)
			}
		}
	}

	raw.HTMLBody = htmlBody
	if raw.HTMLBody == "" {
		raw.HTMLBody = plainBody
	}
	raw.TextExcerpt = excerpt(plainBody)
	return raw, nil
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= excerptLength {
		return s
	}
	return s[:excerptLength]
}
