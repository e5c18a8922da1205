package mailbox

import (
	"context"
	"fmt"
	"time"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
	emaildomain "github.com/jalemieux/hermes/internal/email/domain"
	"github.com/jalemieux/hermes/pkg/gmail"
	"github.com/jalemieux/hermes/pkg/imap"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

type GmailGateway interface {
	FetchSince(ctx context.Context, accessToken, refreshToken string, since time.Time, onTokenRefresh gmail.TokenUpdateFunc) ([]emaildomain.RawMessage, error)
}

type IMAPGateway interface {
	FetchSince(ctx context.Context, creds imap.Credentials, since time.Time) ([]emaildomain.RawMessage, error)
}

// Opener reveals sealed inbox credentials
type Opener interface {
	Open(sealed string) (string, error)
}

type TokenStore interface {
	UpdateGmailTokens(userID, accessToken, refreshToken string) error
}

// Router fetches from whichever gateway the user's inbox is connected through.
type Router struct {
	gmail  GmailGateway
	imap   IMAPGateway
	opener Opener
	tokens TokenStore
}

func NewRouter(gmailGateway GmailGateway, imapGateway IMAPGateway, opener Opener, tokens TokenStore) *Router {
	return &Router{gmail: gmailGateway, imap: imapGateway, opener: opener, tokens: tokens}
}

func (r *Router) Fetch(ctx context.Context, user *authdomain.User, since time.Time) ([]emaildomain.RawMessage, error) {
	switch user.InboxProvider {
	case authdomain.InboxGmail:
		if r.gmail == nil {
			return nil, fmt.Errorf("gmail gateway not configured")
		}
		userID := user.ID
		onRefresh := func(t *oauth2.Token) error {
			log.Infof("[Mailbox] Refreshed Gmail token for user %s", userID)
			return r.tokens.UpdateGmailTokens(userID, t.AccessToken, t.RefreshToken)
		}
		return r.gmail.FetchSince(ctx, user.GmailAccessToken, user.GmailRefreshToken, since, onRefresh)

	case authdomain.InboxIMAP:
		if r.imap == nil || r.opener == nil {
			return nil, fmt.Errorf("imap gateway not configured")
		}
		password, err := r.opener.Open(user.ImapPassword)
		if err != nil {
			return nil, fmt.Errorf("open imap password: %w", err)
		}
		username := user.InboxAddress
		if username == "" {
			username = user.Email
		}
		return r.imap.FetchSince(ctx, imap.Credentials{
			Server:   user.ImapServer,
			Port:     user.ImapPort,
			Username: username,
			Password: password,
		}, since)
	}
	return nil, authdomain.ErrInboxNotConfigured
}
