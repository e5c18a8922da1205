package usecase

import (
	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
	authdto "github.com/jalemieux/hermes/internal/auth/dto"
	"github.com/jalemieux/hermes/pkg/imap"
)

// AuthUsecase covers accounts, JWT sessions and the connected inbox
type AuthUsecase interface {
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	ValidateToken(tokenString string) (*authdomain.User, error)
	ConnectInbox(userID string, req *authdto.InboxRequest) (*authdomain.User, error)

	RegisterDevice(userID string, req *authdto.FCMTokenRequest) error
	UnregisterDevice(userID, token string) error

	// SetIMAPVerifier makes ConnectInbox test IMAP credentials before storing them
	SetIMAPVerifier(v IMAPVerifier)
}

// IMAPVerifier logs in once with the given credentials
type IMAPVerifier interface {
	Verify(creds imap.Credentials) error
}

// Sealer encrypts credentials before they are stored
type Sealer interface {
	Seal(plain string) (string, error)
}
