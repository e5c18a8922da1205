package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
	authdto "github.com/jalemieux/hermes/internal/auth/dto"
	"github.com/jalemieux/hermes/internal/auth/repository"
	"github.com/jalemieux/hermes/pkg/config"
	"github.com/jalemieux/hermes/pkg/imap"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const defaultImapPort = 993

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	userRepo repository.UserRepository
	fcmRepo  repository.FCMTokenRepository
	sealer   Sealer
	verifier IMAPVerifier
	config   *config.Config
}

// NewAuthUsecase creates a new instance of authUsecase. A nil sealer disables IMAP inboxes.
func NewAuthUsecase(userRepo repository.UserRepository, fcmRepo repository.FCMTokenRepository, sealer Sealer, cfg *config.Config) AuthUsecase {
	return &authUsecase{
		userRepo: userRepo,
		fcmRepo:  fcmRepo,
		sealer:   sealer,
		config:   cfg,
	}
}

func (u *authUsecase) SetIMAPVerifier(v IMAPVerifier) {
	u.verifier = v
}

func (u *authUsecase) Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error) {
	user, err := u.userRepo.FindByEmail(strings.ToLower(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil || !repository.CheckPasswordHash(req.Password, user.Password) {
		return nil, authdomain.ErrInvalidCredentials
	}
	return u.generateTokens(user)
}

func (u *authUsecase) Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error) {
	email := strings.ToLower(req.Email)
	existing, err := u.userRepo.FindByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, authdomain.ErrUserExists
	}

	hashedPassword, err := repository.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &authdomain.User{
		Email:    email,
		Password: hashedPassword,
		Name:     req.Name,
	}
	if err := u.userRepo.Create(user); err != nil {
		return nil, err
	}
	log.Infof("[Auth] Registered user %s", user.ID)
	return u.generateTokens(user)
}

func (u *authUsecase) RefreshToken(refreshToken string) (*authdto.TokenResponse, error) {
	claims, err := u.parse(refreshToken)
	if err != nil {
		return nil, err
	}

	stored, err := u.userRepo.FindRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.ExpiresAt.Before(time.Now()) {
		return nil, authdomain.ErrInvalidToken
	}

	user, err := u.userFromClaims(claims)
	if err != nil {
		return nil, err
	}
	// rotate: the presented token is single use
	if err := u.userRepo.DeleteRefreshToken(refreshToken); err != nil {
		return nil, err
	}
	return u.generateTokens(user)
}

func (u *authUsecase) Logout(refreshToken string) error {
	return u.userRepo.DeleteRefreshToken(refreshToken)
}

func (u *authUsecase) ValidateToken(tokenString string) (*authdomain.User, error) {
	claims, err := u.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if typ, _ := claims["typ"].(string); typ != "access" {
		return nil, authdomain.ErrInvalidToken
	}
	return u.userFromClaims(claims)
}

func (u *authUsecase) ConnectInbox(userID string, req *authdto.InboxRequest) (*authdomain.User, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	switch req.Provider {
	case authdomain.InboxGmail:
		if req.RefreshToken == "" && req.AccessToken == "" {
			return nil, errors.New("gmail inbox requires an OAuth token")
		}
		user.GmailAccessToken = req.AccessToken
		user.GmailRefreshToken = req.RefreshToken
		user.ImapServer, user.ImapPort, user.ImapPassword = "", 0, ""

	case authdomain.InboxIMAP:
		if u.sealer == nil {
			return nil, errors.New("imap inboxes are disabled: SECRET_KEY is not set")
		}
		if req.ImapServer == "" || req.ImapPassword == "" {
			return nil, errors.New("imap inbox requires server and password")
		}
		port := req.ImapPort
		if port == 0 {
			port = defaultImapPort
		}
		if u.verifier != nil {
			creds := imap.Credentials{Server: req.ImapServer, Port: port, Username: req.Address, Password: req.ImapPassword}
			if err := u.verifier.Verify(creds); err != nil {
				return nil, fmt.Errorf("imap login failed: %w", err)
			}
		}
		sealed, err := u.sealer.Seal(req.ImapPassword)
		if err != nil {
			return nil, fmt.Errorf("seal password: %w", err)
		}
		user.ImapServer = req.ImapServer
		user.ImapPort = port
		user.ImapPassword = sealed
		user.GmailAccessToken, user.GmailRefreshToken = "", ""

	default:
		return nil, fmt.Errorf("unsupported inbox provider %q", req.Provider)
	}

	// a new inbox starts from a fresh window
	user.InboxProvider = req.Provider
	user.InboxAddress = strings.ToLower(req.Address)
	user.InboxSyncedAt = nil
	user.GmailHistoryID = 0

	if err := u.userRepo.Update(user); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": user.ID, "provider": req.Provider}).Info("[Auth] Inbox connected")
	return user, nil
}

func (u *authUsecase) RegisterDevice(userID string, req *authdto.FCMTokenRequest) error {
	return u.fcmRepo.SaveToken(userID, req.Token, req.DeviceInfo)
}

func (u *authUsecase) UnregisterDevice(userID, token string) error {
	return u.fcmRepo.DeleteToken(userID, token)
}

func (u *authUsecase) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, authdomain.ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, authdomain.ErrInvalidToken
	}
	return claims, nil
}

func (u *authUsecase) userFromClaims(claims jwt.MapClaims) (*authdomain.User, error) {
	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, authdomain.ErrInvalidToken
	}
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, authdomain.ErrInvalidToken
	}
	return user, nil
}

func (u *authUsecase) generateTokens(user *authdomain.User) (*authdto.TokenResponse, error) {
	now := time.Now()
	accessToken, err := u.sign(jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"typ":     "access",
		"exp":     now.Add(u.config.JWTAccessExpiry).Unix(),
		"iat":     now.Unix(),
	})
	if err != nil {
		return nil, err
	}

	refreshToken, err := u.sign(jwt.MapClaims{
		"user_id":  user.ID,
		"token_id": uuid.New().String(),
		"typ":      "refresh",
		"exp":      now.Add(u.config.JWTRefreshExpiry).Unix(),
		"iat":      now.Unix(),
	})
	if err != nil {
		return nil, err
	}

	err = u.userRepo.SaveRefreshToken(&authdomain.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		ExpiresAt: now.Add(u.config.JWTRefreshExpiry),
	})
	if err != nil {
		return nil, err
	}

	return &authdto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

func (u *authUsecase) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}
