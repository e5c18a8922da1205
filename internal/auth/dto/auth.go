package dto

import authdomain "github.com/jalemieux/hermes/internal/auth/domain"

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	User         *authdomain.User `json:"user"`
}

// InboxRequest connects the mailbox newsletters are read from.
// Gmail needs OAuth tokens obtained by the client, IMAP needs server credentials.
type InboxRequest struct {
	Provider     string `json:"provider" binding:"required,oneof=gmail imap"`
	Address      string `json:"address" binding:"required"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ImapServer   string `json:"imap_server"`
	ImapPort     int    `json:"imap_port"`
	ImapPassword string `json:"imap_password"`
}

type FCMTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}
