package dto

import (
	emaildomain "github.com/jalemieux/hermes/internal/email/domain"
)

type EmailsResponse struct {
	Emails []emaildomain.ExtractedEmail `json:"emails"`
	Limit  int                          `json:"limit"`
	Offset int                          `json:"offset"`
	Total  int64                        `json:"total"`
}

type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}

type AudioRequest struct {
	HasAudio *bool `json:"has_audio" binding:"required"`
}
