package dto

// GenerateRequest optionally pins the digest to specific emails
type GenerateRequest struct {
	EmailIDs []string `json:"email_ids"`
}

type AudioRequest struct {
	HasAudio *bool `json:"has_audio" binding:"required"`
}
