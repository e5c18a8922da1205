package domain

import (
	"fmt"
	"strings"
	"time"
)

// Address is a mailbox address with an optional display name
type Address struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Address
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Address)
}

// RawMessage is a message as delivered by a mailbox gateway, before any extraction
type RawMessage struct {
	ID          string    `json:"id"` // gateway-native id, informational only
	Sender      Address   `json:"sender"`
	Subject     string    `json:"subject"`
	HTMLBody    string    `json:"html_body"`
	TextExcerpt string    `json:"text_excerpt"`
	ReceivedAt  time.Time `json:"received_at"`
	Recipients  []Address `json:"recipients"`
}

// Fingerprint identifies the message independently of the gateway that delivered it
func (m RawMessage) Fingerprint() string {
	return Fingerprint(m.Subject, m.Sender.Address, m.ReceivedAt)
}

// RecipientList renders recipients as a comma separated header value
func (m RawMessage) RecipientList() string {
	parts := make([]string, 0, len(m.Recipients))
	for _, r := range m.Recipients {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}
