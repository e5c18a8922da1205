package gmail

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
)

func enc(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestToRawMessagePrefersHTMLPart(t *testing.T) {
	msg := &gmail.Message{
		Id:           "m1",
		Snippet:      "Today&#39;s top stories",
		InternalDate: 1717243200123,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: `"Morning Brew" <crew@morningbrew.com>`},
				{Name: "Subject", Value: "Markets rally"},
				{Name: "To", Value: "me@example.com, Bob <bob@example.com>"},
				{Name: "Cc", Value: "team@example.com"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: enc("plain body")}},
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: enc("<p>html body</p>")}},
			},
		},
	}

	raw := toRawMessage(msg)

	assert.Equal(t, "m1", raw.ID)
	assert.Equal(t, "Morning Brew", raw.Sender.Name)
	assert.Equal(t, "crew@morningbrew.com", raw.Sender.Address)
	assert.Equal(t, "Markets rally", raw.Subject)
	assert.Equal(t, "<p>html body</p>", raw.HTMLBody)
	assert.Equal(t, "Today's top stories", raw.TextExcerpt)
	assert.True(t, raw.ReceivedAt.Equal(time.UnixMilli(1717243200123)))
	require.Len(t, raw.Recipients, 3)
	assert.Equal(t, "bob@example.com", raw.Recipients[1].Address)
	assert.Equal(t, "team@example.com", raw.Recipients[2].Address)
}

func TestToRawMessageFallsBackToPlainText(t *testing.T) {
	msg := &gmail.Message{
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{{Name: "from", Value: "not an address"}},
			Parts: []*gmail.MessagePart{
				{MimeType: "multipart/mixed", Parts: []*gmail.MessagePart{
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte("hello?"))}},
				}},
			},
		},
	}

	raw := toRawMessage(msg)

	assert.Equal(t, "hello?", raw.HTMLBody)
	assert.Equal(t, "not an address", raw.Sender.Address)
	assert.Empty(t, raw.Sender.Name)
	assert.Empty(t, raw.Recipients)
}
