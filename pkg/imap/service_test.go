package imap

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multipartMessage = "From: \"The Download\" <news@technologyreview.com>\r\n" +
	"To: reader@example.com, Other <other@example.com>\r\n" +
	"Subject: AI chips, explained\r\n" +
	"Date: Mon, 03 Jun 2024 08:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Plain   version\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>HTML version</p>\r\n" +
	"--b1--\r\n"

func TestParseMessagePrefersHTML(t *testing.T) {
	received := time.Date(2024, 6, 3, 8, 0, 5, 0, time.UTC)

	raw, err := parseMessage(strings.NewReader(multipartMessage), received)
	require.NoError(t, err)

	assert.Equal(t, "AI chips, explained", raw.Subject)
	assert.Equal(t, "The Download", raw.Sender.Name)
	assert.Equal(t, "news@technologyreview.com", raw.Sender.Address)
	assert.Contains(t, raw.HTMLBody, "<p>HTML version</p>")
	assert.Equal(t, "Plain version", raw.TextExcerpt)
	assert.True(t, received.Equal(raw.ReceivedAt))
	require.Len(t, raw.Recipients, 2)
	assert.Equal(t, "Other", raw.Recipients[1].Name)
}

func TestParseMessageUsesDateHeaderWithoutInternalDate(t *testing.T) {
	msg := "From: a@example.com\r\nSubject: hi\r\nDate: Mon, 03 Jun 2024 08:00:00 +0200\r\nContent-Type: text/plain\r\n\r\nbody\r\n"

	raw, err := parseMessage(strings.NewReader(msg), time.Time{})
	require.NoError(t, err)

	assert.True(t, time.Date(2024, 6, 3, 6, 0, 0, 0, time.UTC).Equal(raw.ReceivedAt))
	assert.Contains(t, raw.HTMLBody, "body")
}
