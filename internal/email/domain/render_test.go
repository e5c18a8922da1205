package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	email := &ExtractedEmail{
		NewsletterName: "TLDR AI",
		Topics: []Topic{
			{
				Header:  "Models",
				Summary: "New open weights.",
				NewsItems: []NewsItem{
					{Title: "Open-R1", Content: "A reproduction of R1."},
				},
			},
		},
		Sources: []Source{
			{URL: "https://hf.co/blog/open-r1", Date: "2025-01-28", Title: "Open-R1", Publisher: "Hugging Face"},
		},
	}

	want := "Newsletter: TLDR AI\n\n" +
		"Topic: Models\n" +
		"Summary: New open weights.\n" +
		"  - Open-R1: A reproduction of R1.\n" +
		"\n" +
		"Sources:\n" +
		"  - Open-R1 (Hugging Face, 2025-01-28): https://hf.co/blog/open-r1\n"
	assert.Equal(t, want, email.Render())
}

func TestRenderExcludedEmail(t *testing.T) {
	email := &ExtractedEmail{NewsletterName: "Promo Weekly", IsExcluded: true}
	assert.Equal(t, "Newsletter: Promo Weekly\n\nSources:\n", email.Render())
}

func TestAddressString(t *testing.T) {
	assert.Equal(t, "TLDR AI <dan@tldrnewsletter.com>", Address{Name: "TLDR AI", Address: "dan@tldrnewsletter.com"}.String())
	assert.Equal(t, "dan@tldrnewsletter.com", Address{Address: "dan@tldrnewsletter.com"}.String())
}
