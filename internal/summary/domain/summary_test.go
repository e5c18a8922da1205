package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateRange(t *testing.T) {
	from := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 9, 7, 0, 0, 0, time.UTC)

	assert.Equal(t, "January 02, 2025 to January 09, 2025", DateRange(from, to))
}

func TestSpokenScript(t *testing.T) {
	s := &Summary{
		Title:      "AI weekly",
		FromToDate: "January 02, 2025 to January 09, 2025",
		KeyPoints:  []KeyPoint{{Text: "Chips are scarce"}, {Text: "Models got cheaper"}},
		Sections: []Section{
			{Header: "Hardware", Content: "Supply is tight."},
			{Header: "Models", Content: "Prices fell."},
		},
		Sources: []Source{{URL: "https://example.com"}},
	}

	want := "AI weekly.\n\n" +
		"Covering January 02, 2025 to January 09, 2025.\n\n" +
		"Key points.\nChips are scarce\nModels got cheaper\n\n" +
		"Hardware.\nSupply is tight.\n\n" +
		"Models.\nPrices fell.\n"
	assert.Equal(t, want, s.SpokenScript())
}
