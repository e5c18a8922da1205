package domain

import (
	"fmt"
	"strings"
)

// Render produces the plain text rendition of an extracted email that the
// synthesis prompt consumes.
func (e *ExtractedEmail) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Newsletter: %s\n\n", e.NewsletterName)

	for _, t := range e.Topics {
		fmt.Fprintf(&b, "Topic: %s\n", t.Header)
		fmt.Fprintf(&b, "Summary: %s\n", t.Summary)
		for _, n := range t.NewsItems {
			fmt.Fprintf(&b, "  - %s: %s\n", n.Title, n.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("Sources:\n")
	for _, s := range e.Sources {
		fmt.Fprintf(&b, "  - %s (%s, %s): %s\n", s.Title, s.Publisher, s.Date, s.URL)
	}
	return b.String()
}
