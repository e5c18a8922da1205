// Package htmltext turns newsletter HTML into plain text for the extraction prompt.
package htmltext

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// relative links in mail bodies resolve against this placeholder
var baseURL = &url.URL{Scheme: "https", Host: "mail.invalid"}

// Document is the plain-text view of an HTML body plus page metadata
type Document struct {
	Text     string
	Title    string
	SiteName string
	Excerpt  string
}

// Extract strips markup from body. The full visible text is kept: newsletters carry
// several stories and a main-article heuristic would drop most of them.
// Page metadata comes from readability and is best-effort.
func Extract(body string) (*Document, error) {
	text, err := Strip(body)
	if err != nil {
		return nil, err
	}

	doc := &Document{Text: text, Excerpt: excerpt(text, 280)}
	if article, err := readability.FromReader(strings.NewReader(body), baseURL); err == nil {
		doc.Title = strings.TrimSpace(article.Title)
		doc.SiteName = strings.TrimSpace(article.SiteName)
	}
	return doc, nil
}

// Strip removes tags, scripts and styles and collapses whitespace
func Strip(body string) (string, error) {
	if !looksLikeHTML(body) {
		return collapse(body), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, head, template, svg").Remove()
	// keep block boundaries from gluing words together
	doc.Find("br, p, div, li, tr, h1, h2, h3, h4, h5, h6, td").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	return collapse(doc.Text()), nil
}

func looksLikeHTML(s string) bool {
	return strings.Contains(s, "<") && strings.Contains(s, ">")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func excerpt(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
