package usecase

import (
	"errors"
	"fmt"
	"strings"

	emaildomain "github.com/jalemieux/hermes/internal/email/domain"
)

type extractedNews struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type extractedTopic struct {
	Header  string          `json:"header"`
	Summary string          `json:"summary"`
	News    []extractedNews `json:"news"`
}

type extractedSource struct {
	URL       string `json:"url"`
	Date      string `json:"date"`
	Title     string `json:"title"`
	Publisher string `json:"publisher"`
}

// extraction is the structured answer to extractionPrompt
type extraction struct {
	Name    string            `json:"name"`
	Topics  []extractedTopic  `json:"topics"`
	Sources []extractedSource `json:"sources"`
}

// Validate trims every field and rejects entries missing their key field
func (x *extraction) Validate() error {
	if x.Topics == nil {
		return errors.New("topics missing")
	}
	x.Name = strings.TrimSpace(x.Name)
	for i := range x.Topics {
		t := &x.Topics[i]
		t.Header = strings.TrimSpace(t.Header)
		t.Summary = strings.TrimSpace(t.Summary)
		if t.Header == "" {
			return fmt.Errorf("topic %d has no header", i)
		}
		for j := range t.News {
			t.News[j].Title = strings.TrimSpace(t.News[j].Title)
			t.News[j].Content = strings.TrimSpace(t.News[j].Content)
		}
	}
	for i := range x.Sources {
		s := &x.Sources[i]
		s.URL = strings.TrimSpace(s.URL)
		s.Date = strings.TrimSpace(s.Date)
		s.Title = strings.TrimSpace(s.Title)
		s.Publisher = strings.TrimSpace(s.Publisher)
		if s.URL == "" {
			return fmt.Errorf("source %d has no url", i)
		}
	}
	return nil
}

func (x *extraction) topics() []emaildomain.Topic {
	out := make([]emaildomain.Topic, 0, len(x.Topics))
	for _, t := range x.Topics {
		topic := emaildomain.Topic{Header: t.Header, Summary: t.Summary}
		for _, n := range t.News {
			topic.NewsItems = append(topic.NewsItems, emaildomain.NewsItem{Title: n.Title, Content: n.Content})
		}
		out = append(out, topic)
	}
	return out
}

func (x *extraction) sources() []emaildomain.Source {
	out := make([]emaildomain.Source, 0, len(x.Sources))
	for _, s := range x.Sources {
		out = append(out, emaildomain.Source{URL: s.URL, Date: s.Date, Title: s.Title, Publisher: s.Publisher})
	}
	return out
}

// senderAnswer is the structured answer to senderPrompt
type senderAnswer struct {
	Sender string `json:"sender"`
}

func (s *senderAnswer) Validate() error {
	s.Sender = strings.TrimSpace(s.Sender)
	if s.Sender == "" {
		return errors.New("sender is empty")
	}
	return nil
}
