package usecase

import (
	"errors"
	"fmt"
	"strings"

	summarydomain "github.com/jalemieux/hermes/internal/summary/domain"
)

// synthesisAnswer is the structured answer to synthesisPrompt
type synthesisAnswer struct {
	Title      string                   `json:"title"`
	FromToDate string                   `json:"from_to_date"`
	KeyPoints  []summarydomain.KeyPoint `json:"key_points"`
	Sections   []summarydomain.Section  `json:"sections"`
}

func (a *synthesisAnswer) Validate() error {
	a.Title = strings.TrimSpace(a.Title)
	a.FromToDate = strings.TrimSpace(a.FromToDate)
	if a.Title == "" {
		return errors.New("title missing")
	}
	if len(a.KeyPoints) == 0 && len(a.Sections) == 0 {
		return errors.New("neither key points nor sections")
	}
	for i := range a.KeyPoints {
		a.KeyPoints[i].Text = strings.TrimSpace(a.KeyPoints[i].Text)
		if a.KeyPoints[i].Text == "" {
			return fmt.Errorf("key point %d is empty", i)
		}
	}
	for i := range a.Sections {
		s := &a.Sections[i]
		s.Header = strings.TrimSpace(s.Header)
		s.Content = strings.TrimSpace(s.Content)
		if s.Header == "" {
			return fmt.Errorf("section %d has no header", i)
		}
	}
	return nil
}
