package models

import (
	"fmt"
	"time"
)

type Employer struct {
	Name       string `json:"name"`
	SiteURL    string `json:"site_url,omitempty"`
	PlatformID string `json:"platform_id,omitempty"`
}

type Salary struct {
	From     *int   `json:"from,omitempty"`
	To       *int   `json:"to,omitempty"`
	Currency string `json:"currency,omitempty"`
	Gross    bool   `json:"gross,omitempty"`
}

func (s Salary) String() string {
	switch {
	case s.From != nil && s.To != nil:
		return fmt.Sprintf("%d-%d %s", *s.From, *s.To, s.Currency)
	case s.From != nil:
		return fmt.Sprintf("from %d %s", *s.From, s.Currency)
	case s.To != nil:
		return fmt.Sprintf("up to %d %s", *s.To, s.Currency)
	}
	return ""
}

// Vacancy is read-only input for a discovery run.
type Vacancy struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Employer     Employer  `json:"employer"`
	Salary       Salary    `json:"salary"`
	Location     string    `json:"location,omitempty"`
	Description  string    `json:"description,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
	AlternateURL string    `json:"alternate_url,omitempty"`
}
