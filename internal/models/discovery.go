package models

import "time"

type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

type FormField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Placeholder string `json:"placeholder,omitempty"`
}

type Form struct {
	Action string      `json:"action"`
	Method string      `json:"method"`
	Fields []FormField `json:"fields"`
}

// PageContent is produced per navigation and discarded after classification.
type PageContent struct {
	URL    string
	Title  string
	Text   string
	Links  []Link
	Forms  []Form
	Emails []string
	Phones []string
}

type ContactMethod string

const (
	ContactEmail   ContactMethod = "email"
	ContactForm    ContactMethod = "form"
	ContactPhone   ContactMethod = "phone"
	ContactUnknown ContactMethod = "unknown"
	ContactNone    ContactMethod = "none"
)

type Contacts struct {
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	FormURL *string `json:"form_url"`
}

type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type DiscoveryResult struct {
	Found         bool          `json:"found"`
	SourceURL     *string       `json:"source_url"`
	ContactMethod ContactMethod `json:"contact_method"`
	Confidence    int           `json:"confidence"`
	Contacts      Contacts      `json:"contacts"`
	Log           []LogEntry    `json:"log"`
}

// HasEmail reports whether the result carries a sendable email contact.
func (r DiscoveryResult) HasEmail() bool {
	return r.ContactMethod == ContactEmail && r.Contacts.Email != nil && *r.Contacts.Email != ""
}

func (r DiscoveryResult) Clone() DiscoveryResult {
	c := r
	c.SourceURL = cloneString(r.SourceURL)
	c.Contacts = Contacts{
		Email:   cloneString(r.Contacts.Email),
		Phone:   cloneString(r.Contacts.Phone),
		FormURL: cloneString(r.Contacts.FormURL),
	}
	c.Log = append([]LogEntry(nil), r.Log...)
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
