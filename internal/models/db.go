package models

import (
	"time"
)

type ApplicationStatus string

const (
	StatusPending      ApplicationStatus = "pending"
	StatusSearched     ApplicationStatus = "searched"
	StatusContactFound ApplicationStatus = "contact_found"
	StatusApplied      ApplicationStatus = "applied"
	StatusResponded    ApplicationStatus = "responded"
	StatusRejected     ApplicationStatus = "rejected"
	StatusError        ApplicationStatus = "error"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []ApplicationStatus{
	StatusPending, StatusSearched, StatusContactFound, StatusApplied,
	StatusResponded, StatusRejected, StatusError,
}

// Templates are the user's stored message templates. Empty fields fall back
// to the built-in defaults of the mailer.
type Templates struct {
	CoverLetter  string `json:"cover_letter,omitempty"`
	EmailSubject string `json:"email_subject,omitempty"`
}

// Settings defaults: AutoApply false, Notifications true, MaxApplicationsPerDay 5.
type Settings struct {
	AutoApply             bool `json:"auto_apply"`
	Notifications         bool `json:"notifications"`
	MaxApplicationsPerDay int  `json:"max_applications_per_day"`
}

func DefaultSettings() Settings {
	return Settings{AutoApply: false, Notifications: true, MaxApplicationsPerDay: 5}
}

type Statistics struct {
	TotalApplications      int        `json:"total_applications"`
	SuccessfulApplications int        `json:"successful_applications"`
	LastActivity           *time.Time `json:"last_activity,omitempty"`
}

type User struct {
	ID         string     `json:"id"`
	TelegramID int64      `json:"telegram_id"`
	Username   string     `json:"username"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	ResumePath string     `json:"resume_path,omitempty"`
	Templates  Templates  `json:"templates"`
	Settings   Settings   `json:"settings"`
	Statistics Statistics `json:"statistics"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// FullName joins first and last name, skipping empty parts.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type CompanySnapshot struct {
	Name       string `json:"name"`
	Website    string `json:"website,omitempty"`
	PlatformID string `json:"platform_id,omitempty"`
}

type PositionSnapshot struct {
	Title       string `json:"title"`
	URL         string `json:"url,omitempty"`
	Salary      string `json:"salary,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

type ApplicationDetails struct {
	EmailSent bool       `json:"email_sent"`
	Subject   string     `json:"subject,omitempty"`
	Content   string     `json:"content,omitempty"`
	MessageID string     `json:"message_id,omitempty"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type ApplicationMetadata struct {
	Source   string `json:"source"`
	Priority int    `json:"priority"`
}

// StatusChange is one entry of an application's status history.
type StatusChange struct {
	From  ApplicationStatus `json:"from"`
	To    ApplicationStatus `json:"to"`
	Event string            `json:"event"`
	Note  string            `json:"note,omitempty"`
	At    time.Time         `json:"at"`
}

type Application struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	JobID         string              `json:"job_id"`
	Status        ApplicationStatus   `json:"status"`
	Company       CompanySnapshot     `json:"company"`
	Position      PositionSnapshot    `json:"position"`
	SearchResults *DiscoveryResult    `json:"search_results,omitempty"`
	Details       ApplicationDetails  `json:"application_details"`
	Metadata      ApplicationMetadata `json:"metadata"`
	History       []StatusChange      `json:"history"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// NewApplication snapshots the vacancy into a pending application.
func NewApplication(userID string, v Vacancy) *Application {
	return &Application{
		UserID: userID,
		JobID:  v.ID,
		Status: StatusPending,
		Company: CompanySnapshot{
			Name:       v.Employer.Name,
			Website:    v.Employer.SiteURL,
			PlatformID: v.Employer.PlatformID,
		},
		Position: PositionSnapshot{
			Title:       v.Title,
			URL:         v.AlternateURL,
			Salary:      v.Salary.String(),
			Location:    v.Location,
			Description: v.Description,
		},
		Metadata: ApplicationMetadata{Source: "hh.ru", Priority: 1},
	}
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	c := *a
	if a.SearchResults != nil {
		r := a.SearchResults.Clone()
		c.SearchResults = &r
	}
	if a.Details.SentAt != nil {
		t := *a.Details.SentAt
		c.Details.SentAt = &t
	}
	if a.History != nil {
		c.History = append([]StatusChange(nil), a.History...)
	}
	return &c
}

// SendOutcome is the structured result of one dispatch attempt.
type SendOutcome struct {
	Success   bool      `json:"success"`
	MessageID string    `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"-"`
	SentAt    time.Time `json:"sent_at,omitempty"`
}
