// Package mailer renders and sends application emails.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go-hrskip-automation/internal/models"
)

const ResumeFileName = "resume.pdf"

// Address is a display name plus mailbox.
type Address struct {
	Name  string
	Email string
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%q <%s>", a.Name, a.Email)
}

type Attachment struct {
	Filename string
	Path     string
}

// Message is what a Transport delivers.
type Message struct {
	From        Address
	To          string
	ReplyTo     string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Transport delivers one message and returns its Message-ID.
type Transport interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// SendError wraps a transport rejection.
type SendError struct {
	Recipient string
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s failed: %v", e.Recipient, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

var (
	ErrNotEmailContact = errors.New("contact method is not email")
	ErrNoRecipient     = errors.New("no recipient email address")
)

type Dispatcher struct {
	transport Transport
	from      string
	timeout   time.Duration
	now       func() time.Time
}

// NewDispatcher sends through t with from as the envelope mailbox. An empty
// from falls back to the user's own address.
func NewDispatcher(t Transport, from string, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{transport: t, from: from, timeout: timeout, now: time.Now}
}

// Compose builds the message for app without sending it.
func (d *Dispatcher) Compose(to string, user *models.User, app *models.Application) (Message, error) {
	v := VarsFor(user, app)
	letter := Render(coverLetterTemplate(user), v)

	html, err := htmlBody(letter, v)
	if err != nil {
		return Message{}, fmt.Errorf("render html body: %w", err)
	}

	from := d.from
	if from == "" {
		from = user.Email
	}
	msg := Message{
		From:    Address{Name: user.FullName(), Email: from},
		To:      to,
		ReplyTo: user.Email,
		Subject: Render(subjectTemplate(user), v),
		Text:    textBody(letter, v),
		HTML:    html,
	}
	if p := strings.TrimSpace(user.ResumePath); p != "" {
		if _, err := os.Stat(p); err == nil {
			msg.Attachments = append(msg.Attachments, Attachment{Filename: ResumeFileName, Path: p})
		} else {
			log.Printf("⚠️ [mailer] resume %s not attached: %v", p, err)
		}
	}
	return msg, nil
}

// Dispatch sends the application email for an email contact. It never
// retries; a failed outcome carries the error text.
func (d *Dispatcher) Dispatch(ctx context.Context, result models.DiscoveryResult, user *models.User, app *models.Application) models.SendOutcome {
	var to string
	if result.Contacts.Email != nil {
		to = strings.TrimSpace(*result.Contacts.Email)
	}
	out := models.SendOutcome{Recipient: to}

	switch {
	case result.ContactMethod != models.ContactEmail:
		out.Error = ErrNotEmailContact.Error()
		return out
	case to == "":
		out.Error = ErrNoRecipient.Error()
		return out
	}

	msg, err := d.Compose(to, user, app)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Subject = msg.Subject
	out.Body = msg.Text

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	id, err := d.transport.Send(ctx, msg)
	if err != nil {
		serr := &SendError{Recipient: to, Err: err}
		log.Printf("❌ [mailer] %v", serr)
		out.Error = serr.Error()
		return out
	}

	log.Printf("📧 [mailer] sent %q to %s", msg.Subject, to)
	out.Success = true
	out.MessageID = id
	out.SentAt = d.now()
	return out
}
