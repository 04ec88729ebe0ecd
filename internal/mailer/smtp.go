package mailer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPTransport delivers messages over SMTP with STARTTLS or implicit TLS
// depending on the port.
type SMTPTransport struct {
	client *mail.Client
}

func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPTransport{client: client}, nil
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) (string, error) {
	m, err := buildMsg(msg)
	if err != nil {
		return "", err
	}
	if err := t.client.DialAndSendWithContext(ctx, m); err != nil {
		return "", err
	}
	var id string
	if ids := m.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 {
		id = ids[0]
	}
	return id, nil
}

// Verify dials and authenticates without sending anything.
func (t *SMTPTransport) Verify(ctx context.Context) error {
	if err := t.client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp verify failed: %w", err)
	}
	if err := t.client.Close(); err != nil {
		log.Printf("⚠️ [mailer] closing verify connection: %v", err)
	}
	return nil
}

func buildMsg(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(msg.From.Name, msg.From.Email); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to: %w", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetDate()

	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	for _, a := range msg.Attachments {
		m.AttachFile(a.Path, mail.WithFileName(a.Filename))
	}
	return m, nil
}
