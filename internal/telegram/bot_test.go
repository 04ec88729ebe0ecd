package telegram

import (
	"context"
	"testing"

	"go-hrskip-automation/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	sent []tgbotapi.Chattable
}

func (c *captureSender) Send(m tgbotapi.Chattable) (tgbotapi.Message, error) {
	c.sent = append(c.sent, m)
	return tgbotapi.Message{}, nil
}

func TestApplicationMessage(t *testing.T) {
	email := "jobs@acme.example"
	app := &models.Application{
		Status:        models.StatusApplied,
		Company:       models.CompanySnapshot{Name: "Acme Inc."},
		Position:      models.PositionSnapshot{Title: "Go (Senior)", URL: "https://hh.ru/vacancy/42"},
		SearchResults: &models.DiscoveryResult{Found: true, ContactMethod: models.ContactEmail, Confidence: 90, Contacts: models.Contacts{Email: &email}},
	}

	text := ApplicationMessage(app)
	assert.Contains(t, text, "✅ *Application sent*")
	assert.Contains(t, text, `Go \(Senior\)`)
	assert.Contains(t, text, `Acme Inc\.`)
	assert.Contains(t, text, `jobs@acme\.example`)
	assert.Contains(t, text, "Confidence: 90/100")

	app.Status = models.StatusError
	app.Details.Error = "smtp: 550"
	assert.Contains(t, ApplicationMessage(app), `⚠️ smtp: 550`)
}

func TestNotifyApplication(t *testing.T) {
	cs := &captureSender{}
	b := &Bot{api: cs}
	app := &models.Application{Status: models.StatusSearched, Position: models.PositionSnapshot{Title: "Go Dev"}}

	require.NoError(t, b.NotifyApplication(context.Background(), &models.User{}, app))
	assert.Empty(t, cs.sent, "users without telegram are skipped")

	require.NoError(t, b.NotifyApplication(context.Background(), &models.User{TelegramID: 777}, app))
	require.Len(t, cs.sent, 1)
	msg, ok := cs.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(777), msg.ChatID)
	assert.Equal(t, "MarkdownV2", msg.ParseMode)
	assert.Contains(t, msg.Text, "No contact found")
}
