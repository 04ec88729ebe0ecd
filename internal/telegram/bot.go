package telegram

import (
	"context"
	"fmt"
	"strings"

	"go-hrskip-automation/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the slice of tgbotapi.BotAPI the bot needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot tells users how their applications ended.
type Bot struct {
	api sender
}

func NewBot(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{api: api}, nil
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(",
		")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#",
		"+", "\\+", "-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{",
		"}", "\\}", ".", "\\.", "!", "\\!",
	)
	return replacer.Replace(text)
}

// ApplicationMessage renders the MarkdownV2 status message for app.
func ApplicationMessage(app *models.Application) string {
	var head string
	switch app.Status {
	case models.StatusApplied:
		head = "✅ *Application sent*"
	case models.StatusContactFound:
		head = "📇 *Contact found, not sent*"
	case models.StatusSearched:
		head = "❓ *No contact found*"
	case models.StatusError:
		head = "❌ *Application failed*"
	case models.StatusResponded:
		head = "💬 *Employer responded*"
	case models.StatusRejected:
		head = "🚫 *Application rejected*"
	default:
		head = "⏳ *In progress*"
	}

	msgText := head + "\n"
	msgText += fmt.Sprintf("💼 %s\n", escapeMarkdown(app.Position.Title))
	msgText += fmt.Sprintf("🏢 %s\n", escapeMarkdown(app.Company.Name))

	if r := app.SearchResults; r != nil && r.Found {
		switch {
		case r.Contacts.Email != nil:
			msgText += fmt.Sprintf("📧 %s\n", escapeMarkdown(*r.Contacts.Email))
		case r.Contacts.FormURL != nil:
			msgText += fmt.Sprintf("📝 [Application form](%s)\n", *r.Contacts.FormURL)
		case r.Contacts.Phone != nil:
			msgText += fmt.Sprintf("📞 %s\n", escapeMarkdown(*r.Contacts.Phone))
		}
		msgText += fmt.Sprintf("🎯 Confidence: %d/100\n", r.Confidence)
	}
	if app.Status == models.StatusError && app.Details.Error != "" {
		msgText += fmt.Sprintf("⚠️ %s\n", escapeMarkdown(app.Details.Error))
	}
	if app.Position.URL != "" {
		msgText += fmt.Sprintf("🔗 [View vacancy](%s)\n", app.Position.URL)
	}
	return msgText
}

// NotifyApplication sends the status message to the user's Telegram chat.
func (b *Bot) NotifyApplication(ctx context.Context, user *models.User, app *models.Application) error {
	if user.TelegramID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(user.TelegramID, ApplicationMessage(app))
	msg.ParseMode = "MarkdownV2"
	msg.DisableWebPagePreview = true
	if app.Position.URL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🔗 View Job", app.Position.URL)),
		)
	}
	_, err := b.api.Send(msg)
	return err
}
