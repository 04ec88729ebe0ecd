package reporter

import (
	"context"
	"fmt"
	"html"

	"go-hrskip-automation/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramReporter posts operator alerts to one admin chat.
type TelegramReporter struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramReporter(cfg *config.Config) (*TelegramReporter, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	//turn this on in case of debug
	//bot.Debug = true

	return &TelegramReporter{
		bot:    bot,
		chatID: cfg.Telegram.ChatID,
	}, nil
}

func (t *TelegramReporter) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "HTML" //use HTML for bold/italic
	_, err := t.bot.Send(msg)
	return err
}

// Alert implements apply.Alerter.
func (t *TelegramReporter) Alert(ctx context.Context, text string) error {
	return t.SendMessage(FormatAlert(text))
}

func (t *TelegramReporter) SendError(errReq error) error {
	return t.SendMessage(FormatAlert(errReq.Error()))
}

func FormatAlert(text string) string {
	return fmt.Sprintf("⚠️ <b>HR Skip</b>:\n%s", html.EscapeString(text))
}
