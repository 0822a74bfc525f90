// Package notify pushes a short Telegram message to the restaurant's
// manager chat whenever a reservation is committed. Strictly
// best-effort: a failed send is logged and forgotten.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"callbook/internal/models"
)

// TelegramNotifier sends committed-reservation messages to one chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram creates a notifier from a bot token and target chat.
func NewTelegram(token string, chatID int64, logger zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		logger: logger.With().Str("component", "notify").Logger(),
	}, nil
}

// Notify sends the reservation summary. Errors are logged, never returned:
// the reservation is already committed and a missed ping must not matter.
func (n *TelegramNotifier) Notify(_ context.Context, draft models.ReservationDraft) {
	text := formatReservation(draft)
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error().Err(err).Msg("send telegram notification")
	}
}

func formatReservation(d models.ReservationDraft) string {
	text := fmt.Sprintf("New reservation: %s, %d guests, %s %s",
		orDash(d.GuestName), d.Guests, orDash(d.Date), orDash(d.Time))
	if d.GuestPhone != "" {
		text += fmt.Sprintf("\nPhone: %s", d.GuestPhone)
	}
	if d.SpecialRequests != "" {
		text += fmt.Sprintf("\nNote: %s", d.SpecialRequests)
	}
	return text
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
