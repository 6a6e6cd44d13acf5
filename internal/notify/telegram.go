package notify

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"inspectsync/internal/events"
	"inspectsync/internal/models"
	"inspectsync/internal/syncer"
)

// TelegramSender is the part of the bot API the notifier uses.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier announces new bookings in Telegram chats.
type TelegramNotifier struct {
	sender  TelegramSender
	chatIDs []int64
}

// NewTelegramBot connects to the Bot API. endpoint may be empty for the
// public API.
func NewTelegramBot(token, endpoint string, debug bool) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = debug
	return bot, nil
}

func NewTelegramNotifier(sender TelegramSender, chatIDs []int64) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, chatIDs: chatIDs}
}

// Subscribe registers the notifier for added bookings.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.BookingAdded, n.Handle)
}

// Handle is an events.EventHandler sending one message per chat.
func (n *TelegramNotifier) Handle(e events.Event) error {
	c, err := syncer.DecodeChange(e.Payload)
	if err != nil {
		return fmt.Errorf("decode change: %w", err)
	}
	return n.Notify(c.Booking)
}

// Notify sends the booking summary to every configured chat.
func (n *TelegramNotifier) Notify(b models.Booking) error {
	text := FormatBooking(b)
	var errs []error
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.DisableWebPagePreview = true
		if _, err := n.sender.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("send to %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// FormatBooking renders a new booking as a plain-text message. Empty fields
// are left out.
func FormatBooking(b models.Booking) string {
	var sb strings.Builder
	sb.WriteString("New home inspection booking")
	lines := []struct{ label, value string }{
		{"ID", b.ID},
		{"Name", b.Name},
		{"Phone", b.Phone},
		{"Email", b.Email},
		{"Address", b.Address},
		{"Property", b.PropertyType},
		{"Inspection date", b.InspectionDate},
		{"Created", b.CreatedAt},
		{"Status", b.Status},
	}
	for _, l := range lines {
		if l.value == "" {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(l.label)
		sb.WriteString(": ")
		sb.WriteString(l.value)
	}
	return sb.String()
}
