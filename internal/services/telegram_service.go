package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramService sends admin notifications through a Telegram bot.
type TelegramService struct {
	client      *resty.Client
	apiBase     string
	botToken    string
	adminChatID string
}

// NewTelegramService creates a new TelegramService. An empty bot token or
// chat id turns every send into a no-op.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		client:      resty.New().SetTimeout(10 * time.Second),
		apiBase:     telegramAPIBase,
		botToken:    botToken,
		adminChatID: adminChatID,
	}
}

// Enabled reports whether both bot token and admin chat are configured.
func (s *TelegramService) Enabled() bool {
	return s != nil && s.botToken != "" && s.adminChatID != ""
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends an HTML formatted message to the given chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(telegramMessage{ChatID: chatID, Text: text, ParseMode: "HTML"}).
		Post(url)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode())
	}

	return nil
}

// RenewalNotification carries what admins need to triage a new renewal.
type RenewalNotification struct {
	RenewalID          string
	RegistrationNumber string
	CertificateNumber  string
	CertificateType    string
	Amount             decimal.Decimal
	TransactionID      string
}

// NotifyNewRenewal tells the admin chat that a paid renewal awaits a decision.
// User supplied values are HTML escaped since the message uses HTML parse mode.
func (s *TelegramService) NotifyNewRenewal(ctx context.Context, n RenewalNotification) error {
	if !s.Enabled() {
		return nil
	}

	message := fmt.Sprintf(`<b>New renewal request</b>
<b>Renewal:</b> %s
<b>Registration no.:</b> %s
<b>Certificate:</b> %s (%s)
<b>Paid:</b> Rs. %s
<b>Khalti txn:</b> %s`,
		html.EscapeString(n.RenewalID),
		html.EscapeString(n.RegistrationNumber),
		html.EscapeString(n.CertificateNumber),
		html.EscapeString(n.CertificateType),
		n.Amount.StringFixed(2),
		html.EscapeString(n.TransactionID),
	)

	return s.SendMessage(ctx, s.adminChatID, strings.TrimSpace(message))
}
