package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyNewRenewalPostsToAdminChat(t *testing.T) {
	var path string
	var msg telegramMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&msg)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	svc := NewTelegramService("bot-token", "-100200")
	svc.apiBase = srv.URL

	err := svc.NotifyNewRenewal(context.Background(), RenewalNotification{
		RenewalID:          "r-1",
		RegistrationNumber: "REG-1",
		CertificateNumber:  "REG-1/TRADE",
		CertificateType:    "trade",
		Amount:             decimal.NewFromInt(500),
		TransactionID:      "txn-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "/botbot-token/sendMessage", path)
	assert.Equal(t, "-100200", msg.ChatID)
	assert.Equal(t, "HTML", msg.ParseMode)
	assert.Contains(t, msg.Text, "REG-1/TRADE")
	assert.Contains(t, msg.Text, "Rs. 500.00")
}

func TestNotifyNewRenewalDisabled(t *testing.T) {
	svc := NewTelegramService("", "")
	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.NotifyNewRenewal(context.Background(), RenewalNotification{}))
}

func TestSendMessageReportsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	svc := NewTelegramService("t", "c")
	svc.apiBase = srv.URL
	assert.Error(t, svc.SendMessage(context.Background(), "c", "hi"))
}

func TestNotifyNewRenewalEscapesHTML(t *testing.T) {
	var msg telegramMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&msg)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	svc := NewTelegramService("bot-token", "-100200")
	svc.apiBase = srv.URL

	err := svc.NotifyNewRenewal(context.Background(), RenewalNotification{
		RenewalID:          "r-2",
		RegistrationNumber: "R<1>",
		CertificateNumber:  "R<1>/FOOD-&-DRUG",
		CertificateType:    "Food & Drug",
		Amount:             decimal.NewFromInt(250),
		TransactionID:      "txn-2",
	})
	require.NoError(t, err)

	assert.Contains(t, msg.Text, "<b>Registration no.:</b> R&lt;1&gt;")
	assert.Contains(t, msg.Text, "R&lt;1&gt;/FOOD-&amp;-DRUG (Food &amp; Drug)")
	assert.NotContains(t, msg.Text, "Food & Drug")
	assert.NotContains(t, msg.Text, "R<1>")
}
