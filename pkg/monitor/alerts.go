package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const alertTimeout = 10 * time.Second

const telegramAPI = "https://api.telegram.org"

// AlertLevel orders alert severity
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert is one operator notification
type Alert struct {
	Level   AlertLevel `json:"level"`
	Message string     `json:"message"`
	Source  string     `json:"source"`
}

func (a Alert) text() string {
	return fmt.Sprintf("[%s] %s: %s", a.Level, a.Source, a.Message)
}

// AlertManager logs every alert and forwards it to the webhook and Telegram
// chat when those are configured.
type AlertManager struct {
	webhookURL string
	telegram   *TelegramAlerter
	client     *http.Client
}

func NewAlertManager(webhookURL string, telegram *TelegramAlerter) *AlertManager {
	return &AlertManager{
		webhookURL: webhookURL,
		telegram:   telegram,
		client:     &http.Client{Timeout: alertTimeout},
	}
}

// Send returns the first delivery error; logging always happens
func (m *AlertManager) Send(ctx context.Context, alert Alert) error {
	entry := log.WithField("source", alert.Source)
	switch alert.Level {
	case AlertCritical:
		entry.Error("[ALERT] " + alert.Message)
	case AlertWarning:
		entry.Warn("[ALERT] " + alert.Message)
	default:
		entry.Info("[ALERT] " + alert.Message)
	}

	var firstErr error
	if m.webhookURL != "" {
		payload := map[string]string{"text": alert.text()}
		if err := postJSON(ctx, m.client, m.webhookURL, payload); err != nil {
			firstErr = fmt.Errorf("webhook error: %w", err)
		}
	}
	if m.telegram != nil {
		if err := m.telegram.SendAlert(ctx, alert.text()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// TelegramAlerter posts messages through the Bot API
type TelegramAlerter struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

func NewTelegramAlerter(botToken, chatID string) *TelegramAlerter {
	return &TelegramAlerter{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  telegramAPI,
		client:   &http.Client{Timeout: alertTimeout},
	}
}

func (t *TelegramAlerter) SendAlert(ctx context.Context, message string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	body := map[string]string{
		"chat_id":    t.chatID,
		"text":       message,
		"parse_mode": "Markdown",
	}
	if err := postJSON(ctx, t.client, url, body); err != nil {
		return fmt.Errorf("telegram API request failed: %w", err)
	}
	log.Debug("Telegram alert sent")
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, alertTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
