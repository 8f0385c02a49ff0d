package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier sends alerts via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string

	// APIBase overrides the Telegram API endpoint, for tests.
	APIBase string
}

func (t *TelegramNotifier) Type() string { return "telegram" }

func (t *TelegramNotifier) Validate() error {
	if t.BotToken == "" {
		return errors.New("telegram: bot_token is required")
	}
	if t.ChatID == "" {
		return errors.New("telegram: chat_id is required")
	}
	return nil
}

func (t *TelegramNotifier) Send(ctx context.Context, event Event) error {
	payload := map[string]interface{}{
		"chat_id":    t.ChatID,
		"text":       formatMessage(event),
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	base := t.APIBase
	if base == "" {
		base = telegramAPIBase
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", base, t.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// formatMessage renders the alert text. The event kind, station name and
// partner are always present; the time shown is the report-supplied one
// (time of departure for offline, current report time for recovery).
func formatMessage(event Event) string {
	st := event.Station

	if event.Kind == KindWentOffline {
		return fmt.Sprintf(
			"⚠️ *STATION WENT OFFLINE* ⚠️\n\n*Name:* %s\n*Partner:* %s\n*Last seen:* %s",
			st.Name, st.Partner, st.ObservedAt)
	}
	return fmt.Sprintf(
		"🟢 *Station back ONLINE* 🟢\n\n*Name:* %s\n*Partner:* %s\n*Report time:* %s",
		st.Name, st.Partner, st.ObservedAt)
}
