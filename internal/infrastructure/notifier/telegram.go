package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TelegramNotifier sends messages to a Telegram chat through the Bot API.
// Delivery is best-effort: every failure is logged and swallowed so a
// notification problem can never interrupt a trading cycle.
type TelegramNotifier struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
	logger  *zap.Logger
}

func NewTelegramNotifier(token, chatID string, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		apiBase: "https://api.telegram.org",
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, message string) {
	if n.token == "" || n.chatID == "" {
		// Not configured. Keep the message visible in the log.
		n.logger.Info("Notification (telegram disabled)", zap.String("message", message))
		return
	}

	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", message)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		n.logger.Warn("Failed to build telegram request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("Telegram send failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		n.logger.Warn("Telegram send rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
	}
}
