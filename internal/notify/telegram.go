package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const telegramAPI = "https://api.telegram.org"

// TelegramSender posts to a chat through the Bot API.
type TelegramSender struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{token: token, chatID: chatID, baseURL: telegramAPI, client: defaultHTTPClient}
}

// Send posts the title in bold above the message. Transaction hashes and
// addresses are left as plain text so Markdown does not mangle them.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.baseURL, "/"), t.token)
	err := postJSON(ctx, t.client, url, map[string]any{
		"chat_id":                  t.chatID,
		"text":                     fmt.Sprintf("<b>%s</b>\n%s", escapeHTML(title), escapeHTML(message)),
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

func (t *TelegramSender) Name() string { return "telegram" }

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }
