package notify

import (
	"context"
	"fmt"
	"net/http"
)

// discordLimit is the maximum length of a webhook message.
const discordLimit = 2000

// DiscordSender posts to a channel webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{webhookURL: webhookURL, client: defaultHTTPClient}
}

func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	content := fmt.Sprintf("**%s**\n%s", title, message)
	if r := []rune(content); len(r) > discordLimit {
		content = string(r[:discordLimit-1]) + "…"
	}
	if err := postJSON(ctx, d.client, d.webhookURL, map[string]string{"content": content}); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

func (d *DiscordSender) Name() string { return "discord" }
