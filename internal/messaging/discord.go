// Package messaging posts run results to a Discord webhook.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"newsbrief/internal/core"
	"newsbrief/internal/logger"
)

// Discord payload limits.
const (
	maxEmbedsPerMessage = 10
	maxDescriptionChars = 4096
)

// DiscordMessage represents a Discord webhook message.
type DiscordMessage struct {
	Content  string         `json:"content,omitempty"`
	Username string         `json:"username,omitempty"`
	Embeds   []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed represents a Discord embed.
type DiscordEmbed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color,omitempty"`
}

// DiscordClient sends result digests to a Discord webhook.
type DiscordClient struct {
	WebhookURL string
	Username   string
	httpClient *http.Client
}

// NewDiscordClient creates a webhook client with a request timeout.
func NewDiscordClient(webhookURL, username string) *DiscordClient {
	return &DiscordClient{
		WebhookURL: webhookURL,
		Username:   username,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SendResults posts one embed per topic, split across as many messages as
// the embed-per-message limit requires.
func (c *DiscordClient) SendResults(ctx context.Context, results map[string]core.SelectionResult, topicOrder []string) error {
	if c.WebhookURL == "" {
		return fmt.Errorf("discord webhook URL is not configured")
	}

	embeds := buildEmbeds(results, topicOrder)
	if len(embeds) == 0 {
		logger.Info("No topic results to post to Discord")
		return nil
	}

	for start := 0; start < len(embeds); start += maxEmbedsPerMessage {
		end := start + maxEmbedsPerMessage
		if end > len(embeds) {
			end = len(embeds)
		}
		message := DiscordMessage{
			Username: c.Username,
			Embeds:   embeds[start:end],
		}
		if start == 0 {
			message.Content = "Newsletter digest results"
		}
		if err := c.post(ctx, message); err != nil {
			return err
		}
	}

	logger.Info("Posted results to Discord", "embeds", len(embeds))
	return nil
}

func buildEmbeds(results map[string]core.SelectionResult, topicOrder []string) []DiscordEmbed {
	var embeds []DiscordEmbed
	for _, topic := range topicOrder {
		result, ok := results[topic]
		if !ok {
			continue
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("*Keywords: %s*\n\n", strings.Join(result.ExpandedTerms, ", ")))
		if len(result.Articles) == 0 {
			sb.WriteString("No relevant articles this time.")
		}
		for _, article := range result.Articles {
			if article.URL != "" {
				sb.WriteString(fmt.Sprintf("**[%s](%s)**\n%s\n\n", article.Title, article.URL, article.Description))
			} else {
				sb.WriteString(fmt.Sprintf("**%s**\n%s\n\n", article.Title, article.Description))
			}
		}

		embeds = append(embeds, DiscordEmbed{
			Title:       result.Topic,
			Description: truncate(sb.String(), maxDescriptionChars),
			Color:       0x2563eb,
		})
	}
	return embeds
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

func (c *DiscordClient) post(ctx context.Context, message DiscordMessage) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal Discord message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create Discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}
