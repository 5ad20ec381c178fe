package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// WebhookConfig holds webhook delivery settings.
type WebhookConfig struct {
	// URL is a Slack, Discord or custom endpoint. Empty disables delivery.
	URL string
	// Type selects the payload format: "slack", "discord" or "generic".
	// Empty auto-detects from the URL.
	Type    string
	Timeout time.Duration
	// Types limits which events are sent. Empty sends everything except
	// periodic refreshes.
	Types []Type
}

// Webhook posts events as JSON to a chat or custom webhook.
type Webhook struct {
	cfg    WebhookConfig
	client *http.Client
	log    *zap.Logger
}

func NewWebhook(cfg WebhookConfig, log *zap.Logger) *Webhook {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Type == "" {
		switch {
		case strings.Contains(cfg.URL, "slack.com"):
			cfg.Type = "slack"
		case strings.Contains(cfg.URL, "discord.com"):
			cfg.Type = "discord"
		default:
			cfg.Type = "generic"
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if len(cfg.Types) == 0 {
		cfg.Types = []Type{TypeCurrentBlock, TypeCostCalculated, TypePricesUpdated}
	}
	return &Webhook{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.Named("webhook"),
	}
}

func (w *Webhook) wants(t Type) bool {
	for _, x := range w.cfg.Types {
		if x == t {
			return true
		}
	}
	return false
}

func (w *Webhook) Publish(ctx context.Context, ev Event) error {
	if w.cfg.URL == "" || !w.wants(ev.Type) {
		return nil
	}

	var payload []byte
	var err error
	switch w.cfg.Type {
	case "slack":
		payload, err = buildSlackPayload(ev)
	case "discord":
		payload, err = buildDiscordPayload(ev)
	default:
		payload, err = json.Marshal(ev)
	}
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	w.log.Debug("sent event", zap.String("type", string(ev.Type)), zap.String("id", ev.ID))
	return nil
}

var titles = map[Type]string{
	TypeRefresh:        "Tariff refreshed",
	TypeCurrentBlock:   "Current tariff block",
	TypeCostCalculated: "Electricity cost calculated",
	TypePricesUpdated:  "Electricity prices updated",
}

func title(ev Event) string {
	if t, ok := titles[ev.Type]; ok {
		return t
	}
	return string(ev.Type)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildSlackPayload(ev Event) ([]byte, error) {
	fields := make([]map[string]string, 0, len(ev.Data))
	for _, k := range sortedKeys(ev.Data) {
		fields = append(fields, map[string]string{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*%s:*\n%v", k, ev.Data[k]),
		})
	}
	// Slack caps a section at ten fields.
	if len(fields) > 10 {
		fields = fields[:10]
	}

	payload := map[string]interface{}{
		"blocks": []map[string]interface{}{
			{
				"type": "header",
				"text": map[string]string{
					"type": "plain_text",
					"text": ":zap: " + title(ev),
				},
			},
			{
				"type":   "section",
				"fields": fields,
			},
			{
				"type": "context",
				"elements": []map[string]string{
					{"type": "mrkdwn", "text": ev.Timestamp.Format(time.RFC3339)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func buildDiscordPayload(ev Event) ([]byte, error) {
	fields := make([]map[string]interface{}, 0, len(ev.Data))
	for _, k := range sortedKeys(ev.Data) {
		fields = append(fields, map[string]interface{}{
			"name":   k,
			"value":  fmt.Sprintf("%v", ev.Data[k]),
			"inline": true,
		})
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":     title(ev),
				"color":     3447003, // Blue
				"fields":    fields,
				"timestamp": ev.Timestamp.Format(time.RFC3339),
			},
		},
	}
	return json.Marshal(payload)
}
