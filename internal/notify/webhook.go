package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// WebhookNotifier posts run notifications to a chat webhook.
type WebhookNotifier struct {
	url    string
	secret []byte
	client *http.Client
	now    func() time.Time
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
	Run     RunMessage  `json:"run"`
}

type webhookText struct {
	Content string `json:"content"`
}

// WebhookOption configures the notifier.
type WebhookOption func(*WebhookNotifier)

// WithSecret signs each request with an HS256 bearer token.
func WithSecret(secret string) WebhookOption {
	return func(n *WebhookNotifier) {
		n.secret = []byte(secret)
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(n *WebhookNotifier) {
		if client != nil {
			n.client = client
		}
	}
}

// NewWebhookNotifier constructs a notifier.
func NewWebhookNotifier(url string, opts ...WebhookOption) *WebhookNotifier {
	n := &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify sends the run message.
func (n *WebhookNotifier) Notify(ctx context.Context, msg RunMessage) error {
	if n == nil || n.url == "" {
		return errors.New("webhook notifier: empty url")
	}
	payload := webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: formatRunMessage(msg)},
		Run:     msg,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if len(n.secret) > 0 {
		token, err := SignToken(n.secret, msg.RunID, n.now(), 0)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notifier: non-2xx status %d", resp.StatusCode)
	}
	return nil
}

func formatRunMessage(msg RunMessage) string {
	var b strings.Builder
	b.WriteString("[Energy Pipeline]\n")
	fmt.Fprintf(&b, "Run: %s\n", msg.RunID)
	fmt.Fprintf(&b, "Status: %s\n", msg.Status)
	if !msg.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Started: %s\n", msg.StartedAt.UTC().Format(time.RFC3339))
	}
	if msg.Duration > 0 {
		fmt.Fprintf(&b, "Duration: %s\n", msg.Duration)
	}
	if len(msg.Loaded) > 0 {
		fmt.Fprintf(&b, "Loaded: %s\n", formatCounts(msg.Loaded))
	}
	if len(msg.Fillers) > 0 {
		fmt.Fprintf(&b, "Fillers: %s\n", formatCounts(msg.Fillers))
	}
	for _, e := range msg.Errors {
		fmt.Fprintf(&b, "Error: %s\n", e)
	}
	for _, u := range msg.ReportURLs {
		fmt.Fprintf(&b, "Report: %s\n", u)
	}
	return strings.TrimSpace(b.String())
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}
