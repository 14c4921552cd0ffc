package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// WebhookEvent is the JSON payload posted to configured webhook URLs
// after a branch update.
type WebhookEvent struct {
	Event     string    `json:"event"`
	Repo      string    `json:"repo"`
	Branch    string    `json:"branch"`
	CommitID  string    `json:"commit_id"`
	Timestamp time.Time `json:"timestamp"`
}

// WebhookNotifier posts push events to configured URLs. A nil notifier
// is valid and does nothing.
type WebhookNotifier struct {
	urls   []string
	secret string
	logger *slog.Logger
	client *http.Client
}

// NewWebhookNotifier returns nil when no URLs are configured.
func NewWebhookNotifier(urls []string, secret string, logger *slog.Logger) *WebhookNotifier {
	if len(urls) == 0 {
		return nil
	}
	return &WebhookNotifier{
		urls:   urls,
		secret: secret,
		logger: logger,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// NotifyPush delivers a push event asynchronously to every URL.
func (n *WebhookNotifier) NotifyPush(repo, branch, commitID string) {
	if n == nil {
		return
	}

	event := WebhookEvent{
		Event:     "push",
		Repo:      repo,
		Branch:    branch,
		CommitID:  commitID,
		Timestamp: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("webhook: marshal event failed", "error", err)
		return
	}

	for _, url := range n.urls {
		go n.post(url, payload)
	}
}

// post sends the payload with up to two retries. Client errors (4xx) are
// not retried.
func (n *WebhookNotifier) post(url string, payload []byte) {
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}

		req, err := http.NewRequest("POST", url, bytes.NewReader(payload))
		if err != nil {
			n.logger.Warn("webhook: build request failed", "url", url, "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		if n.secret != "" {
			mac := hmac.New(sha256.New, []byte(n.secret))
			mac.Write(payload)
			req.Header.Set("X-Fvc-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
		}

		resp, err := n.client.Do(req)
		if err != nil {
			n.logger.Warn("webhook: delivery failed", "url", url, "attempt", attempt+1, "error", err)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode < 300 {
			return
		}
		if resp.StatusCode < 500 {
			n.logger.Warn("webhook: rejected", "url", url, "status", resp.StatusCode)
			return
		}

		n.logger.Warn("webhook: server error", "url", url, "status", resp.StatusCode, "attempt", attempt+1)
	}
}
