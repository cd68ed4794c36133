// Package notify is the fire-and-forget side channel that tells the user
// when a scan batch starts and finishes. Delivery is best effort: the
// orchestrator logs a failed notification and moves on.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Notifier defines the interface for scan progress notifications
type Notifier interface {
	ScanStarted(ctx context.Context) error
	ScanComplete(ctx context.Context) error
}

const (
	startedTitle  = "Escaneo"
	startedBody   = "Iniciando escaneo de imagenes..."
	completeTitle = "Escaneo"
	completeBody  = "Escaneo completado"
)

// Log writes notifications to the structured log. Used when no webhook
// URL is configured.
type Log struct{}

func (Log) ScanStarted(context.Context) error {
	slog.Info("notification", "title", startedTitle, "body", startedBody)
	return nil
}

func (Log) ScanComplete(context.Context) error {
	slog.Info("notification", "title", completeTitle, "body", completeBody)
	return nil
}

// Webhook posts title/body JSON to a configured URL (an ntfy topic or
// similar push relay).
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a new Webhook Notifier instance
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *Webhook) ScanStarted(ctx context.Context) error {
	return w.post(ctx, startedTitle, startedBody)
}

func (w *Webhook) ScanComplete(ctx context.Context) error {
	return w.post(ctx, completeTitle, completeBody)
}

func (w *Webhook) post(ctx context.Context, title, body string) error {
	payload, err := json.Marshal(map[string]string{
		"title": title,
		"body":  body,
	})
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}
	return nil
}
