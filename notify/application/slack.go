package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dfryer1193/xbrush/notify/domain"
	"github.com/rs/zerolog/log"
)

var _ domain.Forwarder = (*SlackForwarder)(nil)

// SlackForwarder posts payloads to a Slack incoming webhook.
type SlackForwarder struct {
	url    string
	client *http.Client
}

// NewSlackForwarder returns a forwarder for url. An empty url yields a
// forwarder that always fails with ErrNotConfigured.
func NewSlackForwarder(url string, timeout time.Duration) *SlackForwarder {
	return &SlackForwarder{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (f *SlackForwarder) Configured() bool {
	return f.url != ""
}

func (f *SlackForwarder) Forward(ctx context.Context, payload []byte) error {
	if !f.Configured() {
		return domain.ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDownstream, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Msg("Slack rejected notification")
		return fmt.Errorf("%w: status %d", domain.ErrDownstream, resp.StatusCode)
	}

	return nil
}
