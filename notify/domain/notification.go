package domain

import (
	"context"
	"errors"
)

var (
	ErrNotConfigured = errors.New("notification target is not configured")
	ErrDownstream    = errors.New("notification target rejected the request")
)

// Forwarder delivers a JSON payload to a chat webhook.
type Forwarder interface {
	Forward(ctx context.Context, payload []byte) error
}

// Message is the minimal incoming-webhook body Slack accepts.
type Message struct {
	Text string `json:"text"`
}
