package domain

import (
	"context"
	"net/http"
)

// AdapterConfig configures one provider adapter instance.
type AdapterConfig struct {
	Provider      string
	WebhookSecret string
}

// Adapter verifies and parses one provider's webhook payloads.
type Adapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	// Parse returns ErrEventIgnored for event types the settlement
	// pipeline does not consume.
	Parse(ctx context.Context, payload []byte) (Event, error)
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (Adapter, error)
}

// Service ingests raw provider webhooks.
type Service interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}
