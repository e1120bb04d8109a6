package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/bemynet/marketplace/internal/config"
	obsmetrics "github.com/bemynet/marketplace/internal/observability/metrics"
	"github.com/bemynet/marketplace/internal/settlement/adapters"
	settlementdomain "github.com/bemynet/marketplace/internal/settlement/domain"
	settlementservice "github.com/bemynet/marketplace/internal/settlement/service"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	Coord      *settlementservice.Service
	Adapters   *adapters.Registry
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// Service turns raw provider webhooks into coordinator calls: verify the
// signature, parse the typed event, dispatch.
type Service struct {
	log           *zap.Logger
	coord         *settlementservice.Service
	adapters      *adapters.Registry
	obsMetrics    *obsmetrics.Metrics
	webhookSecret string
}

func NewService(p Params) settlementdomain.Service {
	return &Service{
		log:           p.Log.Named("settlement.webhook"),
		coord:         p.Coord,
		adapters:      p.Adapters,
		obsMetrics:    p.ObsMetrics,
		webhookSecret: strings.TrimSpace(p.Cfg.PaymentWebhookSecret),
	}
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return settlementdomain.ErrInvalidProvider
	}
	if s.adapters == nil || !s.adapters.ProviderExists(provider) {
		return settlementdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return settlementdomain.ErrInvalidPayload
	}

	adapter, err := s.adapters.NewAdapter(provider, settlementdomain.AdapterConfig{
		Provider:      provider,
		WebhookSecret: s.webhookSecret,
	})
	if err != nil {
		return err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.recordOutcome(ctx, provider, "unknown", "invalid_signature")
		return err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, settlementdomain.ErrEventIgnored) {
			s.recordOutcome(ctx, provider, "unknown", "ignored")
			return nil
		}
		s.recordOutcome(ctx, provider, "unknown", "invalid_payload")
		return err
	}

	if event.Meta().RawPayload == nil {
		event.Meta().RawPayload = payload
	}
	if err := s.coord.ProcessEvent(ctx, event, payload); err != nil {
		if errors.Is(err, settlementdomain.ErrEventAlreadyProcessed) {
			s.recordOutcome(ctx, provider, event.Kind(), "duplicate")
			s.log.Info("webhook replay, no new work performed",
				zap.String("provider", provider),
				zap.String("event_type", event.Kind()),
				zap.String("provider_event_id", event.Meta().ProviderEventID),
			)
		}
		return err
	}
	return nil
}

func (s *Service) recordOutcome(ctx context.Context, provider, eventType, outcome string) {
	if s.obsMetrics == nil {
		return
	}
	s.obsMetrics.RecordWebhookEvent(ctx, provider, eventType, outcome)
}
