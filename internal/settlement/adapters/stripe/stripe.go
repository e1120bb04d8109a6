package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"

	settlementdomain "github.com/bemynet/marketplace/internal/settlement/domain"
)

// SignatureHeader carries the timestamped HMAC for inbound payloads:
// `t=<unix>,v1=<hex hmac-sha256 of "<unix>.<payload>">`.
const SignatureHeader = "X-BMN-Signature"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "stripe"
}

func (f *Factory) NewAdapter(cfg settlementdomain.AdapterConfig) (settlementdomain.Adapter, error) {
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, settlementdomain.ErrInvalidConfig
	}

	return &Adapter{webhookSecret: secret}, nil
}

type Adapter struct {
	webhookSecret string
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get(SignatureHeader))
	if sigHeader == "" {
		return settlementdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return settlementdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return settlementdomain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (settlementdomain.Event, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, settlementdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, settlementdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "checkout.session.completed":
		return a.parseCheckoutSession(event, payload)
	case "payment_intent.succeeded":
		return a.parsePaymentIntent(event, payload)
	case "charge.refunded":
		return a.parseChargeRefunded(event, payload)
	case "account.updated":
		return a.parseAccountUpdated(event, payload)
	default:
		return nil, settlementdomain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Created       int64             `json:"created"`
	Metadata      map[string]string `json:"metadata"`
}

type stripePaymentIntent struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	Created        int64             `json:"created"`
	Metadata       map[string]string `json:"metadata"`
}

type stripeCharge struct {
	ID             string `json:"id"`
	PaymentIntent  string `json:"payment_intent"`
	AmountRefunded int64  `json:"amount_refunded"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Created        int64  `json:"created"`
}

type stripeAccount struct {
	ID             string                    `json:"id"`
	PayoutsEnabled bool                      `json:"payouts_enabled"`
	ChargesEnabled bool                      `json:"charges_enabled"`
	Requirements   stripeAccountRequirements `json:"requirements"`
}

type stripeAccountRequirements struct {
	DisabledReason string `json:"disabled_reason"`
}

func (a *Adapter) parseCheckoutSession(event stripeEvent, payload []byte) (settlementdomain.Event, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, settlementdomain.ErrInvalidPayload
	}

	reference := strings.TrimSpace(session.PaymentIntent)
	if reference == "" {
		reference = strings.TrimSpace(session.ID)
	}
	if reference == "" {
		return nil, settlementdomain.ErrInvalidEvent
	}

	completed := &settlementdomain.PaymentCompleted{
		Envelope: settlementdomain.Envelope{
			Provider:        "stripe",
			ProviderEventID: event.ID,
			OccurredAt:      timestamp(session.Created, event.Created),
			RawPayload:      payload,
		},
		PaymentReference: reference,
		Amount:           session.AmountTotal,
		Currency:         strings.ToUpper(strings.TrimSpace(session.Currency)),
	}
	if err := applyMetadata(completed, session.Metadata); err != nil {
		return nil, err
	}
	return completed, nil
}

func (a *Adapter) parsePaymentIntent(event stripeEvent, payload []byte) (settlementdomain.Event, error) {
	var intent stripePaymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return nil, settlementdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(intent.ID) == "" {
		return nil, settlementdomain.ErrInvalidEvent
	}

	amount := intent.AmountReceived
	if amount <= 0 {
		amount = intent.Amount
	}

	completed := &settlementdomain.PaymentCompleted{
		Envelope: settlementdomain.Envelope{
			Provider:        "stripe",
			ProviderEventID: event.ID,
			OccurredAt:      timestamp(intent.Created, event.Created),
			RawPayload:      payload,
		},
		PaymentReference: strings.TrimSpace(intent.ID),
		Amount:           amount,
		Currency:         strings.ToUpper(strings.TrimSpace(intent.Currency)),
	}
	if err := applyMetadata(completed, intent.Metadata); err != nil {
		return nil, err
	}
	return completed, nil
}

func (a *Adapter) parseChargeRefunded(event stripeEvent, payload []byte) (settlementdomain.Event, error) {
	var charge stripeCharge
	if err := json.Unmarshal(event.Data.Object, &charge); err != nil {
		return nil, settlementdomain.ErrInvalidPayload
	}

	reference := strings.TrimSpace(charge.PaymentIntent)
	if reference == "" {
		reference = strings.TrimSpace(charge.ID)
	}
	if reference == "" {
		return nil, settlementdomain.ErrInvalidEvent
	}

	amount := charge.AmountRefunded
	if amount <= 0 {
		amount = charge.Amount
	}

	return &settlementdomain.PaymentRefunded{
		Envelope: settlementdomain.Envelope{
			Provider:        "stripe",
			ProviderEventID: event.ID,
			OccurredAt:      timestamp(charge.Created, event.Created),
			RawPayload:      payload,
		},
		PaymentReference: reference,
		Amount:           amount,
		Currency:         strings.ToUpper(strings.TrimSpace(charge.Currency)),
	}, nil
}

func (a *Adapter) parseAccountUpdated(event stripeEvent, payload []byte) (settlementdomain.Event, error) {
	var account stripeAccount
	if err := json.Unmarshal(event.Data.Object, &account); err != nil {
		return nil, settlementdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(account.ID) == "" {
		return nil, settlementdomain.ErrInvalidEvent
	}

	return &settlementdomain.AccountUpdated{
		Envelope: settlementdomain.Envelope{
			Provider:        "stripe",
			ProviderEventID: event.ID,
			OccurredAt:      timestamp(0, event.Created),
			RawPayload:      payload,
		},
		AccountRef:    strings.TrimSpace(account.ID),
		PayoutEnabled: account.PayoutsEnabled,
		KYCStatus:     kycStatus(account),
	}, nil
}

// kycStatus folds the provider account flags into the local statuses.
func kycStatus(account stripeAccount) string {
	if account.PayoutsEnabled && account.ChargesEnabled {
		return "verified"
	}
	if strings.Contains(strings.ToLower(account.Requirements.DisabledReason), "rejected") {
		return "rejected"
	}
	return "pending"
}

func applyMetadata(completed *settlementdomain.PaymentCompleted, metadata map[string]string) error {
	saleID, err := metadataID(metadata, "sale_id")
	if err != nil {
		return err
	}
	if saleID != nil {
		completed.SaleID = *saleID
		return nil
	}

	productID, err := metadataID(metadata, "product_id")
	if err != nil {
		return err
	}
	clientID, err := metadataID(metadata, "client_id")
	if err != nil {
		return err
	}
	if productID != nil {
		completed.ProductID = *productID
	}
	if clientID != nil {
		completed.ClientID = *clientID
	}

	completed.CommercialID, err = metadataID(metadata, "commercial_id")
	if err != nil {
		return err
	}
	completed.PartnerID, err = metadataID(metadata, "partner_id")
	if err != nil {
		return err
	}

	if discount, ok := metadata["discount"]; ok {
		parsed, err := parseAmount(discount)
		if err != nil {
			return settlementdomain.ErrInvalidPayload
		}
		completed.Discount = parsed
	}
	return nil
}

func metadataID(metadata map[string]string, key string) (*snowflake.ID, error) {
	value, ok := metadata[key]
	if !ok {
		return nil, nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id == 0 {
		return nil, settlementdomain.ErrInvalidPayload
	}
	return &id, nil
}

func parseAmount(value string) (int64, error) {
	amount, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, err
	}
	if amount < 0 {
		return 0, errors.New("negative_amount")
	}
	return amount, nil
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}
