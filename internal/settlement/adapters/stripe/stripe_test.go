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
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"

	settlementdomain "github.com/bemynet/marketplace/internal/settlement/domain"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","type":"payment_intent.succeeded","data":{"object":{}}}`)
	timestamp := time.Now().Unix()

	header := buildSignatureHeader(secret, payload, timestamp)
	reqHeader := http.Header{}
	reqHeader.Set(SignatureHeader, header)

	adapter := &Adapter{webhookSecret: secret}
	if err := adapter.Verify(context.Background(), payload, reqHeader); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	reqHeader.Set(SignatureHeader, buildSignatureHeader("wrong", payload, timestamp))
	if err := adapter.Verify(context.Background(), payload, reqHeader); err == nil {
		t.Fatalf("expected invalid signature error")
	}

	reqHeader.Del(SignatureHeader)
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, settlementdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for missing header, got %v", err)
	}
}

func TestParsePaymentCompleted(t *testing.T) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	productID := node.Generate().String()
	clientID := node.Generate().String()
	created := time.Now().UTC().Unix()

	tests := []struct {
		name      string
		event     any
		reference string
		amount    int64
	}{{
		name: "checkout.session.completed",
		event: map[string]any{
			"id":      "evt_cs",
			"type":    "checkout.session.completed",
			"created": created,
			"data": map[string]any{
				"object": map[string]any{
					"id":             "cs_1",
					"payment_intent": "pi_1",
					"amount_total":   12000,
					"currency":       "eur",
					"created":        created,
					"metadata": map[string]any{
						"product_id": productID,
						"client_id":  clientID,
						"discount":   "500",
					},
				},
			},
		},
		reference: "pi_1",
		amount:    12000,
	}, {
		name: "payment_intent.succeeded",
		event: map[string]any{
			"id":      "evt_pi",
			"type":    "payment_intent.succeeded",
			"created": created,
			"data": map[string]any{
				"object": map[string]any{
					"id":              "pi_1",
					"amount":          12000,
					"amount_received": 12000,
					"currency":        "eur",
					"created":         created,
					"metadata": map[string]any{
						"product_id": productID,
						"client_id":  clientID,
					},
				},
			},
		},
		reference: "pi_1",
		amount:    12000,
	}}

	adapter := &Adapter{webhookSecret: "whsec_test"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("marshal payload: %v", err)
			}
			event, err := adapter.Parse(context.Background(), payload)
			if err != nil {
				t.Fatalf("parse event: %v", err)
			}
			completed, ok := event.(*settlementdomain.PaymentCompleted)
			if !ok {
				t.Fatalf("expected PaymentCompleted, got %T", event)
			}
			// Both notification shapes collapse onto the payment intent
			// reference so they settle the same sale exactly once.
			if completed.PaymentReference != tt.reference {
				t.Fatalf("expected reference %s, got %s", tt.reference, completed.PaymentReference)
			}
			if completed.Amount != tt.amount {
				t.Fatalf("expected amount %d, got %d", tt.amount, completed.Amount)
			}
			if completed.Currency != "EUR" {
				t.Fatalf("expected currency EUR, got %s", completed.Currency)
			}
			if completed.ProductID == 0 || completed.ClientID == 0 {
				t.Fatalf("expected product and client metadata")
			}
			if completed.Kind() != settlementdomain.KindPaymentCompleted {
				t.Fatalf("expected kind %s, got %s", settlementdomain.KindPaymentCompleted, completed.Kind())
			}
		})
	}
}

func TestParseChargeRefunded(t *testing.T) {
	created := time.Now().UTC().Unix()
	payload, _ := json.Marshal(map[string]any{
		"id":      "evt_ch",
		"type":    "charge.refunded",
		"created": created,
		"data": map[string]any{
			"object": map[string]any{
				"id":              "ch_1",
				"payment_intent":  "pi_1",
				"amount":          12000,
				"amount_refunded": 12000,
				"currency":        "eur",
				"created":         created,
			},
		},
	})

	adapter := &Adapter{webhookSecret: "whsec_test"}
	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	refunded, ok := event.(*settlementdomain.PaymentRefunded)
	if !ok {
		t.Fatalf("expected PaymentRefunded, got %T", event)
	}
	if refunded.PaymentReference != "pi_1" {
		t.Fatalf("expected reference pi_1, got %s", refunded.PaymentReference)
	}
	if refunded.Amount != 12000 {
		t.Fatalf("expected amount 12000, got %d", refunded.Amount)
	}
}

func TestParseAccountUpdated(t *testing.T) {
	tests := []struct {
		name           string
		payoutsEnabled bool
		chargesEnabled bool
		disabledReason string
		wantStatus     string
	}{
		{"fully enabled", true, true, "", "verified"},
		{"rejected", false, false, "rejected.fraud", "rejected"},
		{"in review", false, false, "requirements.pending_verification", "pending"},
	}

	adapter := &Adapter{webhookSecret: "whsec_test"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, _ := json.Marshal(map[string]any{
				"id":   "evt_acct",
				"type": "account.updated",
				"data": map[string]any{
					"object": map[string]any{
						"id":              "acct_1",
						"payouts_enabled": tt.payoutsEnabled,
						"charges_enabled": tt.chargesEnabled,
						"requirements": map[string]any{
							"disabled_reason": tt.disabledReason,
						},
					},
				},
			})

			event, err := adapter.Parse(context.Background(), payload)
			if err != nil {
				t.Fatalf("parse event: %v", err)
			}
			updated, ok := event.(*settlementdomain.AccountUpdated)
			if !ok {
				t.Fatalf("expected AccountUpdated, got %T", event)
			}
			if updated.AccountRef != "acct_1" {
				t.Fatalf("expected account ref acct_1, got %s", updated.AccountRef)
			}
			if updated.PayoutEnabled != tt.payoutsEnabled {
				t.Fatalf("expected payout enabled %v", tt.payoutsEnabled)
			}
			if updated.KYCStatus != tt.wantStatus {
				t.Fatalf("expected kyc status %s, got %s", tt.wantStatus, updated.KYCStatus)
			}
		})
	}
}

func TestParseIgnoresUnknownTypes(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.finalized","data":{"object":{}}}`)
	adapter := &Adapter{webhookSecret: "whsec_test"}
	if _, err := adapter.Parse(context.Background(), payload); !errors.Is(err, settlementdomain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}
}

func TestParseRejectsBadMetadataID(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","amount":100,"currency":"eur","metadata":{"product_id":"not-a-snowflake"}}}}`)
	adapter := &Adapter{webhookSecret: "whsec_test"}
	if _, err := adapter.Parse(context.Background(), payload); !errors.Is(err, settlementdomain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func buildSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
}
