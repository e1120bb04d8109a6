package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	affiliationdomain "github.com/bemynet/marketplace/internal/affiliation/domain"
	affiliationrepository "github.com/bemynet/marketplace/internal/affiliation/repository"
	affiliationservice "github.com/bemynet/marketplace/internal/affiliation/service"
	"github.com/bemynet/marketplace/internal/config"
	identitydomain "github.com/bemynet/marketplace/internal/identity/domain"
	identityrepository "github.com/bemynet/marketplace/internal/identity/repository"
	referraldomain "github.com/bemynet/marketplace/internal/referral/domain"
	referralrepository "github.com/bemynet/marketplace/internal/referral/repository"
	referralservice "github.com/bemynet/marketplace/internal/referral/service"
	revenueservice "github.com/bemynet/marketplace/internal/revenue/service"
	saledomain "github.com/bemynet/marketplace/internal/sale/domain"
	salerepository "github.com/bemynet/marketplace/internal/sale/repository"
	"github.com/bemynet/marketplace/internal/settlement/adapters"
	"github.com/bemynet/marketplace/internal/settlement/adapters/stripe"
	settlementdomain "github.com/bemynet/marketplace/internal/settlement/domain"
	settlementrepository "github.com/bemynet/marketplace/internal/settlement/repository"
	settlementservice "github.com/bemynet/marketplace/internal/settlement/service"
)

const testSecret = "whsec_test"

func setupIngest(t *testing.T) (settlementdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	svc, db, node, _ := setupIngestObserved(t)
	return svc, db, node
}

func setupIngestObserved(t *testing.T) (settlementdomain.Service, *gorm.DB, *snowflake.Node, *observer.ObservedLogs) {
	t.Helper()
	dsn := fmt.Sprintf("file:webhook%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&identitydomain.User{},
		&identitydomain.Client{},
		&identitydomain.Product{},
		&referraldomain.Commercial{},
		&referraldomain.Partner{},
		&saledomain.Sale{},
		&affiliationdomain.Entry{},
		&settlementdomain.EventRecord{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	tiers, err := config.NewCommissionConfigHolder()
	require.NoError(t, err)

	identityRepo := identityrepository.Provide()
	coord := settlementservice.NewService(settlementservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Tiers:    tiers,
		Repo:     settlementrepository.Provide(),
		Sales:    salerepository.Provide(),
		Identity: identityRepo,
		Referral: referralservice.New(referralservice.Params{
			DB: db, Log: log, GenID: node, Repo: referralrepository.Provide(),
		}),
		Affiliations: affiliationservice.New(affiliationservice.Params{
			DB: db, Log: log, GenID: node, Repo: affiliationrepository.Provide(),
		}),
		Revenue: revenueservice.New(revenueservice.Params{
			Log: log, Identity: identityRepo,
		}),
	})

	svc := NewService(Params{
		Log:      log,
		Cfg:      config.Config{PaymentWebhookSecret: testSecret},
		Coord:    coord,
		Adapters: adapters.NewRegistry(stripe.NewFactory()),
	})
	return svc, db, node, logs
}

func signedHeaders(payload []byte) http.Header {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(ts + "." + string(payload)))

	headers := http.Header{}
	headers.Set(stripe.SignatureHeader, fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return headers
}

func TestIngestWebhookSettlesSale(t *testing.T) {
	svc, db, node := setupIngest(t)
	ctx := context.Background()

	user := identitydomain.User{
		ID: node.Generate(), Name: "Ana", Email: "ana@example.com", Currency: "EUR",
		KYCStatus: identitydomain.KYCStatusPending,
	}
	client := identitydomain.Client{ID: node.Generate(), Name: "Boris", Email: "boris@example.com"}
	product := identitydomain.Product{
		ID: node.Generate(), FreelanceID: user.ID, Title: "Logo design", Slug: "logo-design",
		PriceAmount: 10_000, Currency: "EUR", Active: true,
	}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&client).Error)
	require.NoError(t, db.Create(&product).Error)

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"created": %d,
		"data": {"object": {
			"id": "cs_1",
			"payment_intent": "pi_1",
			"amount_total": 10000,
			"currency": "eur",
			"metadata": {"product_id": "%s", "client_id": "%s"}
		}}
	}`, time.Now().Unix(), product.ID, client.ID))

	require.NoError(t, svc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload)))

	var sale saledomain.Sale
	require.NoError(t, db.Where("payment_reference = ?", "pi_1").First(&sale).Error)
	assert.Equal(t, saledomain.StatusPaid, sale.Status)
	assert.Equal(t, int64(8_500), sale.FreelanceNet)

	// Replay of the raw webhook reports the duplicate to the caller.
	err := svc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload))
	assert.ErrorIs(t, err, settlementdomain.ErrEventAlreadyProcessed)
}

func TestIngestWebhookReplayLeavesMarker(t *testing.T) {
	svc, db, node, logs := setupIngestObserved(t)
	ctx := context.Background()

	user := identitydomain.User{
		ID: node.Generate(), Name: "Ana", Email: "ana@example.com", Currency: "EUR",
		KYCStatus: identitydomain.KYCStatusPending,
	}
	client := identitydomain.Client{ID: node.Generate(), Name: "Boris", Email: "boris@example.com"}
	product := identitydomain.Product{
		ID: node.Generate(), FreelanceID: user.ID, Title: "Logo design", Slug: "logo-design",
		PriceAmount: 10_000, Currency: "EUR", Active: true,
	}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&client).Error)
	require.NoError(t, db.Create(&product).Error)

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "payment_intent.succeeded",
		"created": %d,
		"data": {"object": {
			"id": "pi_1",
			"amount_received": 10000,
			"currency": "eur",
			"metadata": {"product_id": "%s", "client_id": "%s"}
		}}
	}`, time.Now().Unix(), product.ID, client.ID))

	require.NoError(t, svc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload)))
	err := svc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload))
	assert.ErrorIs(t, err, settlementdomain.ErrEventAlreadyProcessed)

	entries := logs.FilterMessage("webhook replay, no new work performed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "stripe", entries[0].ContextMap()["provider"])
	assert.Equal(t, "payment_completed", entries[0].ContextMap()["event_type"])
}

func TestIngestWebhookRejectsBadSignature(t *testing.T) {
	svc, _, _ := setupIngest(t)

	payload := []byte(`{"id": "evt_1", "type": "checkout.session.completed", "data": {"object": {}}}`)
	headers := http.Header{}
	headers.Set(stripe.SignatureHeader, "t=1,v1=deadbeef")

	err := svc.IngestWebhook(context.Background(), "stripe", payload, headers)
	assert.ErrorIs(t, err, settlementdomain.ErrInvalidSignature)
}

func TestIngestWebhookUnknownProvider(t *testing.T) {
	svc, _, _ := setupIngest(t)

	payload := []byte(`{}`)
	err := svc.IngestWebhook(context.Background(), "paypal", payload, signedHeaders(payload))
	assert.ErrorIs(t, err, settlementdomain.ErrProviderNotFound)
}

func TestIngestWebhookIgnoresUnhandledTypes(t *testing.T) {
	svc, db, _ := setupIngest(t)

	payload := []byte(`{"id": "evt_1", "type": "invoice.created", "data": {"object": {}}}`)
	require.NoError(t, svc.IngestWebhook(context.Background(), "stripe", payload, signedHeaders(payload)))

	// Ignored events are acknowledged without touching the event log.
	var count int64
	require.NoError(t, db.Model(&settlementdomain.EventRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestIngestWebhookInvalidJSON(t *testing.T) {
	svc, _, _ := setupIngest(t)

	err := svc.IngestWebhook(context.Background(), "stripe", []byte("not json"), http.Header{})
	assert.ErrorIs(t, err, settlementdomain.ErrInvalidPayload)
}
