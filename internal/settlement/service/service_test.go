package service

import (
	"context"
	"fmt"
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
	"github.com/bemynet/marketplace/internal/settlement/domain"
	"github.com/bemynet/marketplace/internal/settlement/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:settlement%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		&domain.EventRecord{},
	))
	return db
}

func newCoordinator(t *testing.T, db *gorm.DB) (*Service, *snowflake.Node) {
	t.Helper()
	return newCoordinatorWithLogger(t, db, zap.NewNop())
}

func newCoordinatorWithLogger(t *testing.T, db *gorm.DB, log *zap.Logger) (*Service, *snowflake.Node) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	tiers, err := config.NewCommissionConfigHolder()
	require.NoError(t, err)

	identityRepo := identityrepository.Provide()
	referralSvc := referralservice.New(referralservice.Params{
		DB: db, Log: log, GenID: node, Repo: referralrepository.Provide(),
	})
	affiliationSvc := affiliationservice.New(affiliationservice.Params{
		DB: db, Log: log, GenID: node, Repo: affiliationrepository.Provide(),
	})
	revenueSvc := revenueservice.New(revenueservice.Params{
		Log: log, Identity: identityRepo,
	})

	coord := NewService(Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Tiers:        tiers,
		Repo:         repository.Provide(),
		Sales:        salerepository.Provide(),
		Identity:     identityRepo,
		Referral:     referralSvc,
		Affiliations: affiliationSvc,
		Revenue:      revenueSvc,
	})
	return coord, node
}

type fixture struct {
	user    identitydomain.User
	client  identitydomain.Client
	product identitydomain.Product
}

func seedFixture(t *testing.T, db *gorm.DB, node *snowflake.Node) fixture {
	t.Helper()
	f := fixture{
		user: identitydomain.User{
			ID:         node.Generate(),
			Name:       "Ana Freelance",
			Email:      "ana@example.com",
			AccountRef: "acct_ana",
			KYCStatus:  identitydomain.KYCStatusPending,
			Currency:   "EUR",
		},
		client: identitydomain.Client{
			ID:    node.Generate(),
			Name:  "Boris Client",
			Email: "boris@example.com",
		},
	}
	f.product = identitydomain.Product{
		ID:          node.Generate(),
		FreelanceID: f.user.ID,
		Title:       "Logo design",
		Slug:        "logo-design",
		PriceAmount: 10_000,
		Currency:    "EUR",
		Active:      true,
	}
	require.NoError(t, db.Create(&f.user).Error)
	require.NoError(t, db.Create(&f.client).Error)
	require.NoError(t, db.Create(&f.product).Error)
	return f
}

func completedEvent(eventID, reference string, amount int64) *domain.PaymentCompleted {
	return &domain.PaymentCompleted{
		Envelope: domain.Envelope{
			Provider:        "stripe",
			ProviderEventID: eventID,
			OccurredAt:      time.Now().UTC(),
		},
		PaymentReference: reference,
		Amount:           amount,
		Currency:         "EUR",
	}
}

func TestProcessPaymentCompletedCreatesSaleFromMetadata(t *testing.T) {
	db := setupTestDB(t)
	coord, node := newCoordinator(t, db)
	f := seedFixture(t, db, node)
	ctx := context.Background()

	event := completedEvent("evt_1", "pi_1", 10_000)
	event.ProductID = f.product.ID
	event.ClientID = f.client.ID

	require.NoError(t, coord.ProcessEvent(ctx, event, []byte(`{}`)))

	var sale saledomain.Sale
	require.NoError(t, db.Where("payment_reference = ?", "pi_1").First(&sale).Error)
	assert.Equal(t, saledomain.StatusPaid, sale.Status)
	assert.Equal(t, f.product.ID, sale.ProductID)
	assert.Equal(t, f.user.ID, sale.FreelanceID)
	assert.Equal(t, int64(10_000), sale.GrossAmount)

	// No referrers attached, so the base platform tier applies.
	assert.Equal(t, int64(1_500), sale.PlatformFee)
	assert.Equal(t, int64(8_500), sale.FreelanceNet)

	var user identitydomain.User
	require.NoError(t, db.First(&user, f.user.ID).Error)
	assert.Equal(t, int64(8_500), user.TotalRevenue)

	var client identitydomain.Client
	require.NoError(t, db.First(&client, f.client.ID).Error)
	assert.Equal(t, int64(10_000), client.LifetimeValue)
	require.NotNil(t, client.LastPurchaseAt)

	var record domain.EventRecord
	require.NoError(t, db.Where("provider = ? AND payment_reference = ?", "stripe", "pi_1").First(&record).Error)
	require.NotNil(t, record.ProcessedAt)
	require.NotNil(t, record.SaleID)
	assert.Equal(t, sale.ID, *record.SaleID)
}

func TestProcessEventReplayIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	coord, node := newCoordinator(t, db)
	f := seedFixture(t, db, node)
	ctx := context.Background()

	event := completedEvent("evt_1", "pi_1", 10_000)
	event.ProductID = f.product.ID
	event.ClientID = f.client.ID
	require.NoError(t, coord.ProcessEvent(ctx, event, []byte(`{}`)))

	// Same event again.
	replay := completedEvent("evt_1", "pi_1", 10_000)
	replay.ProductID = f.product.ID
	replay.ClientID = f.client.ID
	assert.ErrorIs(t, coord.ProcessEvent(ctx, replay, []byte(`{}`)), domain.ErrEventAlreadyProcessed)

	// The provider's second notification for the same payment carries a
	// different event id but the same reference; it must not settle twice.
	second := completedEvent("evt_2", "pi_1", 10_000)
	second.ProductID = f.product.ID
	second.ClientID = f.client.ID
	assert.ErrorIs(t, coord.ProcessEvent(ctx, second, []byte(`{}`)), domain.ErrEventAlreadyProcessed)

	var saleCount int64
	require.NoError(t, db.Model(&saledomain.Sale{}).Count(&saleCount).Error)
	assert.Equal(t, int64(1), saleCount)

	var user identitydomain.User
	require.NoError(t, db.First(&user, f.user.ID).Error)
	assert.Equal(t, int64(8_500), user.TotalRevenue)
}

func TestSettleSaleWithReferrers(t *testing.T) {
	db := setupTestDB(t)
	coord, node := newCoordinator(t, db)
	f := seedFixture(t, db, node)
	ctx := context.Background()

	commercial := referraldomain.Commercial{
		ID: node.Generate(), Name: "Carla", Email: "carla@example.com",
		Rate: 500, Status: referraldomain.StatusActive,
	}
	partner := referraldomain.Partner{
		ID: node.Generate(), Name: "Denis", Email: "denis@example.com",
		Code: "denis-1", Rate: 200, Status: referraldomain.StatusActive,
	}
	require.NoError(t, db.Create(&commercial).Error)
	require.NoError(t, db.Create(&partner).Error)

	now := time.Now().UTC()
	sale := saledomain.Sale{
		ID:           node.Generate(),
		ProductID:    f.product.ID,
		FreelanceID:  f.user.ID,
		ClientID:     f.client.ID,
		CommercialID: &commercial.ID,
		PartnerID:    &partner.ID,
		Status:       saledomain.StatusPending,
		Currency:     "EUR",
		GrossAmount:  10_000,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, db.Create(&sale).Error)

	event := completedEvent("evt_1", "pi_1", 10_000)
	event.SaleID = sale.ID
	require.NoError(t, coord.ProcessEvent(ctx, event, []byte(`{}`)))

	var settled saledomain.Sale
	require.NoError(t, db.First(&settled, sale.ID).Error)
	assert.Equal(t, saledomain.StatusPaid, settled.Status)

	// Both referrers present selects the lowest platform tier.
	assert.Equal(t, int64(800), int64(settled.PlatformRate))
	assert.Equal(t, int64(800), settled.PlatformFee)
	assert.Equal(t, int64(500), settled.CommercialCommission)
	assert.Equal(t, int64(200), settled.PartnerCommission)
	assert.Equal(t, int64(8_500), settled.FreelanceNet)

	var entries []affiliationdomain.Entry
	require.NoError(t, db.Where("sale_id = ?", sale.ID).Order("source_type").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, affiliationdomain.SourceCommercial, entries[0].SourceType)
	assert.Equal(t, commercial.ID, entries[0].SourceID)
	assert.Equal(t, int64(500), entries[0].Amount)
	assert.Equal(t, affiliationdomain.SourcePartner, entries[1].SourceType)
	assert.Equal(t, partner.ID, entries[1].SourceID)
	assert.Equal(t, int64(200), entries[1].Amount)
}

func TestRefundKeepsAccumulators(t *testing.T) {
	db := setupTestDB(t)
	coord, node := newCoordinator(t, db)
	f := seedFixture(t, db, node)
	ctx := context.Background()

	event := completedEvent("evt_1", "pi_1", 10_000)
	event.ProductID = f.product.ID
	event.ClientID = f.client.ID
	require.NoError(t, coord.ProcessEvent(ctx, event, []byte(`{}`)))

	refund := &domain.PaymentRefunded{
		Envelope: domain.Envelope{
			Provider:        "stripe",
			ProviderEventID: "evt_2",
			OccurredAt:      time.Now().UTC(),
		},
		PaymentReference: "pi_1",
		Amount:           10_000,
		Currency:         "EUR",
	}
	require.NoError(t, coord.ProcessEvent(ctx, refund, []byte(`{}`)))

	var sale saledomain.Sale
	require.NoError(t, db.Where("payment_reference = ?", "pi_1").First(&sale).Error)
	assert.Equal(t, saledomain.StatusRefunded, sale.Status)
	require.NotNil(t, sale.RefundedAt)

	// The split stays on the sale as the audit record.
	assert.Equal(t, int64(1_500), sale.PlatformFee)
	assert.Equal(t, int64(8_500), sale.FreelanceNet)

	// Volume accumulators track what was transacted, not what is owed;
	// the refund does not roll them back.
	var user identitydomain.User
	require.NoError(t, db.First(&user, f.user.ID).Error)
	assert.Equal(t, int64(8_500), user.TotalRevenue)

	var client identitydomain.Client
	require.NoError(t, db.First(&client, f.client.ID).Error)
	assert.Equal(t, int64(10_000), client.LifetimeValue)
}

func TestRefundUnknownReference(t *testing.T) {
	db := setupTestDB(t)
	coord, _ := newCoordinator(t, db)

	refund := &domain.PaymentRefunded{
		Envelope: domain.Envelope{
			Provider:        "stripe",
			ProviderEventID: "evt_1",
			OccurredAt:      time.Now().UTC(),
		},
		PaymentReference: "pi_missing",
		Amount:           10_000,
		Currency:         "EUR",
	}
	assert.ErrorIs(t, coord.ProcessEvent(context.Background(), refund, []byte(`{}`)), domain.ErrUnknownSale)
}

func TestAccountUpdated(t *testing.T) {
	db := setupTestDB(t)
	coord, node := newCoordinator(t, db)
	f := seedFixture(t, db, node)
	ctx := context.Background()

	update := &domain.AccountUpdated{
		Envelope: domain.Envelope{
			Provider:        "stripe",
			ProviderEventID: "evt_1",
			OccurredAt:      time.Now().UTC(),
		},
		AccountRef:    "acct_ana",
		PayoutEnabled: true,
		KYCStatus:     "verified",
	}
	require.NoError(t, coord.ProcessEvent(ctx, update, []byte(`{}`)))

	var user identitydomain.User
	require.NoError(t, db.First(&user, f.user.ID).Error)
	assert.True(t, user.PayoutEnabled)
	assert.Equal(t, identitydomain.KYCStatusVerified, user.KYCStatus)

	unknown := &domain.AccountUpdated{
		Envelope: domain.Envelope{
			Provider:        "stripe",
			ProviderEventID: "evt_2",
			OccurredAt:      time.Now().UTC(),
		},
		AccountRef:    "acct_missing",
		PayoutEnabled: true,
		KYCStatus:     "verified",
	}
	assert.ErrorIs(t, coord.ProcessEvent(ctx, unknown, []byte(`{}`)), domain.ErrUnknownAccount)
}

func TestCurrencyMismatchRejected(t *testing.T) {
	db := setupTestDB(t)
	coord, node := newCoordinator(t, db)
	f := seedFixture(t, db, node)

	event := completedEvent("evt_1", "pi_1", 10_000)
	event.Currency = "USD"
	event.ProductID = f.product.ID
	event.ClientID = f.client.ID

	assert.ErrorIs(t, coord.ProcessEvent(context.Background(), event, []byte(`{}`)), domain.ErrInvalidCurrency)
}

func TestNonPositiveAmountRejected(t *testing.T) {
	db := setupTestDB(t)
	coord, node := newCoordinator(t, db)
	f := seedFixture(t, db, node)

	event := completedEvent("evt_1", "pi_1", 0)
	event.ProductID = f.product.ID
	event.ClientID = f.client.ID

	assert.ErrorIs(t, coord.ProcessEvent(context.Background(), event, []byte(`{}`)), domain.ErrInvalidAmount)
}

func TestLostUniquenessRaceResolvesToWinner(t *testing.T) {
	db := setupTestDB(t)
	coord, node := newCoordinator(t, db)
	f := seedFixture(t, db, node)
	ctx := context.Background()

	// The winner's sale has already committed with the payment reference
	// but its handler has not yet marked the shared guard row, which is
	// exactly what the loser of a concurrent delivery observes.
	now := time.Now().UTC()
	winner := saledomain.Sale{
		ID:               node.Generate(),
		ProductID:        f.product.ID,
		FreelanceID:      f.user.ID,
		ClientID:         f.client.ID,
		Status:           saledomain.StatusPaid,
		Currency:         "EUR",
		GrossAmount:      10_000,
		PaymentReference: "pi_1",
		PlatformFee:      1_500,
		FreelanceNet:     8_500,
		PaidAt:           &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, db.Create(&winner).Error)

	loser := saledomain.Sale{
		ID:          node.Generate(),
		ProductID:   f.product.ID,
		FreelanceID: f.user.ID,
		ClientID:    f.client.ID,
		Status:      saledomain.StatusPending,
		Currency:    "EUR",
		GrossAmount: 10_000,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, db.Create(&loser).Error)

	event := completedEvent("evt_9", "pi_1", 10_000)
	event.SaleID = loser.ID
	require.NoError(t, coord.ProcessEvent(ctx, event, []byte(`{}`)))

	// The loser's transaction rolled back; the payment stays settled on
	// the winner's sale and the event is processed against it.
	var reloaded saledomain.Sale
	require.NoError(t, db.First(&reloaded, loser.ID).Error)
	assert.Equal(t, saledomain.StatusPending, reloaded.Status)
	assert.Empty(t, reloaded.PaymentReference)

	var record domain.EventRecord
	require.NoError(t, db.Where("provider = ? AND payment_reference = ?", "stripe", "pi_1").First(&record).Error)
	require.NotNil(t, record.ProcessedAt)
	require.NotNil(t, record.SaleID)
	assert.Equal(t, winner.ID, *record.SaleID)

	// No double settlement of the accumulators.
	var user identitydomain.User
	require.NoError(t, db.First(&user, f.user.ID).Error)
	assert.Zero(t, user.TotalRevenue)
}

func TestGenuineReferenceConflictStillFails(t *testing.T) {
	db := setupTestDB(t)
	coord, node := newCoordinator(t, db)
	f := seedFixture(t, db, node)
	ctx := context.Background()

	event := completedEvent("evt_1", "pi_1", 10_000)
	event.ProductID = f.product.ID
	event.ClientID = f.client.ID
	require.NoError(t, coord.ProcessEvent(ctx, event, []byte(`{}`)))

	var sale saledomain.Sale
	require.NoError(t, db.Where("payment_reference = ?", "pi_1").First(&sale).Error)

	// A different reference aimed at an already-settled sale is not a
	// race, it is a contradiction.
	second := completedEvent("evt_2", "pi_2", 10_000)
	second.SaleID = sale.ID
	assert.ErrorIs(t, coord.ProcessEvent(ctx, second, []byte(`{}`)), saledomain.ErrPaymentReferenceConflict)
}

func TestAmountMismatchSettlesWithWarning(t *testing.T) {
	db := setupTestDB(t)
	core, logs := observer.New(zap.WarnLevel)
	coord, node := newCoordinatorWithLogger(t, db, zap.New(core))
	f := seedFixture(t, db, node)
	ctx := context.Background()

	event := completedEvent("evt_1", "pi_1", 9_999)
	event.ProductID = f.product.ID
	event.ClientID = f.client.ID
	require.NoError(t, coord.ProcessEvent(ctx, event, []byte(`{}`)))

	// The sale settles at its own figures, not the provider's.
	var sale saledomain.Sale
	require.NoError(t, db.Where("payment_reference = ?", "pi_1").First(&sale).Error)
	assert.Equal(t, int64(10_000), sale.GrossAmount)
	assert.Equal(t, int64(8_500), sale.FreelanceNet)

	entries := logs.FilterMessage("provider amount differs from sale net").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(9_999), entries[0].ContextMap()["event_amount"])
	assert.Equal(t, int64(10_000), entries[0].ContextMap()["sale_net"])
}

func TestUnknownSaleMetadata(t *testing.T) {
	db := setupTestDB(t)
	coord, node := newCoordinator(t, db)

	// Reference unknown and no product metadata at all.
	event := completedEvent("evt_1", "pi_1", 10_000)
	assert.ErrorIs(t, coord.ProcessEvent(context.Background(), event, []byte(`{}`)), domain.ErrUnknownSale)

	// Product metadata pointing at a missing row.
	event = completedEvent("evt_2", "pi_2", 10_000)
	event.ProductID = node.Generate()
	event.ClientID = node.Generate()
	assert.ErrorIs(t, coord.ProcessEvent(context.Background(), event, []byte(`{}`)), domain.ErrUnknownSale)
}
