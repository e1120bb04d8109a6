package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	affiliationdomain "github.com/bemynet/marketplace/internal/affiliation/domain"
	"github.com/bemynet/marketplace/internal/cloudmetrics"
	"github.com/bemynet/marketplace/internal/commission"
	"github.com/bemynet/marketplace/internal/config"
	identitydomain "github.com/bemynet/marketplace/internal/identity/domain"
	obsmetrics "github.com/bemynet/marketplace/internal/observability/metrics"
	"github.com/bemynet/marketplace/internal/ratelimit"
	referraldomain "github.com/bemynet/marketplace/internal/referral/domain"
	revenuedomain "github.com/bemynet/marketplace/internal/revenue/domain"
	saledomain "github.com/bemynet/marketplace/internal/sale/domain"
	settlementdomain "github.com/bemynet/marketplace/internal/settlement/domain"
	"github.com/bemynet/marketplace/pkg/db"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Tiers        *config.CommissionConfigHolder
	Repo         settlementdomain.Repository
	Sales        saledomain.Repository
	Identity     identitydomain.Repository
	Referral     referraldomain.Service
	Affiliations affiliationdomain.Service
	Revenue      revenuedomain.Service
	Lock         *ratelimit.Locker   `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

// Service is the settlement coordinator. It consumes typed provider
// events, guards them for idempotency, and settles each sale in one
// transaction.
type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	tiers        *config.CommissionConfigHolder
	repo         settlementdomain.Repository
	sales        saledomain.Repository
	identity     identitydomain.Repository
	referral     referraldomain.Service
	affiliations affiliationdomain.Service
	revenue      revenuedomain.Service
	lock         *ratelimit.Locker
	obsMetrics   *obsmetrics.Metrics
}

const settlementLockTTL = 30 * time.Second

// errLostSettleRace signals that a concurrent handler committed the same
// payment reference first; the losing transaction rolls back and the
// event resolves against the winner's sale.
var errLostSettleRace = errors.New("settlement_race_lost")

func NewService(p Params) *Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("settlement.service"),
		genID:        p.GenID,
		tiers:        p.Tiers,
		repo:         p.Repo,
		sales:        p.Sales,
		identity:     p.Identity,
		referral:     p.Referral,
		affiliations: p.Affiliations,
		revenue:      p.Revenue,
		lock:         p.Lock,
		obsMetrics:   p.ObsMetrics,
	}
}

func (s *Service) ProcessEvent(ctx context.Context, event settlementdomain.Event, payload []byte) error {
	if event == nil {
		return settlementdomain.ErrInvalidEvent
	}
	if !json.Valid(payload) {
		return settlementdomain.ErrInvalidPayload
	}

	meta := event.Meta()
	meta.Provider = strings.ToLower(strings.TrimSpace(meta.Provider))
	if meta.Provider == "" {
		return settlementdomain.ErrInvalidProvider
	}
	meta.ProviderEventID = strings.TrimSpace(meta.ProviderEventID)
	if meta.ProviderEventID == "" {
		return settlementdomain.ErrInvalidEvent
	}
	if meta.OccurredAt.IsZero() {
		meta.OccurredAt = time.Now().UTC()
	}

	reference, err := dedupeReference(event)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	received := settlementdomain.EventRecord{
		ID:               s.genID.Generate(),
		Provider:         meta.Provider,
		ProviderEventID:  meta.ProviderEventID,
		EventType:        event.Kind(),
		PaymentReference: reference,
		Payload:          datatypes.JSON(payload),
		ReceivedAt:       now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, meta.Provider, event.Kind(), reference)
		if err != nil {
			return err
		}
		if stored == nil {
			return settlementdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return settlementdomain.ErrEventAlreadyProcessed
		}
	}

	// Best effort advisory lock per payment, so concurrent deliveries of
	// the same payment usually serialize instead of racing to the unique
	// index. Correctness does not depend on it.
	if s.lock != nil {
		lockKey := "settlement:" + meta.Provider + ":" + reference
		token, acquired, lockErr := s.lock.TryLock(ctx, lockKey, settlementLockTTL)
		switch {
		case lockErr != nil:
			s.log.Warn("settlement lock unavailable", zap.String("key", lockKey), zap.Error(lockErr))
		case !acquired:
			s.log.Warn("settlement lock contended", zap.String("key", lockKey))
		default:
			defer func() {
				if releaseErr := s.lock.Release(ctx, lockKey, token); releaseErr != nil {
					s.log.Warn("settlement lock release failed", zap.String("key", lockKey), zap.Error(releaseErr))
				}
			}()
		}
	}

	var (
		settledSaleID   *snowflake.ID
		settledGross    int64
		settledCurrency string
		entries         []affiliationdomain.Entry
	)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		switch typed := event.(type) {
		case *settlementdomain.PaymentCompleted:
			sale, recorded, err := s.settlePayment(ctx, tx, typed)
			if err != nil {
				return err
			}
			settledSaleID = &sale.ID
			settledGross = sale.GrossAmount
			settledCurrency = sale.Currency
			entries = recorded
		case *settlementdomain.PaymentRefunded:
			sale, err := s.settleRefund(ctx, tx, typed)
			if err != nil {
				return err
			}
			settledSaleID = &sale.ID
		case *settlementdomain.AccountUpdated:
			return s.applyAccountUpdate(ctx, tx, typed)
		default:
			return settlementdomain.ErrInvalidEvent
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errLostSettleRace) {
			return s.adoptConcurrentSettlement(ctx, stored, reference, now)
		}
		return err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, settledSaleID, now); err != nil {
		return err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, meta.Provider, event.Kind(), "processed")
		if event.Kind() == settlementdomain.KindPaymentCompleted {
			s.obsMetrics.RecordSettlement(ctx, meta.Provider, settledGross)
		}
		for _, entry := range entries {
			s.obsMetrics.RecordAffiliationEntry(ctx, entry.SourceType)
		}
	}

	switch event.Kind() {
	case settlementdomain.KindPaymentCompleted:
		cloudmetrics.RecordSettlement(meta.Provider, settledCurrency, settledGross)
	case settlementdomain.KindPaymentRefunded:
		cloudmetrics.RecordRefund(meta.Provider)
	}

	return nil
}

// dedupeReference picks the idempotency key for the event. Settlement
// events key on the payment reference so the provider's distinct
// checkout and payment notifications for one payment collapse into a
// single settlement.
func dedupeReference(event settlementdomain.Event) (string, error) {
	switch typed := event.(type) {
	case *settlementdomain.PaymentCompleted:
		reference := strings.TrimSpace(typed.PaymentReference)
		if reference == "" {
			return "", settlementdomain.ErrInvalidEvent
		}
		return reference, nil
	case *settlementdomain.PaymentRefunded:
		reference := strings.TrimSpace(typed.PaymentReference)
		if reference == "" {
			return "", settlementdomain.ErrInvalidEvent
		}
		return reference, nil
	case *settlementdomain.AccountUpdated:
		accountRef := strings.TrimSpace(typed.AccountRef)
		if accountRef == "" {
			return "", settlementdomain.ErrInvalidEvent
		}
		// Account updates have no payment; each provider event stands
		// alone.
		return accountRef + ":" + typed.ProviderEventID, nil
	default:
		return "", settlementdomain.ErrInvalidEvent
	}
}

func (s *Service) settlePayment(ctx context.Context, tx *gorm.DB, event *settlementdomain.PaymentCompleted) (*saledomain.Sale, []affiliationdomain.Entry, error) {
	if event.Amount <= 0 {
		return nil, nil, settlementdomain.ErrInvalidAmount
	}

	sale, err := s.locateOrCreateSale(ctx, tx, event)
	if err != nil {
		return nil, nil, err
	}

	// Replayed settlement of an already-paid sale succeeds without
	// touching the ledger or the accumulators.
	if sale.Status == saledomain.StatusPaid && sale.PaymentReference == strings.TrimSpace(event.PaymentReference) {
		return sale, nil, nil
	}

	if event.Currency != "" && !strings.EqualFold(event.Currency, sale.Currency) {
		return nil, nil, settlementdomain.ErrInvalidCurrency
	}

	// The sale settles at its own figures either way; a differing charge
	// is an upstream pricing problem worth an operator's attention.
	if expected := sale.GrossAmount - sale.Discount; event.Amount != expected {
		s.log.Warn("provider amount differs from sale net",
			zap.String("sale_id", sale.ID.String()),
			zap.String("payment_reference", strings.TrimSpace(event.PaymentReference)),
			zap.Int64("event_amount", event.Amount),
			zap.Int64("sale_net", expected),
		)
	}

	rates, err := s.referral.Resolve(ctx, sale.CommercialID, sale.PartnerID)
	if err != nil {
		return nil, nil, err
	}

	breakdown, err := commission.Compute(
		s.tiers.Get(),
		sale.GrossAmount,
		sale.Discount,
		sale.Currency,
		rates.CommercialRate,
		rates.PartnerRate,
	)
	if err != nil {
		return nil, nil, err
	}

	if err := sale.MarkPaid(event.PaymentReference, breakdown, event.OccurredAt); err != nil {
		return nil, nil, err
	}

	if err := s.sales.Update(ctx, tx, sale); err != nil {
		// The guard row is written outside this transaction, so two
		// handlers for the same payment can both pass the dedupe check;
		// the loser trips the unique payment reference index here.
		if db.IsDuplicateKeyErr(err) {
			return nil, nil, errLostSettleRace
		}
		return nil, nil, err
	}

	entries, err := s.affiliations.RecordForSale(ctx, tx, sale)
	if err != nil {
		return nil, nil, err
	}

	if err := s.revenue.ApplySettlement(ctx, tx, sale); err != nil {
		return nil, nil, err
	}

	s.log.Info("sale settled",
		zap.String("sale_id", sale.ID.String()),
		zap.String("payment_reference", sale.PaymentReference),
		zap.Int64("gross_amount", sale.GrossAmount),
		zap.Int64("freelance_net", sale.FreelanceNet),
	)
	return sale, entries, nil
}

// adoptConcurrentSettlement resolves a lost uniqueness race. The rival
// transaction has committed, so the payment is already settled; the
// losing event marks itself processed against the winner's sale and
// reports success. Runs on a fresh session because the losing
// transaction is aborted.
func (s *Service) adoptConcurrentSettlement(ctx context.Context, stored *settlementdomain.EventRecord, reference string, processedAt time.Time) error {
	sale, err := s.sales.FindByPaymentReference(ctx, s.db, reference)
	if err != nil {
		return err
	}
	if sale == nil || (sale.Status != saledomain.StatusPaid && sale.Status != saledomain.StatusRefunded) {
		return saledomain.ErrPaymentReferenceConflict
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, &sale.ID, processedAt); err != nil {
		return err
	}

	s.log.Info("payment settled by concurrent handler",
		zap.String("sale_id", sale.ID.String()),
		zap.String("payment_reference", reference),
	)
	return nil
}

// locateOrCreateSale resolves the sale a payment settles. Pre-initiated
// sales are looked up by id or by a previously stamped reference;
// checkout flows that only carried product metadata get a sale created
// on the spot.
func (s *Service) locateOrCreateSale(ctx context.Context, tx *gorm.DB, event *settlementdomain.PaymentCompleted) (*saledomain.Sale, error) {
	if event.SaleID != 0 {
		sale, err := s.sales.FindByIDForUpdate(ctx, tx, event.SaleID)
		if err != nil {
			return nil, err
		}
		if sale == nil {
			return nil, settlementdomain.ErrUnknownSale
		}
		return sale, nil
	}

	reference := strings.TrimSpace(event.PaymentReference)
	existing, err := s.sales.FindByPaymentReference(ctx, tx, reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if event.ProductID == 0 || event.ClientID == 0 {
		return nil, settlementdomain.ErrUnknownSale
	}

	product, err := s.identity.FindProductByID(ctx, tx, event.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, settlementdomain.ErrUnknownSale
	}
	client, err := s.identity.FindClientByID(ctx, tx, event.ClientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, settlementdomain.ErrUnknownSale
	}

	discount := event.Discount
	if discount < 0 {
		discount = 0
	}

	now := time.Now().UTC()
	sale := saledomain.Sale{
		ID:           s.genID.Generate(),
		ProductID:    product.ID,
		FreelanceID:  product.FreelanceID,
		ClientID:     client.ID,
		CommercialID: event.CommercialID,
		PartnerID:    event.PartnerID,
		Status:       saledomain.StatusPending,
		Currency:     product.Currency,
		GrossAmount:  product.PriceAmount,
		Discount:     discount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.sales.Insert(ctx, tx, &sale); err != nil {
		return nil, err
	}

	s.log.Info("sale created from checkout metadata",
		zap.String("sale_id", sale.ID.String()),
		zap.String("product_id", product.ID.String()),
	)
	return &sale, nil
}

func (s *Service) settleRefund(ctx context.Context, tx *gorm.DB, event *settlementdomain.PaymentRefunded) (*saledomain.Sale, error) {
	sale, err := s.sales.FindByPaymentReference(ctx, tx, strings.TrimSpace(event.PaymentReference))
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, settlementdomain.ErrUnknownSale
	}

	if err := sale.MarkRefunded(event.OccurredAt); err != nil {
		return nil, err
	}
	if err := s.sales.Update(ctx, tx, sale); err != nil {
		return nil, err
	}

	s.log.Info("sale refunded",
		zap.String("sale_id", sale.ID.String()),
		zap.String("payment_reference", sale.PaymentReference),
	)
	return sale, nil
}

func (s *Service) applyAccountUpdate(ctx context.Context, tx *gorm.DB, event *settlementdomain.AccountUpdated) error {
	user, err := s.identity.FindUserByAccountRef(ctx, tx, strings.TrimSpace(event.AccountRef))
	if err != nil {
		return err
	}
	if user == nil {
		return settlementdomain.ErrUnknownAccount
	}

	kycStatus := strings.ToLower(strings.TrimSpace(event.KYCStatus))
	switch kycStatus {
	case identitydomain.KYCStatusVerified, identitydomain.KYCStatusRejected:
	default:
		kycStatus = identitydomain.KYCStatusPending
	}

	if err := s.identity.UpdateUserPayout(ctx, tx, user.ID, event.PayoutEnabled, kycStatus); err != nil {
		return err
	}

	s.log.Info("freelancer account updated",
		zap.String("user_id", user.ID.String()),
		zap.Bool("payout_enabled", event.PayoutEnabled),
		zap.String("kyc_status", kycStatus),
	)
	return nil
}
