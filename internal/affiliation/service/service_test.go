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
	"gorm.io/gorm"

	"github.com/bemynet/marketplace/internal/affiliation/domain"
	"github.com/bemynet/marketplace/internal/affiliation/repository"
	saledomain "github.com/bemynet/marketplace/internal/sale/domain"
)

func setupService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	dsn := fmt.Sprintf("file:affiliation%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.Entry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: repository.Provide()})
	return svc, db, node
}

func settledSale(node *snowflake.Node) *saledomain.Sale {
	commercialID := node.Generate()
	partnerID := node.Generate()
	return &saledomain.Sale{
		ID:                   node.Generate(),
		ProductID:            node.Generate(),
		FreelanceID:          node.Generate(),
		ClientID:             node.Generate(),
		CommercialID:         &commercialID,
		PartnerID:            &partnerID,
		Status:               saledomain.StatusPaid,
		Currency:             "EUR",
		GrossAmount:          10_000,
		CommercialCommission: 500,
		PartnerCommission:    200,
	}
}

func TestRecordForSale(t *testing.T) {
	svc, db, node := setupService(t)
	ctx := context.Background()

	sale := settledSale(node)
	entries, err := svc.RecordForSale(ctx, db, sale)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.SourceCommercial, entries[0].SourceType)
	assert.Equal(t, int64(500), entries[0].Amount)
	assert.Equal(t, domain.SourcePartner, entries[1].SourceType)
	assert.Equal(t, int64(200), entries[1].Amount)
}

func TestRecordForSaleReplayWritesNothing(t *testing.T) {
	svc, db, node := setupService(t)
	ctx := context.Background()

	sale := settledSale(node)
	_, err := svc.RecordForSale(ctx, db, sale)
	require.NoError(t, err)

	// Settlement replays call RecordForSale again with fresh entry ids;
	// the (sale, source type) constraint swallows the duplicates.
	entries, err := svc.RecordForSale(ctx, db, sale)
	require.NoError(t, err)
	assert.Empty(t, entries)

	listed, err := svc.ListForSale(ctx, sale.ID.String())
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestRecordForSaleWithoutReferrers(t *testing.T) {
	svc, db, node := setupService(t)

	sale := settledSale(node)
	sale.CommercialID = nil
	sale.PartnerID = nil
	entries, err := svc.RecordForSale(context.Background(), db, sale)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListForSource(t *testing.T) {
	svc, db, node := setupService(t)
	ctx := context.Background()

	first := settledSale(node)
	second := settledSale(node)
	second.CommercialID = first.CommercialID
	second.CommercialCommission = 300
	_, err := svc.RecordForSale(ctx, db, first)
	require.NoError(t, err)
	_, err = svc.RecordForSale(ctx, db, second)
	require.NoError(t, err)

	entries, err := svc.ListForSource(ctx, domain.ListRequest{
		SourceType: "Commercial",
		SourceID:   first.CommercialID.String(),
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, *first.CommercialID, entry.SourceID)
	}

	_, err = svc.ListForSource(ctx, domain.ListRequest{
		SourceType: "sponsor",
		SourceID:   first.CommercialID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSourceType)
}

func TestSummarize(t *testing.T) {
	svc, db, node := setupService(t)
	ctx := context.Background()

	first := settledSale(node)
	second := settledSale(node)
	second.PartnerID = first.PartnerID
	second.PartnerCommission = 150
	_, err := svc.RecordForSale(ctx, db, first)
	require.NoError(t, err)
	_, err = svc.RecordForSale(ctx, db, second)
	require.NoError(t, err)

	summary, err := svc.Summarize(ctx, domain.SummaryRequest{
		SourceType: "partner",
		SourceID:   first.PartnerID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.EntryCount)
	assert.Equal(t, int64(350), summary.TotalAmount)
	assert.Equal(t, "EUR", summary.Currency)
}
