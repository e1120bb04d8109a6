package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/bemynet/marketplace/internal/affiliation"
	"github.com/bemynet/marketplace/internal/cloudmetrics"
	"github.com/bemynet/marketplace/internal/config"
	"github.com/bemynet/marketplace/internal/identity"
	"github.com/bemynet/marketplace/internal/logger"
	"github.com/bemynet/marketplace/internal/migration"
	"github.com/bemynet/marketplace/internal/observability"
	"github.com/bemynet/marketplace/internal/providers/pdf"
	"github.com/bemynet/marketplace/internal/ratelimit"
	"github.com/bemynet/marketplace/internal/referral"
	"github.com/bemynet/marketplace/internal/revenue"
	"github.com/bemynet/marketplace/internal/sale"
	"github.com/bemynet/marketplace/internal/server"
	"github.com/bemynet/marketplace/internal/settlement"
	"github.com/bemynet/marketplace/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		cloudmetrics.Module,
		ratelimit.Module,
		pdf.Module,

		// Domains
		identity.Module,
		referral.Module,
		sale.Module,
		affiliation.Module,
		revenue.Module,
		settlement.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
