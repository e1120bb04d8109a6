package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	affiliationdomain "github.com/bemynet/marketplace/internal/affiliation/domain"
	"github.com/bemynet/marketplace/internal/config"
	identitydomain "github.com/bemynet/marketplace/internal/identity/domain"
	"github.com/bemynet/marketplace/internal/observability"
	obsmiddleware "github.com/bemynet/marketplace/internal/observability/logger"
	obsmetrics "github.com/bemynet/marketplace/internal/observability/metrics"
	obstracing "github.com/bemynet/marketplace/internal/observability/tracing"
	"github.com/bemynet/marketplace/internal/providers/pdf"
	"github.com/bemynet/marketplace/internal/ratelimit"
	referraldomain "github.com/bemynet/marketplace/internal/referral/domain"
	saledomain "github.com/bemynet/marketplace/internal/sale/domain"
	settlementdomain "github.com/bemynet/marketplace/internal/settlement/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log, obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	log            *zap.Logger
	cfg            config.Config
	db             *gorm.DB
	genID          *snowflake.Node
	identitySvc    identitydomain.Service
	referralSvc    referraldomain.Service
	saleSvc        saledomain.Service
	affiliationSvc affiliationdomain.Service
	settlementSvc  settlementdomain.Service
	pdfProvider    pdf.Provider
	webhookLimiter *ratelimit.WebhookLimiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Log            *zap.Logger
	Cfg            config.Config
	DB             *gorm.DB
	GenID          *snowflake.Node
	IdentitySvc    identitydomain.Service
	ReferralSvc    referraldomain.Service
	SaleSvc        saledomain.Service
	AffiliationSvc affiliationdomain.Service
	SettlementSvc  settlementdomain.Service
	PDFProvider    pdf.Provider              `optional:"true"`
	WebhookLimiter *ratelimit.WebhookLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		log:            p.Log.Named("http.server"),
		cfg:            p.Cfg,
		db:             p.DB,
		genID:          p.GenID,
		identitySvc:    p.IdentitySvc,
		referralSvc:    p.ReferralSvc,
		saleSvc:        p.SaleSvc,
		affiliationSvc: p.AffiliationSvc,
		settlementSvc:  p.SettlementSvc,
		pdfProvider:    p.PDFProvider,
		webhookLimiter: p.WebhookLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Users --------
	v1.POST("/users", s.CreateUser)
	v1.GET("/users/:id", s.GetUserByID)

	// -------- Clients --------
	v1.POST("/clients", s.CreateClient)
	v1.GET("/clients/:id", s.GetClientByID)

	// -------- Products --------
	v1.POST("/products", s.CreateProduct)
	v1.GET("/products/:id", s.GetProductByID)
	v1.GET("/products/slug/:slug", s.GetProductBySlug)

	// -------- Commercials --------
	v1.POST("/commercials", s.CreateCommercial)
	v1.GET("/commercials/:id", s.GetCommercialByID)

	// -------- Partners --------
	v1.POST("/partners", s.CreatePartner)
	v1.GET("/partners/:id", s.GetPartnerByID)
	v1.GET("/partners/code/:code", s.GetPartnerByCode)

	// -------- Sales --------
	v1.POST("/sales", s.InitiateSale)
	v1.GET("/sales", s.ListSales)
	v1.GET("/sales/:id", s.GetSaleByID)
	v1.POST("/sales/:id/cancel", s.CancelSale)
	v1.GET("/sales/:id/receipt", s.GetSaleReceipt)
	v1.GET("/sales/:id/affiliations", s.ListSaleAffiliations)

	// -------- Commission --------
	v1.POST("/commission/preview", s.PreviewCommission)

	// -------- Affiliations --------
	v1.GET("/affiliations", s.ListSourceAffiliations)
	v1.GET("/affiliations/summary", s.GetAffiliationSummary)
}

func (s *Server) registerWebhookRoutes() {
	webhooks := s.engine.Group("/webhooks")
	if s.webhookLimiter != nil {
		webhooks.Use(s.webhookLimiter.GinMiddleware())
	}
	webhooks.POST("/payments/:provider", s.HandlePaymentWebhook)
}
