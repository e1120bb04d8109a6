package cloudmetrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bemynet/marketplace/internal/config"
)

const pushInterval = 15 * time.Minute

var Module = fx.Module("cloud.metrics",
	fx.Provide(func() *prometheus.Registry {
		return prometheus.NewRegistry()
	}),
	fx.Provide(NewPusher),
	fx.Provide(func(cfg config.Config, registry *prometheus.Registry, pusher Pusher, logger *zap.Logger) *CloudMetrics {
		if !cfg.Cloud.Metrics.Enabled || pusher == nil {
			return nil
		}
		c := New(registry, pusher, cfg.AppName, cfg.AppVersion, logger)
		setRecorder(c)
		return c
	}),
	fx.Invoke(runPushWorker),
)

func runPushWorker(lc fx.Lifecycle, c *CloudMetrics, logger *zap.Logger, db *gorm.DB) {
	if c == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting cloud metrics background worker")
			go func() {
				ticker := time.NewTicker(pushInterval)
				defer ticker.Stop()

				// Initial push
				updateSystemMetrics(c)
				updatePaidSalesCount(ctx, c, db)
				if err := c.Push(ctx); err != nil {
					logger.Error("initial cloud metrics push failed", zap.Error(err))
				}

				for {
					select {
					case <-ticker.C:
						updateSystemMetrics(c)
						updatePaidSalesCount(ctx, c, db)
						if err := c.Push(ctx); err != nil {
							logger.Error("periodic cloud metrics push failed", zap.Error(err))
						}
					case <-ctx.Done():
						logger.Info("stopping cloud metrics background worker")
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func updateSystemMetrics(c *CloudMetrics) {
	if c == nil {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	c.SetMemoryUsage(m.Sys)
}

func updatePaidSalesCount(ctx context.Context, c *CloudMetrics, db *gorm.DB) {
	if c == nil || db == nil {
		return
	}
	var count int64
	if err := db.WithContext(ctx).Table("sales").Where("status = ?", "paid").Count(&count).Error; err != nil {
		return
	}
	c.SetPaidSales(count)
}
