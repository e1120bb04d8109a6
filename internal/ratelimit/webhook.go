package ratelimit

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	obsmetrics "github.com/bemynet/marketplace/internal/observability/metrics"
)

// WebhookLimiter throttles the public webhook endpoint per provider and
// caller address. A nil redis client disables limiting entirely.
type WebhookLimiter struct {
	bucket     *TokenBucket
	log        *zap.Logger
	obsMetrics *obsmetrics.Metrics
	rate       float64
	burst      int
}

type WebhookLimiterParams struct {
	fx.In

	Bucket     *TokenBucket `optional:"true"`
	Log        *zap.Logger
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewWebhookLimiter(p WebhookLimiterParams) *WebhookLimiter {
	return &WebhookLimiter{
		bucket:     p.Bucket,
		log:        p.Log.Named("ratelimit.webhook"),
		obsMetrics: p.ObsMetrics,
		rate:       getenvFloat("WEBHOOK_RATE_LIMIT_RPS", 20),
		burst:      getenvInt("WEBHOOK_RATE_LIMIT_BURST", 40),
	}
}

func (l *WebhookLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.bucket == nil {
			c.Next()
			return
		}

		key := "webhook:" + strings.TrimSpace(c.Param("provider")) + ":" + c.ClientIP()
		result, err := l.bucket.Allow(c.Request.Context(), key, l.rate, l.burst)
		if err != nil {
			// Redis failure must not block provider notifications.
			l.log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !result.Allowed {
			if l.obsMetrics != nil {
				l.obsMetrics.RecordRateLimitDenied(c.Request.Context(), c.FullPath(), "token_bucket")
			}
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}
		c.Next()
	}
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
