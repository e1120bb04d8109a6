package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	settlementdomain "github.com/bemynet/marketplace/internal/settlement/domain"
)

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.settlementSvc.IngestWebhook(c.Request.Context(), provider, payload, c.Request.Header)
	if err != nil {
		switch {
		case errors.Is(err, settlementdomain.ErrEventAlreadyProcessed):
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		case isUndeliverableWebhookErr(err):
			// Acknowledge forged or malformed deliveries so the provider
			// stops redelivering; a retry of the same payload cannot
			// succeed.
			s.log.Warn("payment webhook rejected",
				zap.String("provider", provider),
				zap.Error(err),
			)
			c.JSON(http.StatusOK, gin.H{"status": "error", "error": err.Error()})
		default:
			AbortWithError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// isUndeliverableWebhookErr reports whether redelivering the same payload
// could ever succeed. Signature and payload failures are deterministic,
// so they get acknowledged instead of retried forever.
func isUndeliverableWebhookErr(err error) bool {
	return errors.Is(err, settlementdomain.ErrInvalidSignature) ||
		errors.Is(err, settlementdomain.ErrInvalidPayload) ||
		errors.Is(err, settlementdomain.ErrInvalidEvent)
}
