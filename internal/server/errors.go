package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	affiliationdomain "github.com/bemynet/marketplace/internal/affiliation/domain"
	"github.com/bemynet/marketplace/internal/commission"
	identitydomain "github.com/bemynet/marketplace/internal/identity/domain"
	"github.com/bemynet/marketplace/internal/money"
	referraldomain "github.com/bemynet/marketplace/internal/referral/domain"
	saledomain "github.com/bemynet/marketplace/internal/sale/domain"
	settlementdomain "github.com/bemynet/marketplace/internal/settlement/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, settlementdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "invalid_signature",
			Message: "invalid signature",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, settlementdomain.ErrInvalidPayload),
		errors.Is(err, settlementdomain.ErrInvalidProvider),
		errors.Is(err, settlementdomain.ErrInvalidAmount),
		errors.Is(err, settlementdomain.ErrInvalidCurrency),
		errors.Is(err, money.ErrInvalidRate),
		errors.Is(err, commission.ErrNegativeGross),
		errors.Is(err, commission.ErrNegativeDiscount):
		return true
	case isIdentityValidationError(err),
		isReferralValidationError(err),
		isSaleValidationError(err),
		isAffiliationValidationError(err):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, saledomain.ErrInvalidTransition),
		errors.Is(err, saledomain.ErrPaymentReferenceConflict):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, identitydomain.ErrNotFound),
		errors.Is(err, referraldomain.ErrNotFound),
		errors.Is(err, referraldomain.ErrCommercialNotFound),
		errors.Is(err, referraldomain.ErrPartnerNotFound),
		errors.Is(err, saledomain.ErrNotFound),
		errors.Is(err, settlementdomain.ErrProviderNotFound),
		errors.Is(err, settlementdomain.ErrUnknownSale),
		errors.Is(err, settlementdomain.ErrUnknownAccount),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isIdentityValidationError(err error) bool {
	switch err {
	case identitydomain.ErrInvalidName,
		identitydomain.ErrInvalidEmail,
		identitydomain.ErrInvalidID,
		identitydomain.ErrInvalidPrice:
		return true
	default:
		return false
	}
}

func isReferralValidationError(err error) bool {
	switch err {
	case referraldomain.ErrInvalidName,
		referraldomain.ErrInvalidEmail,
		referraldomain.ErrInvalidID,
		referraldomain.ErrInvalidRate:
		return true
	default:
		return false
	}
}

func isSaleValidationError(err error) bool {
	switch err {
	case saledomain.ErrInvalidID,
		saledomain.ErrInvalidDiscount,
		saledomain.ErrInactiveProduct,
		saledomain.ErrMissingPaymentReference:
		return true
	default:
		return false
	}
}

func isAffiliationValidationError(err error) bool {
	switch err {
	case affiliationdomain.ErrInvalidID,
		affiliationdomain.ErrInvalidSourceType:
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
