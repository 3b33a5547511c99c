package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/dreamforge/internal/account/domain"
	auditdomain "github.com/smallbiznis/dreamforge/internal/audit/domain"
	authdomain "github.com/smallbiznis/dreamforge/internal/auth/domain"
	"github.com/smallbiznis/dreamforge/internal/authorization"
	generationdomain "github.com/smallbiznis/dreamforge/internal/generation/domain"
	ledgerdomain "github.com/smallbiznis/dreamforge/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/dreamforge/internal/payment/domain"
	"gorm.io/gorm"
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
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
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

// mapError turns domain errors into the stable set of categories end users
// see. Upstream error text never reaches the response.
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
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrMissingToken),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ledgerdomain.ErrAccountSuspended):
		return http.StatusForbidden, errorPayload{
			Type:    "account_suspended",
			Message: "account suspended, contact support",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ledgerdomain.ErrInsufficientCredits):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "insufficient_credits",
			Message: "insufficient credits",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, ledgerdomain.ErrConcurrentUpdate):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, paymentdomain.ErrUpstreamProvider):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "payment provider unavailable",
		}
	case errors.Is(err, generationdomain.ErrUpstreamProvider),
		errors.Is(err, generationdomain.ErrStorage),
		errors.Is(err, generationdomain.ErrNoOutput):
		return http.StatusInternalServerError, errorPayload{
			Type:    "generation_failed",
			Message: "generation failed, please retry",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, paymentdomain.ErrCheckoutNotConfigured),
		errors.Is(err, authdomain.ErrIdentityNotConfigured),
		errors.Is(err, authdomain.ErrIdentityUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same category the client saw.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	_, payload := mapError(err)
	if vErr := asValidationErrors(err); vErr != nil && len(vErr.Errors) > 0 {
		return payload.Type, vErr.Errors[0].Code
	}
	return payload.Type, err.Error()
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// validationErrors lists the domain errors reported as 400. Their text is the
// error code returned to the client.
var validationErrors = []error{
	ErrInvalidRequest,
	generationdomain.ErrInvalidRequest,
	generationdomain.ErrEmptyDream,
	generationdomain.ErrInvalidArtist,
	generationdomain.ErrInvalidLanguage,
	ledgerdomain.ErrInvalidAccount,
	ledgerdomain.ErrInvalidAmount,
	ledgerdomain.ErrInvalidAdjustment,
	ledgerdomain.ErrInvalidReference,
	accountdomain.ErrInvalidAccountID,
	paymentdomain.ErrInvalidProvider,
	paymentdomain.ErrProviderNotFound,
	paymentdomain.ErrWebhookNotConfigured,
	paymentdomain.ErrInvalidPayload,
	paymentdomain.ErrInvalidEvent,
	paymentdomain.ErrInvalidVariant,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
}

func isValidationError(err error) bool {
	return validationErrorCode(err) != ""
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, accountdomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrAccountNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return ""
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "dream_text_required":
		return "dreamText"
	case "invalid_adjustment":
		return "credits"
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
	case "dream_text_required":
		return "dream text is required"
	case "invalid_adjustment":
		return "provide exactly one of credits or addCredits"
	default:
		return "invalid value"
	}
}
