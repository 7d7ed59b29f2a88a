package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/waterworks/internal/account/domain"
	billdomain "github.com/smallbiznis/waterworks/internal/bill/domain"
	actiondomain "github.com/smallbiznis/waterworks/internal/invoiceaction/domain"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/waterworks/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/waterworks/internal/payment/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
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
	ErrUnauthorized   = errors.New("unauthorized")
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

func mapError(err error) (int, errorPayload) {
	var fieldErr *billdomain.ValidationError
	if errors.As(err, &fieldErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: fieldErr.Field, Message: fieldErr.Message},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, billdomain.ErrInvalidReference),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvoiceRequired),
		errors.Is(err, paymentdomain.ErrReasonRequired),
		errors.Is(err, paymentdomain.ErrAlreadyReversed),
		errors.Is(err, actiondomain.ErrReasonRequired),
		errors.Is(err, actiondomain.ErrInvalidAmount),
		errors.Is(err, invoicedomain.ErrReversed),
		errors.Is(err, invoicedomain.ErrCannotReceive),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}
	case errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, accountdomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrAccountNotFound),
		errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func invalidRequestError() error {
	return ErrInvalidRequest
}
