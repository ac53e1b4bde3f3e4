package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	authdomain "github.com/Shihab-md/unis-server-sub000/internal/auth/domain"
	feedomain "github.com/Shihab-md/unis-server-sub000/internal/feestructure/domain"
	invoicedomain "github.com/Shihab-md/unis-server-sub000/internal/invoice/domain"
	batchdomain "github.com/Shihab-md/unis-server-sub000/internal/paymentbatch/domain"
)

// errorResponse is the uniform failure envelope for every endpoint.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid request")
)

// ErrorHandlingMiddleware drains handler errors into the failure envelope.
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

		status, message := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Success: false, Error: message})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, string) {
	var validationErr *batchdomain.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, validationErr.Message
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrTokenExpired),
		errors.Is(err, authdomain.ErrUserInactive):
		return http.StatusUnauthorized, err.Error()

	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, err.Error()

	case errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrStudentNotFound),
		errors.Is(err, batchdomain.ErrNotFound),
		errors.Is(err, feedomain.ErrNotConfigured),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, batchdomain.ErrInvalidState):
		return http.StatusConflict, err.Error()

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, invoicedomain.ErrCancelled),
		errors.Is(err, invoicedomain.ErrAlreadySettled),
		errors.Is(err, invoicedomain.ErrStudentMismatch),
		errors.Is(err, invoicedomain.ErrNothingToApply),
		errors.Is(err, feedomain.ErrInvalidHeads):
		return http.StatusBadRequest, err.Error()

	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
