// README: Response envelope and the error-to-status mapping shared by handlers and middleware.
package response

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"londa/internal/maps"
	"londa/internal/modules/analytics"
	"londa/internal/modules/driver"
	"londa/internal/modules/identity"
	"londa/internal/modules/location"
	"londa/internal/modules/matching"
	"londa/internal/modules/notification"
	"londa/internal/modules/payment"
	"londa/internal/modules/ride"
	"londa/internal/modules/subscription"
	"londa/internal/modules/user"
)

// Errors raised by the HTTP layer itself.
var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
)

const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidCoordinate   = "INVALID_COORDINATE"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeIllegalTransition   = "ILLEGAL_TRANSITION"
	CodeAlreadyClaimed      = "ALREADY_CLAIMED"
	CodeNotAssigned         = "NOT_ASSIGNED"
	CodeConflict            = "CONFLICT"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeInternal            = "INTERNAL_ERROR"
)

type success struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

type ErrorBody struct {
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

type failure struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Error     ErrorBody `json:"error"`
	Timestamp string    `json:"timestamp"`
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func OK(c *gin.Context, message string, data any) {
	JSON(c, http.StatusOK, message, data)
}

func Created(c *gin.Context, message string, data any) {
	JSON(c, http.StatusCreated, message, data)
}

func JSON(c *gin.Context, status int, message string, data any) {
	c.JSON(status, success{Success: true, Message: message, Data: data, Timestamp: now()})
}

// Fail writes an error envelope and aborts the handler chain.
func Fail(c *gin.Context, status int, code, message string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	c.AbortWithStatusJSON(status, failure{
		Message:   message,
		Error:     ErrorBody{Code: code, Details: details},
		Timestamp: now(),
	})
}

type rule struct {
	status  int
	code    string
	targets []error
}

// rules is checked in order; the first matching target wins.
var rules = []rule{
	{http.StatusBadRequest, CodeInvalidCoordinate, []error{location.ErrInvalidCoordinate}},
	{http.StatusBadRequest, CodeValidation, []error{
		ErrValidation, ride.ErrBadRequest, matching.ErrBadRequest, driver.ErrBadRequest,
		user.ErrBadRequest, identity.ErrBadRequest, payment.ErrBadRequest,
		subscription.ErrBadRequest, notification.ErrBadRequest, analytics.ErrBadRequest,
	}},
	{http.StatusUnauthorized, CodeUnauthorized, []error{
		ErrUnauthenticated, identity.ErrInvalidSession, identity.ErrInvalidCode, identity.ErrUnauthorized,
	}},
	{http.StatusForbidden, CodeForbidden, []error{ErrForbidden, ride.ErrNotRideOwner, payment.ErrNotRideUser}},
	{http.StatusNotFound, CodeNotFound, []error{
		ErrNotFound, ride.ErrNotFound, driver.ErrNotFound, user.ErrNotFound,
		subscription.ErrNotFound, identity.ErrUserNotFound, maps.ErrNoRoute,
	}},
	{http.StatusConflict, CodeIllegalTransition, []error{ride.ErrIllegalTransition}},
	{http.StatusConflict, CodeAlreadyClaimed, []error{ride.ErrAlreadyClaimed}},
	{http.StatusConflict, CodeNotAssigned, []error{ride.ErrNotAssigned}},
	{http.StatusConflict, CodeConflict, []error{driver.ErrConflict, user.ErrConflict, subscription.ErrConflict}},
	{http.StatusServiceUnavailable, CodeUpstreamUnavailable, []error{ride.ErrContention, maps.ErrUnavailable}},
}

// Classify maps err to an HTTP status and error code.
func Classify(err error) (int, string) {
	for _, r := range rules {
		for _, target := range r.targets {
			if errors.Is(err, target) {
				return r.status, r.code
			}
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// Error writes the envelope for a service error. Unmapped errors are logged
// and reported without their text.
func Error(c *gin.Context, err error) {
	status, code := Classify(err)
	details := map[string]any{}
	var te *ride.TransitionError
	if errors.As(err, &te) {
		details["currentStatus"] = te.From
		details["event"] = te.Event
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "err", err)
		msg = "internal error"
	}
	_ = c.Error(err)
	Fail(c, status, code, msg, details)
}
