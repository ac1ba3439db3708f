package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrInternal        = errors.New("internal error")
	ErrServiceUnavail  = errors.New("service unavailable")
	ErrMalformedCursor = errors.New("malformed cursor")
)

// AppError is a structured application error carrying a machine-readable
// code, an HTTP status for the transport layer, and optional extension
// fields surfaced in GraphQL error responses (observed values vs limits,
// retry hints).
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Status     int            `json:"-"`
	Extensions map[string]any `json:"-"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithExtension returns the error with an extra extension field set.
func (e *AppError) WithExtension(key string, value any) *AppError {
	if e.Extensions == nil {
		e.Extensions = make(map[string]any)
	}
	e.Extensions[key] = value
	return e
}

// ReviewNotFound creates a 404 error for a missing review.
func ReviewNotFound(id uuid.UUID) *AppError {
	return &AppError{
		Code:       "REVIEW_NOT_FOUND",
		Message:    fmt.Sprintf("review %s not found", id),
		Status:     http.StatusNotFound,
		Extensions: map[string]any{"reviewId": id.String()},
		Err:        ErrNotFound,
	}
}

// Validation creates a 400 error for input that fails validation.
func Validation(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// MalformedCursor creates a 400 error for a pagination cursor that cannot
// be decoded. Distinct from VALIDATION_ERROR so clients can drop the cursor
// and restart from the first page.
func MalformedCursor(err error) *AppError {
	return &AppError{
		Code:    "MALFORMED_CURSOR",
		Message: "pagination cursor could not be decoded",
		Status:  http.StatusBadRequest,
		Err:     fmt.Errorf("%w: %w", ErrMalformedCursor, err),
	}
}

// InvalidToken creates a 401 error for a token that fails verification.
func InvalidToken(message string) *AppError {
	return &AppError{
		Code:    "INVALID_TOKEN",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthenticated,
	}
}

// TokenExpired creates a 401 error for an expired token. Reported separately
// from INVALID_TOKEN so clients know a refresh is enough.
func TokenExpired() *AppError {
	return &AppError{
		Code:    "TOKEN_EXPIRED",
		Message: "authentication token has expired",
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthenticated,
	}
}

// NotReviewAuthor creates a 403 error for a user mutating a review they do
// not own.
func NotReviewAuthor(userID, reviewID uuid.UUID) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: fmt.Sprintf("user %s cannot modify review %s", userID, reviewID),
		Status:  http.StatusForbidden,
		Extensions: map[string]any{
			"userId":   userID.String(),
			"reviewId": reviewID.String(),
		},
		Err: ErrUnauthorized,
	}
}

// InsufficientPermissions creates a 403 error for a missing role.
func InsufficientPermissions(role string) *AppError {
	return &AppError{
		Code:       "INSUFFICIENT_PERMISSIONS",
		Message:    fmt.Sprintf("operation requires the %q role", role),
		Status:     http.StatusForbidden,
		Extensions: map[string]any{"requiredRole": role},
		Err:        ErrForbidden,
	}
}

// DepthExceeded creates a governance rejection for a query nested deeper
// than the configured maximum.
func DepthExceeded(depth, limit int) *AppError {
	return &AppError{
		Code:    "DEPTH_EXCEEDED",
		Message: fmt.Sprintf("query depth %d exceeds maximum allowed depth of %d", depth, limit),
		Status:  http.StatusBadRequest,
		Extensions: map[string]any{
			"depth": depth,
			"limit": limit,
		},
		Err: ErrInvalidInput,
	}
}

// ComplexityExceeded creates a governance rejection for a query whose cost
// estimate exceeds the configured maximum.
func ComplexityExceeded(complexity, limit int) *AppError {
	return &AppError{
		Code:    "COMPLEXITY_EXCEEDED",
		Message: fmt.Sprintf("query complexity %d exceeds maximum allowed complexity of %d", complexity, limit),
		Status:  http.StatusBadRequest,
		Extensions: map[string]any{
			"complexity": complexity,
			"limit":      limit,
		},
		Err: ErrInvalidInput,
	}
}

// RateLimitExceeded creates a governance rejection for a user over their
// per-minute budget. retryAfter reports the time until the window resets.
func RateLimitExceeded(userKey string, retryAfter time.Duration) *AppError {
	return &AppError{
		Code:    "RATE_LIMIT_EXCEEDED",
		Message: "rate limit exceeded, please slow down your requests",
		Status:  http.StatusTooManyRequests,
		Extensions: map[string]any{
			"userId":            userKey,
			"retryAfterSeconds": int(retryAfter.Round(time.Second).Seconds()),
		},
		Err: ErrRateLimited,
	}
}

// Unavailable creates a 503 error for a dependency that cannot serve.
func Unavailable(service string, err error) *AppError {
	return &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    fmt.Sprintf("%s is unavailable", service),
		Status:     http.StatusServiceUnavailable,
		Extensions: map[string]any{"service": service},
		Err:        fmt.Errorf("%w: %w", ErrServiceUnavail, err),
	}
}

// Internal creates a 500 error. The wrapped cause is logged server-side and
// never exposed in the message.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMalformedCursor):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GraphQLError is the structured error object surfaced in a GraphQL
// response's errors list.
type GraphQLError struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// ToGraphQL maps any error to its external GraphQL representation. The
// mapping is pure: it inspects the error chain only and carries no
// transport-layer state. Unrecognized errors collapse to INTERNAL_ERROR so
// internal details never leak.
func ToGraphQL(err error) GraphQLError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		ext := map[string]any{"code": appErr.Code}
		for k, v := range appErr.Extensions {
			ext[k] = v
		}
		return GraphQLError{Message: appErr.Message, Extensions: ext}
	}

	return GraphQLError{
		Message:    "an internal error occurred",
		Extensions: map[string]any{"code": "INTERNAL_ERROR"},
	}
}
