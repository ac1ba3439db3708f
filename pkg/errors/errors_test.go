package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorChain(t *testing.T) {
	id := uuid.New()
	err := ReviewNotFound(id)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "REVIEW_NOT_FOUND")
	assert.Contains(t, err.Error(), id.String())
}

func TestAppError_WrappedChainSurvives(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("fetching offer: %w", Unavailable("offers", cause))

	assert.True(t, errors.Is(err, ErrServiceUnavail))
	assert.True(t, errors.Is(err, cause))

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "SERVICE_UNAVAILABLE", appErr.Code)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"review not found", ReviewNotFound(uuid.New()), http.StatusNotFound},
		{"validation", Validation("rating out of range"), http.StatusBadRequest},
		{"malformed cursor", MalformedCursor(errors.New("bad base64")), http.StatusBadRequest},
		{"invalid token", InvalidToken("signature mismatch"), http.StatusUnauthorized},
		{"token expired", TokenExpired(), http.StatusUnauthorized},
		{"not author", NotReviewAuthor(uuid.New(), uuid.New()), http.StatusForbidden},
		{"depth exceeded", DepthExceeded(12, 10), http.StatusBadRequest},
		{"rate limited", RateLimitExceeded("user-1", 30*time.Second), http.StatusTooManyRequests},
		{"unavailable", Unavailable("users", errors.New("timeout")), http.StatusServiceUnavailable},
		{"bare sentinel", ErrNotFound, http.StatusNotFound},
		{"wrapped sentinel", fmt.Errorf("lookup: %w", ErrRateLimited), http.StatusTooManyRequests},
		{"unknown error", errors.New("something odd"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestToGraphQL_AppError(t *testing.T) {
	gqlErr := ToGraphQL(ComplexityExceeded(1500, 1000))

	assert.Contains(t, gqlErr.Message, "1500")
	assert.Equal(t, "COMPLEXITY_EXCEEDED", gqlErr.Extensions["code"])
	assert.Equal(t, 1500, gqlErr.Extensions["complexity"])
	assert.Equal(t, 1000, gqlErr.Extensions["limit"])
}

func TestToGraphQL_RateLimitCarriesRetryHint(t *testing.T) {
	gqlErr := ToGraphQL(RateLimitExceeded("anonymous", 42*time.Second))

	assert.Equal(t, "RATE_LIMIT_EXCEEDED", gqlErr.Extensions["code"])
	assert.Equal(t, "anonymous", gqlErr.Extensions["userId"])
	assert.Equal(t, 42, gqlErr.Extensions["retryAfterSeconds"])
}

func TestToGraphQL_UnknownErrorDoesNotLeak(t *testing.T) {
	gqlErr := ToGraphQL(errors.New("pq: relation \"reviews\" does not exist"))

	assert.Equal(t, "an internal error occurred", gqlErr.Message)
	assert.Equal(t, "INTERNAL_ERROR", gqlErr.Extensions["code"])
	assert.NotContains(t, gqlErr.Message, "reviews")
}

func TestToGraphQL_InternalHidesCause(t *testing.T) {
	gqlErr := ToGraphQL(Internal(errors.New("dial tcp 10.0.0.5:5432: i/o timeout")))

	assert.Equal(t, "an internal error occurred", gqlErr.Message)
	assert.NotContains(t, gqlErr.Message, "10.0.0.5")
}

func TestWithExtension(t *testing.T) {
	err := Validation("text too long").WithExtension("maxLength", 5000)

	gqlErr := ToGraphQL(err)
	assert.Equal(t, 5000, gqlErr.Extensions["maxLength"])
	assert.Equal(t, "VALIDATION_ERROR", gqlErr.Extensions["code"])
}
