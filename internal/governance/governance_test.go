package governance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/motorplace/ugc-service/internal/auth"
	"github.com/motorplace/ugc-service/internal/cache"
	apperrors "github.com/motorplace/ugc-service/pkg/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// spyCounter records Consume calls and answers with canned results.
type spyCounter struct {
	calls      []spyCall
	allowed    bool
	retryAfter time.Duration
	err        error
}

type spyCall struct {
	userKey string
	cost    int64
	limit   int64
}

func (s *spyCounter) Consume(_ context.Context, userKey string, cost, limit int64) (bool, time.Duration, error) {
	s.calls = append(s.calls, spyCall{userKey: userKey, cost: cost, limit: limit})
	if s.err != nil {
		return false, 0, s.err
	}
	return s.allowed, s.retryAfter, nil
}

func testIdentity() auth.Identity {
	return auth.Identity{UserID: uuid.New(), IsAuthenticated: true}
}

func nestedQuery(depth int) string {
	var b strings.Builder
	b.WriteString("{")
	for i := 0; i < depth-1; i++ {
		b.WriteString(" offer {")
	}
	b.WriteString(" id ")
	b.WriteString(strings.Repeat("}", depth-1))
	b.WriteString("}")
	return b.String()
}

func analyze(t *testing.T, cfg Config, query string, variables map[string]any) analysis {
	t.Helper()
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	require.NoError(t, err)
	require.Len(t, doc.Operations, 1)
	a := &analyzer{cfg: cfg, doc: doc, variables: variables}
	return a.analyzeOperation(doc.Operations[0])
}

func TestAnalyzer_DepthCounting(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, analyze(t, cfg, `{ id }`, nil).depth)
	assert.Equal(t, 3, analyze(t, cfg, `{ review(id: "x") { offer { id } } }`, nil).depth)
	assert.Equal(t, 11, analyze(t, cfg, nestedQuery(11), nil).depth)
}

func TestAnalyzer_InlineFragmentDoesNotNest(t *testing.T) {
	cfg := DefaultConfig()

	res := analyze(t, cfg, `{ node { ... on Review { text } } }`, nil)
	assert.Equal(t, 2, res.depth)
}

func TestAnalyzer_FragmentSpreadResolved(t *testing.T) {
	cfg := DefaultConfig()

	query := `
		query { review(id: "x") { ...reviewFields } }
		fragment reviewFields on Review { text rating offer { id } }
	`
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	require.NoError(t, err)
	a := &analyzer{cfg: cfg, doc: doc}
	res := a.analyzeOperation(doc.Operations[0])

	// review > offer > id through the fragment body.
	assert.Equal(t, 3, res.depth)
	// review(1) + text(1) + rating(1) + offer(3) + id(1)
	assert.Equal(t, 7, res.complexity)
}

func TestAnalyzer_UnknownFragmentChargedDefault(t *testing.T) {
	cfg := DefaultConfig()

	res := analyze(t, cfg, `{ review(id: "x") { ...missing } }`, nil)
	assert.Equal(t, 2, res.depth)
	assert.Equal(t, 2, res.complexity)
}

func TestAnalyzer_ComplexityCostTable(t *testing.T) {
	cfg := DefaultConfig()

	// reviews(5) + text(1), multiplied by first=10.
	res := analyze(t, cfg, `{ reviews(first: 10) { text } }`, nil)
	assert.Equal(t, 60, res.complexity)

	// Same shape with the page size in a variable.
	res = analyze(t, cfg, `query($n: Int) { reviews(first: $n) { text } }`,
		map[string]any{"n": float64(10)})
	assert.Equal(t, 60, res.complexity)
}

func TestAnalyzer_ListMultiplierCapped(t *testing.T) {
	cfg := DefaultConfig()

	res := analyze(t, cfg, `{ reviews(first: 5000) { text } }`, nil)
	assert.Equal(t, (5+1)*100, res.complexity)
}

func TestAnalyzer_MutationsCostDouble(t *testing.T) {
	cfg := DefaultConfig()

	read := analyze(t, cfg, `{ moderateReview { id } }`, nil)
	write := analyze(t, cfg, `mutation { moderateReview { id } }`, nil)
	assert.Equal(t, 2*read.complexity, write.complexity)
}

func TestAnalyzer_IntrospectionDetection(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, analyze(t, cfg, `{ __schema { types { name } } }`, nil).introspection)
	assert.False(t, analyze(t, cfg, `{ __schema { types { name } } reviews { id } }`, nil).introspection)
}

func TestCheck_AllowsSimpleQuery(t *testing.T) {
	counter := &spyCounter{allowed: true}
	ext := NewExtension(DefaultConfig(), counter, discardLogger())

	err := ext.Check(context.Background(), `{ review(id: "x") { text } }`, nil, testIdentity())
	require.NoError(t, err)
	require.Len(t, counter.calls, 1)
	// review(1) + text(1)
	assert.Equal(t, int64(2), counter.calls[0].cost)
	assert.Equal(t, int64(60), counter.calls[0].limit)
}

func TestCheck_MalformedQuery(t *testing.T) {
	ext := NewExtension(DefaultConfig(), &spyCounter{allowed: true}, discardLogger())

	err := ext.Check(context.Background(), `{ review(`, nil, testIdentity())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestCheck_DepthExceeded(t *testing.T) {
	counter := &spyCounter{allowed: true}
	ext := NewExtension(DefaultConfig(), counter, discardLogger())

	err := ext.Check(context.Background(), nestedQuery(11), nil, testIdentity())
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "DEPTH_EXCEEDED", appErr.Code)
	assert.Equal(t, 11, appErr.Extensions["depth"])
	assert.Equal(t, 10, appErr.Extensions["limit"])
	// Rejected operations consume no budget.
	assert.Empty(t, counter.calls)
}

func TestCheck_ComplexityExceeded(t *testing.T) {
	counter := &spyCounter{allowed: true}
	ext := NewExtension(DefaultConfig(), counter, discardLogger())

	query := `{ reviews(first: 100) { offer { reviews(first: 100) { text } } } }`
	err := ext.Check(context.Background(), query, nil, testIdentity())
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "COMPLEXITY_EXCEEDED", appErr.Code)
	assert.Empty(t, counter.calls)
}

func TestCheck_IntrospectionBypass(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 1

	counter := &spyCounter{allowed: true}
	ext := NewExtension(cfg, counter, discardLogger())

	err := ext.Check(context.Background(), `{ __schema { types { name } } }`, nil, testIdentity())
	require.NoError(t, err)
	assert.Empty(t, counter.calls, "introspection is not charged")

	cfg.EnableIntrospectionLimits = true
	ext = NewExtension(cfg, counter, discardLogger())
	err = ext.Check(context.Background(), `{ __schema { types { name } } }`, nil, testIdentity())
	require.Error(t, err)
}

func TestCheck_RateLimitExceeded(t *testing.T) {
	counter := &spyCounter{allowed: false, retryAfter: 42 * time.Second}
	ext := NewExtension(DefaultConfig(), counter, discardLogger())

	id := testIdentity()
	err := ext.Check(context.Background(), `{ review(id: "x") { text } }`, nil, id)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", appErr.Code)
	assert.Equal(t, 42, appErr.Extensions["retryAfterSeconds"])
	assert.True(t, errors.Is(err, apperrors.ErrRateLimited))
}

func TestCheck_AnonymousBucketShared(t *testing.T) {
	counter := &spyCounter{allowed: true}
	cfg := DefaultConfig()
	cfg.UserRateLimits[auth.AnonymousKey] = 5

	ext := NewExtension(cfg, counter, discardLogger())

	require.NoError(t, ext.Check(context.Background(), `{ id }`, nil, auth.Anonymous()))
	require.NoError(t, ext.Check(context.Background(), `{ id }`, nil, auth.Anonymous()))

	require.Len(t, counter.calls, 2)
	assert.Equal(t, auth.AnonymousKey, counter.calls[0].userKey)
	assert.Equal(t, counter.calls[0].userKey, counter.calls[1].userKey)
	assert.Equal(t, int64(5), counter.calls[0].limit)
}

func TestCheck_FlatCostWhenCostBasedDisabled(t *testing.T) {
	counter := &spyCounter{allowed: true}
	cfg := DefaultConfig()
	cfg.CostBasedRateLimit = false

	ext := NewExtension(cfg, counter, discardLogger())
	require.NoError(t, ext.Check(context.Background(), `{ reviews(first: 100) { text } }`, nil, testIdentity()))

	require.Len(t, counter.calls, 1)
	assert.Equal(t, int64(1), counter.calls[0].cost)
}

func TestCheck_CounterFailureAdmits(t *testing.T) {
	counter := &spyCounter{err: errors.New("redis down")}
	ext := NewExtension(DefaultConfig(), counter, discardLogger())

	err := ext.Check(context.Background(), `{ review(id: "x") { text } }`, nil, testIdentity())
	assert.NoError(t, err)
}

func TestMemoryCounterStore_WindowExhaustionAndRollover(t *testing.T) {
	store := NewMemoryCounterStore()
	now := time.Date(2025, 6, 15, 12, 0, 10, 0, time.UTC)
	store.nowFunc = func() time.Time { return now }

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := store.Consume(ctx, "user-1", 1, 3)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d within budget", i)
	}

	allowed, retryAfter, err := store.Consume(ctx, "user-1", 1, 3)
	require.NoError(t, err)
	assert.False(t, allowed)
	// Window resets at 12:01:00; 50 seconds remain.
	assert.Equal(t, 50*time.Second, retryAfter)

	// A denied request must not consume budget: the window is still full,
	// not overfull.
	allowed, _, _ = store.Consume(ctx, "user-1", 0, 3)
	assert.True(t, allowed)

	// Other users have their own windows.
	allowed, _, err = store.Consume(ctx, "user-2", 1, 3)
	require.NoError(t, err)
	assert.True(t, allowed)

	// Next window.
	now = now.Add(rateLimitWindow)
	allowed, _, err = store.Consume(ctx, "user-1", 1, 3)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisCounterStore_SharedBudget(t *testing.T) {
	store := NewRedisCounterStore(cache.NewMemoryStore())
	now := time.Date(2025, 6, 15, 12, 0, 10, 0, time.UTC)
	store.nowFunc = func() time.Time { return now }

	ctx := context.Background()

	allowed, _, err := store.Consume(ctx, "user-1", 30, 60)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = store.Consume(ctx, "user-1", 30, 60)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, retryAfter, err := store.Consume(ctx, "user-1", 1, 60)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 50*time.Second, retryAfter)

	// New wall-clock minute, new bucket key.
	now = now.Add(rateLimitWindow)
	allowed, _, err = store.Consume(ctx, "user-1", 1, 60)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestConfig_FieldCosts(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		field string
		cost  int
	}{
		{"reviews", 5},
		{"offer", 3},
		{"user", 2},
		{"averageRating", 3},
		{"reviewsCount", 2},
		{"createReview", 10},
		{"somethingElse", 1},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.cost, cfg.fieldCost(tt.field))
		})
	}
}

func TestConfig_PerUserOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UserRateLimits["vip"] = 600

	assert.Equal(t, 600, cfg.rateLimitFor("vip"))
	assert.Equal(t, 60, cfg.rateLimitFor(fmt.Sprintf("user-%d", 1)))
}
