package governance

import "time"

const (
	// rateLimitWindow is the fixed window over which per-user cost budgets
	// apply. Windows are aligned to wall-clock minute boundaries so the
	// in-process and Redis-backed counter stores agree on window identity.
	rateLimitWindow = time.Minute

	// maxListMultiplier caps the pagination multiplier applied to a field's
	// subtree, so a hostile first/limit argument cannot inflate the score
	// past what the server would actually return.
	maxListMultiplier = 100

	// mutationCostFactor doubles the complexity of mutation operations.
	mutationCostFactor = 2
)

// Config bounds what a single GraphQL operation may cost and how much cost
// a caller may spend per minute. Construct once at startup and treat as
// read-only afterwards.
type Config struct {
	// MaxDepth is the deepest selection nesting an operation may reach.
	MaxDepth int

	// MaxComplexity is the highest complexity score an operation may carry.
	MaxComplexity int

	// DefaultFieldComplexity is the cost of any field absent from FieldCosts.
	DefaultFieldComplexity int

	// FieldCosts overrides the per-field complexity cost by field name.
	FieldCosts map[string]int

	// DefaultRateLimitPerMinute is the cost budget per user per window for
	// users without an override.
	DefaultRateLimitPerMinute int

	// UserRateLimits overrides the per-window budget for specific user keys.
	UserRateLimits map[string]int

	// EnableIntrospectionLimits subjects introspection-only operations to
	// depth and complexity limits. Off by default so schema tooling works
	// against deployments with tight limits.
	EnableIntrospectionLimits bool

	// CostBasedRateLimit charges each operation its complexity score against
	// the caller's budget instead of a flat 1 per request.
	CostBasedRateLimit bool
}

// DefaultConfig returns the production limits with the standard cost table
// for this schema. Root mutations carry higher costs than reads because
// they fan out into cache invalidation and aggregate recomputation.
func DefaultConfig() Config {
	return Config{
		MaxDepth:               10,
		MaxComplexity:          1000,
		DefaultFieldComplexity: 1,
		FieldCosts: map[string]int{
			"reviews":        5,
			"offer":          3,
			"user":           2,
			"averageRating":  3,
			"reviewsCount":   2,
			"createReview":   10,
			"updateReview":   8,
			"deleteReview":   5,
			"moderateReview": 7,
		},
		DefaultRateLimitPerMinute: 60,
		UserRateLimits:            map[string]int{},
		EnableIntrospectionLimits: false,
		CostBasedRateLimit:        true,
	}
}

// fieldCost returns the configured cost for a field name.
func (c Config) fieldCost(name string) int {
	if cost, ok := c.FieldCosts[name]; ok {
		return cost
	}
	return c.DefaultFieldComplexity
}

// rateLimitFor returns the per-window budget for a user key.
func (c Config) rateLimitFor(userKey string) int {
	if limit, ok := c.UserRateLimits[userKey]; ok {
		return limit
	}
	return c.DefaultRateLimitPerMinute
}
