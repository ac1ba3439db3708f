package governance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/motorplace/ugc-service/internal/auth"
	apperrors "github.com/motorplace/ugc-service/pkg/errors"
)

var rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ugc_governance_rejections_total",
	Help: "GraphQL operations rejected before execution, by reason.",
}, []string{"reason"})

// Extension gates GraphQL execution: it parses the incoming operation,
// scores its depth and complexity, and charges the caller's rate budget.
// The handler calls Check before dispatching any resolver; a non-nil return
// means the operation must not run.
type Extension struct {
	cfg      Config
	counters CounterStore
	logger   *slog.Logger
}

func NewExtension(cfg Config, counters CounterStore, logger *slog.Logger) *Extension {
	return &Extension{
		cfg:      cfg,
		counters: counters,
		logger:   logger,
	}
}

// Check validates one request's query document against the configured
// limits and consumes rate budget for the caller. All operations in the
// document are scored; any violation rejects the whole request.
func (e *Extension) Check(ctx context.Context, query string, variables map[string]any, id auth.Identity) error {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return apperrors.Validation(fmt.Sprintf("malformed GraphQL query: %v", err))
	}

	a := &analyzer{cfg: e.cfg, doc: doc, variables: variables}

	totalComplexity := 0
	for _, op := range doc.Operations {
		res := a.analyzeOperation(op)

		if res.introspection && !e.cfg.EnableIntrospectionLimits {
			continue
		}

		if res.depth > e.cfg.MaxDepth {
			rejectionsTotal.WithLabelValues("depth").Inc()
			e.logger.WarnContext(ctx, "query depth limit exceeded",
				slog.Int("depth", res.depth),
				slog.Int("limit", e.cfg.MaxDepth),
				slog.String("user_key", id.Key()),
			)
			return apperrors.DepthExceeded(res.depth, e.cfg.MaxDepth)
		}

		if res.complexity > e.cfg.MaxComplexity {
			rejectionsTotal.WithLabelValues("complexity").Inc()
			e.logger.WarnContext(ctx, "query complexity limit exceeded",
				slog.Int("complexity", res.complexity),
				slog.Int("limit", e.cfg.MaxComplexity),
				slog.String("user_key", id.Key()),
			)
			return apperrors.ComplexityExceeded(res.complexity, e.cfg.MaxComplexity)
		}

		totalComplexity += res.complexity
	}

	cost := int64(1)
	if e.cfg.CostBasedRateLimit {
		cost = int64(totalComplexity)
	}
	if cost == 0 {
		// Introspection-only requests are not charged.
		return nil
	}

	userKey := id.Key()
	limit := int64(e.cfg.rateLimitFor(userKey))

	allowed, retryAfter, err := e.counters.Consume(ctx, userKey, cost, limit)
	if err != nil {
		// A broken counter backend must not take reads down with it.
		e.logger.WarnContext(ctx, "rate limit counter unavailable, admitting request",
			slog.String("user_key", userKey),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if !allowed {
		rejectionsTotal.WithLabelValues("rate_limit").Inc()
		e.logger.WarnContext(ctx, "rate limit exceeded",
			slog.String("user_key", userKey),
			slog.Int64("cost", cost),
			slog.Int64("limit", limit),
		)
		return apperrors.RateLimitExceeded(userKey, retryAfter)
	}
	return nil
}
