package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/motorplace/ugc-service/internal/domain"
)

// TTLs per value class. Aggregates change slowly and tolerate staleness;
// review bodies less so; counts are the cheapest to recompute.
const (
	ReviewTTL    = 10 * time.Minute
	AggregateTTL = 30 * time.Minute
	CountTTL     = 5 * time.Minute
)

var (
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ugc_cache_hits_total",
			Help: "Total number of cache hits by value class",
		},
		[]string{"class"},
	)

	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ugc_cache_misses_total",
			Help: "Total number of cache misses by value class",
		},
		[]string{"class"},
	)
)

// Key builders. All keys are namespaced by value class so invalidation can
// target a single class.
func ReviewKey(reviewID uuid.UUID) string {
	return fmt.Sprintf("review:%s", reviewID)
}

func OfferRatingKey(offerID uuid.UUID) string {
	return fmt.Sprintf("offer_rating:%s", offerID)
}

func OfferReviewsCountKey(offerID uuid.UUID) string {
	return fmt.Sprintf("offer_reviews_count:%s", offerID)
}

// UGCCache is the typed caching facade over a Store. All methods swallow
// backend errors into (miss, logged warning): a broken cache must degrade to
// direct store reads, never fail the request.
type UGCCache struct {
	store  Store
	logger *slog.Logger
}

// NewUGCCache creates the facade over the given backend.
func NewUGCCache(store Store, logger *slog.Logger) *UGCCache {
	return &UGCCache{store: store, logger: logger}
}

// Store exposes the underlying backend, used by the governance layer for
// rate counters.
func (c *UGCCache) Store() Store {
	return c.store
}

// Ping checks backend connectivity for health reporting.
func (c *UGCCache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// GetReview returns a cached review, or nil on miss.
func (c *UGCCache) GetReview(ctx context.Context, reviewID uuid.UUID) *domain.Review {
	var review domain.Review
	if !c.get(ctx, ReviewKey(reviewID), "review", &review) {
		return nil
	}
	return &review
}

// SetReview caches a review body.
func (c *UGCCache) SetReview(ctx context.Context, review *domain.Review) {
	c.set(ctx, ReviewKey(review.ID), review, ReviewTTL)
}

// InvalidateReview drops a cached review body.
func (c *UGCCache) InvalidateReview(ctx context.Context, reviewID uuid.UUID) {
	c.delete(ctx, ReviewKey(reviewID))
}

// GetRating returns a cached rating aggregate, or nil on miss.
func (c *UGCCache) GetRating(ctx context.Context, offerID uuid.UUID) *domain.RatingAggregate {
	var agg domain.RatingAggregate
	if !c.get(ctx, OfferRatingKey(offerID), "rating", &agg) {
		return nil
	}
	return &agg
}

// SetRating caches a rating aggregate.
func (c *UGCCache) SetRating(ctx context.Context, agg *domain.RatingAggregate) {
	c.set(ctx, OfferRatingKey(agg.OfferID), agg, AggregateTTL)
}

// GetRatings returns cached aggregates for several offers keyed by offer ID.
// Missing or unreadable entries are simply absent from the result.
func (c *UGCCache) GetRatings(ctx context.Context, offerIDs []uuid.UUID) map[uuid.UUID]*domain.RatingAggregate {
	if len(offerIDs) == 0 {
		return nil
	}

	keys := make([]string, len(offerIDs))
	for i, id := range offerIDs {
		keys[i] = OfferRatingKey(id)
	}

	vals, err := c.store.MGet(ctx, keys...)
	if err != nil {
		c.logger.WarnContext(ctx, "cache mget failed", slog.String("error", err.Error()))
		return nil
	}

	out := make(map[uuid.UUID]*domain.RatingAggregate, len(offerIDs))
	for i, raw := range vals {
		if raw == nil {
			cacheMisses.WithLabelValues("rating").Inc()
			continue
		}
		var agg domain.RatingAggregate
		if err := json.Unmarshal(raw, &agg); err != nil {
			c.logger.WarnContext(ctx, "cache entry corrupt, dropping",
				slog.String("key", keys[i]),
				slog.String("error", err.Error()),
			)
			c.delete(ctx, keys[i])
			continue
		}
		cacheHits.WithLabelValues("rating").Inc()
		out[offerIDs[i]] = &agg
	}
	return out
}

// GetReviewsCount returns a cached count for an offer. The second return
// reports presence.
func (c *UGCCache) GetReviewsCount(ctx context.Context, offerID uuid.UUID) (int, bool) {
	var count int
	if !c.get(ctx, OfferReviewsCountKey(offerID), "count", &count) {
		return 0, false
	}
	return count, true
}

// SetReviewsCount caches a review count for an offer.
func (c *UGCCache) SetReviewsCount(ctx context.Context, offerID uuid.UUID, count int) {
	c.set(ctx, OfferReviewsCountKey(offerID), count, CountTTL)
}

// InvalidateOffer drops all per-offer cached values. Called after any write
// that changes the offer's review set.
func (c *UGCCache) InvalidateOffer(ctx context.Context, offerID uuid.UUID) {
	c.delete(ctx, OfferRatingKey(offerID), OfferReviewsCountKey(offerID))
}

func (c *UGCCache) get(ctx context.Context, key, class string, target any) bool {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.WarnContext(ctx, "cache get failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		cacheMisses.WithLabelValues(class).Inc()
		return false
	}

	if err := json.Unmarshal(raw, target); err != nil {
		c.logger.WarnContext(ctx, "cache entry corrupt, dropping",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		c.delete(ctx, key)
		cacheMisses.WithLabelValues(class).Inc()
		return false
	}

	cacheHits.WithLabelValues(class).Inc()
	return true
}

func (c *UGCCache) set(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "cache marshal failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := c.store.Set(ctx, key, raw, ttl); err != nil {
		c.logger.WarnContext(ctx, "cache set failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

func (c *UGCCache) delete(ctx context.Context, keys ...string) {
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.WarnContext(ctx, "cache delete failed",
			slog.String("error", err.Error()),
		)
	}
}
