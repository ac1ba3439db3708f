package cache

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorplace/ugc-service/internal/domain"
)

func newTestCache(t *testing.T) (*UGCCache, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewUGCCache(store, slog.Default()), store
}

func sampleReview() *domain.Review {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Review{
		ID:               uuid.New(),
		OfferID:          uuid.New(),
		AuthorID:         uuid.New(),
		Rating:           4,
		Text:             "solid car, minor scratches",
		CreatedAt:        now,
		UpdatedAt:        now,
		IsModerated:      true,
		ModerationStatus: domain.ModerationApproved,
	}
}

func TestUGCCacheReviewRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	review := sampleReview()

	assert.Nil(t, c.GetReview(ctx, review.ID))

	c.SetReview(ctx, review)

	got := c.GetReview(ctx, review.ID)
	require.NotNil(t, got)
	assert.Equal(t, review.ID, got.ID)
	assert.Equal(t, review.Rating, got.Rating)
	assert.Equal(t, review.ModerationStatus, got.ModerationStatus)

	c.InvalidateReview(ctx, review.ID)
	assert.Nil(t, c.GetReview(ctx, review.ID))
}

func TestUGCCacheRatingRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	agg := &domain.RatingAggregate{
		OfferID:       uuid.New(),
		AverageRating: decimal.RequireFromString("4.25"),
		ReviewsCount:  4,
		Distribution:  domain.RatingDistribution{Rating4: 3, Rating5: 1},
		UpdatedAt:     time.Now().UTC(),
	}

	c.SetRating(ctx, agg)

	got := c.GetRating(ctx, agg.OfferID)
	require.NotNil(t, got)
	assert.True(t, got.AverageRating.Equal(agg.AverageRating))
	assert.Equal(t, 4, got.ReviewsCount)
	assert.Equal(t, 3, got.Distribution.Rating4)
}

func TestUGCCacheGetRatingsPartial(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	cached := &domain.RatingAggregate{
		OfferID:       uuid.New(),
		AverageRating: decimal.NewFromInt(5),
		ReviewsCount:  1,
		Distribution:  domain.RatingDistribution{Rating5: 1},
		UpdatedAt:     time.Now().UTC(),
	}
	c.SetRating(ctx, cached)
	missing := uuid.New()

	got := c.GetRatings(ctx, []uuid.UUID{cached.OfferID, missing})
	require.Len(t, got, 1)
	assert.Contains(t, got, cached.OfferID)
	assert.NotContains(t, got, missing)
}

func TestUGCCacheCorruptEntryDropped(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCache(t)
	id := uuid.New()

	require.NoError(t, store.Set(ctx, ReviewKey(id), []byte("{not json"), time.Minute))

	assert.Nil(t, c.GetReview(ctx, id))

	// The corrupt entry must be evicted, not served again.
	_, err := store.Get(ctx, ReviewKey(id))
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestUGCCacheInvalidateOffer(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	offerID := uuid.New()

	c.SetRating(ctx, &domain.RatingAggregate{OfferID: offerID, AverageRating: decimal.NewFromInt(3), ReviewsCount: 1})
	c.SetReviewsCount(ctx, offerID, 1)

	c.InvalidateOffer(ctx, offerID)

	assert.Nil(t, c.GetRating(ctx, offerID))
	_, ok := c.GetReviewsCount(ctx, offerID)
	assert.False(t, ok)
}

func TestUGCCacheReviewsCount(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	offerID := uuid.New()

	_, ok := c.GetReviewsCount(ctx, offerID)
	assert.False(t, ok)

	c.SetReviewsCount(ctx, offerID, 42)

	count, ok := c.GetReviewsCount(ctx, offerID)
	assert.True(t, ok)
	assert.Equal(t, 42, count)
}
