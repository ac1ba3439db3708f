package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/motorplace/ugc-service/internal/domain"
)

// GetOfferRating returns the rating aggregate for an offer, or nil when the
// offer has no visible reviews. Read order: cache, stored aggregate,
// recompute. Cache entries are trusted for their TTL.
func (s *ReviewService) GetOfferRating(ctx context.Context, offerID uuid.UUID) (*domain.RatingAggregate, error) {
	if cached := s.cache.GetRating(ctx, offerID); cached != nil {
		return cached, nil
	}

	agg, err := s.ratings.GetRating(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		// No stored aggregate; derive one from the review rows.
		agg, err = s.recomputeRating(ctx, offerID)
		if err != nil {
			return nil, err
		}
	}

	if agg != nil {
		s.cache.SetRating(ctx, agg)
	}
	return agg, nil
}

// GetOfferAverageRating returns the average as a float, or 0 when the offer
// has no visible reviews.
func (s *ReviewService) GetOfferAverageRating(ctx context.Context, offerID uuid.UUID) (float64, error) {
	agg, err := s.GetOfferRating(ctx, offerID)
	if err != nil {
		return 0, err
	}
	if agg == nil {
		return 0, nil
	}
	return agg.AverageRatingF64(), nil
}

// GetOfferReviewsCount returns the number of visible reviews for an offer,
// cached separately from the aggregate under a shorter TTL.
func (s *ReviewService) GetOfferReviewsCount(ctx context.Context, offerID uuid.UUID) (int, error) {
	if count, ok := s.cache.GetReviewsCount(ctx, offerID); ok {
		return count, nil
	}

	moderated := true
	count, err := s.reviews.Count(ctx, domain.ReviewsFilter{
		OfferID:       &offerID,
		ModeratedOnly: &moderated,
	})
	if err != nil {
		return 0, err
	}

	s.cache.SetReviewsCount(ctx, offerID, count)
	return count, nil
}

// GetOfferRatings returns aggregates for several offers in one round trip,
// for batch resolution of offer lists. Offers without visible reviews are
// absent from the result.
func (s *ReviewService) GetOfferRatings(ctx context.Context, offerIDs []uuid.UUID) (map[uuid.UUID]*domain.RatingAggregate, error) {
	if len(offerIDs) == 0 {
		return map[uuid.UUID]*domain.RatingAggregate{}, nil
	}

	out := s.cache.GetRatings(ctx, offerIDs)
	if out == nil {
		out = make(map[uuid.UUID]*domain.RatingAggregate, len(offerIDs))
	}

	var missing []uuid.UUID
	for _, id := range offerIDs {
		if _, ok := out[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	stored, err := s.ratings.GetRatings(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, agg := range stored {
		out[id] = agg
		s.cache.SetRating(ctx, agg)
	}
	return out, nil
}

// recomputeRating rebuilds the aggregate for an offer from review rows.
// Concurrent recomputes for the same offer collapse into one query; every
// caller receives the shared result.
func (s *ReviewService) recomputeRating(ctx context.Context, offerID uuid.UUID) (*domain.RatingAggregate, error) {
	v, err, _ := s.recomputeGroup.Do(offerID.String(), func() (any, error) {
		return s.ratings.Recompute(ctx, offerID)
	})
	if err != nil {
		return nil, fmt.Errorf("recompute rating: %w", err)
	}

	agg, _ := v.(*domain.RatingAggregate)
	return agg, nil
}
