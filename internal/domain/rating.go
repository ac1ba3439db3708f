package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RatingDistribution counts reviews per star value.
type RatingDistribution struct {
	Rating1 int `json:"1"`
	Rating2 int `json:"2"`
	Rating3 int `json:"3"`
	Rating4 int `json:"4"`
	Rating5 int `json:"5"`
}

// TotalReviews returns the sum over all star buckets.
func (d RatingDistribution) TotalReviews() int {
	return d.Rating1 + d.Rating2 + d.Rating3 + d.Rating4 + d.Rating5
}

// Count returns the bucket for the given star value (1..5), or 0 for any
// other value.
func (d RatingDistribution) Count(rating int) int {
	switch rating {
	case 1:
		return d.Rating1
	case 2:
		return d.Rating2
	case 3:
		return d.Rating3
	case 4:
		return d.Rating4
	case 5:
		return d.Rating5
	}
	return 0
}

// RatingAggregate is the precomputed rating summary for one offer. The
// average is stored as a decimal so repeated recomputation never drifts the
// way binary floating point would.
type RatingAggregate struct {
	OfferID       uuid.UUID          `json:"offer_id"`
	AverageRating decimal.Decimal    `json:"average_rating"`
	ReviewsCount  int                `json:"reviews_count"`
	Distribution  RatingDistribution `json:"rating_distribution"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// AverageRatingF64 returns the average as a float for GraphQL serialization.
func (a *RatingAggregate) AverageRatingF64() float64 {
	f, _ := a.AverageRating.Float64()
	return f
}

// IsFresh reports whether the aggregate was recomputed within the last hour.
func (a *RatingAggregate) IsFresh() bool {
	return a.UpdatedAt.After(time.Now().Add(-time.Hour))
}

// RatingPercentages returns the share of reviews per star value as
// percentages. An aggregate with no reviews yields an empty map.
func (a *RatingAggregate) RatingPercentages() map[int]float64 {
	if a.ReviewsCount == 0 {
		return map[int]float64{}
	}

	total := float64(a.ReviewsCount)
	percentages := make(map[int]float64, 5)
	for star := 1; star <= 5; star++ {
		percentages[star] = float64(a.Distribution.Count(star)) / total * 100.0
	}
	return percentages
}
