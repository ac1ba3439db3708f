package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/motorplace/ugc-service/internal/domain"
	"github.com/motorplace/ugc-service/pkg/database"
)

// RatingRepository persists precomputed offer rating aggregates.
type RatingRepository struct {
	pool database.DBTX
}

// NewRatingRepository creates a new PostgreSQL-backed rating repository.
func NewRatingRepository(pool database.DBTX) *RatingRepository {
	return &RatingRepository{pool: pool}
}

const ratingColumns = "offer_id, average_rating::text, reviews_count, rating_distribution, updated_at"

// GetRating returns the stored aggregate for an offer, or nil when the offer
// has no visible reviews.
func (r *RatingRepository) GetRating(ctx context.Context, offerID uuid.UUID) (*domain.RatingAggregate, error) {
	query := fmt.Sprintf("SELECT %s FROM offer_ratings WHERE offer_id = $1", ratingColumns)

	ctx, end := database.TraceQuery(ctx, "GetRating", query)
	agg, err := scanRating(r.pool.QueryRow(ctx, query, offerID))
	end(err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get offer rating: %w", err)
	}
	return agg, nil
}

// GetRatings returns stored aggregates for several offers keyed by offer ID.
// Offers without an aggregate are absent from the result.
func (r *RatingRepository) GetRatings(ctx context.Context, offerIDs []uuid.UUID) (map[uuid.UUID]*domain.RatingAggregate, error) {
	if len(offerIDs) == 0 {
		return map[uuid.UUID]*domain.RatingAggregate{}, nil
	}

	query := fmt.Sprintf("SELECT %s FROM offer_ratings WHERE offer_id = ANY($1)", ratingColumns)

	ctx, end := database.TraceQuery(ctx, "GetRatings", query)
	rows, err := r.pool.Query(ctx, query, offerIDs)
	end(err)
	if err != nil {
		return nil, fmt.Errorf("get offer ratings: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]*domain.RatingAggregate, len(offerIDs))
	for rows.Next() {
		agg, err := scanRating(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer rating: %w", err)
		}
		out[agg.OfferID] = agg
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offer ratings: %w", err)
	}
	return out, nil
}

// Recompute derives the aggregate from visible reviews (moderated and not
// rejected) and upserts it. When the offer has no visible reviews the stored
// aggregate is removed and nil is returned: an offer with no reviews has no
// rating, not a zero rating.
func (r *RatingRepository) Recompute(ctx context.Context, offerID uuid.UUID) (*domain.RatingAggregate, error) {
	statsQuery := `
		SELECT
			COUNT(*),
			COALESCE(ROUND(AVG(rating)::numeric, 2), 0)::text,
			COUNT(*) FILTER (WHERE rating = 1),
			COUNT(*) FILTER (WHERE rating = 2),
			COUNT(*) FILTER (WHERE rating = 3),
			COUNT(*) FILTER (WHERE rating = 4),
			COUNT(*) FILTER (WHERE rating = 5)
		FROM reviews
		WHERE offer_id = $1 AND is_moderated = true AND moderation_status != 'rejected'`

	var (
		count  int
		avgStr string
		dist   domain.RatingDistribution
	)
	ctx, end := database.TraceQuery(ctx, "RecomputeRating", statsQuery)
	err := r.pool.QueryRow(ctx, statsQuery, offerID).Scan(
		&count, &avgStr,
		&dist.Rating1, &dist.Rating2, &dist.Rating3, &dist.Rating4, &dist.Rating5,
	)
	end(err)
	if err != nil {
		return nil, fmt.Errorf("compute rating stats: %w", err)
	}

	if count == 0 {
		if _, err := r.pool.Exec(ctx, "DELETE FROM offer_ratings WHERE offer_id = $1", offerID); err != nil {
			return nil, fmt.Errorf("delete empty rating: %w", err)
		}
		return nil, nil
	}

	avg, err := decimal.NewFromString(avgStr)
	if err != nil {
		return nil, fmt.Errorf("parse average rating %q: %w", avgStr, err)
	}

	distJSON, err := json.Marshal(dist)
	if err != nil {
		return nil, fmt.Errorf("marshal rating distribution: %w", err)
	}

	upsert := `
		INSERT INTO offer_ratings (offer_id, average_rating, reviews_count, rating_distribution, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (offer_id) DO UPDATE SET
			average_rating = EXCLUDED.average_rating,
			reviews_count = EXCLUDED.reviews_count,
			rating_distribution = EXCLUDED.rating_distribution,
			updated_at = EXCLUDED.updated_at`

	updatedAt := time.Now().UTC()
	if _, err := r.pool.Exec(ctx, upsert, offerID, avg.String(), count, distJSON, updatedAt); err != nil {
		return nil, fmt.Errorf("upsert offer rating: %w", err)
	}

	return &domain.RatingAggregate{
		OfferID:       offerID,
		AverageRating: avg,
		ReviewsCount:  count,
		Distribution:  dist,
		UpdatedAt:     updatedAt,
	}, nil
}

func scanRating(row pgx.Row) (*domain.RatingAggregate, error) {
	var (
		agg      domain.RatingAggregate
		avgStr   string
		distJSON []byte
	)
	if err := row.Scan(&agg.OfferID, &avgStr, &agg.ReviewsCount, &distJSON, &agg.UpdatedAt); err != nil {
		return nil, err
	}

	avg, err := decimal.NewFromString(avgStr)
	if err != nil {
		return nil, fmt.Errorf("parse average rating %q: %w", avgStr, err)
	}
	agg.AverageRating = avg

	if len(distJSON) > 0 {
		if err := json.Unmarshal(distJSON, &agg.Distribution); err != nil {
			return nil, fmt.Errorf("unmarshal rating distribution: %w", err)
		}
	}
	return &agg, nil
}
