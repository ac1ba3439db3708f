// Package service implements the business logic for reviews and rating
// aggregates: listing with cursor pagination, the write path with
// authorization, and the cached aggregate read path.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/motorplace/ugc-service/internal/cache"
	"github.com/motorplace/ugc-service/internal/cursor"
	"github.com/motorplace/ugc-service/internal/domain"
)

// ReviewStore is the persistence surface the service needs for reviews.
// Implemented by postgres.ReviewRepository.
type ReviewStore interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Review, error)
	List(ctx context.Context, filter domain.ReviewsFilter, limit, offset int) ([]domain.Review, int, error)
	ListAfterCursor(ctx context.Context, filter domain.ReviewsFilter, after *cursor.Cursor, limit int) ([]domain.Review, error)
	HasRowsBefore(ctx context.Context, filter domain.ReviewsFilter, ref cursor.Cursor) (bool, error)
	Count(ctx context.Context, filter domain.ReviewsFilter) (int, error)
	Update(ctx context.Context, id uuid.UUID, input domain.UpdateReviewInput) (*domain.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetModerationStatus(ctx context.Context, id uuid.UUID, status domain.ModerationStatus) (*domain.Review, error)
}

// RatingStore is the persistence surface for rating aggregates.
// Implemented by postgres.RatingRepository.
type RatingStore interface {
	GetRating(ctx context.Context, offerID uuid.UUID) (*domain.RatingAggregate, error)
	GetRatings(ctx context.Context, offerIDs []uuid.UUID) (map[uuid.UUID]*domain.RatingAggregate, error)
	Recompute(ctx context.Context, offerID uuid.UUID) (*domain.RatingAggregate, error)
}

// EventPublisher emits review lifecycle events. Implementations must not
// fail the calling mutation; errors are logged internally.
type EventPublisher interface {
	ReviewCreated(ctx context.Context, review *domain.Review)
	ReviewUpdated(ctx context.Context, review *domain.Review)
	ReviewModerated(ctx context.Context, review *domain.Review)
	ReviewDeleted(ctx context.Context, review *domain.Review)
}

// OfferDirectory checks offer existence against the offers service.
type OfferDirectory interface {
	OfferExists(ctx context.Context, offerID uuid.UUID) (bool, error)
}

// ReviewService implements the review and rating operations.
type ReviewService struct {
	reviews ReviewStore
	ratings RatingStore
	cache   *cache.UGCCache
	events  EventPublisher
	offers  OfferDirectory
	logger  *slog.Logger

	// recomputeGroup collapses concurrent aggregate recomputes per offer.
	recomputeGroup singleflight.Group
}

// NewReviewService wires the service. events and offers may be nil; the
// corresponding side effects are skipped.
func NewReviewService(
	reviews ReviewStore,
	ratings RatingStore,
	ugcCache *cache.UGCCache,
	events EventPublisher,
	offers OfferDirectory,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		ratings: ratings,
		cache:   ugcCache,
		events:  events,
		offers:  offers,
		logger:  logger,
	}
}
