package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/motorplace/ugc-service/internal/auth"
	"github.com/motorplace/ugc-service/internal/cursor"
	"github.com/motorplace/ugc-service/internal/domain"
	apperrors "github.com/motorplace/ugc-service/pkg/errors"
)

// ListReviews returns one page of reviews matching the filter, newest first.
// A nil cursor serves the first page in offset mode with a total count;
// subsequent pages use keyset pagination and skip the count.
func (s *ReviewService) ListReviews(ctx context.Context, first *int, after *string, filter domain.ReviewsFilter) (*ReviewConnection, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	limit := clampPageSize(first)

	if after == nil {
		return s.listOffset(ctx, filter, limit)
	}
	return s.listCursor(ctx, filter, limit, *after)
}

func (s *ReviewService) listOffset(ctx context.Context, filter domain.ReviewsFilter, limit int) (*ReviewConnection, error) {
	reviews, total, err := s.reviews.List(ctx, filter, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	conn := buildConnection(reviews)
	conn.TotalCount = total
	conn.PageInfo.HasNextPage = len(reviews) == limit && total > limit
	conn.PageInfo.HasPreviousPage = false
	return conn, nil
}

func (s *ReviewService) listCursor(ctx context.Context, filter domain.ReviewsFilter, limit int, after string) (*ReviewConnection, error) {
	cur, err := cursor.Decode(after)
	if err != nil {
		return nil, err
	}

	// Over-fetch by one row to learn whether a next page exists without a
	// count query.
	reviews, err := s.reviews.ListAfterCursor(ctx, filter, &cur, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list reviews after cursor: %w", err)
	}

	hasNext := len(reviews) > limit
	if hasNext {
		reviews = reviews[:limit]
	}

	hasPrev, err := s.reviews.HasRowsBefore(ctx, filter, cur)
	if err != nil {
		return nil, fmt.Errorf("probe previous page: %w", err)
	}

	conn := buildConnection(reviews)
	conn.PageInfo.HasNextPage = hasNext
	conn.PageInfo.HasPreviousPage = hasPrev
	return conn, nil
}

func buildConnection(reviews []domain.Review) *ReviewConnection {
	edges := make([]ReviewEdge, len(reviews))
	for i, r := range reviews {
		edges[i] = ReviewEdge{
			Cursor: cursor.Encode(r.CreatedAt, r.ID),
			Node:   r,
		}
	}

	conn := &ReviewConnection{Edges: edges}
	if len(edges) > 0 {
		conn.PageInfo.StartCursor = &edges[0].Cursor
		conn.PageInfo.EndCursor = &edges[len(edges)-1].Cursor
	}
	return conn
}

// GetReview returns a single review by ID, served from cache when possible.
func (s *ReviewService) GetReview(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	if cached := s.cache.GetReview(ctx, id); cached != nil {
		return cached, nil
	}

	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.SetReview(ctx, review)
	return review, nil
}

// CreateReview validates and stores a new review for the authenticated
// caller. New reviews start unmoderated and pending; they become visible to
// readers only after moderation approves them.
func (s *ReviewService) CreateReview(ctx context.Context, identity auth.Identity, input domain.CreateReviewInput) (*domain.Review, error) {
	if !identity.IsAuthenticated {
		return nil, apperrors.InvalidToken("authentication required to create a review")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	// Probe the offers directory. A definitive "no such offer" rejects the
	// review; a probe failure does not, reviews must survive offer service
	// outages.
	if s.offers != nil {
		exists, err := s.offers.OfferExists(ctx, input.OfferID)
		if err != nil {
			s.logger.WarnContext(ctx, "offer existence probe failed, accepting review",
				slog.String("offer_id", input.OfferID.String()),
				slog.String("error", err.Error()),
			)
		} else if !exists {
			return nil, apperrors.Validation(fmt.Sprintf("offer %s does not exist", input.OfferID))
		}
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:               uuid.New(),
		OfferID:          input.OfferID,
		AuthorID:         identity.UserID,
		Rating:           input.Rating,
		Text:             input.Text,
		CreatedAt:        now,
		UpdatedAt:        now,
		IsModerated:      false,
		ModerationStatus: domain.ModerationPending,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID.String()),
		slog.String("offer_id", review.OfferID.String()),
		slog.Int("rating", review.Rating),
	)

	s.afterWrite(ctx, review)
	if s.events != nil {
		s.events.ReviewCreated(ctx, review)
	}
	return review, nil
}

// UpdateReview applies new rating/text values. Only the author or a
// moderator may update a review.
func (s *ReviewService) UpdateReview(ctx context.Context, identity auth.Identity, id uuid.UUID, input domain.UpdateReviewInput) (*domain.Review, error) {
	if !identity.IsAuthenticated {
		return nil, apperrors.InvalidToken("authentication required to update a review")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != identity.UserID && !identity.IsModerator() {
		return nil, apperrors.NotReviewAuthor(identity.UserID, id)
	}

	if input.IsEmpty() {
		return existing, nil
	}

	updated, err := s.reviews.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", id.String()),
	)

	s.afterWrite(ctx, updated)
	if s.events != nil {
		s.events.ReviewUpdated(ctx, updated)
	}
	return updated, nil
}

// DeleteReview removes a review. Only the author or a moderator may delete.
func (s *ReviewService) DeleteReview(ctx context.Context, identity auth.Identity, id uuid.UUID) (bool, error) {
	if !identity.IsAuthenticated {
		return false, apperrors.InvalidToken("authentication required to delete a review")
	}

	existing, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if existing.AuthorID != identity.UserID && !identity.IsModerator() {
		return false, apperrors.NotReviewAuthor(identity.UserID, id)
	}

	if err := s.reviews.Delete(ctx, id); err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", id.String()),
	)

	s.afterWrite(ctx, existing)
	if s.events != nil {
		s.events.ReviewDeleted(ctx, existing)
	}
	return true, nil
}

// ModerateReview transitions a review's moderation state. Moderator only.
func (s *ReviewService) ModerateReview(ctx context.Context, identity auth.Identity, id uuid.UUID, status domain.ModerationStatus) (*domain.Review, error) {
	if !identity.IsAuthenticated {
		return nil, apperrors.InvalidToken("authentication required to moderate a review")
	}
	if !identity.IsModerator() {
		return nil, apperrors.InsufficientPermissions(auth.RoleModerator)
	}
	if !status.IsValid() {
		return nil, apperrors.Validation(fmt.Sprintf("invalid moderation status %q", status))
	}

	review, err := s.reviews.SetModerationStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "review moderated",
		slog.String("review_id", id.String()),
		slog.String("status", status.String()),
	)

	s.afterWrite(ctx, review)
	if s.events != nil {
		s.events.ReviewModerated(ctx, review)
	}
	return review, nil
}

// afterWrite keeps derived state consistent after any review mutation: the
// offer's cached values are dropped and its aggregate recomputed.
func (s *ReviewService) afterWrite(ctx context.Context, review *domain.Review) {
	s.cache.InvalidateReview(ctx, review.ID)
	s.cache.InvalidateOffer(ctx, review.OfferID)

	if _, err := s.recomputeRating(ctx, review.OfferID); err != nil {
		s.logger.ErrorContext(ctx, "rating recompute failed",
			slog.String("offer_id", review.OfferID.String()),
			slog.String("error", err.Error()),
		)
	}
}
