package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/motorplace/ugc-service/internal/auth"
	"github.com/motorplace/ugc-service/internal/cache"
	"github.com/motorplace/ugc-service/internal/cursor"
	"github.com/motorplace/ugc-service/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mock Review Store ---

type mockReviewStore struct {
	mock.Mock
}

func (m *mockReviewStore) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Review, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewStore) List(ctx context.Context, filter domain.ReviewsFilter, limit, offset int) ([]domain.Review, int, error) {
	args := m.Called(ctx, filter, limit, offset)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewStore) ListAfterCursor(ctx context.Context, filter domain.ReviewsFilter, after *cursor.Cursor, limit int) ([]domain.Review, error) {
	args := m.Called(ctx, filter, after, limit)
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewStore) HasRowsBefore(ctx context.Context, filter domain.ReviewsFilter, ref cursor.Cursor) (bool, error) {
	args := m.Called(ctx, filter, ref)
	return args.Bool(0), args.Error(1)
}

func (m *mockReviewStore) Count(ctx context.Context, filter domain.ReviewsFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *mockReviewStore) Update(ctx context.Context, id uuid.UUID, input domain.UpdateReviewInput) (*domain.Review, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewStore) SetModerationStatus(ctx context.Context, id uuid.UUID, status domain.ModerationStatus) (*domain.Review, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

// --- Mock Rating Store ---

type mockRatingStore struct {
	mock.Mock
}

func (m *mockRatingStore) GetRating(ctx context.Context, offerID uuid.UUID) (*domain.RatingAggregate, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingAggregate), args.Error(1)
}

func (m *mockRatingStore) GetRatings(ctx context.Context, offerIDs []uuid.UUID) (map[uuid.UUID]*domain.RatingAggregate, error) {
	args := m.Called(ctx, offerIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*domain.RatingAggregate), args.Error(1)
}

func (m *mockRatingStore) Recompute(ctx context.Context, offerID uuid.UUID) (*domain.RatingAggregate, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingAggregate), args.Error(1)
}

// --- Mock Event Publisher ---

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) ReviewCreated(ctx context.Context, review *domain.Review)   { m.Called(ctx, review) }
func (m *mockEvents) ReviewUpdated(ctx context.Context, review *domain.Review)   { m.Called(ctx, review) }
func (m *mockEvents) ReviewModerated(ctx context.Context, review *domain.Review) { m.Called(ctx, review) }
func (m *mockEvents) ReviewDeleted(ctx context.Context, review *domain.Review)   { m.Called(ctx, review) }

// --- Mock Offer Directory ---

type mockOffers struct {
	mock.Mock
}

func (m *mockOffers) OfferExists(ctx context.Context, offerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, offerID)
	return args.Bool(0), args.Error(1)
}

// --- Test Helpers ---

type testDeps struct {
	reviews *mockReviewStore
	ratings *mockRatingStore
	events  *mockEvents
	offers  *mockOffers
	cache   *cache.UGCCache
}

func newTestService(t *testing.T) (*ReviewService, *testDeps) {
	t.Helper()
	deps := &testDeps{
		reviews: new(mockReviewStore),
		ratings: new(mockRatingStore),
		events:  new(mockEvents),
		offers:  new(mockOffers),
		cache:   cache.NewUGCCache(cache.NewMemoryStore(), newTestLogger()),
	}
	svc := NewReviewService(deps.reviews, deps.ratings, deps.cache, deps.events, deps.offers, newTestLogger())
	return svc, deps
}

func authorIdentity(userID uuid.UUID) auth.Identity {
	return auth.Identity{UserID: userID, IsAuthenticated: true}
}

func moderatorIdentity() auth.Identity {
	return auth.Identity{
		UserID:          uuid.New(),
		Roles:           []string{auth.RoleModerator},
		IsAuthenticated: true,
	}
}

func makeReviews(n int, offerID uuid.UUID, newest time.Time) []domain.Review {
	reviews := make([]domain.Review, n)
	for i := range reviews {
		reviews[i] = domain.Review{
			ID:               uuid.New(),
			OfferID:          offerID,
			AuthorID:         uuid.New(),
			Rating:           (i % 5) + 1,
			Text:             "review text",
			CreatedAt:        newest.Add(-time.Duration(i) * time.Minute),
			UpdatedAt:        newest.Add(-time.Duration(i) * time.Minute),
			IsModerated:      true,
			ModerationStatus: domain.ModerationApproved,
		}
	}
	return reviews
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }
