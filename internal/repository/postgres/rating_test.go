package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorplace/ugc-service/internal/domain"
)

var ratingCols = []string{
	"offer_id", "average_rating", "reviews_count", "rating_distribution", "updated_at",
}

func distJSON(t *testing.T, d domain.RatingDistribution) []byte {
	t.Helper()
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	return raw
}

func TestRatingRepository_GetRating_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewRatingRepository(mock)

	offerID := uuid.New()
	dist := domain.RatingDistribution{Rating4: 1, Rating5: 3}

	mock.ExpectQuery("SELECT .+ FROM offer_ratings WHERE offer_id").
		WithArgs(offerID).
		WillReturnRows(pgxmock.NewRows(ratingCols).
			AddRow(offerID, "4.75", 4, distJSON(t, dist), now))

	agg, err := repo.GetRating(context.Background(), offerID)
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.Equal(t, "4.75", agg.AverageRating.String())
	assert.Equal(t, 4, agg.ReviewsCount)
	assert.Equal(t, 3, agg.Distribution.Rating5)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepository_GetRating_Absent(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewRatingRepository(mock)

	offerID := uuid.New()
	mock.ExpectQuery("SELECT .+ FROM offer_ratings WHERE offer_id").
		WithArgs(offerID).
		WillReturnRows(pgxmock.NewRows(ratingCols))

	agg, err := repo.GetRating(context.Background(), offerID)
	require.NoError(t, err)
	assert.Nil(t, agg, "an offer without reviews has no aggregate")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepository_GetRatings_Batch(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewRatingRepository(mock)

	offerA := uuid.New()
	offerB := uuid.New()
	dist := domain.RatingDistribution{Rating5: 2}

	mock.ExpectQuery("SELECT .+ FROM offer_ratings WHERE offer_id = ANY").
		WithArgs([]uuid.UUID{offerA, offerB}).
		WillReturnRows(pgxmock.NewRows(ratingCols).
			AddRow(offerA, "5", 2, distJSON(t, dist), now))

	out, err := repo.GetRatings(context.Background(), []uuid.UUID{offerA, offerB})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, out, offerA)
	assert.NotContains(t, out, offerB)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepository_Recompute_Upserts(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewRatingRepository(mock)

	offerID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM reviews .+ is_moderated = true AND moderation_status != 'rejected'").
		WithArgs(offerID).
		WillReturnRows(pgxmock.NewRows([]string{"count", "avg", "r1", "r2", "r3", "r4", "r5"}).
			AddRow(4, "4.25", 0, 0, 1, 1, 2))

	mock.ExpectExec("INSERT INTO offer_ratings").
		WithArgs(offerID, "4.25", 4, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	agg, err := repo.Recompute(context.Background(), offerID)
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.Equal(t, "4.25", agg.AverageRating.String())
	assert.Equal(t, 4, agg.ReviewsCount)
	assert.Equal(t, domain.RatingDistribution{Rating3: 1, Rating4: 1, Rating5: 2}, agg.Distribution)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepository_Recompute_NoVisibleReviews(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewRatingRepository(mock)

	offerID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM reviews").
		WithArgs(offerID).
		WillReturnRows(pgxmock.NewRows([]string{"count", "avg", "r1", "r2", "r3", "r4", "r5"}).
			AddRow(0, "0", 0, 0, 0, 0, 0))

	mock.ExpectExec("DELETE FROM offer_ratings WHERE offer_id").
		WithArgs(offerID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	agg, err := repo.Recompute(context.Background(), offerID)
	require.NoError(t, err)
	assert.Nil(t, agg, "recompute over zero reviews must remove the aggregate")
	assert.NoError(t, mock.ExpectationsWereMet())
}
