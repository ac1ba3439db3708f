// Package postgres implements review and rating persistence on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/motorplace/ugc-service/internal/cursor"
	"github.com/motorplace/ugc-service/internal/domain"
	"github.com/motorplace/ugc-service/pkg/database"
	apperrors "github.com/motorplace/ugc-service/pkg/errors"
)

// psql builds queries with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const reviewColumns = "id, offer_id, author_id, rating, text, created_at, updated_at, is_moderated, moderation_status"

// ReviewRepository implements review persistence operations using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, offer_id, author_id, rating, text, created_at, updated_at, is_moderated, moderation_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ctx, end := database.TraceQuery(ctx, "CreateReview", query)
	_, err := r.pool.Exec(ctx, query,
		review.ID,
		review.OfferID,
		review.AuthorID,
		review.Rating,
		review.Text,
		review.CreatedAt,
		review.UpdatedAt,
		review.IsModerated,
		review.ModerationStatus.String(),
	)
	end(err)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID returns a single review or a REVIEW_NOT_FOUND error.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	query := fmt.Sprintf("SELECT %s FROM reviews WHERE id = $1", reviewColumns)

	ctx, end := database.TraceQuery(ctx, "GetReview", query)
	review, err := scanReview(r.pool.QueryRow(ctx, query, id))
	end(err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ReviewNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// GetByIDs returns the reviews matching the given IDs. Missing IDs are
// silently absent from the result.
func (r *ReviewRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Review, error) {
	if len(ids) == 0 {
		return []domain.Review{}, nil
	}

	query := fmt.Sprintf("SELECT %s FROM reviews WHERE id = ANY($1)", reviewColumns)

	ctx, end := database.TraceQuery(ctx, "GetReviews", query)
	rows, err := r.pool.Query(ctx, query, ids)
	end(err)
	if err != nil {
		return nil, fmt.Errorf("get reviews by ids: %w", err)
	}
	defer rows.Close()

	return collectReviews(rows)
}

// List returns reviews matching the filter in (created_at DESC, id DESC)
// order, plus the total number of matching rows.
func (r *ReviewRepository) List(ctx context.Context, filter domain.ReviewsFilter, limit, offset int) ([]domain.Review, int, error) {
	builder := applyFilter(psql.
		Select(reviewColumns).
		Column("count(*) OVER() AS total_count").
		From("reviews"), filter).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "ListReviews", query)
	rows, err := r.pool.Query(ctx, query, args...)
	end(err)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)

	for rows.Next() {
		var rv domain.Review
		var status string
		if err := rows.Scan(
			&rv.ID, &rv.OfferID, &rv.AuthorID, &rv.Rating, &rv.Text,
			&rv.CreatedAt, &rv.UpdatedAt, &rv.IsModerated, &status,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		rv.ModerationStatus = domain.ModerationStatus(status)
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	return reviews, totalCount, nil
}

// ListAfterCursor returns up to limit reviews strictly after the cursor
// position in (created_at DESC, id DESC) order. A nil cursor starts from the
// newest review. The caller over-fetches by one row to detect a next page.
func (r *ReviewRepository) ListAfterCursor(ctx context.Context, filter domain.ReviewsFilter, after *cursor.Cursor, limit int) ([]domain.Review, error) {
	builder := applyFilter(psql.
		Select(reviewColumns).
		From("reviews"), filter).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))

	if after != nil {
		builder = builder.Where(sq.Expr("(created_at, id) < (?, ?)", after.CreatedAt, after.ID))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build cursor query: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "ListReviewsAfterCursor", query)
	rows, err := r.pool.Query(ctx, query, args...)
	end(err)
	if err != nil {
		return nil, fmt.Errorf("list reviews after cursor: %w", err)
	}
	defer rows.Close()

	return collectReviews(rows)
}

// HasRowsBefore reports whether any review matching the filter sorts before
// the given position, i.e. whether a previous page exists.
func (r *ReviewRepository) HasRowsBefore(ctx context.Context, filter domain.ReviewsFilter, ref cursor.Cursor) (bool, error) {
	builder := applyFilter(psql.
		Select("1").
		From("reviews"), filter).
		Where(sq.Expr("(created_at, id) > (?, ?)", ref.CreatedAt, ref.ID)).
		Limit(1)

	query, args, err := builder.ToSql()
	if err != nil {
		return false, fmt.Errorf("build existence query: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "HasReviewsBefore", query)
	var one int
	err = r.pool.QueryRow(ctx, query, args...).Scan(&one)
	end(err)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check rows before cursor: %w", err)
	}
	return true, nil
}

// Count returns the number of reviews matching the filter.
func (r *ReviewRepository) Count(ctx context.Context, filter domain.ReviewsFilter) (int, error) {
	query, args, err := applyFilter(psql.
		Select("count(*)").
		From("reviews"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "CountReviews", query)
	var count int
	err = r.pool.QueryRow(ctx, query, args...).Scan(&count)
	end(err)
	if err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return count, nil
}

// Update persists new rating/text values and returns the updated review.
func (r *ReviewRepository) Update(ctx context.Context, id uuid.UUID, input domain.UpdateReviewInput) (*domain.Review, error) {
	builder := psql.
		Update("reviews").
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + reviewColumns)

	if input.Rating != nil {
		builder = builder.Set("rating", *input.Rating)
	}
	if input.Text != nil {
		builder = builder.Set("text", *input.Text)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update query: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "UpdateReview", query)
	review, err := scanReview(r.pool.QueryRow(ctx, query, args...))
	end(err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ReviewNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	return review, nil
}

// Delete removes a review. Returns REVIEW_NOT_FOUND if no row matched.
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := "DELETE FROM reviews WHERE id = $1"

	ctx, end := database.TraceQuery(ctx, "DeleteReview", query)
	tag, err := r.pool.Exec(ctx, query, id)
	end(err)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ReviewNotFound(id)
	}
	return nil
}

// SetModerationStatus transitions a review's moderation state and returns
// the updated review. Any transition marks the review as moderated.
func (r *ReviewRepository) SetModerationStatus(ctx context.Context, id uuid.UUID, status domain.ModerationStatus) (*domain.Review, error) {
	query := fmt.Sprintf(`
		UPDATE reviews
		SET moderation_status = $2, is_moderated = true, updated_at = now()
		WHERE id = $1
		RETURNING %s`, reviewColumns)

	ctx, end := database.TraceQuery(ctx, "SetModerationStatus", query)
	review, err := scanReview(r.pool.QueryRow(ctx, query, id, status.String()))
	end(err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ReviewNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("set moderation status: %w", err)
	}
	return review, nil
}

// applyFilter adds WHERE clauses for each set filter field.
func applyFilter(builder sq.SelectBuilder, f domain.ReviewsFilter) sq.SelectBuilder {
	if f.OfferID != nil {
		builder = builder.Where(sq.Eq{"offer_id": *f.OfferID})
	}
	if f.AuthorID != nil {
		builder = builder.Where(sq.Eq{"author_id": *f.AuthorID})
	}
	if f.MinRating != nil {
		builder = builder.Where(sq.GtOrEq{"rating": *f.MinRating})
	}
	if f.MaxRating != nil {
		builder = builder.Where(sq.LtOrEq{"rating": *f.MaxRating})
	}
	if f.ModeratedOnly != nil && *f.ModeratedOnly {
		builder = builder.Where(sq.Eq{"is_moderated": true})
	}
	if f.ModerationStatus != nil {
		builder = builder.Where(sq.Eq{"moderation_status": f.ModerationStatus.String()})
	}
	return builder
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rv domain.Review
	var status string
	if err := row.Scan(
		&rv.ID, &rv.OfferID, &rv.AuthorID, &rv.Rating, &rv.Text,
		&rv.CreatedAt, &rv.UpdatedAt, &rv.IsModerated, &status,
	); err != nil {
		return nil, err
	}
	rv.ModerationStatus = domain.ModerationStatus(status)
	return &rv, nil
}

func collectReviews(rows pgx.Rows) ([]domain.Review, error) {
	var reviews []domain.Review
	for rows.Next() {
		var rv domain.Review
		var status string
		if err := rows.Scan(
			&rv.ID, &rv.OfferID, &rv.AuthorID, &rv.Rating, &rv.Text,
			&rv.CreatedAt, &rv.UpdatedAt, &rv.IsModerated, &status,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		rv.ModerationStatus = domain.ModerationStatus(status)
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}
	return reviews, nil
}
