package graphql

import (
	"time"

	"github.com/google/uuid"

	"github.com/motorplace/ugc-service/internal/domain"
	"github.com/motorplace/ugc-service/internal/service"
)

// Wire models for the GraphQL surface. Domain types serialize snake_case
// for storage and events; the API speaks camelCase, so the surface carries
// its own view structs.

type Review struct {
	ID               uuid.UUID `json:"id"`
	OfferID          uuid.UUID `json:"offerId"`
	AuthorID         uuid.UUID `json:"authorId"`
	Rating           int       `json:"rating"`
	Text             string    `json:"text"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	IsModerated      bool      `json:"isModerated"`
	ModerationStatus string    `json:"moderationStatus"`
}

type ReviewEdge struct {
	Cursor string `json:"cursor"`
	Node   Review `json:"node"`
}

type PageInfo struct {
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
	StartCursor     *string `json:"startCursor"`
	EndCursor       *string `json:"endCursor"`
}

type ReviewConnection struct {
	Edges      []ReviewEdge `json:"edges"`
	PageInfo   PageInfo     `json:"pageInfo"`
	TotalCount int          `json:"totalCount"`
}

type RatingStats struct {
	OfferID       uuid.UUID       `json:"offerId"`
	AverageRating float64         `json:"averageRating"`
	ReviewsCount  int             `json:"reviewsCount"`
	Distribution  map[string]int  `json:"distribution"`
	Percentages   map[int]float64 `json:"percentages"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func newReview(r domain.Review) Review {
	return Review{
		ID:               r.ID,
		OfferID:          r.OfferID,
		AuthorID:         r.AuthorID,
		Rating:           r.Rating,
		Text:             r.Text,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		IsModerated:      r.IsModerated,
		ModerationStatus: r.ModerationStatus.String(),
	}
}

func newConnection(conn *service.ReviewConnection) ReviewConnection {
	edges := make([]ReviewEdge, 0, len(conn.Edges))
	for _, e := range conn.Edges {
		edges = append(edges, ReviewEdge{Cursor: e.Cursor, Node: newReview(e.Node)})
	}
	return ReviewConnection{
		Edges: edges,
		PageInfo: PageInfo{
			HasNextPage:     conn.PageInfo.HasNextPage,
			HasPreviousPage: conn.PageInfo.HasPreviousPage,
			StartCursor:     conn.PageInfo.StartCursor,
			EndCursor:       conn.PageInfo.EndCursor,
		},
		TotalCount: conn.TotalCount,
	}
}

// newRatingStats maps an aggregate to the API shape. A nil aggregate (offer
// without visible reviews) maps to nil so the field resolves to null.
func newRatingStats(agg *domain.RatingAggregate) *RatingStats {
	if agg == nil {
		return nil
	}
	return &RatingStats{
		OfferID:       agg.OfferID,
		AverageRating: agg.AverageRatingF64(),
		ReviewsCount:  agg.ReviewsCount,
		Distribution: map[string]int{
			"1": agg.Distribution.Rating1,
			"2": agg.Distribution.Rating2,
			"3": agg.Distribution.Rating3,
			"4": agg.Distribution.Rating4,
			"5": agg.Distribution.Rating5,
		},
		Percentages: agg.RatingPercentages(),
		UpdatedAt:   agg.UpdatedAt,
	}
}
