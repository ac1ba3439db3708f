package service

import "github.com/motorplace/ugc-service/internal/domain"

// Pagination limits. Requests outside the range are clamped, not rejected.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ReviewEdge pairs a review with the cursor that pins its position.
type ReviewEdge struct {
	Cursor string        `json:"cursor"`
	Node   domain.Review `json:"node"`
}

// PageInfo describes the boundaries of one page.
type PageInfo struct {
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
	StartCursor     *string `json:"startCursor,omitempty"`
	EndCursor       *string `json:"endCursor,omitempty"`
}

// ReviewConnection is one page of reviews. TotalCount is only populated in
// offset mode; cursor-mode pages report zero rather than paying for a count
// query on every page.
type ReviewConnection struct {
	Edges      []ReviewEdge `json:"edges"`
	PageInfo   PageInfo     `json:"pageInfo"`
	TotalCount int          `json:"totalCount"`
}

// clampPageSize normalizes a requested page size into [1, MaxPageSize],
// defaulting when absent.
func clampPageSize(first *int) int {
	if first == nil {
		return DefaultPageSize
	}
	switch {
	case *first < 1:
		return 1
	case *first > MaxPageSize:
		return MaxPageSize
	}
	return *first
}
