package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/motorplace/ugc-service/pkg/errors"
	"github.com/motorplace/ugc-service/pkg/validator"
)

// ModerationStatus is the moderation lifecycle state of a review.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
	ModerationFlagged  ModerationStatus = "flagged"
)

// String returns the lowercase wire representation of the status.
func (s ModerationStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is one of the known states.
func (s ModerationStatus) IsValid() bool {
	switch s {
	case ModerationPending, ModerationApproved, ModerationRejected, ModerationFlagged:
		return true
	}
	return false
}

// ParseModerationStatus parses a case-insensitive status string.
func ParseModerationStatus(s string) (ModerationStatus, error) {
	status := ModerationStatus(strings.ToLower(s))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid moderation status: %q", s)
	}
	return status, nil
}

// Review represents a user review of an offer.
type Review struct {
	ID               uuid.UUID        `json:"id"`
	OfferID          uuid.UUID        `json:"offer_id"`
	AuthorID         uuid.UUID        `json:"author_id"`
	Rating           int              `json:"rating"`
	Text             string           `json:"text"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	IsModerated      bool             `json:"is_moderated"`
	ModerationStatus ModerationStatus `json:"moderation_status"`
}

// Visible reports whether the review should be served to readers: it has
// passed moderation and was not rejected.
func (r *Review) Visible() bool {
	return r.IsModerated && r.ModerationStatus != ModerationRejected
}

// CreateReviewInput carries the fields of a new review.
type CreateReviewInput struct {
	OfferID uuid.UUID `json:"offer_id" validate:"required"`
	Rating  int       `json:"rating" validate:"gte=1,lte=5"`
	Text    string    `json:"text" validate:"required,max=5000"`
}

// Validate runs the struct tags plus the one rule tags cannot express: the
// text must contain at least one non-whitespace character.
func (in *CreateReviewInput) Validate() error {
	if err := validator.Validate(in); err != nil {
		return apperrors.Validation(err.Error())
	}
	if strings.TrimSpace(in.Text) == "" {
		return apperrors.Validation("review text cannot be empty")
	}
	return nil
}

// UpdateReviewInput carries optional new values for an existing review.
// Nil fields are left unchanged.
type UpdateReviewInput struct {
	Rating *int    `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Text   *string `json:"text,omitempty" validate:"omitempty,max=5000"`
}

// Validate checks whichever fields are present.
func (in *UpdateReviewInput) Validate() error {
	if err := validator.Validate(in); err != nil {
		return apperrors.Validation(err.Error())
	}
	if in.Text != nil && strings.TrimSpace(*in.Text) == "" {
		return apperrors.Validation("review text cannot be empty")
	}
	return nil
}

// IsEmpty reports whether the update carries no changes.
func (in *UpdateReviewInput) IsEmpty() bool {
	return in.Rating == nil && in.Text == nil
}

// ReviewsFilter narrows a review listing. Nil fields match everything.
type ReviewsFilter struct {
	OfferID          *uuid.UUID        `json:"offer_id,omitempty"`
	AuthorID         *uuid.UUID        `json:"author_id,omitempty"`
	MinRating        *int              `json:"min_rating,omitempty"`
	MaxRating        *int              `json:"max_rating,omitempty"`
	ModeratedOnly    *bool             `json:"moderated_only,omitempty"`
	ModerationStatus *ModerationStatus `json:"moderation_status,omitempty"`
}

// Validate checks rating bounds on the filter.
func (f *ReviewsFilter) Validate() error {
	if f.MinRating != nil && (*f.MinRating < 1 || *f.MinRating > 5) {
		return apperrors.Validation("min_rating must be between 1 and 5")
	}
	if f.MaxRating != nil && (*f.MaxRating < 1 || *f.MaxRating > 5) {
		return apperrors.Validation("max_rating must be between 1 and 5")
	}
	if f.MinRating != nil && f.MaxRating != nil && *f.MinRating > *f.MaxRating {
		return apperrors.Validation("min_rating cannot exceed max_rating")
	}
	if f.ModerationStatus != nil && !f.ModerationStatus.IsValid() {
		return apperrors.Validation("invalid moderation status")
	}
	return nil
}
