package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ratingInput struct {
	OfferID string `validate:"required,uuid"`
	Rating  int    `validate:"gte=1,lte=5"`
	Text    string `validate:"max=10"`
}

func TestValidate_Valid(t *testing.T) {
	in := ratingInput{
		OfferID: "3f1d2c7e-8a4b-4c9d-9e0f-1a2b3c4d5e6f",
		Rating:  4,
		Text:    "good",
	}
	assert.NoError(t, Validate(in))
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	in := ratingInput{
		OfferID: "not-a-uuid",
		Rating:  6,
		Text:    "way too long for the limit",
	}

	err := Validate(in)
	require.Error(t, err)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))

	fields := vErr.Fields()
	assert.Equal(t, "must be a valid UUID", fields["OfferID"])
	assert.Equal(t, "must be less than or equal to 5", fields["Rating"])
	assert.Equal(t, "must be at most 10 characters", fields["Text"])
}

func TestValidate_RequiredMessage(t *testing.T) {
	err := Validate(ratingInput{Rating: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'OfferID' is required")
}
