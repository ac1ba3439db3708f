package graphql

import (
	"context"
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/google/uuid"

	"github.com/motorplace/ugc-service/internal/auth"
	"github.com/motorplace/ugc-service/internal/external"
	"github.com/motorplace/ugc-service/internal/service"
	apperrors "github.com/motorplace/ugc-service/pkg/errors"
)

// UserDirectory resolves user profiles for the user root query.
type UserDirectory interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*external.User, error)
}

// OfferDirectory resolves offers for the offer root query.
type OfferDirectory interface {
	GetOffer(ctx context.Context, offerID uuid.UUID) (*external.Offer, error)
}

// Resolver dispatches root fields of this schema to the review service and
// the external directories. Field projection below the root is the
// execution engine's concern; each resolver returns the full wire model and
// lets serialization carry it.
type Resolver struct {
	svc    *service.ReviewService
	users  UserDirectory
	offers OfferDirectory
}

// NewResolver wires the resolver. users and offers may be nil; the
// corresponding root queries then report themselves unavailable.
func NewResolver(svc *service.ReviewService, users UserDirectory, offers OfferDirectory) *Resolver {
	return &Resolver{svc: svc, users: users, offers: offers}
}

// resolveField executes one root field of the given operation type.
func (r *Resolver) resolveField(ctx context.Context, opType ast.Operation, field *ast.Field, variables map[string]any) (any, error) {
	args := argumentMap(field, variables)

	if opType == ast.Mutation {
		return r.resolveMutation(ctx, field.Name, args)
	}
	return r.resolveQuery(ctx, field.Name, args)
}

var errNotConfigured = errors.New("directory not configured")

func (r *Resolver) resolveQuery(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "review":
		id, err := uuidArg(args, "id")
		if err != nil {
			return nil, err
		}
		review, err := r.svc.GetReview(ctx, id)
		if err != nil {
			return nil, err
		}
		out := newReview(*review)
		return &out, nil

	case "reviews":
		first, err := intArg(args, "first")
		if err != nil {
			return nil, err
		}
		after, err := stringArg(args, "after")
		if err != nil {
			return nil, err
		}
		filter, err := filterFromArgs(args)
		if err != nil {
			return nil, err
		}
		conn, err := r.svc.ListReviews(ctx, first, after, filter)
		if err != nil {
			return nil, err
		}
		return newConnection(conn), nil

	case "offerRatingStats":
		offerID, err := uuidArg(args, "offerId")
		if err != nil {
			return nil, err
		}
		agg, err := r.svc.GetOfferRating(ctx, offerID)
		if err != nil {
			return nil, err
		}
		return newRatingStats(agg), nil

	case "offerAverageRating":
		offerID, err := uuidArg(args, "offerId")
		if err != nil {
			return nil, err
		}
		return r.svc.GetOfferAverageRating(ctx, offerID)

	case "offerReviewsCount":
		offerID, err := uuidArg(args, "offerId")
		if err != nil {
			return nil, err
		}
		return r.svc.GetOfferReviewsCount(ctx, offerID)

	case "user":
		if r.users == nil {
			return nil, apperrors.Unavailable("users", errNotConfigured)
		}
		id, err := uuidArg(args, "id")
		if err != nil {
			return nil, err
		}
		return r.users.GetUser(ctx, id)

	case "offer":
		if r.offers == nil {
			return nil, apperrors.Unavailable("offers", errNotConfigured)
		}
		id, err := uuidArg(args, "id")
		if err != nil {
			return nil, err
		}
		return r.offers.GetOffer(ctx, id)
	}

	return nil, apperrors.Validation(fmt.Sprintf("unknown query field %q", name))
}

func (r *Resolver) resolveMutation(ctx context.Context, name string, args map[string]any) (any, error) {
	identity := auth.FromContext(ctx)

	switch name {
	case "createReview":
		input, err := createInputFromArgs(args)
		if err != nil {
			return nil, err
		}
		review, err := r.svc.CreateReview(ctx, identity, input)
		if err != nil {
			return nil, err
		}
		out := newReview(*review)
		return &out, nil

	case "updateReview":
		id, err := uuidArg(args, "id")
		if err != nil {
			return nil, err
		}
		input, err := updateInputFromArgs(args)
		if err != nil {
			return nil, err
		}
		review, err := r.svc.UpdateReview(ctx, identity, id, input)
		if err != nil {
			return nil, err
		}
		out := newReview(*review)
		return &out, nil

	case "deleteReview":
		id, err := uuidArg(args, "id")
		if err != nil {
			return nil, err
		}
		return r.svc.DeleteReview(ctx, identity, id)

	case "moderateReview":
		reviewID, status, err := moderateInputFromArgs(args)
		if err != nil {
			return nil, err
		}
		review, err := r.svc.ModerateReview(ctx, identity, reviewID, status)
		if err != nil {
			return nil, err
		}
		out := newReview(*review)
		return &out, nil
	}

	return nil, apperrors.Validation(fmt.Sprintf("unknown mutation field %q", name))
}
