// Package auth parses caller identity from JWT bearer tokens and carries it
// through request context. Requests without credentials proceed as the
// anonymous identity; authorization decisions happen at the operation level.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// RoleModerator grants access to moderation operations.
const RoleModerator = "moderator"

// AnonymousKey is the shared rate limit bucket for unauthenticated callers.
const AnonymousKey = "anonymous"

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID          uuid.UUID
	Roles           []string
	IsAuthenticated bool
}

// Anonymous returns the identity used when no credentials are presented.
func Anonymous() Identity {
	return Identity{}
}

// HasRole reports whether the identity carries the given role.
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsModerator reports whether the identity may moderate reviews.
func (i Identity) IsModerator() bool {
	return i.HasRole(RoleModerator)
}

// Key returns the rate limit bucket for this identity. All anonymous
// callers share one bucket.
func (i Identity) Key() string {
	if !i.IsAuthenticated {
		return AnonymousKey
	}
	return i.UserID.String()
}

type contextKey struct{}

// WithContext stores the identity in the context.
func WithContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity from the context, or the anonymous
// identity when none was set.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(contextKey{}).(Identity); ok {
		return id
	}
	return Anonymous()
}
