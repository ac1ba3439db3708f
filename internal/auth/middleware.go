package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/motorplace/ugc-service/pkg/errors"
	"github.com/motorplace/ugc-service/pkg/logger"
)

// Claims are the JWT claims this service understands. The subject carries
// the user ID.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens into identities.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for HMAC-signed tokens.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a compact JWT. Expired tokens are reported
// distinctly from otherwise invalid ones.
func (v *Verifier) Verify(tokenStr string) (Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Anonymous(), apperrors.TokenExpired()
		}
		return Anonymous(), apperrors.InvalidToken("token verification failed")
	}
	if !token.Valid {
		return Anonymous(), apperrors.InvalidToken("token is not valid")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Anonymous(), apperrors.InvalidToken("token subject is not a user id")
	}

	return Identity{
		UserID:          userID,
		Roles:           claims.Roles,
		IsAuthenticated: true,
	}, nil
}

// Middleware extracts the bearer token, verifies it, and stores the
// resulting identity in context. A missing Authorization header yields the
// anonymous identity rather than a rejection: read operations are public and
// anonymous callers are still rate limited under a shared bucket. A present
// but bad token is rejected.
func Middleware(verifier *Verifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), Anonymous())))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeAuthError(w, apperrors.InvalidToken("invalid authorization header format"))
				return
			}

			identity, err := verifier.Verify(parts[1])
			if err != nil {
				log.WarnContext(r.Context(), "token rejected",
					slog.String("error", err.Error()),
				)
				writeAuthError(w, err)
				return
			}

			ctx := WithContext(r.Context(), identity)
			ctx = logger.WithUserID(ctx, identity.UserID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthError responds with the GraphQL error envelope so clients see a
// consistent shape regardless of which layer rejected the request.
func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperrors.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":   nil,
		"errors": []apperrors.GraphQLError{apperrors.ToGraphQL(err)},
	})
}
