package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/motorplace/ugc-service/pkg/errors"
	"github.com/motorplace/ugc-service/pkg/httpclient"
)

// User is the subset of the users service profile this service reads.
type User struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

const unknownUserName = "Unknown User"

// UserClient resolves review authors against the users service. Author
// display data is decoration on top of a review, so every failure path
// degrades to a placeholder profile rather than an error.
type UserClient struct {
	baseURL string
	client  *httpclient.CircuitBreakerClient
	logger  *slog.Logger
}

func NewUserClient(baseURL string, client *httpclient.Client, logger *slog.Logger) *UserClient {
	cb := httpclient.NewCircuitBreakerClient(client, httpclient.DefaultCircuitBreakerConfig("users"), logger)
	return &UserClient{baseURL: baseURL, client: cb, logger: logger}
}

func (c *UserClient) GetUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	resp, err := c.client.Get(ctx, fmt.Sprintf("%s/users/%s", c.baseURL, userID))
	if err != nil {
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			c.logger.WarnContext(ctx, "users circuit open, serving placeholder",
				slog.String("user_id", userID.String()))
			return &User{ID: userID, Name: unknownUserName}, nil
		}
		return nil, apperrors.Unavailable("users", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "users")
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, apperrors.Unavailable("users", fmt.Errorf("decode user: %w", err))
	}
	return &user, nil
}
