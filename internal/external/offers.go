// Package external holds clients for the directories this service consults:
// the offers catalog and the users service. Both sit behind circuit
// breakers; when a directory is down the clients degrade to placeholder
// data rather than failing the review path.
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

// Offer is the subset of the offers catalog entry this service reads.
type Offer struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

const unknownOfferTitle = "Unknown Offer"

// OfferClient looks up offers in the catalog service.
type OfferClient struct {
	baseURL string
	client  *httpclient.CircuitBreakerClient
	logger  *slog.Logger
}

func NewOfferClient(baseURL string, client *httpclient.Client, logger *slog.Logger) *OfferClient {
	cb := httpclient.NewCircuitBreakerClient(client, httpclient.DefaultCircuitBreakerConfig("offers"), logger)
	return &OfferClient{baseURL: baseURL, client: cb, logger: logger}
}

// GetOffer fetches one offer. When the breaker is open the caller gets a
// placeholder entry instead of an error, so review payloads can still
// render around a degraded catalog.
func (c *OfferClient) GetOffer(ctx context.Context, offerID uuid.UUID) (*Offer, error) {
	resp, err := c.client.Get(ctx, fmt.Sprintf("%s/offers/%s", c.baseURL, offerID))
	if err != nil {
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			c.logger.WarnContext(ctx, "offers circuit open, serving placeholder",
				slog.String("offer_id", offerID.String()))
			return &Offer{ID: offerID, Title: unknownOfferTitle}, nil
		}
		return nil, apperrors.Unavailable("offers", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "offers")
	}

	var offer Offer
	if err := json.NewDecoder(resp.Body).Decode(&offer); err != nil {
		return nil, apperrors.Unavailable("offers", fmt.Errorf("decode offer: %w", err))
	}
	return &offer, nil
}

// OfferExists probes the catalog for an offer. It returns an error only
// when no definitive answer is available; the caller decides whether to
// treat that as fatal.
func (c *OfferClient) OfferExists(ctx context.Context, offerID uuid.UUID) (bool, error) {
	resp, err := c.client.Get(ctx, fmt.Sprintf("%s/offers/%s", c.baseURL, offerID))
	if err != nil {
		return false, apperrors.Unavailable("offers", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, httpclient.ParseResponseError(resp, "offers")
	}
}
