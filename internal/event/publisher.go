// Package event publishes review lifecycle events to Kafka. Downstream
// consumers (search indexing, notifications, offer ranking) react to these;
// the review mutation itself never waits on or fails with the broker.
package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/motorplace/ugc-service/internal/domain"
	"github.com/motorplace/ugc-service/pkg/kafka"
	"github.com/motorplace/ugc-service/pkg/logger"
)

const (
	TopicReviewCreated   = "ugc.review.created"
	TopicReviewUpdated   = "ugc.review.updated"
	TopicReviewModerated = "ugc.review.moderated"
	TopicReviewDeleted   = "ugc.review.deleted"

	aggregateType = "review"
	sourceName    = "ugc-service"
)

// ReviewEventData is the payload carried by every review event.
type ReviewEventData struct {
	ReviewID         uuid.UUID `json:"review_id"`
	OfferID          uuid.UUID `json:"offer_id"`
	AuthorID         uuid.UUID `json:"author_id"`
	Rating           int       `json:"rating"`
	ModerationStatus string    `json:"moderation_status"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// Publisher emits review events through the shared Kafka producer.
type Publisher struct {
	producer *kafka.Producer
	log      *slog.Logger
}

func NewPublisher(producer *kafka.Producer, log *slog.Logger) *Publisher {
	return &Publisher{producer: producer, log: log}
}

func (p *Publisher) ReviewCreated(ctx context.Context, review *domain.Review) {
	p.publish(ctx, TopicReviewCreated, "review.created", review)
}

func (p *Publisher) ReviewUpdated(ctx context.Context, review *domain.Review) {
	p.publish(ctx, TopicReviewUpdated, "review.updated", review)
}

func (p *Publisher) ReviewModerated(ctx context.Context, review *domain.Review) {
	p.publish(ctx, TopicReviewModerated, "review.moderated", review)
}

func (p *Publisher) ReviewDeleted(ctx context.Context, review *domain.Review) {
	p.publish(ctx, TopicReviewDeleted, "review.deleted", review)
}

// publish builds the envelope and sends it. Broker failures are logged and
// swallowed: a review that committed to Postgres is authoritative whether
// or not the event made it out.
func (p *Publisher) publish(ctx context.Context, topic, eventType string, review *domain.Review) {
	data := ReviewEventData{
		ReviewID:         review.ID,
		OfferID:          review.OfferID,
		AuthorID:         review.AuthorID,
		Rating:           review.Rating,
		ModerationStatus: review.ModerationStatus.String(),
		OccurredAt:       time.Now().UTC(),
	}

	evt, err := kafka.NewEvent(eventType, review.ID.String(), aggregateType, sourceName, data)
	if err != nil {
		p.log.ErrorContext(ctx, "failed to build review event",
			slog.String("event_type", eventType),
			slog.String("review_id", review.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		evt = evt.WithCorrelationID(correlationID)
	}

	if err := p.producer.Publish(ctx, topic, evt); err != nil {
		p.log.ErrorContext(ctx, "failed to publish review event",
			slog.String("topic", topic),
			slog.String("event_type", eventType),
			slog.String("review_id", review.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}
