// Package events publishes order lifecycle notifications to SQS. Publishing
// is fire-and-forget: callers log failures and move on, so a lost event is
// possible and duplicate events are not deduplicated.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"

	"shopfront/internal/config"
)

// OrderPaidEvent announces a completed payment to downstream consumers.
type OrderPaidEvent struct {
	OrderID     string    `json:"orderId"`
	UserID      string    `json:"userId"`
	AmountCents int64     `json:"amountCents"`
	MatchedBy   string    `json:"matchedBy"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// ReviewEvent routes a reconciliation that needs operator attention: a miss,
// or a match made by a heuristic rather than a direct id.
type ReviewEvent struct {
	Reason          string    `json:"reason"`
	OrderID         string    `json:"orderId,omitempty"`
	UserID          string    `json:"userId,omitempty"`
	PaymentIntentID string    `json:"paymentIntentId,omitempty"`
	SessionID       string    `json:"sessionId,omitempty"`
	MatchedBy       string    `json:"matchedBy,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// Publisher sends order lifecycle events.
type Publisher interface {
	PublishOrderPaid(ctx context.Context, evt OrderPaidEvent) error
	PublishReview(ctx context.Context, evt ReviewEvent) error
}

// SQSAPI is the subset of the SQS client the publisher uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// sqsPublisher implements Publisher on two SQS queues.
type sqsPublisher struct {
	client         SQSAPI
	orderPaidQueue string
	reviewQueue    string
	logger         zerolog.Logger
}

// NewSQSPublisher creates an SQS-backed publisher from configuration.
func NewSQSPublisher(ctx context.Context, cfg config.EventsConfig, logger zerolog.Logger) (Publisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return NewPublisher(sqs.NewFromConfig(awsCfg), cfg.OrderPaidQueue, cfg.ReviewQueue, logger), nil
}

// NewPublisher creates a publisher bound to the given queues.
func NewPublisher(client SQSAPI, orderPaidQueue, reviewQueue string, logger zerolog.Logger) Publisher {
	return &sqsPublisher{
		client:         client,
		orderPaidQueue: orderPaidQueue,
		reviewQueue:    reviewQueue,
		logger:         logger.With().Str("component", "event-publisher").Logger(),
	}
}

// PublishOrderPaid sends an order-paid notification.
func (p *sqsPublisher) PublishOrderPaid(ctx context.Context, evt OrderPaidEvent) error {
	return p.send(ctx, p.orderPaidQueue, "order.paid", evt)
}

// PublishReview sends a reconciliation review notification.
func (p *sqsPublisher) PublishReview(ctx context.Context, evt ReviewEvent) error {
	return p.send(ctx, p.reviewQueue, "reconciliation.review", evt)
}

func (p *sqsPublisher) send(ctx context.Context, queueURL, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	messageBody := string(body)
	input := &sqs.SendMessageInput{
		QueueUrl:    &queueURL,
		MessageBody: &messageBody,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"eventType": {
				DataType:    awsString("String"),
				StringValue: awsString(eventType),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		p.logger.Error().
			Err(err).
			Str("event_type", eventType).
			Msg("failed to publish event")
		return fmt.Errorf("send message: %w", err)
	}

	p.logger.Debug().Str("event_type", eventType).Msg("event published")
	return nil
}

// NopPublisher discards all events. Used when the event bus is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPaid(ctx context.Context, evt OrderPaidEvent) error { return nil }
func (NopPublisher) PublishReview(ctx context.Context, evt ReviewEvent) error       { return nil }

func awsString(s string) *string { return &s }
