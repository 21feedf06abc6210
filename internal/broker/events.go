package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"bazaar-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher publishes marketplace domain events for game-side and
// auxiliary consumers (notifications, watchlists, admin dashboards).
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishListingCreated publishes ListingCreated event
func (ep *EventPublisher) PublishListingCreated(ctx context.Context, event *models.ListingCreatedEvent) error {
	key := fmt.Sprintf("listing-%d", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishListingSold publishes ListingSold event
func (ep *EventPublisher) PublishListingSold(ctx context.Context, event *models.ListingSoldEvent) error {
	key := fmt.Sprintf("listing-%d", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishListingCancelled publishes ListingCancelled event
func (ep *EventPublisher) PublishListingCancelled(ctx context.Context, event *models.ListingCancelledEvent) error {
	key := fmt.Sprintf("listing-%d", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishListingRestored publishes ListingRestored event
func (ep *EventPublisher) PublishListingRestored(ctx context.Context, event *models.ListingRestoredEvent) error {
	key := fmt.Sprintf("listing-%d", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPaymentPending publishes PaymentPending event
func (ep *EventPublisher) PublishPaymentPending(ctx context.Context, event *models.PaymentPendingEvent) error {
	key := fmt.Sprintf("listing-%d", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPaymentCompleted publishes PaymentCompleted event
func (ep *EventPublisher) PublishPaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error {
	key := fmt.Sprintf("listing-%d", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishEarningsClaimed publishes EarningsClaimed event
func (ep *EventPublisher) PublishEarningsClaimed(ctx context.Context, event *models.EarningsClaimedEvent) error {
	key := fmt.Sprintf("account-%d", event.AccountID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming game-side events
type EventHandler struct {
	onBrokerPayment func(context.Context, *models.BrokerPaymentEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnBrokerPayment registers a handler for BrokerPayment events
func (eh *EventHandler) OnBrokerPayment(handler func(context.Context, *models.BrokerPaymentEvent) error) {
	eh.onBrokerPayment = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeBrokerPayment:
		if eh.onBrokerPayment != nil {
			var event models.BrokerPaymentEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BrokerPayment event: %w", err)
			}
			return eh.onBrokerPayment(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
