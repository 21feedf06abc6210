package worker

import (
	"context"
	"errors"
	"log"

	"bazaar-service/internal/broker"
	"bazaar-service/internal/models"
	"bazaar-service/internal/service"
)

// BrokerPaymentWorker consumes game-side broker payment events and
// completes the matching pending transactions.
type BrokerPaymentWorker struct {
	consumer          *broker.Consumer
	eventHandler      *broker.EventHandler
	settlementService *service.SettlementService
}

// NewBrokerPaymentWorker creates a new broker payment worker
func NewBrokerPaymentWorker(
	consumer *broker.Consumer,
	settlementService *service.SettlementService,
) *BrokerPaymentWorker {
	eventHandler := broker.NewEventHandler()

	w := &BrokerPaymentWorker{
		consumer:          consumer,
		eventHandler:      eventHandler,
		settlementService: settlementService,
	}

	eventHandler.OnBrokerPayment(w.handleBrokerPayment)
	return w
}

func (w *BrokerPaymentWorker) handleBrokerPayment(ctx context.Context, event *models.BrokerPaymentEvent) error {
	err := w.settlementService.CompletePendingPayment(ctx, event.TransactionID, event.CharacterID)
	if errors.Is(err, models.ErrNotFound) {
		// Already settled or cancelled; redelivered events land here.
		log.Printf("Broker payment for transaction %d already settled, skipping", event.TransactionID)
		return nil
	}
	return err
}

// Start starts the worker
func (w *BrokerPaymentWorker) Start(ctx context.Context) error {
	log.Println("Starting broker payment worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *BrokerPaymentWorker) Stop() error {
	log.Println("Stopping broker payment worker...")
	return w.consumer.Close()
}
