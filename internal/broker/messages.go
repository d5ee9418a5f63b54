package broker

import (
	"context"
	"encoding/json"
	"time"

	"pennywise/internal/events"
	"pennywise/internal/logger"
)

// TransactionMessage announces a committed transaction mutation to
// downstream consumers. Amounts are in cents.
type TransactionMessage struct {
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id"`
	Action        string    `json:"action"`
	Type          string    `json:"type"`
	CategoryID    *string   `json:"category_id,omitempty"`
	Amount        int64     `json:"amount"`
	Date          time.Time `json:"date"`
	RecurringID   *string   `json:"recurring_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionMessage flattens e into a message.
func NewTransactionMessage(e events.TransactionCommitted) *TransactionMessage {
	tx := e.Current
	return &TransactionMessage{
		UserID:        e.UserID,
		TransactionID: tx.ID,
		Action:        string(e.Action),
		Type:          string(tx.Type),
		CategoryID:    tx.CategoryID,
		Amount:        tx.Amount,
		Date:          tx.Date,
		RecurringID:   tx.RecurringID,
		Timestamp:     e.At,
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionMessageFromJSON decodes a message produced by ToJSON.
func TransactionMessageFromJSON(data []byte) (*TransactionMessage, error) {
	var msg TransactionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// NotificationMessage is an email job for the external mailer, which resolves
// the recipient from UserID.
type NotificationMessage struct {
	Kind      string         `json:"kind"`
	UserID    string         `json:"user_id"`
	Subject   string         `json:"subject"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventPublisher forwards committed transactions to the broker. Publishing is
// best-effort: failures are logged and never reach the caller.
type EventPublisher struct {
	pub Publisher
}

// NewEventPublisher creates an events.Handler that publishes to pub.
func NewEventPublisher(pub Publisher) *EventPublisher {
	return &EventPublisher{pub: pub}
}

// HandleTransactionCommitted implements events.Handler.
func (p *EventPublisher) HandleTransactionCommitted(ctx context.Context, e events.TransactionCommitted) error {
	if e.Current == nil {
		return nil
	}
	body, err := NewTransactionMessage(e).ToJSON()
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to encode transaction event", "error", err, "transaction_id", e.Current.ID)
		return nil
	}
	if err := p.pub.Publish(ctx, TransactionsKey, body); err != nil {
		logger.FromContext(ctx).Warnw("failed to publish transaction event",
			"error", err,
			"transaction_id", e.Current.ID,
			"action", e.Action,
		)
	}
	return nil
}
