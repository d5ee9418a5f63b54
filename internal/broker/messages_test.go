package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"pennywise/internal/events"
	"pennywise/internal/models"
)

type fakePublisher struct {
	keys   []string
	bodies [][]byte
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, routingKey)
	f.bodies = append(f.bodies, body)
	return nil
}

func committed() events.TransactionCommitted {
	cat := "cat-1"
	tx := &models.Transaction{
		Type:       models.TransactionTypeExpense,
		CategoryID: &cat,
		Amount:     1250,
		Date:       time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	tx.ID = "tx-1"
	return events.TransactionCommitted{
		UserID:  "user-1",
		Action:  events.ActionCreated,
		Current: tx,
		At:      time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
	}
}

func TestEventPublisher_PublishesTransactionMessage(t *testing.T) {
	pub := &fakePublisher{}
	if err := NewEventPublisher(pub).HandleTransactionCommitted(context.Background(), committed()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.keys) != 1 || pub.keys[0] != TransactionsKey {
		t.Fatalf("expected one message on %q, got %v", TransactionsKey, pub.keys)
	}

	msg, err := TransactionMessageFromJSON(pub.bodies[0])
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if msg.TransactionID != "tx-1" || msg.UserID != "user-1" {
		t.Errorf("unexpected identity: %+v", msg)
	}
	if msg.Action != "created" || msg.Type != "expense" || msg.Amount != 1250 {
		t.Errorf("unexpected payload: %+v", msg)
	}
	if msg.CategoryID == nil || *msg.CategoryID != "cat-1" {
		t.Errorf("expected category cat-1, got %v", msg.CategoryID)
	}
}

func TestEventPublisher_SwallowsFailures(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection closed")}
	if err := NewEventPublisher(pub).HandleTransactionCommitted(context.Background(), committed()); err != nil {
		t.Errorf("expected publish failure to be swallowed, got %v", err)
	}
}

func TestTransactionMessage_InvalidJSON(t *testing.T) {
	if _, err := TransactionMessageFromJSON([]byte(`{"amount": "lots"}`)); err == nil {
		t.Error("expected decode error for invalid JSON")
	}
}
