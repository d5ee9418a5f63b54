// Package events carries the side effects of a committed transaction mutation
// to the components that depend on it.
package events

import (
	"context"
	"errors"
	"time"

	"pennywise/internal/models"
)

// Action names the mutation that produced an event.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionRestored Action = "restored"
)

// TransactionCommitted is emitted after a transaction write has been persisted.
// Previous is nil for creations.
type TransactionCommitted struct {
	UserID   string
	Action   Action
	Current  *models.Transaction
	Previous *models.Transaction
	At       time.Time
}

// AffectedCategories returns the distinct categories whose budgets could have
// changed: any version of the transaction that is an expense with a category.
func (e TransactionCommitted) AffectedCategories() []string {
	var out []string
	for _, tx := range []*models.Transaction{e.Previous, e.Current} {
		if tx == nil || tx.Type != models.TransactionTypeExpense || tx.CategoryID == nil {
			continue
		}
		if len(out) == 1 && out[0] == *tx.CategoryID {
			continue
		}
		out = append(out, *tx.CategoryID)
	}
	return out
}

// Handler consumes committed transactions.
type Handler interface {
	HandleTransactionCommitted(ctx context.Context, e TransactionCommitted) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, e TransactionCommitted) error

// HandleTransactionCommitted calls f.
func (f HandlerFunc) HandleTransactionCommitted(ctx context.Context, e TransactionCommitted) error {
	return f(ctx, e)
}

// Dispatcher delivers events to its handlers in registration order. Every
// handler runs even when an earlier one fails.
type Dispatcher struct {
	handlers []Handler
}

// NewDispatcher creates a dispatcher over handlers.
func NewDispatcher(handlers ...Handler) *Dispatcher {
	return &Dispatcher{handlers: handlers}
}

// Subscribe appends h to the chain.
func (d *Dispatcher) Subscribe(h Handler) {
	d.handlers = append(d.handlers, h)
}

// HandleTransactionCommitted fans e out and joins any handler errors.
func (d *Dispatcher) HandleTransactionCommitted(ctx context.Context, e TransactionCommitted) error {
	var errs []error
	for _, h := range d.handlers {
		if err := h.HandleTransactionCommitted(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
