// Package server assembles services and HTTP routes into a runnable API.
package server

import (
	"pennywise/internal/events"
	"pennywise/internal/notify"
	"pennywise/internal/services"
	"pennywise/internal/store"
)

// Services bundles every domain service the API and the scheduler need.
type Services struct {
	Users        services.UserServicer
	Categories   services.CategoryServicer
	Transactions services.TransactionServicer
	Recurring    services.RecurringServicer
	Budgets      services.BudgetServicer
	Goals        services.GoalServicer
	Audit        services.AuditServicer
}

// NewServices wires the services over a store backend. The budget service is
// subscribed first so spend caches are current before any extra handler (such
// as the broker publisher) observes a committed transaction.
func NewServices(stores *store.Stores, notifier notify.Notifier, defaultThreshold int, extra ...events.Handler) *Services {
	budgets := services.NewBudgetService(stores, notifier, defaultThreshold)

	dispatcher := events.NewDispatcher(budgets)
	for _, h := range extra {
		dispatcher.Subscribe(h)
	}

	return &Services{
		Users:        services.NewUserService(stores.Users),
		Categories:   services.NewCategoryService(stores),
		Transactions: services.NewTransactionService(stores, dispatcher),
		Recurring:    services.NewRecurringService(stores, dispatcher),
		Budgets:      budgets,
		Goals:        services.NewGoalService(stores.Goals, notifier),
		Audit:        services.NewAuditService(stores.Audit),
	}
}
