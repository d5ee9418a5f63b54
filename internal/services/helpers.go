package services

import (
	"context"
	"errors"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/events"
	"pennywise/internal/logger"
	"pennywise/internal/store"
)

// storeError maps a persistence error onto the service taxonomy: a missing
// record becomes notFound, anything else is an internal failure.
func storeError(err error, notFound *apperrors.AppError) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// publish hands a committed mutation to the event chain. The write has
// already succeeded, so handler failures are logged rather than returned.
func publish(ctx context.Context, handler events.Handler, e events.TransactionCommitted) {
	if handler == nil {
		return
	}
	if err := handler.HandleTransactionCommitted(ctx, e); err != nil {
		logger.FromContext(ctx).Errorw("transaction event handling failed",
			"error", err,
			"user_id", e.UserID,
			"transaction_id", e.Current.ID,
			"action", e.Action,
		)
	}
}
