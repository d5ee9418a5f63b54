package services

import (
	"context"
	"time"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/events"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/store"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	transactions store.TransactionStore
	categories   store.CategoryStore
	events       events.Handler
	now          func() time.Time
}

// NewTransactionService creates a new TransactionServicer. Every committed
// mutation is reported to handler.
func NewTransactionService(stores *store.Stores, handler events.Handler) TransactionServicer {
	return &transactionService{
		transactions: stores.Transactions,
		categories:   stores.Categories,
		events:       handler,
		now:          time.Now,
	}
}

// CreateTransaction records a new income or expense.
func (s *transactionService) CreateTransaction(ctx context.Context, userID string, in TransactionInput) (*models.Transaction, error) {
	if in.Amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if !in.Type.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if in.Status == "" {
		in.Status = models.TransactionStatusCompleted
	}
	if !validStatus(in.Status) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported transaction status")
	}
	if in.CategoryID != nil {
		if err := s.checkCategory(ctx, userID, *in.CategoryID, in.Type); err != nil {
			return nil, err
		}
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	tx := &models.Transaction{
		UserID:      userID,
		CategoryID:  in.CategoryID,
		Type:        in.Type,
		Status:      in.Status,
		Amount:      in.Amount,
		Description: in.Description,
		Date:        in.Date,
	}
	if err := s.transactions.Insert(ctx, tx); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	publish(ctx, s.events, events.TransactionCommitted{
		UserID:  userID,
		Action:  events.ActionCreated,
		Current: tx,
		At:      s.now(),
	})
	return tx, nil
}

// GetUserTransactions retrieves a paginated, filtered list of the user's transactions.
func (s *transactionService) GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	txs, total, err := s.transactions.Find(ctx, store.TransactionFilter{
		UserID:         userID,
		CategoryID:     filter.CategoryID,
		Type:           filter.Type,
		From:           filter.FromDate,
		To:             filter.ToDate,
		RecurringID:    filter.RecurringID,
		IncludeDeleted: filter.IncludeDeleted,
		Page:           page.Window(),
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(txs, page.Page, page.PageSize, total)
	return &result, nil
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	tx, err := s.transactions.FindOne(ctx, userID, transactionID)
	if err != nil {
		return nil, storeError(err, apperrors.ErrTransactionNotFound)
	}
	return tx, nil
}

// UpdateTransaction applies a partial edit. Soft-deleted transactions must be
// restored before they can be edited. An empty CategoryID clears the category.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, in TransactionUpdate) (*models.Transaction, error) {
	previous, err := s.GetTransactionByID(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if previous.IsDeleted {
		return nil, apperrors.ErrTransactionDeleted
	}

	patch := store.Patch{}
	txType := previous.Type
	categoryID := previous.CategoryID

	if in.Amount != nil {
		if *in.Amount <= 0 {
			return nil, apperrors.ErrInvalidAmount
		}
		patch["amount"] = *in.Amount
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, apperrors.ErrInvalidTransactionType
		}
		txType = *in.Type
		patch["type"] = txType
	}
	if in.Status != nil {
		if !validStatus(*in.Status) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported transaction status")
		}
		patch["status"] = *in.Status
	}
	if in.CategoryID != nil {
		if *in.CategoryID == "" {
			categoryID = nil
			patch["category_id"] = nil
		} else {
			categoryID = in.CategoryID
			patch["category_id"] = *in.CategoryID
		}
	}
	if in.Description != nil {
		patch["description"] = *in.Description
	}
	if in.Date != nil {
		patch["date"] = *in.Date
	}

	// The category must accept the resulting type even when only one side changed.
	if categoryID != nil && (in.CategoryID != nil || in.Type != nil) {
		if err := s.checkCategory(ctx, userID, *categoryID, txType); err != nil {
			return nil, err
		}
	}

	if len(patch) == 0 {
		return previous, nil
	}
	return s.commit(ctx, userID, previous, patch, events.ActionUpdated)
}

// DeleteTransaction soft-deletes a transaction. The record is kept for
// restoration and audit but no longer counts anywhere.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	previous, err := s.GetTransactionByID(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if previous.IsDeleted {
		return nil, apperrors.ErrTransactionDeleted
	}

	now := s.now()
	return s.commit(ctx, userID, previous, store.Patch{"is_deleted": true, "deleted_at": &now}, events.ActionDeleted)
}

// RestoreTransaction reverses a soft delete.
func (s *transactionService) RestoreTransaction(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	previous, err := s.GetTransactionByID(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if !previous.IsDeleted {
		return nil, apperrors.ErrTransactionNotDeleted
	}

	return s.commit(ctx, userID, previous, store.Patch{"is_deleted": false, "deleted_at": nil}, events.ActionRestored)
}

func (s *transactionService) commit(ctx context.Context, userID string, previous *models.Transaction, patch store.Patch, action events.Action) (*models.Transaction, error) {
	current, err := s.transactions.Update(ctx, userID, previous.ID, patch)
	if err != nil {
		return nil, storeError(err, apperrors.ErrTransactionNotFound)
	}

	publish(ctx, s.events, events.TransactionCommitted{
		UserID:   userID,
		Action:   action,
		Current:  current,
		Previous: previous,
		At:       s.now(),
	})
	return current, nil
}

func (s *transactionService) checkCategory(ctx context.Context, userID, categoryID string, txType models.TransactionType) error {
	category, err := s.categories.FindOne(ctx, userID, categoryID)
	if err != nil {
		return storeError(err, apperrors.ErrCategoryNotFound)
	}
	if !category.Accepts(txType) {
		return apperrors.ErrCategoryTypeMismatch
	}
	return nil
}

func validStatus(status models.TransactionStatus) bool {
	switch status {
	case models.TransactionStatusCompleted, models.TransactionStatusPending, models.TransactionStatusCancelled:
		return true
	}
	return false
}
