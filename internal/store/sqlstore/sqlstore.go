// Package sqlstore implements the store interfaces on top of GORM.
package sqlstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"pennywise/internal/models"
	"pennywise/internal/store"
)

// Models lists every table managed by this backend, in creation order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Transaction{},
		&models.RecurringTransaction{},
		&models.Budget{},
		&models.Goal{},
		&models.AuditLog{},
	}
}

// New wires every store to db.
func New(db *gorm.DB) *store.Stores {
	return &store.Stores{
		Users:        &userStore{db: db},
		Categories:   &categoryStore{records[models.Category]{db: db}},
		Transactions: &transactionStore{records[models.Transaction]{db: db}},
		Recurring:    &recurringStore{records[models.RecurringTransaction]{db: db}},
		Budgets:      &budgetStore{records[models.Budget]{db: db}},
		Goals:        &goalStore{records[models.Goal]{db: db}},
		Audit:        &auditStore{db: db},
	}
}

// records holds the owner-scoped operations shared by every table.
type records[T any] struct {
	db *gorm.DB
}

func (r records[T]) FindOne(ctx context.Context, userID, id string) (*T, error) {
	var rec T
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&rec).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (r records[T]) Insert(ctx context.Context, rec *T) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r records[T]) Update(ctx context.Context, userID, id string, patch store.Patch) (*T, error) {
	res := r.db.WithContext(ctx).Model(new(T)).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}(patch))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return r.FindOne(ctx, userID, id)
}

func (r records[T]) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// list counts q, then fetches the requested page in the given order.
func list[T any](q *gorm.DB, page store.Page, order string) ([]T, int64, error) {
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	find := q.Order(order)
	if page.Limit > 0 {
		find = find.Offset(page.Offset).Limit(page.Limit)
	}
	var out []T
	if err := find.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

type userStore struct {
	db *gorm.DB
}

func (s *userStore) FindOne(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *userStore) Insert(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *userStore) Update(ctx context.Context, id string, patch store.Patch) (*models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}(patch))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return s.FindOne(ctx, id)
}

type categoryStore struct {
	records[models.Category]
}

func (s *categoryStore) Find(ctx context.Context, f store.CategoryFilter) ([]models.Category, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Category{}).Where("user_id = ?", f.UserID)
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Name != "" {
		q = q.Where("LOWER(name) = LOWER(?)", f.Name)
	}
	if f.ParentID != nil {
		q = q.Where("parent_id = ?", *f.ParentID)
	}
	return list[models.Category](q, f.Page, "name ASC")
}

type transactionStore struct {
	records[models.Transaction]
}

func (s *transactionStore) query(ctx context.Context, f store.TransactionFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", f.UserID)
	if !f.IncludeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.From != nil {
		q = q.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("date <= ?", *f.To)
	}
	if f.RecurringID != nil {
		q = q.Where("recurring_id = ?", *f.RecurringID)
	}
	if f.OccurrenceKey != "" {
		q = q.Where("occurrence_key = ?", f.OccurrenceKey)
	}
	return q
}

func (s *transactionStore) Find(ctx context.Context, f store.TransactionFilter) ([]models.Transaction, int64, error) {
	return list[models.Transaction](s.query(ctx, f), f.Page, "date DESC, id DESC")
}

func (s *transactionStore) SumAmount(ctx context.Context, f store.TransactionFilter) (int64, error) {
	var total int64
	if err := s.query(ctx, f).Select("COALESCE(SUM(amount), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

type recurringStore struct {
	records[models.RecurringTransaction]
}

func (s *recurringStore) Find(ctx context.Context, f store.RecurringFilter) ([]models.RecurringTransaction, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.RecurringTransaction{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.DueBy != nil {
		q = q.Where("next_due <= ?", *f.DueBy)
	}
	return list[models.RecurringTransaction](q, f.Page, "next_due ASC, id ASC")
}

type budgetStore struct {
	records[models.Budget]
}

func (s *budgetStore) Find(ctx context.Context, f store.BudgetFilter) ([]models.Budget, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Budget{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.Period != nil {
		q = q.Where("period = ?", *f.Period)
	}
	if f.Covering != nil {
		q = q.Where("start_date <= ? AND end_date >= ?", *f.Covering, *f.Covering)
	}
	if f.EndedBefore != nil {
		q = q.Where("end_date < ?", *f.EndedBefore)
	}
	return list[models.Budget](q, f.Page, "start_date DESC, id DESC")
}

type goalStore struct {
	records[models.Goal]
}

func (s *goalStore) Find(ctx context.Context, f store.GoalFilter) ([]models.Goal, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Goal{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	return list[models.Goal](q, f.Page, "target_date ASC, id ASC")
}

func (s *goalStore) Save(ctx context.Context, goal *models.Goal) error {
	return s.db.WithContext(ctx).Save(goal).Error
}

type auditStore struct {
	db *gorm.DB
}

func (s *auditStore) Insert(ctx context.Context, entry *models.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *auditStore) Find(ctx context.Context, userID string, page store.Page) ([]models.AuditLog, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{}).Where("user_id = ?", userID)
	return list[models.AuditLog](q, page, "created_at DESC")
}
