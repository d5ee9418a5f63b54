// Package docstore implements the store interfaces on Cloud Firestore.
// Owner-scoped records live under users/{uid}/<kind>; cross-owner scans use
// collection group queries.
package docstore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pennywise/internal/models"
	"pennywise/internal/store"
)

const (
	usersCollection        = "users"
	categoriesCollection   = "categories"
	transactionsCollection = "transactions"
	recurringCollection    = "recurring"
	budgetsCollection      = "budgets"
	goalsCollection        = "goals"
	auditCollection        = "audit_logs"
)

// New wires every store to client.
func New(client *firestore.Client) *store.Stores {
	return &store.Stores{
		Users:        &userStore{client: client},
		Categories:   &categoryStore{docs[models.Category]{client: client, kind: categoriesCollection}},
		Transactions: &transactionStore{docs[models.Transaction]{client: client, kind: transactionsCollection}},
		Recurring:    &recurringStore{docs[models.RecurringTransaction]{client: client, kind: recurringCollection}},
		Budgets:      &budgetStore{docs[models.Budget]{client: client, kind: budgetsCollection}},
		Goals:        &goalStore{docs[models.Goal]{client: client, kind: goalsCollection}},
		Audit:        &auditStore{docs[models.AuditLog]{client: client, kind: auditCollection}},
	}
}

// record is the constraint for documents that carry Base.
type record[T any] interface {
	*T
	Meta() *models.Base
}

// docs holds the owner-scoped operations shared by every collection.
type docs[T any] struct {
	client *firestore.Client
	kind   string
}

func (d docs[T]) collection(uid string) *firestore.CollectionRef {
	return d.client.Collection(usersCollection).Doc(uid).Collection(d.kind)
}

// scope returns the per-user collection, or the collection group when uid is empty.
func (d docs[T]) scope(uid string) firestore.Query {
	if uid == "" {
		return d.client.CollectionGroup(d.kind).Query
	}
	return d.collection(uid).Query
}

func (d docs[T]) FindOne(ctx context.Context, userID, id string) (*T, error) {
	return get[T](ctx, d.collection(userID).Doc(id))
}

func (d docs[T]) Update(ctx context.Context, userID, id string, patch store.Patch) (*T, error) {
	ref := d.collection(userID).Doc(id)
	if err := update(ctx, ref, patch); err != nil {
		return nil, err
	}
	return get[T](ctx, ref)
}

func (d docs[T]) Delete(ctx context.Context, userID, id string) error {
	ref := d.collection(userID).Doc(id)
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return translate(err)
	}
	return nil
}

func get[T any](ctx context.Context, ref *firestore.DocumentRef) (*T, error) {
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	var out T
	if err := snap.DataTo(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func update(ctx context.Context, ref *firestore.DocumentRef, patch store.Patch) error {
	updates := make([]firestore.Update, 0, len(patch)+1)
	for field, value := range patch {
		updates = append(updates, firestore.Update{Path: field, Value: value})
	}
	updates = append(updates, firestore.Update{Path: "updated_at", Value: time.Now().UTC()})
	if _, err := ref.Update(ctx, updates); err != nil {
		return translate(err)
	}
	return nil
}

// create stamps identity and timestamps on rec and writes it under uid.
func create[T any, P record[T]](ctx context.Context, coll *firestore.CollectionRef, rec P) error {
	b := rec.Meta()
	b.EnsureID()
	b.Touch(time.Now().UTC())
	_, err := coll.Doc(b.ID).Create(ctx, rec)
	return err
}

// list counts q with an aggregation query, then fetches the requested page.
func list[T any](ctx context.Context, q firestore.Query, page store.Page) ([]T, int64, error) {
	res, err := q.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if v, ok := res["total"].(*firestorepb.Value); ok {
		total = v.GetIntegerValue()
	}

	if page.Limit > 0 {
		q = q.Offset(page.Offset).Limit(page.Limit)
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, err
	}
	out := make([]T, 0, len(snaps))
	for _, snap := range snaps {
		var rec T
		if err := snap.DataTo(&rec); err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, nil
}

func translate(err error) error {
	if status.Code(err) == codes.NotFound {
		return store.ErrNotFound
	}
	return err
}

type userStore struct {
	client *firestore.Client
}

func (s *userStore) collection() *firestore.CollectionRef {
	return s.client.Collection(usersCollection)
}

func (s *userStore) FindOne(ctx context.Context, id string) (*models.User, error) {
	return get[models.User](ctx, s.collection().Doc(id))
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	snaps, err := s.collection().Where("email", "==", email).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, store.ErrNotFound
	}
	var user models.User
	if err := snaps[0].DataTo(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *userStore) Insert(ctx context.Context, user *models.User) error {
	return create(ctx, s.collection(), user)
}

func (s *userStore) Update(ctx context.Context, id string, patch store.Patch) (*models.User, error) {
	ref := s.collection().Doc(id)
	if err := update(ctx, ref, patch); err != nil {
		return nil, err
	}
	return get[models.User](ctx, ref)
}

type categoryStore struct {
	docs[models.Category]
}

func (s *categoryStore) Insert(ctx context.Context, c *models.Category) error {
	return create(ctx, s.collection(c.UserID), c)
}

func (s *categoryStore) Find(ctx context.Context, f store.CategoryFilter) ([]models.Category, int64, error) {
	q := s.scope(f.UserID)
	if f.Type != nil {
		q = q.Where("type", "==", string(*f.Type))
	}
	if f.Name != "" {
		q = q.Where("name", "==", f.Name)
	}
	if f.ParentID != nil {
		q = q.Where("parent_id", "==", *f.ParentID)
	}
	return list[models.Category](ctx, q.OrderBy("name", firestore.Asc), f.Page)
}

type transactionStore struct {
	docs[models.Transaction]
}

func (s *transactionStore) Insert(ctx context.Context, tx *models.Transaction) error {
	return create(ctx, s.collection(tx.UserID), tx)
}

func (s *transactionStore) query(f store.TransactionFilter) firestore.Query {
	q := s.scope(f.UserID)
	if !f.IncludeDeleted {
		q = q.Where("is_deleted", "==", false)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id", "==", *f.CategoryID)
	}
	if f.Type != nil {
		q = q.Where("type", "==", string(*f.Type))
	}
	if f.Status != nil {
		q = q.Where("status", "==", string(*f.Status))
	}
	if f.From != nil {
		q = q.Where("date", ">=", *f.From)
	}
	if f.To != nil {
		q = q.Where("date", "<=", *f.To)
	}
	if f.RecurringID != nil {
		q = q.Where("recurring_id", "==", *f.RecurringID)
	}
	if f.OccurrenceKey != "" {
		q = q.Where("occurrence_key", "==", f.OccurrenceKey)
	}
	return q
}

func (s *transactionStore) Find(ctx context.Context, f store.TransactionFilter) ([]models.Transaction, int64, error) {
	return list[models.Transaction](ctx, s.query(f).OrderBy("date", firestore.Desc), f.Page)
}

// SumAmount streams only the amount field and totals it client-side.
func (s *transactionStore) SumAmount(ctx context.Context, f store.TransactionFilter) (int64, error) {
	snaps, err := s.query(f).Select("amount").Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, snap := range snaps {
		if amount, ok := snap.Data()["amount"].(int64); ok {
			total += amount
		}
	}
	return total, nil
}

type recurringStore struct {
	docs[models.RecurringTransaction]
}

func (s *recurringStore) Insert(ctx context.Context, def *models.RecurringTransaction) error {
	return create(ctx, s.collection(def.UserID), def)
}

func (s *recurringStore) Find(ctx context.Context, f store.RecurringFilter) ([]models.RecurringTransaction, int64, error) {
	q := s.scope(f.UserID)
	if f.ActiveOnly {
		q = q.Where("is_active", "==", true)
	}
	if f.DueBy != nil {
		q = q.Where("next_due", "<=", *f.DueBy)
	}
	return list[models.RecurringTransaction](ctx, q.OrderBy("next_due", firestore.Asc), f.Page)
}

type budgetStore struct {
	docs[models.Budget]
}

func (s *budgetStore) Insert(ctx context.Context, b *models.Budget) error {
	return create(ctx, s.collection(b.UserID), b)
}

// Find applies the end-date bound in the query and the start-date bound of
// Covering in memory, since Firestore allows range filters on one field only.
func (s *budgetStore) Find(ctx context.Context, f store.BudgetFilter) ([]models.Budget, int64, error) {
	q := s.scope(f.UserID)
	if f.CategoryID != nil {
		q = q.Where("category_id", "==", *f.CategoryID)
	}
	if f.IsActive != nil {
		q = q.Where("is_active", "==", *f.IsActive)
	}
	if f.Period != nil {
		q = q.Where("period", "==", string(*f.Period))
	}
	if f.EndedBefore != nil {
		q = q.Where("end_date", "<", *f.EndedBefore)
	}
	if f.Covering == nil {
		return list[models.Budget](ctx, q.OrderBy("end_date", firestore.Desc), f.Page)
	}

	all, _, err := list[models.Budget](ctx, q.Where("end_date", ">=", *f.Covering), store.Page{})
	if err != nil {
		return nil, 0, err
	}
	var matched []models.Budget
	for _, b := range all {
		if !b.StartDate.After(*f.Covering) {
			matched = append(matched, b)
		}
	}
	total := int64(len(matched))
	if f.Limit > 0 {
		start := min(f.Offset, len(matched))
		end := min(start+f.Limit, len(matched))
		matched = matched[start:end]
	}
	return matched, total, nil
}

type goalStore struct {
	docs[models.Goal]
}

func (s *goalStore) Insert(ctx context.Context, g *models.Goal) error {
	return create(ctx, s.collection(g.UserID), g)
}

func (s *goalStore) Find(ctx context.Context, f store.GoalFilter) ([]models.Goal, int64, error) {
	q := s.scope(f.UserID)
	if f.Status != nil {
		q = q.Where("status", "==", string(*f.Status))
	}
	return list[models.Goal](ctx, q.OrderBy("target_date", firestore.Asc), f.Page)
}

func (s *goalStore) Save(ctx context.Context, g *models.Goal) error {
	g.UpdatedAt = time.Now().UTC()
	_, err := s.collection(g.UserID).Doc(g.ID).Set(ctx, g)
	return err
}

type auditStore struct {
	docs[models.AuditLog]
}

func (s *auditStore) Insert(ctx context.Context, entry *models.AuditLog) error {
	return create(ctx, s.collection(entry.UserID), entry)
}

func (s *auditStore) Find(ctx context.Context, userID string, page store.Page) ([]models.AuditLog, int64, error) {
	return list[models.AuditLog](ctx, s.collection(userID).OrderBy("created_at", firestore.Desc), page)
}
