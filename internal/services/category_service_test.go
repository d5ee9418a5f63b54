package services

import (
	"context"
	"testing"
	"time"

	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/store/sqlstore"
	"pennywise/internal/testutil"
)

func TestCreateCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(sqlstore.New(db))
		user := testutil.CreateTestUser(t, db)

		cat, err := svc.CreateCategory(ctx, user.ID, "Groceries", models.CategoryTypeExpense, "Food shopping", "cart", "#FF0000", nil)
		testutil.AssertNoError(t, err)

		if cat.ID == "" {
			t.Fatal("expected category ID")
		}
		if cat.Name != "Groceries" {
			t.Errorf("expected name Groceries, got %s", cat.Name)
		}
		if cat.Type != models.CategoryTypeExpense {
			t.Errorf("expected type expense, got %s", cat.Type)
		}
	})

	t.Run("duplicate_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(sqlstore.New(db))
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(ctx, user.ID, "Food", models.CategoryTypeExpense, "", "", "", nil)
		testutil.AssertNoError(t, err)

		_, err = svc.CreateCategory(ctx, user.ID, "food", models.CategoryTypeExpense, "", "", "", nil)
		testutil.AssertAppError(t, err, "DUPLICATE_CATEGORY")
	})

	t.Run("same_name_other_type_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(sqlstore.New(db))
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(ctx, user.ID, "Side hustle", models.CategoryTypeExpense, "", "", "", nil)
		testutil.AssertNoError(t, err)
		_, err = svc.CreateCategory(ctx, user.ID, "Side hustle", models.CategoryTypeIncome, "", "", "", nil)
		testutil.AssertNoError(t, err)
	})

	t.Run("with_parent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(sqlstore.New(db))
		user := testutil.CreateTestUser(t, db)

		parent, err := svc.CreateCategory(ctx, user.ID, "Food", models.CategoryTypeExpense, "", "", "", nil)
		testutil.AssertNoError(t, err)

		child, err := svc.CreateCategory(ctx, user.ID, "Snacks", models.CategoryTypeExpense, "", "", "", &parent.ID)
		testutil.AssertNoError(t, err)

		if child.ParentID == nil || *child.ParentID != parent.ID {
			t.Errorf("expected parent ID %s, got %v", parent.ID, child.ParentID)
		}
	})

	t.Run("foreign_parent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(sqlstore.New(db))
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		foreign := testutil.CreateTestCategory(t, db, other.ID, models.CategoryTypeExpense)

		_, err := svc.CreateCategory(ctx, user.ID, "Orphan", models.CategoryTypeExpense, "", "", "", &foreign.ID)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(sqlstore.New(db))
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(ctx, user.ID, "  ", models.CategoryTypeExpense, "", "", "", nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserCategories(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(sqlstore.New(db))

	user1 := testutil.CreateTestUser(t, db)
	user2 := testutil.CreateTestUser(t, db)
	testutil.CreateTestCategory(t, db, user1.ID, models.CategoryTypeExpense)
	testutil.CreateTestCategory(t, db, user1.ID, models.CategoryTypeIncome)
	testutil.CreateTestCategory(t, db, user2.ID, models.CategoryTypeExpense)

	page := pagination.PageRequest{Page: 1, PageSize: 20}

	t.Run("returns_user_categories_only", func(t *testing.T) {
		result, err := svc.GetUserCategories(ctx, user1.ID, nil, page)
		testutil.AssertNoError(t, err)
		if result.TotalItems != 2 {
			t.Errorf("expected 2 categories for user1, got %d", result.TotalItems)
		}
	})

	t.Run("filter_by_type", func(t *testing.T) {
		income := models.CategoryTypeIncome
		result, err := svc.GetUserCategories(ctx, user1.ID, &income, page)
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 || result.Data[0].Type != models.CategoryTypeIncome {
			t.Errorf("expected one income category, got %+v", result.Data)
		}
	})
}

func TestUpdateCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("rename", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(sqlstore.New(db))
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		updated, err := svc.UpdateCategory(ctx, user.ID, cat.ID, "Dining", "", "", "#00FF00", nil)
		testutil.AssertNoError(t, err)
		if updated.Name != "Dining" || updated.Color != "#00FF00" {
			t.Errorf("expected renamed category, got %+v", updated)
		}
	})

	t.Run("self_parent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(sqlstore.New(db))
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		_, err := svc.UpdateCategory(ctx, user.ID, cat.ID, "", "", "", "", &cat.ID)
		testutil.AssertAppError(t, err, "SELF_PARENT_CATEGORY")
	})

	t.Run("rename_to_existing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(sqlstore.New(db))
		user := testutil.CreateTestUser(t, db)
		first := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		second := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		_, err := svc.UpdateCategory(ctx, user.ID, second.ID, first.Name, "", "", "", nil)
		testutil.AssertAppError(t, err, "DUPLICATE_CATEGORY")
	})
}

func TestDeleteCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("unused", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(sqlstore.New(db))
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		testutil.AssertNoError(t, svc.DeleteCategory(ctx, user.ID, cat.ID))
		_, err := svc.GetCategoryByID(ctx, user.ID, cat.ID)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("has_children", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(sqlstore.New(db))
		user := testutil.CreateTestUser(t, db)
		parent, _ := svc.CreateCategory(ctx, user.ID, "Food", models.CategoryTypeExpense, "", "", "", nil)
		_, _ = svc.CreateCategory(ctx, user.ID, "Snacks", models.CategoryTypeExpense, "", "", "", &parent.ID)

		err := svc.DeleteCategory(ctx, user.ID, parent.ID)
		testutil.AssertAppError(t, err, "CATEGORY_HAS_CHILDREN")
	})

	t.Run("in_use", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(sqlstore.New(db))
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 500, time.Now())

		err := svc.DeleteCategory(ctx, user.ID, cat.ID)
		testutil.AssertAppError(t, err, "CATEGORY_IN_USE")
	})
}
