package services

import (
	"context"
	"strings"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/store"
)

// categoryService handles category-related business logic.
type categoryService struct {
	categories   store.CategoryStore
	transactions store.TransactionStore
	budgets      store.BudgetStore
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(stores *store.Stores) CategoryServicer {
	return &categoryService{
		categories:   stores.Categories,
		transactions: stores.Transactions,
		budgets:      stores.Budgets,
	}
}

// CreateCategory creates a new category
func (s *categoryService) CreateCategory(
	ctx context.Context,
	userID string,
	name string,
	categoryType models.CategoryType,
	description string,
	icon string,
	color string,
	parentID *string,
) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	if err := s.ensureUniqueName(ctx, userID, name, categoryType, ""); err != nil {
		return nil, err
	}

	if parentID != nil {
		if err := s.ensureParent(ctx, userID, *parentID); err != nil {
			return nil, err
		}
	}

	category := &models.Category{
		UserID:      userID,
		Name:        name,
		Type:        categoryType,
		Description: description,
		Icon:        icon,
		Color:       color,
		ParentID:    parentID,
	}
	if err := s.categories.Insert(ctx, category); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// GetUserCategories retrieves a paginated list of categories for a user,
// optionally restricted to one type.
func (s *categoryService) GetUserCategories(ctx context.Context, userID string, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	categories, total, err := s.categories.Find(ctx, store.CategoryFilter{
		UserID: userID,
		Type:   categoryType,
		Page:   page.Window(),
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, total)
	return &result, nil
}

// GetCategoryByID retrieves a category by ID for a specific user
func (s *categoryService) GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error) {
	category, err := s.categories.FindOne(ctx, userID, categoryID)
	if err != nil {
		return nil, storeError(err, apperrors.ErrCategoryNotFound)
	}
	return category, nil
}

// UpdateCategory updates an existing category
func (s *categoryService) UpdateCategory(
	ctx context.Context,
	userID string,
	categoryID string,
	name string,
	description string,
	icon string,
	color string,
	parentID *string,
) (*models.Category, error) {
	category, err := s.GetCategoryByID(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}

	if parentID != nil && *parentID != "" {
		if *parentID == categoryID {
			return nil, apperrors.ErrSelfParentCategory
		}
		if err := s.ensureParent(ctx, userID, *parentID); err != nil {
			return nil, err
		}
	}

	updates := store.Patch{}
	if name = strings.TrimSpace(name); name != "" && name != category.Name {
		if err := s.ensureUniqueName(ctx, userID, name, category.Type, categoryID); err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if description != "" {
		updates["description"] = description
	}
	if icon != "" {
		updates["icon"] = icon
	}
	if color != "" {
		updates["color"] = color
	}
	if parentID != nil {
		if *parentID == "" {
			updates["parent_id"] = nil
		} else {
			updates["parent_id"] = *parentID
		}
	}

	if len(updates) == 0 {
		return category, nil
	}
	updated, err := s.categories.Update(ctx, userID, categoryID, updates)
	if err != nil {
		return nil, storeError(err, apperrors.ErrCategoryNotFound)
	}
	return updated, nil
}

// DeleteCategory removes a category that nothing references.
func (s *categoryService) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	if _, err := s.GetCategoryByID(ctx, userID, categoryID); err != nil {
		return err
	}

	_, children, err := s.categories.Find(ctx, store.CategoryFilter{UserID: userID, ParentID: &categoryID, Page: store.Page{Limit: 1}})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if children > 0 {
		return apperrors.ErrCategoryHasChildren
	}

	_, used, err := s.transactions.Find(ctx, store.TransactionFilter{
		UserID:         userID,
		CategoryID:     &categoryID,
		IncludeDeleted: true,
		Page:           store.Page{Limit: 1},
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if used == 0 {
		_, used, err = s.budgets.Find(ctx, store.BudgetFilter{UserID: userID, CategoryID: &categoryID, Page: store.Page{Limit: 1}})
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	if used > 0 {
		return apperrors.ErrCategoryInUse
	}

	if err := s.categories.Delete(ctx, userID, categoryID); err != nil {
		return storeError(err, apperrors.ErrCategoryNotFound)
	}
	return nil
}

// ensureUniqueName rejects a second category with the same name and type,
// ignoring the category being renamed.
func (s *categoryService) ensureUniqueName(ctx context.Context, userID, name string, categoryType models.CategoryType, exceptID string) error {
	existing, _, err := s.categories.Find(ctx, store.CategoryFilter{UserID: userID, Name: name, Type: &categoryType})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, c := range existing {
		if c.ID != exceptID {
			return apperrors.ErrDuplicateCategory
		}
	}
	return nil
}

func (s *categoryService) ensureParent(ctx context.Context, userID, parentID string) error {
	if _, err := s.categories.FindOne(ctx, userID, parentID); err != nil {
		return storeError(err, apperrors.WithMessage(apperrors.ErrCategoryNotFound, "parent category not found"))
	}
	return nil
}
