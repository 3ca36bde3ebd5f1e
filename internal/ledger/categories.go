package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// CategoryPatch carries the renamable category fields; nil means unchanged.
type CategoryPatch struct {
	Title       *string
	Description *string
}

// applyCategoryDelta is the single funnel through which assigned amounts
// change. The stage category may go negative; every other category is
// guarded against dropping below zero.
func applyCategoryDelta(ctx context.Context, q *storage.Queries, categoryID int64, delta decimal.Decimal) (core.Category, error) {
	category, err := q.GetCategory(ctx, categoryID)
	if err != nil {
		return core.Category{}, err
	}

	updated := category.AssignedAmount.Add(delta)
	if !category.IsStage && updated.IsNegative() {
		return core.Category{}, fmt.Errorf("category %q would drop to %s: %w",
			category.Title, core.FormatAmount(updated), core.ErrNegativeBalance)
	}

	if err := q.SetCategoryAmount(ctx, categoryID, updated); err != nil {
		return core.Category{}, err
	}
	category.AssignedAmount = updated
	return category, nil
}

// CreateCategory adds an envelope with an empty assigned amount.
func (s *Service) CreateCategory(ctx context.Context, title, description string) (core.Category, error) {
	draft := core.Category{Title: title, Description: description}
	if err := draft.Validate(); err != nil {
		return core.Category{}, err
	}

	var created core.Category
	err := s.store.WithinTx(ctx, func(q *storage.Queries) error {
		taken, err := q.ExistsCategoryTitle(ctx, draft.Title, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("category title %q already in use: %w", draft.Title, core.ErrInvalidInput)
		}

		created, err = q.CreateCategory(ctx, storage.CreateCategoryParams{
			Title:       draft.Title,
			Description: draft.Description,
		})
		return err
	})
	if err != nil {
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Category created", "id", created.ID, "title", created.Title)
	return created, nil
}

func (s *Service) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return s.store.Queries().GetCategory(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.store.Queries().ListCategories(ctx)
}

// UpdateCategory renames a category or rewrites its description. Assigned
// amounts never move through here.
func (s *Service) UpdateCategory(ctx context.Context, id int64, patch CategoryPatch) (core.Category, error) {
	var updated core.Category
	err := s.store.WithinTx(ctx, func(q *storage.Queries) error {
		category, err := q.GetCategory(ctx, id)
		if err != nil {
			return err
		}

		if patch.Title != nil {
			category.Title = *patch.Title
		}
		if patch.Description != nil {
			category.Description = *patch.Description
		}
		if err := category.Validate(); err != nil {
			return err
		}

		if patch.Title != nil {
			taken, err := q.ExistsCategoryTitle(ctx, category.Title, id)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("category title %q already in use: %w", category.Title, core.ErrInvalidInput)
			}
		}

		if err := q.UpdateCategoryInfo(ctx, storage.UpdateCategoryInfoParams{
			ID:          id,
			Title:       category.Title,
			Description: category.Description,
		}); err != nil {
			return err
		}
		updated = category
		return nil
	})
	return updated, err
}

// MoveCategoryAmount shifts a positive amount from one envelope to another.
// Forbidden when the source is not the stage category and would go negative.
func (s *Service) MoveCategoryAmount(ctx context.Context, fromID, toID int64, amount decimal.Decimal) (from, to core.Category, err error) {
	if err := core.ValidateAmount(amount); err != nil {
		return core.Category{}, core.Category{}, err
	}
	if !amount.IsPositive() {
		return core.Category{}, core.Category{}, fmt.Errorf("move amount must be positive: %w", core.ErrInvalidInput)
	}
	if fromID == toID {
		return core.Category{}, core.Category{}, fmt.Errorf("cannot move funds onto the same category: %w", core.ErrInvalidInput)
	}

	err = s.store.WithinTx(ctx, func(q *storage.Queries) error {
		source, err := q.GetCategory(ctx, fromID)
		if err != nil {
			return err
		}
		if _, err := q.GetCategory(ctx, toID); err != nil {
			return err
		}

		if !source.IsStage && source.AssignedAmount.Sub(amount).IsNegative() {
			return fmt.Errorf("insufficient funds in category %q: %w", source.Title, core.ErrForbidden)
		}

		if from, err = applyCategoryDelta(ctx, q, fromID, amount.Neg()); err != nil {
			return err
		}
		to, err = applyCategoryDelta(ctx, q, toID, amount)
		return err
	})
	if err != nil {
		return core.Category{}, core.Category{}, err
	}

	slog.InfoContext(ctx, "Moved funds between categories",
		"from_id", fromID, "to_id", toID, "amount", core.FormatAmount(amount))
	return from, to, nil
}

// DeleteCategory removes an empty envelope. The stage category and any
// category still holding funds are protected. Transactions that pointed at
// the category keep their rows with the reference cleared.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	err := s.store.WithinTx(ctx, func(q *storage.Queries) error {
		category, err := q.GetCategory(ctx, id)
		if err != nil {
			return err
		}

		if category.IsStage {
			return fmt.Errorf("the stage category cannot be deleted: %w", core.ErrForbidden)
		}
		if !category.AssignedAmount.IsZero() {
			return fmt.Errorf("category %q still holds %s: %w",
				category.Title, core.FormatAmount(category.AssignedAmount), core.ErrForbidden)
		}

		if err := q.ClearCategoryFromTransactions(ctx, id); err != nil {
			return err
		}
		return q.DeleteCategory(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Category deleted", "id", id)
	return nil
}
