package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

const categoryColumns = `id, title, description, assigned_amount, is_stage`

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var (
		c        core.Category
		assigned string
	)
	if err := row.Scan(&c.ID, &c.Title, &c.Description, &assigned, &c.IsStage); err != nil {
		return core.Category{}, err
	}
	amount, err := parseMoney(assigned)
	if err != nil {
		return core.Category{}, err
	}
	c.AssignedAmount = amount
	return c, nil
}

type CreateCategoryParams struct {
	Title       string
	Description string
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (core.Category, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (title, description, assigned_amount, is_stage) VALUES (?, ?, '0.00', 0)`,
		arg.Title, arg.Description)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("create category id: %w", err)
	}
	return q.GetCategory(ctx, id)
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

// GetStageCategory resolves the staging bucket by role flag.
func (q *Queries) GetStageCategory(ctx context.Context) (core.Category, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE is_stage = 1 LIMIT 1`)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("stage category: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get stage category: %w", err)
	}
	return c, nil
}

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (q *Queries) ExistsCategoryTitle(ctx context.Context, title string, excludeID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE title = ? AND id != ?)`, title, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check category title: %w", err)
	}
	return exists, nil
}

type UpdateCategoryInfoParams struct {
	ID          int64
	Title       string
	Description string
}

func (q *Queries) UpdateCategoryInfo(ctx context.Context, arg UpdateCategoryInfoParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE categories SET title = ?, description = ? WHERE id = ?`,
		arg.Title, arg.Description, arg.ID)
	if err != nil {
		return fmt.Errorf("update category %d: %w", arg.ID, err)
	}
	return nil
}

// SetCategoryAmount persists an assigned amount computed by the category
// ledger; the non-negative guard lives there, not here.
func (q *Queries) SetCategoryAmount(ctx context.Context, id int64, amount decimal.Decimal) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE categories SET assigned_amount = ? WHERE id = ?`,
		core.FormatAmount(amount), id)
	if err != nil {
		return fmt.Errorf("set category %d amount: %w", id, err)
	}
	return nil
}

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return nil
}

// ClearCategoryFromTransactions detaches every transaction that referenced a
// category about to disappear.
func (q *Queries) ClearCategoryFromTransactions(ctx context.Context, categoryID int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = NULL WHERE category_id = ?`, categoryID)
	if err != nil {
		return fmt.Errorf("clear category %d from transactions: %w", categoryID, err)
	}
	return nil
}
