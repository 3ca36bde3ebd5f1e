package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

const transactionColumns = `id, payee, creation_datetime, last_update_datetime,
	transaction_date, description, amount, is_transfer, category_id, account_id`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		tx         core.Transaction
		createdAt  string
		updatedAt  string
		txDate     string
		amount     string
		categoryID sql.NullInt64
	)
	err := row.Scan(&tx.ID, &tx.Payee, &createdAt, &updatedAt, &txDate,
		&tx.Description, &amount, &tx.IsTransfer, &categoryID, &tx.AccountID)
	if err != nil {
		return core.Transaction{}, err
	}
	if tx.CreatedAt, err = parseDateTime(createdAt); err != nil {
		return core.Transaction{}, err
	}
	if tx.UpdatedAt, err = parseDateTime(updatedAt); err != nil {
		return core.Transaction{}, err
	}
	day, err := parseDateColumn(txDate)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Date = core.Date{Time: day}
	if tx.Amount, err = parseMoney(amount); err != nil {
		return core.Transaction{}, err
	}
	tx.CategoryID = idPointer(categoryID)
	return tx, nil
}

type CreateTransactionParams struct {
	Payee       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Date        core.Date
	Description string
	Amount      decimal.Decimal
	IsTransfer  bool
	CategoryID  *int64
	AccountID   int64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (core.Transaction, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (payee, creation_datetime, last_update_datetime,
			transaction_date, description, amount, is_transfer, category_id, account_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Payee, fmtDateTime(arg.CreatedAt), fmtDateTime(arg.UpdatedAt),
		arg.Date.String(), arg.Description, core.FormatAmount(arg.Amount),
		arg.IsTransfer, nullableID(arg.CategoryID), arg.AccountID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction id: %w", err)
	}
	return q.GetTransaction(ctx, id)
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

func (q *Queries) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (q *Queries) ListTransactionsByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE account_id = ? ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for account %d: %w", accountID, err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect transactions: %w", err)
	}
	return txs, nil
}

// SumTransactionAmounts totals every recorded amount. Summation happens in
// Go so money never passes through SQLite's float arithmetic.
func (q *Queries) SumTransactionAmounts(ctx context.Context) (decimal.Decimal, error) {
	return q.sumAmounts(ctx, `SELECT amount FROM transactions`)
}

// SumTransactionAmountsByAccount totals one account's recorded amounts.
func (q *Queries) SumTransactionAmountsByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	return q.sumAmounts(ctx, `SELECT amount FROM transactions WHERE account_id = ?`, accountID)
}

func (q *Queries) sumAmounts(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum amounts: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		amount, err := parseMoney(raw)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("sum amounts: %w", err)
	}
	return sum, nil
}

type UpdateTransactionParams struct {
	ID          int64
	Payee       string
	UpdatedAt   time.Time
	Date        core.Date
	Description string
	Amount      decimal.Decimal
	CategoryID  *int64
	AccountID   int64
}

// UpdateTransaction writes the merged row state; the lifecycle manager owns
// which fields actually changed and every ledger side effect.
func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET payee = ?, last_update_datetime = ?, transaction_date = ?,
			description = ?, amount = ?, category_id = ?, account_id = ?
		 WHERE id = ?`,
		arg.Payee, fmtDateTime(arg.UpdatedAt), arg.Date.String(), arg.Description,
		core.FormatAmount(arg.Amount), nullableID(arg.CategoryID), arg.AccountID, arg.ID)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", arg.ID, err)
	}
	return nil
}

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return nil
}

func (q *Queries) DeleteTransactionsByAccount(ctx context.Context, accountID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("delete transactions for account %d: %w", accountID, err)
	}
	return nil
}
