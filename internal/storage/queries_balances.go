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

const balanceColumns = `id, account_id, entry_datetime, transaction_amount_record,
	running_total, is_current, transaction_id`

func scanBalance(row interface{ Scan(...any) error }) (core.BalanceEntry, error) {
	var (
		b             core.BalanceEntry
		entryTime     string
		amountRecord  string
		runningTotal  string
		transactionID sql.NullInt64
	)
	err := row.Scan(&b.ID, &b.AccountID, &entryTime, &amountRecord,
		&runningTotal, &b.IsCurrent, &transactionID)
	if err != nil {
		return core.BalanceEntry{}, err
	}
	if b.EntryTime, err = parseDateTime(entryTime); err != nil {
		return core.BalanceEntry{}, err
	}
	if b.AmountRecord, err = parseMoney(amountRecord); err != nil {
		return core.BalanceEntry{}, err
	}
	if b.RunningTotal, err = parseMoney(runningTotal); err != nil {
		return core.BalanceEntry{}, err
	}
	b.TransactionID = idPointer(transactionID)
	return b, nil
}

type CreateBalanceEntryParams struct {
	AccountID     int64
	EntryTime     time.Time
	AmountRecord  decimal.Decimal
	RunningTotal  decimal.Decimal
	IsCurrent     bool
	TransactionID *int64
}

func (q *Queries) CreateBalanceEntry(ctx context.Context, arg CreateBalanceEntryParams) (core.BalanceEntry, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO balances (account_id, entry_datetime, transaction_amount_record,
			running_total, is_current, transaction_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		arg.AccountID, fmtDateTime(arg.EntryTime), core.FormatAmount(arg.AmountRecord),
		core.FormatAmount(arg.RunningTotal), arg.IsCurrent, nullableID(arg.TransactionID))
	if err != nil {
		return core.BalanceEntry{}, fmt.Errorf("create balance entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.BalanceEntry{}, fmt.Errorf("create balance entry id: %w", err)
	}
	return q.GetBalanceEntry(ctx, id)
}

func (q *Queries) GetBalanceEntry(ctx context.Context, id int64) (core.BalanceEntry, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+balanceColumns+` FROM balances WHERE id = ?`, id)
	b, err := scanBalance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BalanceEntry{}, fmt.Errorf("balance entry %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.BalanceEntry{}, fmt.Errorf("get balance entry %d: %w", id, err)
	}
	return b, nil
}

// GetCurrentBalance returns the snapshot row flagged current for an account.
// A lost flag surfaces as ErrNotFound; callers decide whether to fall back.
func (q *Queries) GetCurrentBalance(ctx context.Context, accountID int64) (core.BalanceEntry, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+balanceColumns+` FROM balances WHERE account_id = ? AND is_current = 1 LIMIT 1`,
		accountID)
	b, err := scanBalance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BalanceEntry{}, fmt.Errorf("current balance for account %d: %w", accountID, core.ErrNotFound)
	}
	if err != nil {
		return core.BalanceEntry{}, fmt.Errorf("get current balance for account %d: %w", accountID, err)
	}
	return b, nil
}

// GetLatestBalance returns the newest snapshot row for an account; the row
// id breaks ties between entries written within the same second.
func (q *Queries) GetLatestBalance(ctx context.Context, accountID int64) (core.BalanceEntry, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+balanceColumns+` FROM balances WHERE account_id = ?
		 ORDER BY entry_datetime DESC, id DESC LIMIT 1`, accountID)
	b, err := scanBalance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BalanceEntry{}, fmt.Errorf("latest balance for account %d: %w", accountID, core.ErrNotFound)
	}
	if err != nil {
		return core.BalanceEntry{}, fmt.Errorf("get latest balance for account %d: %w", accountID, err)
	}
	return b, nil
}

func (q *Queries) ClearCurrentFlags(ctx context.Context, accountID int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE balances SET is_current = 0 WHERE account_id = ? AND is_current = 1`, accountID)
	if err != nil {
		return fmt.Errorf("clear current flags for account %d: %w", accountID, err)
	}
	return nil
}

func (q *Queries) SetBalanceCurrent(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE balances SET is_current = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("set balance %d current: %w", id, err)
	}
	return nil
}

func (q *Queries) CountCurrentFlags(ctx context.Context, accountID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM balances WHERE account_id = ? AND is_current = 1`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count current flags for account %d: %w", accountID, err)
	}
	return n, nil
}

func (q *Queries) ListBalancesByTransaction(ctx context.Context, transactionID int64) ([]core.BalanceEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+balanceColumns+` FROM balances WHERE transaction_id = ?
		 ORDER BY entry_datetime, id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list balances for transaction %d: %w", transactionID, err)
	}
	defer rows.Close()
	return collectBalances(rows)
}

func (q *Queries) ListBalancesByAccount(ctx context.Context, accountID int64) ([]core.BalanceEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+balanceColumns+` FROM balances WHERE account_id = ?
		 ORDER BY entry_datetime, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list balances for account %d: %w", accountID, err)
	}
	defer rows.Close()
	return collectBalances(rows)
}

func collectBalances(rows *sql.Rows) ([]core.BalanceEntry, error) {
	var entries []core.BalanceEntry
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance entry: %w", err)
		}
		entries = append(entries, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect balance entries: %w", err)
	}
	return entries, nil
}

func (q *Queries) DeleteBalancesByAccount(ctx context.Context, accountID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM balances WHERE account_id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("delete balances for account %d: %w", accountID, err)
	}
	return nil
}

// DetachBalancesFromTransaction nulls the transaction reference so audit
// rows survive the transaction row's deletion.
func (q *Queries) DetachBalancesFromTransaction(ctx context.Context, transactionID int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE balances SET transaction_id = NULL WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return fmt.Errorf("detach balances from transaction %d: %w", transactionID, err)
	}
	return nil
}
