package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bilancio/internal/core"
)

const accountColumns = `id, name, description, is_checking, iban_tail`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var (
		a        core.Account
		ibanTail sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Description, &a.IsChecking, &ibanTail); err != nil {
		return core.Account{}, err
	}
	a.IBANTail = ibanTail.String
	return a, nil
}

type CreateAccountParams struct {
	Name        string
	Description string
	IsChecking  bool
	IBANTail    string
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (core.Account, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO accounts (name, description, is_checking, iban_tail) VALUES (?, ?, ?, ?)`,
		arg.Name, arg.Description, arg.IsChecking, nullableText(arg.IBANTail))
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("create account id: %w", err)
	}
	return q.GetAccount(ctx, id)
}

func (q *Queries) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return a, nil
}

// GetCheckingAccount resolves the default account by role flag.
func (q *Queries) GetCheckingAccount(ctx context.Context) (core.Account, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE is_checking = 1 LIMIT 1`)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("checking account: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get checking account: %w", err)
	}
	return a, nil
}

func (q *Queries) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (q *Queries) ListAccountIDs(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list account ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list account ids: %w", err)
	}
	return ids, nil
}

func (q *Queries) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func (q *Queries) ExistsAccountName(ctx context.Context, name string, excludeID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE name = ? AND id != ?)`, name, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check account name: %w", err)
	}
	return exists, nil
}

func (q *Queries) ExistsIBANTail(ctx context.Context, tail string, excludeID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE iban_tail = ? AND id != ?)`, tail, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check iban tail: %w", err)
	}
	return exists, nil
}

type UpdateAccountParams struct {
	ID          int64
	Name        string
	Description string
	IBANTail    string
}

func (q *Queries) UpdateAccount(ctx context.Context, arg UpdateAccountParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, description = ?, iban_tail = ? WHERE id = ?`,
		arg.Name, arg.Description, nullableText(arg.IBANTail), arg.ID)
	if err != nil {
		return fmt.Errorf("update account %d: %w", arg.ID, err)
	}
	return nil
}

func (q *Queries) DeleteAccount(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	return nil
}
