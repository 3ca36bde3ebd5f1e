package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// AccountSummary pairs the directory fields with the account's running total.
type AccountSummary struct {
	core.Account
	RunningTotal decimal.Decimal
}

// AccountPatch carries the editable account fields; nil means unchanged. An
// empty IBANTail clears the stored tail.
type AccountPatch struct {
	Name        *string
	Description *string
	IBANTail    *string
}

// CreateAccount adds a named account to the directory. The default checking
// account is seeded by storage; accounts created here never carry the flag.
func (s *Service) CreateAccount(ctx context.Context, name, description, ibanTail string) (AccountSummary, error) {
	draft := core.Account{Name: name, Description: description, IBANTail: ibanTail}
	if err := draft.Validate(); err != nil {
		return AccountSummary{}, err
	}

	var created core.Account
	err := s.store.WithinTx(ctx, func(q *storage.Queries) error {
		taken, err := q.ExistsAccountName(ctx, draft.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("account name %q already in use: %w", draft.Name, core.ErrInvalidInput)
		}

		if draft.IBANTail != "" {
			taken, err := q.ExistsIBANTail(ctx, draft.IBANTail, 0)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("iban tail %q already in use: %w", draft.IBANTail, core.ErrInvalidInput)
			}
		}

		created, err = q.CreateAccount(ctx, storage.CreateAccountParams{
			Name:        draft.Name,
			Description: draft.Description,
			IsChecking:  false,
			IBANTail:    draft.IBANTail,
		})
		return err
	})
	if err != nil {
		return AccountSummary{}, err
	}

	slog.InfoContext(ctx, "Account created", "id", created.ID, "name", created.Name)
	return AccountSummary{Account: created, RunningTotal: decimal.Zero}, nil
}

func (s *Service) GetAccountSummary(ctx context.Context, id int64) (AccountSummary, error) {
	q := s.store.Queries()
	account, err := q.GetAccount(ctx, id)
	if err != nil {
		return AccountSummary{}, err
	}
	total, err := currentTotal(ctx, q, id)
	if err != nil {
		return AccountSummary{}, err
	}
	return AccountSummary{Account: account, RunningTotal: total}, nil
}

func (s *Service) ListAccountSummaries(ctx context.Context) ([]AccountSummary, error) {
	q := s.store.Queries()
	accounts, err := q.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]AccountSummary, 0, len(accounts))
	for _, account := range accounts {
		total, err := currentTotal(ctx, q, account.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, AccountSummary{Account: account, RunningTotal: total})
	}
	return summaries, nil
}

// AccountIDs lists every account id, for the reconciliation sweep.
func (s *Service) AccountIDs(ctx context.Context) ([]int64, error) {
	return s.store.Queries().ListAccountIDs(ctx)
}

// UpdateAccount renames an account or rewrites its description or iban tail.
func (s *Service) UpdateAccount(ctx context.Context, id int64, patch AccountPatch) (AccountSummary, error) {
	var updated AccountSummary
	err := s.store.WithinTx(ctx, func(q *storage.Queries) error {
		account, err := q.GetAccount(ctx, id)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			account.Name = *patch.Name
		}
		if patch.Description != nil {
			account.Description = *patch.Description
		}
		if patch.IBANTail != nil {
			account.IBANTail = *patch.IBANTail
		}
		if err := account.Validate(); err != nil {
			return err
		}

		if patch.Name != nil {
			taken, err := q.ExistsAccountName(ctx, account.Name, id)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("account name %q already in use: %w", account.Name, core.ErrInvalidInput)
			}
		}
		if patch.IBANTail != nil && account.IBANTail != "" {
			taken, err := q.ExistsIBANTail(ctx, account.IBANTail, id)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("iban tail %q already in use: %w", account.IBANTail, core.ErrInvalidInput)
			}
		}

		if err := q.UpdateAccount(ctx, storage.UpdateAccountParams{
			ID:          id,
			Name:        account.Name,
			Description: account.Description,
			IBANTail:    account.IBANTail,
		}); err != nil {
			return err
		}

		total, err := currentTotal(ctx, q, id)
		if err != nil {
			return err
		}
		updated = AccountSummary{Account: account, RunningTotal: total}
		return nil
	})
	return updated, err
}

// DeleteAccount removes an account and its whole history. The last account,
// the default checking account, and any account with a nonzero running total
// are protected. Snapshot rows on other accounts that reference this
// account's transactions survive with the reference cleared; category
// assignments are not unwound, the departing history nets to zero.
func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	var removed int
	err := s.store.WithinTx(ctx, func(q *storage.Queries) error {
		account, err := q.GetAccount(ctx, id)
		if err != nil {
			return err
		}

		count, err := q.CountAccounts(ctx)
		if err != nil {
			return err
		}
		if count <= 1 {
			return fmt.Errorf("cannot delete the last account: %w", core.ErrForbidden)
		}
		if account.IsChecking {
			return fmt.Errorf("account %q is the default account: %w", account.Name, core.ErrForbidden)
		}

		total, err := currentTotal(ctx, q, id)
		if err != nil {
			return err
		}
		if !total.IsZero() {
			return fmt.Errorf("account %q still holds %s: %w",
				account.Name, core.FormatAmount(total), core.ErrForbidden)
		}

		transactions, err := q.ListTransactionsByAccount(ctx, id)
		if err != nil {
			return err
		}
		for _, tx := range transactions {
			if err := q.DetachBalancesFromTransaction(ctx, tx.ID); err != nil {
				return err
			}
		}
		removed = len(transactions)

		if err := q.DeleteBalancesByAccount(ctx, id); err != nil {
			return err
		}
		if err := q.DeleteTransactionsByAccount(ctx, id); err != nil {
			return err
		}
		return q.DeleteAccount(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Account deleted", "id", id, "transactions_removed", removed)
	return nil
}
