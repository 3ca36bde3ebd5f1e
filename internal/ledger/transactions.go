package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// NewTransaction carries the caller's fields for a fresh ledger entry.
// Positive amounts are inflows, negative amounts outflows.
type NewTransaction struct {
	Payee       string
	Date        core.Date
	Description string
	Amount      decimal.Decimal
	CategoryID  *int64
	AccountID   int64
}

// TransactionPatch is a partial update; nil fields stay as they are.
type TransactionPatch struct {
	Payee       *string
	Date        *core.Date
	Description *string
	Amount      *decimal.Decimal
	CategoryID  *int64
	AccountID   *int64
}

// NewTransfer describes a movement of funds between two accounts. The sign
// of Amount is ignored; both legs are derived from its absolute value.
type NewTransfer struct {
	FromAccountID int64
	ToAccountID   int64
	Amount        decimal.Decimal
	Date          core.Date
	Description   string
}

type categoryDelta struct {
	category core.Category
	delta    decimal.Decimal
}

type balanceAppend struct {
	accountID int64
	delta     decimal.Decimal
	recorded  decimal.Decimal
}

// effectDiff is the complete set of ledger side effects one update implies.
// It is computed and validated in full before anything is written, so a
// rejected update leaves no partial state behind.
type effectDiff struct {
	categories []categoryDelta
	balances   []balanceAppend
}

// CreateTransaction records a transaction and keeps the category and balance
// ledgers in step, all inside one storage transaction. A zero date defaults
// to today, a zero account to the default checking account.
//
// Inflows land in the stage category no matter which category was requested;
// outflows may not leave the stage category directly.
func (s *Service) CreateTransaction(ctx context.Context, input NewTransaction) (core.Transaction, error) {
	if input.Description == "" {
		input.Description = core.DefaultDescription
	}
	if input.Date.IsZero() {
		input.Date = s.today()
	}
	draft := core.Transaction{
		Payee:       strings.TrimSpace(input.Payee),
		Date:        input.Date,
		Description: input.Description,
		Amount:      input.Amount,
		CategoryID:  input.CategoryID,
		AccountID:   input.AccountID,
	}
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.ensureNotFuture(input.Date); err != nil {
		return core.Transaction{}, err
	}

	var created core.Transaction
	err := s.store.WithinTx(ctx, func(q *storage.Queries) error {
		accountID, err := resolveAccountID(ctx, q, draft.AccountID)
		if err != nil {
			return err
		}
		draft.AccountID = accountID

		// The requested category is checked before the stage override so a
		// bad reference fails even when the amount would be staged anyway.
		if draft.CategoryID != nil {
			category, err := q.GetCategory(ctx, *draft.CategoryID)
			if err != nil {
				return err
			}
			if !category.IsStage && category.AssignedAmount.Add(draft.Amount).IsNegative() {
				return fmt.Errorf("category %q would drop to %s: %w", category.Title,
					core.FormatAmount(category.AssignedAmount.Add(draft.Amount)), core.ErrNegativeBalance)
			}
		}

		effective := draft.CategoryID
		if draft.Amount.IsPositive() {
			stage, err := q.GetStageCategory(ctx)
			if err != nil {
				return err
			}
			effective = &stage.ID
		} else if draft.CategoryID != nil {
			stage, err := q.GetStageCategory(ctx)
			if err != nil {
				return err
			}
			if *draft.CategoryID == stage.ID {
				return fmt.Errorf("outflows cannot leave the stage category directly: %w", core.ErrForbidden)
			}
		}

		now := s.timestamp()
		tx, err := q.CreateTransaction(ctx, storage.CreateTransactionParams{
			Payee:       draft.Payee,
			CreatedAt:   now,
			UpdatedAt:   now,
			Date:        draft.Date,
			Description: draft.Description,
			Amount:      draft.Amount,
			IsTransfer:  false,
			CategoryID:  effective,
			AccountID:   draft.AccountID,
		})
		if err != nil {
			return err
		}

		if effective != nil {
			if _, err := applyCategoryDelta(ctx, q, *effective, draft.Amount); err != nil {
				return err
			}
		}
		if _, err := s.appendBalance(ctx, q, draft.AccountID, &tx.ID, draft.Amount, draft.Amount); err != nil {
			return err
		}

		created = tx
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"id", created.ID, "account_id", created.AccountID, "amount", core.FormatAmount(created.Amount))
	s.publishEvent(ctx, amqp.EventTransactionCreated, []int64{created.ID}, []int64{created.AccountID})
	return created, nil
}

// UpdateTransaction applies a partial update. The full set of category and
// balance effects is computed as a diff up front, every guard is checked
// against that diff, and only then do the ledgers and the row change.
func (s *Service) UpdateTransaction(ctx context.Context, id int64, patch TransactionPatch) (core.Transaction, error) {
	if patch.Amount != nil {
		if err := core.ValidateAmount(*patch.Amount); err != nil {
			return core.Transaction{}, err
		}
	}
	if patch.Date != nil {
		if err := patch.Date.Validate(); err != nil {
			return core.Transaction{}, err
		}
		if err := s.ensureNotFuture(*patch.Date); err != nil {
			return core.Transaction{}, err
		}
	}

	var (
		updated core.Transaction
		touched []int64
	)
	err := s.store.WithinTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if old.IsTransfer && patch.CategoryID != nil {
			return core.ErrTransferCategory
		}

		var newCategory *core.Category
		if patch.CategoryID != nil {
			c, err := q.GetCategory(ctx, *patch.CategoryID)
			if err != nil {
				return err
			}
			newCategory = &c
		}
		var oldCategory *core.Category
		if old.CategoryID != nil {
			c, err := q.GetCategory(ctx, *old.CategoryID)
			if err != nil {
				return err
			}
			oldCategory = &c
		}
		if patch.AccountID != nil {
			if _, err := q.GetAccount(ctx, *patch.AccountID); err != nil {
				return err
			}
		}

		merged := old
		if patch.Payee != nil {
			merged.Payee = strings.TrimSpace(*patch.Payee)
		}
		if patch.Date != nil {
			merged.Date = *patch.Date
		}
		if patch.Description != nil {
			merged.Description = *patch.Description
		}
		if patch.Amount != nil {
			merged.Amount = *patch.Amount
		}
		if patch.CategoryID != nil {
			merged.CategoryID = patch.CategoryID
		}
		if patch.AccountID != nil {
			merged.AccountID = *patch.AccountID
		}
		if err := merged.Validate(); err != nil {
			return err
		}

		// The stage rule judges the merged state: whichever category the
		// transaction ends up with must not fund an outflow if it is stage.
		effCategory := oldCategory
		if newCategory != nil {
			effCategory = newCategory
		}
		if !old.IsTransfer && effCategory != nil && effCategory.IsStage && merged.Amount.IsNegative() {
			return fmt.Errorf("outflows cannot leave the stage category directly: %w", core.ErrForbidden)
		}

		amountChanged := patch.Amount != nil && !merged.Amount.Equal(old.Amount)
		amountDiff := merged.Amount.Sub(old.Amount)
		categoryChanged := patch.CategoryID != nil &&
			(old.CategoryID == nil || *old.CategoryID != *patch.CategoryID)
		accountChanged := patch.AccountID != nil && *patch.AccountID != old.AccountID

		var diff effectDiff
		switch {
		case categoryChanged:
			if oldCategory != nil {
				diff.categories = append(diff.categories,
					categoryDelta{category: *oldCategory, delta: old.Amount.Neg()})
			}
			diff.categories = append(diff.categories,
				categoryDelta{category: *newCategory, delta: merged.Amount})
		case amountChanged && effCategory != nil:
			diff.categories = append(diff.categories,
				categoryDelta{category: *effCategory, delta: amountDiff})
		}

		if accountChanged {
			// The origin gets a reversing entry, the destination a fresh one.
			// Both histories stay append-only.
			diff.balances = append(diff.balances,
				balanceAppend{accountID: old.AccountID, delta: old.Amount.Neg(), recorded: old.Amount.Neg()},
				balanceAppend{accountID: merged.AccountID, delta: merged.Amount, recorded: merged.Amount})
		} else if amountChanged {
			diff.balances = append(diff.balances,
				balanceAppend{accountID: old.AccountID, delta: amountDiff, recorded: merged.Amount})
		}

		for _, cd := range diff.categories {
			if cd.category.IsStage {
				continue
			}
			if cd.category.AssignedAmount.Add(cd.delta).IsNegative() {
				return fmt.Errorf("category %q would drop to %s: %w", cd.category.Title,
					core.FormatAmount(cd.category.AssignedAmount.Add(cd.delta)), core.ErrNegativeBalance)
			}
		}
		for _, ba := range diff.balances {
			total, err := currentTotal(ctx, q, ba.accountID)
			if err != nil {
				return err
			}
			if total.Add(ba.delta).IsNegative() {
				return fmt.Errorf("account %d would drop to %s: %w", ba.accountID,
					core.FormatAmount(total.Add(ba.delta)), core.ErrNegativeBalance)
			}
		}

		for _, cd := range diff.categories {
			if _, err := applyCategoryDelta(ctx, q, cd.category.ID, cd.delta); err != nil {
				return err
			}
		}
		for _, ba := range diff.balances {
			if _, err := s.appendBalance(ctx, q, ba.accountID, &old.ID, ba.delta, ba.recorded); err != nil {
				return err
			}
		}

		merged.UpdatedAt = s.timestamp()
		if err := q.UpdateTransaction(ctx, storage.UpdateTransactionParams{
			ID:          id,
			Payee:       merged.Payee,
			UpdatedAt:   merged.UpdatedAt,
			Date:        merged.Date,
			Description: merged.Description,
			Amount:      merged.Amount,
			CategoryID:  merged.CategoryID,
			AccountID:   merged.AccountID,
		}); err != nil {
			return err
		}

		updated = merged
		touched = []int64{old.AccountID}
		if merged.AccountID != old.AccountID {
			touched = append(touched, merged.AccountID)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated", "id", id, "account_ids", touched)
	s.publishEvent(ctx, amqp.EventTransactionUpdated, []int64{id}, touched)
	return updated, nil
}

// DeleteTransaction removes a transaction after undoing its effects: a
// reversing snapshot row on the account and the inverse category delta.
// Snapshot rows that referenced the transaction survive with the reference
// cleared, so the account history stays complete.
func (s *Service) DeleteTransaction(ctx context.Context, id int64) error {
	var accountID int64
	err := s.store.WithinTx(ctx, func(q *storage.Queries) error {
		tx, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		var category *core.Category
		if !tx.IsTransfer && tx.CategoryID != nil {
			c, err := q.GetCategory(ctx, *tx.CategoryID)
			if err != nil {
				return err
			}
			if !c.IsStage && c.AssignedAmount.Sub(tx.Amount).IsNegative() {
				return fmt.Errorf("category %q would drop to %s: %w", c.Title,
					core.FormatAmount(c.AssignedAmount.Sub(tx.Amount)), core.ErrNegativeBalance)
			}
			category = &c
		}

		if _, err := s.appendBalance(ctx, q, tx.AccountID, &tx.ID, tx.Amount.Neg(), tx.Amount.Neg()); err != nil {
			return err
		}
		if category != nil {
			if _, err := applyCategoryDelta(ctx, q, category.ID, tx.Amount.Neg()); err != nil {
				return err
			}
		}

		if err := q.DetachBalancesFromTransaction(ctx, tx.ID); err != nil {
			return err
		}
		if err := q.DeleteTransaction(ctx, tx.ID); err != nil {
			return err
		}

		accountID = tx.AccountID
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "account_id", accountID)
	s.publishEvent(ctx, amqp.EventTransactionDeleted, []int64{id}, []int64{accountID})
	return nil
}

// Transfer moves funds between two accounts as a mirrored pair of transfer
// legs sharing one timestamp. Legs carry no category; the money only changes
// location, not budget. A zero date defaults to today.
func (s *Service) Transfer(ctx context.Context, input NewTransfer) ([]core.Transaction, error) {
	if err := core.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if input.FromAccountID == input.ToAccountID {
		return nil, core.ErrSameAccount
	}
	if input.Date.IsZero() {
		input.Date = s.today()
	}
	if err := s.ensureNotFuture(input.Date); err != nil {
		return nil, err
	}
	amount := input.Amount.Abs()
	description := input.Description
	if description == "" {
		description = core.DefaultDescription
	}

	var legs []core.Transaction
	err := s.store.WithinTx(ctx, func(q *storage.Queries) error {
		from, err := q.GetAccount(ctx, input.FromAccountID)
		if err != nil {
			return err
		}
		to, err := q.GetAccount(ctx, input.ToAccountID)
		if err != nil {
			return err
		}

		outDraft := core.Transaction{
			Payee:       "Transfer: " + to.Name,
			Date:        input.Date,
			Description: description,
			Amount:      amount.Neg(),
			AccountID:   from.ID,
		}
		if err := outDraft.Validate(); err != nil {
			return err
		}

		total, err := currentTotal(ctx, q, from.ID)
		if err != nil {
			return err
		}
		if total.Sub(amount).IsNegative() {
			return fmt.Errorf("transfer would overdraw account %q: %w", from.Name, core.ErrNegativeBalance)
		}

		now := s.timestamp()
		outLeg, err := q.CreateTransaction(ctx, storage.CreateTransactionParams{
			Payee:       outDraft.Payee,
			CreatedAt:   now,
			UpdatedAt:   now,
			Date:        input.Date,
			Description: description,
			Amount:      amount.Neg(),
			IsTransfer:  true,
			AccountID:   from.ID,
		})
		if err != nil {
			return err
		}
		inLeg, err := q.CreateTransaction(ctx, storage.CreateTransactionParams{
			Payee:       "Transfer: " + from.Name,
			CreatedAt:   now,
			UpdatedAt:   now,
			Date:        input.Date,
			Description: description,
			Amount:      amount,
			IsTransfer:  true,
			AccountID:   to.ID,
		})
		if err != nil {
			return err
		}

		if _, err := s.appendBalance(ctx, q, from.ID, &outLeg.ID, outLeg.Amount, outLeg.Amount); err != nil {
			return err
		}
		if _, err := s.appendBalance(ctx, q, to.ID, &inLeg.ID, inLeg.Amount, inLeg.Amount); err != nil {
			return err
		}

		legs = []core.Transaction{outLeg, inLeg}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transfer recorded",
		"from_account_id", input.FromAccountID, "to_account_id", input.ToAccountID,
		"amount", core.FormatAmount(amount))
	s.publishEvent(ctx, amqp.EventTransferCreated,
		[]int64{legs[0].ID, legs[1].ID}, []int64{input.FromAccountID, input.ToAccountID})
	return legs, nil
}

func (s *Service) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.Queries().GetTransaction(ctx, id)
}

func (s *Service) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.store.Queries().ListTransactions(ctx)
}

// ListAccountTransactions lists one account's transactions oldest first.
func (s *Service) ListAccountTransactions(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	q := s.store.Queries()
	if _, err := q.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return q.ListTransactionsByAccount(ctx, accountID)
}

// SumTransactions totals transaction amounts, across the whole ledger when
// accountID <= 0. With every account conserving its history this equals the
// sum of current running totals.
func (s *Service) SumTransactions(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	q := s.store.Queries()
	if accountID <= 0 {
		return q.SumTransactionAmounts(ctx)
	}
	if _, err := q.GetAccount(ctx, accountID); err != nil {
		return decimal.Decimal{}, err
	}
	return q.SumTransactionAmountsByAccount(ctx, accountID)
}
