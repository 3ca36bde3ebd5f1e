package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// currentTotal resolves an account's running total: the row flagged current
// when the pointer is intact, the newest row when it is lost, zero for an
// account with no history yet.
func currentTotal(ctx context.Context, q *storage.Queries, accountID int64) (decimal.Decimal, error) {
	entry, err := q.GetCurrentBalance(ctx, accountID)
	if err == nil {
		return entry.RunningTotal, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return decimal.Decimal{}, err
	}

	entry, err = q.GetLatestBalance(ctx, accountID)
	if err == nil {
		return entry.RunningTotal, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return decimal.Decimal{}, err
	}

	return decimal.Zero, nil
}

// appendBalance writes the next snapshot row for an account: the previous
// running total plus delta, flagged as the new head. recorded is the amount
// stored on the row itself, which on reversing entries differs in sign from
// the transaction it undoes.
func (s *Service) appendBalance(ctx context.Context, q *storage.Queries, accountID int64, transactionID *int64, delta, recorded decimal.Decimal) (core.BalanceEntry, error) {
	total, err := currentTotal(ctx, q, accountID)
	if err != nil {
		return core.BalanceEntry{}, err
	}

	if err := q.ClearCurrentFlags(ctx, accountID); err != nil {
		return core.BalanceEntry{}, err
	}

	return q.CreateBalanceEntry(ctx, storage.CreateBalanceEntryParams{
		AccountID:     accountID,
		EntryTime:     s.timestamp(),
		AmountRecord:  recorded,
		RunningTotal:  total.Add(delta),
		IsCurrent:     true,
		TransactionID: transactionID,
	})
}

// promoteLatest repairs the head pointer within a transaction scope: every
// flag cleared, the newest row flagged. Idempotent, and also collapses the
// pathological state of several rows flagged at once.
func promoteLatest(ctx context.Context, q *storage.Queries, accountID int64) (core.BalanceEntry, error) {
	latest, err := q.GetLatestBalance(ctx, accountID)
	if err != nil {
		return core.BalanceEntry{}, err
	}

	if err := q.ClearCurrentFlags(ctx, accountID); err != nil {
		return core.BalanceEntry{}, err
	}
	if err := q.SetBalanceCurrent(ctx, latest.ID); err != nil {
		return core.BalanceEntry{}, err
	}

	latest.IsCurrent = true
	return latest, nil
}

// PromoteLatestToCurrent restores the current flag to the newest snapshot row
// of an account. NotFound when the account has no history to promote.
func (s *Service) PromoteLatestToCurrent(ctx context.Context, accountID int64) (core.BalanceEntry, error) {
	var promoted core.BalanceEntry
	err := s.store.WithinTx(ctx, func(q *storage.Queries) error {
		entry, err := promoteLatest(ctx, q, accountID)
		if err != nil {
			return err
		}
		promoted = entry
		return nil
	})
	if err != nil {
		return core.BalanceEntry{}, err
	}

	slog.InfoContext(ctx, "Promoted latest balance entry to current",
		"account_id", accountID, "balance_id", promoted.ID)
	return promoted, nil
}

// CurrentBalance returns the snapshot row an account's running total lives
// on. accountID <= 0 targets the default checking account. When the current
// flag is lost the newest row is returned read-only, or promoted first when
// repair is set. NotFound when the account has no history at all.
func (s *Service) CurrentBalance(ctx context.Context, accountID int64, repair bool) (core.BalanceEntry, error) {
	q := s.store.Queries()

	id, err := resolveAccountID(ctx, q, accountID)
	if err != nil {
		return core.BalanceEntry{}, err
	}

	entry, err := q.GetCurrentBalance(ctx, id)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.BalanceEntry{}, err
	}

	if repair {
		return s.PromoteLatestToCurrent(ctx, id)
	}
	return q.GetLatestBalance(ctx, id)
}

// BalanceHistory lists an account's snapshot rows oldest first.
func (s *Service) BalanceHistory(ctx context.Context, accountID int64) ([]core.BalanceEntry, error) {
	q := s.store.Queries()
	if _, err := q.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return q.ListBalancesByAccount(ctx, accountID)
}

// TransactionBalances lists the snapshot rows a transaction produced. Under
// the reversing-entry policy these can live on more than one account.
func (s *Service) TransactionBalances(ctx context.Context, transactionID int64) ([]core.BalanceEntry, error) {
	q := s.store.Queries()
	if _, err := q.GetTransaction(ctx, transactionID); err != nil {
		return nil, err
	}
	return q.ListBalancesByTransaction(ctx, transactionID)
}

// resolveAccountID maps the zero value to the default checking account and
// verifies explicit ids exist.
func resolveAccountID(ctx context.Context, q *storage.Queries, accountID int64) (int64, error) {
	if accountID > 0 {
		if _, err := q.GetAccount(ctx, accountID); err != nil {
			return 0, err
		}
		return accountID, nil
	}

	checking, err := q.GetCheckingAccount(ctx)
	if err != nil {
		return 0, err
	}
	return checking.ID, nil
}
