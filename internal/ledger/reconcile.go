package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// ConsistencyReport describes one account's ledger health after a check.
type ConsistencyReport struct {
	AccountID      int64
	RunningTotal   decimal.Decimal
	TransactionSum decimal.Decimal
	CurrentRows    int64
	Repaired       bool
	InSync         bool
}

// CheckAccountConsistency verifies the two redundant views of an account
// agree: exactly one snapshot row flagged current, and its running total
// equal to the sum of the account's transactions. A lost or duplicated flag
// is repaired by promoting the newest row; a total that disagrees with the
// transaction sum is only reported, never rewritten.
func (s *Service) CheckAccountConsistency(ctx context.Context, accountID int64) (ConsistencyReport, error) {
	report := ConsistencyReport{
		AccountID:      accountID,
		RunningTotal:   decimal.Zero,
		TransactionSum: decimal.Zero,
	}

	err := s.store.WithinTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetAccount(ctx, accountID); err != nil {
			return err
		}

		count, err := q.CountCurrentFlags(ctx, accountID)
		if err != nil {
			return err
		}
		report.CurrentRows = count

		if count == 1 {
			entry, err := q.GetCurrentBalance(ctx, accountID)
			if err != nil {
				return err
			}
			report.RunningTotal = entry.RunningTotal
		} else {
			entry, err := promoteLatest(ctx, q, accountID)
			switch {
			case err == nil:
				report.Repaired = true
				report.CurrentRows = 1
				report.RunningTotal = entry.RunningTotal
			case errors.Is(err, core.ErrNotFound):
				// zero flags on zero rows: a fresh account, nothing to repair
			default:
				return err
			}
		}

		sum, err := q.SumTransactionAmountsByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		report.TransactionSum = sum
		return nil
	})
	if err != nil {
		return ConsistencyReport{}, err
	}

	report.InSync = report.RunningTotal.Equal(report.TransactionSum)
	return report, nil
}
