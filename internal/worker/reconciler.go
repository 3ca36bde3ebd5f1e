package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

// ConsistencyChecker is the slice of the ledger service the worker drives.
type ConsistencyChecker interface {
	AccountIDs(ctx context.Context) ([]int64, error)
	CheckAccountConsistency(ctx context.Context, accountID int64) (ledger.ConsistencyReport, error)
}

// Reconciler verifies account-level ledger consistency: event-driven checks
// for the accounts a mutation touched, plus full sweeps as a backup for lost
// messages.
type Reconciler struct {
	ledger    ConsistencyChecker
	batchSize int
}

func NewReconciler(checker ConsistencyChecker, batchSize int) *Reconciler {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Reconciler{
		ledger:    checker,
		batchSize: batchSize,
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP, checking every
// account the mutation touched. An account that vanished between the event
// and the check is not an error; anything else is returned so the delivery
// gets requeued.
func (r *Reconciler) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"event_id", msg.EventID,
		"type", msg.Type,
		"account_ids", msg.AccountIDs)

	for _, accountID := range msg.AccountIDs {
		report, err := r.ledger.CheckAccountConsistency(ctx, accountID)
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Account vanished before consistency check",
				"account_id", accountID, "event_id", msg.EventID)
			continue
		}
		if err != nil {
			return fmt.Errorf("check account %d: %w", accountID, err)
		}
		r.reportFindings(ctx, report)
	}

	return nil
}

// SweepAllAccounts checks every account, batchSize checks in flight at a
// time. Storage serializes the actual work; the limit only bounds how much
// piles up behind it.
func (r *Reconciler) SweepAllAccounts(ctx context.Context) error {
	ids, err := r.ledger.AccountIDs(ctx)
	if err != nil {
		return fmt.Errorf("list account ids: %w", err)
	}
	if len(ids) == 0 {
		slog.InfoContext(ctx, "No accounts to reconcile")
		return nil
	}

	var checked, repaired, drifted atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.batchSize)
	for _, accountID := range ids {
		g.Go(func() error {
			report, err := r.ledger.CheckAccountConsistency(gctx, accountID)
			if errors.Is(err, core.ErrNotFound) {
				// Deleted mid-sweep, nothing left to verify.
				return nil
			}
			if err != nil {
				return fmt.Errorf("check account %d: %w", accountID, err)
			}

			checked.Add(1)
			r.reportFindings(gctx, report)
			if report.Repaired {
				repaired.Add(1)
			}
			if !report.InSync {
				drifted.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Reconciliation sweep completed",
		"accounts", checked.Load(),
		"repaired", repaired.Load(),
		"drifted", drifted.Load())
	return nil
}

// StartupCheck sweeps once at boot to recover from missed events or worker
// downtime.
func (r *Reconciler) StartupCheck(ctx context.Context) error {
	slog.InfoContext(ctx, "Running startup consistency sweep")
	if err := r.SweepAllAccounts(ctx); err != nil {
		return fmt.Errorf("startup sweep: %w", err)
	}
	return nil
}

func (r *Reconciler) reportFindings(ctx context.Context, report ledger.ConsistencyReport) {
	if report.Repaired {
		slog.WarnContext(ctx, "Repaired current balance pointer",
			"account_id", report.AccountID,
			"running_total", report.RunningTotal)
	}
	if !report.InSync {
		// Drift means a past mutation escaped its transaction. Loud, but
		// never auto-rewritten: the transaction table stays authoritative.
		slog.ErrorContext(ctx, "Ledger drift detected",
			"account_id", report.AccountID,
			"running_total", report.RunningTotal,
			"transaction_sum", report.TransactionSum)
	}
}
