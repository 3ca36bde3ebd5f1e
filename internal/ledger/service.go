// Package ledger implements the budget consistency engine: every mutation
// keeps three views of money in agreement inside one storage transaction.
// Account running totals live in an append-only snapshot history, envelope
// categories absorb every categorized amount, and the transaction table
// remains the source the other two can always be recomputed from.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// Service orchestrates ledger operations across SQLite and AMQP
type Service struct {
	store      *storage.Store
	amqpClient *amqp.Client
	loc        *time.Location
	now        func() time.Time
}

func NewService(store *storage.Store, amqpClient *amqp.Client, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:      store,
		amqpClient: amqpClient,
		loc:        loc,
		now:        time.Now,
	}
}

// timestamp is the instant written to datetime columns. Second precision,
// UTC, so stored text compares chronologically.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// today is the calendar day in the configured timezone, used for the
// future-date guard.
func (s *Service) today() core.Date {
	n := s.now().In(s.loc)
	return core.NewDate(n.Year(), int(n.Month()), n.Day())
}

func (s *Service) ensureNotFuture(d core.Date) error {
	if d.AfterDay(s.today()) {
		return core.ErrFutureDate
	}
	return nil
}

// publishEvent notifies the reconciliation worker that the listed accounts
// changed. The mutation is already committed, so a broker failure is logged
// and swallowed.
func (s *Service) publishEvent(ctx context.Context, eventType string, transactionIDs, accountIDs []int64) {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping ledger event", "type", eventType)
		return
	}

	msg := amqp.NewLedgerEventMessage(eventType, transactionIDs, accountIDs)
	if err := s.amqpClient.PublishLedgerEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", eventType, "account_ids", accountIDs, "error", err)
		// Don't fail the request - the mutation is committed locally
	}
}

// Ping reports whether the underlying database answers
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close closes both storage and AMQP connections
func (s *Service) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
