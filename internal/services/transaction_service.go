package services

import (
	"context"
	"fmt"
	"log/slog"

	"kosh/internal/amqp"
	"kosh/internal/core"
	"kosh/internal/store"
)

// TransactionService persists transactions and triggers the balance
// recalculation that follows every write. With AMQP configured the recalc
// runs in the worker; otherwise it runs inline.
type TransactionService struct {
	store      store.Store
	amqpClient *amqp.Client
	recalc     *RecalcService
}

func NewTransactionService(st store.Store, amqpClient *amqp.Client, recalc *RecalcService) *TransactionService {
	return &TransactionService{
		store:      st,
		amqpClient: amqpClient,
		recalc:     recalc,
	}
}

// Create validates and saves a transaction, then requests a recalc. The
// save is authoritative: a failed recalc trigger is logged, not returned,
// since the ledger can always be re-derived.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	slog.InfoContext(ctx, "Created transaction",
		"id", saved.ID,
		"kind", string(saved.Kind),
		"amount", saved.Amount.String(),
		"date", saved.Date.String())

	s.requestRecalc(ctx, amqp.ReasonTransaction, saved.ID)

	return saved, nil
}

// List returns joined transaction rows for display.
func (s *TransactionService) List(ctx context.Context, f store.TransactionFilter) ([]store.TransactionDetails, error) {
	return s.store.ListTransactions(ctx, f)
}

// RequestRecalc triggers a full recalculation for reasons not tied to a
// single transaction (manual endpoint, import completion).
func (s *TransactionService) RequestRecalc(ctx context.Context, reason string) {
	s.requestRecalc(ctx, reason, 0)
}

func (s *TransactionService) requestRecalc(ctx context.Context, reason string, txnID int64) {
	if s.amqpClient != nil {
		err := s.amqpClient.PublishRecalcRequest(ctx, amqp.NewRecalcRequestMessage(reason, txnID))
		if err == nil {
			return
		}
		slog.WarnContext(ctx, "Recalc publish failed, falling back to inline recalc",
			"reason", reason, "error", err)
	}

	if _, err := s.recalc.Recalculate(ctx); err != nil {
		slog.ErrorContext(ctx, "Inline recalculation failed",
			"reason", reason, "error", err)
	}
}

// Close releases the store and broker connections.
func (s *TransactionService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}
	return nil
}
