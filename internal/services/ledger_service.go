// Package services coordinates the ledger store, the budget rules, advice
// and notifications for the HTTP server and the CLI.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"syntego/internal/budget"
	"syntego/internal/core"
	"syntego/internal/ledger"
	"syntego/internal/log"
)

// DeletedMessage is the notification sent after a delete.
const DeletedMessage = "Transaction(s) deleted"

// ErrNothingSelected is returned by Delete when no index was given.
var ErrNothingSelected = errors.New("no transactions selected")

// AddRequest is a transaction as typed by the user.
type AddRequest struct {
	Type        string
	Category    string
	Amount      string
	Description string
}

// LedgerService serialises read-modify-write cycles on the store. Every
// mutation loads the latest snapshot, applies the change and saves it whole.
type LedgerService struct {
	mu       sync.Mutex
	store    ledger.Store
	notifier budget.Notifier
	now      func() time.Time
	logger   *log.Logger
}

func NewLedgerService(store ledger.Store, notifier budget.Notifier, logger *log.Logger) *LedgerService {
	return &LedgerService{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		logger:   logger.WithComponent(log.ComponentLedger),
	}
}

// Snapshot returns the current ledger.
func (s *LedgerService) Snapshot(ctx context.Context) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return l, nil
}

// Add validates req, appends it stamped with the current time and notifies.
// It returns the stored transaction and its row index.
func (s *LedgerService) Add(ctx context.Context, req AddRequest) (core.Transaction, int, error) {
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.Transaction{}, -1, err
	}
	cat, err := core.ParseCategory(req.Category)
	if err != nil {
		return core.Transaction{}, -1, err
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, -1, err
	}
	tx := core.NewTransaction(s.now(), typ, cat, amount, req.Description)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, -1, err
	}

	index := -1
	if err := s.mutate(ctx, func(l core.Ledger) (core.Ledger, error) {
		index = len(l)
		return l.Add(tx), nil
	}); err != nil {
		return core.Transaction{}, -1, err
	}

	s.logger.InfoContext(ctx, "Transaction added", log.NewFields().
		WithOperation(log.OpCreate).
		WithTransaction(tx.Type.String(), tx.Category.String(), tx.Amount.StringFixed(2), tx.Description).
		ToSlice()...)
	s.notify(ctx, AddedMessage(tx))
	return tx, index, nil
}

// Delete removes the transactions at indices and returns how many went.
func (s *LedgerService) Delete(ctx context.Context, indices []int) (int, error) {
	if len(indices) == 0 {
		return 0, ErrNothingSelected
	}
	removed := 0
	if err := s.mutate(ctx, func(l core.Ledger) (core.Ledger, error) {
		out, err := l.Remove(indices...)
		if err != nil {
			return nil, err
		}
		removed = len(l) - len(out)
		return out, nil
	}); err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "Transactions deleted", log.FieldOperation, log.OpDelete, log.FieldCount, removed)
	s.notify(ctx, DeletedMessage)
	return removed, nil
}

func (s *LedgerService) mutate(ctx context.Context, fn func(core.Ledger) (core.Ledger, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	next, err := fn(l)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

func (s *LedgerService) notify(ctx context.Context, msg string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, msg)
}

// AddedMessage is the notification text for a new transaction.
func AddedMessage(t core.Transaction) string {
	return fmt.Sprintf("New %s added: $%s for %s", t.Type, t.Amount.StringFixed(2), t.Description)
}
