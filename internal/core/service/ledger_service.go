package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/shopping-list/internal/core/domain"
	"github.com/rl1809/shopping-list/internal/port"
)

// LedgerService merges client transactions into the running counts.
type LedgerService struct {
	db    port.DatabaseRepository
	cache port.CacheRepository
	now   func() time.Time
}

// NewLedgerService wires the ledger to its stores. now defaults to time.Now.
func NewLedgerService(db port.DatabaseRepository, cache port.CacheRepository, now func() time.Time) *LedgerService {
	if now == nil {
		now = time.Now
	}
	return &LedgerService{db: db, cache: cache, now: now}
}

// Apply records one transaction. Zero deltas and replays of a known transaction id
// are discarded outcomes, not errors. A delta that would make the count negative
// fails with domain.ErrInvariantViolation and changes nothing.
func (s *LedgerService) Apply(ctx context.Context, req domain.TransactionRequest) (domain.Outcome, error) {
	if strings.TrimSpace(req.SubmittingUser) == "" {
		return domain.Outcome{}, domain.ErrAuthenticationRequired
	}

	id, err := uuid.Parse(req.TransactionID)
	if err != nil {
		return domain.Outcome{}, domain.NewValidationError("transactionid", "malformed transaction id %q", req.TransactionID)
	}
	txID := id.String()

	if req.ItemID <= 0 {
		return domain.Outcome{}, domain.NewValidationError("itemid", "item id must be positive, got %d", req.ItemID)
	}

	if req.Delta == 0 {
		slog.Debug("transaction discarded", "transaction_id", txID, "reason", domain.ReasonZeroDelta)
		return domain.Discarded(txID, domain.ReasonZeroDelta), nil
	}

	seen, err := s.cache.Seen(ctx, txID)
	if err != nil {
		slog.Warn("seen cache lookup failed", "transaction_id", txID, "error", err)
	} else if seen {
		slog.Debug("transaction discarded", "transaction_id", txID, "reason", domain.ReasonDuplicate)
		return domain.Discarded(txID, domain.ReasonDuplicate), nil
	}

	unlock, err := s.cache.LockItem(ctx, req.ItemID)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%w: lock item %d: %v", domain.ErrStorageUnavailable, req.ItemID, err)
	}
	defer unlock()

	outcome, err := s.db.ApplyTransaction(ctx, domain.Transaction{
		TransactionID:  txID,
		ItemID:         req.ItemID,
		Delta:          req.Delta,
		SubmittingUser: req.SubmittingUser,
		ProcessedAtUTC: domain.FormatTimestamp(s.now()),
	})
	if err != nil {
		return domain.Outcome{}, err
	}

	if err := s.cache.MarkSeen(ctx, txID); err != nil {
		slog.Warn("failed to mark transaction seen", "transaction_id", txID, "error", err)
	}

	if outcome.Status == domain.OutcomeApplied {
		slog.Info("transaction applied",
			"transaction_id", txID,
			"item_id", req.ItemID,
			"delta", req.Delta,
			"user", req.SubmittingUser,
			"count", outcome.Count,
		)
	} else {
		slog.Debug("transaction discarded", "transaction_id", txID, "reason", outcome.Reason)
	}
	return outcome, nil
}

// GetCurrentList returns every item with a positive count.
func (s *LedgerService) GetCurrentList(ctx context.Context) (map[int64]int, error) {
	return s.db.CurrentList(ctx)
}

// CurrentCount returns the projection of one item; an untouched item has count 0.
func (s *LedgerService) CurrentCount(ctx context.Context, itemID int64) (domain.CurrentCount, error) {
	cc, _, err := s.db.CurrentCount(ctx, itemID)
	return cc, err
}

// History returns the transactions of an item in processing order.
func (s *LedgerService) History(ctx context.Context, itemID int64) ([]domain.Transaction, error) {
	return s.db.History(ctx, itemID)
}
