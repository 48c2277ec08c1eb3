package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/shopping-list/internal/app"
	"github.com/rl1809/shopping-list/internal/config"
	"github.com/rl1809/shopping-list/internal/core/domain"
)

const (
	initialCount  = 20
	totalRequests = 50
	submitter     = "stress-test"
)

func main() {
	ctx := context.Background()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	// Uses the same configuration as the server; point SLIST_REDIS_ADDR at Redis
	// to exercise the shared lock.
	cfg, err := config.Load("")
	if err != nil {
		fatal("failed to load configuration", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		fatal("failed to initialize storage", err)
	}
	defer a.Close()

	itemID, err := a.Catalog.EnsureItem(ctx, "stress-test-item-"+uuid.NewString())
	if err != nil {
		fatal("failed to create item", err)
	}

	apply := func(txID string, delta int) (domain.Outcome, error) {
		return a.Ledger.Apply(ctx, domain.TransactionRequest{
			TransactionID:  txID,
			ItemID:         itemID,
			Delta:          delta,
			SubmittingUser: submitter,
		})
	}

	// Phase 1: every increment is submitted twice at once, as a retrying client would
	var applied, duplicates atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < initialCount; i++ {
		txID := uuid.NewString()
		for n := 0; n < 2; n++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcome, err := apply(txID, 1)
				switch {
				case err != nil:
					slog.Error("increment failed", "transaction_id", txID, "error", err)
				case outcome.Status == domain.OutcomeApplied:
					applied.Add(1)
				case outcome.Reason == domain.ReasonDuplicate:
					duplicates.Add(1)
				}
			}()
		}
	}
	wg.Wait()

	// Phase 2: more concurrent decrements than the count allows
	var successCount, rejectCount, errorCount atomic.Int32

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := apply(uuid.NewString(), -1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInvariantViolation):
				rejectCount.Add(1)
			default:
				errorCount.Add(1)
				slog.Error("decrement failed", "error", err)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	final, err := a.Ledger.CurrentCount(ctx, itemID)
	if err != nil {
		fatal("failed to read final count", err)
	}
	history, err := a.Ledger.History(ctx, itemID)
	if err != nil {
		fatal("failed to read history", err)
	}

	success := successCount.Load()
	reject := rejectCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Increments:       %d (%d duplicates discarded)\n", applied.Load(), duplicates.Load())
	fmt.Printf("Decrements:       %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Rejected:         %d\n", reject)
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("History rows:     %d\n", len(history))
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	pass := true
	check := func(ok bool, format string, args ...any) {
		if ok {
			fmt.Printf("PASS: "+format+"\n", args...)
		} else {
			pass = false
			fmt.Printf("FAIL: "+format+"\n", args...)
		}
	}

	check(applied.Load() == initialCount && duplicates.Load() == initialCount,
		"%d increments applied once each, got %d applied/%d duplicates", initialCount, applied.Load(), duplicates.Load())
	check(success == initialCount && reject == totalRequests-initialCount,
		"expected %d success/%d rejected, got %d/%d", initialCount, totalRequests-initialCount, success, reject)
	check(final.Count == 0, "expected final count 0, got %d", final.Count)
	check(len(history) == 2*initialCount, "expected %d history rows, got %d", 2*initialCount, len(history))

	if !pass {
		os.Exit(1)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
