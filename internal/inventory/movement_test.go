package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"stockledger-backend/internal/ledger"
	"stockledger-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceive(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.importRows(t, bolt(1))

		entry, err := f.svc.Receive(ctx, "stk-001", decimal.NewFromInt(9), "erin")
		require.NoError(t, err)
		assert.Equal(t, models.TxReceipt, entry.TransactionType)
		assert.Equal(t, "Manual Stock Addition", entry.Reference)
		assert.Equal(t, "erin", entry.CreatedBy)

		qty, err := f.svc.StockAvailable(ctx, "stk-001")
		require.NoError(t, err)
		assertQty(t, 10, qty)

		_, err = f.svc.Receive(ctx, "stk-001", decimal.Zero, "erin")
		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

		_, err = f.svc.Receive(ctx, "stk-001", decimal.NewFromInt(-3), "erin")
		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

		_, err = f.svc.Receive(ctx, "missing", decimal.NewFromInt(1), "erin")
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})
}

func TestIssue(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.importRows(t, bolt(10))
		reason := "line stop"

		entry, err := f.svc.Issue(ctx, IssueRequest{
			StockID:   "stk-001",
			Quantity:  decimal.NewFromInt(4),
			Reference: "WO-42",
			Reason:    &reason,
			Actor:     "bob",
		})
		require.NoError(t, err)
		assert.Equal(t, models.TxIssue, entry.TransactionType)
		assertQty(t, -4, entry.QuantityChange)
		assert.Equal(t, "WO-42", entry.Reference)
		require.NotNil(t, entry.OptionalReason)
		assert.Equal(t, "line stop", *entry.OptionalReason)

		_, err = f.svc.Issue(ctx, IssueRequest{StockID: "stk-001", Quantity: decimal.NewFromInt(7), Reference: "WO-43", Actor: "bob"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ledger.ErrInsufficientStock)
		var le *ledger.Error
		require.True(t, errors.As(err, &le))
		assertQty(t, 7, le.Requested)
		assertQty(t, 6, le.Available)

		_, err = f.svc.Issue(ctx, IssueRequest{StockID: "stk-001", Quantity: decimal.NewFromInt(6), Reference: "WO-44", Actor: "bob"})
		require.NoError(t, err, "issuing exactly what is left is allowed")

		qty, err := f.svc.StockAvailable(ctx, "stk-001")
		require.NoError(t, err)
		assertQty(t, 0, qty)

		_, err = f.svc.Issue(ctx, IssueRequest{StockID: "stk-001", Quantity: decimal.Zero, Reference: "x", Actor: "bob"})
		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

		_, err = f.svc.Issue(ctx, IssueRequest{StockID: "missing", Quantity: decimal.NewFromInt(1), Reference: "x", Actor: "bob"})
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})
}

func TestIssue_ConcurrentNeverOverdraws(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.importRows(t, bolt(10))

		const workers = 25
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			rejected  int
			other     []error
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := f.svc.Issue(ctx, IssueRequest{
					StockID:   "stk-001",
					Quantity:  decimal.NewFromInt(1),
					Reference: fmt.Sprintf("WO-%d", i),
					Actor:     "bob",
				})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, ledger.ErrInsufficientStock):
					rejected++
				default:
					other = append(other, err)
				}
			}(i)
		}
		wg.Wait()

		require.Empty(t, other)
		assert.Equal(t, 10, succeeded)
		assert.Equal(t, workers-10, rejected)

		qty, err := f.svc.StockAvailable(ctx, "stk-001")
		require.NoError(t, err)
		assertQty(t, 0, qty)
	})
}

func TestReverse(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.importRows(t, bolt(100))

		issue, err := f.svc.Issue(ctx, IssueRequest{StockID: "stk-001", Quantity: decimal.NewFromInt(40), Reference: "WO-7", Actor: "bob"})
		require.NoError(t, err)

		rev, err := f.svc.Reverse(ctx, issue.LedgerID, "alice")
		require.NoError(t, err)
		assert.Equal(t, models.TxReversal, rev.TransactionType)
		assertQty(t, 40, rev.QuantityChange)
		assert.True(t, rev.QuantityChange.Add(issue.QuantityChange).IsZero())
		assert.Equal(t, "stk-001", rev.StockID)
		assert.Equal(t, fmt.Sprintf("Reversal of Ledger ID: %d", issue.LedgerID), rev.Reference)
		require.NotNil(t, rev.OptionalReason)
		assert.Equal(t, "Original Ref: WO-7", *rev.OptionalReason)
		require.NotNil(t, rev.ReversesID)
		assert.Equal(t, issue.LedgerID, *rev.ReversesID)
		assert.Equal(t, "alice", rev.CreatedBy)

		qty, err := f.svc.StockAvailable(ctx, "stk-001")
		require.NoError(t, err)
		assertQty(t, 100, qty)

		_, err = f.svc.Reverse(ctx, issue.LedgerID, "alice")
		assert.ErrorIs(t, err, ledger.ErrAlreadyReversed)

		_, err = f.svc.Reverse(ctx, 9999, "alice")
		assert.ErrorIs(t, err, ledger.ErrNotFound)

		assert.Contains(t, f.auditor.actions(), models.AuditActionReverse)
	})
}

func TestReverse_ReceiptCannotDriveStockNegative(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		res := f.importRows(t, bolt(10))
		_, err := f.svc.Issue(ctx, IssueRequest{StockID: "stk-001", Quantity: decimal.NewFromInt(8), Reference: "WO-1", Actor: "bob"})
		require.NoError(t, err)

		_, err = f.svc.Reverse(ctx, res.Entries[0], "alice")
		assert.ErrorIs(t, err, ledger.ErrInsufficientStock)

		qty, err := f.svc.StockAvailable(ctx, "stk-001")
		require.NoError(t, err)
		assertQty(t, 2, qty)
	})
}

func TestReverse_ReversalOfReversal(t *testing.T) {
	f := newMemoryFixture(t)
	ctx := context.Background()
	res := f.importRows(t, bolt(10))

	first, err := f.svc.Reverse(ctx, res.Entries[0], "alice")
	require.NoError(t, err)
	assertQty(t, -10, first.QuantityChange)

	second, err := f.svc.Reverse(ctx, first.LedgerID, "alice")
	require.NoError(t, err)
	assertQty(t, 10, second.QuantityChange)

	qty, err := f.svc.StockAvailable(ctx, "stk-001")
	require.NoError(t, err)
	assertQty(t, 10, qty)
}

func TestReverse_ConcurrentAtMostOnce(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.importRows(t, bolt(50))
		issue, err := f.svc.Issue(ctx, IssueRequest{StockID: "stk-001", Quantity: decimal.NewFromInt(5), Reference: "WO-1", Actor: "bob"})
		require.NoError(t, err)

		const workers = 10
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			dupes     int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.Reverse(ctx, issue.LedgerID, "alice")
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					succeeded++
				} else if errors.Is(err, ledger.ErrAlreadyReversed) {
					dupes++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, succeeded)
		assert.Equal(t, workers-1, dupes)

		qty, err := f.svc.StockAvailable(ctx, "stk-001")
		require.NoError(t, err)
		assertQty(t, 50, qty)
	})
}

func TestSetThreshold(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.importRows(t, bolt(1))

		err := f.svc.SetThreshold(ctx, "stk-001", decimal.NewFromInt(-1), "alice")
		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

		err = f.svc.SetThreshold(ctx, "missing", decimal.NewFromInt(1), "alice")
		assert.ErrorIs(t, err, ledger.ErrNotFound)

		require.NoError(t, f.svc.SetThreshold(ctx, "stk-001", decimal.Zero, "alice"))
		assert.Contains(t, f.auditor.actions(), models.AuditActionUpdate)
	})
}

func TestQuantityPrecision(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		big := decimal.RequireFromString("123456789012345.6789")

		r := bolt(0)
		r.Quantity = big
		_, err := f.svc.AddStockEntry(ctx, r, "alice")
		require.NoError(t, err)

		qty, err := f.svc.StockAvailable(ctx, "stk-001")
		require.NoError(t, err)
		assert.True(t, big.Equal(qty), "available %s", qty)

		_, err = f.svc.Issue(ctx, IssueRequest{StockID: "stk-001", Quantity: big, Reference: "WO-1", Actor: "bob"})
		require.NoError(t, err)
		qty, err = f.svc.StockAvailable(ctx, "stk-001")
		require.NoError(t, err)
		assertQty(t, 0, qty)

		tiny := decimal.RequireFromString("0.00001")
		tooLarge := decimal.New(1, 16)

		_, err = f.svc.Receive(ctx, "stk-001", tiny, "erin")
		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)
		_, err = f.svc.Receive(ctx, "stk-001", tooLarge, "erin")
		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

		_, err = f.svc.Issue(ctx, IssueRequest{StockID: "stk-001", Quantity: tiny, Reference: "WO-2", Actor: "bob"})
		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

		r.Quantity = tiny
		_, err = f.svc.AddStockEntry(ctx, r, "alice")
		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

		r.Quantity = tooLarge
		previews, err := f.svc.Preview(ctx, []models.ImportRow{r})
		require.NoError(t, err)
		_, err = f.svc.Commit(ctx, previews, "alice")
		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

		err = f.svc.SetThreshold(ctx, "stk-001", tiny, "alice")
		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

		// trailing zeros past the fourth place are not extra precision
		entry, err := f.svc.Receive(ctx, "stk-001", decimal.RequireFromString("1.50000"), "erin")
		require.NoError(t, err)
		assert.True(t, entry.QuantityChange.Equal(decimal.RequireFromString("1.5")))
		require.NoError(t, f.svc.SetThreshold(ctx, "stk-001", decimal.RequireFromString("2.2500"), "alice"))

		qty, err = f.svc.StockAvailable(ctx, "stk-001")
		require.NoError(t, err)
		assert.True(t, qty.Equal(decimal.RequireFromString("1.5")), "available %s", qty)
	})
}
