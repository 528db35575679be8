package ledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"stockledger-backend/internal/config"
	"stockledger-backend/internal/database"
	"stockledger-backend/internal/ledger"
	"stockledger-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newSQLiteStore(t *testing.T) ledger.Store {
	t.Helper()
	cfg := &config.Config{
		DatabaseDriver: "sqlite",
		DatabaseDSN:    filepath.Join(t.TempDir(), "ledger.db"),
		AcquireTimeout: 3 * time.Second,
		LogLevel:       "error",
	}
	db, err := database.Open(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return ledger.NewGormStore(db, ledger.GormOptions{})
}

// forEachStore runs fn once per Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s ledger.Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, ledger.NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func record(id string, createdAt time.Time) models.StockMaster {
	return models.StockMaster{
		StockID:      id,
		Project:      "Alpha",
		SupplierName: "Acme",
		Invoice:      "INV-1",
		PartName:     "Bolt " + id,
		Description:  "M8 x 40",
		UOM:          "pcs",
		Location:     "A1",
		CreatedAt:    createdAt,
	}
}

func receipt(stockID string, qty int64, at time.Time) models.LedgerEntry {
	return models.LedgerEntry{
		StockID:         stockID,
		TransactionType: models.TxReceipt,
		QuantityChange:  decimal.NewFromInt(qty),
		TransactionDate: at,
		Reference:       "test",
		CreatedBy:       "tester",
		CreatedAt:       at,
	}
}

func seed(t *testing.T, s ledger.Store, recs ...models.StockMaster) {
	t.Helper()
	err := s.Update(context.Background(), func(tx ledger.Tx) error {
		for i := range recs {
			if err := tx.CreateRecord(&recs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func appendEntry(t *testing.T, s ledger.Store, e models.LedgerEntry) models.LedgerEntry {
	t.Helper()
	err := s.Update(context.Background(), func(tx ledger.Tx) error {
		return tx.AppendEntry(&e)
	})
	require.NoError(t, err)
	return e
}

func TestStore_Records(t *testing.T) {
	forEachStore(t, func(t *testing.T, s ledger.Store) {
		ctx := context.Background()
		seed(t, s, record("b", t0.Add(time.Hour)), record("a", t0))

		err := s.View(ctx, func(tx ledger.Tx) error {
			recs, err := tx.Records()
			require.NoError(t, err)
			require.Len(t, recs, 2)
			assert.Equal(t, "a", recs[0].StockID, "oldest first")
			assert.Equal(t, "b", recs[1].StockID)

			rec, err := tx.Record("a")
			require.NoError(t, err)
			assert.Equal(t, "Bolt a", rec.PartName)
			assert.True(t, rec.CreatedAt.Equal(t0))

			_, err = tx.Record("missing")
			assert.ErrorIs(t, err, ledger.ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestStore_AppendEntryAssignsIncreasingIDs(t *testing.T) {
	forEachStore(t, func(t *testing.T, s ledger.Store) {
		seed(t, s, record("a", t0))

		first := appendEntry(t, s, receipt("a", 10, t0))
		second := appendEntry(t, s, receipt("a", 5, t0.Add(time.Minute)))

		assert.NotZero(t, first.LedgerID)
		assert.Greater(t, second.LedgerID, first.LedgerID)

		err := s.View(context.Background(), func(tx ledger.Tx) error {
			e, err := tx.Entry(second.LedgerID)
			require.NoError(t, err)
			assert.True(t, e.QuantityChange.Equal(decimal.NewFromInt(5)))
			assert.Equal(t, models.TxReceipt, e.TransactionType)

			_, err = tx.Entry(second.LedgerID + 100)
			assert.ErrorIs(t, err, ledger.ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestStore_AppendEntryUnknownRecord(t *testing.T) {
	forEachStore(t, func(t *testing.T, s ledger.Store) {
		err := s.Update(context.Background(), func(tx ledger.Tx) error {
			e := receipt("ghost", 1, t0)
			return tx.AppendEntry(&e)
		})
		assert.Error(t, err)
	})
}

func TestStore_SecondReversalRejected(t *testing.T) {
	forEachStore(t, func(t *testing.T, s ledger.Store) {
		seed(t, s, record("a", t0))
		orig := appendEntry(t, s, receipt("a", 10, t0))

		reversal := func() models.LedgerEntry {
			id := orig.LedgerID
			return models.LedgerEntry{
				StockID:         "a",
				TransactionType: models.TxReversal,
				QuantityChange:  decimal.NewFromInt(-10),
				TransactionDate: t0.Add(time.Hour),
				Reference:       "undo",
				CreatedBy:       "tester",
				ReversesID:      &id,
			}
		}

		rev := appendEntry(t, s, reversal())

		err := s.Update(context.Background(), func(tx ledger.Tx) error {
			e := reversal()
			return tx.AppendEntry(&e)
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ledger.ErrAlreadyReversed)
		assert.False(t, ledger.IsRetryable(err))

		err = s.View(context.Background(), func(tx ledger.Tx) error {
			got, err := tx.ReversalOf(orig.LedgerID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, rev.LedgerID, got.LedgerID)

			none, err := tx.ReversalOf(rev.LedgerID)
			require.NoError(t, err)
			assert.Nil(t, none)

			ids, err := tx.ReversedIDs()
			require.NoError(t, err)
			assert.Equal(t, map[uint]bool{orig.LedgerID: true}, ids)

			all, err := tx.Entries(ledger.EntryFilter{})
			require.NoError(t, err)
			assert.Len(t, all, 2)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestStore_UpdateRollsBackOnError(t *testing.T) {
	forEachStore(t, func(t *testing.T, s ledger.Store) {
		boom := errors.New("boom")
		err := s.Update(context.Background(), func(tx ledger.Tx) error {
			rec := record("a", t0)
			if err := tx.CreateRecord(&rec); err != nil {
				return err
			}
			e := receipt("a", 10, t0)
			if err := tx.AppendEntry(&e); err != nil {
				return err
			}
			return boom
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)

		err = s.View(context.Background(), func(tx ledger.Tx) error {
			recs, err := tx.Records()
			require.NoError(t, err)
			assert.Empty(t, recs)

			entries, err := tx.Entries(ledger.EntryFilter{})
			require.NoError(t, err)
			assert.Empty(t, entries)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestStore_ViewIsReadOnly(t *testing.T) {
	forEachStore(t, func(t *testing.T, s ledger.Store) {
		err := s.View(context.Background(), func(tx ledger.Tx) error {
			rec := record("a", t0)
			return tx.CreateRecord(&rec)
		})
		assert.ErrorIs(t, err, ledger.ErrStoreUnavailable)
	})
}

func TestStore_CancelledContextIsConflict(t *testing.T) {
	forEachStore(t, func(t *testing.T, s ledger.Store) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := s.View(ctx, func(tx ledger.Tx) error {
			_, err := tx.Records()
			return err
		})
		assert.ErrorIs(t, err, ledger.ErrConflict)
		assert.True(t, ledger.IsRetryable(err))
	})
}

func TestStore_Thresholds(t *testing.T) {
	forEachStore(t, func(t *testing.T, s ledger.Store) {
		ctx := context.Background()
		seed(t, s, record("a", t0))

		for _, v := range []int64{5, 7} {
			err := s.Update(ctx, func(tx ledger.Tx) error {
				return tx.SetThreshold("a", decimal.NewFromInt(v))
			})
			require.NoError(t, err)
		}

		err := s.Update(ctx, func(tx ledger.Tx) error {
			return tx.SetThreshold("missing", decimal.NewFromInt(1))
		})
		assert.ErrorIs(t, err, ledger.ErrNotFound)

		err = s.View(ctx, func(tx ledger.Tx) error {
			th, err := tx.Thresholds()
			require.NoError(t, err)
			require.Len(t, th, 1)
			assert.True(t, th["a"].Equal(decimal.NewFromInt(7)), "got %s", th["a"])
			return nil
		})
		require.NoError(t, err)
	})
}

func TestStore_EntryFilter(t *testing.T) {
	forEachStore(t, func(t *testing.T, s ledger.Store) {
		seed(t, s, record("a", t0), record("b", t0))
		day := 24 * time.Hour
		e1 := appendEntry(t, s, receipt("a", 1, t0))
		e2 := appendEntry(t, s, receipt("b", 2, t0.Add(day)))
		issue := receipt("a", 0, t0.Add(2*day))
		issue.TransactionType = models.TxIssue
		issue.QuantityChange = decimal.NewFromInt(-1)
		e3 := appendEntry(t, s, issue)

		ids := func(entries []models.LedgerEntry) []uint {
			out := []uint{}
			for _, e := range entries {
				out = append(out, e.LedgerID)
			}
			return out
		}
		from := t0.Add(day)
		to := t0.Add(2 * day)

		cases := []struct {
			name   string
			filter ledger.EntryFilter
			want   []uint
		}{
			{"all", ledger.EntryFilter{}, []uint{e1.LedgerID, e2.LedgerID, e3.LedgerID}},
			{"by stock", ledger.EntryFilter{StockIDs: []string{"a"}}, []uint{e1.LedgerID, e3.LedgerID}},
			{"empty stock list", ledger.EntryFilter{StockIDs: []string{}}, []uint{}},
			{"by kind", ledger.EntryFilter{Kinds: []models.TransactionType{models.TxIssue}}, []uint{e3.LedgerID}},
			{"from inclusive", ledger.EntryFilter{From: &from}, []uint{e2.LedgerID, e3.LedgerID}},
			{"to exclusive", ledger.EntryFilter{To: &to}, []uint{e1.LedgerID, e2.LedgerID}},
			{"window", ledger.EntryFilter{From: &from, To: &to}, []uint{e2.LedgerID}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				err := s.View(context.Background(), func(tx ledger.Tx) error {
					got, err := tx.Entries(tc.filter)
					require.NoError(t, err)
					assert.Equal(t, tc.want, ids(got))
					return nil
				})
				require.NoError(t, err)
			})
		}
	})
}

// assertQuantitiesRoundTrip stores a full-precision amount as an entry and a
// threshold on record stockID and expects both back digit for digit.
func assertQuantitiesRoundTrip(t *testing.T, s ledger.Store, stockID string) {
	t.Helper()
	ctx := context.Background()
	big := decimal.RequireFromString("123456789012345.6789")

	e := receipt(stockID, 0, t0)
	e.QuantityChange = big
	e = appendEntry(t, s, e)
	require.NoError(t, s.Update(ctx, func(tx ledger.Tx) error {
		return tx.SetThreshold(stockID, big)
	}))

	err := s.View(ctx, func(tx ledger.Tx) error {
		got, err := tx.Entry(e.LedgerID)
		require.NoError(t, err)
		assert.True(t, big.Equal(got.QuantityChange), "entry %s", got.QuantityChange)

		th, err := tx.Thresholds()
		require.NoError(t, err)
		assert.True(t, big.Equal(th[stockID]), "threshold %s", th[stockID])
		return nil
	})
	require.NoError(t, err)
}

func TestStore_QuantitiesRoundTripExactly(t *testing.T) {
	forEachStore(t, func(t *testing.T, s ledger.Store) {
		seed(t, s, record("a", t0))
		assertQuantitiesRoundTrip(t, s, "a")
	})
}
