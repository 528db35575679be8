// Package ledger is the append-only stock ledger store.
//
// The store is a capability passed to the engines: View runs read-only work
// at whatever isolation the backend gives by default, Update runs work in a
// single all-or-nothing transaction holding the named locks for its whole
// duration. Two implementations share the contract:
//   - GormStore: postgres (production) or sqlite (embedded, tests)
//   - MemoryStore: in-process, for tests and demos
//
// Ledger entries are only ever appended; no method updates or deletes them.
package ledger

import (
	"context"
	"sort"
	"strconv"
	"time"

	"stockledger-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Store hands out transactions.
type Store interface {
	// View runs fn without locks. Reads may be slightly stale.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Update runs fn in one transaction. Each lock name is held exclusively
	// until commit or rollback; callers sharing a lock name are serialized.
	// If fn returns an error nothing it wrote is kept.
	Update(ctx context.Context, fn func(tx Tx) error, locks ...string) error
}

// Tx is the read/write contract available inside View and Update.
// Write methods return an error when called inside View.
type Tx interface {
	// Records returns every physical record ordered by creation time, oldest first.
	Records() ([]models.StockMaster, error)
	Record(stockID string) (models.StockMaster, error)
	CreateRecord(rec *models.StockMaster) error

	// Entries returns entries matching f ordered by ledger id.
	Entries(f EntryFilter) ([]models.LedgerEntry, error)
	Entry(ledgerID uint) (models.LedgerEntry, error)

	// AppendEntry assigns the ledger id. A second reversal of the same
	// entry fails with CodeAlreadyReversed.
	AppendEntry(e *models.LedgerEntry) error

	// ReversalOf returns the reversal of ledgerID, or nil.
	ReversalOf(ledgerID uint) (*models.LedgerEntry, error)

	// ReversedIDs returns the set of entry ids that have a reversal.
	ReversedIDs() (map[uint]bool, error)

	Thresholds() (map[string]decimal.Decimal, error)
	SetThreshold(stockID string, min decimal.Decimal) error
}

// EntryFilter narrows Entries. Zero values mean "no restriction", except
// StockIDs: a non-nil empty slice matches nothing.
type EntryFilter struct {
	StockIDs []string
	Kinds    []models.TransactionType

	// From is inclusive, To is exclusive.
	From *time.Time
	To   *time.Time
}

func (f EntryFilter) match(e models.LedgerEntry) bool {
	if f.StockIDs != nil && !containsString(f.StockIDs, e.StockID) {
		return false
	}
	if len(f.Kinds) > 0 {
		ok := false
		for _, k := range f.Kinds {
			if k == e.TransactionType {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.From != nil && e.TransactionDate.Before(*f.From) {
		return false
	}
	if f.To != nil && !e.TransactionDate.Before(*f.To) {
		return false
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// EntryLock is the lock name guarding reversal of one entry.
func EntryLock(ledgerID uint) string {
	return "entry:" + strconv.FormatUint(uint64(ledgerID), 10)
}

// IdentityLock is the lock name guarding the availability of one logical identity.
func IdentityLock(key string) string {
	return "identity:" + key
}

func sortRecords(recs []models.StockMaster) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].StockID < recs[j].StockID
	})
}
