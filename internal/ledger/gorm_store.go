package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"stockledger-backend/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ Store = (*GormStore)(nil)

// GormOptions bounds every transaction. Zero values fall back to defaults.
type GormOptions struct {
	// TxTimeout caps the whole View/Update call.
	TxTimeout time.Duration
	// LockTimeout caps each lock wait (postgres lock_timeout).
	LockTimeout time.Duration
}

const (
	defaultTxTimeout   = 5 * time.Second
	defaultLockTimeout = 3 * time.Second
)

// GormStore implements Store on a relational database through gorm.
//
// On postgres, Update takes a transaction-scoped advisory lock per lock name
// (sorted, so two transactions never wait on each other in opposite order)
// and runs at READ COMMITTED: once the lock is held, every statement sees
// everything committed by the previous holder.
//
// On sqlite the caller is expected to cap the pool at one connection
// (database.Open does), which serializes write transactions.
type GormStore struct {
	db   *gorm.DB
	opts GormOptions
}

func NewGormStore(db *gorm.DB, opts GormOptions) *GormStore {
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = defaultTxTimeout
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTimeout
	}
	return &GormStore{db: db, opts: opts}
}

// DB returns the underlying handle.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) View(ctx context.Context, fn func(tx Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()
	return translateErr(fn(&gormTx{db: s.db.WithContext(ctx), readOnly: true}))
}

func (s *GormStore) Update(ctx context.Context, fn func(tx Tx) error, locks ...string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		for _, st := range lockStatements(s.db.Dialector.Name(), s.opts.LockTimeout, locks) {
			if err := db.Exec(st.sql, st.args...).Error; err != nil {
				return err
			}
		}
		return fn(&gormTx{db: db})
	})
	return translateErr(err)
}

type statement struct {
	sql  string
	args []any
}

// lockStatements lists what Update runs before fn. Only postgres needs any:
// a cap on each lock wait, then one advisory lock per name in lockOrder.
func lockStatements(dialect string, lockTimeout time.Duration, locks []string) []statement {
	if dialect != "postgres" {
		return nil
	}
	names := lockOrder(locks)
	out := make([]statement, 0, len(names)+1)
	out = append(out, statement{sql: fmt.Sprintf("SET LOCAL lock_timeout = %d", lockTimeout.Milliseconds())})
	for _, name := range names {
		out = append(out, statement{sql: "SELECT pg_advisory_xact_lock(hashtext(?))", args: []any{name}})
	}
	return out
}

func lockOrder(locks []string) []string {
	seen := make(map[string]bool, len(locks))
	out := make([]string, 0, len(locks))
	for _, l := range locks {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// translateErr maps driver failures onto the taxonomy. Errors that already
// are *Error pass through untouched.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Conflict(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03", // lock_not_available
			"57014": // query_canceled
			return Conflict(err)
		}
		return Unavailable(err)
	}

	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		if sqErr.Code == sqlite3.ErrBusy || sqErr.Code == sqlite3.ErrLocked {
			return Conflict(err)
		}
	}
	return Unavailable(err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type gormTx struct {
	db       *gorm.DB
	readOnly bool
}

func (t *gormTx) Records() ([]models.StockMaster, error) {
	var recs []models.StockMaster
	if err := t.db.Order("created_at ASC, stock_id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list stock records: %w", err)
	}
	return recs, nil
}

func (t *gormTx) Record(stockID string) (models.StockMaster, error) {
	var rec models.StockMaster
	err := t.db.Where("stock_id = ?", stockID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, RecordNotFound(stockID)
	}
	if err != nil {
		return rec, fmt.Errorf("get stock record: %w", err)
	}
	return rec, nil
}

func (t *gormTx) CreateRecord(rec *models.StockMaster) error {
	if t.readOnly {
		return Unavailable(errReadOnly)
	}
	if err := t.db.Create(rec).Error; err != nil {
		return fmt.Errorf("create stock record: %w", err)
	}
	return nil
}

func (t *gormTx) Entries(f EntryFilter) ([]models.LedgerEntry, error) {
	if f.StockIDs != nil && len(f.StockIDs) == 0 {
		return nil, nil
	}
	q := t.db.Model(&models.LedgerEntry{})
	if f.StockIDs != nil {
		q = q.Where("stock_id IN ?", f.StockIDs)
	}
	if len(f.Kinds) > 0 {
		q = q.Where("transaction_type IN ?", f.Kinds)
	}
	if f.From != nil {
		q = q.Where("transaction_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("transaction_date < ?", *f.To)
	}
	var out []models.LedgerEntry
	if err := q.Order("ledger_id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return out, nil
}

func (t *gormTx) Entry(ledgerID uint) (models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := t.db.Where("ledger_id = ?", ledgerID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return e, EntryNotFound(ledgerID)
	}
	if err != nil {
		return e, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

func (t *gormTx) AppendEntry(e *models.LedgerEntry) error {
	if t.readOnly {
		return Unavailable(errReadOnly)
	}
	if err := t.db.Create(e).Error; err != nil {
		if e.ReversesID != nil && isUniqueViolation(err) {
			return AlreadyReversed(*e.ReversesID)
		}
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (t *gormTx) ReversalOf(ledgerID uint) (*models.LedgerEntry, error) {
	var list []models.LedgerEntry
	if err := t.db.Where("reverses_id = ?", ledgerID).Limit(1).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("find reversal: %w", err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (t *gormTx) ReversedIDs() (map[uint]bool, error) {
	var ids []uint
	err := t.db.Model(&models.LedgerEntry{}).
		Where("reverses_id IS NOT NULL").
		Pluck("reverses_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list reversed ids: %w", err)
	}
	out := make(map[uint]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (t *gormTx) Thresholds() (map[string]decimal.Decimal, error) {
	var rows []models.StockThreshold
	if err := t.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list thresholds: %w", err)
	}
	out := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		out[r.StockID] = r.MinQuantity
	}
	return out, nil
}

func (t *gormTx) SetThreshold(stockID string, min decimal.Decimal) error {
	if t.readOnly {
		return Unavailable(errReadOnly)
	}
	if _, err := t.Record(stockID); err != nil {
		return err
	}
	row := models.StockThreshold{StockID: stockID, MinQuantity: min}
	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"min_quantity", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("set threshold: %w", err)
	}
	return nil
}
