package database

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stockledger-backend/internal/config"
	"stockledger-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "file:inv.db?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=3000", SqliteDSN("inv.db", 3*time.Second))
	assert.Equal(t, "file::memory:?cache=shared", SqliteDSN("file::memory:?cache=shared", time.Second))
}

func sqliteConfig(t *testing.T) *config.Config {
	return &config.Config{
		DatabaseDriver: "sqlite",
		DatabaseDSN:    filepath.Join(t.TempDir(), "inv.db"),
		AcquireTimeout: time.Second,
		LogLevel:       "info",
	}
}

func openSqlite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(sqliteConfig(t), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestOpen_SqliteMigrates(t *testing.T) {
	db := openSqlite(t)

	for _, m := range []any{&models.StockMaster{}, &models.LedgerEntry{}, &models.StockThreshold{}, &models.User{}, &models.AuditLog{}} {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.True(t, db.Migrator().HasIndex(&models.LedgerEntry{}, "ReversesID"))

	// idempotent
	require.NoError(t, Migrate(db))
}

type foreignKey struct {
	Table    string `gorm:"column:table"`
	From     string `gorm:"column:from"`
	To       string `gorm:"column:to"`
	OnDelete string `gorm:"column:on_delete"`
}

func foreignKeys(t *testing.T, db *gorm.DB, table string) []foreignKey {
	t.Helper()
	var fks []foreignKey
	require.NoError(t, db.Raw("PRAGMA foreign_key_list("+table+")").Scan(&fks).Error)
	return fks
}

func TestOpen_LedgerReferencesRecords(t *testing.T) {
	db := openSqlite(t)

	fks := foreignKeys(t, db, "stock_ledger")
	require.Len(t, fks, 1)
	assert.Equal(t, "stock_master", fks[0].Table)
	assert.Equal(t, "stock_id", fks[0].From)
	assert.Equal(t, "stock_id", fks[0].To)
	assert.Equal(t, "RESTRICT", fks[0].OnDelete)

	assert.Empty(t, foreignKeys(t, db, "stock_master"))

	rec := models.StockMaster{StockID: "stk-1", PartName: "Bolt", CreatedAt: time.Now().UTC()}
	require.NoError(t, db.Create(&rec).Error)
	require.NoError(t, db.Create(&models.LedgerEntry{
		StockID:         "stk-1",
		TransactionType: models.TxReceipt,
		QuantityChange:  decimal.NewFromInt(1),
		TransactionDate: time.Now().UTC(),
	}).Error)

	err := db.Create(&models.LedgerEntry{
		StockID:         "missing",
		TransactionType: models.TxReceipt,
		QuantityChange:  decimal.NewFromInt(1),
		TransactionDate: time.Now().UTC(),
	}).Error
	assert.Error(t, err, "entries must reference an existing record")

	assert.Error(t, db.Delete(&rec).Error, "records with entries cannot be deleted")
}

func TestOpen_SqliteDecimalsRoundTrip(t *testing.T) {
	db := openSqlite(t)

	for _, m := range []any{&models.LedgerEntry{}, &models.StockThreshold{}} {
		cols, err := db.Migrator().ColumnTypes(m)
		require.NoError(t, err)
		for _, c := range cols {
			if c.Name() == "quantity_change" || c.Name() == "min_quantity" {
				assert.True(t, strings.EqualFold("text", c.DatabaseTypeName()), c.Name())
			}
		}
	}

	big := decimal.RequireFromString("123456789012345.6789")
	require.NoError(t, db.Create(&models.StockMaster{StockID: "stk-1", PartName: "Bolt"}).Error)
	require.NoError(t, db.Create(&models.LedgerEntry{
		StockID:         "stk-1",
		TransactionType: models.TxReceipt,
		QuantityChange:  big,
		TransactionDate: time.Now().UTC(),
	}).Error)
	require.NoError(t, db.Create(&models.StockThreshold{StockID: "stk-1", MinQuantity: big.Neg()}).Error)

	var e models.LedgerEntry
	require.NoError(t, db.First(&e).Error)
	assert.True(t, big.Equal(e.QuantityChange), "got %s", e.QuantityChange)

	var th models.StockThreshold
	require.NoError(t, db.First(&th).Error)
	assert.True(t, big.Neg().Equal(th.MinQuantity), "got %s", th.MinQuantity)
}

func TestOpen_NilLogger(t *testing.T) {
	db, err := Open(sqliteConfig(t), nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DatabaseDriver: "oracle"}, zap.NewNop())
	assert.Error(t, err)
}
