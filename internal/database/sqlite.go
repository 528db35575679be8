package database

import (
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// sqliteDialector stores decimal columns as text. A decimal(p,s) column has
// NUMERIC affinity in sqlite, which keeps values as REAL and drops digits
// past the 15th; text keeps the exact string decimal.Decimal writes and
// scans back. Sums are folded in Go, never in SQL.
type sqliteDialector struct {
	*sqlite.Dialector
}

func newSqliteDialector(dsn string) gorm.Dialector {
	return sqliteDialector{Dialector: &sqlite.Dialector{DSN: dsn}}
}

func (d sqliteDialector) DataTypeOf(field *schema.Field) string {
	if isDecimal(field.DataType) {
		return "text"
	}
	return d.Dialector.DataTypeOf(field)
}

func (d sqliteDialector) Migrator(db *gorm.DB) gorm.Migrator {
	m := d.Dialector.Migrator(db).(sqlite.Migrator)
	m.Dialector = d
	return m
}

func isDecimal(t schema.DataType) bool {
	s := strings.ToLower(string(t))
	return strings.HasPrefix(s, "decimal") || strings.HasPrefix(s, "numeric")
}
