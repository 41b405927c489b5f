package store

import (
	"fmt"
	"strings"
)

// dialect covers the SQL differences between the supported drivers.
type dialect interface {
	quote(name string) string
	columnType(hint string, maxLength int) string
	idType() string
}

type sqliteDialect struct{}

func (sqliteDialect) quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqliteDialect) columnType(hint string, maxLength int) string {
	switch hint {
	case "int", "bool":
		return "INTEGER"
	case "float":
		return "REAL"
	case "string":
		if maxLength > 0 {
			return fmt.Sprintf("VARCHAR(%d)", maxLength)
		}
	}
	return "TEXT"
}

func (sqliteDialect) idType() string { return "TEXT" }

type mysqlDialect struct{}

func (mysqlDialect) quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysqlDialect) columnType(hint string, maxLength int) string {
	switch hint {
	case "int":
		return "BIGINT"
	case "bool":
		return "BOOLEAN"
	case "float":
		return "DOUBLE"
	case "string":
		if maxLength > 0 {
			return fmt.Sprintf("VARCHAR(%d)", maxLength)
		}
	}
	return "TEXT"
}

func (mysqlDialect) idType() string { return "VARCHAR(36)" }

func createTableSQL(d dialect, m *mapping) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(d.quote(m.table))
	b.WriteString(" (")
	b.WriteString(d.quote(m.idColumn))
	b.WriteString(" ")
	b.WriteString(d.idType())
	b.WriteString(" PRIMARY KEY")
	for _, c := range m.columns {
		b.WriteString(", ")
		b.WriteString(d.quote(c.column))
		b.WriteString(" ")
		b.WriteString(d.columnType(c.hint, c.maxLength))
	}
	b.WriteString(")")
	return b.String()
}

// replaceSQL inserts or overwrites a row by primary key. Both drivers accept
// REPLACE INTO.
func replaceSQL(d dialect, m *mapping) string {
	cols := []string{d.quote(m.idColumn)}
	for _, c := range m.columns {
		cols = append(cols, d.quote(c.column))
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return "REPLACE INTO " + d.quote(m.table) + " (" + strings.Join(cols, ", ") + ") VALUES (" + marks + ")"
}

func selectSQL(d dialect, m *mapping) string {
	cols := make([]string, len(m.columns))
	for i, c := range m.columns {
		cols[i] = d.quote(c.column)
	}
	what := strings.Join(cols, ", ")
	if what == "" {
		what = d.quote(m.idColumn)
	}
	return "SELECT " + what + " FROM " + d.quote(m.table) + " WHERE " + d.quote(m.idColumn) + " = ?"
}

func deleteSQL(d dialect, m *mapping) string {
	return "DELETE FROM " + d.quote(m.table) + " WHERE " + d.quote(m.idColumn) + " = ?"
}

func idsSQL(d dialect, m *mapping) string {
	return "SELECT " + d.quote(m.idColumn) + " FROM " + d.quote(m.table) + " ORDER BY " + d.quote(m.idColumn)
}
