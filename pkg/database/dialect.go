package database

import (
	"fmt"
	"strings"

	"github.com/BartekS5/cleanetl/pkg/models"
)

// Dialect captures the SQL differences the loader has to care about.
type Dialect struct {
	Name string
	// TransactionalDDL is true when CREATE/DROP/RENAME roll back with the
	// surrounding transaction.
	TransactionalDDL bool
	// MaxParams is the bind parameter limit for a single statement.
	MaxParams int
	// MaxRows caps the rows of one VALUES list; zero means no cap.
	MaxRows int

	placeholder func(n int) string
	quote       func(ident string) string
	types       map[models.Kind]string
	rename      func(d *Dialect, from, to string) string
}

func (d *Dialect) Placeholder(n int) string { return d.placeholder(n) }

func (d *Dialect) QuoteIdent(ident string) string { return d.quote(ident) }

func (d *Dialect) ColumnType(k models.Kind) string {
	if t, ok := d.types[k]; ok {
		return t
	}
	return d.types[models.KindString]
}

// CreateTable renders a CREATE TABLE for the dataset's columns.
func (d *Dialect) CreateTable(table string, cols []*models.Column, ifNotExists bool) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = d.QuoteIdent(c.Name) + " " + d.ColumnType(c.Kind)
	}
	clause := "CREATE TABLE "
	if ifNotExists {
		clause += "IF NOT EXISTS "
	}
	return clause + d.QuoteIdent(table) + " (" + strings.Join(defs, ", ") + ")"
}

func (d *Dialect) DropTableIfExists(table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
}

func (d *Dialect) RenameTable(from, to string) string {
	return d.rename(d, from, to)
}

// SwapTables renames target to backup and staging to target in one atomic
// statement. Only MySQL supports this form.
func (d *Dialect) SwapTables(target, staging, backup string) string {
	return fmt.Sprintf("RENAME TABLE %s TO %s, %s TO %s",
		d.QuoteIdent(target), d.QuoteIdent(backup), d.QuoteIdent(staging), d.QuoteIdent(target))
}

// InsertRows renders a multi-row INSERT with placeholders for rows*len(cols) values.
func (d *Dialect) InsertRows(table string, cols []string, rows int) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.QuoteIdent(table))
	b.WriteString(" (")
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString(") VALUES ")

	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range cols {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// RowsPerStatement caps batchSize so one INSERT stays under MaxParams and
// MaxRows.
func (d *Dialect) RowsPerStatement(width, batchSize int) int {
	limit := batchSize
	if width > 0 {
		limit = d.MaxParams / width
	}
	if d.MaxRows > 0 && limit > d.MaxRows {
		limit = d.MaxRows
	}
	if limit < 1 {
		limit = 1
	}
	if batchSize <= 0 || batchSize > limit {
		return limit
	}
	return batchSize
}

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

func atP(n int) string { return fmt.Sprintf("@p%d", n) }

func doubleQuote(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

func backtick(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" }

func bracket(s string) string { return "[" + strings.ReplaceAll(s, "]", "]]") + "]" }

func alterRename(d *Dialect, from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.QuoteIdent(from), d.QuoteIdent(to))
}

var dialects = map[Store]*Dialect{
	StoreSQLite: {
		Name:             "sqlite",
		TransactionalDDL: true,
		MaxParams:        32766,
		placeholder:      questionMark,
		quote:            doubleQuote,
		types: map[models.Kind]string{
			models.KindString: "TEXT",
			models.KindInt:    "BIGINT",
			models.KindFloat:  "REAL",
			models.KindBool:   "BOOLEAN",
		},
		rename: alterRename,
	},
	StorePostgres: {
		Name:             "postgres",
		TransactionalDDL: true,
		MaxParams:        65535,
		placeholder:      dollar,
		quote:            doubleQuote,
		types: map[models.Kind]string{
			models.KindString: "TEXT",
			models.KindInt:    "BIGINT",
			models.KindFloat:  "DOUBLE PRECISION",
			models.KindBool:   "BOOLEAN",
		},
		rename: alterRename,
	},
	StoreDuckDB: {
		Name:             "duckdb",
		TransactionalDDL: true,
		MaxParams:        65535,
		placeholder:      questionMark,
		quote:            doubleQuote,
		types: map[models.Kind]string{
			models.KindString: "VARCHAR",
			models.KindInt:    "BIGINT",
			models.KindFloat:  "DOUBLE",
			models.KindBool:   "BOOLEAN",
		},
		rename: alterRename,
	},
	StoreSQLServer: {
		Name:             "sqlserver",
		TransactionalDDL: true,
		MaxParams:        2000,
		MaxRows:          1000,
		placeholder:      atP,
		quote:            bracket,
		types: map[models.Kind]string{
			models.KindString: "NVARCHAR(MAX)",
			models.KindInt:    "BIGINT",
			models.KindFloat:  "FLOAT",
			models.KindBool:   "BIT",
		},
		rename: func(_ *Dialect, from, to string) string {
			esc := func(s string) string { return strings.ReplaceAll(s, "'", "''") }
			return fmt.Sprintf("EXEC sp_rename N'%s', N'%s'", esc(from), esc(to))
		},
	},
	StoreMySQL: {
		Name:             "mysql",
		TransactionalDDL: false,
		MaxParams:        65535,
		placeholder:      questionMark,
		quote:            backtick,
		types: map[models.Kind]string{
			models.KindString: "TEXT",
			models.KindInt:    "BIGINT",
			models.KindFloat:  "DOUBLE",
			models.KindBool:   "BOOLEAN",
		},
		rename: func(d *Dialect, from, to string) string {
			return fmt.Sprintf("RENAME TABLE %s TO %s", d.QuoteIdent(from), d.QuoteIdent(to))
		},
	},
}

// DialectFor returns the SQL dialect of a store; MongoDB has none.
func DialectFor(store Store) (*Dialect, bool) {
	d, ok := dialects[store]
	return d, ok
}
