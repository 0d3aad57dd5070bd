package etl

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/BartekS5/cleanetl/pkg/database"
	"github.com/BartekS5/cleanetl/pkg/logger"
	"github.com/BartekS5/cleanetl/pkg/models"
	"github.com/BartekS5/cleanetl/pkg/utils"
	"github.com/google/uuid"
)

// DefaultTable is the destination written by every run.
const DefaultTable = "cleaned_data"

// DefaultBatchSize is the number of rows per INSERT statement.
const DefaultBatchSize = 500

// SQLLoader replaces a table with the contents of a Dataset. The data goes
// into a staging table first and is swapped in by rename, so readers see
// either the old table or the new one.
type SQLLoader struct {
	DB        *sql.DB
	Dialect   *database.Dialect
	Table     string
	BatchSize int
	Validator *Validator
}

func NewSQLLoader(h *database.Handle, table string, batchSize int) *SQLLoader {
	if table == "" {
		table = DefaultTable
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SQLLoader{
		DB:        h.SQL,
		Dialect:   h.Dialect(),
		Table:     table,
		BatchSize: batchSize,
		Validator: NewValidator(),
	}
}

func (l *SQLLoader) Load(ctx context.Context, ds *models.Dataset) error {
	if err := l.Validator.ValidateDataset(ds); err != nil {
		return loadErr(err)
	}

	staging := stagingName(l.Table)
	var err error
	if l.Dialect.TransactionalDDL {
		err = l.replaceInTx(ctx, ds, staging)
	} else {
		err = l.replaceBySwap(ctx, ds, staging)
	}
	if err != nil {
		return loadErr(fmt.Errorf("table %s: %w", l.Table, err))
	}

	logger.Info("Data successfully loaded into the database.", "table", l.Table, "rows", ds.Len())
	return nil
}

// replaceInTx builds staging, drops the target and renames staging in one
// transaction. Any failure rolls everything back.
func (l *SQLLoader) replaceInTx(ctx context.Context, ds *models.Dataset, staging string) (err error) {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmts := []string{
		l.Dialect.DropTableIfExists(staging),
		l.Dialect.CreateTable(staging, ds.Columns(), false),
	}
	if err = execAll(ctx, tx, stmts...); err != nil {
		return err
	}
	if err = l.insertRows(ctx, tx, staging, ds); err != nil {
		return err
	}
	if err = execAll(ctx, tx,
		l.Dialect.DropTableIfExists(l.Table),
		l.Dialect.RenameTable(staging, l.Table),
	); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// replaceBySwap is used where DDL commits implicitly. Rows go into staging
// inside a transaction, then one atomic RENAME swaps staging in.
func (l *SQLLoader) replaceBySwap(ctx context.Context, ds *models.Dataset, staging string) (err error) {
	backup := staging + "_old"

	if err = execAll(ctx, l.DB,
		l.Dialect.DropTableIfExists(staging),
		l.Dialect.CreateTable(staging, ds.Columns(), false),
	); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if _, dropErr := l.DB.ExecContext(context.Background(), l.Dialect.DropTableIfExists(staging)); dropErr != nil {
				logger.Warnf("Failed to drop staging table %s: %v", staging, dropErr)
			}
		}
	}()

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err = l.insertRows(ctx, tx, staging, ds); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err = execAll(ctx, l.DB,
		l.Dialect.CreateTable(l.Table, ds.Columns(), true),
		l.Dialect.SwapTables(l.Table, staging, backup),
	); err != nil {
		return err
	}
	if _, dropErr := l.DB.ExecContext(ctx, l.Dialect.DropTableIfExists(backup)); dropErr != nil {
		logger.Warnf("Failed to drop previous table %s: %v", backup, dropErr)
	}
	return nil
}

func (l *SQLLoader) insertRows(ctx context.Context, tx *sql.Tx, table string, ds *models.Dataset) error {
	if ds.Len() == 0 {
		return nil
	}
	cols := ds.ColumnNames()
	perStmt := l.Dialect.RowsPerStatement(ds.Width(), l.BatchSize)

	var stmt *sql.Stmt
	defer func() {
		if stmt != nil {
			stmt.Close()
		}
	}()

	for start := 0; start < ds.Len(); start += perStmt {
		end := min(start+perStmt, ds.Len())
		n := end - start

		args := make([]any, 0, n*ds.Width())
		for r := start; r < end; r++ {
			for c := 0; c < ds.Width(); c++ {
				args = append(args, utils.ToSQLValue(ds.Value(r, c)))
			}
		}

		if n == perStmt {
			// full batches share one prepared statement
			if stmt == nil {
				var err error
				stmt, err = tx.PrepareContext(ctx, l.Dialect.InsertRows(table, cols, perStmt))
				if err != nil {
					return fmt.Errorf("failed to prepare insert: %w", err)
				}
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert rows %d-%d: %w", start, end-1, err)
			}
			continue
		}

		if _, err := tx.ExecContext(ctx, l.Dialect.InsertRows(table, cols, n), args...); err != nil {
			return fmt.Errorf("failed to insert rows %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execAll(ctx context.Context, db execer, stmts ...string) error {
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("failed to execute %q: %w", firstWords(s, 4), err)
		}
	}
	return nil
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

func stagingName(table string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return table + "__staging_" + id[:8]
}
