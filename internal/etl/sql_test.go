package etl

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/BartekS5/cleanetl/pkg/database"
	"github.com/BartekS5/cleanetl/pkg/models"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *database.Handle {
	t.Helper()
	ctx := context.Background()
	h, err := database.Connect(ctx, "sqlite:///"+filepath.Join(t.TempDir(), "etl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close(ctx) })
	return h
}

func gridDataset(t *testing.T, rows int) *models.Dataset {
	t.Helper()
	ds, err := models.NewDatasetFromColumns([]*models.Column{
		{Name: "id", Kind: models.KindInt},
		{Name: "name", Kind: models.KindString},
		{Name: "score", Kind: models.KindFloat},
	})
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		require.NoError(t, ds.AppendRow([]any{int64(i), "row", float64(i) / 2}))
	}
	return ds
}

func countRows(t *testing.T, h *database.Handle, table string) int {
	t.Helper()
	var n int
	require.NoError(t, h.SQL.QueryRow(`SELECT COUNT(*) FROM "`+table+`"`).Scan(&n))
	return n
}

func TestSQLLoader_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := openSQLite(t)
	loader := NewSQLLoader(h, "", 0)

	assert.Equal(t, DefaultTable, loader.Table)
	assert.Equal(t, DefaultBatchSize, loader.BatchSize)

	require.NoError(t, loader.Load(ctx, gridDataset(t, 7)))
	assert.Equal(t, 7, countRows(t, h, DefaultTable))

	var (
		id    int64
		name  string
		score float64
	)
	row := h.SQL.QueryRowContext(ctx, `SELECT "id", "name", "score" FROM "cleaned_data" WHERE "id" = 3`)
	require.NoError(t, row.Scan(&id, &name, &score))
	assert.Equal(t, int64(3), id)
	assert.Equal(t, "row", name)
	assert.InDelta(t, 1.5, score, 1e-9)

	var staging int
	require.NoError(t, h.SQL.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name LIKE 'cleaned_data__staging%'`).Scan(&staging))
	assert.Equal(t, 0, staging)
}

func TestSQLLoader_ReplacesPreviousContents(t *testing.T) {
	ctx := context.Background()
	h := openSQLite(t)
	loader := NewSQLLoader(h, "people", 2)

	require.NoError(t, loader.Load(ctx, gridDataset(t, 5)))
	assert.Equal(t, 5, countRows(t, h, "people"))

	other := models.NewDataset("city")
	require.NoError(t, other.AppendRow([]any{"Oslo"}))
	require.NoError(t, loader.Load(ctx, other))
	assert.Equal(t, 1, countRows(t, h, "people"))

	var city string
	require.NoError(t, h.SQL.QueryRowContext(ctx, `SELECT "city" FROM "people"`).Scan(&city))
	assert.Equal(t, "Oslo", city)
}

func TestSQLLoader_EmptyDatasetCreatesTable(t *testing.T) {
	ctx := context.Background()
	h := openSQLite(t)

	require.NoError(t, NewSQLLoader(h, "", 0).Load(ctx, models.NewDataset("a", "b")))
	assert.Equal(t, 0, countRows(t, h, DefaultTable))
}

func TestSQLLoader_InvalidDatasetLeavesTableUntouched(t *testing.T) {
	ctx := context.Background()
	h := openSQLite(t)
	loader := NewSQLLoader(h, "", 0)
	require.NoError(t, loader.Load(ctx, gridDataset(t, 4)))

	bad := models.NewDataset()
	err := loader.Load(ctx, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoad))
	assert.Equal(t, 4, countRows(t, h, DefaultTable))
}

func TestSQLLoader_RollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h, err := database.FromDB(db, database.StoreSQLite)
	require.NoError(t, err)

	staging := `"cleaned_data__staging_[0-9a-f]{8}"`
	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS ` + staging).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE ` + staging).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(`INSERT INTO ` + staging).
		ExpectExec().
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err = NewSQLLoader(h, "", 2).Load(context.Background(), gridDataset(t, 3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoad))
	assert.ErrorContains(t, err, "constraint failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLoader_BatchesInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h, err := database.FromDB(db, database.StoreSQLite)
	require.NoError(t, err)

	staging := `"cleaned_data__staging_[0-9a-f]{8}"`
	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS ` + staging).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE ` + staging).WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`VALUES (?, ?, ?), (?, ?, ?)`) + `$`)
	prep.ExpectExec().WithArgs(int64(0), "row", 0.0, int64(1), "row", 0.5).WillReturnResult(sqlmock.NewResult(0, 2))
	prep.ExpectExec().WithArgs(int64(2), "row", 1.0, int64(3), "row", 1.5).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`VALUES (?, ?, ?)`) + `$`).
		WithArgs(int64(4), "row", 2.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "cleaned_data"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`ALTER TABLE ` + staging + regexp.QuoteMeta(` RENAME TO "cleaned_data"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, NewSQLLoader(h, "", 2).Load(context.Background(), gridDataset(t, 5)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLoader_MySQLSwap(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h, err := database.FromDB(db, database.StoreMySQL)
	require.NoError(t, err)

	staging := "`cleaned_data__staging_[0-9a-f]{8}`"
	mock.ExpectExec(`DROP TABLE IF EXISTS ` + staging).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE ` + staging).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ` + staging).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS `cleaned_data`")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("RENAME TABLE `cleaned_data` TO ") + "`cleaned_data__staging_[0-9a-f]{8}_old`, " + staging + regexp.QuoteMeta(" TO `cleaned_data`")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE IF EXISTS `cleaned_data__staging_[0-9a-f]{8}_old`").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewSQLLoader(h, "", 10).Load(context.Background(), gridDataset(t, 2)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLoader_MySQLDropsStagingOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h, err := database.FromDB(db, database.StoreMySQL)
	require.NoError(t, err)

	staging := "`cleaned_data__staging_[0-9a-f]{8}`"
	mock.ExpectExec(`DROP TABLE IF EXISTS ` + staging).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE ` + staging).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ` + staging).WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()
	mock.ExpectExec(`DROP TABLE IF EXISTS ` + staging + `$`).WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewSQLLoader(h, "", 10).Load(context.Background(), gridDataset(t, 2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoad))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLoader_NonFiniteFloats(t *testing.T) {
	ctx := context.Background()
	h := openSQLite(t)

	ds, err := ReadCSV(strings.NewReader("id,score\n1,NAN\n2,inf\n3,2.5\n4,-Infinity\n"))
	require.NoError(t, err)
	assert.True(t, ds.IsMissing(0, 1))

	clean, err := NewDropMissing().Transform(ctx, ds)
	require.NoError(t, err)
	require.Equal(t, 3, clean.Len())

	require.NoError(t, NewSQLLoader(h, "", 0).Load(ctx, clean))
	assert.Equal(t, 3, countRows(t, h, DefaultTable))

	var nulls int
	require.NoError(t, h.SQL.QueryRowContext(ctx, `SELECT COUNT(*) FROM "cleaned_data" WHERE "score" IS NULL`).Scan(&nulls))
	assert.Equal(t, 0, nulls)

	var score float64
	require.NoError(t, h.SQL.QueryRowContext(ctx, `SELECT "score" FROM "cleaned_data" WHERE "id" = 2`).Scan(&score))
	assert.True(t, math.IsInf(score, 1))
	require.NoError(t, h.SQL.QueryRowContext(ctx, `SELECT "score" FROM "cleaned_data" WHERE "id" = 4`).Scan(&score))
	assert.True(t, math.IsInf(score, -1))
}

func TestSQLLoader_RejectsNaN(t *testing.T) {
	ctx := context.Background()
	h := openSQLite(t)

	ds, err := models.NewDatasetFromColumns([]*models.Column{
		{Name: "score", Kind: models.KindFloat, Values: []any{math.NaN()}},
	})
	require.NoError(t, err)

	err = NewSQLLoader(h, "", 0).Load(ctx, ds)
	assert.True(t, errors.Is(err, ErrLoad))
}

func TestSQLLoader_SQLServerCapsRowsPerStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h, err := database.FromDB(db, database.StoreSQLServer)
	require.NoError(t, err)

	ds := models.NewDataset("code")
	for i := 0; i < 1500; i++ {
		require.NoError(t, ds.AppendRow([]any{"x"}))
	}

	staging := `\[cleaned_data__staging_[0-9a-f]{8}\]`
	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS ` + staging).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE ` + staging).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(`VALUES \(@p1\)(, \(@p\d+\)){999}$`).
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(0, 1000))
	mock.ExpectExec(`VALUES \(@p1\)(, \(@p\d+\)){499}$`).WillReturnResult(sqlmock.NewResult(0, 500))
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS [cleaned_data]`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`EXEC sp_rename`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, NewSQLLoader(h, "", 1500).Load(context.Background(), ds))
	assert.NoError(t, mock.ExpectationsWereMet())
}
