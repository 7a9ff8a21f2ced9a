package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConnectionString(t *testing.T) {
	pure, err := buildConnectionString("/data/folio.db", DriverPureGo)
	require.NoError(t, err)
	assert.Contains(t, pure, "_pragma=journal_mode(WAL)")
	assert.Contains(t, pure, "_pragma=foreign_keys(1)")

	cgo, err := buildConnectionString("/data/folio.db", DriverCGO)
	require.NoError(t, err)
	assert.Contains(t, cgo, "_journal_mode=WAL")
	assert.NotContains(t, cgo, "_pragma")

	_, err = buildConnectionString("/data/folio.db", "postgres")
	assert.Error(t, err)
}

func TestNew_MigrateAndSnapshot(t *testing.T) {
	dir := t.TempDir()

	db, err := New(Config{Path: filepath.Join(dir, "nested", "folio.db"), Name: "folio"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, DriverPureGo, db.Driver())
	require.NoError(t, db.Migrate())
	// Migrations are idempotent
	require.NoError(t, db.Migrate())

	_, err = db.Conn().Exec(`INSERT INTO holdings
		(id, user_id, symbol, name, category, quantity, buy_price, current_price, created_at, updated_at)
		VALUES ('h1', 'u1', 'TCS', 'TCS', 'stock', 1, 10, 10, 0, 0)`)
	require.NoError(t, err)

	_, err = db.Conn().Exec(`INSERT INTO holdings
		(id, user_id, symbol, name, category, quantity, buy_price, current_price, created_at, updated_at)
		VALUES ('h2', 'u1', 'X', 'X', 'crypto', 1, 10, 10, 0, 0)`)
	assert.Error(t, err, "category check constraint")

	require.NoError(t, db.HealthCheck(context.Background()))

	snapshot := filepath.Join(dir, "snap", "copy.db")
	require.NoError(t, db.SnapshotTo(context.Background(), snapshot))

	copyDB, err := New(Config{Path: snapshot, Name: "copy"})
	require.NoError(t, err)
	defer copyDB.Close()

	var count int
	require.NoError(t, copyDB.Conn().QueryRow("SELECT COUNT(*) FROM holdings").Scan(&count))
	assert.Equal(t, 1, count)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageCount, int64(0))
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Name: "scratch"})
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Migrate())
}

func TestWithTransaction_RollsBackOnPanic(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "tx.db"), Name: "scratch"})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Conn().Exec("CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, _ = tx.Exec("INSERT INTO t VALUES (1)")
		panic("boom")
	})
	assert.ErrorContains(t, err, "panic in transaction")

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 0, count)
}
