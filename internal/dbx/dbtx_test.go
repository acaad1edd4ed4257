package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS teachers (id INTEGER PRIMARY KEY, email TEXT, google_id TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO teachers (email) VALUES ('t@school.edu')`)
	require.NoError(t, err)
	return db
}

func linkedCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM teachers WHERE google_id IS NOT NULL`).Scan(&n))
	return n
}

func link(ctx context.Context, tx DBTX) error {
	_, err := tx.ExecContext(ctx, `UPDATE teachers SET google_id = 'g-1' WHERE email = 't@school.edu'`)
	return err
}

func TestWithTx_Commit(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, link)
	require.NoError(t, err)
	assert.Equal(t, 1, linkedCount(t, db))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, link(ctx, tx))
		return errors.New("boom")
	})
	require.EqualError(t, err, "boom")
	assert.Equal(t, 0, linkedCount(t, db))
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := setupDB(t)

	assert.PanicsWithValue(t, "kaput", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, link(ctx, tx))
			panic("kaput")
		})
	})
	assert.Equal(t, 0, linkedCount(t, db))
}

func TestWithTx_BeginError(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Close())

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.Error(t, err)
}

func TestBound(t *testing.T) {
	t.Run("positive timeout sets deadline", func(t *testing.T) {
		ctx, cancel := Bound(context.Background(), time.Second)
		defer cancel()

		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 100*time.Millisecond)
	})

	t.Run("zero timeout leaves context unbounded", func(t *testing.T) {
		ctx, cancel := Bound(context.Background(), 0)
		defer cancel()

		_, ok := ctx.Deadline()
		assert.False(t, ok)
	})
}
