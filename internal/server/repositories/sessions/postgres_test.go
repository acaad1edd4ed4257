package sessions

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/logingate/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

func TestSave(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	exp := time.Now().Add(time.Hour)

	mock.ExpectExec(`^INSERT INTO sessions \(id, data, expires_at\) VALUES \(\$1, \$2, \$3\) ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("sid", []byte(`{"id":1}`), exp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), "sid", []byte(`{"id":1}`), exp))
}

func TestSave_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`^INSERT INTO sessions`).WillReturnError(errors.New("boom"))

	err := repo.Save(context.Background(), "sid", nil, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: boom")
}

func TestLoad(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(`^SELECT data FROM sessions WHERE id = \$1 AND expires_at > now\(\)$`).
			WithArgs("sid").
			WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"id":2}`)))

		data, err := repo.Load(context.Background(), "sid")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":2}`, string(data))
	})

	t.Run("missing or expired", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(`FROM sessions`).WithArgs("sid").WillReturnError(sql.ErrNoRows)

		_, err := repo.Load(context.Background(), "sid")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(`FROM sessions`).WithArgs("sid").WillReturnError(errors.New("down"))

		_, err := repo.Load(context.Background(), "sid")
		require.Error(t, err)
		assert.NotErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`^DELETE FROM sessions WHERE id = \$1$`).WithArgs("sid").WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), "sid"))
}

func TestDeleteExpired(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`^DELETE FROM sessions WHERE expires_at <= now\(\)$`).WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
