package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	appreconcile "github.com/dutyfree/reconcile/internal/application/reconcile"
	"github.com/dutyfree/reconcile/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDatabase creates a Database instance with a mocked SQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestConfigurePool(t *testing.T) {
	db, _, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	pool, err := db.pool()
	require.NoError(t, err)
	configurePool(pool, &config.DatabaseConfig{MaxOpenConns: 7, MaxIdleConns: 2, ConnMaxLifetime: 5})

	assert.Equal(t, 7, pool.Stats().MaxOpenConnections)
}

// TestDatabase_Ping tests the Ping method
func TestDatabase_Ping(t *testing.T) {
	t.Run("successful ping", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockDB.Close()

		gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{})
		require.NoError(t, err)

		mock.ExpectPing()
		db := &Database{DB: gormDB}
		assert.NoError(t, db.Ping())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// TestDatabase_Close tests the Close method
func TestDatabase_Close(t *testing.T) {
	t.Run("successful close", func(t *testing.T) {
		db, mock, _ := newMockDatabase(t)

		mock.ExpectClose()

		assert.NoError(t, db.Close())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// TestGormTransactionScope tests commit and rollback through the reconcile repositories
func TestGormTransactionScope(t *testing.T) {
	ownerID := uuid.New()

	t.Run("commits when fn succeeds", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "match_logs" WHERE owner_id = \$1`).
			WithArgs(ownerID).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		scope := NewGormTransactionScope(db.DB)
		err := scope.Execute(context.Background(), func(repos appreconcile.TransactionalRepositories) error {
			n, err := repos.MatchLogRepo().DeleteByOwner(context.Background(), ownerID)
			assert.Equal(t, int64(3), n)
			return err
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when a later statement fails", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "match_logs" WHERE owner_id = \$1`).
			WithArgs(ownerID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM "receipts" WHERE owner_id = \$1`).
			WithArgs(ownerID).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		scope := NewGormTransactionScope(db.DB)
		err := scope.Execute(context.Background(), func(repos appreconcile.TransactionalRepositories) error {
			if _, err := repos.MatchLogRepo().DeleteByOwner(context.Background(), ownerID); err != nil {
				return err
			}
			_, err := repos.ReceiptRepo().DeleteByOwner(context.Background(), ownerID)
			return err
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
