package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/dutyfree/reconcile/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupReconcileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedReceipt(t *testing.T, db *gorm.DB, owner uuid.UUID, variant reconcile.Variant, number, passport string) *reconcile.Receipt {
	t.Helper()
	receipt, err := reconcile.NewReceipt(owner, variant, number, passport, "/uploads/"+number+".jpg")
	require.NoError(t, err)
	require.NoError(t, NewGormReceiptRepository(db).Create(context.Background(), receipt))
	return receipt
}

func seedPassport(t *testing.T, db *gorm.DB, owner uuid.UUID, name, number, birthday string) *reconcile.Passport {
	t.Helper()
	passport, err := reconcile.NewPassport(owner, name, number, birthday, "/uploads/passport.jpg")
	require.NoError(t, err)
	require.NoError(t, NewGormPassportRepository(db).Create(context.Background(), passport))
	return passport
}

func seedReference(t *testing.T, db *gorm.DB, variant reconcile.Variant, number, name string, payout int64, passport string) *reconcile.ReferenceRow {
	t.Helper()
	row := reconcile.NewReferenceRow(variant, number, name, decimal.NewFromInt(payout), passport)
	require.NotNil(t, row)
	require.NoError(t, NewGormReferenceRepository(db).CreateBatch(context.Background(), []*reconcile.ReferenceRow{row}))
	return row
}

func seedLog(t *testing.T, db *gorm.DB, owner uuid.UUID, number string, matched bool, at time.Time) {
	t.Helper()
	entry := reconcile.NewMatchLogEntry(owner, number, matched)
	entry.CheckedAt = at
	require.NoError(t, NewGormMatchLogRepository(db).Create(context.Background(), entry))
}
