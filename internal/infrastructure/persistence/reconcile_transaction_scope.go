package persistence

import (
	"context"

	appreconcile "github.com/dutyfree/reconcile/internal/application/reconcile"
	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appreconcile.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormRepositories(tx))
	})
}

// GormRepositories builds every repository on one *gorm.DB, which is either
// the pool or an open transaction.
type GormRepositories struct {
	db *gorm.DB
}

// NewGormRepositories creates repositories bound to db.
func NewGormRepositories(db *gorm.DB) *GormRepositories {
	return &GormRepositories{db: db}
}

func (r *GormRepositories) ReceiptRepo() reconcile.ReceiptRepository {
	return NewGormReceiptRepository(r.db)
}

func (r *GormRepositories) PassportRepo() reconcile.PassportRepository {
	return NewGormPassportRepository(r.db)
}

func (r *GormRepositories) ReferenceRepo() reconcile.ReferenceRepository {
	return NewGormReferenceRepository(r.db)
}

func (r *GormRepositories) MatchLogRepo() reconcile.MatchLogRepository {
	return NewGormMatchLogRepository(r.db)
}

func (r *GormRepositories) MatchingRepo() reconcile.MatchingRepository {
	return NewGormMatchingRepository(r.db)
}

func (r *GormRepositories) UnrecognizedRepo() reconcile.UnrecognizedImageRepository {
	return NewGormUnrecognizedImageRepository(r.db)
}

func (r *GormRepositories) ArchiveRepo() reconcile.ArchiveRepository {
	return NewGormArchiveRepository(r.db)
}

// Bundle returns the repositories as a plain struct.
func (r *GormRepositories) Bundle() appreconcile.Repositories {
	return appreconcile.Repositories{
		Receipts:     r.ReceiptRepo(),
		Passports:    r.PassportRepo(),
		References:   r.ReferenceRepo(),
		MatchLogs:    r.MatchLogRepo(),
		Matching:     r.MatchingRepo(),
		Unrecognized: r.UnrecognizedRepo(),
		Archives:     r.ArchiveRepo(),
	}
}

var _ appreconcile.TransactionScope = (*GormTransactionScope)(nil)
var _ appreconcile.TransactionalRepositories = (*GormRepositories)(nil)
