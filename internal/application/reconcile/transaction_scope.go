package reconcile

import (
	"context"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
)

// TransactionScope provides transactional access to reconciliation repositories.
// All repository operations executed inside fn are committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	ReceiptRepo() reconcile.ReceiptRepository
	PassportRepo() reconcile.PassportRepository
	ReferenceRepo() reconcile.ReferenceRepository
	MatchLogRepo() reconcile.MatchLogRepository
	MatchingRepo() reconcile.MatchingRepository
	UnrecognizedRepo() reconcile.UnrecognizedImageRepository
	ArchiveRepo() reconcile.ArchiveRepository
}

// Repositories is a plain bundle of repositories. Its Execute runs fn without a
// transaction, which is what tests and read paths need.
type Repositories struct {
	Receipts     reconcile.ReceiptRepository
	Passports    reconcile.PassportRepository
	References   reconcile.ReferenceRepository
	MatchLogs    reconcile.MatchLogRepository
	Matching     reconcile.MatchingRepository
	Unrecognized reconcile.UnrecognizedImageRepository
	Archives     reconcile.ArchiveRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) ReceiptRepo() reconcile.ReceiptRepository   { return s.repos.Receipts }
func (s *NoOpTransactionScope) PassportRepo() reconcile.PassportRepository { return s.repos.Passports }
func (s *NoOpTransactionScope) ReferenceRepo() reconcile.ReferenceRepository {
	return s.repos.References
}
func (s *NoOpTransactionScope) MatchLogRepo() reconcile.MatchLogRepository { return s.repos.MatchLogs }
func (s *NoOpTransactionScope) MatchingRepo() reconcile.MatchingRepository { return s.repos.Matching }
func (s *NoOpTransactionScope) UnrecognizedRepo() reconcile.UnrecognizedImageRepository {
	return s.repos.Unrecognized
}
func (s *NoOpTransactionScope) ArchiveRepo() reconcile.ArchiveRepository { return s.repos.Archives }

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
