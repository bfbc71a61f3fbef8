package reconcile

import (
	"context"
	"sync"
	"testing"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/dutyfree/reconcile/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockReceiptRepository is a mock implementation of ReceiptRepository
type MockReceiptRepository struct {
	mock.Mock
}

func (m *MockReceiptRepository) Create(ctx context.Context, receipt *reconcile.Receipt) error {
	return m.Called(ctx, receipt).Error(0)
}

func (m *MockReceiptRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*reconcile.Receipt, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) Update(ctx context.Context, receipt *reconcile.Receipt) error {
	return m.Called(ctx, receipt).Error(0)
}

func (m *MockReceiptRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, variant reconcile.Variant) ([]reconcile.Receipt, error) {
	args := m.Called(ctx, ownerID, variant)
	return args.Get(0).([]reconcile.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) CountByVariant(ctx context.Context, ownerID uuid.UUID) (map[reconcile.Variant]int64, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[reconcile.Variant]int64), args.Error(1)
}

func (m *MockReceiptRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

// MockPassportRepository is a mock implementation of PassportRepository
type MockPassportRepository struct {
	mock.Mock
}

func (m *MockPassportRepository) Create(ctx context.Context, passport *reconcile.Passport) error {
	return m.Called(ctx, passport).Error(0)
}

func (m *MockPassportRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*reconcile.Passport, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Passport), args.Error(1)
}

func (m *MockPassportRepository) Update(ctx context.Context, passport *reconcile.Passport) error {
	return m.Called(ctx, passport).Error(0)
}

func (m *MockPassportRepository) FindByName(ctx context.Context, ownerID uuid.UUID, name string) (*reconcile.Passport, error) {
	args := m.Called(ctx, ownerID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Passport), args.Error(1)
}

func (m *MockPassportRepository) FindByNumber(ctx context.Context, ownerID uuid.UUID, passportNumber string) (*reconcile.Passport, error) {
	args := m.Called(ctx, ownerID, passportNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Passport), args.Error(1)
}

func (m *MockPassportRepository) MarkMatchedByNumber(ctx context.Context, ownerID uuid.UUID, passportNumber string) (int64, error) {
	args := m.Called(ctx, ownerID, passportNumber)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPassportRepository) FindUnmatched(ctx context.Context, ownerID uuid.UUID) ([]reconcile.Passport, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]reconcile.Passport), args.Error(1)
}

func (m *MockPassportRepository) FindUnmatchedWithoutReference(ctx context.Context, ownerID uuid.UUID, variant reconcile.Variant) ([]reconcile.Passport, error) {
	args := m.Called(ctx, ownerID, variant)
	return args.Get(0).([]reconcile.Passport), args.Error(1)
}

func (m *MockPassportRepository) Count(ctx context.Context, ownerID uuid.UUID) (int64, int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockPassportRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

// MockReferenceRepository is a mock implementation of ReferenceRepository
type MockReferenceRepository struct {
	mock.Mock
}

func (m *MockReferenceRepository) FindByReceiptNumber(ctx context.Context, variant reconcile.Variant, receiptNumber string) (*reconcile.ReferenceRow, error) {
	args := m.Called(ctx, variant, receiptNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.ReferenceRow), args.Error(1)
}

func (m *MockReferenceRepository) FindByName(ctx context.Context, variant reconcile.Variant, name string) (*reconcile.ReferenceRow, error) {
	args := m.Called(ctx, variant, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.ReferenceRow), args.Error(1)
}

func (m *MockReferenceRepository) ExistingReceiptNumbers(ctx context.Context, variant reconcile.Variant, receiptNumbers []string) (map[string]bool, error) {
	args := m.Called(ctx, variant, receiptNumbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockReferenceRepository) CreateBatch(ctx context.Context, rows []*reconcile.ReferenceRow) error {
	return m.Called(ctx, rows).Error(0)
}

func (m *MockReferenceRepository) ReplaceAll(ctx context.Context, variant reconcile.Variant, rows []*reconcile.ReferenceRow) (int64, error) {
	args := m.Called(ctx, variant, rows)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReferenceRepository) BackfillPassportNumber(ctx context.Context, variant reconcile.Variant, receiptNumber, passportNumber string) (bool, error) {
	args := m.Called(ctx, variant, receiptNumber, passportNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferenceRepository) ClearBackfilledPassports(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReferenceRepository) Count(ctx context.Context, variant reconcile.Variant) (int64, error) {
	args := m.Called(ctx, variant)
	return args.Get(0).(int64), args.Error(1)
}

// MockMatchLogRepository is a mock implementation of MatchLogRepository
type MockMatchLogRepository struct {
	mock.Mock
}

func (m *MockMatchLogRepository) Create(ctx context.Context, entry *reconcile.MatchLogEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockMatchLogRepository) CreateBatch(ctx context.Context, entries []*reconcile.MatchLogEntry) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *MockMatchLogRepository) Latest(ctx context.Context, ownerID uuid.UUID, receiptNumber string) (*reconcile.MatchLogEntry, error) {
	args := m.Called(ctx, ownerID, receiptNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.MatchLogEntry), args.Error(1)
}

func (m *MockMatchLogRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

// MockMatchingRepository is a mock implementation of MatchingRepository
type MockMatchingRepository struct {
	mock.Mock
}

func (m *MockMatchingRepository) CandidatesA(ctx context.Context, ownerID uuid.UUID) ([]reconcile.CandidateA, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]reconcile.CandidateA), args.Error(1)
}

func (m *MockMatchingRepository) BackfillReferencePassports(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMatchingRepository) FlagMatchedPassports(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMatchingRepository) CandidatesB(ctx context.Context, ownerID uuid.UUID) ([]reconcile.CandidateB, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]reconcile.CandidateB), args.Error(1)
}

func (m *MockMatchingRepository) MatchedRowsA(ctx context.Context, ownerID uuid.UUID) ([]reconcile.MatchedRowA, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]reconcile.MatchedRowA), args.Error(1)
}

func (m *MockMatchingRepository) UnmatchedReceiptsA(ctx context.Context, ownerID uuid.UUID) ([]reconcile.UnmatchedReceipt, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]reconcile.UnmatchedReceipt), args.Error(1)
}

func (m *MockMatchingRepository) MatchedRowsB(ctx context.Context, ownerID uuid.UUID) ([]reconcile.MatchedRowB, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]reconcile.MatchedRowB), args.Error(1)
}

func (m *MockMatchingRepository) UnmatchedReceiptsB(ctx context.Context, ownerID uuid.UUID) ([]reconcile.UnmatchedReceipt, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]reconcile.UnmatchedReceipt), args.Error(1)
}

func (m *MockMatchingRepository) CountReceiptsA(ctx context.Context, ownerID uuid.UUID) (int64, int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockMatchingRepository) CountReceiptsB(ctx context.Context, ownerID uuid.UUID) (int64, int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// MockUnrecognizedImageRepository is a mock implementation of UnrecognizedImageRepository
type MockUnrecognizedImageRepository struct {
	mock.Mock
}

func (m *MockUnrecognizedImageRepository) Create(ctx context.Context, image *reconcile.UnrecognizedImage) error {
	return m.Called(ctx, image).Error(0)
}

func (m *MockUnrecognizedImageRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]reconcile.UnrecognizedImage, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]reconcile.UnrecognizedImage), args.Error(1)
}

func (m *MockUnrecognizedImageRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

// MockArchiveRepository is a mock implementation of ArchiveRepository
type MockArchiveRepository struct {
	mock.Mock
}

func (m *MockArchiveRepository) Create(ctx context.Context, archive *reconcile.Archive) error {
	return m.Called(ctx, archive).Error(0)
}

func (m *MockArchiveRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*reconcile.Archive, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Archive), args.Error(1)
}

func (m *MockArchiveRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]reconcile.Archive, error) {
	args := m.Called(ctx, ownerID, limit)
	return args.Get(0).([]reconcile.Archive), args.Error(1)
}

func (m *MockArchiveRepository) SearchHistories(ctx context.Context, ownerID uuid.UUID, search reconcile.HistorySearch) ([]reconcile.HistorySearchResult, int64, error) {
	args := m.Called(ctx, ownerID, search)
	return args.Get(0).([]reconcile.HistorySearchResult), args.Get(1).(int64), args.Error(2)
}

// testRepos bundles one mock per repository
type testRepos struct {
	receipts     *MockReceiptRepository
	passports    *MockPassportRepository
	references   *MockReferenceRepository
	logs         *MockMatchLogRepository
	matching     *MockMatchingRepository
	unrecognized *MockUnrecognizedImageRepository
	archives     *MockArchiveRepository
}

func newTestRepos() *testRepos {
	return &testRepos{
		receipts:     new(MockReceiptRepository),
		passports:    new(MockPassportRepository),
		references:   new(MockReferenceRepository),
		logs:         new(MockMatchLogRepository),
		matching:     new(MockMatchingRepository),
		unrecognized: new(MockUnrecognizedImageRepository),
		archives:     new(MockArchiveRepository),
	}
}

func (r *testRepos) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(Repositories{
		Receipts:     r.receipts,
		Passports:    r.passports,
		References:   r.references,
		MatchLogs:    r.logs,
		Matching:     r.matching,
		Unrecognized: r.unrecognized,
		Archives:     r.archives,
	})
}

func (r *testRepos) assertExpectations(t *testing.T) {
	r.receipts.AssertExpectations(t)
	r.passports.AssertExpectations(t)
	r.references.AssertExpectations(t)
	r.logs.AssertExpectations(t)
	r.matching.AssertExpectations(t)
	r.unrecognized.AssertExpectations(t)
	r.archives.AssertExpectations(t)
}

// detectAs makes the selector see only receipts of variant
func (r *testRepos) detectAs(ownerID uuid.UUID, variant reconcile.Variant) {
	r.receipts.On("CountByVariant", mock.Anything, ownerID).
		Return(map[reconcile.Variant]int64{variant: 3}, nil)
}

func (r *testRepos) selector() *StrategySelector {
	return NewDefaultStrategySelector(r.receipts, zap.NewNop())
}

// stubLocker hands out a lock unless busy is set
type stubLocker struct {
	mu    sync.Mutex
	busy  bool
	taken int
}

func (l *stubLocker) Lock(_ context.Context, _ uuid.UUID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy {
		return nil, shared.ErrSessionBusy
	}
	l.taken++
	return func() {}, nil
}
