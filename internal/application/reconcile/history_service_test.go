package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/dutyfree/reconcile/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHistoryService(repos *testRepos, locker OwnerLocker) *HistoryService {
	scope := repos.scope()
	return NewHistoryService(repos.selector(), scope, scope, locker, zap.NewNop())
}

// expectShillaSession stubs statistics and results of a shilla session with one customer
func expectShillaSession(repos *testRepos, ownerID uuid.UUID, total, matched int64) {
	ctx := mock.Anything
	repos.detectAs(ownerID, reconcile.VariantShilla)
	repos.matching.On("CountReceiptsB", ctx, ownerID).Return(total, matched, nil)
	repos.passports.On("Count", ctx, ownerID).Return(int64(1), int64(1), nil)
	repos.matching.On("MatchedRowsB", ctx, ownerID).Return([]reconcile.MatchedRowB{{
		CandidateB: reconcile.CandidateB{
			ReceiptID: uuid.New(), ReceiptNumber: "0124507700631", ReceiptPassportNumber: "M1",
			ReferenceFound: true, ExcelName: "LEE", PassportFound: true, PassportMatched: true, PassportName: "LEE",
		},
		PayoutAmount: decimal.NewFromInt(3000),
	}}, nil).Maybe()
	repos.matching.On("UnmatchedReceiptsB", ctx, ownerID).Return([]reconcile.UnmatchedReceipt{}, nil).Maybe()
}

func expectClear(repos *testRepos, ownerID uuid.UUID) {
	reset := repos.references.On("ClearBackfilledPassports", mock.Anything, ownerID).Return(int64(1), nil)
	receipts := repos.receipts.On("DeleteByOwner", mock.Anything, ownerID).Return(int64(2), nil)
	mock.InOrder(reset, receipts)
	repos.logs.On("DeleteByOwner", mock.Anything, ownerID).Return(int64(2), nil)
	repos.passports.On("DeleteByOwner", mock.Anything, ownerID).Return(int64(1), nil)
	repos.unrecognized.On("DeleteByOwner", mock.Anything, ownerID).Return(int64(0), nil)
}

func TestHistoryService_SaveCurrentSession(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	repos := newTestRepos()
	expectShillaSession(repos, ownerID, 2, 1)

	var saved *reconcile.Archive
	repos.archives.On("Create", ctx, mock.AnythingOfType("*reconcile.Archive")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*reconcile.Archive) }).
		Return(nil)

	archive, err := newTestHistoryService(repos, &stubLocker{}).SaveCurrentSession(ctx, ownerID, "", "first batch")
	require.NoError(t, err)
	assert.Same(t, saved, archive)
	assert.Contains(t, archive.SessionName, "세션_")
	assert.Equal(t, reconcile.VariantShilla, archive.Variant)
	require.Len(t, archive.Histories, 1)
	assert.Equal(t, "LEE", archive.Histories[0].CustomerName)
	assert.Equal(t, "매칭됨", archive.Histories[0].MatchStatus)
	repos.assertExpectations(t)
}

func TestHistoryService_CompleteSession(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	t.Run("empty session is rejected", func(t *testing.T) {
		repos := newTestRepos()
		expectShillaSession(repos, ownerID, 0, 0)

		_, err := newTestHistoryService(repos, &stubLocker{}).CompleteSession(ctx, ownerID, true, "", "")
		assert.ErrorIs(t, err, reconcile.ErrEmptySession)
		repos.archives.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		repos.receipts.AssertNotCalled(t, "DeleteByOwner", mock.Anything, mock.Anything)
	})

	t.Run("archives then clears", func(t *testing.T) {
		repos := newTestRepos()
		expectShillaSession(repos, ownerID, 2, 1)
		repos.archives.On("Create", ctx, mock.AnythingOfType("*reconcile.Archive")).Return(nil)
		expectClear(repos, ownerID)

		locker := &stubLocker{}
		result, err := newTestHistoryService(repos, locker).CompleteSession(ctx, ownerID, true, "June", "")
		require.NoError(t, err)
		require.NotNil(t, result.ArchiveID)
		assert.Equal(t, int64(2), result.Statistics.TotalReceipts)
		assert.Equal(t, int64(2), result.Cleared.Receipts)
		assert.Equal(t, int64(1), result.Cleared.ResetLedgerRows)
		assert.Equal(t, 1, locker.taken)
		repos.assertExpectations(t)
	})

	t.Run("archive failure keeps the session", func(t *testing.T) {
		repos := newTestRepos()
		expectShillaSession(repos, ownerID, 2, 1)
		repos.archives.On("Create", ctx, mock.Anything).Return(errors.New("insert failed"))

		_, err := newTestHistoryService(repos, &stubLocker{}).CompleteSession(ctx, ownerID, true, "", "")
		assert.ErrorContains(t, err, "insert failed")
		repos.receipts.AssertNotCalled(t, "DeleteByOwner", mock.Anything, mock.Anything)
	})

	t.Run("without archive only clears", func(t *testing.T) {
		repos := newTestRepos()
		expectShillaSession(repos, ownerID, 2, 1)
		expectClear(repos, ownerID)

		result, err := newTestHistoryService(repos, &stubLocker{}).CompleteSession(ctx, ownerID, false, "", "")
		require.NoError(t, err)
		assert.Nil(t, result.ArchiveID)
		repos.archives.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("busy owner", func(t *testing.T) {
		repos := newTestRepos()
		_, err := newTestHistoryService(repos, &stubLocker{busy: true}).CompleteSession(ctx, ownerID, true, "", "")
		assert.ErrorIs(t, err, shared.ErrSessionBusy)
		repos.assertExpectations(t)
	})
}

func TestHistoryService_ClearSession(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	repos := newTestRepos()
	expectClear(repos, ownerID)

	result, err := newTestHistoryService(repos, &stubLocker{}).ClearSession(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, ClearResult{MatchLogs: 2, Receipts: 2, Passports: 1, ResetLedgerRows: 1}, *result)
	repos.assertExpectations(t)
}

func TestHistoryService_SearchHistory(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	t.Run("invalid search type", func(t *testing.T) {
		repos := newTestRepos()
		_, err := newTestHistoryService(repos, &stubLocker{}).SearchHistory(ctx, ownerID, "kim", "email", 1, 10)
		assert.ErrorIs(t, err, reconcile.ErrInvalidSearchType)
	})

	t.Run("page size is clamped", func(t *testing.T) {
		repos := newTestRepos()
		repos.archives.On("SearchHistories", ctx, ownerID, reconcile.HistorySearch{
			Query: "kim",
			Type:  reconcile.SearchAll,
			Page:  shared.Page{Number: 1, Size: 200},
		}).Return([]reconcile.HistorySearchResult(nil), int64(0), nil)

		page, err := newTestHistoryService(repos, &stubLocker{}).SearchHistory(ctx, ownerID, "kim", "", 0, 1000)
		require.NoError(t, err)
		assert.NotNil(t, page.Items)
		assert.Equal(t, 200, page.PageSize)
		assert.Equal(t, 0, page.TotalPages)
		repos.assertExpectations(t)
	})
}

func TestHistoryService_ListArchivesClampsLimit(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	repos := newTestRepos()
	repos.archives.On("FindByOwner", ctx, ownerID, 50).Return([]reconcile.Archive{}, nil).Twice()

	svc := newTestHistoryService(repos, &stubLocker{})
	_, err := svc.ListArchives(ctx, ownerID, 0)
	require.NoError(t, err)
	_, err = svc.ListArchives(ctx, ownerID, 500)
	require.NoError(t, err)
	repos.assertExpectations(t)
}
