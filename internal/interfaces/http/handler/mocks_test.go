package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	reconcileapp "github.com/dutyfree/reconcile/internal/application/reconcile"
	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/dutyfree/reconcile/internal/domain/shared"
	"github.com/dutyfree/reconcile/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	middleware.SetupValidator()
}

// serveAs routes one request through a fresh engine with the owner already authenticated
func serveAs(owner uuid.UUID, method, route string, h gin.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if owner != uuid.Nil {
			c.Set(middleware.OwnerIDKey, owner.String())
		}
		c.Next()
	})
	engine.Handle(method, route, h)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, w.Body.String())
	return envelope.Data
}

type MockBatchProcessor struct {
	mock.Mock
}

func (m *MockBatchProcessor) ProcessArchive(ctx context.Context, ownerID uuid.UUID, variant reconcile.Variant, zipPath string) (*reconcileapp.BatchResult, error) {
	args := m.Called(ctx, ownerID, variant, zipPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcileapp.BatchResult), args.Error(1)
}

func (m *MockBatchProcessor) Progress(ctx context.Context, ownerID uuid.UUID) (reconcileapp.ProgressSnapshot, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(reconcileapp.ProgressSnapshot), args.Error(1)
}

type MockReferenceLoader struct {
	mock.Mock
}

func (m *MockReferenceLoader) LoadReferenceSheet(ctx context.Context, variant reconcile.Variant, filename string, r io.Reader) (*reconcileapp.ReferenceLoadResult, error) {
	args := m.Called(ctx, variant, filename, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcileapp.ReferenceLoadResult), args.Error(1)
}

func (m *MockReferenceLoader) ReferenceCount(ctx context.Context, variant reconcile.Variant) (int64, error) {
	args := m.Called(ctx, variant)
	return args.Get(0).(int64), args.Error(1)
}

type MockMatchingOperations struct {
	mock.Mock
}

func (m *MockMatchingOperations) RunMatching(ctx context.Context, ownerID uuid.UUID) (*reconcileapp.MatchSummary, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcileapp.MatchSummary), args.Error(1)
}

func (m *MockMatchingOperations) Results(ctx context.Context, ownerID uuid.UUID) (*reconcile.MatchResults, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.MatchResults), args.Error(1)
}

func (m *MockMatchingOperations) Statistics(ctx context.Context, ownerID uuid.UUID) (*reconcile.Statistics, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Statistics), args.Error(1)
}

func (m *MockMatchingOperations) CountReceiptsByVariant(ctx context.Context, ownerID uuid.UUID) (map[reconcile.Variant]int64, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[reconcile.Variant]int64), args.Error(1)
}

func (m *MockMatchingOperations) UpdateReceipt(ctx context.Context, ownerID, receiptID uuid.UUID, update reconcile.ReceiptUpdate) (*reconcileapp.ReceiptUpdateResult, error) {
	args := m.Called(ctx, ownerID, receiptID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcileapp.ReceiptUpdateResult), args.Error(1)
}

func (m *MockMatchingOperations) UpdatePassport(ctx context.Context, ownerID, passportID uuid.UUID, update reconcile.PassportUpdate) (*reconcileapp.PassportUpdateResult, error) {
	args := m.Called(ctx, ownerID, passportID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcileapp.PassportUpdateResult), args.Error(1)
}

func (m *MockMatchingOperations) ListUnmatchedPassports(ctx context.Context, ownerID uuid.UUID) ([]reconcile.Passport, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]reconcile.Passport), args.Error(1)
}

func (m *MockMatchingOperations) ListAvailablePassports(ctx context.Context, ownerID uuid.UUID) ([]reconcile.Passport, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]reconcile.Passport), args.Error(1)
}

func (m *MockMatchingOperations) ListUnrecognizedImages(ctx context.Context, ownerID uuid.UUID) ([]reconcile.UnrecognizedImage, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]reconcile.UnrecognizedImage), args.Error(1)
}

type MockSessionHistory struct {
	mock.Mock
}

func (m *MockSessionHistory) CompleteSession(ctx context.Context, ownerID uuid.UUID, archive bool, sessionName, notes string) (*reconcileapp.CompleteSessionResult, error) {
	args := m.Called(ctx, ownerID, archive, sessionName, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcileapp.CompleteSessionResult), args.Error(1)
}

func (m *MockSessionHistory) ClearSession(ctx context.Context, ownerID uuid.UUID) (*reconcileapp.ClearResult, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcileapp.ClearResult), args.Error(1)
}

func (m *MockSessionHistory) ListArchives(ctx context.Context, ownerID uuid.UUID, limit int) ([]reconcile.Archive, error) {
	args := m.Called(ctx, ownerID, limit)
	return args.Get(0).([]reconcile.Archive), args.Error(1)
}

func (m *MockSessionHistory) GetArchive(ctx context.Context, ownerID, archiveID uuid.UUID) (*reconcile.Archive, error) {
	args := m.Called(ctx, ownerID, archiveID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Archive), args.Error(1)
}

func (m *MockSessionHistory) SearchHistory(ctx context.Context, ownerID uuid.UUID, query, searchType string, page, pageSize int) (*shared.Paginated[reconcile.HistorySearchResult], error) {
	args := m.Called(ctx, ownerID, query, searchType, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[reconcile.HistorySearchResult]), args.Error(1)
}

type MockPayoutGenerator struct {
	mock.Mock
}

func (m *MockPayoutGenerator) GeneratePayoutDocuments(ctx context.Context, ownerID uuid.UUID) (*reconcileapp.PayoutResult, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcileapp.PayoutResult), args.Error(1)
}
