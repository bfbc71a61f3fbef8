package reconcile

import (
	"context"
	"fmt"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/dutyfree/reconcile/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultArchiveLimit    = 50
	defaultHistoryPageSize = 50
	maxHistoryPageSize     = 200
)

// OwnerLocker serializes session-wide operations of one owner.
// Lock returns shared.ErrSessionBusy when the lock cannot be taken before ctx ends.
type OwnerLocker interface {
	Lock(ctx context.Context, ownerID uuid.UUID) (release func(), err error)
}

// HistoryService archives sessions, searches archived history and clears sessions
type HistoryService struct {
	selector *StrategySelector
	txScope  TransactionScope
	repos    TransactionalRepositories
	locker   OwnerLocker
	logger   *zap.Logger
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(
	selector *StrategySelector,
	txScope TransactionScope,
	repos TransactionalRepositories,
	locker OwnerLocker,
	logger *zap.Logger,
) *HistoryService {
	return &HistoryService{
		selector: selector,
		txScope:  txScope,
		repos:    repos,
		locker:   locker,
		logger:   logger,
	}
}

// SaveCurrentSession snapshots the session into an archive
func (s *HistoryService) SaveCurrentSession(ctx context.Context, ownerID uuid.UUID, sessionName, notes string) (*reconcile.Archive, error) {
	release, err := s.locker.Lock(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	strategy := s.selector.Detect(ctx, ownerID)
	var archive *reconcile.Archive
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		archive, err = s.archive(ctx, repos, strategy, ownerID, sessionName, notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return archive, nil
}

// ListArchives lists the owner's archives newest first
func (s *HistoryService) ListArchives(ctx context.Context, ownerID uuid.UUID, limit int) ([]reconcile.Archive, error) {
	if limit <= 0 || limit > defaultArchiveLimit {
		limit = defaultArchiveLimit
	}
	return s.repos.ArchiveRepo().FindByOwner(ctx, ownerID, limit)
}

// GetArchive returns one archive with its history rows
func (s *HistoryService) GetArchive(ctx context.Context, ownerID, archiveID uuid.UUID) (*reconcile.Archive, error) {
	return s.repos.ArchiveRepo().FindByID(ctx, ownerID, archiveID)
}

// SearchHistory searches archived customer groups
func (s *HistoryService) SearchHistory(ctx context.Context, ownerID uuid.UUID, query, searchType string, page, pageSize int) (*shared.Paginated[reconcile.HistorySearchResult], error) {
	typ, err := reconcile.ParseSearchType(searchType)
	if err != nil {
		return nil, err
	}
	p := shared.Page{Number: page, Size: pageSize}.Normalize(defaultHistoryPageSize, maxHistoryPageSize)

	rows, total, err := s.repos.ArchiveRepo().SearchHistories(ctx, ownerID, reconcile.HistorySearch{
		Query: query,
		Type:  typ,
		Page:  p,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search history: %w", err)
	}
	if rows == nil {
		rows = []reconcile.HistorySearchResult{}
	}
	result := shared.NewPaginated(rows, total, p.Number, p.Size)
	return &result, nil
}

// CompleteSessionResult reports the archive written and the statistics at completion
type CompleteSessionResult struct {
	ArchiveID  *uuid.UUID            `json:"archive_id,omitempty"`
	Statistics *reconcile.Statistics `json:"statistics"`
	Cleared    ClearResult           `json:"cleared"`
}

// CompleteSession optionally archives the session and then clears it, in one transaction
func (s *HistoryService) CompleteSession(ctx context.Context, ownerID uuid.UUID, archive bool, sessionName, notes string) (*CompleteSessionResult, error) {
	release, err := s.locker.Lock(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	strategy := s.selector.Detect(ctx, ownerID)
	result := &CompleteSessionResult{}
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		stats, err := strategy.Statistics(ctx, repos, ownerID)
		if err != nil {
			return err
		}
		if stats.TotalReceipts == 0 {
			return reconcile.ErrEmptySession
		}
		result.Statistics = stats

		if archive {
			saved, err := s.archive(ctx, repos, strategy, ownerID, sessionName, notes)
			if err != nil {
				return err
			}
			result.ArchiveID = &saved.ID
		}

		result.Cleared, err = clearSession(ctx, repos, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("session completed",
		zap.String("owner_id", ownerID.String()),
		zap.Bool("archived", result.ArchiveID != nil),
		zap.Int64("total_receipts", result.Statistics.TotalReceipts),
		zap.Int64("matched_receipts", result.Statistics.MatchedReceipts))
	return result, nil
}

// ClearResult counts the rows removed by a session clear
type ClearResult struct {
	MatchLogs          int64 `json:"match_logs"`
	Receipts           int64 `json:"receipts"`
	Passports          int64 `json:"passports"`
	UnrecognizedImages int64 `json:"unrecognized_images"`
	ResetLedgerRows    int64 `json:"reset_ledger_rows"`
}

// ClearSession deletes the owner's session data in one transaction
func (s *HistoryService) ClearSession(ctx context.Context, ownerID uuid.UUID) (*ClearResult, error) {
	release, err := s.locker.Lock(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	var result ClearResult
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = clearSession(ctx, repos, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("session cleared",
		zap.String("owner_id", ownerID.String()),
		zap.Int64("receipts", result.Receipts),
		zap.Int64("passports", result.Passports),
		zap.Int64("reset_ledger_rows", result.ResetLedgerRows))
	return &result, nil
}

func (s *HistoryService) archive(ctx context.Context, repos TransactionalRepositories, strategy VariantStrategy, ownerID uuid.UUID, sessionName, notes string) (*reconcile.Archive, error) {
	stats, err := strategy.Statistics(ctx, repos, ownerID)
	if err != nil {
		return nil, err
	}
	results, err := strategy.ReadResults(ctx, repos, ownerID)
	if err != nil {
		return nil, err
	}

	archive, err := reconcile.NewArchive(ownerID, sessionName, notes, stats, results)
	if err != nil {
		return nil, err
	}
	if err := repos.ArchiveRepo().Create(ctx, archive); err != nil {
		return nil, fmt.Errorf("failed to save archive: %w", err)
	}

	s.logger.Info("session archived",
		zap.String("owner_id", ownerID.String()),
		zap.String("archive_id", archive.ID.String()),
		zap.String("session_name", archive.SessionName),
		zap.Int("customers", len(archive.Histories)))
	return archive, nil
}

// clearSession resets the back-filled ledger numbers before the receipts they
// were copied from are deleted
func clearSession(ctx context.Context, repos TransactionalRepositories, ownerID uuid.UUID) (ClearResult, error) {
	var result ClearResult
	var err error

	if result.ResetLedgerRows, err = repos.ReferenceRepo().ClearBackfilledPassports(ctx, ownerID); err != nil {
		return result, fmt.Errorf("failed to reset ledger passport numbers: %w", err)
	}
	if result.MatchLogs, err = repos.MatchLogRepo().DeleteByOwner(ctx, ownerID); err != nil {
		return result, fmt.Errorf("failed to delete match logs: %w", err)
	}
	if result.Receipts, err = repos.ReceiptRepo().DeleteByOwner(ctx, ownerID); err != nil {
		return result, fmt.Errorf("failed to delete receipts: %w", err)
	}
	if result.Passports, err = repos.PassportRepo().DeleteByOwner(ctx, ownerID); err != nil {
		return result, fmt.Errorf("failed to delete passports: %w", err)
	}
	if result.UnrecognizedImages, err = repos.UnrecognizedRepo().DeleteByOwner(ctx, ownerID); err != nil {
		return result, fmt.Errorf("failed to delete unrecognized images: %w", err)
	}
	return result, nil
}
