package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/dutyfree/reconcile/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultArchiveListLimit = 50
	DefaultHistoryPageSize  = 50
	MaxHistoryPageSize      = 200
)

// GormArchiveRepository implements ArchiveRepository using GORM
type GormArchiveRepository struct {
	db *gorm.DB
}

// NewGormArchiveRepository creates a new GormArchiveRepository
func NewGormArchiveRepository(db *gorm.DB) *GormArchiveRepository {
	return &GormArchiveRepository{db: db}
}

// Create stores the archive header and its history rows
func (r *GormArchiveRepository) Create(ctx context.Context, archive *reconcile.Archive) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(models.ArchiveModelFromDomain(archive)).Error; err != nil {
		return err
	}
	if len(archive.Histories) == 0 {
		return nil
	}

	historyModels := make([]*models.MatchingHistoryModel, 0, len(archive.Histories))
	for i := range archive.Histories {
		model, err := models.MatchingHistoryModelFromDomain(&archive.Histories[i])
		if err != nil {
			return err
		}
		historyModels = append(historyModels, model)
	}
	return db.CreateInBatches(historyModels, 200).Error
}

// FindByID returns an owner's archive with its history rows
func (r *GormArchiveRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*reconcile.Archive, error) {
	var model models.ArchiveModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reconcile.ErrArchiveNotFound
		}
		return nil, err
	}

	var historyModels []models.MatchingHistoryModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND archive_id = ?", ownerID, id).
		Order("created_at ASC, customer_name ASC").
		Find(&historyModels).Error; err != nil {
		return nil, err
	}

	archive := model.ToDomain()
	archive.Histories = make([]reconcile.MatchingHistory, len(historyModels))
	for i := range historyModels {
		archive.Histories[i] = *historyModels[i].ToDomain()
	}
	return archive, nil
}

// FindByOwner lists the owner's archives newest first, without history rows
func (r *GormArchiveRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]reconcile.Archive, error) {
	if limit <= 0 || limit > DefaultArchiveListLimit {
		limit = DefaultArchiveListLimit
	}

	var archiveModels []models.ArchiveModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("archive_date DESC").
		Limit(limit).
		Find(&archiveModels).Error; err != nil {
		return nil, err
	}

	archives := make([]reconcile.Archive, len(archiveModels))
	for i := range archiveModels {
		archives[i] = *archiveModels[i].ToDomain()
	}
	return archives, nil
}

// SearchHistories pages through the owner's history rows matching the search
func (r *GormArchiveRepository) SearchHistories(ctx context.Context, ownerID uuid.UUID, search reconcile.HistorySearch) ([]reconcile.HistorySearchResult, int64, error) {
	page := search.Page.Normalize(DefaultHistoryPageSize, MaxHistoryPageSize)

	filtered := func() *gorm.DB {
		return r.filterHistories(r.db.WithContext(ctx), ownerID, search)
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []historyRow
	if err := filtered().
		Select(`h.id, h.owner_id, h.archive_id, h.customer_name, h.passport_number,
			h.receipt_numbers, h.excel_data, h.match_status, h.created_at,
			a.session_name, a.archive_date, a.duty_free_type`).
		Order("a.archive_date DESC, h.customer_name ASC").
		Offset(page.Offset()).
		Limit(page.Size).
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	results := make([]reconcile.HistorySearchResult, len(rows))
	for i := range rows {
		results[i] = reconcile.HistorySearchResult{
			MatchingHistory: *rows[i].MatchingHistoryModel.ToDomain(),
			SessionName:     rows[i].SessionName,
			ArchiveDate:     rows[i].ArchiveDate,
			Variant:         rows[i].DutyFreeType,
		}
	}
	return results, total, nil
}

func (r *GormArchiveRepository) filterHistories(db *gorm.DB, ownerID uuid.UUID, search reconcile.HistorySearch) *gorm.DB {
	query := db.
		Table("matching_histories AS h").
		Joins("JOIN processing_archives a ON a.id = h.archive_id").
		Where("h.owner_id = ?", ownerID)

	q := strings.ToLower(strings.TrimSpace(search.Query))
	if q == "" {
		return query
	}

	pattern := "%" + likeEscaper.Replace(q) + "%"
	customer := `LOWER(h.customer_name) LIKE ? ESCAPE '\'`
	passport := `LOWER(h.passport_number) LIKE ? ESCAPE '\'`
	receipt := `LOWER(CAST(h.receipt_numbers AS TEXT)) LIKE ? ESCAPE '\'`

	switch search.Type {
	case reconcile.SearchCustomer:
		return query.Where(customer, pattern)
	case reconcile.SearchPassport:
		return query.Where(passport, pattern)
	case reconcile.SearchReceipt:
		return query.Where(receipt, pattern)
	default:
		return query.Where("("+customer+" OR "+passport+" OR "+receipt+")", pattern, pattern, pattern)
	}
}

// likeEscaper makes user input match literally inside a LIKE pattern
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type historyRow struct {
	models.MatchingHistoryModel
	SessionName  string
	ArchiveDate  time.Time
	DutyFreeType reconcile.Variant
}

var _ reconcile.ArchiveRepository = (*GormArchiveRepository)(nil)
