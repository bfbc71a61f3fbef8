package persistence

import (
	"context"
	"time"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// latestLogMatched evaluates the newest log decision for a receipt; receipts
// without a log count as unmatched. Placeholders: (false).
const latestLogMatched = `COALESCE((
	SELECT l.is_matched FROM match_logs l
	WHERE l.owner_id = r.owner_id AND l.receipt_number = r.receipt_number
	ORDER BY l.checked_at DESC, l.id DESC
	LIMIT 1
), ?)`

// shillaColumns selects a receipt with its reference row and passport.
// Placeholders: (false).
const shillaColumns = `r.id AS receipt_id,
	r.receipt_number AS receipt_number,
	r.passport_number AS receipt_passport_number,
	rr.id IS NOT NULL AS reference_found,
	COALESCE(rr.name, '') AS excel_name,
	COALESCE(rr.passport_number, '') AS reference_passport_number,
	COALESCE(rr.payout_amount, 0) AS payout_amount,
	p.id IS NOT NULL AS passport_found,
	COALESCE(p.name, '') AS passport_name,
	COALESCE(p.passport_number, '') AS passport_number,
	COALESCE(p.birthday, '') AS passport_birthday,
	COALESCE(p.is_matched, ?) AS passport_matched`

const shillaPassportJoin = `LEFT JOIN passports p ON p.owner_id = r.owner_id
	AND p.passport_number <> ''
	AND (p.passport_number = r.passport_number OR p.passport_number = rr.passport_number)`

// GormMatchingRepository runs the set-based matching phases and read queries.
// Every statement is scoped to one owner's receipts.
type GormMatchingRepository struct {
	db *gorm.DB
}

// NewGormMatchingRepository creates a new GormMatchingRepository
func NewGormMatchingRepository(db *gorm.DB) *GormMatchingRepository {
	return &GormMatchingRepository{db: db}
}

// CandidatesA left-joins the owner's lotte receipts with lotte reference rows
func (r *GormMatchingRepository) CandidatesA(ctx context.Context, ownerID uuid.UUID) ([]reconcile.CandidateA, error) {
	var candidates []reconcile.CandidateA
	err := r.db.WithContext(ctx).Raw(`
		SELECT r.id AS receipt_id,
			r.receipt_number AS receipt_number,
			rr.id IS NOT NULL AS reference_found,
			COALESCE(rr.name, '') AS excel_name
		FROM receipts r
		LEFT JOIN reference_rows rr ON rr.variant = ? AND rr.receipt_number = r.receipt_number
		WHERE r.owner_id = ? AND r.variant = ?
		ORDER BY r.created_at ASC, r.receipt_number ASC`,
		reconcile.VariantLotte, ownerID, reconcile.VariantLotte,
	).Scan(&candidates).Error
	return candidates, err
}

// BackfillReferencePassports copies the owner's receipt passport numbers onto
// shilla rows with the same receipt number. Empty numbers never overwrite.
func (r *GormMatchingRepository) BackfillReferencePassports(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE reference_rows
		SET passport_number = (
				SELECT r.passport_number FROM receipts r
				WHERE r.owner_id = ? AND r.variant = ?
					AND r.receipt_number = reference_rows.receipt_number
					AND r.passport_number <> ''
				ORDER BY r.updated_at DESC
				LIMIT 1
			),
			backfilled = ?
		WHERE variant = ? AND EXISTS (
			SELECT 1 FROM receipts r
			WHERE r.owner_id = ? AND r.variant = ?
				AND r.receipt_number = reference_rows.receipt_number
				AND r.passport_number <> ''
				AND r.passport_number <> reference_rows.passport_number
		)`,
		ownerID, reconcile.VariantShilla,
		true,
		reconcile.VariantShilla,
		ownerID, reconcile.VariantShilla,
	)
	return result.RowsAffected, result.Error
}

// FlagMatchedPassports marks the owner's passports whose number is on a shilla row
func (r *GormMatchingRepository) FlagMatchedPassports(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE passports
		SET is_matched = ?, updated_at = ?
		WHERE owner_id = ? AND is_matched = ? AND passport_number <> ''
			AND EXISTS (
				SELECT 1 FROM reference_rows rr
				WHERE rr.variant = ? AND rr.passport_number = passports.passport_number
			)`,
		true, time.Now(), ownerID, false, reconcile.VariantShilla,
	)
	return result.RowsAffected, result.Error
}

// CandidatesB joins every shilla receipt of the owner with its reference row and
// any passport carrying the receipt's or the row's passport number
func (r *GormMatchingRepository) CandidatesB(ctx context.Context, ownerID uuid.UUID) ([]reconcile.CandidateB, error) {
	rows, err := r.shillaRows(ctx, ownerID, "LEFT JOIN")
	if err != nil {
		return nil, err
	}
	candidates := make([]reconcile.CandidateB, 0, len(rows))
	seen := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		if seen[row.ReceiptID] {
			continue
		}
		seen[row.ReceiptID] = true
		candidates = append(candidates, row.CandidateB)
	}
	return candidates, nil
}

// MatchedRowsA returns lotte receipts whose latest decision is matched, with their row
func (r *GormMatchingRepository) MatchedRowsA(ctx context.Context, ownerID uuid.UUID) ([]reconcile.MatchedRowA, error) {
	var rows []reconcile.MatchedRowA
	err := r.db.WithContext(ctx).Raw(`
		SELECT r.id AS receipt_id,
			r.receipt_number AS receipt_number,
			rr.name AS excel_name,
			rr.payout_amount AS payout_amount
		FROM receipts r
		JOIN reference_rows rr ON rr.variant = ? AND rr.receipt_number = r.receipt_number
		WHERE r.owner_id = ? AND r.variant = ? AND `+latestLogMatched+` = ?
		ORDER BY rr.name ASC, r.receipt_number ASC`,
		reconcile.VariantLotte, ownerID, reconcile.VariantLotte, false, true,
	).Scan(&rows).Error
	return rows, err
}

// UnmatchedReceiptsA returns lotte receipts whose latest decision is not matched
func (r *GormMatchingRepository) UnmatchedReceiptsA(ctx context.Context, ownerID uuid.UUID) ([]reconcile.UnmatchedReceipt, error) {
	var receipts []reconcile.UnmatchedReceipt
	err := r.db.WithContext(ctx).Raw(`
		SELECT r.id, r.receipt_number, r.passport_number, r.file_path, r.created_at
		FROM receipts r
		WHERE r.owner_id = ? AND r.variant = ? AND `+latestLogMatched+` = ?
		ORDER BY r.receipt_number ASC`,
		ownerID, reconcile.VariantLotte, false, false,
	).Scan(&receipts).Error
	return receipts, err
}

// MatchedRowsB returns shilla receipts that have a reference row
func (r *GormMatchingRepository) MatchedRowsB(ctx context.Context, ownerID uuid.UUID) ([]reconcile.MatchedRowB, error) {
	rows, err := r.shillaRows(ctx, ownerID, "JOIN")
	if err != nil {
		return nil, err
	}
	matched := make([]reconcile.MatchedRowB, len(rows))
	for i, row := range rows {
		matched[i] = reconcile.MatchedRowB{CandidateB: row.CandidateB, PayoutAmount: row.PayoutAmount}
	}
	return matched, nil
}

// UnmatchedReceiptsB returns shilla receipts without a reference row
func (r *GormMatchingRepository) UnmatchedReceiptsB(ctx context.Context, ownerID uuid.UUID) ([]reconcile.UnmatchedReceipt, error) {
	var receipts []reconcile.UnmatchedReceipt
	err := r.db.WithContext(ctx).Raw(`
		SELECT r.id, r.receipt_number, r.passport_number, r.file_path, r.created_at
		FROM receipts r
		WHERE r.owner_id = ? AND r.variant = ?
			AND NOT EXISTS (
				SELECT 1 FROM reference_rows rr
				WHERE rr.variant = ? AND rr.receipt_number = r.receipt_number
			)
		ORDER BY r.receipt_number ASC`,
		ownerID, reconcile.VariantShilla, reconcile.VariantShilla,
	).Scan(&receipts).Error
	return receipts, err
}

// CountReceiptsA counts lotte receipts and those whose latest decision is matched
func (r *GormMatchingRepository) CountReceiptsA(ctx context.Context, ownerID uuid.UUID) (int64, int64, error) {
	var counts receiptCounts
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN `+latestLogMatched+` = ? THEN 1 ELSE 0 END), 0) AS matched
		FROM receipts r
		WHERE r.owner_id = ? AND r.variant = ?`,
		false, true, ownerID, reconcile.VariantLotte,
	).Scan(&counts).Error
	return counts.Total, counts.Matched, err
}

// CountReceiptsB counts shilla receipts and those with a reference row
func (r *GormMatchingRepository) CountReceiptsB(ctx context.Context, ownerID uuid.UUID) (int64, int64, error) {
	var counts receiptCounts
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN EXISTS (
				SELECT 1 FROM reference_rows rr
				WHERE rr.variant = ? AND rr.receipt_number = r.receipt_number
			) THEN 1 ELSE 0 END), 0) AS matched
		FROM receipts r
		WHERE r.owner_id = ? AND r.variant = ?`,
		reconcile.VariantShilla, ownerID, reconcile.VariantShilla,
	).Scan(&counts).Error
	return counts.Total, counts.Matched, err
}

type receiptCounts struct {
	Total   int64
	Matched int64
}

type shillaRow struct {
	reconcile.CandidateB
	PayoutAmount decimal.Decimal
}

func (r *GormMatchingRepository) shillaRows(ctx context.Context, ownerID uuid.UUID, referenceJoin string) ([]shillaRow, error) {
	var rows []shillaRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+shillaColumns+`
		FROM receipts r
		`+referenceJoin+` reference_rows rr ON rr.variant = ? AND rr.receipt_number = r.receipt_number
		`+shillaPassportJoin+`
		WHERE r.owner_id = ? AND r.variant = ?
		ORDER BY COALESCE(p.name, rr.name, '') ASC, r.receipt_number ASC, p.created_at ASC`,
		false, reconcile.VariantShilla, ownerID, reconcile.VariantShilla,
	).Scan(&rows).Error
	return rows, err
}

var _ reconcile.MatchingRepository = (*GormMatchingRepository)(nil)
