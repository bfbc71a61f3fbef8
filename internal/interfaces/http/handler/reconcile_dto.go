package handler

import (
	"encoding/json"
	"time"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
)

// UpdateReceiptRequest corrects a recognized receipt
type UpdateReceiptRequest struct {
	NewReceiptNumber *string `json:"new_receipt_number" binding:"omitempty,max=50" example:"12345678901234"`
	PassportNumber   *string `json:"passport_number" binding:"omitempty,max=20" example:"M12345678"`
}

// UpdatePassportRequest corrects a recognized passport
type UpdatePassportRequest struct {
	Name           *string `json:"name" binding:"omitempty,max=100" example:"HONG GILDONG"`
	PassportNumber *string `json:"passport_number" binding:"omitempty,max=20" example:"M12345678"`
	Birthday       *string `json:"birthday" binding:"omitempty,max=20" example:"1990-01-31"`
}

// CompleteSessionRequest finishes the current session
type CompleteSessionRequest struct {
	Archive     *bool  `json:"archive" binding:"required"`
	SessionName string `json:"session_name" binding:"max=255" example:"March batch"`
	Notes       string `json:"notes" binding:"max=2000"`
}

// SearchHistoryQuery are the query parameters of a history search
type SearchHistoryQuery struct {
	Query      string `form:"q" binding:"max=100"`
	SearchType string `form:"search_type" binding:"omitempty,oneof=all customer passport receipt"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// ListArchivesQuery limits the archive list
type ListArchivesQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}

// ReceiptResponse is a receipt in API responses
type ReceiptResponse struct {
	ID             string `json:"id"`
	DutyFreeType   string `json:"duty_free_type"`
	ReceiptNumber  string `json:"receipt_number"`
	PassportNumber string `json:"passport_number,omitempty"`
	FilePath       string `json:"file_path"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// PassportResponse is a passport in API responses
type PassportResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PassportNumber string `json:"passport_number"`
	Birthday       string `json:"birthday"`
	FilePath       string `json:"file_path"`
	IsMatched      bool   `json:"is_matched"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// MatchLogResponse is one matching decision
type MatchLogResponse struct {
	ID             int64  `json:"id"`
	ReceiptNumber  string `json:"receipt_number"`
	IsMatched      bool   `json:"is_matched"`
	ExcelName      string `json:"excel_name"`
	PassportNumber string `json:"passport_number"`
	Birthday       string `json:"birthday"`
	PassportStatus string `json:"passport_status"`
	CheckedAt      string `json:"checked_at"`
}

// UnrecognizedImageResponse is an image the OCR pipeline could not use
type UnrecognizedImageResponse struct {
	ID        string `json:"id"`
	FilePath  string `json:"file_path"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"created_at"`
}

// ReceiptUpdateResponse is the corrected receipt and its new decision
type ReceiptUpdateResponse struct {
	Receipt  ReceiptResponse   `json:"receipt"`
	MatchLog *MatchLogResponse `json:"match_log,omitempty"`
}

// PassportUpdateResponse is the corrected passport and the log written on a ledger hit
type PassportUpdateResponse struct {
	Passport PassportResponse  `json:"passport"`
	MatchLog *MatchLogResponse `json:"match_log,omitempty"`
}

// ReferenceCountResponse reports how many ledger rows are loaded for a variant
type ReferenceCountResponse struct {
	DutyFreeType string `json:"duty_free_type"`
	Count        int64  `json:"count"`
}

// StatisticsResponse is the session summary with per-variant receipt counts
type StatisticsResponse struct {
	reconcile.Statistics
	CompletionRate float64          `json:"completion_rate"`
	VariantCounts  map[string]int64 `json:"variant_counts"`
}

// ArchiveSummaryResponse is an archive list item
type ArchiveSummaryResponse struct {
	ID               string  `json:"id"`
	SessionName      string  `json:"session_name"`
	ArchiveDate      string  `json:"archive_date"`
	DutyFreeType     string  `json:"duty_free_type"`
	TotalReceipts    int64   `json:"total_receipts"`
	MatchedReceipts  int64   `json:"matched_receipts"`
	TotalPassports   int64   `json:"total_passports"`
	MatchedPassports int64   `json:"matched_passports"`
	CompletionRate   float64 `json:"completion_rate"`
	Notes            string  `json:"notes"`
}

// ArchiveResponse is an archive with its snapshot and history rows
type ArchiveResponse struct {
	ArchiveSummaryResponse
	ArchiveData json.RawMessage   `json:"archive_data"`
	Histories   []HistoryResponse `json:"histories"`
}

// HistoryResponse is one archived customer group
type HistoryResponse struct {
	ID             string          `json:"id"`
	ArchiveID      string          `json:"archive_id"`
	CustomerName   string          `json:"customer_name"`
	PassportNumber string          `json:"passport_number"`
	ReceiptNumbers []string        `json:"receipt_numbers"`
	ExcelData      json.RawMessage `json:"excel_data"`
	MatchStatus    string          `json:"match_status"`
	CreatedAt      string          `json:"created_at"`
}

// HistorySearchResponse is a history row with its archive summary
type HistorySearchResponse struct {
	HistoryResponse
	SessionName  string `json:"session_name"`
	ArchiveDate  string `json:"archive_date"`
	DutyFreeType string `json:"duty_free_type"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toReceiptResponse(r *reconcile.Receipt) ReceiptResponse {
	return ReceiptResponse{
		ID:             r.ID.String(),
		DutyFreeType:   r.Variant.String(),
		ReceiptNumber:  r.ReceiptNumber,
		PassportNumber: r.PassportNumber,
		FilePath:       r.FilePath,
		CreatedAt:      formatTime(r.CreatedAt),
		UpdatedAt:      formatTime(r.UpdatedAt),
	}
}

func toPassportResponse(p *reconcile.Passport) PassportResponse {
	return PassportResponse{
		ID:             p.ID.String(),
		Name:           p.Name,
		PassportNumber: p.PassportNumber,
		Birthday:       p.Birthday,
		FilePath:       p.FilePath,
		IsMatched:      p.IsMatched,
		CreatedAt:      formatTime(p.CreatedAt),
		UpdatedAt:      formatTime(p.UpdatedAt),
	}
}

func toPassportResponses(passports []reconcile.Passport) []PassportResponse {
	out := make([]PassportResponse, len(passports))
	for i := range passports {
		out[i] = toPassportResponse(&passports[i])
	}
	return out
}

func toMatchLogResponse(e *reconcile.MatchLogEntry) *MatchLogResponse {
	if e == nil {
		return nil
	}
	return &MatchLogResponse{
		ID:             e.ID,
		ReceiptNumber:  e.ReceiptNumber,
		IsMatched:      e.IsMatched,
		ExcelName:      e.ExcelName,
		PassportNumber: e.PassportNumber,
		Birthday:       e.Birthday,
		PassportStatus: string(e.PassportStatus),
		CheckedAt:      formatTime(e.CheckedAt),
	}
}

func toUnrecognizedResponses(images []reconcile.UnrecognizedImage) []UnrecognizedImageResponse {
	out := make([]UnrecognizedImageResponse, len(images))
	for i, img := range images {
		out[i] = UnrecognizedImageResponse{
			ID:        img.ID.String(),
			FilePath:  img.FilePath,
			Reason:    img.Reason,
			CreatedAt: formatTime(img.CreatedAt),
		}
	}
	return out
}

func toStatisticsResponse(stats *reconcile.Statistics, counts map[reconcile.Variant]int64) StatisticsResponse {
	out := StatisticsResponse{
		Statistics:     *stats,
		CompletionRate: stats.CompletionRate(),
		VariantCounts:  make(map[string]int64, len(reconcile.Variants())),
	}
	for _, v := range reconcile.Variants() {
		out.VariantCounts[v.String()] = counts[v]
	}
	return out
}

func toArchiveSummary(a *reconcile.Archive) ArchiveSummaryResponse {
	return ArchiveSummaryResponse{
		ID:               a.ID.String(),
		SessionName:      a.SessionName,
		ArchiveDate:      formatTime(a.ArchiveDate),
		DutyFreeType:     a.Variant.String(),
		TotalReceipts:    a.TotalReceipts,
		MatchedReceipts:  a.MatchedReceipts,
		TotalPassports:   a.TotalPassports,
		MatchedPassports: a.MatchedPassports,
		CompletionRate:   a.CompletionRate(),
		Notes:            a.Notes,
	}
}

func toArchiveSummaries(archives []reconcile.Archive) []ArchiveSummaryResponse {
	out := make([]ArchiveSummaryResponse, len(archives))
	for i := range archives {
		out[i] = toArchiveSummary(&archives[i])
	}
	return out
}

func toArchiveResponse(a *reconcile.Archive) ArchiveResponse {
	histories := make([]HistoryResponse, len(a.Histories))
	for i := range a.Histories {
		histories[i] = toHistoryResponse(&a.Histories[i])
	}
	return ArchiveResponse{
		ArchiveSummaryResponse: toArchiveSummary(a),
		ArchiveData:            a.Data,
		Histories:              histories,
	}
}

func toHistoryResponse(h *reconcile.MatchingHistory) HistoryResponse {
	receipts := h.ReceiptNumbers
	if receipts == nil {
		receipts = []string{}
	}
	return HistoryResponse{
		ID:             h.ID.String(),
		ArchiveID:      h.ArchiveID.String(),
		CustomerName:   h.CustomerName,
		PassportNumber: h.PassportNumber,
		ReceiptNumbers: receipts,
		ExcelData:      h.ExcelData,
		MatchStatus:    h.MatchStatus,
		CreatedAt:      formatTime(h.CreatedAt),
	}
}

func toHistorySearchResponses(rows []reconcile.HistorySearchResult) []HistorySearchResponse {
	out := make([]HistorySearchResponse, len(rows))
	for i := range rows {
		out[i] = HistorySearchResponse{
			HistoryResponse: toHistoryResponse(&rows[i].MatchingHistory),
			SessionName:     rows[i].SessionName,
			ArchiveDate:     formatTime(rows[i].ArchiveDate),
			DutyFreeType:    rows[i].Variant.String(),
		}
	}
	return out
}
