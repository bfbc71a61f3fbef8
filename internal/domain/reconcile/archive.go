package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dutyfree/reconcile/internal/domain/shared"
	"github.com/google/uuid"
)

// Archive is an immutable snapshot of a completed session
type Archive struct {
	ID               uuid.UUID
	OwnerID          uuid.UUID
	SessionName      string
	ArchiveDate      time.Time
	TotalReceipts    int64
	MatchedReceipts  int64
	TotalPassports   int64
	MatchedPassports int64
	Variant          Variant
	Notes            string
	Data             json.RawMessage
	Histories        []MatchingHistory
}

// MatchingHistory is one archived customer group
type MatchingHistory struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	ArchiveID      uuid.UUID
	CustomerName   string
	PassportNumber string
	ReceiptNumbers []string
	ExcelData      json.RawMessage
	MatchStatus    string
	CreatedAt      time.Time
}

type archiveSnapshot struct {
	Statistics *Statistics   `json:"statistics"`
	Results    *MatchResults `json:"results"`
}

// DefaultSessionName returns the name used when the client gives none
func DefaultSessionName(now time.Time) string {
	return fmt.Sprintf("세션_%d", now.Unix())
}

// NewArchive snapshots the statistics and results of a session. One history
// row is produced per matched customer group.
func NewArchive(ownerID uuid.UUID, sessionName, notes string, stats *Statistics, results *MatchResults) (*Archive, error) {
	now := time.Now()
	if strings.TrimSpace(sessionName) == "" {
		sessionName = DefaultSessionName(now)
	}

	data, err := json.Marshal(archiveSnapshot{Statistics: stats, Results: results})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize archive data: %w", err)
	}

	archive := &Archive{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		SessionName:      strings.TrimSpace(sessionName),
		ArchiveDate:      now,
		TotalReceipts:    stats.TotalReceipts,
		MatchedReceipts:  stats.MatchedReceipts,
		TotalPassports:   stats.TotalPassports,
		MatchedPassports: stats.MatchedPassports,
		Variant:          stats.Variant,
		Notes:            notes,
		Data:             data,
	}

	for _, customer := range results.Matched {
		excel, err := json.Marshal(customer)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize customer %q: %w", customer.Name, err)
		}
		archive.Histories = append(archive.Histories, MatchingHistory{
			ID:             uuid.New(),
			OwnerID:        ownerID,
			ArchiveID:      archive.ID,
			CustomerName:   customer.Name,
			PassportNumber: customer.PassportNumber,
			ReceiptNumbers: append([]string(nil), customer.ReceiptNumbers...),
			ExcelData:      excel,
			MatchStatus:    customer.PassportMatchStatus,
			CreatedAt:      now,
		})
	}
	return archive, nil
}

// CompletionRate returns the matched share of receipts as a percentage
func (a *Archive) CompletionRate() float64 {
	if a.TotalReceipts == 0 {
		return 0
	}
	return float64(a.MatchedReceipts) / float64(a.TotalReceipts) * 100
}

// SearchType selects the field a history search matches against
type SearchType string

const (
	SearchAll      SearchType = "all"
	SearchCustomer SearchType = "customer"
	SearchPassport SearchType = "passport"
	SearchReceipt  SearchType = "receipt"
)

// ParseSearchType parses a search type, defaulting to all
func ParseSearchType(s string) (SearchType, error) {
	switch t := SearchType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return SearchAll, nil
	case SearchAll, SearchCustomer, SearchPassport, SearchReceipt:
		return t, nil
	default:
		return "", ErrInvalidSearchType
	}
}

// HistorySearch is a history search request
type HistorySearch struct {
	Query string
	Type  SearchType
	Page  shared.Page
}

// HistorySearchResult is one matching history row with its archive summary
type HistorySearchResult struct {
	MatchingHistory
	SessionName string
	ArchiveDate time.Time
	Variant     Variant
}
