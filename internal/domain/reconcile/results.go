package reconcile

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerMatch is one customer group of matched receipts
type CustomerMatch struct {
	Name                string          `json:"name"`
	ExcelName           string          `json:"excel_name,omitempty"`
	PassportName        string          `json:"passport_name,omitempty"`
	ReceiptNumbers      []string        `json:"receipt_numbers"`
	ReceiptIDs          []uuid.UUID     `json:"receipt_ids"`
	PassportNumber      string          `json:"passport_number,omitempty"`
	Birthday            string          `json:"birthday,omitempty"`
	PayoutTotal         decimal.Decimal `json:"payout_total"`
	NeedsUpdate         bool            `json:"needs_update"`
	PassportStatus      PassportStatus  `json:"passport_status"`
	PassportMatchStatus string          `json:"passport_match_status"`
}

// UnmatchedReceipt is a receipt without a reference row
type UnmatchedReceipt struct {
	ID             uuid.UUID `json:"id"`
	ReceiptNumber  string    `json:"receipt_number"`
	PassportNumber string    `json:"passport_number,omitempty"`
	FilePath       string    `json:"file_path"`
	CreatedAt      time.Time `json:"created_at"`
}

// MatchResults is the read-side view of a session
type MatchResults struct {
	Variant   Variant            `json:"duty_free_type"`
	Matched   []CustomerMatch    `json:"matched_customers"`
	Unmatched []UnmatchedReceipt `json:"unmatched_receipts"`
}

// MatchedRowB is one shilla receipt joined to its reference row, with an
// optional passport resolved by receipt or row passport number
type MatchedRowB struct {
	CandidateB
	PayoutAmount decimal.Decimal
}

// GroupMatchesB folds shilla rows into customer groups. Rows sharing a resolved
// passport number form one group; rows without one are keyed by excel name and
// receipt number so unrelated customers never merge. Input order is preserved.
func GroupMatchesB(rows []MatchedRowB) []CustomerMatch {
	groups := make(map[string]int)
	result := make([]CustomerMatch, 0)
	seen := make(map[uuid.UUID]bool)

	for _, row := range rows {
		// a receipt joined to two passports only counts once
		if seen[row.ReceiptID] {
			continue
		}
		seen[row.ReceiptID] = true

		passportNumber := row.ResolvedPassportNumber()
		key := "excel_" + row.ExcelName + "_" + row.ReceiptNumber
		if passportNumber != "" {
			key = "passport_" + passportNumber
		}

		idx, ok := groups[key]
		if !ok {
			status := ResolvePassportStatus(row.Evidence())
			name := row.ExcelName
			if row.PassportName != "" {
				name = row.PassportName
			}
			result = append(result, CustomerMatch{
				Name:                name,
				ExcelName:           row.ExcelName,
				PassportName:        row.PassportName,
				ReceiptNumbers:      []string{},
				ReceiptIDs:          []uuid.UUID{},
				PassportNumber:      passportNumber,
				Birthday:            row.PassportBirthday,
				PayoutTotal:         decimal.Zero,
				NeedsUpdate:         status.NeedsUpdate(),
				PassportStatus:      status,
				PassportMatchStatus: status.Label(),
			})
			idx = len(result) - 1
			groups[key] = idx
		}

		group := &result[idx]
		group.ReceiptNumbers = append(group.ReceiptNumbers, row.ReceiptNumber)
		group.ReceiptIDs = append(group.ReceiptIDs, row.ReceiptID)
		group.PayoutTotal = group.PayoutTotal.Add(row.PayoutAmount)
	}
	return result
}

// MatchedRowA is one lotte receipt whose latest log entry is matched
type MatchedRowA struct {
	ReceiptID     uuid.UUID
	ReceiptNumber string
	ExcelName     string
	PayoutAmount  decimal.Decimal
}

// GroupMatchesA folds lotte rows into groups by excel name and attaches the
// passport found for that name. lookup returns nil when no passport has the name.
func GroupMatchesA(rows []MatchedRowA, lookup func(name string) *Passport) []CustomerMatch {
	groups := make(map[string]int)
	result := make([]CustomerMatch, 0)

	for _, row := range rows {
		idx, ok := groups[row.ExcelName]
		if !ok {
			result = append(result, newLotteGroup(row.ExcelName, lookup(row.ExcelName)))
			idx = len(result) - 1
			groups[row.ExcelName] = idx
		}
		group := &result[idx]
		group.ReceiptNumbers = append(group.ReceiptNumbers, row.ReceiptNumber)
		group.ReceiptIDs = append(group.ReceiptIDs, row.ReceiptID)
		group.PayoutTotal = group.PayoutTotal.Add(row.PayoutAmount)
	}
	return result
}

func newLotteGroup(excelName string, passport *Passport) CustomerMatch {
	group := CustomerMatch{
		Name:           excelName,
		ExcelName:      excelName,
		ReceiptNumbers: []string{},
		ReceiptIDs:     []uuid.UUID{},
		PayoutTotal:    decimal.Zero,
	}

	status := PassportMissing
	if passport != nil {
		group.PassportName = passport.Name
		group.PassportNumber = passport.PassportNumber
		group.Birthday = passport.Birthday
		status = PassportNeedsUpdate
		if passport.Name == excelName {
			status = PassportMatched
		}
	}
	group.PassportStatus = status
	group.NeedsUpdate = status.NeedsUpdate()
	group.PassportMatchStatus = status.Label()
	return group
}
