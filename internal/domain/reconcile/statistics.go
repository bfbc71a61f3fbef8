package reconcile

// Statistics summarizes a session
type Statistics struct {
	TotalReceipts      int64   `json:"total_receipts"`
	MatchedReceipts    int64   `json:"matched_receipts"`
	UnmatchedReceipts  int64   `json:"unmatched_receipts"`
	TotalPassports     int64   `json:"total_passports"`
	MatchedPassports   int64   `json:"matched_passports"`
	UnmatchedPassports int64   `json:"unmatched_passports"`
	Variant            Variant `json:"duty_free_type"`
}

// NewStatistics derives the unmatched counts from totals
func NewStatistics(variant Variant, totalReceipts, matchedReceipts, totalPassports, matchedPassports int64) *Statistics {
	return &Statistics{
		TotalReceipts:      totalReceipts,
		MatchedReceipts:    matchedReceipts,
		UnmatchedReceipts:  totalReceipts - matchedReceipts,
		TotalPassports:     totalPassports,
		MatchedPassports:   matchedPassports,
		UnmatchedPassports: totalPassports - matchedPassports,
		Variant:            variant,
	}
}

// CompletionRate returns the matched share of receipts as a percentage
func (s *Statistics) CompletionRate() float64 {
	if s.TotalReceipts == 0 {
		return 0
	}
	return float64(s.MatchedReceipts) / float64(s.TotalReceipts) * 100
}
