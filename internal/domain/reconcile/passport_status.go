package reconcile

// PassportStatus classifies how a receipt's customer relates to a passport record
type PassportStatus string

const (
	PassportMatched     PassportStatus = "passport_matched"
	PassportNeedsUpdate PassportStatus = "passport_needs_update"
	PassportMissing     PassportStatus = "passport_missing"
	PassportNotProvided PassportStatus = "passport_not_provided"
	PassportUnknown     PassportStatus = "passport_unknown"
)

var passportStatusLabels = map[PassportStatus]string{
	PassportMatched:     "매칭됨",
	PassportNeedsUpdate: "여권번호 수정 필요",
	PassportMissing:     "여권 정보 없음",
	PassportNotProvided: "여권번호 미제공",
}

// Label returns the operator-facing label
func (s PassportStatus) Label() string {
	if label, ok := passportStatusLabels[s]; ok {
		return label
	}
	return "확인 필요"
}

// NeedsUpdate reports whether an operator must correct the passport data
func (s PassportStatus) NeedsUpdate() bool {
	return s != PassportMatched
}

// PassportEvidence is what the engine knows about one receipt's passport linkage
type PassportEvidence struct {
	ReferenceFound          bool
	PassportFound           bool
	PassportMatched         bool
	ReceiptPassportNumber   string
	ReferencePassportNumber string
}

// ResolvePassportStatus applies the status precedence. A receipt without a
// reference row has no customer to attach a passport to and is unknown.
func ResolvePassportStatus(e PassportEvidence) PassportStatus {
	switch {
	case !e.ReferenceFound:
		return PassportUnknown
	case e.PassportFound && e.PassportMatched:
		return PassportMatched
	case e.PassportFound:
		return PassportNeedsUpdate
	case e.ReceiptPassportNumber != "" || e.ReferencePassportNumber != "":
		return PassportMissing
	default:
		return PassportNotProvided
	}
}
