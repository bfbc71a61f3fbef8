package reconcile

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePassportStatus(t *testing.T) {
	tests := []struct {
		name     string
		evidence PassportEvidence
		want     PassportStatus
	}{
		{"no reference row", PassportEvidence{PassportFound: true, PassportMatched: true}, PassportUnknown},
		{"matched passport", PassportEvidence{ReferenceFound: true, PassportFound: true, PassportMatched: true}, PassportMatched},
		{"unmatched passport", PassportEvidence{ReferenceFound: true, PassportFound: true}, PassportNeedsUpdate},
		{"number on receipt only", PassportEvidence{ReferenceFound: true, ReceiptPassportNumber: "MZ1"}, PassportMissing},
		{"number on row only", PassportEvidence{ReferenceFound: true, ReferencePassportNumber: "MZ1"}, PassportMissing},
		{"no number anywhere", PassportEvidence{ReferenceFound: true}, PassportNotProvided},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePassportStatus(tt.evidence))
		})
	}
}

func TestPassportStatus_Label(t *testing.T) {
	assert.Equal(t, "매칭됨", PassportMatched.Label())
	assert.False(t, PassportMatched.NeedsUpdate())
	assert.Equal(t, "여권번호 수정 필요", PassportNeedsUpdate.Label())
	assert.Equal(t, "여권 정보 없음", PassportMissing.Label())
	assert.Equal(t, "여권번호 미제공", PassportNotProvided.Label())
	assert.Equal(t, "확인 필요", PassportUnknown.Label())
	assert.True(t, PassportUnknown.NeedsUpdate())
}

func TestLogVariantB(t *testing.T) {
	ownerID := uuid.New()

	t.Run("matched receipt carries excel name and receipt passport", func(t *testing.T) {
		entry := LogVariantB(ownerID, CandidateB{
			ReceiptNumber:           "0124507700631",
			ReceiptPassportNumber:   "MZ9268755",
			ReferenceFound:          true,
			ExcelName:               "ZHANG SAN",
			ReferencePassportNumber: "OLD123",
		})
		assert.True(t, entry.IsMatched)
		assert.Equal(t, "ZHANG SAN", entry.ExcelName)
		assert.Equal(t, "MZ9268755", entry.PassportNumber)
		assert.Equal(t, PassportMissing, entry.PassportStatus)
	})

	t.Run("unmatched receipt has no excel name", func(t *testing.T) {
		entry := LogVariantB(ownerID, CandidateB{ReceiptNumber: "1", ExcelName: "ignored"})
		assert.False(t, entry.IsMatched)
		assert.Empty(t, entry.ExcelName)
	})

	t.Run("falls back to reference passport number and passport birthday", func(t *testing.T) {
		entry := LogVariantB(ownerID, CandidateB{
			ReceiptNumber:           "1",
			ReferenceFound:          true,
			ExcelName:               "LI SI",
			ReferencePassportNumber: "EA1",
			PassportFound:           true,
			PassportBirthday:        "1990-01-01",
			PassportMatched:         true,
		})
		assert.Equal(t, "EA1", entry.PassportNumber)
		assert.Equal(t, "1990-01-01", entry.Birthday)
		assert.Equal(t, PassportMatched, entry.PassportStatus)
	})
}

func TestGroupMatchesB(t *testing.T) {
	idA, idB, idC := uuid.New(), uuid.New(), uuid.New()

	t.Run("same passport number lands in one group", func(t *testing.T) {
		rows := []MatchedRowB{
			{CandidateB: CandidateB{ReceiptID: idA, ReceiptNumber: "1", ReferenceFound: true, ExcelName: "ZHANG SAN", ReceiptPassportNumber: "MZ1", PassportFound: true, PassportName: "ZHANG SAN", PassportMatched: true}, PayoutAmount: decimal.NewFromInt(100)},
			{CandidateB: CandidateB{ReceiptID: idB, ReceiptNumber: "2", ReferenceFound: true, ExcelName: "ZHANG SAN", ReferencePassportNumber: "MZ1", PassportFound: true, PassportName: "ZHANG SAN", PassportMatched: true}, PayoutAmount: decimal.NewFromInt(50)},
		}
		groups := GroupMatchesB(rows)
		require.Len(t, groups, 1)
		assert.Equal(t, []string{"1", "2"}, groups[0].ReceiptNumbers)
		assert.Equal(t, []uuid.UUID{idA, idB}, groups[0].ReceiptIDs)
		assert.Equal(t, "MZ1", groups[0].PassportNumber)
		assert.True(t, groups[0].PayoutTotal.Equal(decimal.NewFromInt(150)))
		assert.False(t, groups[0].NeedsUpdate)
		assert.Equal(t, "매칭됨", groups[0].PassportMatchStatus)
	})

	t.Run("different excel names without passport stay apart", func(t *testing.T) {
		rows := []MatchedRowB{
			{CandidateB: CandidateB{ReceiptID: idA, ReceiptNumber: "1", ReferenceFound: true, ExcelName: "ZHANG SAN"}},
			{CandidateB: CandidateB{ReceiptID: idB, ReceiptNumber: "2", ReferenceFound: true, ExcelName: "LI SI"}},
		}
		groups := GroupMatchesB(rows)
		require.Len(t, groups, 2)
		assert.Equal(t, "ZHANG SAN", groups[0].Name)
		assert.Equal(t, PassportNotProvided, groups[0].PassportStatus)
		assert.True(t, groups[0].NeedsUpdate)
	})

	t.Run("same excel name without passport but different receipts stay apart", func(t *testing.T) {
		rows := []MatchedRowB{
			{CandidateB: CandidateB{ReceiptID: idA, ReceiptNumber: "1", ReferenceFound: true, ExcelName: "ZHANG SAN"}},
			{CandidateB: CandidateB{ReceiptID: idB, ReceiptNumber: "2", ReferenceFound: true, ExcelName: "ZHANG SAN"}},
		}
		assert.Len(t, GroupMatchesB(rows), 2)
	})

	t.Run("duplicate join rows count once", func(t *testing.T) {
		rows := []MatchedRowB{
			{CandidateB: CandidateB{ReceiptID: idC, ReceiptNumber: "3", ReferenceFound: true, ExcelName: "WANG WU", ReceiptPassportNumber: "P1", PassportFound: true, PassportName: "WANG WU"}},
			{CandidateB: CandidateB{ReceiptID: idC, ReceiptNumber: "3", ReferenceFound: true, ExcelName: "WANG WU", ReceiptPassportNumber: "P1", PassportFound: true, PassportName: "WANG WU"}},
		}
		groups := GroupMatchesB(rows)
		require.Len(t, groups, 1)
		assert.Len(t, groups[0].ReceiptNumbers, 1)
	})

	t.Run("passport name is preferred as display name", func(t *testing.T) {
		rows := []MatchedRowB{
			{CandidateB: CandidateB{ReceiptID: idA, ReceiptNumber: "1", ReferenceFound: true, ExcelName: "ZHANG S", ReceiptPassportNumber: "MZ1", PassportFound: true, PassportName: "ZHANG SAN"}},
		}
		groups := GroupMatchesB(rows)
		assert.Equal(t, "ZHANG SAN", groups[0].Name)
		assert.Equal(t, "ZHANG S", groups[0].ExcelName)
	})
}

func TestGroupMatchesA(t *testing.T) {
	ownerID := uuid.New()
	zhang, _ := NewPassport(ownerID, "ZHANG SAN", "MZ1", "1994-06-09", "")
	lookup := func(name string) *Passport {
		if strings.EqualFold(name, "zhang san") {
			return zhang
		}
		return nil
	}

	rows := []MatchedRowA{
		{ReceiptID: uuid.New(), ReceiptNumber: "90208724000593", ExcelName: "ZHANG SAN", PayoutAmount: decimal.NewFromInt(10)},
		{ReceiptID: uuid.New(), ReceiptNumber: "90208724000594", ExcelName: "LI SI"},
		{ReceiptID: uuid.New(), ReceiptNumber: "90208724000595", ExcelName: "ZHANG SAN", PayoutAmount: decimal.NewFromInt(5)},
	}

	groups := GroupMatchesA(rows, lookup)
	require.Len(t, groups, 2)

	assert.Equal(t, "ZHANG SAN", groups[0].Name)
	assert.Equal(t, []string{"90208724000593", "90208724000595"}, groups[0].ReceiptNumbers)
	assert.Equal(t, "MZ1", groups[0].PassportNumber)
	assert.False(t, groups[0].NeedsUpdate)
	assert.True(t, groups[0].PayoutTotal.Equal(decimal.NewFromInt(15)))

	assert.Equal(t, "LI SI", groups[1].Name)
	assert.True(t, groups[1].NeedsUpdate)
	assert.Equal(t, PassportMissing, groups[1].PassportStatus)
}

func TestGroupMatchesA_NameMismatchNeedsUpdate(t *testing.T) {
	passport, _ := NewPassport(uuid.New(), "Zhang San", "MZ1", "", "")
	groups := GroupMatchesA(
		[]MatchedRowA{{ReceiptID: uuid.New(), ReceiptNumber: "1", ExcelName: "ZHANG SAN"}},
		func(string) *Passport { return passport },
	)
	require.Len(t, groups, 1)
	assert.True(t, groups[0].NeedsUpdate)
	assert.Equal(t, PassportNeedsUpdate, groups[0].PassportStatus)
}

func TestNewStatistics(t *testing.T) {
	s := NewStatistics(VariantShilla, 10, 7, 4, 1)
	assert.Equal(t, int64(3), s.UnmatchedReceipts)
	assert.Equal(t, int64(3), s.UnmatchedPassports)
	assert.Equal(t, s.TotalReceipts, s.MatchedReceipts+s.UnmatchedReceipts)
	assert.InDelta(t, 70.0, s.CompletionRate(), 0.001)
	assert.Zero(t, NewStatistics(VariantLotte, 0, 0, 0, 0).CompletionRate())
}

func TestNewArchive(t *testing.T) {
	ownerID := uuid.New()
	stats := NewStatistics(VariantShilla, 2, 1, 1, 1)
	results := &MatchResults{
		Variant: VariantShilla,
		Matched: []CustomerMatch{{
			Name:                "ZHANG SAN",
			ReceiptNumbers:      []string{"0124507700631"},
			PassportNumber:      "MZ9268755",
			PassportMatchStatus: PassportMatched.Label(),
		}},
		Unmatched: []UnmatchedReceipt{{ID: uuid.New(), ReceiptNumber: "0000000000001"}},
	}

	t.Run("snapshots statistics and customer groups", func(t *testing.T) {
		archive, err := NewArchive(ownerID, " March ", "note", stats, results)
		require.NoError(t, err)
		assert.Equal(t, "March", archive.SessionName)
		assert.Equal(t, int64(2), archive.TotalReceipts)
		assert.Equal(t, VariantShilla, archive.Variant)
		require.Len(t, archive.Histories, 1)

		h := archive.Histories[0]
		assert.Equal(t, archive.ID, h.ArchiveID)
		assert.Equal(t, "ZHANG SAN", h.CustomerName)
		assert.Equal(t, []string{"0124507700631"}, h.ReceiptNumbers)
		assert.Equal(t, "매칭됨", h.MatchStatus)

		var snapshot map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(archive.Data, &snapshot))
		assert.Contains(t, snapshot, "statistics")
		assert.Contains(t, snapshot, "results")
	})

	t.Run("default session name", func(t *testing.T) {
		archive, err := NewArchive(ownerID, "", "", stats, results)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(archive.SessionName, "세션_"))
	})
}

func TestParseSearchType(t *testing.T) {
	st, err := ParseSearchType("")
	require.NoError(t, err)
	assert.Equal(t, SearchAll, st)

	st, err = ParseSearchType("Passport")
	require.NoError(t, err)
	assert.Equal(t, SearchPassport, st)

	_, err = ParseSearchType("email")
	assert.ErrorIs(t, err, ErrInvalidSearchType)
}

func TestPayoutIdentities(t *testing.T) {
	results := &MatchResults{
		Variant: VariantShilla,
		Matched: []CustomerMatch{
			{Name: "KIM MINJI", PassportName: "KIM MINJI", PassportNumber: "M1", Birthday: "1990-01-02", PayoutTotal: decimal.NewFromInt(3000)},
			{Name: "LEE", ExcelName: "LEE"},
			{Name: "KIM MINJI", PassportName: "KIM MINJI", PassportNumber: "M1", Birthday: "1990-01-02", PayoutTotal: decimal.NewFromInt(3000)},
			{Name: "PARK", PassportName: "PARK", PassportNumber: "P9", PayoutTotal: decimal.NewFromInt(500)},
		},
	}

	identities := PayoutIdentities(results)
	require.Len(t, identities, 2)
	assert.Equal(t, "KIM MINJI", identities[0].Name)
	assert.True(t, decimal.NewFromInt(3000).Equal(identities[0].Payout))
	assert.Equal(t, "P9", identities[1].PassportNumber)

	assert.Empty(t, PayoutIdentities(nil))
}
