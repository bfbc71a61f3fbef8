package reconcile

import "github.com/shopspring/decimal"

// PayoutIdentity is the person and amount printed on one payout document
type PayoutIdentity struct {
	Name           string
	PassportNumber string
	Birthday       string
	Payout         decimal.Decimal
}

// PayoutIdentities collects one identity per matched customer group that has a
// passport record. Identical identities are emitted once, in group order.
func PayoutIdentities(results *MatchResults) []PayoutIdentity {
	if results == nil {
		return nil
	}

	type key struct {
		name, passport, birthday, payout string
	}
	seen := make(map[key]bool)
	var identities []PayoutIdentity
	for _, group := range results.Matched {
		if group.PassportName == "" {
			continue
		}
		k := key{group.PassportName, group.PassportNumber, group.Birthday, group.PayoutTotal.String()}
		if seen[k] {
			continue
		}
		seen[k] = true
		identities = append(identities, PayoutIdentity{
			Name:           group.PassportName,
			PassportNumber: group.PassportNumber,
			Birthday:       group.Birthday,
			Payout:         group.PayoutTotal,
		})
	}
	return identities
}

// PayoutDocument is one rendered payout file
type PayoutDocument struct {
	FileName string
	Data     []byte
}
