package reconcile

import (
	"strings"

	"github.com/dutyfree/reconcile/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Passport is a passport identity recognized from an uploaded image.
// IsMatched is derived by the matching engine and never set by clients.
type Passport struct {
	shared.BaseEntity
	Name           string
	PassportNumber string
	Birthday       string // YYYY-MM-DD or empty
	FilePath       string
	IsMatched      bool
}

// NewPassport creates a passport. Either a name or a number is required.
func NewPassport(ownerID uuid.UUID, name, passportNumber, birthday, filePath string) (*Passport, error) {
	name = normalizeName(name)
	number := NormalizePassportNumber(passportNumber)
	if name == "" && number == "" {
		return nil, ErrEmptyPassport
	}
	return &Passport{
		BaseEntity:     shared.NewBaseEntity(ownerID),
		Name:           name,
		PassportNumber: number,
		Birthday:       NormalizeBirthday(birthday),
		FilePath:       filePath,
	}, nil
}

// PassportUpdate enumerates the passport fields a client may correct
type PassportUpdate struct {
	Name           *string `json:"name"`
	PassportNumber *string `json:"passport_number"`
	Birthday       *string `json:"birthday"`
}

// IsEmpty reports whether the update changes nothing
func (u PassportUpdate) IsEmpty() bool {
	return u.Name == nil && u.PassportNumber == nil && u.Birthday == nil
}

// Apply applies a manual correction to the passport
func (p *Passport) Apply(u PassportUpdate) error {
	if u.IsEmpty() {
		return ErrEmptyUpdate
	}
	name, number, birthday := p.Name, p.PassportNumber, p.Birthday
	if u.Name != nil {
		name = normalizeName(*u.Name)
	}
	if u.PassportNumber != nil {
		number = NormalizePassportNumber(*u.PassportNumber)
	}
	if u.Birthday != nil {
		birthday = NormalizeBirthday(*u.Birthday)
	}
	if name == "" && number == "" {
		return ErrEmptyPassport
	}
	p.Name, p.PassportNumber, p.Birthday = name, number, birthday
	p.Touch()
	return nil
}

// MarkMatched flags the passport as matched
func (p *Passport) MarkMatched() {
	p.IsMatched = true
	p.Touch()
}

// normalizeName composes Hangul jamo and collapses runs of whitespace
func normalizeName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
