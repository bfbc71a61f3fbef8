package reconcile

import "github.com/dutyfree/reconcile/internal/domain/shared"

var (
	ErrReceiptNotFound      = shared.NewDomainError(shared.CodeNotFound, "Receipt not found")
	ErrPassportNotFound     = shared.NewDomainError(shared.CodeNotFound, "Passport not found")
	ErrArchiveNotFound      = shared.NewDomainError(shared.CodeNotFound, "Archive not found")
	ErrNothingToGenerate    = shared.NewDomainError(shared.CodeNotFound, "No matched customers to generate payout documents for")
	ErrEmptyReceiptNumber   = shared.NewDomainError(shared.CodeInvalidInput, "Receipt number cannot be empty")
	ErrEmptyUpdate          = shared.NewDomainError(shared.CodeInvalidInput, "Update contains no fields")
	ErrPassportNotSupported = shared.NewDomainError(shared.CodeInvalidInput, "Lotte receipts do not carry a passport number")
	ErrEmptyPassport        = shared.NewDomainError(shared.CodeInvalidInput, "Passport requires a name or a passport number")
	ErrEmptySession         = shared.NewDomainError(shared.CodeInvalidInput, "There are no receipts to complete")
	ErrInvalidSearchType    = shared.NewDomainError(shared.CodeInvalidInput, "search_type must be one of: all, customer, passport, receipt")
	ErrMissingColumns       = shared.NewDomainError(shared.CodeInvalidInput, "Spreadsheet is missing required columns")
	ErrUnsupportedSheet     = shared.NewDomainError(shared.CodeInvalidInput, "Only .xlsx, .xls and .csv files are supported")
	ErrInvalidSheet         = shared.NewDomainError(shared.CodeInvalidInput, "Spreadsheet could not be read")
	ErrNoImages             = shared.NewDomainError(shared.CodeInvalidInput, "Archive contains no images")
	ErrInvalidArchive       = shared.NewDomainError(shared.CodeInvalidInput, "Upload is not a valid zip archive")

	// ErrReferenceSchema is returned when the reference table does not accept the row shape
	ErrReferenceSchema = shared.NewDomainError(shared.CodeSchemaMismatch, "Reference table schema does not match")
)
