package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/dutyfree/reconcile/internal/infrastructure/sheetimport"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Canonical reference columns
const (
	columnReceiptNumber  = "receiptNumber"
	columnName           = "name"
	columnPayout         = "payout"
	columnPassportNumber = "passportNumber"
)

var referenceAliases = map[reconcile.Variant]sheetimport.ColumnAliases{
	reconcile.VariantLotte: {
		columnReceiptNumber: {"교환권번호", "receiptNumber", "영수증번호"},
		columnName:          {"고객명", "name", "이름"},
		columnPayout:        {"PayBack", "환급", "페이백", "수수료"},
	},
	reconcile.VariantShilla: {
		columnReceiptNumber:  {"BILL 번호", "BILL번호", "receiptNumber"},
		columnName:           {"고객명", "name"},
		columnPayout:         {"수수료", "PayBack"},
		columnPassportNumber: {"여권번호", "passportNumber"},
	},
}

// ReferenceOptions configures the reference loader
type ReferenceOptions struct {
	// ReplaceOnSchemaError drops and reloads the variant's rows when an append
	// is rejected by the table schema
	ReplaceOnSchemaError bool
	MaxRowErrors         int
}

// ReferenceLoadResult is the outcome of a sheet upload
type ReferenceLoadResult struct {
	RecordsAdded      int                    `json:"records_added"`
	DuplicatesSkipped int                    `json:"duplicates_skipped"`
	RowErrors         []sheetimport.RowError `json:"row_errors"`
	TotalRecords      int64                  `json:"total_records"`
	Replaced          bool                   `json:"replaced"`
}

// ReferenceService loads merchant sales ledgers into the reference table
type ReferenceService struct {
	txScope TransactionScope
	repos   TransactionalRepositories
	opts    ReferenceOptions
	logger  *zap.Logger
}

// NewReferenceService creates a new ReferenceService
func NewReferenceService(txScope TransactionScope, repos TransactionalRepositories, opts ReferenceOptions, logger *zap.Logger) *ReferenceService {
	if opts.MaxRowErrors <= 0 {
		opts.MaxRowErrors = 100
	}
	return &ReferenceService{
		txScope: txScope,
		repos:   repos,
		opts:    opts,
		logger:  logger,
	}
}

// LoadReferenceSheet parses a spreadsheet and appends its new rows
func (s *ReferenceService) LoadReferenceSheet(ctx context.Context, variant reconcile.Variant, filename string, r io.Reader) (*ReferenceLoadResult, error) {
	if !variant.IsValid() {
		return nil, reconcile.ErrInvalidVariant
	}
	if !sheetimport.SupportedExtension(filename) {
		return nil, reconcile.ErrUnsupportedSheet
	}

	sheet, err := sheetimport.Read(filename, r)
	if err != nil {
		return nil, sheetError(err)
	}

	columns := referenceAliases[variant].Resolve(sheet.Headers)
	if missing := sheetimport.Missing(columns, columnReceiptNumber, columnName); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", reconcile.ErrMissingColumns, strings.Join(missing, ", "))
	}

	rowErrors := sheetimport.NewErrorCollection(s.opts.MaxRowErrors)
	parsed := parseReferenceRows(variant, sheet, columns, rowErrors)
	rows := parsed.rows

	result := &ReferenceLoadResult{DuplicatesSkipped: parsed.duplicates}
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		fresh, err := s.dropExisting(ctx, repos, variant, parsed, rowErrors)
		if err != nil {
			return err
		}
		result.DuplicatesSkipped += len(rows) - len(fresh)
		result.RecordsAdded = len(fresh)
		return repos.ReferenceRepo().CreateBatch(ctx, fresh)
	})
	if err != nil {
		if !errors.Is(err, reconcile.ErrReferenceSchema) || !s.opts.ReplaceOnSchemaError {
			return nil, err
		}
		if err := s.replace(ctx, variant, rows, err, result); err != nil {
			return nil, err
		}
	}

	result.RowErrors = rowErrors.Errors()
	if result.TotalRecords, err = s.repos.ReferenceRepo().Count(ctx, variant); err != nil {
		return nil, fmt.Errorf("failed to count reference rows: %w", err)
	}

	s.logger.Info("reference sheet loaded",
		zap.String("variant", variant.String()),
		zap.String("filename", filename),
		zap.Int("records_added", result.RecordsAdded),
		zap.Int("duplicates_skipped", result.DuplicatesSkipped),
		zap.Int("row_errors", rowErrors.TotalCount()),
		zap.Bool("replaced", result.Replaced))
	return result, nil
}

// ReferenceCount returns the number of reference rows of a variant
func (s *ReferenceService) ReferenceCount(ctx context.Context, variant reconcile.Variant) (int64, error) {
	if !variant.IsValid() {
		return 0, reconcile.ErrInvalidVariant
	}
	return s.repos.ReferenceRepo().Count(ctx, variant)
}

func (s *ReferenceService) dropExisting(ctx context.Context, repos TransactionalRepositories, variant reconcile.Variant, parsed parsedReference, rowErrors *sheetimport.ErrorCollection) ([]*reconcile.ReferenceRow, error) {
	rows := parsed.rows
	numbers := make([]string, len(rows))
	for i, row := range rows {
		numbers[i] = row.ReceiptNumber
	}
	existing, err := repos.ReferenceRepo().ExistingReceiptNumbers(ctx, variant, numbers)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing receipt numbers: %w", err)
	}

	fresh := make([]*reconcile.ReferenceRow, 0, len(rows))
	for _, row := range rows {
		if existing[row.ReceiptNumber] {
			rowErrors.AddDuplicateError(parsed.lines[row.ReceiptNumber], parsed.receiptHeader, row.ReceiptNumber, true)
			continue
		}
		fresh = append(fresh, row)
	}
	return fresh, nil
}

func (s *ReferenceService) replace(ctx context.Context, variant reconcile.Variant, rows []*reconcile.ReferenceRow, cause error, result *ReferenceLoadResult) error {
	dropped, err := s.repos.ReferenceRepo().ReplaceAll(ctx, variant, rows)
	if err != nil {
		return fmt.Errorf("failed to replace reference rows: %w", err)
	}
	s.logger.Warn("reference append rejected by schema, replaced all rows of variant",
		zap.String("variant", variant.String()),
		zap.Int64("rows_dropped", dropped),
		zap.Int("rows_inserted", len(rows)),
		zap.Error(cause))

	result.Replaced = true
	result.RecordsAdded = len(rows)
	return nil
}

type parsedReference struct {
	rows          []*reconcile.ReferenceRow
	lines         map[string]int // receipt number -> sheet line
	duplicates    int
	receiptHeader string
}

// parseReferenceRows converts sheet rows into reference rows, skipping rows
// without a receipt number or name and receipt numbers repeated in the file
func parseReferenceRows(variant reconcile.Variant, sheet *sheetimport.Sheet, columns map[string]string, rowErrors *sheetimport.ErrorCollection) parsedReference {
	parsed := parsedReference{
		rows:          make([]*reconcile.ReferenceRow, 0, len(sheet.Rows)),
		lines:         make(map[string]int, len(sheet.Rows)),
		receiptHeader: columns[columnReceiptNumber],
	}

	for _, raw := range sheet.Rows {
		get := func(field string) string {
			header, ok := columns[field]
			if !ok {
				return ""
			}
			return raw.Get(header)
		}

		row := reconcile.NewReferenceRow(
			variant,
			get(columnReceiptNumber),
			get(columnName),
			parsePayout(get(columnPayout)),
			get(columnPassportNumber),
		)
		if row == nil {
			if reconcile.NormalizeReceiptNumber(variant, get(columnReceiptNumber)) == "" {
				rowErrors.AddRequiredError(raw.LineNumber, columns[columnReceiptNumber])
			} else {
				rowErrors.AddRequiredError(raw.LineNumber, columns[columnName])
			}
			continue
		}
		if _, ok := parsed.lines[row.ReceiptNumber]; ok {
			rowErrors.AddDuplicateError(raw.LineNumber, parsed.receiptHeader, row.ReceiptNumber, false)
			parsed.duplicates++
			continue
		}
		parsed.lines[row.ReceiptNumber] = raw.LineNumber
		parsed.rows = append(parsed.rows, row)
	}
	return parsed
}

// parsePayout reads an amount cell, treating empty or malformed values as zero
func parsePayout(raw string) decimal.Decimal {
	raw = strings.NewReplacer(",", "", "₩", "", "원", "", " ", "").Replace(raw)
	if raw == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func sheetError(err error) error {
	switch {
	case errors.Is(err, sheetimport.ErrUnsupportedFormat):
		return reconcile.ErrUnsupportedSheet
	case errors.Is(err, sheetimport.ErrEmptyFile),
		errors.Is(err, sheetimport.ErrInvalidEncoding),
		errors.Is(err, sheetimport.ErrMissingHeader),
		errors.Is(err, sheetimport.ErrNoWorksheet):
		return fmt.Errorf("%w: %s", reconcile.ErrInvalidSheet, err.Error())
	}
	return fmt.Errorf("failed to read sheet: %w", err)
}
