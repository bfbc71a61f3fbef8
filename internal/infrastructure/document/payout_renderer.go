// Package document renders payout receipts from the xlsx template.
package document

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dutyfree/reconcile/internal/application/reconcile"
	domain "github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Template cells
const (
	cellName     = "D7"
	cellPassport = "D8"
	cellBirthday = "D9"
	cellPayout   = "D10"
	cellIssued   = "B16"
)

// ExcelRenderer fills one workbook per customer.
type ExcelRenderer struct {
	template []byte
	logger   *zap.Logger
}

// NewExcelRenderer loads the template once. A missing template falls back
// to a plain generated sheet with the same cell layout.
func NewExcelRenderer(templatePath string, logger *zap.Logger) (*ExcelRenderer, error) {
	r := &ExcelRenderer{logger: logger}
	if templatePath == "" {
		return r, nil
	}
	data, err := os.ReadFile(templatePath)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Payout template not found, using generated layout", zap.String("path", templatePath))
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payout template: %w", err)
	}
	r.template = data
	return r, nil
}

// Render fills the template for one identity.
func (r *ExcelRenderer) Render(identity domain.PayoutIdentity, issued time.Time) (domain.PayoutDocument, error) {
	f, err := r.open()
	if err != nil {
		return domain.PayoutDocument{}, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	values := []struct {
		cell  string
		value any
	}{
		{cellName, identity.Name},
		{cellPassport, identity.PassportNumber},
		{cellBirthday, identity.Birthday},
		{cellPayout, identity.Payout.InexactFloat64()},
		{cellIssued, IssuedDate(issued)},
	}
	for _, v := range values {
		if err := f.SetCellValue(sheet, v.cell, v.value); err != nil {
			return domain.PayoutDocument{}, fmt.Errorf("set %s: %w", v.cell, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return domain.PayoutDocument{}, err
	}
	return domain.PayoutDocument{
		FileName: FileName(identity.Name),
		Data:     buf.Bytes(),
	}, nil
}

func (r *ExcelRenderer) open() (*excelize.File, error) {
	if r.template != nil {
		f, err := excelize.OpenReader(bytes.NewReader(r.template))
		if err != nil {
			return nil, fmt.Errorf("failed to open payout template: %w", err)
		}
		return f, nil
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	labels := map[string]string{
		"B2":  "영수증",
		"C7":  "성명",
		"C8":  "여권번호",
		"C9":  "생년월일",
		"C10": "금액",
	}
	for cell, label := range labels {
		if err := f.SetCellValue(sheet, cell, label); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Bundle zips the documents. Repeated file names get a numeric suffix.
func (r *ExcelRenderer) Bundle(docs []domain.PayoutDocument) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	seen := make(map[string]int, len(docs))
	for _, doc := range docs {
		name := doc.FileName
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%s (%d).xlsx", strings.TrimSuffix(name, ".xlsx"), n+1)
		}
		seen[doc.FileName]++

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: time.Now(),
			Flags:    0x800, // UTF-8 names
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(doc.Data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IssuedDate formats the receipt issue date the way the paper form expects.
func IssuedDate(t time.Time) string {
	return fmt.Sprintf("%04d년    %02d월    %02d일", t.Year(), int(t.Month()), t.Day())
}

// FileName builds `<name>_수령증.xlsx` with path separators removed.
func FileName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(name)
	if name == "" {
		name = "unknown"
	}
	return name + "_수령증.xlsx"
}

var _ reconcile.PayoutRenderer = (*ExcelRenderer)(nil)
