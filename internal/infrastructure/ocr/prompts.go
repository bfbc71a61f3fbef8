package ocr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	domain "github.com/dutyfree/reconcile/internal/domain/reconcile"
)

const lottePrompt = `Convert the LOTTE duty-free receipt OCR text into the JSON format below.
Include only the listed keys.

- "receiptNumber": exactly 14 digits
- Extract every receipt and every passport found in the text

Output format:
{
  "receipts": [
    {"receiptNumber": "90208724000593"}
  ],
  "passports": [
    {"name": "ZHANG SAN", "passportNumber": "AS1234567", "birthDay": "09 Jun 1994"}
  ]
}`

const shillaPrompt = `Convert the SHILLA duty-free receipt OCR text into the JSON format below.
Include only the listed keys.

- "receiptNumber": exactly 13 digits
- "passportNumber": include it on the receipt when the receipt shows one
- Extract every receipt and every passport found in the text

Output format:
{
  "receipts": [
    {"receiptNumber": "0124507700631", "passportNumber": "MZ9268755"}
  ],
  "passports": [
    {"name": "ZHANG SAN", "passportNumber": "AS1234567", "birthDay": "09 Jun 1994"}
  ]
}`

// Prompts holds the system prompt per variant.
type Prompts map[domain.Variant]string

// LoadPrompts reads prompt files, keeping the built-in prompt for any
// variant whose path is empty or missing.
func LoadPrompts(lottePath, shillaPath string) (Prompts, error) {
	p := Prompts{
		domain.VariantLotte:  lottePrompt,
		domain.VariantShilla: shillaPrompt,
	}
	for variant, path := range map[domain.Variant]string{
		domain.VariantLotte:  lottePath,
		domain.VariantShilla: shillaPath,
	} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s prompt: %w", variant, err)
		}
		p[variant] = string(data)
	}
	return p, nil
}
