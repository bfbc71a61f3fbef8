package reconcile

// ClassifiedDocument is the structured reading of one uploaded image
type ClassifiedDocument struct {
	Receipts  []ClassifiedReceipt  `json:"receipts"`
	Passports []ClassifiedPassport `json:"passports"`
}

// ClassifiedReceipt is a receipt found on an image
type ClassifiedReceipt struct {
	ReceiptNumber  string `json:"receiptNumber"`
	PassportNumber string `json:"passportNumber,omitempty"`
}

// ClassifiedPassport is a passport found on an image
type ClassifiedPassport struct {
	Name           string `json:"name"`
	PassportNumber string `json:"passportNumber"`
	Birthday       string `json:"birthDay"`
}

// IsEmpty reports whether nothing was recognized
func (d *ClassifiedDocument) IsEmpty() bool {
	return d == nil || (len(d.Receipts) == 0 && len(d.Passports) == 0)
}
