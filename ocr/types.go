package ocr

import "context"

// ExtractedLineItem is one invoice line as reported by the vision model.
type ExtractedLineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// ExtractedData is the structured payload extracted from an uploaded document.
// Every field is optional: the model returns null for anything it cannot read,
// so callers must default before use.
type ExtractedData struct {
	SupplierName  *string             `json:"supplier_name"`
	InvoiceNumber *string             `json:"invoice_number"`
	InvoiceDate   *string             `json:"invoice_date"` // YYYY-MM-DD
	TotalAmount   *float64            `json:"total_amount"`
	TvaAmount     *float64            `json:"tva_amount"`
	TvaPercentage *float64            `json:"tva_percentage"`
	LineItems     []ExtractedLineItem `json:"line_items"`
}

// Extractor is the interface handlers and services depend on, so tests can
// substitute a fake returning canned data.
type Extractor interface {
	ExtractInvoice(ctx context.Context, filePath string) (*ExtractedData, error)
}
