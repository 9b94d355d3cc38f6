package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/facturio/models"
	"github.com/yourusername/facturio/repository"
	"github.com/yourusername/facturio/search"
	"gorm.io/gorm"
)

// LineItemInput is one invoice line as supplied by a caller or by OCR
// extraction. The total is never accepted from input, it is recomputed.
type LineItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// CreateInvoiceInput carries everything needed to create an invoice with its
// lines. Pointer fields distinguish "absent" from an explicit zero.
type CreateInvoiceInput struct {
	UserID        uint            `json:"user_id"`
	SupplierName  string          `json:"supplier_name"`
	InvoiceNumber *string         `json:"invoice_number"`
	InvoiceDate   string          `json:"invoice_date"` // YYYY-MM-DD
	TotalAmount   *float64        `json:"total_amount"`
	TvaAmount     *float64        `json:"tva_amount"`
	TvaPercentage *float64        `json:"tva_percentage"`
	ImagePath     string          `json:"image_path"`
	LineItems     []LineItemInput `json:"line_items"`
}

// UpdateInvoiceInput lists the fields an update may overwrite. Nil fields are
// left untouched.
type UpdateInvoiceInput struct {
	SupplierName  *string  `json:"supplier_name"`
	InvoiceNumber *string  `json:"invoice_number"`
	InvoiceDate   *string  `json:"invoice_date"`
	TotalAmount   *float64 `json:"total_amount"`
	TvaAmount     *float64 `json:"tva_amount"`
	TvaPercentage *float64 `json:"tva_percentage"`
	Status        *string  `json:"status"`
}

// InvoiceService owns the invoice write path: transactional persistence of an
// invoice plus its line items, followed by best-effort search indexing.
type InvoiceService struct {
	db        *gorm.DB
	invoices  repository.InvoiceRepository
	lineItems repository.LineItemRepository
	indexer   search.Indexer
	logger    *slog.Logger
}

func NewInvoiceService(
	db *gorm.DB,
	invoices repository.InvoiceRepository,
	lineItems repository.LineItemRepository,
	indexer search.Indexer,
	logger *slog.Logger,
) *InvoiceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceService{
		db:        db,
		invoices:  invoices,
		lineItems: lineItems,
		indexer:   indexer,
		logger:    logger,
	}
}

// CreateInvoiceWithLines validates the input, writes the invoice and all line
// items in one transaction, then pushes the committed invoice to the search
// index. An indexing failure is logged and swallowed, never rolled back.
func (s *InvoiceService) CreateInvoiceWithLines(ctx context.Context, input CreateInvoiceInput) (uint, error) {
	if err := validateCreateInput(input); err != nil {
		return 0, err
	}

	invoiceDate, err := time.Parse("2006-01-02", input.InvoiceDate)
	if err != nil {
		return 0, NewValidationError("invalid invoice_date %q, expected YYYY-MM-DD", input.InvoiceDate)
	}

	// An explicitly supplied tva_amount wins, including an explicit zero.
	tvaAmount := round2(*input.TotalAmount * *input.TvaPercentage / 100)
	if input.TvaAmount != nil {
		tvaAmount = *input.TvaAmount
	}

	invoice := models.Invoice{
		UserID:        input.UserID,
		SupplierName:  input.SupplierName,
		InvoiceNumber: input.InvoiceNumber,
		InvoiceDate:   invoiceDate,
		TotalAmount:   *input.TotalAmount,
		TvaAmount:     tvaAmount,
		TvaPercentage: *input.TvaPercentage,
		Status:        models.InvoiceStatusPending,
		ImagePath:     input.ImagePath,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.invoices.WithTx(tx).Create(ctx, &invoice); err != nil {
			return err
		}
		for _, item := range input.LineItems {
			line := models.LineItem{
				InvoiceID:   invoice.ID,
				Description: item.Description,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				TotalPrice:  round2(item.Quantity * item.UnitPrice),
				Verified:    false,
			}
			if err := s.lineItems.WithTx(tx).Create(ctx, &line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, &PersistenceError{Err: err}
	}

	s.indexInvoice(ctx, &invoice, input.LineItems)

	return invoice.ID, nil
}

// GetAll returns every invoice, status upper-cased for display.
func (s *InvoiceService) GetAll(ctx context.Context) ([]models.Invoice, error) {
	invoices, err := s.invoices.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		invoices[i].Status = strings.ToUpper(invoices[i].Status)
	}
	return invoices, nil
}

// GetByUserID returns the caller's invoices, newest first.
func (s *InvoiceService) GetByUserID(ctx context.Context, userID uint) ([]models.Invoice, error) {
	return s.invoices.FindByUserID(ctx, userID)
}

func (s *InvoiceService) GetByID(ctx context.Context, id uint) (*models.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return invoice, nil
}

// GetWithLines returns an invoice together with its line items.
func (s *InvoiceService) GetWithLines(ctx context.Context, id uint) (*models.Invoice, []models.LineItem, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.lineItems.FindByInvoiceID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return invoice, items, nil
}

// Update merges the supplied fields over the stored invoice and re-saves it.
func (s *InvoiceService) Update(ctx context.Context, id uint, input UpdateInvoiceInput) (*models.Invoice, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.SupplierName != nil {
		invoice.SupplierName = *input.SupplierName
	}
	if input.InvoiceNumber != nil {
		invoice.InvoiceNumber = input.InvoiceNumber
	}
	if input.InvoiceDate != nil {
		date, err := time.Parse("2006-01-02", *input.InvoiceDate)
		if err != nil {
			return nil, NewValidationError("invalid invoice_date %q, expected YYYY-MM-DD", *input.InvoiceDate)
		}
		invoice.InvoiceDate = date
	}
	if input.TotalAmount != nil {
		invoice.TotalAmount = *input.TotalAmount
	}
	if input.TvaAmount != nil {
		invoice.TvaAmount = *input.TvaAmount
	}
	if input.TvaPercentage != nil {
		invoice.TvaPercentage = *input.TvaPercentage
	}
	if input.Status != nil {
		invoice.Status = *input.Status
	}

	if err := s.invoices.Save(ctx, invoice); err != nil {
		return nil, &PersistenceError{Err: err}
	}

	items, err := s.lineItems.FindByInvoiceID(ctx, id)
	if err == nil {
		s.indexInvoice(ctx, invoice, toLineInputs(items))
	}

	return invoice, nil
}

// Delete removes the invoice and its line items in one transaction. Returns
// false without touching the store when the id does not exist.
func (s *InvoiceService) Delete(ctx context.Context, id uint) (bool, error) {
	_, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lineItems.WithTx(tx).DeleteByInvoiceID(ctx, id); err != nil {
			return err
		}
		return s.invoices.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return false, &PersistenceError{Err: err}
	}

	if err := s.indexer.DeleteInvoice(ctx, id); err != nil {
		s.logger.Error("search.delete_failed", "invoice_id", id, "error", err)
	}

	return true, nil
}

// Search proxies a relevance query to the index. A degraded backend yields an
// empty result, never an error.
func (s *InvoiceService) Search(ctx context.Context, query string) []map[string]interface{} {
	return s.indexer.Search(ctx, query)
}

func (s *InvoiceService) indexInvoice(ctx context.Context, invoice *models.Invoice, items []LineItemInput) {
	descriptions := make([]string, 0, len(items))
	for _, item := range items {
		descriptions = append(descriptions, item.Description)
	}
	if err := s.indexer.IndexInvoice(ctx, invoice, strings.Join(descriptions, " ")); err != nil {
		s.logger.Error("search.index_failed", "invoice_id", invoice.ID, "error", err)
	}
}

func validateCreateInput(input CreateInvoiceInput) error {
	switch {
	case input.UserID == 0:
		return NewValidationError("missing required field: user_id")
	case input.SupplierName == "":
		return NewValidationError("missing required field: supplier_name")
	case input.InvoiceDate == "":
		return NewValidationError("missing required field: invoice_date")
	case input.TotalAmount == nil:
		return NewValidationError("missing required field: total_amount")
	case input.TvaPercentage == nil:
		return NewValidationError("missing required field: tva_percentage")
	case input.LineItems == nil:
		return NewValidationError("missing required field: line_items")
	}
	return nil
}

func toLineInputs(items []models.LineItem) []LineItemInput {
	inputs := make([]LineItemInput, len(items))
	for i, item := range items {
		inputs[i] = LineItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	return inputs
}

// round2 rounds a money amount to 2 decimals without float drift.
func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
