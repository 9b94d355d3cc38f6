package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/facturio/repository"
	"gorm.io/gorm"
)

// ExportService renders a user's invoices as XLSX workbooks and single
// invoices as PDF documents.
type ExportService struct {
	invoices  repository.InvoiceRepository
	lineItems repository.LineItemRepository
	logger    *slog.Logger
}

func NewExportService(invoices repository.InvoiceRepository, lineItems repository.LineItemRepository, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportService{invoices: invoices, lineItems: lineItems, logger: logger}
}

// InvoicesXLSX returns an XLSX workbook (as bytes) listing the user's invoices.
func (s *ExportService) InvoicesXLSX(ctx context.Context, userID uint) ([]byte, error) {
	start := time.Now()

	invoices, err := s.invoices.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Invoices"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"Invoice Date",
		"Supplier",
		"Invoice Number",
		"Total Amount",
		"TVA Amount",
		"TVA %",
		"Status",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for row, inv := range invoices {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, inv.InvoiceDate.Format("2006-01-02"))
		write(2, inv.SupplierName)
		if inv.InvoiceNumber != nil {
			write(3, *inv.InvoiceNumber)
		}
		write(4, inv.TotalAmount)
		write(5, inv.TvaAmount)
		write(6, inv.TvaPercentage)
		write(7, inv.Status)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.xlsx", "user_id", userID, "invoices", len(invoices), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

// InvoicePDF renders one invoice with its line items as a PDF document.
func (s *ExportService) InvoicePDF(ctx context.Context, id uint) ([]byte, error) {
	invoice, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	items, err := s.lineItems.FindByInvoiceID(ctx, id)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Facture - "+invoice.SupplierName)
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	if invoice.InvoiceNumber != nil {
		pdf.Cell(0, 7, "Invoice Number: "+*invoice.InvoiceNumber)
		pdf.Ln(7)
	}
	pdf.Cell(0, 7, "Date: "+invoice.InvoiceDate.Format("2006-01-02"))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Status: "+invoice.Status)
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(90, 8, "Description", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Unit Price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Total", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, item := range items {
		pdf.CellFormat(90, 8, item.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%.2f", item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, fmt.Sprintf("%.2f", item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, fmt.Sprintf("%.2f", item.TotalPrice), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, fmt.Sprintf("TVA (%.2f%%): %.2f", invoice.TvaPercentage, invoice.TvaAmount))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Total: %.2f", invoice.TotalAmount))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
