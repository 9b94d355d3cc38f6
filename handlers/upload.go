package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/facturio/ocr"
	"github.com/yourusername/facturio/services"
)

// UploadHandler chains intake, OCR extraction and invoice creation for the
// upload endpoints.
type UploadHandler struct {
	documents *services.DocumentService
	extractor ocr.Extractor
	invoices  *services.InvoiceService
}

func NewUploadHandler(documents *services.DocumentService, extractor ocr.Extractor, invoices *services.InvoiceService) *UploadHandler {
	return &UploadHandler{
		documents: documents,
		extractor: extractor,
		invoices:  invoices,
	}
}

// Upload runs the full pipeline: store the document, extract invoice data,
// create the invoice with its lines, index it. Returns the new invoice id plus
// the raw extracted data so the user can confirm it.
func (h *UploadHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `No file sent, use the "document" field`})
		return
	}

	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	filePath, err := h.documents.Save(file)
	if err != nil {
		respondError(c, err)
		return
	}

	extracted, err := h.extractor.ExtractInvoice(c.Request.Context(), filePath)
	if err != nil {
		respondError(c, err)
		return
	}

	input := buildCreateInput(userID.(uint), filePath, extracted)
	invoiceID, err := h.invoices.CreateInvoiceWithLines(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"message":        "Document analyzed and invoice created",
		"invoice_id":     invoiceID,
		"extracted_data": extracted,
		"file_path":      filePath,
	})
}

// Analyze stores the document and returns the extracted data without creating
// an invoice, so the user can preview the OCR output first.
func (h *UploadHandler) Analyze(c *gin.Context) {
	file, err := c.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `No file sent, use the "document" field`})
		return
	}

	filePath, err := h.documents.Save(file)
	if err != nil {
		respondError(c, err)
		return
	}

	extracted, err := h.extractor.ExtractInvoice(c.Request.Context(), filePath)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Document analyzed",
		"extracted_data": extracted,
		"file_path":      filePath,
	})
}

// buildCreateInput defensively defaults the untrusted extraction payload.
func buildCreateInput(userID uint, filePath string, extracted *ocr.ExtractedData) services.CreateInvoiceInput {
	supplierName := "Non identifié"
	if extracted.SupplierName != nil && *extracted.SupplierName != "" {
		supplierName = *extracted.SupplierName
	}

	invoiceDate := time.Now().Format("2006-01-02")
	if extracted.InvoiceDate != nil && *extracted.InvoiceDate != "" {
		invoiceDate = *extracted.InvoiceDate
	}

	totalAmount := float64(0)
	if extracted.TotalAmount != nil {
		totalAmount = *extracted.TotalAmount
	}
	tvaPercentage := float64(0)
	if extracted.TvaPercentage != nil {
		tvaPercentage = *extracted.TvaPercentage
	}

	lineItems := make([]services.LineItemInput, 0, len(extracted.LineItems))
	for _, item := range extracted.LineItems {
		lineItems = append(lineItems, services.LineItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	return services.CreateInvoiceInput{
		UserID:        userID,
		SupplierName:  supplierName,
		InvoiceNumber: extracted.InvoiceNumber,
		InvoiceDate:   invoiceDate,
		TotalAmount:   &totalAmount,
		// Left nil when the model did not report a TVA amount so the service
		// derives it from the percentage.
		TvaAmount:     extracted.TvaAmount,
		TvaPercentage: &tvaPercentage,
		ImagePath:     filePath,
		LineItems:     lineItems,
	}
}
