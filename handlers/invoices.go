package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/facturio/models"
	"github.com/yourusername/facturio/services"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
	exports  *services.ExportService
}

func NewInvoiceHandler(invoices *services.InvoiceService, exports *services.ExportService) *InvoiceHandler {
	return &InvoiceHandler{
		invoices: invoices,
		exports:  exports,
	}
}

// List returns all invoices.
func (h *InvoiceHandler) List(c *gin.Context) {
	invoices, err := h.invoices.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoices"})
		return
	}

	c.JSON(http.StatusOK, invoices)
}

// Get returns one invoice; ?with_lines=true includes its line items.
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice id"})
		return
	}

	if c.Query("with_lines") == "true" {
		invoice, items, err := h.invoices.GetWithLines(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"invoice": invoice, "line_items": items})
		return
	}

	invoice, err := h.invoices.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoice":    invoice,
		"is_pending": invoice.Status == models.InvoiceStatusPending,
	})
}

// Create persists an invoice with its line items from a JSON body.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var input services.CreateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if input.UserID == 0 {
		if userID, exists := c.Get("userID"); exists {
			input.UserID = userID.(uint)
		}
	}

	invoiceID, err := h.invoices.CreateInvoiceWithLines(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"invoice_id": invoiceID,
		"message":    "Invoice and line items created",
	})
}

// Update overwrites the provided fields of an existing invoice.
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice id"})
		return
	}

	var input services.UpdateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	invoice, err := h.invoices.Update(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// Delete removes an invoice and its line items.
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice id"})
		return
	}

	deleted, err := h.invoices.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted successfully"})
}

// ExportXLSX streams the caller's invoices as an Excel workbook.
func (h *InvoiceHandler) ExportXLSX(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	data, err := h.exports.InvoicesXLSX(c.Request.Context(), userID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export invoices"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ExportPDF streams one invoice rendered as a PDF.
func (h *InvoiceHandler) ExportPDF(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice id"})
		return
	}

	data, err := h.exports.InvoicePDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="invoice.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}
