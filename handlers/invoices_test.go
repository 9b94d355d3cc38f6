package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/facturio/models"
	"github.com/yourusername/facturio/repository"
	"github.com/yourusername/facturio/services"
	"gorm.io/gorm"
)

func newInvoiceRouter(t *testing.T, db *gorm.DB, indexer *fakeIndexer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	invoiceRepo := repository.NewInvoiceRepository(db)
	lineItemRepo := repository.NewLineItemRepository(db)
	invoiceService := services.NewInvoiceService(db, invoiceRepo, lineItemRepo, indexer, nil)
	exportService := services.NewExportService(invoiceRepo, lineItemRepo, nil)
	handler := NewInvoiceHandler(invoiceService, exportService)
	searchHandler := NewSearchHandler(invoiceService)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", uint(1))
		c.Next()
	})
	router.GET("/invoices", handler.List)
	router.GET("/invoices/export", handler.ExportXLSX)
	router.GET("/invoices/:id", handler.Get)
	router.GET("/invoices/:id/pdf", handler.ExportPDF)
	router.POST("/invoices", handler.Create)
	router.PUT("/invoices/:id", handler.Update)
	router.DELETE("/invoices/:id", handler.Delete)
	router.GET("/search", searchHandler.Search)
	return router
}

func createInvoiceJSON() []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"user_id":        1,
		"supplier_name":  "ACME",
		"invoice_number": "F-2024-001",
		"invoice_date":   "2024-03-15",
		"total_amount":   100,
		"tva_percentage": 20,
		"line_items": []map[string]interface{}{
			{"description": "Service A", "quantity": 1, "unit_price": 100},
		},
	})
	return body
}

func createTestInvoice(t *testing.T, router *gin.Engine) uint {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/invoices", bytes.NewReader(createInvoiceJSON()))
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		InvoiceID uint `json:"invoice_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotZero(t, resp.InvoiceID)
	return resp.InvoiceID
}

func TestInvoiceCRUD(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		router := newInvoiceRouter(t, db, &fakeIndexer{})

		id := createTestInvoice(t, router)

		var invoice models.Invoice
		require.NoError(t, db.First(&invoice, id).Error)
		assert.Equal(t, "pending", invoice.Status)
		assert.Equal(t, 20.0, invoice.TvaAmount)
	})

	t.Run("Create With Missing Field", func(t *testing.T) {
		db := setupTestDB(t)
		router := newInvoiceRouter(t, db, &fakeIndexer{})

		body, _ := json.Marshal(map[string]interface{}{
			"user_id":       1,
			"supplier_name": "ACME",
		})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/invoices", bytes.NewReader(body))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invoice_date")
	})

	t.Run("List Uppercases Status", func(t *testing.T) {
		db := setupTestDB(t)
		router := newInvoiceRouter(t, db, &fakeIndexer{})
		createTestInvoice(t, router)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/invoices", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "PENDING")
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		router := newInvoiceRouter(t, db, &fakeIndexer{})
		id := createTestInvoice(t, router)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/invoices/"+itoa(id), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"is_pending":true`)
	})

	t.Run("Get With Lines", func(t *testing.T) {
		db := setupTestDB(t)
		router := newInvoiceRouter(t, db, &fakeIndexer{})
		id := createTestInvoice(t, router)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/invoices/"+itoa(id)+"?with_lines=true", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Service A")
	})

	t.Run("Get Not Found", func(t *testing.T) {
		db := setupTestDB(t)
		router := newInvoiceRouter(t, db, &fakeIndexer{})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/invoices/9999", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		router := newInvoiceRouter(t, db, &fakeIndexer{})
		id := createTestInvoice(t, router)

		body, _ := json.Marshal(map[string]interface{}{"supplier_name": "ACME SARL"})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPut, "/invoices/"+itoa(id), bytes.NewReader(body))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ACME SARL")
	})

	t.Run("Update Not Found", func(t *testing.T) {
		db := setupTestDB(t)
		router := newInvoiceRouter(t, db, &fakeIndexer{})

		body, _ := json.Marshal(map[string]interface{}{"supplier_name": "X"})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPut, "/invoices/9999", bytes.NewReader(body))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		router := newInvoiceRouter(t, db, &fakeIndexer{})
		id := createTestInvoice(t, router)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodDelete, "/invoices/"+itoa(id), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var count int64
		db.Model(&models.Invoice{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("Delete Not Found", func(t *testing.T) {
		db := setupTestDB(t)
		router := newInvoiceRouter(t, db, &fakeIndexer{})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodDelete, "/invoices/9999", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestExports(t *testing.T) {
	t.Run("XLSX", func(t *testing.T) {
		db := setupTestDB(t)
		router := newInvoiceRouter(t, db, &fakeIndexer{})
		createTestInvoice(t, router)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/invoices/export", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
		assert.NotZero(t, w.Body.Len())
	})

	t.Run("PDF", func(t *testing.T) {
		db := setupTestDB(t)
		router := newInvoiceRouter(t, db, &fakeIndexer{})
		id := createTestInvoice(t, router)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/invoices/"+itoa(id)+"/pdf", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
	})

	t.Run("PDF Not Found", func(t *testing.T) {
		db := setupTestDB(t)
		router := newInvoiceRouter(t, db, &fakeIndexer{})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/invoices/9999/pdf", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSearchEndpoint(t *testing.T) {
	t.Run("Missing Query", func(t *testing.T) {
		db := setupTestDB(t)
		router := newInvoiceRouter(t, db, &fakeIndexer{})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/search", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Returns Index Docs", func(t *testing.T) {
		db := setupTestDB(t)
		indexer := &fakeIndexer{docs: []map[string]interface{}{
			{"id": "1", "supplier_name": "ACME"},
		}}
		router := newInvoiceRouter(t, db, indexer)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/search?q=acme", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ACME")
	})
}

func itoa(id uint) string {
	return strconv.Itoa(int(id))
}
