package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/facturio/models"
)

// Document is the denormalized shape stored in the search index.
type Document struct {
	ID            string  `json:"id"`
	InvoiceNumber string  `json:"invoice_number"`
	SupplierName  string  `json:"supplier_name"`
	Status        string  `json:"status"`
	InvoiceDate   string  `json:"invoice_date"`
	TotalAmount   float64 `json:"total_amount"`
	LineItemsText string  `json:"line_items_text"`
}

// Indexer abstracts the search backend so services and tests can substitute a
// fake. Index and delete failures are for the caller to log and swallow; they
// must never roll back a committed invoice write.
type Indexer interface {
	IndexInvoice(ctx context.Context, invoice *models.Invoice, lineItemsText string) error
	DeleteInvoice(ctx context.Context, id uint) error
	Search(ctx context.Context, query string) []map[string]interface{}
}

// SolrClient talks to a Solr core over its JSON update/select API.
type SolrClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewSolrClient(endpoint string, timeout time.Duration, logger *slog.Logger) *SolrClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &SolrClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// IndexInvoice pushes an add+commit for the invoice document.
func (s *SolrClient) IndexInvoice(ctx context.Context, invoice *models.Invoice, lineItemsText string) error {
	invoiceNumber := ""
	if invoice.InvoiceNumber != nil {
		invoiceNumber = *invoice.InvoiceNumber
	}

	payload := map[string]interface{}{
		"add": map[string]interface{}{
			"doc": Document{
				ID:            strconv.FormatUint(uint64(invoice.ID), 10),
				InvoiceNumber: invoiceNumber,
				SupplierName:  invoice.SupplierName,
				Status:        invoice.Status,
				InvoiceDate:   invoice.InvoiceDate.Format("2006-01-02"),
				TotalAmount:   invoice.TotalAmount,
				LineItemsText: lineItemsText,
			},
		},
	}

	return s.update(ctx, payload)
}

// DeleteInvoice issues a delete-by-id.
func (s *SolrClient) DeleteInvoice(ctx context.Context, id uint) error {
	payload := map[string]interface{}{
		"delete": map[string]interface{}{
			"id": strconv.FormatUint(uint64(id), 10),
		},
	}

	return s.update(ctx, payload)
}

// Search runs a relevance-ranked query boosting supplier name and invoice
// number. Failures are logged and an empty result is returned so a degraded
// search backend never breaks the caller's page.
func (s *SolrClient) Search(ctx context.Context, query string) []map[string]interface{} {
	params := url.Values{}
	params.Set("q", query)
	params.Set("defType", "edismax")
	params.Set("qf", "supplier_name^2 invoice_number^2 line_items_text status")
	params.Set("wt", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/select?"+params.Encode(), nil)
	if err != nil {
		s.logger.Error("solr.search.build_request_error", "error", err)
		return []map[string]interface{}{}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("solr.search.send_error", "error", err)
		return []map[string]interface{}{}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		s.logger.Error("solr.search.bad_status", "status", resp.StatusCode, "body", string(raw))
		return []map[string]interface{}{}
	}

	var parsed struct {
		Response struct {
			Docs []map[string]interface{} `json:"docs"`
		} `json:"response"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		s.logger.Error("solr.search.decode_error", "error", err)
		return []map[string]interface{}{}
	}
	if parsed.Response.Docs == nil {
		return []map[string]interface{}{}
	}
	return parsed.Response.Docs
}

func (s *SolrClient) update(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode solr payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/update?commit=true", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build solr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("solr update failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("solr update failed (HTTP %d): %s", resp.StatusCode, string(raw))
	}
	return nil
}
