package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func apiReply(text string) string {
	reply, _ := json.Marshal(map[string]interface{}{
		"content": []map[string]string{{"type": "text", "text": text}},
	})
	return string(reply)
}

const extractedJSON = `{
	"supplier_name": "ACME",
	"invoice_number": "F-2024-001",
	"invoice_date": "2024-03-15",
	"total_amount": 100,
	"tva_amount": null,
	"tva_percentage": 20,
	"line_items": [
		{"description": "Service A", "quantity": 1, "unit_price": 100}
	]
}`

func TestExtractInvoice(t *testing.T) {
	t.Run("Parses Fenced Reply", func(t *testing.T) {
		var gotBody map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

			w.Write([]byte(apiReply("Voici les données extraites :\n```json\n" + extractedJSON + "\n```\nBonne journée !")))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-key", "test-model", 5*time.Second, nil)
		data, err := client.ExtractInvoice(context.Background(), writeTempFile(t, "facture.png", []byte("png bytes")))
		require.NoError(t, err)

		require.NotNil(t, data.SupplierName)
		assert.Equal(t, "ACME", *data.SupplierName)
		require.NotNil(t, data.TotalAmount)
		assert.Equal(t, 100.0, *data.TotalAmount)
		assert.Nil(t, data.TvaAmount)
		require.Len(t, data.LineItems, 1)
		assert.Equal(t, "Service A", data.LineItems[0].Description)
		assert.Equal(t, 1.0, data.LineItems[0].Quantity)
		assert.Equal(t, 100.0, data.LineItems[0].UnitPrice)

		assert.Equal(t, "test-model", gotBody["model"])
	})

	t.Run("Parses Bare JSON Reply", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(apiReply(extractedJSON)))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-key", "test-model", 5*time.Second, nil)
		data, err := client.ExtractInvoice(context.Background(), writeTempFile(t, "facture.jpg", []byte("jpg bytes")))
		require.NoError(t, err)
		require.NotNil(t, data.InvoiceNumber)
		assert.Equal(t, "F-2024-001", *data.InvoiceNumber)
	})

	t.Run("PDF Sent As Document", func(t *testing.T) {
		var gotBody struct {
			Messages []struct {
				Content []struct {
					Type   string `json:"type"`
					Source *struct {
						MediaType string `json:"media_type"`
					} `json:"source"`
				} `json:"content"`
			} `json:"messages"`
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(apiReply(extractedJSON)))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-key", "test-model", 5*time.Second, nil)
		_, err := client.ExtractInvoice(context.Background(), writeTempFile(t, "facture.pdf", []byte("%PDF-1.4")))
		require.NoError(t, err)

		require.Len(t, gotBody.Messages, 1)
		assert.Equal(t, "document", gotBody.Messages[0].Content[0].Type)
		assert.Equal(t, "application/pdf", gotBody.Messages[0].Content[0].Source.MediaType)
	})

	t.Run("Unsupported Extension", func(t *testing.T) {
		client := NewClient("http://unused", "test-key", "test-model", 5*time.Second, nil)
		_, err := client.ExtractInvoice(context.Background(), "notes.txt")
		assert.ErrorIs(t, err, ErrUnsupportedFileType)
	})

	t.Run("Upstream Non-200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": "rate limited"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-key", "test-model", 5*time.Second, nil)
		_, err := client.ExtractInvoice(context.Background(), writeTempFile(t, "facture.png", []byte("png")))

		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
		assert.Contains(t, upstream.Body, "rate limited")
	})

	t.Run("Non-JSON Reply", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(apiReply("Je ne peux pas lire ce document.")))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-key", "test-model", 5*time.Second, nil)
		_, err := client.ExtractInvoice(context.Background(), writeTempFile(t, "facture.png", []byte("png")))

		var malformed *MalformedExtractionError
		require.ErrorAs(t, err, &malformed)
		assert.Contains(t, malformed.RawText, "Je ne peux pas lire")
	})

	t.Run("Schema Violation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(apiReply(`{"supplier_name": 12345}`)))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-key", "test-model", 5*time.Second, nil)
		_, err := client.ExtractInvoice(context.Background(), writeTempFile(t, "facture.png", []byte("png")))

		var malformed *MalformedExtractionError
		assert.ErrorAs(t, err, &malformed)
	})
}
