package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const extractionPrompt = `Tu es un assistant spécialisé dans l'extraction de données de factures.

Analyse cette image/document et extrais les informations suivantes au format JSON strict :

{
    "supplier_name": "Nom du fournisseur",
    "invoice_number": "Numéro de facture",
    "invoice_date": "YYYY-MM-DD",
    "total_amount": 0.00,
    "tva_amount": 0.00,
    "tva_percentage": 0.00,
    "line_items": [
        {
            "description": "Description du produit/service",
            "quantity": 1,
            "unit_price": 0.00
        }
    ]
}

Règles importantes :
- Retourne UNIQUEMENT le JSON, sans texte avant ou après
- Les montants doivent être des nombres décimaux (pas de symboles €)
- La date doit être au format YYYY-MM-DD
- Si une information n'est pas trouvée, utilise null
- tva_percentage est le taux de TVA (ex: 20 pour 20%)
- Extrais toutes les lignes de la facture dans line_items`

// extractionSchema constrains the model reply: every field nullable, line items
// limited to the three keys the pipeline understands.
const extractionSchema = `{
	"type": "object",
	"properties": {
		"supplier_name":  {"type": ["string", "null"]},
		"invoice_number": {"type": ["string", "null"]},
		"invoice_date":   {"type": ["string", "null"]},
		"total_amount":   {"type": ["number", "null"]},
		"tva_amount":     {"type": ["number", "null"]},
		"tva_percentage": {"type": ["number", "null"]},
		"line_items": {
			"type": ["array", "null"],
			"items": {
				"type": "object",
				"properties": {
					"description": {"type": ["string", "null"]},
					"quantity":    {"type": ["number", "null"]},
					"unit_price":  {"type": ["number", "null"]}
				}
			}
		}
	}
}`

var mimeByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Client extracts invoice data through a vision-capable LLM messages endpoint.
type Client struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
	schema     *jsonschema.Schema
	logger     *slog.Logger
}

func NewClient(apiURL, apiKey, model string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiURL:     apiURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		schema:     jsonschema.MustCompileString("extracted_invoice.json", extractionSchema),
		logger:     logger,
	}
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string       `json:"role"`
	Content []apiContent `json:"content"`
}

type apiContent struct {
	Type   string     `json:"type"`
	Source *apiSource `json:"source,omitempty"`
	Text   string     `json:"text,omitempty"`
}

type apiSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type apiResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// ExtractInvoice reads the stored file, sends it to the vision API and parses the
// reply into ExtractedData. A single attempt: any failure surfaces to the caller.
func (c *Client) ExtractInvoice(ctx context.Context, filePath string) (*ExtractedData, error) {
	mediaType, ok := mimeByExtension[strings.ToLower(filepath.Ext(filePath))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(filePath))
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	attachmentType := "image"
	if mediaType == "application/pdf" {
		attachmentType = "document"
	}

	payload := apiRequest{
		Model:     c.model,
		MaxTokens: 4096,
		Messages: []apiMessage{
			{
				Role: "user",
				Content: []apiContent{
					{
						Type: attachmentType,
						Source: &apiSource{
							Type:      "base64",
							MediaType: mediaType,
							Data:      base64.StdEncoding.EncodeToString(content),
						},
					},
					{Type: "text", Text: extractionPrompt},
				},
			},
		},
	}

	text, err := c.call(ctx, payload)
	if err != nil {
		return nil, err
	}

	return c.parseReply(text)
}

func (c *Client) call(ctx context.Context, payload apiRequest) (string, error) {
	reqID := uuid.New().String()
	start := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	c.logger.Info("ocr.request", "req_id", reqID, "model", c.model, "content_length", len(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ocr.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	c.logger.Info("ocr.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Content) == 0 {
		return "", &MalformedExtractionError{RawText: string(raw), Err: fmt.Errorf("unexpected api response shape")}
	}

	return parsed.Content[0].Text, nil
}

// parseReply strips a fenced code block if present, validates the JSON against
// the extraction schema and decodes it.
func (c *Client) parseReply(text string) (*ExtractedData, error) {
	text = strings.TrimSpace(text)
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var generic interface{}
	if err := json.Unmarshal([]byte(text), &generic); err != nil {
		return nil, &MalformedExtractionError{RawText: text, Err: err}
	}
	if err := c.schema.Validate(generic); err != nil {
		return nil, &MalformedExtractionError{RawText: text, Err: err}
	}

	var data ExtractedData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, &MalformedExtractionError{RawText: text, Err: err}
	}
	return &data, nil
}
