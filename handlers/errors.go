package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/facturio/ocr"
	"github.com/yourusername/facturio/services"
)

// respondError maps pipeline errors onto HTTP statuses: validation failures and
// unsupported files are the caller's fault (4xx), a missing invoice is 404,
// everything else (OCR upstream, malformed extraction, persistence) is a 500.
func respondError(c *gin.Context, err error) {
	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message})
	case errors.Is(err, ocr.ErrUnsupportedFileType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
