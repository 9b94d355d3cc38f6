package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/facturio/services"
)

type SearchHandler struct {
	invoices *services.InvoiceService
}

func NewSearchHandler(invoices *services.InvoiceService) *SearchHandler {
	return &SearchHandler{invoices: invoices}
}

// Search runs a relevance query against the invoice index. A degraded search
// backend yields an empty list, never an error page.
func (h *SearchHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query parameter q"})
		return
	}

	c.JSON(http.StatusOK, h.invoices.Search(c.Request.Context(), q))
}
