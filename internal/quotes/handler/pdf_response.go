package handler

import (
	"fmt"
	"net/http"

	"medcrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const contentTypePDF = "application/pdf"

// DownloadPDF handles GET /api/v1/quotes/:id/pdf
// The PDF is rendered on first request and reused until the quote changes.
func (h *Handler) DownloadPDF(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	pdf, err := h.svc.GenerateQuotePDF(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	servePDFBytes(c, pdf.FileName, pdf.Data, c.Query("inline") == "true")
}

func servePDFBytes(c *gin.Context, fileName string, pdfBytes []byte, inline bool) {
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, fileName))
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, contentTypePDF, pdfBytes)
}
