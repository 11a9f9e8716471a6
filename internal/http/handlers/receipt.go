package handlers

import (
	"net/http"

	"paydesk/internal/http/middleware"
	"paydesk/internal/services"

	"github.com/gin-gonic/gin"
)

// GET /api/checkout/:code/receipt
func GetReceiptPDF(c *gin.Context) {
	svc := services.ReceiptService{
		Manager:   Checkout,
		RequestID: middleware.GetRequestID(c),
	}
	pdf, filename, err := svc.GenerateReceipt(c.Param("code"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
