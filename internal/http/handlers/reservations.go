package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/reservations/:code
func GetReservation(c *gin.Context) {
	res, err := Checkout.Store.GetByCode(c.Param("code"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
