package handlers

import (
	"net/http"
	"strconv"

	"paydesk/internal/domain"
	"paydesk/internal/http/middleware"
	"paydesk/internal/services"

	"github.com/gin-gonic/gin"
)

// Package-level wiring set once by the router.
var (
	Checkout  *services.CheckoutManager
	JWTSecret []byte
)

// Setup injects the shared dependencies handlers use.
func Setup(manager *services.CheckoutManager, jwtSecret []byte) {
	Checkout = manager
	JWTSecret = jwtSecret
}

// RespondError sends standard error payload with request_id included.
func RespondError(c *gin.Context, status int, message string, err error) {
	payload := gin.H{
		"message":    message,
		"request_id": middleware.GetRequestID(c),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	c.JSON(status, payload)
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil {
		RespondError(c, http.StatusBadRequest, "empty body", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid payload", err)
		return false
	}
	return true
}

// itemRefFromPath reads the (passengerId, itemType) composite key from the
// route params.
func itemRefFromPath(c *gin.Context) (domain.ItemRef, bool) {
	id, err := strconv.ParseInt(c.Param("passengerId"), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid passenger id", err)
		return domain.ItemRef{}, false
	}
	itemType := domain.ItemType(c.Param("itemType"))
	if !itemType.Valid() {
		RespondError(c, http.StatusBadRequest, "invalid item type", nil)
		return domain.ItemRef{}, false
	}
	return domain.ItemRef{PassengerID: id, Type: itemType}, true
}

// sessionFromPath resolves the checkout session for the :code route param.
func sessionFromPath(c *gin.Context) (*services.CheckoutSession, bool) {
	session, err := Checkout.Session(c.Param("code"))
	if err != nil {
		RespondDomainError(c, err)
		return nil, false
	}
	return session, true
}
