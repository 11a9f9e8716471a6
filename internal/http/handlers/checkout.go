package handlers

import (
	"net/http"

	"paydesk/internal/domain"
	"paydesk/internal/domain/models"
	"paydesk/internal/http/middleware"
	"paydesk/internal/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/checkout/:code/summary
func GetCheckoutSummary(c *gin.Context) {
	session, ok := sessionFromPath(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":  session.Code,
		"items": session.Summary(),
	})
}

// POST /api/checkout/:code/items/:passengerId/:itemType/select
func SelectItem(c *gin.Context) {
	session, ok := sessionFromPath(c)
	if !ok {
		return
	}
	ref, ok := itemRefFromPath(c)
	if !ok {
		return
	}
	if err := session.SelectItem(ref); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": ref})
}

// DELETE /api/checkout/:code/items/:passengerId/:itemType/select
func DeselectItem(c *gin.Context) {
	session, ok := sessionFromPath(c)
	if !ok {
		return
	}
	ref, ok := itemRefFromPath(c)
	if !ok {
		return
	}
	session.DeselectItem(ref)
	c.JSON(http.StatusOK, gin.H{"deselected": ref})
}

type addInstrumentRequest struct {
	Kind models.InstrumentKind `json:"kind"`
}

// POST /api/checkout/:code/items/:passengerId/:itemType/instruments
func AddInstrument(c *gin.Context) {
	session, ok := sessionFromPath(c)
	if !ok {
		return
	}
	ref, ok := itemRefFromPath(c)
	if !ok {
		return
	}
	var req addInstrumentRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	slot, added := session.AddInstrument(ref, req.Kind)
	if !added {
		// limit violation or unselected item: state unchanged
		c.JSON(http.StatusOK, gin.H{"added": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": true, "slot": slot})
}

type editFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// PUT /api/checkout/:code/items/:passengerId/:itemType/instruments/:slotId/field
func EditInstrumentField(c *gin.Context) {
	session, ok := sessionFromPath(c)
	if !ok {
		return
	}
	ref, ok := itemRefFromPath(c)
	if !ok {
		return
	}
	var req editFieldRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	if err := session.EditField(ref, c.Param("slotId"), req.Field, req.Value); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

type editAmountRequest struct {
	Amount string `json:"amount"`
}

// PUT /api/checkout/:code/items/:passengerId/:itemType/instruments/:slotId/amount
func EditInstrumentAmount(c *gin.Context) {
	session, ok := sessionFromPath(c)
	if !ok {
		return
	}
	ref, ok := itemRefFromPath(c)
	if !ok {
		return
	}
	var req editAmountRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	if err := session.EditAmount(ref, c.Param("slotId"), req.Amount); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// POST /api/checkout/:code/items/:passengerId/:itemType/instruments/:slotId/commit
func CommitInstrument(c *gin.Context) {
	session, ok := sessionFromPath(c)
	if !ok {
		return
	}
	ref, ok := itemRefFromPath(c)
	if !ok {
		return
	}

	amount, err := session.CommitInstrument(ref, c.Param("slotId"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"amount":    amount,
		"breakdown": session.Remaining(ref),
	})
}

// DELETE /api/checkout/:code/items/:passengerId/:itemType/instruments/:slotId
func RemoveInstrument(c *gin.Context) {
	session, ok := sessionFromPath(c)
	if !ok {
		return
	}
	ref, ok := itemRefFromPath(c)
	if !ok {
		return
	}

	if !session.RemoveInstrument(ref, c.Param("slotId")) {
		RespondDomainError(c, domain.NotFoundError{Resource: "instrument"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true, "breakdown": session.Remaining(ref)})
}

type copyRequest struct {
	Source  domain.ItemRef        `json:"source"`
	Kind    models.InstrumentKind `json:"kind"`
	Targets []domain.ItemRef      `json:"targets"`
	CopyAll bool                  `json:"copyAll"`
}

// POST /api/checkout/:code/copy
func CopyInstrument(c *gin.Context) {
	session, ok := sessionFromPath(c)
	if !ok {
		return
	}
	var req copyRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	targets := req.Targets
	if req.CopyAll {
		targets = nil
	} else if targets == nil {
		// an unscoped request must opt into the full fan-out explicitly
		RespondDomainError(c, domain.ValidationError{Field: "targets", Msg: "targets required unless copyAll is set"})
		return
	}
	n := session.Copy(req.Source, req.Kind, targets)
	c.JSON(http.StatusOK, gin.H{"copied": n})
}

type checkVoucherRequest struct {
	Number string `json:"number"`
}

// POST /api/checkout/:code/vouchers/check
func CheckVoucherBalance(c *gin.Context) {
	session, ok := sessionFromPath(c)
	if !ok {
		return
	}
	var req checkVoucherRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	if err := session.CheckVoucherBalance(c.Request.Context(), req.Number); err != nil {
		RespondDomainError(c, err)
		return
	}
	available, known := Checkout.Pool().AvailableNow(req.Number)
	c.JSON(http.StatusOK, gin.H{"available": available, "known": known})
}

// POST /api/checkout/:code/finalize
func FinalizeCheckout(c *gin.Context) {
	session, ok := sessionFromPath(c)
	if !ok {
		return
	}

	reqID := middleware.GetRequestID(c)
	issued, err := session.Finalize(reqID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	utils.LogEvent(reqID, "checkout", "finalize", session.Code)
	c.JSON(http.StatusOK, gin.H{"issued": issued})
}
