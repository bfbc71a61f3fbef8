package handler

import (
	"context"
	"mime"
	"net/http"

	reconcileapp "github.com/dutyfree/reconcile/internal/application/reconcile"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PayoutGenerator renders payout documents for matched customers
type PayoutGenerator interface {
	GeneratePayoutDocuments(ctx context.Context, ownerID uuid.UUID) (*reconcileapp.PayoutResult, error)
}

// PayoutHandler handles payout document generation
type PayoutHandler struct {
	BaseHandler
	payouts PayoutGenerator
}

// NewPayoutHandler creates a new PayoutHandler
func NewPayoutHandler(payouts PayoutGenerator) *PayoutHandler {
	return &PayoutHandler{payouts: payouts}
}

// Generate godoc
//
//	@Summary	Generate payout documents
//	@Description	Streams a zip of documents, or returns a download link when object storage is enabled
//	@Tags		payout
//	@Produce	application/zip
//	@Router		/ocr/receipts/generate [post]
func (h *PayoutHandler) Generate(c *gin.Context) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}

	result, err := h.payouts.GeneratePayoutDocuments(c.Request.Context(), ownerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.DownloadURL != "" {
		h.Success(c, result)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.FileName}))
	c.Data(http.StatusOK, "application/zip", result.Data)
}
