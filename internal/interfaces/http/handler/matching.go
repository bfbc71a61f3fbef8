package handler

import (
	"context"

	reconcileapp "github.com/dutyfree/reconcile/internal/application/reconcile"
	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MatchingOperations is the matching engine as seen by the HTTP layer
type MatchingOperations interface {
	RunMatching(ctx context.Context, ownerID uuid.UUID) (*reconcileapp.MatchSummary, error)
	Results(ctx context.Context, ownerID uuid.UUID) (*reconcile.MatchResults, error)
	Statistics(ctx context.Context, ownerID uuid.UUID) (*reconcile.Statistics, error)
	CountReceiptsByVariant(ctx context.Context, ownerID uuid.UUID) (map[reconcile.Variant]int64, error)
	UpdateReceipt(ctx context.Context, ownerID, receiptID uuid.UUID, update reconcile.ReceiptUpdate) (*reconcileapp.ReceiptUpdateResult, error)
	UpdatePassport(ctx context.Context, ownerID, passportID uuid.UUID, update reconcile.PassportUpdate) (*reconcileapp.PassportUpdateResult, error)
	ListUnmatchedPassports(ctx context.Context, ownerID uuid.UUID) ([]reconcile.Passport, error)
	ListAvailablePassports(ctx context.Context, ownerID uuid.UUID) ([]reconcile.Passport, error)
	ListUnrecognizedImages(ctx context.Context, ownerID uuid.UUID) ([]reconcile.UnrecognizedImage, error)
}

// MatchingHandler handles matching, corrections and result reads
type MatchingHandler struct {
	BaseHandler
	matching MatchingOperations
}

// NewMatchingHandler creates a new MatchingHandler
func NewMatchingHandler(matching MatchingOperations) *MatchingHandler {
	return &MatchingHandler{matching: matching}
}

// Run godoc
//
//	@Summary	Match the session against the detected ledger
//	@Tags		matching
//	@Router		/ocr/matching/run [post]
func (h *MatchingHandler) Run(c *gin.Context) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}
	summary, err := h.matching.RunMatching(c.Request.Context(), ownerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Results godoc
//
//	@Summary	Matched customer groups and unmatched receipts
//	@Tags		matching
//	@Router		/ocr/matching/results [get]
func (h *MatchingHandler) Results(c *gin.Context) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}
	results, err := h.matching.Results(c.Request.Context(), ownerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, results)
}

// Statistics godoc
//
//	@Summary	Session statistics
//	@Tags		matching
//	@Router		/ocr/statistics [get]
func (h *MatchingHandler) Statistics(c *gin.Context) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}
	stats, err := h.matching.Statistics(c.Request.Context(), ownerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	counts, err := h.matching.CountReceiptsByVariant(c.Request.Context(), ownerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toStatisticsResponse(stats, counts))
}

// UpdateReceipt godoc
//
//	@Summary	Correct a receipt and re-match it
//	@Tags		matching
//	@Param		id		path	string					true	"Receipt ID"
//	@Param		request	body	UpdateReceiptRequest	true	"Corrections"
//	@Router		/ocr/receipts/{id} [put]
func (h *MatchingHandler) UpdateReceipt(c *gin.Context) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	var req UpdateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.matching.UpdateReceipt(c.Request.Context(), ownerID, receiptID, reconcile.ReceiptUpdate{
		ReceiptNumber:  req.NewReceiptNumber,
		PassportNumber: req.PassportNumber,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ReceiptUpdateResponse{
		Receipt:  toReceiptResponse(result.Receipt),
		MatchLog: toMatchLogResponse(result.MatchLog),
	})
}

// UpdatePassport godoc
//
//	@Summary	Correct a passport and look its name up on the ledger
//	@Tags		matching
//	@Param		id		path	string					true	"Passport ID"
//	@Param		request	body	UpdatePassportRequest	true	"Corrections"
//	@Router		/ocr/passports/{id} [put]
func (h *MatchingHandler) UpdatePassport(c *gin.Context) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}
	passportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid passport ID format")
		return
	}

	var req UpdatePassportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.matching.UpdatePassport(c.Request.Context(), ownerID, passportID, reconcile.PassportUpdate{
		Name:           req.Name,
		PassportNumber: req.PassportNumber,
		Birthday:       req.Birthday,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, PassportUpdateResponse{
		Passport: toPassportResponse(result.Passport),
		MatchLog: toMatchLogResponse(result.MatchLog),
	})
}

// ListUnmatchedPassports godoc
//
//	@Summary	Passports with no ledger row of the same name
//	@Tags		matching
//	@Router		/ocr/passports/unmatched [get]
func (h *MatchingHandler) ListUnmatchedPassports(c *gin.Context) {
	h.listPassports(c, h.matching.ListUnmatchedPassports)
}

// ListAvailablePassports godoc
//
//	@Summary	Passports not yet matched
//	@Tags		matching
//	@Router		/ocr/passports/available [get]
func (h *MatchingHandler) ListAvailablePassports(c *gin.Context) {
	h.listPassports(c, h.matching.ListAvailablePassports)
}

func (h *MatchingHandler) listPassports(c *gin.Context, list func(context.Context, uuid.UUID) ([]reconcile.Passport, error)) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}
	passports, err := list(c.Request.Context(), ownerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPassportResponses(passports))
}

// ListUnrecognized godoc
//
//	@Summary	Images the OCR pipeline could not use
//	@Tags		matching
//	@Router		/ocr/unrecognized [get]
func (h *MatchingHandler) ListUnrecognized(c *gin.Context) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}
	images, err := h.matching.ListUnrecognizedImages(c.Request.Context(), ownerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toUnrecognizedResponses(images))
}
