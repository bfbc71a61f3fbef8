package handler

import (
	"context"

	reconcileapp "github.com/dutyfree/reconcile/internal/application/reconcile"
	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/dutyfree/reconcile/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHistory archives, clears and searches owner sessions
type SessionHistory interface {
	CompleteSession(ctx context.Context, ownerID uuid.UUID, archive bool, sessionName, notes string) (*reconcileapp.CompleteSessionResult, error)
	ClearSession(ctx context.Context, ownerID uuid.UUID) (*reconcileapp.ClearResult, error)
	ListArchives(ctx context.Context, ownerID uuid.UUID, limit int) ([]reconcile.Archive, error)
	GetArchive(ctx context.Context, ownerID, archiveID uuid.UUID) (*reconcile.Archive, error)
	SearchHistory(ctx context.Context, ownerID uuid.UUID, query, searchType string, page, pageSize int) (*shared.Paginated[reconcile.HistorySearchResult], error)
}

// HistoryHandler handles session completion and archive reads
type HistoryHandler struct {
	BaseHandler
	history SessionHistory
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(history SessionHistory) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// CompleteSession godoc
//
//	@Summary	Optionally archive the session, then clear it
//	@Tags		history
//	@Param		request	body	CompleteSessionRequest	true	"Completion options"
//	@Router		/ocr/complete-session [post]
func (h *HistoryHandler) CompleteSession(c *gin.Context) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}

	var req CompleteSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.history.CompleteSession(c.Request.Context(), ownerID, *req.Archive, req.SessionName, req.Notes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ClearSession godoc
//
//	@Summary	Delete the current session without archiving
//	@Tags		history
//	@Router		/ocr/session [delete]
func (h *HistoryHandler) ClearSession(c *gin.Context) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}
	result, err := h.history.ClearSession(c.Request.Context(), ownerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListArchives godoc
//
//	@Summary	Archived sessions, newest first
//	@Tags		history
//	@Param		limit	query	int	false	"At most 50"
//	@Router		/ocr/history [get]
func (h *HistoryHandler) ListArchives(c *gin.Context) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}

	var query ListArchivesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}

	archives, err := h.history.ListArchives(c.Request.Context(), ownerID, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toArchiveSummaries(archives))
}

// GetArchive godoc
//
//	@Summary	One archive with its customer groups
//	@Tags		history
//	@Param		id	path	string	true	"Archive ID"
//	@Router		/ocr/history/{id} [get]
func (h *HistoryHandler) GetArchive(c *gin.Context) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}
	archiveID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid archive ID format")
		return
	}

	archive, err := h.history.GetArchive(c.Request.Context(), ownerID, archiveID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toArchiveResponse(archive))
}

// SearchHistory godoc
//
//	@Summary	Search archived customer groups
//	@Tags		history
//	@Param		q			query	string	false	"Search text"
//	@Param		search_type	query	string	false	"all, customer, passport or receipt"
//	@Param		page		query	int		false	"Page number"
//	@Param		page_size	query	int		false	"Page size, at most 200"
//	@Router		/ocr/history/search [get]
func (h *HistoryHandler) SearchHistory(c *gin.Context) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}

	var query SearchHistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.history.SearchHistory(c.Request.Context(), ownerID, query.Query, query.SearchType, query.Page, query.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toHistorySearchResponses(result.Items), result.Total, result.Page, result.PageSize)
}
