package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	reconcileapp "github.com/dutyfree/reconcile/internal/application/reconcile"
	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/dutyfree/reconcile/internal/infrastructure/logger"
	"github.com/dutyfree/reconcile/internal/interfaces/http/dto"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchProcessor runs uploaded image archives through OCR
type BatchProcessor interface {
	ProcessArchive(ctx context.Context, ownerID uuid.UUID, variant reconcile.Variant, zipPath string) (*reconcileapp.BatchResult, error)
	Progress(ctx context.Context, ownerID uuid.UUID) (reconcileapp.ProgressSnapshot, error)
}

// ReferenceLoader loads merchant ledgers
type ReferenceLoader interface {
	LoadReferenceSheet(ctx context.Context, variant reconcile.Variant, filename string, r io.Reader) (*reconcileapp.ReferenceLoadResult, error)
	ReferenceCount(ctx context.Context, variant reconcile.Variant) (int64, error)
}

// UploadLimits bounds multipart uploads
type UploadLimits struct {
	TempDir      string
	MaxZipSize   int64
	MaxSheetSize int64
}

// OCRHandler handles image archive and ledger uploads
type OCRHandler struct {
	BaseHandler
	batch     BatchProcessor
	reference ReferenceLoader
	limits    UploadLimits
}

// NewOCRHandler creates a new OCRHandler
func NewOCRHandler(batch BatchProcessor, reference ReferenceLoader, limits UploadLimits) *OCRHandler {
	return &OCRHandler{
		batch:     batch,
		reference: reference,
		limits:    limits,
	}
}

// UploadZip godoc
//
//	@Summary	Process a zip of receipt and passport images
//	@Tags		ocr
//	@Accept		multipart/form-data
//	@Param		duty_free_type	query	string	true	"lotte or shilla"
//	@Param		file			formData	file	true	"zip archive"
//	@Router		/ocr/upload-zip [post]
func (h *OCRHandler) UploadZip(c *gin.Context) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}
	variant, err := reconcile.ParseVariant(c.Query("duty_free_type"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "Please upload a zip file in the 'file' field")
		return
	}
	defer file.Close()

	if h.limits.MaxZipSize > 0 && header.Size > h.limits.MaxZipSize {
		h.tooLarge(c, h.limits.MaxZipSize)
		return
	}

	zipPath, err := h.saveTemp(file, h.limits.MaxZipSize)
	if errors.Is(err, errTruncatedUpload) {
		h.tooLarge(c, h.limits.MaxZipSize)
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer os.Remove(zipPath)

	mtype, err := mimetype.DetectFile(zipPath)
	if err != nil || !mtype.Is("application/zip") {
		h.HandleError(c, reconcile.ErrInvalidArchive)
		return
	}

	logger.GetGinLogger(c).Info("processing image archive",
		zap.String("variant", variant.String()),
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
	)

	result, err := h.batch.ProcessArchive(c.Request.Context(), ownerID, variant, zipPath)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Progress godoc
//
//	@Summary	Progress of the running image batch
//	@Tags		ocr
//	@Router		/ocr/progress [get]
func (h *OCRHandler) Progress(c *gin.Context) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}
	snapshot, err := h.batch.Progress(c.Request.Context(), ownerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, snapshot)
}

// UploadExcel godoc
//
//	@Summary	Load a merchant sales ledger
//	@Tags		ocr
//	@Accept		multipart/form-data
//	@Param		duty_free_type	query	string	true	"lotte or shilla"
//	@Param		file			formData	file	true	"xlsx, xls or csv"
//	@Router		/ocr/excel/upload [post]
func (h *OCRHandler) UploadExcel(c *gin.Context) {
	if _, ok := h.requireOwner(c); !ok {
		return
	}
	variant, err := reconcile.ParseVariant(c.Query("duty_free_type"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "Please upload a spreadsheet in the 'file' field")
		return
	}
	defer file.Close()

	if h.limits.MaxSheetSize > 0 && header.Size > h.limits.MaxSheetSize {
		h.tooLarge(c, h.limits.MaxSheetSize)
		return
	}

	result, err := h.reference.LoadReferenceSheet(c.Request.Context(), variant, header.Filename, file)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ReferenceCount godoc
//
//	@Summary	Number of loaded ledger rows for a variant
//	@Tags		ocr
//	@Param		duty_free_type	query	string	true	"lotte or shilla"
//	@Router		/ocr/excel/count [get]
func (h *OCRHandler) ReferenceCount(c *gin.Context) {
	if _, ok := h.requireOwner(c); !ok {
		return
	}
	variant, err := reconcile.ParseVariant(c.Query("duty_free_type"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	count, err := h.reference.ReferenceCount(c.Request.Context(), variant)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ReferenceCountResponse{DutyFreeType: variant.String(), Count: count})
}

func (h *OCRHandler) tooLarge(c *gin.Context, limit int64) {
	h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge,
		fmt.Sprintf("File exceeds the %d byte limit", limit))
}

// saveTemp copies the upload into a temp file, refusing more than limit bytes
func (h *OCRHandler) saveTemp(src multipart.File, limit int64) (string, error) {
	if h.limits.TempDir != "" {
		if err := os.MkdirAll(h.limits.TempDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create upload dir: %w", err)
		}
	}
	dst, err := os.CreateTemp(h.limits.TempDir, "upload-*.zip")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer dst.Close()

	var r io.Reader = src
	if limit > 0 {
		r = io.LimitReader(src, limit+1)
	}
	n, err := io.Copy(dst, r)
	if err == nil && limit > 0 && n > limit {
		err = errTruncatedUpload
	}
	if err != nil {
		_ = os.Remove(dst.Name())
		if errors.Is(err, errTruncatedUpload) {
			return "", err
		}
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return dst.Name(), nil
}

var errTruncatedUpload = errors.New("upload exceeds size limit")
