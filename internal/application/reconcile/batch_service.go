package reconcile

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// TextExtractor reads the text printed on an image
type TextExtractor interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// Classifier turns OCR text into receipts and passports
type Classifier interface {
	Classify(ctx context.Context, variant reconcile.Variant, text string) (*reconcile.ClassifiedDocument, error)
}

// ProgressSnapshot is the state of an owner's current batch
type ProgressSnapshot struct {
	Done    int  `json:"done"`
	Total   int  `json:"total"`
	Running bool `json:"running"`
}

// ProgressTracker tracks batch progress per owner
type ProgressTracker interface {
	Start(ctx context.Context, ownerID uuid.UUID, total int) (ProgressHandle, error)
	Snapshot(ctx context.Context, ownerID uuid.UUID) (ProgressSnapshot, error)
}

// ProgressHandle advances one running batch
type ProgressHandle interface {
	Advance(ctx context.Context)
	Finish(ctx context.Context)
}

// BatchOptions configures the OCR batch pipeline
type BatchOptions struct {
	UploadDir     string
	Workers       int
	ImageTimeout  time.Duration
	MaxImageBytes int64
}

// BatchResult summarizes a processed archive
type BatchResult struct {
	TotalImages        int   `json:"total_images"`
	ProcessedImages    int   `json:"processed_images"`
	UnrecognizedImages int   `json:"unrecognized_images"`
	MatchedReceipts    int64 `json:"matched_receipts"`
	UnmatchedReceipts  int64 `json:"unmatched_receipts"`
}

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// BatchService runs uploaded image archives through OCR and classification
type BatchService struct {
	extractor  TextExtractor
	classifier Classifier
	progress   ProgressTracker
	locker     OwnerLocker
	matching   *MatchingService
	repos      TransactionalRepositories
	opts       BatchOptions
	logger     *zap.Logger
}

// NewBatchService creates a new BatchService
func NewBatchService(
	extractor TextExtractor,
	classifier Classifier,
	progress ProgressTracker,
	locker OwnerLocker,
	matching *MatchingService,
	repos TransactionalRepositories,
	opts BatchOptions,
	logger *zap.Logger,
) *BatchService {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.ImageTimeout <= 0 {
		opts.ImageTimeout = 60 * time.Second
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 20 << 20
	}
	return &BatchService{
		extractor:  extractor,
		classifier: classifier,
		progress:   progress,
		locker:     locker,
		matching:   matching,
		repos:      repos,
		opts:       opts,
		logger:     logger,
	}
}

// Progress returns the owner's batch progress
func (s *BatchService) Progress(ctx context.Context, ownerID uuid.UUID) (ProgressSnapshot, error) {
	return s.progress.Snapshot(ctx, ownerID)
}

// ProcessArchive extracts the images of a zip archive, records what each one
// shows and re-runs matching. A failing image is recorded as unrecognized and
// never aborts the batch.
func (s *BatchService) ProcessArchive(ctx context.Context, ownerID uuid.UUID, variant reconcile.Variant, zipPath string) (*BatchResult, error) {
	if !variant.IsValid() {
		return nil, reconcile.ErrInvalidVariant
	}

	release, err := s.locker.Lock(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	images, err := s.extractImages(ownerID, zipPath)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, reconcile.ErrNoImages
	}

	handle, err := s.progress.Start(ctx, ownerID, len(images))
	if err != nil {
		return nil, fmt.Errorf("failed to start progress: %w", err)
	}
	defer handle.Finish(context.WithoutCancel(ctx))

	var processed, unrecognized atomic.Int64
	p := pool.New().WithMaxGoroutines(s.opts.Workers)
	for _, image := range images {
		p.Go(func() {
			defer handle.Advance(ctx)
			processed.Add(1)
			if reason := s.processImage(ctx, ownerID, variant, image); reason != "" {
				unrecognized.Add(1)
				s.recordUnrecognized(ctx, ownerID, image, reason)
			}
		})
	}
	p.Wait()

	if _, err := s.matching.RunMatching(ctx, ownerID); err != nil {
		return nil, err
	}
	stats, err := s.matching.Statistics(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("image archive processed",
		zap.String("owner_id", ownerID.String()),
		zap.String("variant", variant.String()),
		zap.Int("images", len(images)),
		zap.Int64("unrecognized", unrecognized.Load()))

	return &BatchResult{
		TotalImages:        len(images),
		ProcessedImages:    int(processed.Load()),
		UnrecognizedImages: int(unrecognized.Load()),
		MatchedReceipts:    stats.MatchedReceipts,
		UnmatchedReceipts:  stats.UnmatchedReceipts,
	}, nil
}

// processImage returns the reason the image was not usable, or "" on success
func (s *BatchService) processImage(ctx context.Context, ownerID uuid.UUID, variant reconcile.Variant, imagePath string) string {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ImageTimeout)
	defer cancel()

	text, err := s.extractor.ExtractText(ctx, imagePath)
	if err != nil {
		return "ocr failed: " + err.Error()
	}
	doc, err := s.classifier.Classify(ctx, variant, text)
	if err != nil {
		return "classification failed: " + err.Error()
	}
	if doc.IsEmpty() {
		return "no receipt or passport recognized"
	}

	saved := 0
	for _, r := range doc.Receipts {
		receipt, err := reconcile.NewReceipt(ownerID, variant, r.ReceiptNumber, r.PassportNumber, imagePath)
		if err != nil {
			continue
		}
		if err := s.repos.ReceiptRepo().Create(ctx, receipt); err != nil {
			return "failed to save receipt: " + err.Error()
		}
		saved++
	}
	for _, p := range doc.Passports {
		passport, err := reconcile.NewPassport(ownerID, p.Name, p.PassportNumber, p.Birthday, imagePath)
		if err != nil {
			continue
		}
		if err := s.repos.PassportRepo().Create(ctx, passport); err != nil {
			return "failed to save passport: " + err.Error()
		}
		saved++
	}
	if saved == 0 {
		return "no receipt or passport recognized"
	}
	return ""
}

func (s *BatchService) recordUnrecognized(ctx context.Context, ownerID uuid.UUID, imagePath, reason string) {
	image := reconcile.NewUnrecognizedImage(ownerID, imagePath, reason)
	if err := s.repos.UnrecognizedRepo().Create(context.WithoutCancel(ctx), image); err != nil {
		s.logger.Error("failed to record unrecognized image",
			zap.String("owner_id", ownerID.String()),
			zap.String("file_path", imagePath),
			zap.Error(err))
		return
	}
	s.logger.Warn("image not recognized",
		zap.String("owner_id", ownerID.String()),
		zap.String("file_path", imagePath),
		zap.String("reason", reason))
}

// extractImages copies the archive's images into the owner's upload directory
func (s *BatchService) extractImages(ownerID uuid.UUID, zipPath string) ([]string, error) {
	archive, err := zip.OpenReader(zipPath)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, fmt.Errorf("%w: %s", reconcile.ErrInvalidArchive, err.Error())
		}
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	dir := filepath.Join(s.opts.UploadDir, ownerID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	var images []string
	for _, f := range archive.File {
		if !isImageEntry(f) {
			continue
		}
		dst := filepath.Join(dir, uuid.NewString()+"_"+filepath.Base(f.Name))
		if err := s.copyEntry(f, dst); err != nil {
			s.logger.Warn("skipping archive entry",
				zap.String("entry", f.Name),
				zap.Error(err))
			continue
		}

		mt, err := mimetype.DetectFile(dst)
		if err != nil || !strings.HasPrefix(mt.String(), "image/") {
			_ = os.Remove(dst)
			continue
		}
		images = append(images, dst)
	}
	return images, nil
}

func (s *BatchService) copyEntry(f *zip.File, dst string) error {
	if f.UncompressedSize64 > uint64(s.opts.MaxImageBytes) {
		return fmt.Errorf("entry exceeds %d bytes", s.opts.MaxImageBytes)
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, io.LimitReader(src, s.opts.MaxImageBytes)); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

// isImageEntry skips directories, macOS metadata and non-image extensions
func isImageEntry(f *zip.File) bool {
	if f.FileInfo().IsDir() {
		return false
	}
	name := filepath.ToSlash(f.Name)
	if strings.HasPrefix(name, "__MACOSX/") || strings.Contains(name, "/__MACOSX/") {
		return false
	}
	base := filepath.Base(name)
	if strings.HasPrefix(base, "._") {
		return false
	}
	return imageExtensions[strings.ToLower(filepath.Ext(base))]
}
