// Package ocr turns receipt and passport photos into structured records:
// Google Cloud Vision reads the text, a chat completion model classifies it.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/dutyfree/reconcile/internal/application/reconcile"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// ErrNoText is returned when Vision answered but found no text.
var ErrNoText = errors.New("no text detected in image")

const defaultMaxSide = 2048

// VisionExtractor runs DOCUMENT_TEXT_DETECTION on local images.
type VisionExtractor struct {
	images  *vision.ImagesService
	maxSide int
	logger  *zap.Logger
}

// NewVisionExtractor creates the Vision client. Without explicit options
// the client uses application default credentials.
func NewVisionExtractor(ctx context.Context, maxSide int, logger *zap.Logger, opts ...option.ClientOption) (*VisionExtractor, error) {
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	if maxSide <= 0 {
		maxSide = defaultMaxSide
	}
	return &VisionExtractor{images: svc.Images, maxSide: maxSide, logger: logger}, nil
}

// ExtractText returns the full text annotation of the image at path.
func (e *VisionExtractor) ExtractText(ctx context.Context, imagePath string) (string, error) {
	data, err := prepareImage(imagePath, e.maxSide)
	if err != nil {
		return "", err
	}

	resp, err := e.images.Annotate(&vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(data)},
			Features: []*vision.Feature{{Type: "DOCUMENT_TEXT_DETECTION"}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", ErrNoText
	}

	r := resp.Responses[0]
	if r.Error != nil && r.Error.Message != "" {
		return "", fmt.Errorf("vision annotate: %s", r.Error.Message)
	}

	var text string
	switch {
	case r.FullTextAnnotation != nil:
		text = r.FullTextAnnotation.Text
	case len(r.TextAnnotations) > 0:
		text = r.TextAnnotations[0].Description
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}

	e.logger.Debug("Text extracted", zap.String("path", imagePath), zap.Int("chars", len(text)))
	return text, nil
}

// prepareImage applies EXIF orientation, fits the image into maxSide and
// re-encodes it as JPEG.
func prepareImage(path string, maxSide int) ([]byte, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > maxSide || b.Dy() > maxSide {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

var _ reconcile.TextExtractor = (*VisionExtractor)(nil)
