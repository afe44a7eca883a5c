// imageprocessor.go - Document normalization before AI analysis

package processor

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"math"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
)

// Supported MIME types.
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWebP = "image/webp"
	MimeGIF  = "image/gif"
	MimePDF  = "application/pdf"
)

var supportedTypes = map[string]bool{
	MimeJPEG: true,
	MimePNG:  true,
	MimeWebP: true,
	MimeGIF:  true,
	MimePDF:  true,
}

var (
	ErrEmptyDocument       = errors.New("document is empty")
	ErrInvalidBase64       = errors.New("document is not valid base64")
	ErrDocumentTooLarge    = errors.New("document exceeds size limit")
	ErrUnsupportedDocument = errors.New("unsupported document type")
)

// Options controls NormalizeDocument.
type Options struct {
	// MaxBytes limits the decoded size. Zero disables the check.
	MaxBytes int
	// Preprocess enables image downscaling.
	Preprocess bool
	// MaxDimension is the longest side after downscaling.
	MaxDimension int
	// EnhanceLowQuality applies contrast enhancement to dark or flat scans.
	EnhanceLowQuality bool
}

// Document is a validated document ready for a provider.
type Document struct {
	Base64   string
	MimeType string
	Size     int
	// Processed is true when the image was re-encoded.
	Processed bool
}

// NormalizeDocument decodes, validates and optionally downscales a base64 document.
// A data URL prefix is accepted and its MIME type used when mimeType is empty.
// PDFs pass through unchanged.
func NormalizeDocument(fileBase64, mimeType string, opts Options) (*Document, error) {
	encoded := strings.TrimSpace(fileBase64)
	if strings.HasPrefix(encoded, "data:") {
		header, payload, ok := strings.Cut(encoded, ",")
		if !ok {
			return nil, ErrInvalidBase64
		}
		if mimeType == "" {
			mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		}
		encoded = payload
	}
	if encoded == "" {
		return nil, ErrEmptyDocument
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
		}
		encoded = base64.StdEncoding.EncodeToString(data)
	}
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	if opts.MaxBytes > 0 && len(data) > opts.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrDocumentTooLarge, len(data), opts.MaxBytes)
	}

	mimeType = normalizeMimeType(mimeType, data)
	if !supportedTypes[mimeType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDocument, mimeType)
	}

	doc := &Document{Base64: encoded, MimeType: mimeType, Size: len(data)}
	if !opts.Preprocess || mimeType == MimePDF || mimeType == MimeWebP {
		return doc, nil
	}

	processed, changed, err := preprocessImage(data, mimeType, opts)
	if err != nil || !changed {
		// The provider still gets the original image
		return doc, nil
	}
	doc.Base64 = base64.StdEncoding.EncodeToString(processed)
	doc.Size = len(processed)
	doc.Processed = true
	return doc, nil
}

// normalizeMimeType sniffs the content when the declared type is missing or generic.
func normalizeMimeType(declared string, data []byte) string {
	mimeType := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	switch mimeType {
	case "image/jpg", "image/pjpeg":
		return MimeJPEG
	case "", "application/octet-stream", "binary/octet-stream":
		sniffed := http.DetectContentType(data)
		if i := strings.IndexByte(sniffed, ';'); i >= 0 {
			sniffed = sniffed[:i]
		}
		return sniffed
	}
	return mimeType
}

// preprocessImage downscales oversized images and enhances poor scans.
// changed is false when the original bytes should be kept.
func preprocessImage(data []byte, mimeType string, opts Options) ([]byte, bool, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode image: %w", err)
	}

	changed := false
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	maxDimension := opts.MaxDimension

	if maxDimension > 0 && (width > maxDimension || height > maxDimension) {
		if width > height {
			img = imaging.Resize(img, maxDimension, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, maxDimension, imaging.Lanczos)
		}
		changed = true
	}

	if opts.EnhanceLowQuality && analyzeImageQuality(img) < 50 {
		img = applyStandardEnhancement(img)
		changed = true
	}

	if !changed {
		return nil, false, nil
	}

	var buf bytes.Buffer
	switch mimeType {
	case MimePNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case MimeGIF:
		err = imaging.Encode(&buf, img, imaging.GIF)
	default:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(92))
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode processed image: %w", err)
	}

	return buf.Bytes(), true, nil
}

// analyzeImageQuality analyzes image and returns quality score (0-100)
func analyzeImageQuality(img image.Image) float64 {
	bounds := img.Bounds()

	var totalBrightness float64
	var minBrightness float64 = 255
	var maxBrightness float64 = 0
	pixelCount := 0

	// Sample pixels (every 10th pixel for performance)
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 10 {
		for x := bounds.Min.X; x < bounds.Max.X; x += 10 {
			r, g, b, _ := img.At(x, y).RGBA()
			brightness := (float64(r>>8) + float64(g>>8) + float64(b>>8)) / 3.0

			totalBrightness += brightness
			if brightness < minBrightness {
				minBrightness = brightness
			}
			if brightness > maxBrightness {
				maxBrightness = brightness
			}
			pixelCount++
		}
	}
	if pixelCount == 0 {
		return 0
	}

	avgBrightness := totalBrightness / float64(pixelCount)
	contrast := maxBrightness - minBrightness

	// Ideal: avgBrightness = 128, contrast = 200+
	brightnessScore := 100.0 - math.Abs(avgBrightness-128.0)/1.28
	contrastScore := math.Min(contrast/2.0, 100.0)

	// Weight: 40% brightness, 60% contrast
	return (brightnessScore * 0.4) + (contrastScore * 0.6)
}

// applyStandardEnhancement lifts contrast and brightness. Color is kept for tamper analysis.
func applyStandardEnhancement(img image.Image) image.Image {
	result := imaging.Sharpen(img, 1.5)
	result = imaging.AdjustContrast(result, 30)
	result = imaging.AdjustBrightness(result, 10)
	result = imaging.AdjustGamma(result, 1.1)
	return result
}
