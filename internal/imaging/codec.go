package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"
	"unicode"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// DefaultJPEGQuality is the quality used for every encoded result.
const DefaultJPEGQuality = 95

// DefaultMaxPixels caps width*height of a decoded image. It matches the
// decompression-bomb threshold of common imaging libraries (about 89.5
// megapixels).
const DefaultMaxPixels = 89_478_485

// DecodeError reports input that is not valid base64 or not a decodable image.
type DecodeError struct {
	// Reason is a short human-readable description of what was wrong.
	Reason string

	// Err is the underlying decoder error, if any.
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a failure to produce the output container.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return "failed to encode image: " + e.Err.Error()
}

func (e *EncodeError) Unwrap() error { return e.Err }

// ImageInfo describes a decoded input image.
type ImageInfo struct {
	// Width is the image width in pixels after orientation is applied.
	Width int `json:"width"`

	// Height is the image height in pixels after orientation is applied.
	Height int `json:"height"`

	// Format is the container name sniffed from the payload: "jpeg", "png",
	// "gif", "webp", "bmp", "tiff".
	Format string `json:"format"`

	// MimeType is the sniffed media type, e.g. "image/png".
	MimeType string `json:"mime_type"`

	// SizeBytes is the size of the decoded (binary) payload.
	SizeBytes int `json:"size_bytes"`
}

// DecodeImage turns base64 text into a decoded image.
//
// The text may carry a "data:<mime>;base64," prefix, embedded whitespace and
// missing padding. EXIF orientation is applied to JPEG input, and GIF input
// yields its first frame.
//
// # Errors
//
// Returns *DecodeError when the text is not base64, the payload is empty,
// the payload is not a supported image container, or its header declares
// more than maxPixels pixels. The header is checked before any pixel memory
// is allocated. A non-positive maxPixels means DefaultMaxPixels.
func DecodeImage(encoded string, maxPixels int) (image.Image, *ImageInfo, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	data, err := decodeBase64(encoded)
	if err != nil {
		return nil, nil, &DecodeError{Reason: "invalid base64 image data", Err: err}
	}
	if len(data) == 0 {
		return nil, nil, &DecodeError{Reason: "empty image data"}
	}

	mt := mimetype.Detect(data)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, nil, &DecodeError{
			Reason: fmt.Sprintf("failed to read image header (detected %s)", mt.String()),
			Err:    err,
		}
	}
	if err := checkPixels(cfg.Width, cfg.Height, maxPixels); err != nil {
		return nil, nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil, &DecodeError{
			Reason: fmt.Sprintf("failed to decode image (detected %s)", mt.String()),
			Err:    err,
		}
	}

	bounds := img.Bounds()
	return img, &ImageInfo{
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Format:    formatName(mt),
		MimeType:  mt.String(),
		SizeBytes: len(data),
	}, nil
}

// Decode turns base64 text into an RGB PixelBuffer normalized to [0,1].
// maxPixels behaves as in DecodeImage.
func Decode(encoded string, maxPixels int) (*PixelBuffer, *ImageInfo, error) {
	img, info, err := DecodeImage(encoded, maxPixels)
	if err != nil {
		return nil, nil, err
	}
	return FromImage(img), info, nil
}

// EncodeImage encodes img as JPEG at the given quality and returns it as
// standard base64 text. A quality outside 1..100 falls back to
// DefaultJPEGQuality.
func EncodeImage(img image.Image, quality int) (string, error) {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return "", &EncodeError{Err: err}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Encode converts a PixelBuffer back to 8-bit samples (clamped and rounded)
// and returns it as base64 JPEG text.
func Encode(buf *PixelBuffer, quality int) (string, error) {
	if err := buf.Validate(); err != nil {
		return "", &EncodeError{Err: err}
	}
	return EncodeImage(buf.ToImage(), quality)
}

// ErrTooLarge is wrapped by the DecodeError returned for oversized images.
var ErrTooLarge = errors.New("image too large")

func checkPixels(width, height, maxPixels int) error {
	if width <= 0 || height <= 0 {
		return &DecodeError{Reason: fmt.Sprintf("invalid image dimensions %dx%d", width, height)}
	}
	if int64(width)*int64(height) > int64(maxPixels) {
		return &DecodeError{
			Reason: fmt.Sprintf("image is %dx%d, limit is %d pixels", width, height, maxPixels),
			Err:    ErrTooLarge,
		}
	}
	return nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, errors.New("malformed data URL")
		}
		if !strings.HasSuffix(s[:comma], ";base64") {
			return nil, errors.New("data URL is not base64 encoded")
		}
		s = s[comma+1:]
	}

	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, err
}

func formatName(mt *mimetype.MIME) string {
	switch ext := strings.TrimPrefix(mt.Extension(), "."); ext {
	case "jpg", "jpeg":
		return "jpeg"
	case "tif", "tiff":
		return "tiff"
	case "":
		return "unknown"
	default:
		return ext
	}
}
