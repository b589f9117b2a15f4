package photo

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"strings"

	"golang.org/x/image/webp"
)

// DefaultMaxBytes is the largest encoded image accepted by the loader.
const DefaultMaxBytes = 10 << 20

// DefaultMaxPixels caps the declared dimensions, which the byte limit does not bound.
const DefaultMaxPixels = 40_000_000

// PixelBuffer is a decoded raster image. Pix holds Width*Height RGBA quadruplets.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []byte
}

// Valid reports whether the buffer dimensions agree with its pixel data.
func (b *PixelBuffer) Valid() bool {
	if b == nil || b.Width <= 0 || b.Height <= 0 {
		return false
	}
	return len(b.Pix) == b.Width*b.Height*4
}

type codec struct {
	decode       func(io.Reader) (image.Image, error)
	decodeConfig func(io.Reader) (image.Config, error)
}

var codecs = map[string]codec{
	"image/jpeg": {decode: jpeg.Decode, decodeConfig: jpeg.DecodeConfig},
	"image/png":  {decode: png.Decode, decodeConfig: png.DecodeConfig},
	"image/webp": {decode: webp.Decode, decodeConfig: webp.DecodeConfig},
}

// SupportedMIMETypes lists the accepted image types.
func SupportedMIMETypes() []string {
	return []string{"image/jpeg", "image/png", "image/webp"}
}

// NormalizeMIMEType lowercases the media type and strips parameters.
func NormalizeMIMEType(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mediaType
	}
	return strings.ToLower(mimeType)
}

// Loader turns encoded uploads into pixel buffers.
type Loader struct {
	MaxBytes  int
	MaxPixels int
}

// NewLoader creates a loader; non-positive limits fall back to DefaultMaxBytes
// and DefaultMaxPixels.
func NewLoader(maxBytes, maxPixels int) *Loader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Loader{MaxBytes: maxBytes, MaxPixels: maxPixels}
}

// Load validates size and MIME type, then decodes data with the codec of the claimed type.
func (l *Loader) Load(data []byte, mimeType string) (*PixelBuffer, error) {
	return l.LoadContext(context.Background(), data, mimeType)
}

// LoadContext is Load with ctx checked between the header read, the decode and
// the pixel copy. The declared dimensions are checked against MaxPixels before
// any pixel data is decoded.
func (l *Loader) LoadContext(ctx context.Context, data []byte, mimeType string) (*PixelBuffer, error) {
	limit := l.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if len(data) > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrPayloadTooLarge, len(data), limit)
	}

	mediaType := NormalizeMIMEType(mimeType)
	c, ok := codecs[mediaType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mimeType)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	cfg, err := c.decodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s header: %v", ErrDecode, mediaType, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %s declares %dx%d", ErrDecode, mediaType, cfg.Width, cfg.Height)
	}
	maxPixels := l.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds limit of %d pixels", ErrDimensionsTooLarge, cfg.Width, cfg.Height, maxPixels)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := c.decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, mediaType, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := FromImage(img)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return buf, nil
}

// FromImage copies any image into a tightly packed, non-premultiplied RGBA buffer.
func FromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	rgba, ok := img.(*image.NRGBA)
	if !ok || bounds.Min != (image.Point{}) || len(rgba.Pix) != bounds.Dx()*bounds.Dy()*4 {
		rgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return &PixelBuffer{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pix:    rgba.Pix,
	}
}
