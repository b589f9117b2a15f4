package photo

import (
	"errors"
	"fmt"
)

var (
	// ErrPayloadTooLarge is returned when the encoded image exceeds the configured
	// size limit or declares more pixels than the loader accepts.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrDimensionsTooLarge is the ErrPayloadTooLarge returned for the pixel limit.
	ErrDimensionsTooLarge = fmt.Errorf("%w: image dimensions", ErrPayloadTooLarge)
	// ErrUnsupportedFormat is returned when the MIME type is outside the allow-list.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrDecode is returned when the bytes do not parse as the claimed format.
	ErrDecode = errors.New("image decode failed")
	// ErrValidationTimeout is returned when decoding or scanning exceeds the time budget.
	ErrValidationTimeout = errors.New("validation timed out")
)

// UserMessage maps a pipeline error to the fixed message shown to end users.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDimensionsTooLarge):
		return "Image dimensions are too large. Please upload a smaller image."
	case errors.Is(err, ErrPayloadTooLarge):
		return TooLargeMessage(DefaultMaxBytes)
	case errors.Is(err, ErrUnsupportedFormat):
		return "Unsupported file type. Please upload a JPEG, PNG or WebP image."
	case errors.Is(err, ErrDecode):
		return "The uploaded file could not be read as an image."
	case errors.Is(err, ErrValidationTimeout):
		return "Photo validation took too long. Please try again with a smaller image."
	default:
		return "Photo validation failed"
	}
}

// TooLargeMessage is the user message for an upload over maxBytes.
func TooLargeMessage(maxBytes int) string {
	if maxBytes%(1<<20) == 0 {
		return fmt.Sprintf("Image is too large. Maximum size is %dMB.", maxBytes>>20)
	}
	return fmt.Sprintf("Image is too large. Maximum size is %.1fMB.", float64(maxBytes)/(1<<20))
}
