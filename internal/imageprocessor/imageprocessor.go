package imageprocessor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/photo-check/internal/metrics"
	"github.com/example/photo-check/internal/photo"
)

const (
	KindPassportPhoto = "passport_photo"
	KindDocument      = "document"
)

// Client exposes the subset of functionality used by the validation flow.
type Client interface {
	ValidatePhoto(ctx context.Context, imageBytes []byte, mimeType string) (*photo.ValidationResult, error)
	AssessDocument(ctx context.Context, imageBytes []byte, mimeType string) (*photo.DocumentReport, error)
}

// Local runs the photo pipeline in process and records metrics for every call.
type Local struct {
	validator *photo.Validator
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewLocal wraps validator. metrics may be nil.
func NewLocal(validator *photo.Validator, m *metrics.Metrics, logger *zap.Logger) *Local {
	return &Local{
		validator: validator,
		metrics:   m,
		logger:    logger.Named("image_processor"),
		now:       time.Now,
	}
}

// ValidatePhoto scores a passport photo.
func (l *Local) ValidatePhoto(ctx context.Context, imageBytes []byte, mimeType string) (*photo.ValidationResult, error) {
	start := l.now()
	result, err := l.validator.ValidatePassportPhoto(ctx, imageBytes, mimeType)
	elapsed := l.now().Sub(start)
	if err != nil {
		l.reject(KindPassportPhoto, mimeType, len(imageBytes), elapsed, err)
		return nil, err
	}

	if l.metrics != nil {
		l.metrics.ObserveResult(KindPassportPhoto, result.Passed, elapsed)
	}
	l.logger.Debug("passport photo scored",
		zap.Bool("passed", result.Passed),
		zap.Float64("confidence", result.Confidence),
		zap.Float64("skin_tone_ratio", result.Details.SkinToneRatio),
		zap.Float64("average_brightness", result.Details.AverageBrightness),
		zap.Float64("white_ratio", result.Details.WhiteRatio),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

// AssessDocument measures document scan quality.
func (l *Local) AssessDocument(ctx context.Context, imageBytes []byte, mimeType string) (*photo.DocumentReport, error) {
	start := l.now()
	report, err := l.validator.AssessDocument(ctx, imageBytes, mimeType)
	elapsed := l.now().Sub(start)
	if err != nil {
		l.reject(KindDocument, mimeType, len(imageBytes), elapsed, err)
		return nil, err
	}

	if l.metrics != nil {
		l.metrics.ObserveResult(KindDocument, report.Passed, elapsed)
	}
	l.logger.Debug("document assessed",
		zap.Bool("passed", report.Passed),
		zap.Float64("brightness", report.Brightness),
		zap.Float64("contrast", report.Contrast),
		zap.Float64("sharpness", report.Sharpness),
		zap.Duration("elapsed", elapsed),
	)
	return report, nil
}

func (l *Local) reject(kind, mimeType string, size int, elapsed time.Duration, err error) {
	reason := RejectionReason(err)
	if l.metrics != nil {
		l.metrics.ObserveRejection(kind, reason, elapsed)
	}
	l.logger.Info("upload rejected",
		zap.String("kind", kind),
		zap.String("reason", reason),
		zap.String("mime_type", mimeType),
		zap.Int("size_bytes", size),
		zap.Error(err),
	)
}

// RejectionReason classifies a pipeline error into a short metric label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, photo.ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, photo.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, photo.ErrDecode):
		return "decode"
	case errors.Is(err, photo.ErrValidationTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}
