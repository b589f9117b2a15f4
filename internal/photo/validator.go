// Package photo scores passport photos and document scans with cheap pixel
// heuristics. Every call is independent; a Validator holds only configuration
// and is safe for concurrent use.
package photo

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single validation call.
const DefaultTimeout = 5 * time.Second

// Config tunes the pipeline. Zero values take the defaults.
type Config struct {
	MaxBytes  int
	MaxPixels int
	Timeout   time.Duration
	Weights   *Weights
	Threshold *float64
}

// Validator runs load, analyze, score and format for one image per call.
type Validator struct {
	loader  *Loader
	scorer  Scorer
	timeout time.Duration
}

// NewValidator builds a validator from cfg.
func NewValidator(cfg Config) *Validator {
	scorer := NewScorer()
	if cfg.Weights != nil {
		scorer.Weights = *cfg.Weights
	}
	if cfg.Threshold != nil {
		scorer.Threshold = *cfg.Threshold
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Validator{
		loader:  NewLoader(cfg.MaxBytes, cfg.MaxPixels),
		scorer:  scorer,
		timeout: timeout,
	}
}

// MaxBytes returns the upload size limit enforced by the loader.
func (v *Validator) MaxBytes() int {
	return v.loader.MaxBytes
}

// MaxPixels returns the decoded dimension limit enforced by the loader.
func (v *Validator) MaxPixels() int {
	return v.loader.MaxPixels
}

// ValidatePassportPhoto decodes imageBytes and scores it as a passport photo.
// It fails only with ErrPayloadTooLarge, ErrUnsupportedFormat, ErrDecode,
// ErrValidationTimeout or a cancellation of ctx.
func (v *Validator) ValidatePassportPhoto(ctx context.Context, imageBytes []byte, mimeType string) (*ValidationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	buf, err := v.loader.LoadContext(ctx, imageBytes, mimeType)
	if err != nil {
		return nil, v.scanError(err)
	}

	report, err := AnalyzeContext(ctx, buf)
	if err != nil {
		return nil, v.scanError(err)
	}

	confidence := v.scorer.Score(report)
	result := Format(report, confidence, v.scorer.Passed(confidence))
	return &result, nil
}

// AssessDocument decodes imageBytes and measures its quality as a document scan.
func (v *Validator) AssessDocument(ctx context.Context, imageBytes []byte, mimeType string) (*DocumentReport, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	buf, err := v.loader.LoadContext(ctx, imageBytes, mimeType)
	if err != nil {
		return nil, v.scanError(err)
	}

	report, err := AssessDocumentContext(ctx, buf)
	if err != nil {
		return nil, v.scanError(err)
	}
	return &report, nil
}

func (v *Validator) scanError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrValidationTimeout, v.timeout)
	}
	return err
}
