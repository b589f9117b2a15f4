package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/photo-check/internal/imageprocessor"
	"github.com/example/photo-check/internal/logging"
	"github.com/example/photo-check/internal/photo"
	"github.com/example/photo-check/internal/repository"
)

const (
	processingMarker = "processing"
	processingTTL    = time.Minute
	resultTTL        = 5 * time.Minute
)

// ErrNotFound is returned when no validation exists for the caller and request id.
var ErrNotFound = errors.New("validation not found")

// ValidationRepository defines the persistence operations needed by the use case.
type ValidationRepository interface {
	SaveLog(ctx context.Context, log *repository.ValidationLog) error
	FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*repository.ValidationLog, error)
	FindDuplicatesByHash(ctx context.Context, userID, hash, excludeRequestID string) ([]*repository.ValidationLog, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// ValidationUseCase runs uploads through the image processor and records the outcome.
type ValidationUseCase struct {
	repo           ValidationRepository
	cache          Cache
	processor      imageprocessor.Client
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	now            func() time.Time
}

// Outcome is a stored validation as returned to API callers. Exactly one of
// Photo and Document is set, depending on Kind.
type Outcome struct {
	RequestID    string                  `json:"request_id"`
	UserID       string                  `json:"user_id"`
	Kind         string                  `json:"kind"`
	Passed       bool                    `json:"passed"`
	Confidence   float64                 `json:"confidence"`
	Message      string                  `json:"message"`
	Photo        *photo.ValidationResult `json:"photo,omitempty"`
	Document     *photo.DocumentReport   `json:"document,omitempty"`
	SHA1Hash     string                  `json:"sha1_hash"`
	MimeType     string                  `json:"mime_type"`
	ProcessingMs int64                   `json:"processing_ms"`
	CreatedAt    time.Time               `json:"created_at"`
}

// DuplicateReport lists earlier submissions of the same image by the same user.
type DuplicateReport struct {
	Request    *Outcome   `json:"request"`
	Duplicates []*Outcome `json:"duplicates"`
}

// NewValidationUseCase constructs a new use case instance.
func NewValidationUseCase(repo ValidationRepository, cache Cache, processor imageprocessor.Client, logger *zap.Logger) *ValidationUseCase {
	return &ValidationUseCase{
		repo:           repo,
		cache:          cache,
		processor:      processor,
		logger:         logger.Named("validation_usecase"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
		now:            time.Now,
	}
}

// ValidatePhoto scores a passport photo and records the result.
func (uc *ValidationUseCase) ValidatePhoto(ctx context.Context, userID string, imageBytes []byte, mimeType string) (*Outcome, error) {
	return uc.run(ctx, userID, imageprocessor.KindPassportPhoto, imageBytes, mimeType, func(o *Outcome) error {
		result, err := uc.processor.ValidatePhoto(ctx, imageBytes, mimeType)
		if err != nil {
			return err
		}
		o.Photo = result
		o.Passed = result.Passed
		o.Confidence = result.Confidence
		o.Message = result.Message
		return nil
	})
}

// AssessDocument checks the scan quality of a supporting document and records
// the result. Confidence is the fraction of the three quality checks that passed.
func (uc *ValidationUseCase) AssessDocument(ctx context.Context, userID string, imageBytes []byte, mimeType string) (*Outcome, error) {
	return uc.run(ctx, userID, imageprocessor.KindDocument, imageBytes, mimeType, func(o *Outcome) error {
		report, err := uc.processor.AssessDocument(ctx, imageBytes, mimeType)
		if err != nil {
			return err
		}
		o.Document = report
		o.Passed = report.Passed
		o.Confidence = float64(3-min(len(report.Issues), 3)) / 3
		o.Message = report.Message
		return nil
	})
}

func (uc *ValidationUseCase) run(ctx context.Context, userID, kind string, imageBytes []byte, mimeType string, process func(*Outcome) error) (*Outcome, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.validate_"+kind, requestID)

	cacheKey := resultKey(requestID)
	if err := uc.withRedisRetry(ctx, requestID, "cache.set.processing", func() error {
		return uc.cache.Set(ctx, cacheKey, processingMarker, processingTTL)
	}); err != nil {
		opLogger.Error("failed to set processing flag", zap.Error(err))
		return nil, err
	}

	hash := sha1.Sum(imageBytes)
	outcome := &Outcome{
		RequestID: requestID,
		UserID:    userID,
		Kind:      kind,
		SHA1Hash:  hex.EncodeToString(hash[:]),
		MimeType:  photo.NormalizeMIMEType(mimeType),
	}

	start := uc.now()
	if err := process(outcome); err != nil {
		// validation rejections keep their identity for the HTTP layer
		opLogger.Info("processing rejected", zap.Error(err))
		return nil, logging.NewOperationError("usecase.process_"+kind, requestID, err)
	}
	outcome.ProcessingMs = uc.now().Sub(start).Milliseconds()
	outcome.CreatedAt = uc.now().UTC()

	details, err := outcome.detailsJSON()
	if err != nil {
		opLogger.Error("failed to serialize details", zap.Error(err))
		return nil, err
	}
	log := &repository.ValidationLog{
		RequestID:    outcome.RequestID,
		UserID:       outcome.UserID,
		Kind:         outcome.Kind,
		Passed:       outcome.Passed,
		Confidence:   outcome.Confidence,
		Message:      outcome.Message,
		Details:      details,
		SHA1Hash:     outcome.SHA1Hash,
		MimeType:     outcome.MimeType,
		ProcessingMs: outcome.ProcessingMs,
		CreatedAt:    outcome.CreatedAt,
	}
	if err := uc.repo.SaveLog(ctx, log); err != nil {
		wrapped := logging.NewOperationError("usecase.save_log", requestID, err)
		opLogger.Error("failed to persist validation log", zap.Error(wrapped))
		return nil, wrapped
	}

	serialized, err := json.Marshal(outcome)
	if err != nil {
		opLogger.Error("failed to serialize validation result", zap.Error(err))
		return nil, err
	}
	if err := uc.withRedisRetry(ctx, requestID, "cache.set.result", func() error {
		return uc.cache.Set(ctx, cacheKey, string(serialized), resultTTL)
	}); err != nil {
		opLogger.Error("failed to cache validation result", zap.Error(err))
		return nil, err
	}

	opLogger.Info("validation recorded",
		zap.String("kind", kind),
		zap.Bool("passed", outcome.Passed),
		zap.Float64("confidence", outcome.Confidence),
	)
	return outcome, nil
}

// GetResult retrieves a cached validation outcome or loads it from persistence.
func (uc *ValidationUseCase) GetResult(ctx context.Context, userID, requestID string) (*Outcome, error) {
	opLogger := logging.WithOperation(uc.logger, "usecase.get_result", requestID)
	cached, err := uc.withRedisGet(ctx, requestID, "cache.get.result", resultKey(requestID))
	switch {
	case err == nil && cached != processingMarker:
		var outcome Outcome
		if err := json.Unmarshal([]byte(cached), &outcome); err != nil {
			opLogger.Warn("failed to decode cached result", zap.Error(err))
		} else if outcome.UserID == userID {
			return &outcome, nil
		}
	case err != nil && !errors.Is(err, ErrCacheMiss):
		opLogger.Warn("failed to read cache", zap.Error(err))
	}

	log, err := uc.repo.FindByRequestIDAndUser(ctx, requestID, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return outcomeFromLog(log)
}

// GetDuplicateReport finds earlier submissions of the same bytes by the same user.
func (uc *ValidationUseCase) GetDuplicateReport(ctx context.Context, userID, requestID string) (*DuplicateReport, error) {
	log, err := uc.repo.FindByRequestIDAndUser(ctx, requestID, userID)
	if err != nil {
		return nil, notFound(err)
	}
	request, err := outcomeFromLog(log)
	if err != nil {
		return nil, err
	}

	logs, err := uc.repo.FindDuplicatesByHash(ctx, userID, log.SHA1Hash, log.RequestID)
	if err != nil {
		return nil, err
	}
	duplicates := make([]*Outcome, 0, len(logs))
	for _, l := range logs {
		o, err := outcomeFromLog(l)
		if err != nil {
			return nil, err
		}
		duplicates = append(duplicates, o)
	}
	return &DuplicateReport{Request: request, Duplicates: duplicates}, nil
}

func (o *Outcome) detailsJSON() (string, error) {
	var (
		raw []byte
		err error
	)
	switch {
	case o.Photo != nil:
		raw, err = json.Marshal(o.Photo)
	case o.Document != nil:
		raw, err = json.Marshal(o.Document)
	default:
		return "", nil
	}
	return string(raw), err
}

func outcomeFromLog(log *repository.ValidationLog) (*Outcome, error) {
	o := &Outcome{
		RequestID:    log.RequestID,
		UserID:       log.UserID,
		Kind:         log.Kind,
		Passed:       log.Passed,
		Confidence:   log.Confidence,
		Message:      log.Message,
		SHA1Hash:     log.SHA1Hash,
		MimeType:     log.MimeType,
		ProcessingMs: log.ProcessingMs,
		CreatedAt:    log.CreatedAt,
	}
	if log.Details == "" {
		return o, nil
	}

	var err error
	switch log.Kind {
	case imageprocessor.KindPassportPhoto:
		o.Photo = &photo.ValidationResult{}
		err = json.Unmarshal([]byte(log.Details), o.Photo)
	case imageprocessor.KindDocument:
		o.Document = &photo.DocumentReport{}
		err = json.Unmarshal([]byte(log.Details), o.Document)
	}
	if err != nil {
		return nil, fmt.Errorf("decode details of %s: %w", log.RequestID, err)
	}
	return o, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func resultKey(requestID string) string {
	return fmt.Sprintf("validation:%s", requestID)
}

func (uc *ValidationUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		return logging.NewOperationError(operation, requestID, fn())
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}
		if errors.Is(err, ErrCacheMiss) {
			return logging.NewOperationError(operation, requestID, err)
		}
		if !isTransientError(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *ValidationUseCase) withRedisGet(ctx context.Context, requestID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	return errors.As(err, &temporary) && temporary.Temporary()
}
