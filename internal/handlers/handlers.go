package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/photo-check/internal/auth"
	"github.com/example/photo-check/internal/photo"
	"github.com/example/photo-check/internal/usecase"
)

// MaxUploadSize is the default largest image accepted from clients.
const MaxUploadSize = photo.DefaultMaxBytes

// multipart framing and the type field need some room above the image itself
const multipartOverhead = 1 << 20

const (
	typePassportPhoto = "passport-photo"
	typeDocument      = "document"
)

// ValidationService is what the handlers need from the use case layer.
type ValidationService interface {
	ValidatePhoto(ctx context.Context, userID string, imageBytes []byte, mimeType string) (*usecase.Outcome, error)
	AssessDocument(ctx context.Context, userID string, imageBytes []byte, mimeType string) (*usecase.Outcome, error)
	GetResult(ctx context.Context, userID, requestID string) (*usecase.Outcome, error)
	GetDuplicateReport(ctx context.Context, userID, requestID string) (*usecase.DuplicateReport, error)
	GetMetricsSummary(ctx context.Context) (*usecase.MetricsSummary, error)
}

// Option adjusts RegisterRoutes.
type Option func(*routeOptions)

type routeOptions struct {
	maxUploadBytes int
}

// WithMaxUploadBytes sets the upload limit; it should match the validator's MaxBytes.
func WithMaxUploadBytes(n int) Option {
	return func(o *routeOptions) {
		if n > 0 {
			o.maxUploadBytes = n
		}
	}
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, svc ValidationService, authMiddleware gin.HandlerFunc, opts ...Option) {
	options := routeOptions{maxUploadBytes: MaxUploadSize}
	for _, opt := range opts {
		opt(&options)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api", authMiddleware)
	api.POST("/validate", func(c *gin.Context) {
		handleUpload(c, svc, "", options.maxUploadBytes)
	})
	api.POST("/validate/passport-photo", func(c *gin.Context) {
		handleUpload(c, svc, typePassportPhoto, options.maxUploadBytes)
	})

	api.GET("/validate/results/:id", func(c *gin.Context) {
		userID, _ := auth.GetUserID(c.Request.Context())
		outcome, err := svc.GetResult(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			lookupError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": outcome})
	})

	api.GET("/validate/results/:id/duplicates", func(c *gin.Context) {
		userID, _ := auth.GetUserID(c.Request.Context())
		report, err := svc.GetDuplicateReport(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			lookupError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
	})

	api.GET("/admin/validation-metrics", auth.RequireRole(auth.RoleAdmin), func(c *gin.Context) {
		summary, err := svc.GetMetricsSummary(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load metrics"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
	})
}

// handleUpload reads the multipart "image" field. An empty kind is taken from the "type" field.
func handleUpload(c *gin.Context, svc ValidationService, kind string, maxBytes int) {
	userID, ok := auth.GetUserID(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(maxBytes)+multipartOverhead)
	file, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": photo.TooLargeMessage(maxBytes)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if file.Size > int64(maxBytes) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": photo.TooLargeMessage(maxBytes)})
		return
	}
	if kind == "" {
		kind = c.DefaultPostForm("type", typePassportPhoto)
	}
	if kind != typePassportPhoto && kind != typeDocument {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be passport-photo or document"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return
	}

	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	var outcome *usecase.Outcome
	if kind == typeDocument {
		outcome, err = svc.AssessDocument(c.Request.Context(), userID, data, mimeType)
	} else {
		outcome, err = svc.ValidatePhoto(c.Request.Context(), userID, data, mimeType)
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(statusFor(err), gin.H{"error": errorMessage(err, maxBytes)})
		return
	}

	var payload interface{} = outcome.Photo
	if kind == typeDocument {
		payload = outcome.Document
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"request_id": outcome.RequestID,
		"data":       payload,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, photo.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, photo.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, photo.ErrDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, photo.ErrValidationTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error, maxBytes int) string {
	if errors.Is(err, photo.ErrPayloadTooLarge) && !errors.Is(err, photo.ErrDimensionsTooLarge) {
		return photo.TooLargeMessage(maxBytes)
	}
	return photo.UserMessage(err)
}

func lookupError(c *gin.Context, err error) {
	if errors.Is(err, usecase.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load result"})
}
