package imageprocessor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/example/photo-check/internal/metrics"
	"github.com/example/photo-check/internal/photo"
)

func whitePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 250, G: 250, B: 250, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestLocalValidatePhotoRecordsOutcome(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	client := NewLocal(photo.NewValidator(photo.Config{}), m, zap.NewNop())

	result, err := client.ValidatePhoto(context.Background(), whitePNG(t), "image/png")
	if err != nil {
		t.Fatalf("expected result, got error: %v", err)
	}
	if result.Passed {
		t.Fatal("expected faceless image to fail")
	}
	if got := testutil.ToFloat64(m.Validations.WithLabelValues(KindPassportPhoto, metrics.OutcomeFailed)); got != 1 {
		t.Fatalf("expected one failed validation, got %v", got)
	}
}

func TestLocalValidatePhotoRecordsRejection(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	client := NewLocal(photo.NewValidator(photo.Config{}), m, zap.NewNop())

	_, err := client.ValidatePhoto(context.Background(), []byte("plain text"), "text/plain")
	if !errors.Is(err, photo.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if got := testutil.ToFloat64(m.Rejections.WithLabelValues("unsupported_format")); got != 1 {
		t.Fatalf("expected one unsupported_format rejection, got %v", got)
	}
}

func TestLocalAssessDocumentWithoutMetrics(t *testing.T) {
	client := NewLocal(photo.NewValidator(photo.Config{}), nil, zap.NewNop())

	report, err := client.AssessDocument(context.Background(), whitePNG(t), "image/png")
	if err != nil {
		t.Fatalf("expected report, got error: %v", err)
	}
	if report.Passed {
		t.Fatal("expected blank page to fail quality checks")
	}
}

func TestRejectionReason(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("wrap: %w", photo.ErrPayloadTooLarge), "payload_too_large"},
		{photo.ErrDecode, "decode"},
		{photo.ErrValidationTimeout, "timeout"},
		{context.Canceled, "canceled"},
		{errors.New("other"), "internal"},
	}
	for _, tc := range cases {
		if got := RejectionReason(tc.err); got != tc.want {
			t.Fatalf("RejectionReason(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
