package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/example/photo-check/internal/imageprocessor"
	"github.com/example/photo-check/internal/photo"
)

func writePNG(t *testing.T, dir, name string, skinRows int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			c := color.NRGBA{R: 230, G: 230, B: 230, A: 255}
			if y < skinRows {
				c = color.NRGBA{R: 150, G: 100, B: 60, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func decodeReports(t *testing.T, out *bytes.Buffer) []fileReport {
	t.Helper()
	var reports []fileReport
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		var r fileReport
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("invalid json line %q: %v", scanner.Text(), err)
		}
		reports = append(reports, r)
	}
	return reports
}

func TestValidateFilesMixedBatch(t *testing.T) {
	dir := t.TempDir()
	good := writePNG(t, dir, "good.png", 3)
	blank := writePNG(t, dir, "blank.png", 0)
	notImage := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notImage, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	client := imageprocessor.NewLocal(photo.NewValidator(photo.Config{}), nil, zap.NewNop())
	var out bytes.Buffer
	failures, err := validateFiles(context.Background(), client, []string{good, blank, notImage}, imageprocessor.KindPassportPhoto, "", &out, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failures != 2 {
		t.Fatalf("expected 2 failures, got %d", failures)
	}

	reports := decodeReports(t, &out)
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(reports))
	}
	// 30% skin, 70% light grey background, average brightness ~192
	if reports[0].Photo == nil || !reports[0].Photo.Passed {
		t.Fatalf("expected first photo to pass, got %+v", reports[0])
	}
	if reports[1].Photo == nil || reports[1].Photo.Message != photo.MsgNoFace {
		t.Fatalf("expected blank photo to report no face, got %+v", reports[1])
	}
	if reports[2].Error == "" || reports[2].Photo != nil {
		t.Fatalf("expected text file to be rejected, got %+v", reports[2])
	}
}

func TestValidateFilesDocumentKind(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "scan.png", 5)

	client := imageprocessor.NewLocal(photo.NewValidator(photo.Config{}), nil, zap.NewNop())
	var out bytes.Buffer
	if _, err := validateFiles(context.Background(), client, []string{path}, imageprocessor.KindDocument, "image/png", &out, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reports := decodeReports(t, &out)
	if len(reports) != 1 || reports[0].Document == nil {
		t.Fatalf("expected a document report, got %+v", reports)
	}
}

func TestGuessMIMEType(t *testing.T) {
	if got := guessMIMEType("photo.PNG", nil); got != "image/png" {
		t.Fatalf("expected image/png from extension, got %q", got)
	}
	pngHeader := []byte("\x89PNG\r\n\x1a\n")
	if got := guessMIMEType("upload", pngHeader); got != "image/png" {
		t.Fatalf("expected sniffed image/png, got %q", got)
	}
}
