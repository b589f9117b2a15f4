package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/photo-check/internal/imageprocessor"
	"github.com/example/photo-check/internal/photo"
)

var (
	validateKind      string
	validateMIME      string
	validateThreshold float64
	validateVerbose   bool
)

// fileReport is one line of `photocheck validate` output.
type fileReport struct {
	File     string                  `json:"file"`
	Photo    *photo.ValidationResult `json:"photo,omitempty"`
	Document *photo.DocumentReport   `json:"document,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Validate local image files and print JSON results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateKind != imageprocessor.KindPassportPhoto && validateKind != imageprocessor.KindDocument {
			return fmt.Errorf("--kind must be %s or %s", imageprocessor.KindPassportPhoto, imageprocessor.KindDocument)
		}

		logger := zap.NewNop()
		if validateVerbose {
			dev, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			logger = dev
		}
		defer logger.Sync() //nolint:errcheck

		threshold := validateThreshold
		validator := photo.NewValidator(photo.Config{Threshold: &threshold})
		client := imageprocessor.NewLocal(validator, nil, logger)

		var bar *progressbar.ProgressBar
		if len(args) > 1 {
			bar = progressbar.NewOptions(len(args),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("validating"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		failures, err := validateFiles(cmd.Context(), client, args, validateKind, validateMIME, cmd.OutOrStdout(), bar)
		if err != nil {
			return err
		}
		if failures > 0 {
			return fmt.Errorf("%d of %d files did not pass", failures, len(args))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateKind, "kind", imageprocessor.KindPassportPhoto, "passport_photo or document")
	validateCmd.Flags().StringVar(&validateMIME, "mime", "", "MIME type to claim instead of guessing from the file")
	validateCmd.Flags().Float64Var(&validateThreshold, "threshold", photo.DefaultThreshold, "confidence a photo must exceed to pass")
	validateCmd.Flags().BoolVarP(&validateVerbose, "verbose", "v", false, "log pipeline details to stderr")
	rootCmd.AddCommand(validateCmd)
}

// validateFiles writes one JSON line per file and returns how many did not pass.
func validateFiles(ctx context.Context, client imageprocessor.Client, paths []string, kind, mimeOverride string, out io.Writer, bar *progressbar.ProgressBar) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	enc := json.NewEncoder(out)
	failures := 0
	for _, path := range paths {
		report := fileReport{File: path}
		passed, err := validateFile(ctx, client, path, kind, mimeOverride, &report)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return failures, err
			}
			report.Error = err.Error()
		}
		if !passed {
			failures++
		}
		if err := enc.Encode(report); err != nil {
			return failures, err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return failures, nil
}

func validateFile(ctx context.Context, client imageprocessor.Client, path, kind, mimeOverride string, report *fileReport) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	mimeType := mimeOverride
	if mimeType == "" {
		mimeType = guessMIMEType(path, data)
	}

	if kind == imageprocessor.KindDocument {
		doc, err := client.AssessDocument(ctx, data, mimeType)
		if err != nil {
			return false, err
		}
		report.Document = doc
		return doc.Passed, nil
	}

	result, err := client.ValidatePhoto(ctx, data, mimeType)
	if err != nil {
		return false, err
	}
	report.Photo = result
	return result.Passed, nil
}

func guessMIMEType(path string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}
