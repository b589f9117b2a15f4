package photo

import "context"

// FacePosition describes where the face sits in the frame.
type FacePosition string

const (
	FaceCentered     FacePosition = "centered"
	FaceNearCentered FacePosition = "near_centered"
	FaceOffCenter    FacePosition = "off_center"
	FacePositionErr  FacePosition = "error"
)

const (
	faceRatioThreshold  = 0.10
	whiteRatioThreshold = 0.40
	minBrightness       = 50.0
	maxBrightness       = 200.0

	// rows scanned between context checks
	scanCheckInterval = 64
)

// HeuristicReport holds the outcome of the pixel heuristics for one image.
//
// EyesOpen and FacePosition are placeholders: no landmark model runs, so they
// are fixed to true and "centered" whenever the scan succeeds. EyeDetectionAvailable
// is always false and callers must not enforce on either field.
//
// FaceDetected is a skin-tone ratio, not real face detection. It reports false
// positives on skin-coloured backgrounds and misses faces covering less than
// 10% of the frame.
type HeuristicReport struct {
	FaceDetected          bool         `json:"faceDetected"`
	EyesOpen              bool         `json:"eyesOpen"`
	ProperLighting        bool         `json:"properLighting"`
	WhiteBackground       bool         `json:"whiteBackground"`
	FacePosition          FacePosition `json:"facePosition"`
	EyeDetectionAvailable bool         `json:"eyeDetectionAvailable"`

	SkinToneRatio     float64 `json:"skinToneRatio"`
	AverageBrightness float64 `json:"averageBrightness"`
	WhiteRatio        float64 `json:"whiteRatio"`
}

func failedReport() HeuristicReport {
	return HeuristicReport{FacePosition: FacePositionErr}
}

// Analyze runs the heuristics over buf without a deadline.
func Analyze(buf *PixelBuffer) HeuristicReport {
	report, _ := AnalyzeContext(context.Background(), buf)
	return report
}

// AnalyzeContext runs the heuristics in a single pass over buf. A buffer that
// cannot be scanned yields an all-false report rather than an error; the only
// error returned is the context's.
func AnalyzeContext(ctx context.Context, buf *PixelBuffer) (HeuristicReport, error) {
	if !buf.Valid() {
		return failedReport(), nil
	}

	var skin, white, brightnessSum int64
	rowBytes := buf.Width * 4
	for y := 0; y < buf.Height; y++ {
		if y%scanCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return failedReport(), err
			}
		}
		row := buf.Pix[y*rowBytes : (y+1)*rowBytes]
		for i := 0; i < len(row); i += 4 {
			r, g, b := int(row[i]), int(row[i+1]), int(row[i+2])
			if isSkinTone(r, g, b) {
				skin++
			}
			if r > 200 && g > 200 && b > 200 {
				white++
			}
			brightnessSum += int64(r + g + b)
		}
	}

	total := float64(buf.Width * buf.Height)
	skinRatio := float64(skin) / total
	whiteRatio := float64(white) / total
	avgBrightness := float64(brightnessSum) / 3 / total

	return HeuristicReport{
		FaceDetected:      skinRatio > faceRatioThreshold,
		EyesOpen:          true,
		ProperLighting:    avgBrightness > minBrightness && avgBrightness < maxBrightness,
		WhiteBackground:   whiteRatio > whiteRatioThreshold,
		FacePosition:      FaceCentered,
		SkinToneRatio:     skinRatio,
		AverageBrightness: avgBrightness,
		WhiteRatio:        whiteRatio,
	}, nil
}

func isSkinTone(r, g, b int) bool {
	if r <= 95 || g <= 40 || b <= 20 {
		return false
	}
	hi, lo := max(r, g, b), min(r, g, b)
	rg := r - g
	if rg < 0 {
		rg = -rg
	}
	return hi-lo > 15 && rg > 15 && r > g && r > b
}
