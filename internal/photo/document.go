package photo

import (
	"context"
	"math"
)

const (
	minDocumentContrast  = 30.0
	minDocumentSharpness = 100.0

	MsgDocumentOK         = "Document image quality is acceptable"
	MsgDocumentLighting   = "Document is too dark or overexposed. Please rescan in even lighting."
	MsgDocumentContrast   = "Document contrast is too low. Please place it on a contrasting surface."
	MsgDocumentBlurry     = "Document image is blurry. Please hold the camera steady and refocus."
	MsgDocumentUnreadable = "Document image could not be analysed."
)

// DocumentReport summarises the scan quality of a supporting document.
type DocumentReport struct {
	Passed     bool     `json:"passed"`
	Brightness float64  `json:"brightness"`
	Contrast   float64  `json:"contrast"`
	Sharpness  float64  `json:"sharpness"`
	Issues     []string `json:"issues"`
	Message    string   `json:"message"`
}

// AssessDocumentContext measures brightness, contrast and sharpness of buf on
// the luma channel. Sharpness is the variance of the 4-neighbour Laplacian.
func AssessDocumentContext(ctx context.Context, buf *PixelBuffer) (DocumentReport, error) {
	if !buf.Valid() {
		return DocumentReport{Issues: []string{MsgDocumentUnreadable}, Message: MsgDocumentUnreadable}, nil
	}

	w, h := buf.Width, buf.Height
	luma := make([]float64, w*h)
	var sum, sumSq float64
	for y := 0; y < h; y++ {
		if y%scanCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return DocumentReport{}, err
			}
		}
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			v := 0.299*float64(buf.Pix[i]) + 0.587*float64(buf.Pix[i+1]) + 0.114*float64(buf.Pix[i+2])
			luma[y*w+x] = v
			sum += v
			sumSq += v * v
		}
	}
	n := float64(w * h)
	mean := sum / n
	contrast := math.Sqrt(math.Max(0, sumSq/n-mean*mean))

	var sharpness float64
	if w >= 3 && h >= 3 {
		var lapSum, lapSq float64
		for y := 1; y < h-1; y++ {
			if y%scanCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return DocumentReport{}, err
				}
			}
			for x := 1; x < w-1; x++ {
				c := y*w + x
				lap := luma[c-w] + luma[c+w] + luma[c-1] + luma[c+1] - 4*luma[c]
				lapSum += lap
				lapSq += lap * lap
			}
		}
		m := float64((w - 2) * (h - 2))
		lapMean := lapSum / m
		sharpness = math.Max(0, lapSq/m-lapMean*lapMean)
	}

	report := DocumentReport{
		Brightness: mean,
		Contrast:   contrast,
		Sharpness:  sharpness,
		Issues:     []string{},
	}
	if mean <= minBrightness || mean >= maxBrightness {
		report.Issues = append(report.Issues, MsgDocumentLighting)
	}
	if contrast < minDocumentContrast {
		report.Issues = append(report.Issues, MsgDocumentContrast)
	}
	if sharpness < minDocumentSharpness {
		report.Issues = append(report.Issues, MsgDocumentBlurry)
	}

	report.Passed = len(report.Issues) == 0
	if report.Passed {
		report.Message = MsgDocumentOK
	} else {
		report.Message = report.Issues[0]
	}
	return report, nil
}
