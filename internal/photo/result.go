package photo

// ValidationResult is the verdict returned to callers of ValidatePassportPhoto.
type ValidationResult struct {
	Passed     bool            `json:"passed"`
	Confidence float64         `json:"confidence"`
	Details    HeuristicReport `json:"details"`
	Message    string          `json:"message"`
}

const (
	MsgNoFace        = "No face detected in the image"
	MsgPoorLighting  = "Poor lighting detected. Please use better lighting."
	MsgNeedWhiteBG   = "White background required. Please use a white background."
	MsgEyesClosed    = "Eyes must be open and clearly visible."
	MsgMeetsRequired = "Photo meets passport requirements"
	MsgFailsRequired = "Photo does not meet requirements"
)

// Format builds the result. Rules are evaluated in order and the first match
// picks the message. A missing face forces passed to false; the other rules
// only choose the message, so a photo can pass with a lighting complaint.
func Format(report HeuristicReport, confidence float64, passed bool) ValidationResult {
	result := ValidationResult{
		Passed:     passed,
		Confidence: confidence,
		Details:    report,
	}

	switch {
	case !report.FaceDetected:
		result.Passed = false
		result.Message = MsgNoFace
	case !report.ProperLighting:
		result.Message = MsgPoorLighting
	case !report.WhiteBackground:
		result.Message = MsgNeedWhiteBG
	case !report.EyesOpen:
		result.Message = MsgEyesClosed
	case passed:
		result.Message = MsgMeetsRequired
	default:
		result.Message = MsgFailsRequired
	}
	return result
}
