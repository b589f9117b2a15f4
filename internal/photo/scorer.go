package photo

import "math"

// DefaultThreshold is the confidence a photo must exceed to pass.
const DefaultThreshold = 0.6

// Weights assigns the confidence contribution of each heuristic.
type Weights struct {
	Face       float64
	EyesOpen   float64
	Lighting   float64
	Background float64
}

// DefaultWeights returns 0.4/0.2/0.2/0.2.
func DefaultWeights() Weights {
	return Weights{Face: 0.4, EyesOpen: 0.2, Lighting: 0.2, Background: 0.2}
}

// Scorer turns a heuristic report into a confidence and verdict.
type Scorer struct {
	Weights   Weights
	Threshold float64
}

// NewScorer returns a scorer with the default weights and threshold.
func NewScorer() Scorer {
	return Scorer{Weights: DefaultWeights(), Threshold: DefaultThreshold}
}

// Score sums the weights of the passing checks, clamped to [0,1]. The sum is
// rounded to nine decimals so that 0.4+0.2 compares equal to 0.6.
func (s Scorer) Score(report HeuristicReport) float64 {
	var confidence float64
	if report.FaceDetected {
		confidence += s.Weights.Face
	}
	if report.EyesOpen {
		confidence += s.Weights.EyesOpen
	}
	if report.ProperLighting {
		confidence += s.Weights.Lighting
	}
	if report.WhiteBackground {
		confidence += s.Weights.Background
	}
	confidence = math.Round(confidence*1e9) / 1e9
	return math.Min(1, math.Max(0, confidence))
}

// Passed reports whether confidence clears the threshold.
func (s Scorer) Passed(confidence float64) bool {
	return confidence > s.Threshold
}
