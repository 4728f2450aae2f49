package model

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// TextFraudType is the outcome of the cross-document name check.
type TextFraudType string

const (
	TextFraudAuthentic TextFraudType = "Authentic"
	TextFraudWarning   TextFraudType = "Warning"
)

// TextFraudResult is persisted as fraud_report.
type TextFraudResult struct {
	Type    TextFraudType `json:"type"`
	Message string        `json:"message"`
	Text    []string      `json:"text"`
}

// Landmark is a passport region located by the detector.
type Landmark string

const (
	LandmarkMRZ   Landmark = "MRZ"
	LandmarkPhoto Landmark = "Photo"
	LandmarkEagle Landmark = "Eagle"
)

// Landmarks lists the landmarks in detection order.
var Landmarks = []Landmark{LandmarkMRZ, LandmarkPhoto, LandmarkEagle}

// BoundingBox is [x1, y1, x2, y2] in pixels.
type BoundingBox [4]float64

// Area returns the absolute box area, so corner order does not matter.
func (b BoundingBox) Area() float64 {
	return math.Abs((b[2] - b[0]) * (b[3] - b[1]))
}

// Center returns the box centre with coordinates truncated to whole pixels
// first, matching how detector output is drawn.
func (b BoundingBox) Center() (x, y int) {
	x1, y1, x2, y2 := int(b[0]), int(b[1]), int(b[2]), int(b[3])
	return (x1 + x2) / 2, (y1 + y2) / 2
}

// LandmarkPair names an unordered landmark pair. It renders as "A↔B".
type LandmarkPair struct {
	A Landmark
	B Landmark
}

const pairSep = "↔"

func (p LandmarkPair) String() string { return string(p.A) + pairSep + string(p.B) }

// MarshalText implements encoding.TextMarshaler so pairs can key JSON maps.
func (p LandmarkPair) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *LandmarkPair) UnmarshalText(b []byte) error {
	a, c, ok := strings.Cut(string(b), pairSep)
	if !ok || a == "" || c == "" {
		return eris.Errorf("model: invalid landmark pair %q", string(b))
	}
	p.A, p.B = Landmark(a), Landmark(c)
	return nil
}

// Pairs returns every unordered pair of ls, preserving order.
func Pairs(ls []Landmark) []LandmarkPair {
	var out []LandmarkPair
	for i := 0; i < len(ls); i++ {
		for j := i + 1; j < len(ls); j++ {
			out = append(out, LandmarkPair{A: ls[i], B: ls[j]})
		}
	}
	return out
}

// DistanceMetrics is the measured centre-to-centre distance of a pair.
type DistanceMetrics struct {
	PixelDistance      float64 `json:"pixel_distance" yaml:"pixel_distance"`
	NormalizedDistance float64 `json:"normalized_distance" yaml:"normalized_distance"`
	ApproxDistanceCM   float64 `json:"approx_distance_cm" yaml:"approx_distance_cm"`
}

// PassportGeometry is the detector output for one passport image.
type PassportGeometry struct {
	Components  map[Landmark]BoundingBox         `json:"components"`
	Distances   map[LandmarkPair]DistanceMetrics `json:"distances"`
	ImageWidth  int                              `json:"image_width"`
	ImageHeight int                              `json:"image_height"`
}

// RiskLevel bands the maximum landmark distance deviation.
type RiskLevel string

const (
	RiskMinimal  RiskLevel = "MINIMAL"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// FraudDetails carries aggregate figures behind a FraudAnalysisResult.
type FraudDetails struct {
	MaxDeviation       float64 `json:"max_deviation"`
	AvgDeviation       float64 `json:"avg_deviation"`
	ComponentsDetected int     `json:"components_detected"`
	ExpectedComponents int     `json:"expected_components"`
}

// FraudAnalysisResult is persisted as identity-documents_fraud_report.
type FraudAnalysisResult struct {
	IsAuthentic     bool                     `json:"is_authentic"`
	ConfidenceScore float64                  `json:"confidence_score"`
	RiskLevel       RiskLevel                `json:"risk_level"`
	Deviations      map[LandmarkPair]float64 `json:"deviations"`
	Flags           []string                 `json:"flags"`
	Details         FraudDetails             `json:"details"`
}
