package imagefraud

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/parse"
)

// Analyzer compares measured passport geometry with a reference.
type Analyzer struct {
	ref Reference
}

// NewAnalyzer returns an Analyzer for ref after validating it.
func NewAnalyzer(ref Reference) (*Analyzer, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{ref: ref}, nil
}

// Reference returns the baseline in use.
func (a *Analyzer) Reference() Reference { return a.ref }

// Analyze scores g against the reference. The risk level comes from the
// largest pair deviation; confidence from the average, halved when a
// reference component is missing. A geometry with no measurable pair is
// critical and not authentic.
func (a *Analyzer) Analyze(g model.PassportGeometry) model.FraudAnalysisResult {
	var flags []string

	var missing, extra []string
	for _, l := range a.ref.componentOrder() {
		if _, ok := g.Components[l]; !ok {
			missing = append(missing, string(l))
		}
	}
	for _, l := range sortedLandmarks(g.Components) {
		if _, ok := a.ref.Components[l]; !ok {
			extra = append(extra, string(l))
		}
	}
	if len(missing) > 0 {
		flags = append(flags, "Missing components: "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		flags = append(flags, "Unexpected components: "+strings.Join(extra, ", "))
	}

	deviations := make(map[model.LandmarkPair]float64)
	var maxDev, sumDev float64
	for _, b := range a.ref.Distances {
		m, ok := g.Distances[b.Pair]
		if !ok {
			flags = append(flags, "Missing distance measurement for "+b.Pair.String())
			continue
		}

		measured := m.NormalizedDistance
		expected := b.Expected.NormalizedDistance
		dev := math.Abs(measured-expected) / expected
		deviations[b.Pair] = dev
		sumDev += dev
		maxDev = math.Max(maxDev, dev)

		switch {
		case dev > a.ref.Thresholds.High:
			flags = append(flags, fmt.Sprintf(
				"CRITICAL: %s distance deviation: %.1f%% (measured: %.4f, expected: %.4f)",
				b.Pair, dev*100, measured, expected))
		case dev > a.ref.Thresholds.Medium:
			flags = append(flags, fmt.Sprintf("WARNING: %s distance deviation: %.1f%%", b.Pair, dev*100))
		}
	}

	flags = append(flags, a.sizeAnomalies(g.Components)...)

	risk, authentic := a.riskLevel(maxDev)

	var avgDev, confidence float64
	if len(deviations) > 0 {
		avgDev = sumDev / float64(len(deviations))
		confidence = math.Max(0, (1-avgDev)*100)
		if len(missing) > 0 {
			confidence *= 0.5
		}
	} else {
		// Nothing to compare against the reference.
		flags = append(flags, "CRITICAL: no landmark distance could be measured")
		risk, authentic = model.RiskCritical, false
	}

	if flags == nil {
		flags = []string{}
	}
	return model.FraudAnalysisResult{
		IsAuthentic:     authentic,
		ConfidenceScore: parse.Round(confidence, 2),
		RiskLevel:       risk,
		Deviations:      deviations,
		Flags:           flags,
		Details: model.FraudDetails{
			MaxDeviation:       parse.Round(maxDev*100, 2),
			AvgDeviation:       parse.Round(avgDev*100, 2),
			ComponentsDetected: len(g.Components),
			ExpectedComponents: len(a.ref.Components),
		},
	}
}

// riskLevel bands a deviation. Each band includes its lower bound.
func (a *Analyzer) riskLevel(maxDev float64) (model.RiskLevel, bool) {
	t := a.ref.Thresholds
	switch {
	case maxDev >= t.Critical:
		return model.RiskCritical, false
	case maxDev >= t.High:
		return model.RiskHigh, false
	case maxDev >= t.Medium:
		return model.RiskMedium, false
	case maxDev >= t.Low:
		return model.RiskLow, true
	default:
		return model.RiskMinimal, true
	}
}

func (a *Analyzer) sizeAnomalies(components map[model.Landmark]model.BoundingBox) []string {
	var flags []string
	for _, l := range a.ref.componentOrder() {
		box, ok := components[l]
		if !ok {
			continue
		}
		refArea := signedArea(a.ref.Components[l])
		if refArea <= 0 {
			continue
		}
		ratio := signedArea(box) / refArea
		if ratio < 0.5 || ratio > 2.0 {
			flags = append(flags, fmt.Sprintf("Size anomaly in %s: area ratio %.2fx vs reference", l, ratio))
		}
	}
	return flags
}

// signedArea keeps the sign of an inverted box so it registers as an anomaly.
func signedArea(b model.BoundingBox) float64 {
	return (b[2] - b[0]) * (b[3] - b[1])
}

func sortedLandmarks(m map[model.Landmark]model.BoundingBox) []model.Landmark {
	var out []model.Landmark
	for _, l := range model.Landmarks {
		if _, ok := m[l]; ok {
			out = append(out, l)
		}
	}
	var rest []model.Landmark
	for l := range m {
		if !isKnown(l) {
			rest = append(rest, l)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

func isKnown(l model.Landmark) bool { return slices.Contains(model.Landmarks, l) }
