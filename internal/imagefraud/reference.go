package imagefraud

import (
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/underwriting-cli/internal/model"
)

// Thresholds are fractional deviation bounds. Each risk band includes its
// lower bound.
type Thresholds struct {
	Low      float64 `yaml:"low"`
	Medium   float64 `yaml:"medium"`
	High     float64 `yaml:"high"`
	Critical float64 `yaml:"critical"`
}

// PairBaseline is the expected distance of one landmark pair.
type PairBaseline struct {
	Pair     model.LandmarkPair    `yaml:"-"`
	A        model.Landmark        `yaml:"a"`
	B        model.Landmark        `yaml:"b"`
	Expected model.DistanceMetrics `yaml:"expected"`
}

// Reference is the geometry of an authentic passport that measured images
// are compared against.
type Reference struct {
	Components map[model.Landmark]model.BoundingBox `yaml:"components"`
	Distances  []PairBaseline                       `yaml:"distances"`
	Thresholds Thresholds                           `yaml:"thresholds"`
}

// DefaultThresholds returns the 5/10/15/20 percent bands.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.05, Medium: 0.10, High: 0.15, Critical: 0.20}
}

// DefaultReference returns the calibrated US passport baseline.
func DefaultReference() Reference {
	return Reference{
		Components: map[model.Landmark]model.BoundingBox{
			model.LandmarkMRZ:   {3, 694, 1248, 813},
			model.LandmarkPhoto: {61, 237, 363, 632},
			model.LandmarkEagle: {711, 255, 1088, 509},
		},
		Distances: []PairBaseline{
			baseline(model.LandmarkMRZ, model.LandmarkPhoto, 521.85, 0.4182, 5.23),
			baseline(model.LandmarkMRZ, model.LandmarkEagle, 461.21, 0.3696, 4.62),
			baseline(model.LandmarkPhoto, model.LandmarkEagle, 688.97, 0.5521, 6.9),
		},
		Thresholds: DefaultThresholds(),
	}
}

func baseline(a, b model.Landmark, px, norm, cm float64) PairBaseline {
	return PairBaseline{
		Pair: model.LandmarkPair{A: a, B: b},
		A:    a,
		B:    b,
		Expected: model.DistanceMetrics{
			PixelDistance:      px,
			NormalizedDistance: norm,
			ApproxDistanceCM:   cm,
		},
	}
}

// LoadReference reads a baseline from a YAML file. Omitted thresholds fall
// back to DefaultThresholds.
//
//	components:
//	  MRZ: [3, 694, 1248, 813]
//	distances:
//	  - a: MRZ
//	    b: Photo
//	    expected: {normalized_distance: 0.4182}
func LoadReference(path string) (Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Reference{}, eris.Wrapf(err, "imagefraud: read reference %s", path)
	}
	return ParseReference(data)
}

// ParseReference decodes and validates a YAML baseline.
func ParseReference(data []byte) (Reference, error) {
	var ref Reference
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return Reference{}, eris.Wrap(err, "imagefraud: parse reference")
	}
	if ref.Thresholds == (Thresholds{}) {
		ref.Thresholds = DefaultThresholds()
	}
	for i := range ref.Distances {
		ref.Distances[i].Pair = model.LandmarkPair{A: ref.Distances[i].A, B: ref.Distances[i].B}
	}
	if err := ref.Validate(); err != nil {
		return Reference{}, err
	}
	return ref, nil
}

// Validate checks that every baseline pair refers to reference components
// and has a positive expected distance.
func (r Reference) Validate() error {
	if len(r.Components) == 0 {
		return eris.New("imagefraud: reference has no components")
	}
	if len(r.Distances) == 0 {
		return eris.New("imagefraud: reference has no distances")
	}
	for _, d := range r.Distances {
		if _, ok := r.Components[d.Pair.A]; !ok {
			return eris.Errorf("imagefraud: reference pair %s names unknown component %s", d.Pair, d.Pair.A)
		}
		if _, ok := r.Components[d.Pair.B]; !ok {
			return eris.Errorf("imagefraud: reference pair %s names unknown component %s", d.Pair, d.Pair.B)
		}
		if d.Expected.NormalizedDistance <= 0 {
			return eris.Errorf("imagefraud: reference pair %s needs a positive normalized_distance", d.Pair)
		}
	}
	t := r.Thresholds
	if !(t.Low > 0 && t.Low <= t.Medium && t.Medium <= t.High && t.High <= t.Critical) {
		return eris.Errorf("imagefraud: thresholds must be positive and ascending, got %+v", t)
	}
	return nil
}

// componentOrder returns the reference components in detection order,
// followed by any others sorted by name.
func (r Reference) componentOrder() []model.Landmark {
	out := make([]model.Landmark, 0, len(r.Components))
	for _, l := range model.Landmarks {
		if _, ok := r.Components[l]; ok {
			out = append(out, l)
		}
	}
	var extra []model.Landmark
	for l := range r.Components {
		if !slices.Contains(model.Landmarks, l) {
			extra = append(extra, l)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}
