package imagefraud

import (
	"bytes"
	"image"
	_ "image/gif" // register decoders for DecodeConfig
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/rotisserie/eris"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/parse"
)

// DefaultPhysicalWidthCM is the width of a passport data page.
const DefaultPhysicalWidthCM = 12.5

// ImageSize returns the pixel dimensions of an encoded image without
// decoding the pixels.
func ImageSize(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, eris.Wrap(err, "imagefraud: decode image header")
	}
	return cfg.Width, cfg.Height, nil
}

// Measure builds the geometry of detected components. Distances are only
// computed when at least two components were found; pairs follow detection
// order.
func Measure(components map[model.Landmark]model.BoundingBox, width, height int, physicalWidthCM float64) model.PassportGeometry {
	g := model.PassportGeometry{
		Components:  components,
		ImageWidth:  width,
		ImageHeight: height,
	}
	if len(components) < 2 {
		return g
	}

	var found []model.Landmark
	for _, l := range model.Landmarks {
		if _, ok := components[l]; ok {
			found = append(found, l)
		}
	}

	g.Distances = make(map[model.LandmarkPair]model.DistanceMetrics)
	for _, p := range model.Pairs(found) {
		g.Distances[p] = distance(components[p.A], components[p.B], width, physicalWidthCM)
	}
	return g
}

func distance(a, b model.BoundingBox, width int, physicalWidthCM float64) model.DistanceMetrics {
	ax, ay := a.Center()
	bx, by := b.Center()
	px := math.Hypot(float64(bx-ax), float64(by-ay))

	var norm float64
	if width > 0 {
		norm = px / float64(width)
	}
	return model.DistanceMetrics{
		PixelDistance:      parse.Round(px, 2),
		NormalizedDistance: parse.Round(norm, 4),
		ApproxDistanceCM:   parse.Round(norm*physicalWidthCM, 2),
	}
}
