// Package imagefraud checks passport authenticity from the relative
// placement of the MRZ, photo and eagle emblem on the data page.
package imagefraud

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/resilience"
	"github.com/sells-group/underwriting-cli/pkg/visionagent"
)

// DefaultPrompts maps each landmark to its detection prompt.
var DefaultPrompts = map[model.Landmark]string{
	model.LandmarkMRZ:   "Find the large Machine-Readable Zone code at the bottom of the screen",
	model.LandmarkPhoto: "Find the big user photo",
	model.LandmarkEagle: "Find the big Eagle",
}

// ErrNoDetection is returned for a landmark the detector did not find.
var ErrNoDetection = eris.New("imagefraud: no detection")

// ErrInvalidBox is returned when the detector returns a malformed box.
var ErrInvalidBox = eris.New("imagefraud: invalid bounding box")

// ErrDetectorUnavailable is returned when every landmark failed with a
// transient error, so the image was never actually inspected.
var ErrDetectorUnavailable = eris.New("imagefraud: detector unavailable")

// Detector locates passport landmarks through the object-detection API.
type Detector struct {
	client          visionagent.Client
	policy          resilience.Policy
	prompts         map[model.Landmark]string
	physicalWidthCM float64
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithPolicy sets the per-landmark retry policy.
func WithPolicy(p resilience.Policy) DetectorOption {
	return func(d *Detector) { d.policy = p }
}

// WithPhysicalWidth sets the assumed document width in centimetres.
func WithPhysicalWidth(cm float64) DetectorOption {
	return func(d *Detector) {
		if cm > 0 {
			d.physicalWidthCM = cm
		}
	}
}

// WithPrompts overrides the detection prompts.
func WithPrompts(prompts map[model.Landmark]string) DetectorOption {
	return func(d *Detector) { d.prompts = prompts }
}

// NewDetector creates a Detector. Every detector error is retried, up to the
// policy's attempt limit.
func NewDetector(client visionagent.Client, opts ...DetectorOption) *Detector {
	d := &Detector{
		client:          client,
		policy:          resilience.DefaultPolicy(),
		prompts:         DefaultPrompts,
		physicalWidthCM: DefaultPhysicalWidthCM,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.policy.ShouldRetry = resilience.RetryAll
	return d
}

// Detect finds each landmark in the image and measures their geometry.
// Landmarks that are never found are logged and left out. The call fails
// on an unreadable image, a cancelled context, or when every landmark
// failed transiently (ErrDetectorUnavailable).
func (d *Detector) Detect(ctx context.Context, img []byte, filename string) (model.PassportGeometry, error) {
	width, height, err := ImageSize(img)
	if err != nil {
		return model.PassportGeometry{}, err
	}

	log := zap.L().With(zap.String("filename", filename))
	components := make(map[model.Landmark]model.BoundingBox)
	var attempted, transient int

	for _, l := range model.Landmarks {
		prompt, ok := d.prompts[l]
		if !ok {
			continue
		}
		attempted++

		p := d.policy
		p.OnRetry = resilience.RetryLogger("imagefraud.detect", zap.String("landmark", string(l)))

		box, err := resilience.DoVal(ctx, p, func(ctx context.Context) (model.BoundingBox, error) {
			return d.detectOne(ctx, img, filename, prompt)
		})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.PassportGeometry{}, eris.Wrap(ctxErr, "imagefraud: detect")
		}
		if err != nil {
			isTransient := resilience.IsTransient(err)
			if isTransient {
				transient++
			}
			log.Warn("imagefraud: landmark not detected",
				zap.String("landmark", string(l)),
				zap.Int("attempts", p.MaxAttempts),
				zap.Bool("transient", isTransient),
				zap.Error(err),
			)
			continue
		}

		log.Debug("imagefraud: landmark detected",
			zap.String("landmark", string(l)),
			zap.Float64s("box", box[:]),
		)
		components[l] = box
	}

	if attempted > 0 && transient == attempted {
		return model.PassportGeometry{}, eris.Wrapf(ErrDetectorUnavailable,
			"all %d landmarks failed transiently", attempted)
	}
	if len(components) < 2 {
		log.Warn("imagefraud: not enough landmarks for distance measurement",
			zap.Int("detected", len(components)),
		)
	}

	return Measure(components, width, height, d.physicalWidthCM), nil
}

func (d *Detector) detectOne(ctx context.Context, img []byte, filename, prompt string) (model.BoundingBox, error) {
	resp, err := d.client.Detect(ctx, img, filename, prompt)
	if err != nil {
		return model.BoundingBox{}, err
	}
	return largestBox(resp)
}

// largestBox keeps the biggest box from the first detection group.
func largestBox(resp *visionagent.Response) (model.BoundingBox, error) {
	if resp == nil || len(resp.Data) == 0 || len(resp.Data[0]) == 0 {
		return model.BoundingBox{}, ErrNoDetection
	}

	best := -1.0
	var box model.BoundingBox
	var found bool
	for _, det := range resp.Data[0] {
		area := 0.0
		var b model.BoundingBox
		if len(det.BoundingBox) == 4 {
			copy(b[:], det.BoundingBox)
			area = b.Area()
		}
		if area > best {
			best = area
			box = b
			found = len(det.BoundingBox) == 4
		}
	}
	if !found {
		return model.BoundingBox{}, ErrInvalidBox
	}
	return box, nil
}
