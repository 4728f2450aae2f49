package imagefraud

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwriting-cli/pkg/visionagent"
)

// blankPNG returns a white PNG of the given size.
func blankPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// scriptedClient replays responses per prompt; a nil response with a nil
// error is returned as an empty detection list.
type scriptedClient struct {
	mu     sync.Mutex
	script map[string][]scripted
	calls  map[string]int
}

type scripted struct {
	resp *visionagent.Response
	err  error
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{script: map[string][]scripted{}, calls: map[string]int{}}
}

func (c *scriptedClient) on(prompt string, steps ...scripted) {
	c.script[prompt] = steps
}

func (c *scriptedClient) Detect(_ context.Context, _ []byte, _ string, prompt string) (*visionagent.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.calls[prompt]
	c.calls[prompt] = n + 1
	steps := c.script[prompt]
	if len(steps) == 0 {
		return &visionagent.Response{Data: [][]visionagent.Detection{{}}}, nil
	}
	if n >= len(steps) {
		n = len(steps) - 1
	}
	s := steps[n]
	if s.resp == nil && s.err == nil {
		return &visionagent.Response{Data: [][]visionagent.Detection{{}}}, nil
	}
	return s.resp, s.err
}

func (c *scriptedClient) callCount(prompt string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[prompt]
}

func found(boxes ...[]float64) scripted {
	var dets []visionagent.Detection
	for _, b := range boxes {
		dets = append(dets, visionagent.Detection{Label: "x", Score: 0.9, BoundingBox: b})
	}
	return scripted{resp: &visionagent.Response{Data: [][]visionagent.Detection{dets}}}
}

type fakeSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}
