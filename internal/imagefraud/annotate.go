package imagefraud

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/rotisserie/eris"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/sells-group/underwriting-cli/internal/model"
)

var (
	boxColor    = color.RGBA{G: 255, A: 255}
	centerColor = color.RGBA{B: 255, A: 255}
	lineColor   = color.RGBA{R: 255, A: 255}
	labelColor  = color.RGBA{R: 255, G: 255, A: 255}
)

// Annotate draws the detected boxes, their centres and the measured
// centre-to-centre lines onto the image and returns it as PNG.
func Annotate(img []byte, g model.PassportGeometry) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, eris.Wrap(err, "imagefraud: decode image")
	}

	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	for _, l := range sortedLandmarks(g.Components) {
		b := g.Components[l]
		x1, y1, x2, y2 := int(b[0]), int(b[1]), int(b[2]), int(b[3])
		drawRect(canvas, x1, y1, x2, y2, 2, boxColor)
		drawLabel(canvas, x1, max(y1-10, 20), string(l), boxColor)
		cx, cy := b.Center()
		fillCircle(canvas, cx, cy, 5, centerColor)
	}

	for _, p := range model.Pairs(sortedLandmarks(g.Components)) {
		m, ok := g.Distances[p]
		if !ok {
			continue
		}
		ax, ay := g.Components[p.A].Center()
		bx, by := g.Components[p.B].Center()
		drawLine(canvas, ax, ay, bx, by, 2, lineColor)
		drawLabel(canvas, (ax+bx)/2, (ay+by)/2,
			fmt.Sprintf("%.1fpx (%.2fcm)", m.PixelDistance, m.ApproxDistanceCM), labelColor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, eris.Wrap(err, "imagefraud: encode png")
	}
	return buf.Bytes(), nil
}

func drawRect(img *image.RGBA, x1, y1, x2, y2, thickness int, c color.Color) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	for t := 0; t < thickness; t++ {
		for x := x1; x <= x2; x++ {
			img.Set(x, y1+t, c)
			img.Set(x, y2-t, c)
		}
		for y := y1; y <= y2; y++ {
			img.Set(x1+t, y, c)
			img.Set(x2-t, y, c)
		}
	}
}

func fillCircle(img *image.RGBA, cx, cy, r int, c color.Color) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				img.Set(cx+x, cy+y, c)
			}
		}
	}
}

// drawLine uses Bresenham's algorithm, thickened by stamping squares.
func drawLine(img *image.RGBA, x0, y0, x1, y1, thickness int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	half := thickness / 2
	for {
		for oy := -half; oy <= half; oy++ {
			for ox := -half; ox <= half; ox++ {
				img.Set(x0+ox, y0+oy, c)
			}
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func drawLabel(img *image.RGBA, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
