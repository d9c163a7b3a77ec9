// Package overlay renders captured frames and detection boxes onto an
// in-memory raster surface and encodes the result as JPEG.
package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/harborlabs/seawatch/pkg/detect"
)

// DefaultJPEGQuality matches what the capture pipeline submits upstream.
const DefaultJPEGQuality = 85

const strokeWidth = 2

var (
	boxColor   = color.RGBA{G: 255, A: 255}
	captionInk = color.RGBA{A: 255}
)

// Surface is a drawable raster target. It is owned by a single writer;
// methods are not safe for concurrent use.
type Surface struct {
	img *image.RGBA
}

// NewSurface creates a surface with the given dimensions.
func NewSurface(width, height int) *Surface {
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Size returns the current surface dimensions.
func (s *Surface) Size() (int, int) {
	return s.img.Bounds().Dx(), s.img.Bounds().Dy()
}

// Resize adjusts the surface to the given dimensions. When they already
// match, the existing pixels are kept; otherwise the surface is replaced
// with a blank one, the way a raster target resets on resize.
func (s *Surface) Resize(width, height int) {
	if w, h := s.Size(); w == width && h == height {
		return
	}
	s.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

// DrawImage paints img over the whole surface, anchored at the origin.
func (s *Surface) DrawImage(img image.Image) {
	draw.Draw(s.img, s.img.Bounds(), img, img.Bounds().Min, draw.Src)
}

// DrawDetections renders each detection in order: a green rectangle
// outline between the reported corners, a filled caption background and
// the caption text. Coordinates are used exactly as reported. Inverted
// corners stroke the same outline as their normalized form, and anything
// falling outside the surface is clipped, never clamped back into view.
func (s *Surface) DrawDetections(dets []detect.Detection) {
	for _, d := range dets {
		s.strokeRect(d.X1, d.Y1, d.X2, d.Y2)
		s.drawCaption(d)
	}
}

func (s *Surface) strokeRect(x1f, y1f, x2f, y2f float64) {
	x1, y1 := round(x1f), round(y1f)
	x2, y2 := round(x2f), round(y2f)
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}

	edges := []image.Rectangle{
		image.Rect(x1, y1, x2, y1+strokeWidth),
		image.Rect(x1, y2-strokeWidth, x2, y2),
		image.Rect(x1, y1, x1+strokeWidth, y2),
		image.Rect(x2-strokeWidth, y1, x2, y2),
	}
	for _, e := range edges {
		s.fill(e, boxColor)
	}
}

func (s *Surface) drawCaption(d detect.Detection) {
	caption := d.Caption()
	face := basicfont.Face7x13
	width := font.MeasureString(face, caption).Ceil()

	origin := captionOrigin(d)
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()

	bg := image.Rect(
		origin.X-captionPad,
		origin.Y-ascent-2,
		origin.X+width+captionPad,
		origin.Y+descent+2,
	)
	s.fill(bg, boxColor)

	drawer := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(captionInk),
		Face: face,
		Dot:  fixed.P(origin.X, origin.Y),
	}
	drawer.DrawString(caption)
}

const captionPad = 4

// captionOrigin is the caption baseline origin: 4px right of the box's
// first corner and 6px above it.
func captionOrigin(d detect.Detection) image.Point {
	return image.Pt(round(d.X1)+4, round(d.Y1)-6)
}

func (s *Surface) fill(r image.Rectangle, c color.RGBA) {
	r = r.Intersect(s.img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(s.img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// EncodeJPEG returns the surface contents as JPEG.
func (s *Surface) EncodeJPEG(quality int) ([]byte, error) {
	return EncodeJPEG(s.img, quality)
}

// Snapshot returns a deep copy of the surface pixels.
func (s *Surface) Snapshot() *image.RGBA {
	clone := image.NewRGBA(s.img.Bounds())
	copy(clone.Pix, s.img.Pix)
	return clone
}

// EncodeJPEG encodes any image as JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("overlay: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func round(v float64) int {
	return int(math.Round(v))
}
