// Package raster owns the visible drawing surface: stroke compositing,
// full-surface snapshots and rectangular capture.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"

	"github.com/fogleman/gg"

	"CanvasBoard/internal/state"
)

const (
	DefaultBackground  = "#ffffff"
	DefaultEraserWidth = 20.0

	previewColor = "#0066ff"
	previewWidth = 2.0
	previewDash  = 5.0
)

// ErrNoSurface means no drawing surface could be acquired. A board cannot
// enter drawing mode without one.
var ErrNoSurface = errors.New("no drawing surface")

// Surface is the live raster. It is not safe for concurrent use; the board
// serializes access.
type Surface struct {
	img        *image.RGBA
	dc         *gg.Context
	background string
}

// NewSurface allocates a w x h surface filled with the background color.
func NewSurface(w, h int, background string) (*Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrNoSurface, w, h)
	}
	if background == "" {
		background = DefaultBackground
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	s := &Surface{
		img:        img,
		dc:         gg.NewContextForRGBA(img),
		background: background,
	}
	s.Clear()
	return s, nil
}

func (s *Surface) Bounds() image.Rectangle { return s.img.Bounds() }
func (s *Surface) Width() int              { return s.img.Bounds().Dx() }
func (s *Surface) Height() int             { return s.img.Bounds().Dy() }
func (s *Surface) Background() string      { return s.background }

// Clear fills the whole surface with the background color.
func (s *Surface) Clear() {
	s.dc.ClearPath()
	s.dc.SetDash()
	s.dc.SetHexColor(s.background)
	s.dc.Clear()
}

// Segment composites one stroke segment. The eraser paints the background
// color; both tools use round caps and joins so consecutive segments meet
// without gaps.
func (s *Surface) Segment(brush state.Brush, from, to state.Point) {
	s.dc.ClearPath()
	s.dc.SetDash()
	if brush.Tool == state.ToolEraser {
		s.dc.SetHexColor(s.background)
	} else {
		s.dc.SetHexColor(brush.Color)
	}
	s.dc.SetLineWidth(brush.Width)
	s.dc.SetLineCap(gg.LineCapRound)
	s.dc.SetLineJoin(gg.LineJoinRound)
	s.dc.MoveTo(from.X, from.Y)
	s.dc.LineTo(to.X, to.Y)
	s.dc.Stroke()
}

// Stroke replays a whole polyline segment by segment, rasterizing exactly as
// the incremental segments did while it was drawn. Fewer than two points
// draw nothing and report false.
func (s *Surface) Stroke(brush state.Brush, points []state.Point) bool {
	if len(points) < 2 {
		return false
	}
	for i := 1; i < len(points); i++ {
		s.Segment(brush, points[i-1], points[i])
	}
	return true
}

// Preview outlines the selection rectangle with a dashed line.
func (s *Surface) Preview(start, end state.Point) {
	s.dc.ClearPath()
	s.dc.SetHexColor(previewColor)
	s.dc.SetLineWidth(previewWidth)
	s.dc.SetLineCap(gg.LineCapButt)
	s.dc.SetLineJoin(gg.LineJoinBevel)
	s.dc.SetDash(previewDash, previewDash)
	s.dc.DrawRectangle(start.X, start.Y, end.X-start.X, end.Y-start.Y)
	s.dc.Stroke()
	s.dc.SetDash()
}

// Image returns a copy of the visible pixels.
func (s *Surface) Image() *image.RGBA {
	return cloneRGBA(s.img)
}

// Snapshot copies the full surface.
func (s *Surface) Snapshot() *Snapshot {
	return &Snapshot{img: cloneRGBA(s.img)}
}

// Restore overwrites the surface with snap. A nil snapshot is ignored.
func (s *Surface) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}
	draw.Draw(s.img, s.img.Bounds(), snap.img, snap.img.Bounds().Min, draw.Src)
}

// EncodePNG writes the visible surface as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	return s.dc.EncodePNG(w)
}

// Snapshot is an immutable capture of the full surface.
type Snapshot struct {
	img *image.RGBA
}

// Image returns a copy of the snapshot's pixels.
func (s *Snapshot) Image() *image.RGBA {
	return cloneRGBA(s.img)
}

func (s *Snapshot) Bounds() image.Rectangle { return s.img.Bounds() }

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
