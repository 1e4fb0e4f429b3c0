package raster

import (
	"image"
	"image/draw"
	"math"

	"CanvasBoard/internal/state"
)

// SubImage is an immutable fragment captured from the surface, bound to the
// normalized rectangle it was read from.
type SubImage struct {
	Rect image.Rectangle
	img  *image.RGBA
}

// Empty reports whether the capture covered no pixels.
func (si *SubImage) Empty() bool {
	return si == nil || si.img == nil || si.Rect.Empty()
}

// Image returns a copy of the captured pixels, origin at (0,0).
func (si *SubImage) Image() *image.RGBA {
	if si.Empty() {
		return nil
	}
	return cloneRGBA(si.img)
}

// Normalize turns two arbitrary corners into a rectangle with non-negative
// width and height, rounded to whole pixels.
func Normalize(start, end state.Point) image.Rectangle {
	x0, y0 := int(math.Round(start.X)), int(math.Round(start.Y))
	x1, y1 := int(math.Round(end.X)), int(math.Round(end.Y))
	return image.Rect(x0, y0, x1, y1).Canon()
}

// Capture reads the pixels under the rectangle spanned by start and end from
// the live surface. Degenerate or off-surface rectangles yield an empty
// result.
func (s *Surface) Capture(start, end state.Point) *SubImage {
	rect := Normalize(start, end)
	if rect.Dx() == 0 || rect.Dy() == 0 {
		return &SubImage{Rect: rect}
	}
	clipped := rect.Intersect(s.img.Bounds())
	if clipped.Empty() {
		return &SubImage{Rect: clipped}
	}
	dst := image.NewRGBA(image.Rect(0, 0, clipped.Dx(), clipped.Dy()))
	draw.Draw(dst, dst.Bounds(), s.img, clipped.Min, draw.Src)
	return &SubImage{Rect: clipped, img: dst}
}
