package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"CanvasBoard/internal/board"
)

// BoardWidget shows the board surface at one unit per pixel and feeds
// primary-button gestures to the board.
type BoardWidget struct {
	widget.BaseWidget
	board *board.Board
	size  fyne.Size
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)

func NewBoardWidget(b *board.Board) *BoardWidget {
	bounds := b.Image().Bounds()
	w := &BoardWidget{
		board: b,
		size:  fyne.NewSize(float32(bounds.Dx()), float32(bounds.Dy())),
	}
	w.ExtendBaseWidget(w)
	// board callbacks arrive from the network goroutine too
	b.OnChange(func() {
		fyne.Do(w.Refresh)
	})
	return w
}

func (w *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	w.board.PointerDown(float64(e.Position.X), float64(e.Position.Y))
}

func (w *BoardWidget) Dragged(e *fyne.DragEvent) {
	w.board.PointerMove(float64(e.Position.X), float64(e.Position.Y))
}

func (w *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	w.board.PointerUp()
}

// DragEnd can fire without a matching MouseUp when the pointer leaves the
// window; a second PointerUp is ignored by the board.
func (w *BoardWidget) DragEnd() {
	w.board.PointerUp()
}

func (w *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	img := canvas.NewImageFromImage(w.board.Image())
	img.FillMode = canvas.ImageFillOriginal
	img.ScaleMode = canvas.ImageScalePixels
	return &boardWidgetRenderer{widget: w, image: img}
}

type boardWidgetRenderer struct {
	widget *BoardWidget
	image  *canvas.Image
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.image}
}

func (r *boardWidgetRenderer) Refresh() {
	r.image.Image = r.widget.board.Image()
	r.image.Refresh()
}

func (r *boardWidgetRenderer) Layout(fyne.Size) {
	r.image.Move(fyne.NewPos(0, 0))
	r.image.Resize(r.widget.size)
}

func (r *boardWidgetRenderer) MinSize() fyne.Size { return r.widget.size }
func (r *boardWidgetRenderer) Destroy() {}
