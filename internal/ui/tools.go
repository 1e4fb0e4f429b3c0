package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"CanvasBoard/internal/board"
	"CanvasBoard/internal/state"
)

type swatch struct {
	hex   string
	color color.Color
}

var palette = []swatch{
	{hex: "#000000", color: color.Black},
	{hex: "#ff0000", color: color.NRGBA{R: 255, A: 255}},
	{hex: "#00ff00", color: color.NRGBA{G: 255, A: 255}},
	{hex: "#0000ff", color: color.NRGBA{B: 255, A: 255}},
	{hex: "#ffff00", color: color.NRGBA{R: 255, G: 255, A: 255}},
}

type colorSwatch struct {
	widget.BaseWidget
	swatch   swatch
	OnTapped func(hex string)
}

func newColorSwatch(s swatch, tapped func(hex string)) *colorSwatch {
	cs := &colorSwatch{swatch: s, OnTapped: tapped}
	cs.ExtendBaseWidget(cs)
	return cs
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.swatch.color)
	rect.SetMinSize(fyne.NewSize(32, 32))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.swatch.hex)
	}
}

// actions are the toolbar callbacks that need the window.
type actions struct {
	exportPNG       func()
	exportPDF       func()
	exportSelection func()
	reconnect       func()
	report          func(err error)
}

func newToolbar(b *board.Board, a actions) fyne.CanvasObject {
	selectTool := func(tool state.Tool) func() {
		return func() {
			if err := b.SelectTool(tool); err != nil {
				a.report(err)
			}
		}
	}
	tb := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentCreateIcon(), selectTool(state.ToolPencil)),
		widget.NewToolbarAction(theme.DeleteIcon(), selectTool(state.ToolEraser)),
		widget.NewToolbarAction(theme.ViewFullScreenIcon(), selectTool(state.ToolSelect)),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { b.Undo() }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { b.Redo() }),
		widget.NewToolbarAction(theme.ContentClearIcon(), b.Clear),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentCopyIcon(), a.exportSelection),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), a.exportPNG),
		widget.NewToolbarAction(theme.DocumentPrintIcon(), a.exportPDF),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), a.reconnect),
	)

	colorBox := container.NewHBox()
	for _, s := range palette {
		colorBox.Add(newColorSwatch(s, func(hex string) {
			if err := b.ChangeColor(hex); err != nil {
				a.report(err)
			}
		}))
	}

	widthSlider := widget.NewSlider(board.MinLineWidth, board.MaxLineWidth)
	widthSlider.SetValue(b.LineWidth())
	widthSlider.OnChanged = b.ChangeLineWidth
	sliderContainer := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), widthSlider)

	return container.NewHBox(
		widget.NewLabel("Tool:"),
		tb,
		widget.NewSeparator(),
		widget.NewLabel("Color:"),
		colorBox,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		sliderContainer,
		layout.NewSpacer(),
	)
}
