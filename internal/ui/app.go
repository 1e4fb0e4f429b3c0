// Package ui is the desktop front end of a board session.
package ui

import (
	"errors"
	"fmt"
	"image/png"
	"io"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"CanvasBoard/internal/board"
	"CanvasBoard/internal/state"
)

var errEmptySelection = errors.New("nothing selected")

type App struct {
	log    zerolog.Logger
	board  *board.Board
	app    fyne.App
	window fyne.Window
	status *widget.Label
}

// NewApp builds the window for b. Link is the join link shown to the user
// for sharing; it may be empty. Closing the window closes the board.
func NewApp(log zerolog.Logger, b *board.Board, room, link string) *App {
	a := &App{
		log:    log.With().Str("component", "ui").Logger(),
		board:  b,
		app:    app.New(),
		status: widget.NewLabel(statusText(state.Disconnected)),
	}
	a.window = a.app.NewWindow(fmt.Sprintf("Canvas Board - %s", room))

	toolbar := newToolbar(b, actions{
		exportPNG:       a.exportPNG,
		exportPDF:       a.exportPDF,
		exportSelection: a.exportSelection,
		reconnect:       func() { b.Connect(room) },
		report:          a.report,
	})
	surface := container.NewScroll(NewBoardWidget(b))
	footer := container.NewHBox(a.status, layout.NewSpacer())
	if link != "" {
		footer.Add(widget.NewLabel("Join: " + link))
	}
	a.window.SetContent(container.NewBorder(toolbar, footer, nil, nil, surface))
	a.window.Resize(fyne.NewSize(1024, 768))
	a.window.SetOnClosed(b.Close)
	return a
}

// SetConnectionState updates the status line. It is safe to call from any
// goroutine.
func (a *App) SetConnectionState(s state.ConnectionState) {
	fyne.Do(func() {
		a.status.SetText(statusText(s))
	})
}

func (a *App) Run() {
	a.window.ShowAndRun()
}

func statusText(s state.ConnectionState) string {
	if s == state.Failed {
		return "Status: failed, press reconnect to retry"
	}
	return "Status: " + string(s)
}

func (a *App) report(err error) {
	a.log.Warn().Err(err).Msg("action failed")
	dialog.ShowError(err, a.window)
}

func (a *App) exportPNG() {
	a.save("board.png", func(w io.Writer) error {
		p, err := a.board.ExportImage()
		if err != nil {
			return err
		}
		_, err = w.Write(p)
		return err
	})
}

func (a *App) exportPDF() {
	a.save("board.pdf", a.board.ExportPDF)
}

func (a *App) exportSelection() {
	sel := a.board.Selection()
	if sel.Empty() {
		a.report(errEmptySelection)
		return
	}
	a.save("selection.png", func(w io.Writer) error {
		if err := png.Encode(w, sel.Image()); err != nil {
			return fmt.Errorf("failed to encode selection: %w", err)
		}
		return nil
	})
}

func (a *App) save(name string, write func(io.Writer) error) {
	d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil {
			a.report(err)
			return
		}
		if wc == nil {
			return
		}
		defer func() {
			if err := wc.Close(); err != nil {
				a.log.Warn().Err(err).Str("uri", wc.URI().String()).Msg("failed to close export")
			}
		}()
		if err := write(wc); err != nil {
			a.report(err)
			return
		}
		a.log.Info().Str("uri", wc.URI().String()).Msg("exported board")
	}, a.window)
	d.SetFileName(name)
	d.Show()
}
