// Package board composes the drawing surface, undo history, input state
// machine and sync channel into one collaborative board session.
package board

//go:generate go run go.uber.org/mock/mockgen -source=board.go -destination=../mocks/mock_channel.go -package=mocks

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"CanvasBoard/internal/export"
	"CanvasBoard/internal/input"
	"CanvasBoard/internal/raster"
	"CanvasBoard/internal/state"
)

const (
	DefaultColor     = "#000000"
	DefaultLineWidth = 2.0
	MinLineWidth     = 1.0
	MaxLineWidth     = 50.0
)

var (
	ErrUnknownTool  = errors.New("unknown tool")
	ErrInvalidColor = errors.New("invalid color")
)

var validate = state.NewValidator()

// Channel is the real-time event channel the board publishes to and
// receives from.
type Channel interface {
	Connect(roomID string)
	Disconnect()
	Send(ev state.DrawEvent)
	State() state.ConnectionState
	OnEvent(fn func(state.DrawEvent))
}

type Options struct {
	ParticipantID string
	HistoryLimit  int
	EraserWidth   float64
	Color         string
	LineWidth     float64
}

// Board is one drawing session. All handlers, local or remote, run under a
// single lock so the surface and history are never mutated concurrently.
type Board struct {
	log         zerolog.Logger
	participant string
	channel     Channel
	now         func() time.Time

	mu          sync.Mutex
	surface     *raster.Surface
	history     *state.History[*raster.Snapshot]
	machine     *input.Machine
	tool        state.Tool
	color       string
	lineWidth   float64
	eraserWidth float64
	selection   *raster.SubImage
	onChange    func()
}

// New starts a session on surface. A nil surface means drawing mode cannot
// be entered and is reported as raster.ErrNoSurface.
func New(log zerolog.Logger, surface *raster.Surface, channel Channel, opts Options) (*Board, error) {
	if surface == nil {
		return nil, raster.ErrNoSurface
	}
	if opts.ParticipantID == "" {
		opts.ParticipantID = state.NewParticipantID()
	}
	if opts.EraserWidth <= 0 {
		opts.EraserWidth = raster.DefaultEraserWidth
	}
	if opts.Color == "" {
		opts.Color = DefaultColor
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = DefaultLineWidth
	}

	b := &Board{
		log:         log.With().Str("component", "board").Str("participant", opts.ParticipantID).Logger(),
		participant: opts.ParticipantID,
		channel:     channel,
		now:         time.Now,
		surface:     surface,
		history:     state.NewHistory[*raster.Snapshot](opts.HistoryLimit),
		tool:        state.ToolPencil,
		color:       opts.Color,
		lineWidth:   lo.Clamp(opts.LineWidth, MinLineWidth, MaxLineWidth),
		eraserWidth: opts.EraserWidth,
	}
	b.machine = input.NewMachine(canvas{b})
	b.history.Commit(surface.Snapshot())
	channel.OnEvent(b.applyRemote)
	return b, nil
}

func (b *Board) Participant() string { return b.participant }

// Connect joins roomID on the sync channel.
func (b *Board) Connect(roomID string) {
	b.channel.Connect(roomID)
}

func (b *Board) ConnectionState() state.ConnectionState {
	return b.channel.State()
}

// Close ends the session, closing the channel and cancelling any pending
// reconnect.
func (b *Board) Close() {
	b.channel.Disconnect()
}

// OnChange registers a callback fired after the visible surface changes. It
// runs without the board lock held.
func (b *Board) OnChange(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

func (b *Board) PointerDown(x, y float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.machine.Down(state.Point{X: x, Y: y}, b.brushLocked())
}

func (b *Board) PointerMove(x, y float64) {
	b.mu.Lock()
	active := b.machine.Mode() != input.Idle
	b.machine.Move(state.Point{X: x, Y: y})
	b.mu.Unlock()
	if active {
		b.changed()
	}
}

func (b *Board) PointerUp() {
	b.mu.Lock()
	active := b.machine.Mode() != input.Idle
	b.machine.Up()
	b.mu.Unlock()
	if active {
		b.changed()
	}
}

// SelectTool switches the tool for the next gesture. A gesture in progress
// keeps the tool it started with.
func (b *Board) SelectTool(tool state.Tool) error {
	if !tool.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tool = tool
	return nil
}

// ChangeColor sets the pencil color. Picking a color while erasing switches
// back to the pencil.
func (b *Board) ChangeColor(hex string) error {
	if err := validate.Var(hex, "required,"+state.ColorTag); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.color = hex
	if b.tool == state.ToolEraser {
		b.tool = state.ToolPencil
	}
	return nil
}

// ChangeLineWidth sets the pencil width, clamped to [MinLineWidth, MaxLineWidth].
func (b *Board) ChangeLineWidth(width float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lineWidth = lo.Clamp(width, MinLineWidth, MaxLineWidth)
}

// Undo restores the previous snapshot. It reports false at the oldest one.
func (b *Board) Undo() bool {
	b.mu.Lock()
	snap, ok := b.history.Undo()
	if ok {
		b.surface.Restore(snap)
	}
	b.mu.Unlock()
	if ok {
		b.changed()
	}
	return ok
}

// Redo restores the next snapshot. It reports false at the newest one.
func (b *Board) Redo() bool {
	b.mu.Lock()
	snap, ok := b.history.Redo()
	if ok {
		b.surface.Restore(snap)
	}
	b.mu.Unlock()
	if ok {
		b.changed()
	}
	return ok
}

// Clear wipes the surface for everyone in the room.
func (b *Board) Clear() {
	b.mu.Lock()
	b.surface.Clear()
	b.history.Commit(b.surface.Snapshot())
	b.channel.Send(state.NewClearEvent(b.participant, b.now()))
	b.mu.Unlock()
	b.changed()
}

// ExportImage encodes the visible surface as PNG.
func (b *Board) ExportImage() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var buf bytes.Buffer
	if err := b.surface.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportPDF writes the visible surface as a one-page PDF.
func (b *Board) ExportPDF(w io.Writer) error {
	png, err := b.ExportImage()
	if err != nil {
		return err
	}
	b.mu.Lock()
	width, height := b.surface.Width(), b.surface.Height()
	b.mu.Unlock()
	return export.PDF(w, png, width, height)
}

// Image returns a copy of the visible surface.
func (b *Board) Image() *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surface.Image()
}

// Selection returns the last captured sub-image, or nil.
func (b *Board) Selection() *raster.SubImage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selection
}

func (b *Board) DiscardSelection() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selection = nil
}

func (b *Board) Tool() state.Tool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tool
}

func (b *Board) Color() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.color
}

func (b *Board) LineWidth() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lineWidth
}

func (b *Board) Mode() input.Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.machine.Mode()
}

func (b *Board) HistoryLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.Len()
}

func (b *Board) CanUndo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.CanUndo()
}

func (b *Board) CanRedo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.CanRedo()
}

// applyRemote replays an event received from the room. Own events echoed
// back are ignored and nothing applied here is published again.
func (b *Board) applyRemote(ev state.DrawEvent) {
	if ev.OriginID == b.participant {
		b.log.Debug().Str("kind", string(ev.Kind)).Msg("ignoring echo")
		return
	}

	b.mu.Lock()
	// a selection preview must never reach history
	start, end, previewing := b.machine.Selection()
	if previewing {
		b.restoreCurrentLocked()
	}
	applied := b.replayLocked(ev)
	if applied {
		b.history.Commit(b.surface.Snapshot())
	}
	if previewing {
		b.surface.Preview(start, end)
	}
	b.mu.Unlock()

	if !applied {
		b.log.Debug().Str("kind", string(ev.Kind)).Str("origin", ev.OriginID).Msg("remote event had nothing to draw")
		return
	}
	b.log.Debug().Str("kind", string(ev.Kind)).Str("origin", ev.OriginID).Msg("applied remote event")
	b.changed()
}

func (b *Board) replayLocked(ev state.DrawEvent) bool {
	if ev.Kind == state.KindClear {
		b.surface.Clear()
		return true
	}
	tool, ok := ev.Kind.Tool()
	if !ok {
		return false
	}
	brush := state.Brush{Tool: tool, Color: ev.Color, Width: ev.Width}
	if brush.Color == "" {
		brush.Color = DefaultColor
	}
	if brush.Width <= 0 {
		brush.Width = DefaultLineWidth
		if tool == state.ToolEraser {
			brush.Width = b.eraserWidth
		}
	}
	return b.surface.Stroke(brush, ev.Points)
}

func (b *Board) brushLocked() state.Brush {
	switch b.tool {
	case state.ToolEraser:
		return state.Brush{Tool: state.ToolEraser, Color: b.color, Width: b.eraserWidth}
	case state.ToolSelect:
		return state.Brush{Tool: state.ToolSelect}
	}
	return state.Brush{Tool: state.ToolPencil, Color: b.color, Width: b.lineWidth}
}

func (b *Board) restoreCurrentLocked() {
	if snap, ok := b.history.Current(); ok {
		b.surface.Restore(snap)
	}
}

func (b *Board) changed() {
	b.mu.Lock()
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// canvas applies input gestures to the board. Its methods run with the
// board lock held.
type canvas struct {
	b *Board
}

func (c canvas) Segment(brush state.Brush, from, to state.Point) {
	c.b.surface.Segment(brush, from, to)
}

func (c canvas) Preview(start, end state.Point) {
	c.b.restoreCurrentLocked()
	c.b.surface.Preview(start, end)
}

func (c canvas) FinishStroke(s input.Session) {
	c.b.history.Commit(c.b.surface.Snapshot())
	if ev, ok := state.NewStrokeEvent(c.b.participant, s.Brush, s.Points, c.b.now()); ok {
		c.b.channel.Send(ev)
	}
}

func (c canvas) FinishSelection(start, end state.Point) {
	c.b.restoreCurrentLocked()
	c.b.selection = c.b.surface.Capture(start, end)
	if c.b.selection.Empty() {
		c.b.log.Debug().Msg("empty selection")
	}
}
