// Package input turns pointer down/move/up sequences into strokes and
// rectangular selections.
package input

import (
	"CanvasBoard/internal/state"
)

type Mode int

const (
	Idle Mode = iota
	Drawing
	Selecting
)

func (m Mode) String() string {
	switch m {
	case Drawing:
		return "drawing"
	case Selecting:
		return "selecting"
	}
	return "idle"
}

// Session is one pointer-down-to-up stroke. The brush is latched at
// pointer-down.
type Session struct {
	Brush  state.Brush
	Points []state.Point
}

// Target receives the effects of a gesture.
type Target interface {
	// Segment is called for every pointer move while drawing.
	Segment(brush state.Brush, from, to state.Point)
	// Preview redraws the committed canvas plus the selection outline.
	Preview(start, end state.Point)
	// FinishStroke is called once on pointer-up after drawing.
	FinishStroke(s Session)
	// FinishSelection is called on pointer-up when both corners are known.
	FinishSelection(start, end state.Point)
}

// Machine is the idle/drawing/selecting state machine.
type Machine struct {
	target   Target
	mode     Mode
	session  *Session
	selStart *state.Point
	selEnd   *state.Point
}

func NewMachine(target Target) *Machine {
	return &Machine{target: target}
}

func (m *Machine) Mode() Mode { return m.mode }

// Selection returns the corners of the selection in progress.
func (m *Machine) Selection() (start, end state.Point, ok bool) {
	if m.mode != Selecting || m.selStart == nil || m.selEnd == nil {
		return state.Point{}, state.Point{}, false
	}
	return *m.selStart, *m.selEnd, true
}

// Down starts a gesture with the given brush. It is ignored while another
// gesture is active.
func (m *Machine) Down(p state.Point, brush state.Brush) {
	if m.mode != Idle {
		return
	}
	switch brush.Tool {
	case state.ToolPencil, state.ToolEraser:
		m.mode = Drawing
		m.session = &Session{Brush: brush, Points: []state.Point{p}}
	case state.ToolSelect:
		m.mode = Selecting
		start := p
		m.selStart = &start
		m.selEnd = nil
	}
}

func (m *Machine) Move(p state.Point) {
	switch m.mode {
	case Drawing:
		prev := m.session.Points[len(m.session.Points)-1]
		m.session.Points = append(m.session.Points, p)
		m.target.Segment(m.session.Brush, prev, p)
	case Selecting:
		end := p
		m.selEnd = &end
		m.target.Preview(*m.selStart, end)
	}
}

func (m *Machine) Up() {
	switch m.mode {
	case Drawing:
		s := *m.session
		m.session = nil
		m.mode = Idle
		m.target.FinishStroke(s)
	case Selecting:
		start, end := m.selStart, m.selEnd
		m.selStart, m.selEnd = nil, nil
		m.mode = Idle
		if start != nil && end != nil {
			m.target.FinishSelection(*start, *end)
		}
	}
}
