package state

import (
	"time"

	"github.com/google/uuid"
)

// NewParticipantID returns a fresh origin id for one board session.
func NewParticipantID() string {
	return uuid.NewString()
}

// Timestamp is the wire representation of t, in Unix milliseconds.
func Timestamp(t time.Time) int64 {
	return t.UnixMilli()
}

// NewStrokeEvent builds the per-stroke event for a finished gesture.
func NewStrokeEvent(origin string, brush Brush, points []Point, at time.Time) (DrawEvent, bool) {
	kind, ok := brush.Tool.Kind()
	if !ok {
		return DrawEvent{}, false
	}
	ev := DrawEvent{
		Kind:      kind,
		Points:    append([]Point(nil), points...),
		Width:     brush.Width,
		OriginID:  origin,
		Timestamp: Timestamp(at),
	}
	if kind == KindDraw {
		ev.Color = brush.Color
	}
	if len(points) > 0 {
		x, y := points[0].X, points[0].Y
		ev.X, ev.Y = &x, &y
	}
	return ev, true
}

// NewClearEvent builds the event for a full-canvas clear.
func NewClearEvent(origin string, at time.Time) DrawEvent {
	return DrawEvent{Kind: KindClear, OriginID: origin, Timestamp: Timestamp(at)}
}
