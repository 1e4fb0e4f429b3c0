package state

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewParticipantID_IsUUID(t *testing.T) {
	id := NewParticipantID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	require.NotEqual(t, id, NewParticipantID())
}

func TestNewStrokeEvent(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	points := []Point{{X: 1, Y: 2}, {X: 3, Y: 4}}

	tests := []struct {
		name      string
		brush     Brush
		wantOK    bool
		wantKind  Kind
		wantColor string
	}{
		{name: "pencil draws with color", brush: Brush{Tool: ToolPencil, Color: "#ff0000", Width: 2}, wantOK: true, wantKind: KindDraw, wantColor: "#ff0000"},
		{name: "eraser drops color", brush: Brush{Tool: ToolEraser, Color: "#ff0000", Width: 20}, wantOK: true, wantKind: KindErase},
		{name: "select has no event", brush: Brush{Tool: ToolSelect}, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := NewStrokeEvent("local-1", tt.brush, points, at)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			require.Equal(t, tt.wantKind, ev.Kind)
			require.Equal(t, tt.wantColor, ev.Color)
			require.Equal(t, tt.brush.Width, ev.Width)
			require.Equal(t, "local-1", ev.OriginID)
			require.Equal(t, int64(1700000000123), ev.Timestamp)
			require.Equal(t, points, ev.Points)
			require.Equal(t, 1.0, *ev.X)
			require.Equal(t, 2.0, *ev.Y)
		})
	}
}

func TestKindToolRoundTrip(t *testing.T) {
	for _, tool := range []Tool{ToolPencil, ToolEraser} {
		kind, ok := tool.Kind()
		require.True(t, ok)
		back, ok := kind.Tool()
		require.True(t, ok)
		require.Equal(t, tool, back)
	}
	_, ok := KindClear.Tool()
	require.False(t, ok)
	require.False(t, Tool("brush").Valid())
}
