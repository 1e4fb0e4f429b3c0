package state

// Tool is the drawing tool latched by a gesture at pointer-down.
type Tool string

const (
	ToolPencil Tool = "pencil"
	ToolEraser Tool = "eraser"
	ToolSelect Tool = "select"
)

// Valid reports whether t is one of the known tools.
func (t Tool) Valid() bool {
	switch t {
	case ToolPencil, ToolEraser, ToolSelect:
		return true
	}
	return false
}

// Kind maps a stroke tool to the wire event kind. Select has no event.
func (t Tool) Kind() (Kind, bool) {
	switch t {
	case ToolPencil:
		return KindDraw, true
	case ToolEraser:
		return KindErase, true
	}
	return "", false
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Brush is what a stroke is composited with.
type Brush struct {
	Tool  Tool
	Color string // hex, ignored by the eraser
	Width float64
}

type Kind string

const (
	KindDraw  Kind = "draw"
	KindErase Kind = "erase"
	KindClear Kind = "clear"
)

// Tool maps an event kind back to the tool that replays it.
func (k Kind) Tool() (Tool, bool) {
	switch k {
	case KindDraw:
		return ToolPencil, true
	case KindErase:
		return ToolEraser, true
	}
	return "", false
}

// DrawEvent is one atomic remote-visible action. X and Y hold the first point
// of a stroke; Points holds the whole polyline.
type DrawEvent struct {
	Kind      Kind     `json:"kind" validate:"required,oneof=draw erase clear"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Points    []Point  `json:"points,omitempty"`
	Color     string   `json:"color,omitempty" validate:"omitempty,drawcolor"`
	Width     float64  `json:"width,omitempty" validate:"gte=0"`
	OriginID  string   `json:"originId,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

type ConnectionState string

const (
	Disconnected ConnectionState = "disconnected"
	Connecting   ConnectionState = "connecting"
	Connected    ConnectionState = "connected"
	Failed       ConnectionState = "failed"
)
