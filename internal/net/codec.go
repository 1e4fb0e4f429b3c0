package net

import (
	"encoding/json"
	"errors"
	"fmt"

	"CanvasBoard/internal/state"
)

const actionDraw = "draw"

// ErrMalformedEvent is returned for inbound payloads that are not a valid
// draw event.
var ErrMalformedEvent = errors.New("malformed draw event")

var validate = state.NewValidator()

// envelope wraps outbound events. Inbound events arrive bare.
type envelope struct {
	Action string          `json:"action"`
	Data   state.DrawEvent `json:"data"`
}

// EncodeEvent wraps ev in the outbound envelope.
func EncodeEvent(ev state.DrawEvent) ([]byte, error) {
	data, err := json.Marshal(envelope{Action: actionDraw, Data: ev})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", ev.Kind, err)
	}
	return data, nil
}

// DecodeEvent parses a bare inbound draw event.
func DecodeEvent(p []byte) (state.DrawEvent, error) {
	var ev state.DrawEvent
	if err := json.Unmarshal(p, &ev); err != nil {
		return state.DrawEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := validate.Struct(ev); err != nil {
		return state.DrawEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return ev, nil
}
