package interact

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/matzehuels/radialtree/pkg/errors"
	"github.com/matzehuels/radialtree/pkg/tree"
)

// EventKind names an event on the wire.
type EventKind string

const (
	KindClick    EventKind = "click"
	KindHover    EventKind = "hover"
	KindHoverEnd EventKind = "hover_end"
	KindResize   EventKind = "resize"
	KindZoom     EventKind = "zoom"
)

// Event is one of [Click], [Hover], [HoverEnd], [Resize] or [Zoom].
type Event interface {
	Kind() EventKind
	event()
}

// Click is a pointer click on a node marker. Node is [tree.NoNode] for a
// click on the background.
type Click struct {
	Node tree.NodeID
}

// Hover is the pointer entering a node marker at container coordinates X, Y.
type Hover struct {
	Node tree.NodeID
	X, Y float64
}

// HoverEnd is the pointer leaving the hovered marker.
type HoverEnd struct{}

// Resize reports a new container size.
type Resize struct {
	Width, Height float64
}

// Zoom is a zoom/pan gesture producing the transform (Scale, TX, TY).
type Zoom struct {
	Scale, TX, TY float64
}

func (Click) Kind() EventKind    { return KindClick }
func (Hover) Kind() EventKind    { return KindHover }
func (HoverEnd) Kind() EventKind { return KindHoverEnd }
func (Resize) Kind() EventKind   { return KindResize }
func (Zoom) Kind() EventKind     { return KindZoom }

func (Click) event()    {}
func (Hover) event()    {}
func (HoverEnd) event() {}
func (Resize) event()   {}
func (Zoom) event()     {}

// envelope is the JSON form of an event.
type envelope struct {
	Type    EventKind   `json:"type"`
	Node    tree.NodeID `json:"node,omitempty"`
	X       float64     `json:"x,omitempty"`
	Y       float64     `json:"y,omitempty"`
	Width   float64     `json:"width,omitempty"`
	Height  float64     `json:"height,omitempty"`
	Scale   float64     `json:"k,omitempty"`
	TX      float64     `json:"tx,omitempty"`
	TY      float64     `json:"ty,omitempty"`
	AfterMS int64       `json:"after_ms,omitempty"`
}

func (e envelope) toEvent() (Event, error) {
	switch e.Type {
	case KindClick:
		return Click{Node: e.Node}, nil
	case KindHover:
		return Hover{Node: e.Node, X: e.X, Y: e.Y}, nil
	case KindHoverEnd:
		return HoverEnd{}, nil
	case KindResize:
		return Resize{Width: e.Width, Height: e.Height}, nil
	case KindZoom:
		return Zoom{Scale: e.Scale, TX: e.TX, TY: e.TY}, nil
	case "":
		return nil, errors.New(errors.ErrCodeInvalidEvent, "event type is required")
	}
	return nil, errors.New(errors.ErrCodeInvalidEvent, "unknown event type %q", e.Type)
}

func fromEvent(ev Event) envelope {
	e := envelope{Type: ev.Kind()}
	switch v := ev.(type) {
	case Click:
		e.Node = v.Node
	case Hover:
		e.Node, e.X, e.Y = v.Node, v.X, v.Y
	case Resize:
		e.Width, e.Height = v.Width, v.Height
	case Zoom:
		e.Scale, e.TX, e.TY = v.Scale, v.TX, v.TY
	}
	return e
}

// DecodeEvent parses one JSON event such as {"type":"click","node":3}.
func DecodeEvent(data []byte) (Event, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidEvent, err, "decode event")
	}
	return e.toEvent()
}

// EncodeEvent returns the JSON form of ev.
func EncodeEvent(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, errors.New(errors.ErrCodeInvalidEvent, "nil event")
	}
	return json.Marshal(fromEvent(ev))
}

// Step is one entry of an event script: an event delivered After the
// previous one.
type Step struct {
	After time.Duration
	Event Event
}

// DecodeScript reads a JSON array of events. Each entry may carry an
// "after_ms" delay relative to the previous entry.
func DecodeScript(r io.Reader) ([]Step, error) {
	var raw []envelope
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidEvent, err, "decode event script")
	}
	steps := make([]Step, 0, len(raw))
	for i, e := range raw {
		ev, err := e.toEvent()
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		if e.AfterMS < 0 {
			return nil, errors.New(errors.ErrCodeInvalidEvent, "event %d: negative after_ms", i)
		}
		steps = append(steps, Step{After: time.Duration(e.AfterMS) * time.Millisecond, Event: ev})
	}
	return steps, nil
}

// Describe formats ev for logs, e.g. "click node=3".
func Describe(ev Event) string {
	switch v := ev.(type) {
	case Click:
		return fmt.Sprintf("click node=%d", v.Node)
	case Hover:
		return fmt.Sprintf("hover node=%d at=(%.0f,%.0f)", v.Node, v.X, v.Y)
	case HoverEnd:
		return "hover_end"
	case Resize:
		return fmt.Sprintf("resize %gx%g", v.Width, v.Height)
	case Zoom:
		return fmt.Sprintf("zoom k=%.3g x=%.1f y=%.1f", v.Scale, v.TX, v.TY)
	case nil:
		return "<nil>"
	}
	return string(ev.Kind())
}
