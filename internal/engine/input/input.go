// Package input handles SDL2 input events and translates them to viewer
// controls.
package input

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/rtviewer/internal/controls"
)

// Event types for viewer use
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseDrag
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    controls.Key
	Width  int
	Height int
	DX     int
	DY     int
}

var keymap = map[sdl.Scancode]controls.Key{
	sdl.SCANCODE_UP:       controls.KeyUp,
	sdl.SCANCODE_DOWN:     controls.KeyDown,
	sdl.SCANCODE_LEFT:     controls.KeyLeft,
	sdl.SCANCODE_RIGHT:    controls.KeyRight,
	sdl.SCANCODE_W:        controls.KeyW,
	sdl.SCANCODE_A:        controls.KeyA,
	sdl.SCANCODE_S:        controls.KeyS,
	sdl.SCANCODE_D:        controls.KeyD,
	sdl.SCANCODE_Z:        controls.KeyZ,
	sdl.SCANCODE_C:        controls.KeyC,
	sdl.SCANCODE_V:        controls.KeyV,
	sdl.SCANCODE_F12:      controls.KeyF12,
	sdl.SCANCODE_PAGEUP:   controls.KeyFovIn,
	sdl.SCANCODE_PAGEDOWN: controls.KeyFovOut,
	sdl.SCANCODE_EQUALS:   controls.KeyGammaUp,
	sdl.SCANCODE_KP_PLUS:  controls.KeyGammaUp,
	sdl.SCANCODE_MINUS:    controls.KeyGammaDown,
	sdl.SCANCODE_KP_MINUS: controls.KeyGammaDown,
	sdl.SCANCODE_SPACE:    controls.KeyContinuous,
	sdl.SCANCODE_N:        controls.KeyUnify,

	sdl.SCANCODE_RIGHTBRACKET: controls.KeyFaster,
	sdl.SCANCODE_LEFTBRACKET:  controls.KeySlower,
	sdl.SCANCODE_PERIOD:       controls.KeyMouseFaster,
	sdl.SCANCODE_COMMA:        controls.KeyMouseSlower,
}

// Input handles all input processing.
type Input struct {
	events   []Event
	held     map[controls.Key]bool
	dragging bool
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events: make([]Event, 0, 16),
		held:   make(map[controls.Key]bool),
	}
}

// Update polls SDL events and converts them to viewer events.
// Returns true if the viewer should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0] // Clear previous events

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			return true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			if e.Keysym.Scancode == sdl.SCANCODE_ESCAPE && e.Type == sdl.KEYDOWN {
				i.events = append(i.events, Event{Type: EventQuit})
				return true
			}
			key, ok := keymap[e.Keysym.Scancode]
			if !ok {
				continue
			}
			if e.Type == sdl.KEYDOWN {
				i.held[key] = true
				if e.Repeat == 0 {
					i.events = append(i.events, Event{Type: EventKeyDown, Key: key})
				}
			} else if e.Type == sdl.KEYUP {
				delete(i.held, key)
				i.events = append(i.events, Event{Type: EventKeyUp, Key: key})
			}

		case *sdl.MouseButtonEvent:
			if e.Button == sdl.BUTTON_LEFT {
				i.dragging = e.Type == sdl.MOUSEBUTTONDOWN
			}

		case *sdl.MouseMotionEvent:
			if i.dragging && (e.XRel != 0 || e.YRel != 0) {
				i.events = append(i.events, Event{
					Type: EventMouseDrag,
					DX:   int(e.XRel),
					DY:   int(e.YRel),
				})
			}
		}
	}

	return false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// Held returns the keys currently held down.
func (i *Input) Held() []controls.Key {
	keys := make([]controls.Key, 0, len(i.held))
	for k := range i.held {
		keys = append(keys, k)
	}
	return keys
}
