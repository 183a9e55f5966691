package backend

import "github.com/njyeung/iglogin/login"

// Backend is the browser surface the login page is shown in
type Backend interface {
	login.Surface

	// Start launches the browser. Nothing is shown until Show is called
	Start() error

	// Show opens url in a fresh, isolated browser session
	Show(url string) error

	// Hide closes the login page, the browser itself keeps running
	Hide()

	// Visible reports whether the login page is showing
	Visible() bool

	// Key is bumped every time the session is recreated
	Key() int

	// Stop closes the browser and cleans up
	Stop()

	// Events returns a channel for navigation and message events
	Events() <-chan Event
}

const (
	// BindingName is the page-side function inline messages are forwarded through
	BindingName = "igLoginPostMessage"

	// EventBufferSize is how many events can queue before new ones are dropped
	EventBufferSize = 100
)

// EventType represents different backend events
type EventType int

const (
	EventNavigation EventType = iota
	EventMessage
	EventError
)

// Event is sent from backend to frontend
type Event struct {
	Type    EventType
	URL     string // for EventNavigation
	Title   string // for EventNavigation, when known
	Payload string // for EventMessage
	Message string // for EventError
}

// NavigationEvent converts e into the interceptor's event type
func (e Event) NavigationEvent() login.NavigationEvent {
	return login.NavigationEvent{URL: e.URL, Title: e.Title}
}
