package libfsm

import "fmt"

// Event is an immutable identity record used as a transition-table key.
// Both fields are fixed for the life of the object.
type Event struct {
	id   int
	name string
}

// NewEvent creates an event with the given id and name.
func NewEvent(id int, name string) *Event {
	return &Event{id: id, name: name}
}

// ID returns the event identifier.
func (e *Event) ID() int {
	return e.id
}

// Name returns the event name.
func (e *Event) Name() string {
	return e.name
}

// Equals reports whether both identity fields match. A nil argument never
// matches.
func (e *Event) Equals(other *Event) bool {
	if other == nil {
		return false
	}
	return e.id == other.id && e.name == other.name
}

// MatchesID reports whether the event carries the given id.
func (e *Event) MatchesID(id int) bool {
	return e.id == id
}

// MatchesName reports whether the event carries the given name.
func (e *Event) MatchesName(name string) bool {
	return e.name == name
}

// String renders the event as name(id).
func (e *Event) String() string {
	return fmt.Sprintf("%s(%d)", e.name, e.id)
}
