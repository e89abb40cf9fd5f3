package libfsm

import (
	"fmt"
	"sort"
	"strings"
)

// transition is one outbound edge, keyed in the table by the triggering
// event's id.
type transition struct {
	event  *Event
	next   *State
	output Output
}

// State is an identity record owning an outbound transition table and the
// output callbacks attached to its edges. A state constructed final never
// allocates a table, so transition mutation on it always fails.
//
// States are created through the Machine registry so id uniqueness stays
// enforced in one place.
type State struct {
	machine       string
	id            int
	name          string
	final         bool
	deterministic bool
	initialRegion string
	table         map[int]transition
}

func newState(machine string, id int, name string, final bool) *State {
	s := &State{
		machine:       machine,
		id:            id,
		name:          name,
		final:         final,
		deterministic: true,
	}
	if !final {
		s.table = make(map[int]transition)
	}
	return s
}

// ID returns the state identifier.
func (s *State) ID() int {
	return s.id
}

// Name returns the state name.
func (s *State) Name() string {
	return s.name
}

// Machine returns the name of the owning machine.
func (s *State) Machine() string {
	return s.machine
}

// IsFinal reports whether the state was constructed final or, defensively,
// whether its transition table was never allocated.
func (s *State) IsFinal() bool {
	return s.final || s.table == nil
}

// IsDeterministic reports whether the statically declared edges into this
// state are binding. The flag is consulted by the machine's advancement
// algorithm, not by the state itself.
func (s *State) IsDeterministic() bool {
	return s.deterministic
}

// MarkDeterministic makes statically declared edges into this state binding.
func (s *State) MarkDeterministic() {
	s.deterministic = true
}

// MarkNonDeterministic makes statically declared edges into this state
// tentative, to be settled by a caller-supplied resolver at advancement.
func (s *State) MarkNonDeterministic() {
	s.deterministic = false
}

// MarkInitial tags the state as the initial state of the named region.
// A state is initial for at most one region at a time; marking replaces any
// previous tag. Idempotent.
func (s *State) MarkInitial(region string) {
	s.initialRegion = region
}

// UnmarkInitial clears the initial-region tag. Idempotent.
func (s *State) UnmarkInitial() {
	s.initialRegion = ""
}

// IsInitialState reports whether the state is initial for some region.
func (s *State) IsInitialState() bool {
	return s.initialRegion != ""
}

// InitialRegion returns the region the state is initial for, or "".
func (s *State) InitialRegion() string {
	return s.initialRegion
}

// Equals reports whether both identity fields match. A nil argument never
// matches.
func (s *State) Equals(other *State) bool {
	if other == nil {
		return false
	}
	return s.id == other.id && s.name == other.name
}

// MatchesID reports whether the state carries the given id.
func (s *State) MatchesID(id int) bool {
	return s.id == id
}

// MatchesName reports whether the state carries the given name.
func (s *State) MatchesName(name string) bool {
	return s.name == name
}

// AddTransition declares an outbound edge for the given event, with an
// optional output callback executed on traversal. Re-declaring the identical
// edge is a no-op; re-declaring with a different target is a conflict. The
// state is returned to allow chaining.
func (s *State) AddTransition(event *Event, next *State, output Output) (*State, error) {
	if s.IsFinal() {
		return nil, NewFinalStateMutationError(s)
	}
	if event == nil {
		return nil, NewIncompleteTransitionInputError("event must not be nil")
	}
	if next == nil {
		return nil, NewIncompleteTransitionInputError("next state must not be nil")
	}
	if existing, ok := s.table[event.id]; ok {
		if existing.next.Equals(next) {
			return s, nil
		}
		return nil, NewTransitionConflictError(s, event, existing.next, next)
	}
	s.table[event.id] = transition{event: event, next: next, output: output}
	return s, nil
}

// RemoveTransition deletes the edge for the given event along with its
// output entry.
func (s *State) RemoveTransition(event *Event) error {
	if s.IsFinal() {
		return NewFinalStateMutationError(s)
	}
	if event == nil {
		return NewIncompleteTransitionInputError("event must not be nil")
	}
	if _, ok := s.table[event.id]; !ok {
		return NewUnknownTransitionError(s, event)
	}
	delete(s.table, event.id)
	return nil
}

// NextState returns the state mapped for the given event, or nil when the
// state is final or no edge exists.
func (s *State) NextState(event *Event) *State {
	if s.IsFinal() || event == nil {
		return nil
	}
	if tr, ok := s.table[event.id]; ok {
		return tr.next
	}
	return nil
}

// NextOutput returns the output callback attached for the given event, or
// nil under the same guards as NextState.
func (s *State) NextOutput(event *Event) Output {
	if s.IsFinal() || event == nil {
		return nil
	}
	if tr, ok := s.table[event.id]; ok {
		return tr.output
	}
	return nil
}

// ExecuteOutput invokes the output callback attached for the given event,
// if any.
func (s *State) ExecuteOutput(event *Event) {
	if out := s.NextOutput(event); out != nil {
		out.invoke(s, event)
	}
}

// HasNextStateOnEvent reports whether the edge for the given event points at
// the candidate state.
func (s *State) HasNextStateOnEvent(event *Event, candidate *State) bool {
	next := s.NextState(event)
	return next != nil && next.Equals(candidate)
}

// HasNextTransition reports whether any edge points at the candidate state.
func (s *State) HasNextTransition(candidate *State) bool {
	if s.IsFinal() || candidate == nil {
		return false
	}
	for _, tr := range s.table {
		if tr.next.Equals(candidate) {
			return true
		}
	}
	return false
}

// TransitionCount returns the number of outbound edges.
func (s *State) TransitionCount() int {
	return len(s.table)
}

// TableString renders the transition table for diagnostics, one edge per
// line in the form `State ---[ Event ]--> State`, joined by separator. A
// final or empty state renders as a single `State ---[X]` line.
func (s *State) TableString(separator string) string {
	if s.IsFinal() || len(s.table) == 0 {
		return fmt.Sprintf("%s ---[X]", s)
	}
	ids := make([]int, 0, len(s.table))
	for id := range s.table {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		tr := s.table[id]
		lines = append(lines, fmt.Sprintf("%s ---[ %s ]--> %s", s, tr.event, tr.next))
	}
	return strings.Join(lines, separator)
}

// String renders the state as name(id).
func (s *State) String() string {
	return fmt.Sprintf("%s(%d)", s.name, s.id)
}
