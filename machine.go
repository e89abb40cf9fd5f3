package libfsm

import (
	"fmt"
	"sort"
	"strings"
)

// Machine owns the state and event registries, the per-region initial-state
// bookkeeping, the token bindings, and the notification channel. All
// operations are synchronous; the embedding application is responsible for
// serializing access when multiple goroutines share one machine.
type Machine struct {
	name          string
	states        map[int]*State
	statesByName  map[string]*State
	events        map[int]*Event
	eventsByName  map[string]*Event
	initialStates map[string]*State
	tokens        map[string]*State
	allowSelf     bool
	autoInitial   bool
	nextStateID   int
	nextEventID   int
	notifier      *notifier
}

// Option configures a Machine at construction time.
type Option func(*Machine)

// WithoutSelfTransitions makes declaring an edge whose source equals its
// target a hard error.
func WithoutSelfTransitions() Option {
	return func(m *Machine) {
		m.allowSelf = false
	}
}

// WithoutAutoInitialState disables promoting the first added state to the
// default-region initial state, for callers composing multiple regions.
func WithoutAutoInitialState() Option {
	return func(m *Machine) {
		m.autoInitial = false
	}
}

// New creates an empty machine. The machine's name doubles as its default
// region name.
func New(name string, opts ...Option) *Machine {
	m := &Machine{
		name:          name,
		states:        make(map[int]*State),
		statesByName:  make(map[string]*State),
		events:        make(map[int]*Event),
		eventsByName:  make(map[string]*Event),
		initialStates: make(map[string]*State),
		tokens:        make(map[string]*State),
		allowSelf:     true,
		autoInitial:   true,
		notifier:      newNotifier(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the machine name.
func (m *Machine) Name() string {
	return m.name
}

// DefaultRegion returns the region used when none is named. It equals the
// machine name.
func (m *Machine) DefaultRegion() string {
	return m.name
}

// AllowsSelfTransition reports the self-transition policy.
func (m *Machine) AllowsSelfTransition() bool {
	return m.allowSelf
}

// SubscribeStructural registers a handler for one structural topic and
// returns its subscription handle.
func (m *Machine) SubscribeStructural(topic StructuralTopic, h StructuralHandler) Subscription {
	return m.notifier.subscribeStructural(topic, h)
}

// SubscribeToken registers a handler for one token topic and returns its
// subscription handle.
func (m *Machine) SubscribeToken(topic TokenTopic, h TokenHandler) Subscription {
	return m.notifier.subscribeToken(topic, h)
}

// Unsubscribe removes the handler behind the subscription, on whichever
// channel it was registered.
func (m *Machine) Unsubscribe(sub Subscription) {
	m.notifier.unsubscribe(sub)
}

func (m *Machine) publishStructural(sn StructuralNotification) {
	sn.Machine = m.name
	m.notifier.publishStructural(sn)
}

func (m *Machine) publishToken(tn TokenNotification) {
	tn.Machine = m.name
	m.notifier.publishToken(tn)
}

// AddState registers a non-final state under an auto-assigned id.
func (m *Machine) AddState(name string) (*State, error) {
	return m.addState(m.allocStateID(), name, false)
}

// AddStateWithID registers a non-final state under an explicit id.
func (m *Machine) AddStateWithID(id int, name string) (*State, error) {
	return m.addState(id, name, false)
}

// AddFinalState registers a final state under an auto-assigned id.
func (m *Machine) AddFinalState(name string) (*State, error) {
	return m.addState(m.allocStateID(), name, true)
}

// AddFinalStateWithID registers a final state under an explicit id.
func (m *Machine) AddFinalStateWithID(id int, name string) (*State, error) {
	return m.addState(id, name, true)
}

func (m *Machine) addState(id int, name string, final bool) (*State, error) {
	if _, exists := m.states[id]; exists {
		return nil, NewDuplicateIdentityError(m.name, "state", id)
	}
	s := newState(m.name, id, name, final)
	m.states[id] = s
	if _, taken := m.statesByName[name]; !taken {
		m.statesByName[name] = s
	}
	topic := TopicStateAdded
	if final {
		topic = TopicFinalStateAdded
	}
	m.publishStructural(StructuralNotification{Topic: topic, State: s})
	if m.autoInitial {
		if _, bound := m.initialStates[m.name]; !bound {
			m.bindInitialState(s, m.name)
		}
	}
	return s, nil
}

func (m *Machine) allocStateID() int {
	for {
		id := m.nextStateID
		m.nextStateID++
		if _, taken := m.states[id]; !taken {
			return id
		}
	}
}

// AddEvent registers an event under an auto-assigned id.
func (m *Machine) AddEvent(name string) (*Event, error) {
	return m.addEvent(m.allocEventID(), name)
}

// AddEventWithID registers an event under an explicit id.
func (m *Machine) AddEventWithID(id int, name string) (*Event, error) {
	return m.addEvent(id, name)
}

func (m *Machine) addEvent(id int, name string) (*Event, error) {
	if _, exists := m.events[id]; exists {
		return nil, NewDuplicateIdentityError(m.name, "event", id)
	}
	e := NewEvent(id, name)
	m.events[id] = e
	if _, taken := m.eventsByName[name]; !taken {
		m.eventsByName[name] = e
	}
	m.publishStructural(StructuralNotification{Topic: TopicEventAdded, Event: e})
	return e, nil
}

func (m *Machine) allocEventID() int {
	for {
		id := m.nextEventID
		m.nextEventID++
		if _, taken := m.events[id]; !taken {
			return id
		}
	}
}

// StateByID returns the registered state with the given id, or nil.
func (m *Machine) StateByID(id int) *State {
	return m.states[id]
}

// StateByName returns the state first registered under the given name, or
// nil.
func (m *Machine) StateByName(name string) *State {
	return m.statesByName[name]
}

// StateMatching returns the registered state only when both id and name
// match, or nil.
func (m *Machine) StateMatching(id int, name string) *State {
	s := m.states[id]
	if s == nil || !s.MatchesName(name) {
		return nil
	}
	return s
}

// EventByID returns the registered event with the given id, or nil.
func (m *Machine) EventByID(id int) *Event {
	return m.events[id]
}

// EventByName returns the event first registered under the given name, or
// nil.
func (m *Machine) EventByName(name string) *Event {
	return m.eventsByName[name]
}

// EventMatching returns the registered event only when both id and name
// match, or nil.
func (m *Machine) EventMatching(id int, name string) *Event {
	e := m.events[id]
	if e == nil || !e.MatchesName(name) {
		return nil
	}
	return e
}

// StateCount returns the number of registered states.
func (m *Machine) StateCount() int {
	return len(m.states)
}

// EventCount returns the number of registered events.
func (m *Machine) EventCount() int {
	return len(m.events)
}

// ownsState reports whether the exact state object is registered here.
func (m *Machine) ownsState(s *State) bool {
	return s != nil && m.states[s.id] == s
}

// ownsEvent reports whether the exact event object is registered here.
func (m *Machine) ownsEvent(e *Event) bool {
	return e != nil && m.events[e.id] == e
}

// InitialState returns the initial state of the named region, or nil. An
// empty region names the default region.
func (m *Machine) InitialState(region string) *State {
	if region == "" {
		region = m.name
	}
	return m.initialStates[region]
}

// DefaultInitialState returns the initial state of the default region, or
// nil.
func (m *Machine) DefaultInitialState() *State {
	return m.initialStates[m.name]
}

// SetInitialState makes the state initial for the default region, unmarking
// whatever currently holds it.
func (m *Machine) SetInitialState(state *State) error {
	return m.SetInitialStateForRegion(state, m.name)
}

// SetInitialStateForRegion makes the state initial for the named region,
// unmarking whatever currently holds it. The state must already be
// registered.
func (m *Machine) SetInitialStateForRegion(state *State, region string) error {
	if state == nil {
		return NewIncompleteTransitionInputError("initial state must not be nil")
	}
	if !m.ownsState(state) {
		return NewStateNotFoundError(m.name, state.String())
	}
	if region == "" {
		region = m.name
	}
	m.bindInitialState(state, region)
	return nil
}

func (m *Machine) bindInitialState(state *State, region string) {
	if prev, bound := m.initialStates[region]; bound {
		if prev == state {
			return
		}
		prev.UnmarkInitial()
		m.publishStructural(StructuralNotification{
			Topic:  TopicInitialStateRemoved,
			State:  prev,
			Region: region,
		})
	}
	// a state is initial for at most one region, so a cross-region move
	// vacates the region it currently holds
	if old := state.InitialRegion(); old != "" && old != region {
		delete(m.initialStates, old)
		m.publishStructural(StructuralNotification{
			Topic:  TopicInitialStateRemoved,
			State:  state,
			Region: old,
		})
	}
	state.MarkInitial(region)
	m.initialStates[region] = state
	m.publishStructural(StructuralNotification{
		Topic:  TopicInitialStateAdded,
		State:  state,
		Region: region,
	})
}

// AddStateTransition declares an edge from state to next on event, with an
// optional output callback. Both states and the event must belong to the
// machine; the self-transition policy is enforced here.
func (m *Machine) AddStateTransition(state *State, event *Event, next *State, output Output) error {
	if state == nil || next == nil {
		return NewIncompleteTransitionInputError("state and next state must not be nil")
	}
	if event == nil {
		return NewIncompleteTransitionInputError("event must not be nil")
	}
	if !m.ownsState(state) {
		return NewStateNotFoundError(m.name, state.String())
	}
	if !m.ownsState(next) {
		return NewStateNotFoundError(m.name, next.String())
	}
	if !m.ownsEvent(event) {
		return NewEventNotFoundError(m.name, event.String())
	}
	if state.Equals(next) && !m.allowSelf {
		return NewSelfTransitionDisallowedError(state, event)
	}
	if state.HasNextStateOnEvent(event, next) {
		// idempotent re-add, nothing to announce
		return nil
	}
	if _, err := state.AddTransition(event, next, output); err != nil {
		return err
	}
	m.publishStructural(StructuralNotification{
		Topic:     TopicTransitionAdded,
		State:     state,
		NextState: next,
		Event:     event,
	})
	return nil
}

// AddStateTransitionByID resolves the three ids and declares the edge.
func (m *Machine) AddStateTransitionByID(stateID, eventID, nextID int, output Output) error {
	state := m.StateByID(stateID)
	if state == nil {
		return NewStateNotFoundError(m.name, fmt.Sprintf("id %d", stateID))
	}
	event := m.EventByID(eventID)
	if event == nil {
		return NewEventNotFoundError(m.name, fmt.Sprintf("id %d", eventID))
	}
	next := m.StateByID(nextID)
	if next == nil {
		return NewStateNotFoundError(m.name, fmt.Sprintf("id %d", nextID))
	}
	return m.AddStateTransition(state, event, next, output)
}

// AddStateTransitionByName resolves the three names and declares the edge.
func (m *Machine) AddStateTransitionByName(stateName, eventName, nextName string, output Output) error {
	state := m.StateByName(stateName)
	if state == nil {
		return NewStateNotFoundError(m.name, stateName)
	}
	event := m.EventByName(eventName)
	if event == nil {
		return NewEventNotFoundError(m.name, eventName)
	}
	next := m.StateByName(nextName)
	if next == nil {
		return NewStateNotFoundError(m.name, nextName)
	}
	return m.AddStateTransition(state, event, next, output)
}

// AddStateTransitionForAllStates declares the edge on every non-final state,
// best-effort: states that already carry a different edge for the event, and
// disallowed self-edges, are skipped rather than aborting the batch.
func (m *Machine) AddStateTransitionForAllStates(event *Event, next *State, output Output) error {
	if next == nil {
		return NewIncompleteTransitionInputError("next state must not be nil")
	}
	if event == nil {
		return NewIncompleteTransitionInputError("event must not be nil")
	}
	if !m.ownsState(next) {
		return NewStateNotFoundError(m.name, next.String())
	}
	if !m.ownsEvent(event) {
		return NewEventNotFoundError(m.name, event.String())
	}
	for _, state := range m.sortedStates() {
		if state.IsFinal() {
			continue
		}
		if state.Equals(next) && !m.allowSelf {
			continue
		}
		if state.HasNextStateOnEvent(event, next) {
			continue
		}
		if _, err := state.AddTransition(event, next, output); err != nil {
			continue
		}
		m.publishStructural(StructuralNotification{
			Topic:     TopicTransitionAdded,
			State:     state,
			NextState: next,
			Event:     event,
		})
	}
	return nil
}

// RemoveStateTransition deletes the edge for the given event from the state.
func (m *Machine) RemoveStateTransition(state *State, event *Event) error {
	if state == nil {
		return NewIncompleteTransitionInputError("state must not be nil")
	}
	if event == nil {
		return NewIncompleteTransitionInputError("event must not be nil")
	}
	if !m.ownsState(state) {
		return NewStateNotFoundError(m.name, state.String())
	}
	if !m.ownsEvent(event) {
		return NewEventNotFoundError(m.name, event.String())
	}
	if err := state.RemoveTransition(event); err != nil {
		return err
	}
	m.publishStructural(StructuralNotification{
		Topic: TopicTransitionRemoved,
		State: state,
		Event: event,
	})
	return nil
}

// RemoveStateTransitionByID resolves both ids and deletes the edge.
func (m *Machine) RemoveStateTransitionByID(stateID, eventID int) error {
	state := m.StateByID(stateID)
	if state == nil {
		return NewStateNotFoundError(m.name, fmt.Sprintf("id %d", stateID))
	}
	event := m.EventByID(eventID)
	if event == nil {
		return NewEventNotFoundError(m.name, fmt.Sprintf("id %d", eventID))
	}
	return m.RemoveStateTransition(state, event)
}

// RemoveStateTransitionByName resolves both names and deletes the edge.
func (m *Machine) RemoveStateTransitionByName(stateName, eventName string) error {
	state := m.StateByName(stateName)
	if state == nil {
		return NewStateNotFoundError(m.name, stateName)
	}
	event := m.EventByName(eventName)
	if event == nil {
		return NewEventNotFoundError(m.name, eventName)
	}
	return m.RemoveStateTransition(state, event)
}

// RemoveAllStatesTransitionForEvent deletes the edge for the given event
// from every non-final state that carries one, best-effort.
func (m *Machine) RemoveAllStatesTransitionForEvent(event *Event) error {
	if event == nil {
		return NewIncompleteTransitionInputError("event must not be nil")
	}
	if !m.ownsEvent(event) {
		return NewEventNotFoundError(m.name, event.String())
	}
	for _, state := range m.sortedStates() {
		if state.IsFinal() {
			continue
		}
		if err := state.RemoveTransition(event); err != nil {
			continue
		}
		m.publishStructural(StructuralNotification{
			Topic: TopicTransitionRemoved,
			State: state,
			Event: event,
		})
	}
	return nil
}

// NextState returns the state mapped from state on event, or nil when either
// input is nil or no edge exists. Lookup failure is not an error.
func (m *Machine) NextState(state *State, event *Event) *State {
	if state == nil || event == nil {
		return nil
	}
	return state.NextState(event)
}

// IsTransitionValid reports whether any edge leads from state to next.
func (m *Machine) IsTransitionValid(state, next *State) bool {
	if state == nil || next == nil {
		return false
	}
	return state.HasNextTransition(next)
}

// IsTransitionValidByEvent reports whether the edge for event leads from
// state to next.
func (m *Machine) IsTransitionValidByEvent(state *State, event *Event, next *State) bool {
	if state == nil || event == nil || next == nil {
		return false
	}
	return state.HasNextStateOnEvent(event, next)
}

// Clear resets every registry, initial-state mapping, and token binding, and
// publishes the cleared notification.
func (m *Machine) Clear() {
	m.states = make(map[int]*State)
	m.statesByName = make(map[string]*State)
	m.events = make(map[int]*Event)
	m.eventsByName = make(map[string]*Event)
	m.initialStates = make(map[string]*State)
	m.tokens = make(map[string]*State)
	m.nextStateID = 0
	m.nextEventID = 0
	m.publishStructural(StructuralNotification{Topic: TopicCleared})
}

func (m *Machine) sortedStates() []*State {
	ids := make([]int, 0, len(m.states))
	for id := range m.states {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*State, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.states[id])
	}
	return out
}

func (m *Machine) sortedEvents() []*Event {
	ids := make([]int, 0, len(m.events))
	for id := range m.events {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.events[id])
	}
	return out
}

// String renders a human-readable dump of the machine: its name, every
// state with its initial-region and final tags, every event, and the full
// transition table one edge per line.
func (m *Machine) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Machine: %s\n", m.name)
	b.WriteString("States:\n")
	for _, s := range m.sortedStates() {
		fmt.Fprintf(&b, "  %s", s)
		if s.IsInitialState() {
			fmt.Fprintf(&b, " [initial:%s]", s.InitialRegion())
		}
		if s.IsFinal() {
			b.WriteString(" [final]")
		}
		b.WriteString("\n")
	}
	b.WriteString("Events:\n")
	for _, e := range m.sortedEvents() {
		fmt.Fprintf(&b, "  %s\n", e)
	}
	b.WriteString("Transitions:\n")
	for _, s := range m.sortedStates() {
		fmt.Fprintf(&b, "  %s\n", s.TableString("\n  "))
	}
	return b.String()
}
