package libfsm

// Output is a side-effect callback attached to a transition edge. The
// variant is chosen when the transition is declared, so dispatch never needs
// to inspect the callback's shape at run time. Outputs are a side channel
// only; they never pick the next state.
type Output interface {
	invoke(current *State, trigger *Event)
}

// NoArgEffect is an output that needs no transition context.
type NoArgEffect func()

func (f NoArgEffect) invoke(*State, *Event) {
	f()
}

// StateEffect is a Moore-style output receiving the state the token is
// leaving.
type StateEffect func(current *State)

func (f StateEffect) invoke(current *State, _ *Event) {
	f(current)
}

// StateEventEffect is a Mealy-style output receiving the state the token is
// leaving and the event that triggered the traversal.
type StateEventEffect func(current *State, trigger *Event)

func (f StateEventEffect) invoke(current *State, trigger *Event) {
	f(current, trigger)
}
