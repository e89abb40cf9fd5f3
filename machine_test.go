package libfsm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_AddStateAssignsIDs(t *testing.T) {
	m := New("m")

	red, err := m.AddState("Red")
	require.NoError(t, err)
	assert.Equal(t, 0, red.ID())

	yellow, err := m.AddState("Yellow")
	require.NoError(t, err)
	assert.Equal(t, 1, yellow.ID())

	// explicit ids never collide with the allocator
	green, err := m.AddStateWithID(2, "Green")
	require.NoError(t, err)
	blue, err := m.AddState("Blue")
	require.NoError(t, err)
	assert.Equal(t, 3, blue.ID())
	assert.Equal(t, 4, m.StateCount())
	assert.Equal(t, "m", green.Machine())
}

func TestMachine_DuplicateIDsRejected(t *testing.T) {
	m := New("m")

	_, err := m.AddStateWithID(0, "Red")
	require.NoError(t, err)
	_, err = m.AddStateWithID(0, "Green")
	assert.True(t, IsDuplicateIdentity(err))
	_, err = m.AddFinalStateWithID(0, "Damaged")
	assert.True(t, IsDuplicateIdentity(err))
	assert.Equal(t, 1, m.StateCount(), "failed add must not mutate the registry")

	_, err = m.AddEventWithID(60, "Secs_60")
	require.NoError(t, err)
	_, err = m.AddEventWithID(60, "Secs_90")
	assert.True(t, IsDuplicateIdentity(err))
	assert.Equal(t, 1, m.EventCount())
}

func TestMachine_AutoInitialPromotion(t *testing.T) {
	m := New("m")

	red, err := m.AddState("Red")
	require.NoError(t, err)
	assert.Same(t, red, m.DefaultInitialState())
	assert.True(t, red.IsInitialState())
	assert.Equal(t, "m", red.InitialRegion())

	// later states do not steal the default region
	green, err := m.AddState("Green")
	require.NoError(t, err)
	assert.Same(t, red, m.DefaultInitialState())

	require.NoError(t, m.SetInitialState(green))
	assert.Same(t, green, m.DefaultInitialState())
	assert.False(t, red.IsInitialState(), "prior holder must stop reporting initial")
	assert.True(t, green.IsInitialState())
}

func TestMachine_AutoInitialAppliesToFinalState(t *testing.T) {
	m := New("m")

	damaged, err := m.AddFinalState("Damaged")
	require.NoError(t, err)
	assert.Same(t, damaged, m.DefaultInitialState())
}

func TestMachine_WithoutAutoInitialState(t *testing.T) {
	m := New("m", WithoutAutoInitialState())

	red, err := m.AddState("Red")
	require.NoError(t, err)
	assert.Nil(t, m.DefaultInitialState())
	assert.False(t, red.IsInitialState())

	require.NoError(t, m.SetInitialState(red))
	assert.Same(t, red, m.DefaultInitialState())
}

func TestMachine_SetInitialStateForRegion(t *testing.T) {
	m := New("m")

	red, _ := m.AddState("Red")
	green, _ := m.AddState("Green")

	require.NoError(t, m.SetInitialStateForRegion(green, "north"))
	assert.Same(t, green, m.InitialState("north"))
	assert.Equal(t, "north", green.InitialRegion())
	assert.Same(t, red, m.DefaultInitialState(), "default region untouched")

	// empty region resolves to the default region
	assert.Same(t, red, m.InitialState(""))

	foreign := newState("other", 7, "Foreign", false)
	err := m.SetInitialStateForRegion(foreign, "north")
	assert.Equal(t, ErrCodeStateNotFound, CodeOf(err))

	err = m.SetInitialStateForRegion(nil, "north")
	assert.Equal(t, ErrCodeIncompleteTransitionInput, CodeOf(err))
}

func TestMachine_MovingInitialStateVacatesOldRegion(t *testing.T) {
	m := New("m", WithoutAutoInitialState())

	red, _ := m.AddState("Red")

	var removals []string
	m.SubscribeStructural(TopicInitialStateRemoved, func(n StructuralNotification) {
		removals = append(removals, n.Region)
	})

	require.NoError(t, m.SetInitialStateForRegion(red, "north"))
	require.NoError(t, m.SetInitialStateForRegion(red, "south"))

	assert.Nil(t, m.InitialState("north"), "old region must be vacated")
	assert.Same(t, red, m.InitialState("south"))
	assert.Equal(t, "south", red.InitialRegion())
	assert.Equal(t, []string{"north"}, removals)

	// the vacated region no longer accepts token creation
	_, err := m.CreateTokenInstanceInRegion("t-1", "north")
	assert.Equal(t, ErrCodeInitialStateMissing, CodeOf(err))

	got, err := m.CreateTokenInstanceInRegion("t-2", "south")
	require.NoError(t, err)
	assert.Same(t, red, got)
}

func TestMachine_Lookups(t *testing.T) {
	m := New("m")

	red, _ := m.AddStateWithID(0, "Red")
	secs60, _ := m.AddEventWithID(60, "Secs_60")

	assert.Same(t, red, m.StateByID(0))
	assert.Nil(t, m.StateByID(1))
	assert.Same(t, red, m.StateByName("Red"))
	assert.Nil(t, m.StateByName("Green"))
	assert.Same(t, red, m.StateMatching(0, "Red"))
	assert.Nil(t, m.StateMatching(0, "Green"), "id and name must both match")
	assert.Nil(t, m.StateMatching(1, "Red"))

	assert.Same(t, secs60, m.EventByID(60))
	assert.Nil(t, m.EventByID(61))
	assert.Same(t, secs60, m.EventByName("Secs_60"))
	assert.Nil(t, m.EventByName("Secs_90"))
	assert.Same(t, secs60, m.EventMatching(60, "Secs_60"))
	assert.Nil(t, m.EventMatching(60, "Secs_90"))
}

func TestMachine_AddStateTransition(t *testing.T) {
	m := New("m")

	red, _ := m.AddState("Red")
	green, _ := m.AddState("Green")
	secs60, _ := m.AddEventWithID(60, "Secs_60")

	require.NoError(t, m.AddStateTransition(red, secs60, green, nil))
	assert.Same(t, green, m.NextState(red, secs60))

	// idempotent re-add
	require.NoError(t, m.AddStateTransition(red, secs60, green, nil))
	assert.Equal(t, 1, red.TransitionCount())

	yellow, _ := m.AddState("Yellow")
	err := m.AddStateTransition(red, secs60, yellow, nil)
	assert.True(t, IsTransitionConflict(err))

	foreignEvent := NewEvent(61, "Secs_61")
	err = m.AddStateTransition(red, foreignEvent, green, nil)
	assert.Equal(t, ErrCodeEventNotFound, CodeOf(err))

	foreignState := newState("other", 7, "Foreign", false)
	err = m.AddStateTransition(foreignState, secs60, green, nil)
	assert.Equal(t, ErrCodeStateNotFound, CodeOf(err))
	err = m.AddStateTransition(red, secs60, foreignState, nil)
	assert.Equal(t, ErrCodeStateNotFound, CodeOf(err))

	err = m.AddStateTransition(nil, secs60, green, nil)
	assert.Equal(t, ErrCodeIncompleteTransitionInput, CodeOf(err))
	err = m.AddStateTransition(red, nil, green, nil)
	assert.Equal(t, ErrCodeIncompleteTransitionInput, CodeOf(err))
}

func TestMachine_AddStateTransitionByIDAndName(t *testing.T) {
	m := New("m")

	red, _ := m.AddStateWithID(0, "Red")
	green, _ := m.AddStateWithID(999, "Green")
	yellow, _ := m.AddStateWithID(1, "Yellow")
	_, _ = m.AddEventWithID(60, "Secs_60")
	secs90, _ := m.AddEventWithID(90, "Secs_90")

	require.NoError(t, m.AddStateTransitionByID(0, 60, 999, nil))
	assert.Same(t, green, red.NextState(m.EventByID(60)))

	require.NoError(t, m.AddStateTransitionByName("Green", "Secs_90", "Yellow", nil))
	assert.Same(t, yellow, green.NextState(secs90))

	assert.Equal(t, ErrCodeStateNotFound, CodeOf(m.AddStateTransitionByID(5, 60, 999, nil)))
	assert.Equal(t, ErrCodeEventNotFound, CodeOf(m.AddStateTransitionByID(0, 5, 999, nil)))
	assert.Equal(t, ErrCodeStateNotFound, CodeOf(m.AddStateTransitionByID(0, 60, 5, nil)))
	assert.Equal(t, ErrCodeStateNotFound, CodeOf(m.AddStateTransitionByName("Nope", "Secs_60", "Green", nil)))
	assert.Equal(t, ErrCodeEventNotFound, CodeOf(m.AddStateTransitionByName("Red", "Nope", "Green", nil)))
	assert.Equal(t, ErrCodeStateNotFound, CodeOf(m.AddStateTransitionByName("Red", "Secs_60", "Nope", nil)))
}

func TestMachine_SelfTransitionPolicy(t *testing.T) {
	permissive := New("m")
	red, _ := permissive.AddState("Red")
	tick, _ := permissive.AddEvent("tick")
	require.NoError(t, permissive.AddStateTransition(red, tick, red, nil))
	assert.Same(t, red, permissive.NextState(red, tick))

	strict := New("m", WithoutSelfTransitions())
	assert.False(t, strict.AllowsSelfTransition())
	sRed, _ := strict.AddState("Red")
	sTick, _ := strict.AddEvent("tick")
	err := strict.AddStateTransition(sRed, sTick, sRed, nil)
	assert.Equal(t, ErrCodeSelfTransitionDisallowed, CodeOf(err))
	assert.Nil(t, strict.NextState(sRed, sTick))
}

func TestMachine_AddTransitionForAllStatesBestEffort(t *testing.T) {
	m := New("m")

	red, _ := m.AddState("Red")
	green, _ := m.AddState("Green")
	yellow, _ := m.AddState("Yellow")
	damaged, _ := m.AddFinalState("Damaged")
	secs600, _ := m.AddEventWithID(600, "Secs_600")

	// Red already routes Secs_600 somewhere else; the batch must not abort
	require.NoError(t, m.AddStateTransition(red, secs600, green, nil))

	require.NoError(t, m.AddStateTransitionForAllStates(secs600, damaged, nil))

	assert.Same(t, green, red.NextState(secs600), "conflicting state skipped, edge untouched")
	assert.Same(t, damaged, yellow.NextState(secs600))
	assert.Same(t, damaged, green.NextState(secs600))
	assert.Equal(t, 0, damaged.TransitionCount(), "final states never gain edges")

	assert.Equal(t, ErrCodeIncompleteTransitionInput, CodeOf(m.AddStateTransitionForAllStates(nil, damaged, nil)))
	assert.Equal(t, ErrCodeIncompleteTransitionInput, CodeOf(m.AddStateTransitionForAllStates(secs600, nil, nil)))
}

func TestMachine_RemoveTransitions(t *testing.T) {
	m := New("m")

	red, _ := m.AddState("Red")
	green, _ := m.AddState("Green")
	yellow, _ := m.AddState("Yellow")
	tick, _ := m.AddEvent("tick")

	require.NoError(t, m.AddStateTransition(red, tick, green, nil))
	require.NoError(t, m.AddStateTransition(green, tick, yellow, nil))

	require.NoError(t, m.RemoveStateTransition(red, tick))
	assert.Nil(t, red.NextState(tick))

	err := m.RemoveStateTransition(red, tick)
	assert.Equal(t, ErrCodeUnknownTransition, CodeOf(err))

	// bulk removal skips states without the edge
	require.NoError(t, m.RemoveAllStatesTransitionForEvent(tick))
	assert.Nil(t, green.NextState(tick))

	require.NoError(t, m.AddStateTransition(red, tick, green, nil))
	require.NoError(t, m.RemoveStateTransitionByID(red.ID(), tick.ID()))
	assert.Nil(t, red.NextState(tick))

	require.NoError(t, m.AddStateTransition(red, tick, green, nil))
	require.NoError(t, m.RemoveStateTransitionByName("Red", "tick"))
	assert.Nil(t, red.NextState(tick))
	assert.Equal(t, ErrCodeStateNotFound, CodeOf(m.RemoveStateTransitionByName("Nope", "tick")))
	assert.Equal(t, ErrCodeEventNotFound, CodeOf(m.RemoveStateTransitionByID(red.ID(), 99)))

	assert.Equal(t, ErrCodeIncompleteTransitionInput, CodeOf(m.RemoveAllStatesTransitionForEvent(nil)))
}

func TestMachine_TransitionQueries(t *testing.T) {
	m := New("m")

	red, _ := m.AddState("Red")
	green, _ := m.AddState("Green")
	yellow, _ := m.AddState("Yellow")
	tick, _ := m.AddEvent("tick")
	require.NoError(t, m.AddStateTransition(red, tick, green, nil))

	assert.Same(t, green, m.NextState(red, tick))
	assert.Nil(t, m.NextState(nil, tick))
	assert.Nil(t, m.NextState(red, nil))
	assert.Nil(t, m.NextState(yellow, tick))

	assert.True(t, m.IsTransitionValid(red, green))
	assert.False(t, m.IsTransitionValid(red, yellow))
	assert.False(t, m.IsTransitionValid(nil, green))

	assert.True(t, m.IsTransitionValidByEvent(red, tick, green))
	assert.False(t, m.IsTransitionValidByEvent(red, tick, yellow))
	assert.False(t, m.IsTransitionValidByEvent(red, nil, green))
}

func TestMachine_Clear(t *testing.T) {
	m := New("m")

	_, _ = m.AddState("Red")
	_, _ = m.AddEvent("tick")
	_, err := m.CreateTokenInstance("t-1")
	require.NoError(t, err)

	var cleared bool
	m.SubscribeStructural(TopicCleared, func(n StructuralNotification) {
		cleared = true
	})

	m.Clear()

	assert.True(t, cleared)
	assert.Equal(t, 0, m.StateCount())
	assert.Equal(t, 0, m.EventCount())
	assert.Equal(t, 0, m.TokenCount())
	assert.Nil(t, m.DefaultInitialState())

	// the allocator starts over
	red, err := m.AddState("Red")
	require.NoError(t, err)
	assert.Equal(t, 0, red.ID())
}

func TestMachine_StructuralNotifications(t *testing.T) {
	m := New("m")

	var topics []StructuralTopic
	for _, topic := range AllStructuralTopics() {
		m.SubscribeStructural(topic, func(n StructuralNotification) {
			topics = append(topics, n.Topic)
		})
	}

	red, _ := m.AddState("Red")       // state added + initial added
	green, _ := m.AddState("Green")   // state added
	_, _ = m.AddFinalState("Damaged") // final state added
	tick, _ := m.AddEvent("tick")     // event added
	require.NoError(t, m.AddStateTransition(red, tick, green, nil))
	require.NoError(t, m.SetInitialState(green)) // initial removed + added
	require.NoError(t, m.RemoveStateTransition(red, tick))

	want := []StructuralTopic{
		TopicStateAdded,
		TopicInitialStateAdded,
		TopicStateAdded,
		TopicFinalStateAdded,
		TopicEventAdded,
		TopicTransitionAdded,
		TopicInitialStateRemoved,
		TopicInitialStateAdded,
		TopicTransitionRemoved,
	}
	assert.Equal(t, want, topics)
}

func TestMachine_String(t *testing.T) {
	m := New("traffic-light")

	red, _ := m.AddStateWithID(0, "Red")
	green, _ := m.AddStateWithID(999, "Green")
	_, _ = m.AddFinalStateWithID(-1, "Damaged")
	secs60, _ := m.AddEventWithID(60, "Secs_60")
	require.NoError(t, m.AddStateTransition(red, secs60, green, nil))

	dump := m.String()
	assert.Contains(t, dump, "Machine: traffic-light")
	assert.Contains(t, dump, "Red(0) [initial:traffic-light]")
	assert.Contains(t, dump, "Damaged(-1) [final]")
	assert.Contains(t, dump, "Secs_60(60)")
	assert.Contains(t, dump, "Red(0) ---[ Secs_60(60) ]--> Green(999)")
	assert.Contains(t, dump, "Damaged(-1) ---[X]")
	assert.True(t, strings.HasPrefix(dump, "Machine:"))
}
