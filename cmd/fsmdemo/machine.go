package main

import (
	libfsm "github.com/benleeph/lib-fsm"
)

// trafficEvents keeps the handles the scenario needs after wiring.
type trafficEvents struct {
	noCar   *libfsm.Event
	secs10  *libfsm.Event
	secs60  *libfsm.Event
	secs90  *libfsm.Event
	secs600 *libfsm.Event
}

// buildTrafficLight wires the demo machine: Red/Yellow/Green plus a final
// Damaged state every light can break into.
func buildTrafficLight() (*libfsm.Machine, trafficEvents, error) {
	m := libfsm.New("traffic-light")

	red, err := m.AddStateWithID(0, "Red")
	if err != nil {
		return nil, trafficEvents{}, err
	}
	yellow, err := m.AddStateWithID(1, "Yellow")
	if err != nil {
		return nil, trafficEvents{}, err
	}
	green, err := m.AddStateWithID(999, "Green")
	if err != nil {
		return nil, trafficEvents{}, err
	}
	damaged, err := m.AddFinalStateWithID(-1, "Damaged")
	if err != nil {
		return nil, trafficEvents{}, err
	}

	var ev trafficEvents
	if ev.noCar, err = m.AddEvent("NoCar"); err != nil {
		return nil, trafficEvents{}, err
	}
	if ev.secs10, err = m.AddEventWithID(10, "Secs_10"); err != nil {
		return nil, trafficEvents{}, err
	}
	if ev.secs60, err = m.AddEventWithID(60, "Secs_60"); err != nil {
		return nil, trafficEvents{}, err
	}
	if ev.secs90, err = m.AddEventWithID(90, "Secs_90"); err != nil {
		return nil, trafficEvents{}, err
	}
	if ev.secs600, err = m.AddEventWithID(600, "Secs_600"); err != nil {
		return nil, trafficEvents{}, err
	}

	wiring := []struct {
		from  *libfsm.State
		event *libfsm.Event
		to    *libfsm.State
	}{
		{red, ev.noCar, green},
		{red, ev.secs60, green},
		{red, ev.secs600, damaged},
		{green, ev.secs90, yellow},
		{green, ev.secs600, damaged},
		{yellow, ev.secs10, red},
		{yellow, ev.secs60, damaged},
		{yellow, ev.secs600, damaged},
	}
	for _, w := range wiring {
		if err := m.AddStateTransition(w.from, w.event, w.to, nil); err != nil {
			return nil, trafficEvents{}, err
		}
	}
	return m, ev, nil
}
