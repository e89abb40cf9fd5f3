package observers_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	libfsm "github.com/benleeph/lib-fsm"
	"github.com/benleeph/lib-fsm/observers"
)

func TestSlogObserver_LogsStructuralAndTokenChanges(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	m := libfsm.New("m")
	o := observers.NewSlogObserver(m, logger)
	defer o.Close()

	red, err := m.AddState("Red")
	require.NoError(t, err)
	green, err := m.AddState("Green")
	require.NoError(t, err)
	tick, err := m.AddEvent("tick")
	require.NoError(t, err)
	require.NoError(t, m.AddStateTransition(red, tick, green, nil))

	_, err = m.CreateTokenInstance("t-1")
	require.NoError(t, err)
	_, err = m.UpdateTokenToNextState("t-1", tick, nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "topic=state_added")
	assert.Contains(t, out, "topic=event_added")
	assert.Contains(t, out, "topic=transition_added")
	assert.Contains(t, out, "topic=token_created")
	assert.Contains(t, out, "topic=token_transitioned")
	assert.Contains(t, out, "token=t-1")
	assert.Contains(t, out, "machine=m")
}

func TestSlogObserver_ErrorsLogAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	m := libfsm.New("m")
	o := observers.NewSlogObserver(m, logger)
	defer o.Close()

	_, err := m.LookupTokenInstance("t-missing")
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "topic=token_not_found")
	assert.Contains(t, out, "token=t-missing")
}

func TestSlogObserver_CloseStopsLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	m := libfsm.New("m")
	o := observers.NewSlogObserver(m, logger)
	o.Close()

	_, err := m.AddState("Red")
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}
