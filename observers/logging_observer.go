// Package observers provides ready-made subscribers for a machine's
// notification channel: structured logging via slog and Prometheus counters.
package observers

import (
	"log/slog"
	"os"

	libfsm "github.com/benleeph/lib-fsm"
)

// SlogObserver logs every structural and token notification through a
// slog.Logger. Error-carrying token notifications log at error level,
// everything else at info.
type SlogObserver struct {
	machine *libfsm.Machine
	logger  *slog.Logger
	subs    []libfsm.Subscription
}

// NewSlogObserver subscribes to every topic on the machine. A nil logger
// falls back to a text handler on stderr.
func NewSlogObserver(m *libfsm.Machine, logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	o := &SlogObserver{machine: m, logger: logger}
	for _, topic := range libfsm.AllStructuralTopics() {
		o.subs = append(o.subs, m.SubscribeStructural(topic, o.logStructural))
	}
	for _, topic := range libfsm.AllTokenTopics() {
		o.subs = append(o.subs, m.SubscribeToken(topic, o.logToken))
	}
	return o
}

// NewDefaultLogger builds the observer's fallback logger: a text handler on
// stderr, kept off stdout so it does not interleave with program output.
func NewDefaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// Close unsubscribes the observer from the machine.
func (o *SlogObserver) Close() {
	for _, sub := range o.subs {
		o.machine.Unsubscribe(sub)
	}
	o.subs = nil
}

func (o *SlogObserver) logStructural(n libfsm.StructuralNotification) {
	o.logger.Info("fsm structural change",
		"machine", n.Machine,
		"topic", n.Topic.String(),
		"state", stateLabel(n.State),
		"next", stateLabel(n.NextState),
		"event", eventLabel(n.Event),
		"region", n.Region,
	)
}

func (o *SlogObserver) logToken(n libfsm.TokenNotification) {
	attrs := []any{
		"machine", n.Machine,
		"topic", n.Topic.String(),
		"token", n.TokenID,
		"from", stateLabel(n.From),
		"to", stateLabel(n.To),
		"event", eventLabel(n.Event),
	}
	if n.Err != nil {
		attrs = append(attrs, "err", n.Err)
		o.logger.Error("fsm token error", attrs...)
		return
	}
	o.logger.Info("fsm token change", attrs...)
}

func stateLabel(s *libfsm.State) string {
	if s == nil {
		return ""
	}
	return s.String()
}

func eventLabel(e *libfsm.Event) string {
	if e == nil {
		return ""
	}
	return e.String()
}
