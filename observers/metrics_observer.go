package observers

import (
	"github.com/prometheus/client_golang/prometheus"

	libfsm "github.com/benleeph/lib-fsm"
)

// MetricsObserver exports Prometheus counters for a machine's notification
// channel: one counter per structural topic, one per token topic, and a
// per-edge transition counter labelled with the states and event involved.
type MetricsObserver struct {
	machine *libfsm.Machine
	subs    []libfsm.Subscription

	structuralEvents *prometheus.CounterVec
	tokenEvents      *prometheus.CounterVec
	transitions      *prometheus.CounterVec
}

// NewMetricsObserver registers the counters and subscribes to every topic on
// the machine. A nil registerer falls back to the default registry.
func NewMetricsObserver(m *libfsm.Machine, reg prometheus.Registerer) (*MetricsObserver, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &MetricsObserver{
		machine: m,
		structuralEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsm_structural_notifications_total",
				Help: "Structural notifications published, by topic.",
			},
			[]string{"machine", "topic"},
		),
		tokenEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsm_token_notifications_total",
				Help: "Token notifications published, by topic.",
			},
			[]string{"machine", "topic"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsm_token_transitions_total",
				Help: "Successful token traversals, by edge.",
			},
			[]string{"machine", "from", "to", "event"},
		),
	}
	for _, c := range []*prometheus.CounterVec{o.structuralEvents, o.tokenEvents, o.transitions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	for _, topic := range libfsm.AllStructuralTopics() {
		o.subs = append(o.subs, m.SubscribeStructural(topic, o.countStructural))
	}
	for _, topic := range libfsm.AllTokenTopics() {
		o.subs = append(o.subs, m.SubscribeToken(topic, o.countToken))
	}
	return o, nil
}

// Close unsubscribes the observer from the machine. Registered counters stay
// in the registry.
func (o *MetricsObserver) Close() {
	for _, sub := range o.subs {
		o.machine.Unsubscribe(sub)
	}
	o.subs = nil
}

func (o *MetricsObserver) countStructural(n libfsm.StructuralNotification) {
	o.structuralEvents.WithLabelValues(n.Machine, n.Topic.String()).Inc()
}

func (o *MetricsObserver) countToken(n libfsm.TokenNotification) {
	o.tokenEvents.WithLabelValues(n.Machine, n.Topic.String()).Inc()
	switch n.Topic {
	case libfsm.TopicTokenTransitioned,
		libfsm.TopicTokenSelfTransition,
		libfsm.TopicTokenReachedFinalState:
		o.transitions.WithLabelValues(
			n.Machine, stateLabel(n.From), stateLabel(n.To), eventLabel(n.Event),
		).Inc()
	}
}
