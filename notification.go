package libfsm

import (
	"time"

	"github.com/google/uuid"
)

// StructuralTopic enumerates registry-change notifications.
type StructuralTopic int

const (
	// TopicCleared fires when every registry is reset
	TopicCleared StructuralTopic = iota
	// TopicInitialStateAdded fires when a state becomes initial for a region
	TopicInitialStateAdded
	// TopicInitialStateRemoved fires when a state stops being initial
	TopicInitialStateRemoved
	// TopicStateAdded fires when a non-final state is registered
	TopicStateAdded
	// TopicFinalStateAdded fires when a final state is registered
	TopicFinalStateAdded
	// TopicEventAdded fires when an event is registered
	TopicEventAdded
	// TopicTransitionAdded fires when an edge is declared
	TopicTransitionAdded
	// TopicTransitionRemoved fires when an edge is deleted
	TopicTransitionRemoved
)

// String returns the topic name.
func (t StructuralTopic) String() string {
	switch t {
	case TopicCleared:
		return "cleared"
	case TopicInitialStateAdded:
		return "initial_state_added"
	case TopicInitialStateRemoved:
		return "initial_state_removed"
	case TopicStateAdded:
		return "state_added"
	case TopicFinalStateAdded:
		return "final_state_added"
	case TopicEventAdded:
		return "event_added"
	case TopicTransitionAdded:
		return "transition_added"
	case TopicTransitionRemoved:
		return "transition_removed"
	default:
		return "unknown"
	}
}

// AllStructuralTopics lists every structural topic, for observers that
// subscribe across the whole channel.
func AllStructuralTopics() []StructuralTopic {
	return []StructuralTopic{
		TopicCleared,
		TopicInitialStateAdded,
		TopicInitialStateRemoved,
		TopicStateAdded,
		TopicFinalStateAdded,
		TopicEventAdded,
		TopicTransitionAdded,
		TopicTransitionRemoved,
	}
}

// TokenTopic enumerates token lifecycle, transition, and error
// notifications.
type TokenTopic int

const (
	// TopicTokenCreated fires when a token instance is bound to its initial state
	TopicTokenCreated TokenTopic = iota
	// TopicTokenTransitioned fires on an ordinary state change
	TopicTokenTransitioned
	// TopicTokenSelfTransition fires when the resolved next state equals the current one
	TopicTokenSelfTransition
	// TopicTokenReachedFinalState fires when the resolved next state is final
	TopicTokenReachedFinalState
	// TopicTokenNonDeterministicPending fires before resolver consultation
	TopicTokenNonDeterministicPending
	// TopicTokenInvalidStateChange fires when no next state could be produced
	TopicTokenInvalidStateChange
	// TopicTokenNotFound fires when a strict lookup cannot resolve the token
	TopicTokenNotFound
	// TopicTokenStateNotFound fires when a resolver returns a foreign state
	TopicTokenStateNotFound
	// TopicTokenEventNotFound fires when advancement cannot resolve the event
	TopicTokenEventNotFound
	// TopicTokenResolverMissing fires when a non-deterministic transition has no resolver
	TopicTokenResolverMissing
	// TopicTokenCreationFailed fires when a token could not be created
	TopicTokenCreationFailed
)

// String returns the topic name.
func (t TokenTopic) String() string {
	switch t {
	case TopicTokenCreated:
		return "token_created"
	case TopicTokenTransitioned:
		return "token_transitioned"
	case TopicTokenSelfTransition:
		return "token_self_transition"
	case TopicTokenReachedFinalState:
		return "token_reached_final_state"
	case TopicTokenNonDeterministicPending:
		return "token_non_deterministic_pending"
	case TopicTokenInvalidStateChange:
		return "token_invalid_state_change"
	case TopicTokenNotFound:
		return "token_not_found"
	case TopicTokenStateNotFound:
		return "token_state_not_found"
	case TopicTokenEventNotFound:
		return "token_event_not_found"
	case TopicTokenResolverMissing:
		return "token_resolver_missing"
	case TopicTokenCreationFailed:
		return "token_creation_failed"
	default:
		return "unknown"
	}
}

// AllTokenTopics lists every token topic, for observers that subscribe
// across the whole channel.
func AllTokenTopics() []TokenTopic {
	return []TokenTopic{
		TopicTokenCreated,
		TopicTokenTransitioned,
		TopicTokenSelfTransition,
		TopicTokenReachedFinalState,
		TopicTokenNonDeterministicPending,
		TopicTokenInvalidStateChange,
		TopicTokenNotFound,
		TopicTokenStateNotFound,
		TopicTokenEventNotFound,
		TopicTokenResolverMissing,
		TopicTokenCreationFailed,
	}
}

// StructuralNotification is the payload published on structural topics.
// Fields not relevant to a topic are left zero.
type StructuralNotification struct {
	ID        string
	Timestamp time.Time
	Topic     StructuralTopic
	Machine   string
	State     *State
	NextState *State
	Event     *Event
	Region    string
}

// TokenNotification is the payload published on token topics. Err carries
// the mirrored advancement error on error topics.
type TokenNotification struct {
	ID        string
	Timestamp time.Time
	Topic     TokenTopic
	Machine   string
	TokenID   string
	From      *State
	To        *State
	Event     *Event
	Err       error
}

// StructuralHandler receives structural notifications.
type StructuralHandler func(StructuralNotification)

// TokenHandler receives token notifications.
type TokenHandler func(TokenNotification)

// Subscription identifies one registered handler.
type Subscription string

// notifier fans notifications out to per-topic handlers. Handler panics are
// recovered so one subscriber cannot break another or the engine.
type notifier struct {
	structural map[StructuralTopic]map[Subscription]StructuralHandler
	token      map[TokenTopic]map[Subscription]TokenHandler
}

func newNotifier() *notifier {
	return &notifier{
		structural: make(map[StructuralTopic]map[Subscription]StructuralHandler),
		token:      make(map[TokenTopic]map[Subscription]TokenHandler),
	}
}

func (n *notifier) subscribeStructural(topic StructuralTopic, h StructuralHandler) Subscription {
	sub := Subscription(uuid.New().String())
	if n.structural[topic] == nil {
		n.structural[topic] = make(map[Subscription]StructuralHandler)
	}
	n.structural[topic][sub] = h
	return sub
}

func (n *notifier) subscribeToken(topic TokenTopic, h TokenHandler) Subscription {
	sub := Subscription(uuid.New().String())
	if n.token[topic] == nil {
		n.token[topic] = make(map[Subscription]TokenHandler)
	}
	n.token[topic][sub] = h
	return sub
}

func (n *notifier) unsubscribe(sub Subscription) {
	for _, handlers := range n.structural {
		delete(handlers, sub)
	}
	for _, handlers := range n.token {
		delete(handlers, sub)
	}
}

func (n *notifier) publishStructural(sn StructuralNotification) {
	sn.ID = uuid.New().String()
	sn.Timestamp = time.Now().UTC()
	for _, h := range n.structural[sn.Topic] {
		safeNotify(func() { h(sn) })
	}
}

func (n *notifier) publishToken(tn TokenNotification) {
	tn.ID = uuid.New().String()
	tn.Timestamp = time.Now().UTC()
	for _, h := range n.token[tn.Topic] {
		safeNotify(func() { h(tn) })
	}
}

func safeNotify(deliver func()) {
	defer func() {
		_ = recover()
	}()
	deliver()
}
