package libfsm

import (
	"strings"

	"github.com/google/uuid"
)

// Resolver supplies the actual next state when advancement lands on a
// non-deterministic state. It receives the token id, the token's current
// state, and the triggering event, and returns a state belonging to the
// machine or nil to leave the transition unresolved.
type Resolver func(tokenID string, current *State, trigger *Event) *State

// NewTokenID returns a fresh opaque token id.
func NewTokenID() string {
	return uuid.New().String()
}

// CreateTokenInstance binds a new token to the default region's initial
// state.
func (m *Machine) CreateTokenInstance(tokenID string) (*State, error) {
	return m.CreateTokenInstanceInRegion(tokenID, m.name)
}

// CreateTokenInstanceInRegion binds a new token to the named region's
// initial state. The id must be non-blank and unused, and the region must
// have an initial state.
func (m *Machine) CreateTokenInstanceInRegion(tokenID, region string) (*State, error) {
	if strings.TrimSpace(tokenID) == "" {
		return nil, NewBlankTokenIDError()
	}
	if _, exists := m.tokens[tokenID]; exists {
		return nil, NewTokenExistsError(tokenID)
	}
	if region == "" {
		region = m.name
	}
	initial, bound := m.initialStates[region]
	if !bound {
		return nil, NewInitialStateMissingError(m.name, region)
	}
	m.tokens[tokenID] = initial
	m.publishToken(TokenNotification{
		Topic:   TopicTokenCreated,
		TokenID: tokenID,
		To:      initial,
	})
	return initial, nil
}

// GetTokenInstance returns the token's current state, lazily creating the
// token at the default region's initial state when it does not exist yet.
func (m *Machine) GetTokenInstance(tokenID string) (*State, error) {
	return m.GetTokenInstanceInRegion(tokenID, m.name)
}

// GetTokenInstanceInRegion returns the token's current state, lazily creating
// the token at the named region's initial state when it does not exist yet.
// The region only matters on creation; an existing token is returned as-is.
func (m *Machine) GetTokenInstanceInRegion(tokenID, region string) (*State, error) {
	if current, exists := m.tokens[tokenID]; exists {
		return current, nil
	}
	return m.CreateTokenInstanceInRegion(tokenID, region)
}

// LookupTokenInstance returns the token's current state without creating
// anything. A missing token is an error, mirrored on the token channel.
func (m *Machine) LookupTokenInstance(tokenID string) (*State, error) {
	current, exists := m.tokens[tokenID]
	if !exists {
		err := NewTokenNotFoundError(tokenID)
		m.publishToken(TokenNotification{
			Topic:   TopicTokenNotFound,
			TokenID: tokenID,
			Err:     err,
		})
		return nil, err
	}
	return current, nil
}

// HasTokenInstance reports whether a token with the given id exists.
func (m *Machine) HasTokenInstance(tokenID string) bool {
	_, exists := m.tokens[tokenID]
	return exists
}

// TokenCount returns the number of live token instances.
func (m *Machine) TokenCount() int {
	return len(m.tokens)
}

// UpdateTokenToNextState advances the token through the graph on the given
// event and returns its new state. The token is created lazily when it does
// not exist yet.
//
// The evaluation order is fixed: the token and event are resolved first;
// then the structural next state is computed; a non-deterministic next state
// is treated as tentative and handed to the resolver before the existence of
// a next state is judged at all, so a missing resolver fails more
// specifically than a missing edge. Failures leave the token unmoved and are
// mirrored on the token channel.
func (m *Machine) UpdateTokenToNextState(tokenID string, event *Event, resolver Resolver) (*State, error) {
	current, err := m.GetTokenInstance(tokenID)
	if err != nil {
		// GetTokenInstance only fails creating the token, never looking
		// it up, so the mirror reports a creation failure
		m.publishToken(TokenNotification{
			Topic:   TopicTokenCreationFailed,
			TokenID: tokenID,
			Err:     err,
		})
		return nil, err
	}
	if event == nil || !m.ownsEvent(event) {
		err := NewEventNotFoundError(m.name, eventLabel(event))
		m.publishToken(TokenNotification{
			Topic:   TopicTokenEventNotFound,
			TokenID: tokenID,
			From:    current,
			Event:   event,
			Err:     err,
		})
		return nil, err
	}

	next := current.NextState(event)
	if next != nil && !next.IsDeterministic() {
		m.publishToken(TokenNotification{
			Topic:   TopicTokenNonDeterministicPending,
			TokenID: tokenID,
			From:    current,
			To:      next,
			Event:   event,
		})
		if resolver == nil {
			err := NewResolverMissingError(tokenID, current, event)
			m.publishToken(TokenNotification{
				Topic:   TopicTokenResolverMissing,
				TokenID: tokenID,
				From:    current,
				Event:   event,
				Err:     err,
			})
			return nil, err
		}
		next = resolver(tokenID, current, event)
		if next != nil && !m.ownsState(next) {
			err := NewStateNotFoundError(m.name, next.String())
			m.publishToken(TokenNotification{
				Topic:   TopicTokenStateNotFound,
				TokenID: tokenID,
				From:    current,
				To:      next,
				Event:   event,
				Err:     err,
			})
			return nil, err
		}
	}
	if next == nil {
		err := NewInvalidStateChangeError(tokenID, current, event)
		m.publishToken(TokenNotification{
			Topic:   TopicTokenInvalidStateChange,
			TokenID: tokenID,
			From:    current,
			Event:   event,
			Err:     err,
		})
		return nil, err
	}

	current.ExecuteOutput(event)

	topic := TopicTokenTransitioned
	switch {
	case next.Equals(current):
		topic = TopicTokenSelfTransition
	case next.IsFinal():
		topic = TopicTokenReachedFinalState
	}
	m.publishToken(TokenNotification{
		Topic:   topic,
		TokenID: tokenID,
		From:    current,
		To:      next,
		Event:   event,
	})

	m.tokens[tokenID] = next
	return next, nil
}

func eventLabel(e *Event) string {
	if e == nil {
		return "<nil>"
	}
	return e.String()
}
