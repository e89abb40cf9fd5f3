package libfsm

import "fmt"

// ErrorCode identifies a specific failure condition in the engine.
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// A state, event, or token id was reused
	ErrCodeDuplicateIdentity
	// A state or event argument was nil or blank
	ErrCodeIncompleteTransitionInput
	// A transition add/remove was attempted on a final state
	ErrCodeFinalStateMutation
	// An edge was re-declared with a different target
	ErrCodeTransitionConflict
	// A non-existent edge was removed
	ErrCodeUnknownTransition
	// A self-transition was declared while the policy forbids them
	ErrCodeSelfTransitionDisallowed
	// No token instance exists for the given id
	ErrCodeTokenNotFound
	// The event does not belong to the machine
	ErrCodeEventNotFound
	// The state does not belong to the machine
	ErrCodeStateNotFound
	// The region has no initial state
	ErrCodeInitialStateMissing
	// Advancement landed on a non-deterministic state without a resolver
	ErrCodeResolverMissing
	// No next state could be produced for the token
	ErrCodeInvalidStateChange
)

// RegistryError reports a failure registering or resolving a state, event,
// or initial-state entry.
type RegistryError struct {
	Code    ErrorCode
	Machine string
	Kind    string
	Message string
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("%s registry error [%s]: %s", e.Kind, e.Machine, e.Message)
}

// NewDuplicateIdentityError creates an error for a reused state or event id.
func NewDuplicateIdentityError(machine, kind string, id int) *RegistryError {
	return &RegistryError{
		Code:    ErrCodeDuplicateIdentity,
		Machine: machine,
		Kind:    kind,
		Message: fmt.Sprintf("%s id %d already registered", kind, id),
	}
}

// NewStateNotFoundError creates an error for a state that does not belong to
// the machine.
func NewStateNotFoundError(machine, state string) *RegistryError {
	return &RegistryError{
		Code:    ErrCodeStateNotFound,
		Machine: machine,
		Kind:    "state",
		Message: fmt.Sprintf("state %s not registered", state),
	}
}

// NewEventNotFoundError creates an error for an event that does not belong
// to the machine.
func NewEventNotFoundError(machine, event string) *RegistryError {
	return &RegistryError{
		Code:    ErrCodeEventNotFound,
		Machine: machine,
		Kind:    "event",
		Message: fmt.Sprintf("event %s not registered", event),
	}
}

// NewInitialStateMissingError creates an error for a region without an
// initial state.
func NewInitialStateMissingError(machine, region string) *RegistryError {
	return &RegistryError{
		Code:    ErrCodeInitialStateMissing,
		Machine: machine,
		Kind:    "initial state",
		Message: fmt.Sprintf("no initial state for region '%s'", region),
	}
}

// TransitionError reports a failed transition-table mutation.
type TransitionError struct {
	Code   ErrorCode
	State  string
	Event  string
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Event == "" {
		return fmt.Sprintf("transition error [%s]: %s", e.State, e.Reason)
	}
	return fmt.Sprintf("transition error [%s on %s]: %s", e.State, e.Event, e.Reason)
}

// NewFinalStateMutationError creates an error for a table mutation on a
// final state.
func NewFinalStateMutationError(state *State) *TransitionError {
	return &TransitionError{
		Code:   ErrCodeFinalStateMutation,
		State:  state.String(),
		Reason: "final state has no transition table",
	}
}

// NewIncompleteTransitionInputError creates an error for a nil or blank
// state/event argument.
func NewIncompleteTransitionInputError(reason string) *TransitionError {
	return &TransitionError{
		Code:   ErrCodeIncompleteTransitionInput,
		Reason: reason,
	}
}

// NewTransitionConflictError creates an error for an edge re-declared with a
// different target.
func NewTransitionConflictError(state *State, event *Event, existing, requested *State) *TransitionError {
	return &TransitionError{
		Code:   ErrCodeTransitionConflict,
		State:  state.String(),
		Event:  event.String(),
		Reason: fmt.Sprintf("edge already points at %s, refusing remap to %s", existing, requested),
	}
}

// NewUnknownTransitionError creates an error for removing an edge that does
// not exist.
func NewUnknownTransitionError(state *State, event *Event) *TransitionError {
	return &TransitionError{
		Code:   ErrCodeUnknownTransition,
		State:  state.String(),
		Event:  event.String(),
		Reason: "no edge for event",
	}
}

// NewSelfTransitionDisallowedError creates an error for a self-edge declared
// while the machine forbids them.
func NewSelfTransitionDisallowedError(state *State, event *Event) *TransitionError {
	return &TransitionError{
		Code:   ErrCodeSelfTransitionDisallowed,
		State:  state.String(),
		Event:  event.String(),
		Reason: "self-transitions are disallowed on this machine",
	}
}

// TokenError reports a token lifecycle or advancement failure.
type TokenError struct {
	Code    ErrorCode
	TokenID string
	Message string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token error [%s]: %s", e.TokenID, e.Message)
}

// NewTokenNotFoundError creates an error for a missing token instance.
func NewTokenNotFoundError(tokenID string) *TokenError {
	return &TokenError{
		Code:    ErrCodeTokenNotFound,
		TokenID: tokenID,
		Message: "no token instance with this id",
	}
}

// NewTokenExistsError creates an error for a reused token id.
func NewTokenExistsError(tokenID string) *TokenError {
	return &TokenError{
		Code:    ErrCodeDuplicateIdentity,
		TokenID: tokenID,
		Message: "token instance already exists",
	}
}

// NewBlankTokenIDError creates an error for an empty token id.
func NewBlankTokenIDError() *TokenError {
	return &TokenError{
		Code:    ErrCodeIncompleteTransitionInput,
		Message: "token id must not be blank",
	}
}

// NewResolverMissingError creates an error for advancement onto a
// non-deterministic state without a resolver.
func NewResolverMissingError(tokenID string, current *State, event *Event) *TokenError {
	return &TokenError{
		Code:    ErrCodeResolverMissing,
		TokenID: tokenID,
		Message: fmt.Sprintf("non-deterministic transition from %s on %s requires a resolver", current, event),
	}
}

// NewInvalidStateChangeError creates an error for an advancement that
// produced no next state.
func NewInvalidStateChangeError(tokenID string, current *State, event *Event) *TokenError {
	return &TokenError{
		Code:    ErrCodeInvalidStateChange,
		TokenID: tokenID,
		Message: fmt.Sprintf("no transition from %s on %s", current, event),
	}
}

// CodeOf returns the error code carried by a known error type, or
// ErrCodeNone for anything else.
func CodeOf(err error) ErrorCode {
	switch e := err.(type) {
	case *RegistryError:
		return e.Code
	case *TransitionError:
		return e.Code
	case *TokenError:
		return e.Code
	default:
		return ErrCodeNone
	}
}

// IsDuplicateIdentity checks whether an error reports a reused id.
func IsDuplicateIdentity(err error) bool {
	return CodeOf(err) == ErrCodeDuplicateIdentity
}

// IsFinalStateMutation checks whether an error reports a table mutation on a
// final state.
func IsFinalStateMutation(err error) bool {
	return CodeOf(err) == ErrCodeFinalStateMutation
}

// IsTransitionConflict checks whether an error reports a conflicting remap.
func IsTransitionConflict(err error) bool {
	return CodeOf(err) == ErrCodeTransitionConflict
}

// IsTokenNotFound checks whether an error reports a missing token instance.
func IsTokenNotFound(err error) bool {
	return CodeOf(err) == ErrCodeTokenNotFound
}

// IsResolverMissing checks whether an error reports a missing
// non-deterministic resolver.
func IsResolverMissing(err error) bool {
	return CodeOf(err) == ErrCodeResolverMissing
}

// IsInvalidStateChange checks whether an error reports an advancement with
// no next state.
func IsInvalidStateChange(err error) bool {
	return CodeOf(err) == ErrCodeInvalidStateChange
}
