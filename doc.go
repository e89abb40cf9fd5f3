// Package libfsm provides an embeddable finite-state-machine engine. A
// caller registers named states and events on a Machine, wires a transition
// graph between them with optional per-edge output callbacks, and drives
// independently addressable token cursors through the graph while observing
// structural and token-lifecycle changes on a typed notification channel.
//
// The engine is single-threaded and synchronous: every operation runs to
// completion before returning, and a failed call leaves the registries and
// token bindings unchanged. Callers embedding the machine in concurrent code
// must serialize access themselves.
package libfsm
