// Package fsm provides the generic state machine engine that drives every
// participant of an execution context.
//
// A Machine owns one state triple (previous, current, next) and a table of
// per-state actions. Five slots exist for each state (Entry, PreDo, Do,
// PostDo and Exit) plus one global Transition hook. A missing slot is a
// no-op. The engine knows nothing about components or scheduling; it is a
// pure sequencing engine.
//
// # Stepping
//
// GoTo only records the requested next state and never runs an action. The
// owner advances the machine by calling Worker, or its three phases
// WorkerPre, WorkerDo and WorkerPost when several machines must be advanced
// phase by phase. One step runs:
//
//  1. Entry[curr] when the state changed in the previous step (or the start
//     state has not been entered yet).
//  2. PreDo, Do and PostDo of curr when no transition is pending.
//  3. Exit[curr] and the Transition hook when a transition is pending or a
//     self-transition was requested, after which next becomes current.
//
// A self-transition (GoTo(curr) while at rest) runs Exit, Transition and then
// Entry of the same state within the step that consumes it. When an action
// redirects a pending transition back to the current state after Exit has
// run, Entry runs again at the end of the step so that Entry and Exit stay
// paired.
//
// # Concurrency
//
// GoTo and the query methods are safe for concurrent use. The Worker methods
// must be called from a single goroutine at a time.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package fsm
