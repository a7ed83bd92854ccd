// Package rtc defines the contract between execution contexts and the
// components they drive.
//
// A component is any value implementing Component. The lifecycle callbacks
// are grouped into optional capability interfaces (ComponentAction,
// DataFlowComponentAction, FsmParticipantAction and
// MultiModeComponentAction); a capability a component does not implement is
// skipped silently by the scheduler.
//
// Administrative operations report failures as errors wrapping one of the
// sentinel errors of this package. CodeOf maps any such error to the
// ReturnCode surfaced to external managers.
//
// Base is an embeddable helper that keeps the attach/detach bookkeeping of a
// component so that one component can join several execution contexts.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package rtc
