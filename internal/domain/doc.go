// Package domain contains the core domain entities and value objects for rtcd.
//
// This package represents the innermost layer of the application. It has no
// dependencies on infrastructure concerns (HTTP, file system, logging) and
// contains only plain data and sentinel errors.
//
// # Entities
//
//   - [ContextStatus]: point-in-time snapshot of one execution context
//   - [ParticipantStatus]: lifecycle state of one participant in that snapshot
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Serializable as JSON for the status file
package domain
