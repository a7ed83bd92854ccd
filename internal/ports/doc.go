// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Logger]: Structured logging abstraction (aliases of pkg/log)
//   - [Observer]: Receives cycle timings, participant transitions and
//     callback failures (implemented by the Prometheus adapter)
//   - [StatusRepository]: Persists and loads execution context status snapshots
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// implementations (file system, Prometheus, zerolog).
package ports
