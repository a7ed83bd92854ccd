// Package log provides the logging abstraction used by the rtcd runtime.
//
// The execution context, its worker and every participant state machine log
// through the Logger interface so that embedding applications can route the
// scheduler's diagnostics into their own logging stack. A zerolog adapter is
// used by the rtcd daemon and a no-op logger is the library default.
//
// # Usage
//
//	logger := log.NewZerologAdapter()
//	worker := log.Named(logger, "ec_worker")
//	worker.Info("component added", log.String("component", "camera0"))
//
// # Named loggers
//
// Loggers that implement Namer produce child loggers tagged with a "logger"
// field. Named falls back to the parent logger for implementations that do
// not support naming.
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package log
