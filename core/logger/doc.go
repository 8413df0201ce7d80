// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production) and integrates with the Fiber operator API.
//
// # Context Awareness
//
// Two scoping helpers exist: WithRayID extracts the request RayID from a Fiber
// context, and WithSource attaches the source document reference so that all
// log lines emitted while solving or committing one meet document can be
// correlated.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Importer started")
//
//	// In a solver:
//	l := logger.WithSource(log, doc.Code)
//	l.Warn("Swimmer unresolved", zap.String("key", key))
package logger
