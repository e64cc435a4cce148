// Package core defines the shared language of the persistence gateway.
//
// This package contains:
//   - EngineMode, the engine a gateway is bound to
//   - Result, the normalized shape of every successful statement
//   - Error and ErrorKind, the normalized shape of every failure
//
// The Golden Rule: pkg/core imports ONLY the standard library.
// Adapters, dialects and the gateway depend on core, not the reverse.
package core
