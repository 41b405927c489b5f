// Package vm implements the Janitor runtime core.
//
// This package contains:
//   - the script value model (primitives, collections, temporal values)
//   - dispatch tables with inheritance, metadata and declarative JSON
//   - wrappers that expose host values through dispatch tables
//   - the scope chain and closures
//   - the calling convention and the runtime error taxonomy
package vm
