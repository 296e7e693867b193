// Package services implements the driving port interfaces: the
// conversion pipeline, incremental filtering, and duplicate handling.
// All I/O goes through driven ports, so the logic here stays pure Go
// and testable against the in-memory adapters.
package services
