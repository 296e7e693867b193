// Package domain defines the core business entities for cogsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ConversionRecord: The durable outcome of converting one source raster
//   - ProcessingState: Per-file incremental bookkeeping scoped to a run
//   - Run: A single pipeline execution with its aggregate statistics
//   - ProcessOptions: Behaviour switches for a pipeline run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
