// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Converter: Produces a COG from one source raster
//   - ConverterRegistry: Selects the converter for a file format
//   - Discoverer: Finds raster candidates under an input directory
//   - Hasher: Computes content fingerprints
//   - ConversionStore: Conversion record persistence
//   - StateStore: Per-run processing state persistence
//   - HashIndexStore: Content hash index persistence
//   - RunStore: Run lifecycle persistence
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Uploader: Remote artifact storage. Without it, COGs stay local and
//     upload bookkeeping is skipped.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or converter package
package driven
