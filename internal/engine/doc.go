// Package engine is the XY-model simulation core: it owns the spin field,
// the update kernels, the per-temperature accumulators and the renderer, and
// is driven entirely by inbound commands and a host frame clock.
//
// # Commands
//
// A host sends batches of [Command] values to [Engine.Handle]:
//
//   - [Init] binds the frame sink and allocates a lattice
//   - [SetProperty] sets T, record, kernel or observable
//   - [Call] invokes one of the [Method] operations
//
// Unknown properties and methods are dropped. Nothing in this package
// returns an error; a malformed instruction is logged at debug level and
// ignored.
//
// # Scheduling
//
// The engine never blocks and never starts goroutines. In play and sweep
// modes the host calls [Engine.Tick] once per frame with a monotonic
// millisecond clock; this is what lets tests drive the engine with a
// virtual clock.
//
// # Publications
//
// Aggregates leave the engine as partial [Publication] snapshots through a
// [Publisher], at most once per publish interval while running and once on
// pause. Rasters go to the [FrameSink] after every rendered frame.
package engine
