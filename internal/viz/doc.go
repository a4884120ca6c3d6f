// Package viz provides the terminal front end for a running XY engine.
//
// The live view is a Bubble Tea program over a [runner.Runner]:
//
//   - the lattice drawn with half-block cells in the hue wheel palette, or as
//     a braille needle field ([Canvas]) showing block-averaged spin
//     directions
//   - a stats panel with the scheduler mode, temperature and instantaneous
//     magnetization and energy
//   - asciigraph plots of the published per-bin mean and response
//
// # Key Bindings
//
//	Space - Play/Pause
//	N     - Single step
//	W     - Temperature sweep from the current T up to 2
//	↑/↓   - Temperature ±0.01
//	←/→   - Lattice size
//	K/O   - Cycle kernel / observable
//	R/A   - Random / aligned initial state
//	C     - Toggle sample recording
//	S/G   - PNG snapshot / GIF recording
//	V     - Needle field
//	T     - Cycle color themes
//	?     - Full help
//
// Snapshots and recordings are written to the data directory.
package viz
